package auth

import "context"

// Manager resolves a short-lived access token for the account's external
// storage connection. The pipeline calls it once at startup and again before
// every stage; tokens must never be cached across stages.
type Manager interface {
	AccessToken(ctx context.Context, accountID string) (string, error)
}
