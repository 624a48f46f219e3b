package oauth

import (
	"context"
	"fmt"

	conf "github.com/fabdesk/backup-exporter/config"
	"github.com/fabdesk/backup-exporter/internal/errors"
	"github.com/fabdesk/backup-exporter/internal/store"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenManager exchanges the refresh token stored on the account's storage
// connection for a short-lived access token.
type TokenManager struct {
	accounts store.AccountStore
	conf     *oauth2.Config
}

func New(accounts store.AccountStore, cfg *conf.DriveConfig) (*TokenManager, error) {
	if accounts == nil {
		return nil, errors.Internal("account store is nil")
	}
	if cfg == nil || cfg.ClientID == "" {
		return nil, errors.Internal("drive oauth client is not configured")
	}
	return &TokenManager{
		accounts: accounts,
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     google.Endpoint,
		},
	}, nil
}

func (m *TokenManager) AccessToken(ctx context.Context, accountID string) (string, error) {
	conn, err := m.accounts.GetStorageConnection(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("load storage connection: %w", err)
	}
	if !conn.Verified {
		return "", fmt.Errorf("storage connection for account %s is not verified", accountID)
	}

	src := m.conf.TokenSource(ctx, &oauth2.Token{RefreshToken: conn.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return "", fmt.Errorf("refresh access token: %w", err)
	}
	return tok.AccessToken, nil
}
