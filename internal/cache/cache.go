package cache

import "time"

// Cache guards backup runs: a fixed-window rate limit plus an in-progress
// flag so a second request cannot start while a run is still streaming.
type Cache interface {
	// AcquireWindow claims the account's rate-limit slot for the window.
	// Returns false when a run already claimed it inside the window.
	AcquireWindow(accountID string, window time.Duration) (bool, error)
	MarkRunning(accountID string) error
	ClearRunning(accountID string) error
	IsRunning(accountID string) (bool, error)

	Close() error
}
