// Package credstore persists the credential record (token, user id, API key)
// and session metadata. A sealed, encrypted-at-rest store is used when it can
// be initialized; otherwise a plain file store takes over. Both satisfy the
// same Store contract so callers never branch on the backend.
package credstore

import (
	"context"

	"go.uber.org/zap"
)

// Storage keys for the credential record.
const (
	KeyUserToken = "user_token"
	KeyUserID    = "user_id"
	KeyAPIKey    = "api_key"
)

// Storage keys for session metadata (epoch-ms strings).
const (
	KeyTokenTimestamp = "token_timestamp"
	KeySessionStart   = "session_start"
	KeyLastActivity   = "last_activity"
)

// credentialKeys are removed together by Clear.
var credentialKeys = []string{KeyUserToken, KeyUserID, KeyAPIKey}

// Store is the credential storage contract. Get returns ("", nil) for a
// missing key; errors are reserved for storage-layer failures, which callers
// treat as fatal for the in-flight operation only.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error

	// Clear removes the credential record (token, user id, API key) as
	// sequential deletes. A partial failure leaves a logged-out but
	// inconsistent state; absence of a token is always treated as
	// unauthenticated, so that state is degraded, not corrupt.
	Clear(ctx context.Context) error
}

// Open probes for a sealed store in dir and falls back to the plain file
// store when sealing cannot be initialized (unwritable secret, corrupt
// machine key, etc.).
func Open(dir string, logger *zap.Logger) Store {
	s, err := OpenSealed(dir)
	if err == nil {
		return s
	}
	logger.Warn("sealed credential store unavailable, falling back to plain storage", zap.Error(err))
	return NewFileStore(dir)
}
