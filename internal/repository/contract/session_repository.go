package contract

import (
	"context"

	"hmo-assistant-be/pkg/store"
)

// SessionRepository keeps conversation sessions until they go idle for longer
// than the configured timeout.
type SessionRepository interface {
	Create(ctx context.Context, session *store.Session) error
	// Get returns a copy of the session; store.ErrSessionNotFound when it is
	// missing or expired.
	Get(ctx context.Context, id string) (*store.Session, error)
	Delete(ctx context.Context, id string) error
	// WithSession runs fn with exclusive access to the session and persists
	// the result when fn returns nil. The session cannot expire while fn runs.
	// Waiting for another turn honours ctx and fails with store.ErrSessionBusy.
	// A session deleted while fn runs stays deleted and the call returns
	// store.ErrSessionNotFound.
	WithSession(ctx context.Context, id string, fn func(*store.Session) error) error
	SweepExpired(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}
