package repository

import (
	"context"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
)

// SessionRepository defines the interface for review session persistence.
type SessionRepository interface {
	// Get retrieves a session by ID. Unknown or expired sessions return a
	// NOT_FOUND AppError.
	Get(ctx context.Context, id string) (domain.Session, error)

	// Save stores the session, overwriting any previous version and
	// refreshing its expiry.
	Save(ctx context.Context, session domain.Session) error

	// Delete removes a session. Deleting an unknown session is not an error.
	Delete(ctx context.Context, id string) error
}

// SubmitGuard admits at most one in-flight submission per session.
type SubmitGuard interface {
	// Acquire marks the session as submitting. It returns false when a
	// submission for the session is already in flight.
	Acquire(ctx context.Context, sessionID string) (bool, error)

	// Release clears the in-flight mark.
	Release(ctx context.Context, sessionID string) error

	// Held reports whether a submission is in flight for the session.
	Held(ctx context.Context, sessionID string) (bool, error)
}
