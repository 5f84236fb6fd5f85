package memory

import (
	"context"
	"sync"
	"time"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	"github.com/Fachryxyf/felisa-userside/internal/repository"
	apperrors "github.com/Fachryxyf/felisa-userside/pkg/errors"
)

type sessionEntry struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionRepository implements repository.SessionRepository in process
// memory. Expired sessions are dropped lazily on access.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]sessionEntry
	ttl      time.Duration
	now      func() time.Time
}

var _ repository.SessionRepository = (*SessionRepository)(nil)

// NewSessionRepository creates an in-memory session repository. A zero ttl
// keeps sessions forever.
func NewSessionRepository(ttl time.Duration) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[string]sessionEntry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Get retrieves a session by ID.
func (r *SessionRepository) Get(_ context.Context, id string) (domain.Session, error) {
	r.mu.RLock()
	entry, ok := r.sessions[id]
	r.mu.RUnlock()

	if !ok || r.expired(entry) {
		if ok {
			r.mu.Lock()
			delete(r.sessions, id)
			r.mu.Unlock()
		}
		return domain.Session{}, apperrors.NotFound("review session", id)
	}

	s := entry.session
	s.Ratings = s.Ratings.Clone()
	return s, nil
}

// Save stores a copy of the session.
func (r *SessionRepository) Save(_ context.Context, session domain.Session) error {
	session.Ratings = session.Ratings.Clone()

	entry := sessionEntry{session: session}
	if r.ttl > 0 {
		entry.expiresAt = r.now().Add(r.ttl)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = entry
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *SessionRepository) expired(e sessionEntry) bool {
	return !e.expiresAt.IsZero() && !r.now().Before(e.expiresAt)
}
