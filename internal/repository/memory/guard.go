package memory

import (
	"context"
	"sync"

	"github.com/Fachryxyf/felisa-userside/internal/repository"
)

// SubmitGuard implements repository.SubmitGuard for a single process.
type SubmitGuard struct {
	mu       sync.Mutex
	inFlight map[string]struct{}
}

var _ repository.SubmitGuard = (*SubmitGuard)(nil)

// NewSubmitGuard creates an in-memory submit guard.
func NewSubmitGuard() *SubmitGuard {
	return &SubmitGuard{inFlight: make(map[string]struct{})}
}

// Acquire marks the session as submitting.
func (g *SubmitGuard) Acquire(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, held := g.inFlight[sessionID]; held {
		return false, nil
	}
	g.inFlight[sessionID] = struct{}{}
	return true, nil
}

// Release clears the in-flight mark.
func (g *SubmitGuard) Release(_ context.Context, sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.inFlight, sessionID)
	return nil
}

// Held reports whether the session is submitting.
func (g *SubmitGuard) Held(_ context.Context, sessionID string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, held := g.inFlight[sessionID]
	return held, nil
}
