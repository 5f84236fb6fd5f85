package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/Fachryxyf/felisa-userside/internal/repository"
)

const submitKeyPrefix = "review-submit:"

// releaseScript deletes the guard key only while it still holds the caller's
// token, so an expired guard taken over by another replica is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SubmitGuard implements repository.SubmitGuard with SET NX so replicas
// behind a load balancer share one in-flight mark per session. The TTL
// bounds how long a crashed replica can block a session.
type SubmitGuard struct {
	client *redis.Client
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

var _ repository.SubmitGuard = (*SubmitGuard)(nil)

// NewSubmitGuard creates a Redis-backed submit guard.
func NewSubmitGuard(client *redis.Client, ttl time.Duration) *SubmitGuard {
	return &SubmitGuard{
		client: client,
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

// Acquire marks the session as submitting under a token owned by this guard.
func (g *SubmitGuard) Acquire(ctx context.Context, sessionID string) (bool, error) {
	token := uuid.New().String()
	ok, err := g.client.SetNX(ctx, submitKeyPrefix+sessionID, token, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx submit guard: %w", err)
	}
	if ok {
		g.mu.Lock()
		g.tokens[sessionID] = token
		g.mu.Unlock()
	}
	return ok, nil
}

// Release clears the in-flight mark if this guard still owns it.
func (g *SubmitGuard) Release(ctx context.Context, sessionID string) error {
	g.mu.Lock()
	token, ok := g.tokens[sessionID]
	delete(g.tokens, sessionID)
	g.mu.Unlock()

	if !ok {
		return nil
	}
	if err := releaseScript.Run(ctx, g.client, []string{submitKeyPrefix + sessionID}, token).Err(); err != nil {
		return fmt.Errorf("redis release submit guard: %w", err)
	}
	return nil
}

// Held reports whether the session is submitting.
func (g *SubmitGuard) Held(ctx context.Context, sessionID string) (bool, error) {
	n, err := g.client.Exists(ctx, submitKeyPrefix+sessionID).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists submit guard: %w", err)
	}
	return n > 0, nil
}
