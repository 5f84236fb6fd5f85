package redis

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Fachryxyf/felisa-userside/internal/domain"
	apperrors "github.com/Fachryxyf/felisa-userside/pkg/errors"
)

func setupTestRedis(t *testing.T) (*goredis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func sampleSession() domain.Session {
	now := time.Now().UTC().Truncate(time.Millisecond)
	s := domain.NewSession("prod-7", "Tas Rajut Felisa", now)
	s.Ratings[domain.CriterionMaterial] = 4
	s.Ratings[domain.CriterionSatisfaction] = 5
	return s
}

// ---------------------------------------------------------------------------
// SessionRepository
// ---------------------------------------------------------------------------

func TestSessionRepository_Get_Success(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)

	s := sampleSession()
	data, err := json.Marshal(s)
	require.NoError(t, err)

	// Set data directly in miniredis.
	require.NoError(t, mr.Set("review-session:"+s.ID, string(data)))

	got, err := repo.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "prod-7", got.ProductID)
	assert.Equal(t, "Tas Rajut Felisa", got.ProductName)
	assert.Equal(t, domain.SessionIdle, got.State)
	assert.Equal(t, 4, got.Ratings.Get(domain.CriterionMaterial))
	assert.Equal(t, 5, got.Ratings.Get(domain.CriterionSatisfaction))
	assert.Len(t, got.Ratings, 5)
	assert.True(t, s.OpenedAt.Equal(got.OpenedAt))
}

func TestSessionRepository_Get_NotFound(t *testing.T) {
	client, _ := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)

	_, err := repo.Get(context.Background(), "nope")
	require.Error(t, err)

	var appErr *apperrors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestSessionRepository_Get_CorruptData(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)

	require.NoError(t, mr.Set("review-session:bad", "{not-json"))

	_, err := repo.Get(context.Background(), "bad")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal review session")
}

func TestSessionRepository_Save_SetsTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewSessionRepository(client, 30*time.Minute)

	s := sampleSession()
	require.NoError(t, repo.Save(context.Background(), s))

	assert.True(t, mr.Exists("review-session:"+s.ID))
	assert.Equal(t, 30*time.Minute, mr.TTL("review-session:"+s.ID))

	mr.FastForward(31 * time.Minute)
	_, err := repo.Get(context.Background(), s.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestSessionRepository_Delete(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)

	s := sampleSession()
	require.NoError(t, repo.Save(context.Background(), s))
	require.NoError(t, repo.Delete(context.Background(), s.ID))
	assert.False(t, mr.Exists("review-session:"+s.ID))
}

func TestSessionRepository_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	repo := NewSessionRepository(client, time.Hour)
	mr.Close()

	_, err := repo.Get(context.Background(), "x")
	require.Error(t, err)
	assert.False(t, errors.Is(err, apperrors.ErrNotFound))
	assert.Error(t, repo.Save(context.Background(), sampleSession()))
}

// ---------------------------------------------------------------------------
// SubmitGuard
// ---------------------------------------------------------------------------

func TestSubmitGuard_AcquireRelease(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewSubmitGuard(client, 2*time.Minute)
	ctx := context.Background()

	ok, err := g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Minute, mr.TTL("review-submit:s1"))

	ok, err = g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	held, err := g.Held(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, g.Release(ctx, "s1"))
	held, err = g.Held(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestSubmitGuard_ExpiresAfterTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewSubmitGuard(client, time.Minute)
	ctx := context.Background()

	ok, _ := g.Acquire(ctx, "s1")
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err := g.Acquire(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSubmitGuard_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	g := NewSubmitGuard(client, time.Minute)
	mr.Close()

	ok, err := g.Acquire(context.Background(), "s1")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSubmitGuard_ReleaseKeepsGuardTakenOverAfterExpiry(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	slow := NewSubmitGuard(client, time.Minute)
	other := NewSubmitGuard(client, time.Minute)

	ok, err := slow.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	ok, err = other.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, slow.Release(ctx, "s1"))

	held, err := other.Held(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, held)

	require.NoError(t, other.Release(ctx, "s1"))
	held, err = other.Held(ctx, "s1")
	require.NoError(t, err)
	assert.False(t, held)
}

func TestSubmitGuard_ReleaseWithoutAcquireIsNoop(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	owner := NewSubmitGuard(client, time.Minute)
	stranger := NewSubmitGuard(client, time.Minute)

	ok, err := owner.Acquire(ctx, "s1")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, stranger.Release(ctx, "s1"))

	held, err := owner.Held(ctx, "s1")
	require.NoError(t, err)
	assert.True(t, held)
}
