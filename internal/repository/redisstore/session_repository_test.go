package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

func newTestRepository(t *testing.T) (repository.SessionRepository, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	repo := NewSessionRepository(client, "")
	require.NoError(t, repo.Init(context.Background()))
	return repo, mr
}

func TestSessionRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepository(t)
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &domain.Session{
		ID:        "s1",
		Values:    map[string]string{domain.TokenKey: "jwt", "theme": "dark"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}))
	assert.True(t, mr.Exists("session:s1"))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", got.ID)
	assert.Equal(t, map[string]string{domain.TokenKey: "jwt", "theme": "dark"}, got.Values)
	assert.WithinDuration(t, now.Add(time.Hour), got.ExpiresAt, time.Millisecond)
	assert.InDelta(t, time.Hour.Seconds(), mr.TTL("session:s1").Seconds(), 1)
}

func TestSessionRepositoryDeleteRemovesEveryKey(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepository(t)
	expires := time.Now().Add(time.Hour)

	require.NoError(t, repo.Create(ctx, &domain.Session{
		ID:        "s1",
		Values:    map[string]string{domain.TokenKey: "jwt", "theme": "dark"},
		ExpiresAt: expires,
	}))
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s2", ExpiresAt: expires}))

	require.NoError(t, repo.Delete(ctx, "s1"))
	_, err := repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, []string{"session:s2"}, mr.Keys())

	// deleting twice is fine
	assert.NoError(t, repo.Delete(ctx, "s1"))

	other, err := repo.Get(ctx, "s2")
	require.NoError(t, err)
	assert.Empty(t, other.Values)
}

func TestSessionRepositoryRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)
	expires := time.Now().Add(time.Hour)

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", Values: map[string]string{domain.TokenKey: "a"}, ExpiresAt: expires}))
	err := repo.Create(ctx, &domain.Session{ID: "s1", Values: map[string]string{domain.TokenKey: "b"}, ExpiresAt: expires})
	assert.ErrorIs(t, err, repository.ErrAlreadyExists)

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "a", got.Values[domain.TokenKey])
}

func TestSessionRepositoryExpiry(t *testing.T) {
	ctx := context.Background()
	repo, mr := newTestRepository(t)

	require.NoError(t, repo.Create(ctx, &domain.Session{
		ID:        "s1",
		Values:    map[string]string{domain.TokenKey: "jwt"},
		ExpiresAt: time.Now().Add(time.Minute),
	}))

	mr.FastForward(2 * time.Minute)

	_, err := repo.Get(ctx, "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	n, err := repo.DeleteExpired(ctx, time.Now())
	require.NoError(t, err)
	assert.Zero(t, n)

	err = repo.Create(ctx, &domain.Session{ID: "s2", ExpiresAt: time.Now().Add(-time.Second)})
	assert.Error(t, err)
	assert.False(t, mr.Exists("session:s2"))
}

func TestSessionRepositoryInitFailsWithoutServer(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	t.Cleanup(func() { client.Close() })

	repo := NewSessionRepository(client, "sess:")
	assert.Error(t, repo.Init(context.Background()))
}
