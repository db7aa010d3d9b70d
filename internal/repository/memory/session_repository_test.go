package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

func TestSessionRepositoryCopiesValues(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()

	values := map[string]string{domain.TokenKey: "jwt"}
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "s1", Values: values, ExpiresAt: time.Now().Add(time.Hour)}))
	values[domain.TokenKey] = "mutated"

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "jwt", got.Values[domain.TokenKey])

	got.Values["extra"] = "x"
	again, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	assert.NotContains(t, again.Values, "extra")
}

func TestSessionRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := NewSessionRepository()
	now := time.Now()

	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "a", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, repo.Create(ctx, &domain.Session{ID: "b", ExpiresAt: now.Add(time.Hour)}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.Session{ID: "b"}), repository.ErrAlreadyExists)

	n, err := repo.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, repo.Delete(ctx, "b"))
	_, err = repo.Get(ctx, "b")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := repo.Get(ctx, "missing")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
