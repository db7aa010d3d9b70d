package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository/sqlite"
	"realworld-settings/internal/service"
)

func newUserService(t *testing.T) service.UserService {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := sqlite.NewUserRepository(db)
	require.NoError(t, repo.Init(context.Background()))
	return service.NewUserService(repo)
}

func ptr(s string) *string { return &s }

func TestRegisterAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	user, err := svc.Register(ctx, " ann ", "a@b.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, "ann", user.Username)
	assert.Empty(t, user.PasswordHash)

	got, err := svc.Authenticate(ctx, "a@b.com", "password1")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)

	_, err = svc.Authenticate(ctx, "a@b.com", "wrong-password")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody@b.com", "password1")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)

	_, err := svc.Register(ctx, "", "not-an-email", "short")
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{
		"username can't be blank",
		"email is invalid",
		"password is too short (minimum is 8 characters)",
	}, verr.Messages)

	_, err = svc.Register(ctx, "ann", "  ", "password1")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"email can't be blank"}, verr.Messages)

	_, err = svc.Register(ctx, "ann", "a@b.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "ann", "a@b.com", "password1")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"username has already been taken", "email has already been taken"}, verr.Messages)
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	user, err := svc.Register(ctx, "ann", "a@b.com", "password1")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, domain.UserChanges{
		Username: ptr("ann2"),
		Bio:      ptr("hi"),
		Image:    ptr("http://x/y.png"),
		Password: ptr(""),
	})
	require.NoError(t, err)
	assert.Equal(t, "ann2", updated.Username)
	assert.Equal(t, "hi", updated.Bio)
	assert.Equal(t, "a@b.com", updated.Email)

	// empty password keeps the old one
	_, err = svc.Authenticate(ctx, "a@b.com", "password1")
	require.NoError(t, err)

	_, err = svc.Update(ctx, user.ID, domain.UserChanges{Password: ptr("new-password")})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, "a@b.com", "new-password")
	assert.NoError(t, err)
}

func TestUpdateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(t)
	ann, err := svc.Register(ctx, "ann", "a@b.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "bob", "bob@b.com", "password1")
	require.NoError(t, err)

	var verr *service.ValidationError
	_, err = svc.Update(ctx, ann.ID, domain.UserChanges{Email: ptr("email-invalid")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"email is invalid"}, verr.Messages)

	_, err = svc.Update(ctx, ann.ID, domain.UserChanges{Username: ptr("bob")})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"username has already been taken"}, verr.Messages)

	_, err = svc.Update(ctx, 999, domain.UserChanges{})
	assert.ErrorIs(t, err, service.ErrUserNotFound)
}

func TestTokenService(t *testing.T) {
	tokens := service.NewTokenService("secret", time.Hour, "test")

	token, err := tokens.Issue(42)
	require.NoError(t, err)

	id, err := tokens.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	_, err = service.NewTokenService("other", time.Hour, "test").Parse(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, err = service.NewTokenService("secret", time.Hour, "elsewhere").Parse(token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	expired, err := service.NewTokenService("secret", -time.Minute, "test").Issue(42)
	require.NoError(t, err)
	_, err = tokens.Parse(expired)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}
