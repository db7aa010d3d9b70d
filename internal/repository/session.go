package repository

import (
	"context"
	"time"

	"realworld-settings/internal/domain"
)

// SessionRepository stores browser sessions and their scoped values.
type SessionRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, session *domain.Session) error
	Get(ctx context.Context, id string) (*domain.Session, error)
	// Delete removes the session together with every value stored under it.
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
