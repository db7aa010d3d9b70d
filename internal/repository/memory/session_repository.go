package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

// SessionRepository keeps sessions in process memory.
type SessionRepository struct {
	mu    sync.Mutex
	items map[string]domain.Session
}

func NewSessionRepository() repository.SessionRepository {
	return &SessionRepository{items: make(map[string]domain.Session)}
}

func (r *SessionRepository) Init(context.Context) error { return nil }

func (r *SessionRepository) Create(_ context.Context, session *domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.items[session.ID]; exists {
		return fmt.Errorf("insert session: %w", repository.ErrAlreadyExists)
	}
	stored := *session
	stored.Values = maps.Clone(session.Values)
	r.items[session.ID] = stored
	return nil
}

func (r *SessionRepository) Get(_ context.Context, id string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
	}
	stored.Values = maps.Clone(stored.Values)
	if stored.Values == nil {
		stored.Values = map[string]string{}
	}
	return &stored, nil
}

func (r *SessionRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	delete(r.items, id)
	r.mu.Unlock()
	return nil
}

func (r *SessionRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.items {
		if s.Expired(now) {
			delete(r.items, id)
			n++
		}
	}
	return n, nil
}
