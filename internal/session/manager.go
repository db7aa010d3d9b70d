package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

var (
	// ErrSessionNotFound indicates the session id is unknown or has been cleared.
	ErrSessionNotFound = errors.New("session not found")
	// ErrSessionExpired indicates the session outlived its TTL.
	ErrSessionExpired = errors.New("session expired")
)

const defaultTTL = 24 * time.Hour

// Manager owns the lifecycle of browser sessions: created at login, read by
// the settings form, destroyed at logout.
type Manager struct {
	repo   repository.SessionRepository
	ttl    time.Duration
	now    func() time.Time
	logger logrus.FieldLogger
}

func NewManager(repo repository.SessionRepository, ttl time.Duration, logger logrus.FieldLogger) *Manager {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Manager{
		repo:   repo,
		ttl:    ttl,
		now:    time.Now,
		logger: logger.WithField("component", "session"),
	}
}

// Start creates a session holding the given credential.
func (m *Manager) Start(ctx context.Context, token domain.Credential) (*domain.Session, error) {
	if token == "" {
		return nil, errors.New("credential is required")
	}
	now := m.now().UTC()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Values:    map[string]string{domain.TokenKey: string(token)},
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.repo.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

// Load returns a live session. Expired sessions are removed on access.
func (m *Manager) Load(ctx context.Context, id string) (*domain.Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}
	sess, err := m.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if sess.Expired(m.now()) {
		if err := m.repo.Delete(ctx, id); err != nil {
			m.logger.WithError(err).Warn("drop expired session")
		}
		return nil, ErrSessionExpired
	}
	return sess, nil
}

// Scope returns the storage handle for one session id. An empty id yields a
// scope with no credential.
func (m *Manager) Scope(id string) *Scope {
	return &Scope{manager: m, id: id}
}

func (m *Manager) TTL() time.Duration { return m.ttl }

// PurgeExpired deletes sessions past their expiry.
func (m *Manager) PurgeExpired(ctx context.Context) (int64, error) {
	return m.repo.DeleteExpired(ctx, m.now().UTC())
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (m *Manager) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := m.PurgeExpired(ctx)
			if err != nil {
				m.logger.WithError(err).Warn("purge expired sessions")
				continue
			}
			if n > 0 {
				m.logger.Debugf("purged %d expired sessions", n)
			}
		}
	}
}

// Scope is the session-scoped storage seen by one browser session.
type Scope struct {
	manager *Manager
	id      string
}

func (s *Scope) ID() string { return s.id }

// Credential reads the bearer token. Missing, expired and cleared sessions
// report no credential.
func (s *Scope) Credential(ctx context.Context) (domain.Credential, bool) {
	if s == nil || s.id == "" {
		return "", false
	}
	sess, err := s.manager.Load(ctx, s.id)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
			s.manager.logger.WithError(err).Warn("read session credential")
		}
		return "", false
	}
	return sess.Credential()
}

// Clear removes the whole session, every key included.
func (s *Scope) Clear(ctx context.Context) error {
	if s == nil || s.id == "" {
		return nil
	}
	if err := s.manager.repo.Delete(ctx, s.id); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
