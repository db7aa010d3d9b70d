package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"realworld-settings/internal/domain"
	"realworld-settings/internal/repository"
)

const createSessionsTables = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	created_at DATETIME NOT NULL,
	expires_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS session_values (
	session_id TEXT NOT NULL,
	key TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY(session_id, key),
	FOREIGN KEY(session_id) REFERENCES sessions(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`

type SessionRepository struct {
	db *sql.DB
}

func NewSessionRepository(db *sql.DB) repository.SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createSessionsTables); err != nil {
		return fmt.Errorf("create sessions tables: %w", err)
	}
	return nil
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `
INSERT INTO sessions (id, created_at, expires_at)
VALUES (?, ?, ?)`,
		session.ID,
		session.CreatedAt.UTC(),
		session.ExpiresAt.UTC(),
	); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert session: %w", repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert session: %w", err)
	}

	for key, value := range session.Values {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO session_values (session_id, key, value)
VALUES (?, ?, ?)`,
			session.ID,
			key,
			value,
		); err != nil {
			return fmt.Errorf("insert session value: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*domain.Session, error) {
	session := domain.Session{ID: id, Values: map[string]string{}}
	err := r.db.QueryRowContext(ctx, `
SELECT created_at, expires_at
FROM sessions
WHERE id = ?`, id).Scan(&session.CreatedAt, &session.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("session: %w", repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
SELECT key, value
FROM session_values
WHERE session_id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query session values: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan session value: %w", err)
		}
		session.Values[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate session values: %w", err)
	}
	return &session, nil
}

func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("expired sessions rows affected: %w", err)
	}
	return n, nil
}
