package out

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"focusloop/internal/modules/focus/domain"
	focusout "focusloop/internal/modules/focus/port/out"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/sqldb"
)

const timeLayout = time.RFC3339Nano

type SQLSessionStore struct {
	db *sqldb.DB
}

func NewSQLSessionStore(ctx context.Context, db *sqldb.DB) (focusout.SessionStore, error) {
	store := &SQLSessionStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLSessionStore) ensureSchema(ctx context.Context) error {
	const table = `
CREATE TABLE IF NOT EXISTS focus_sessions (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  duration_minutes INTEGER NOT NULL CHECK (duration_minutes > 0),
  completed_minutes INTEGER NOT NULL DEFAULT 0 CHECK (completed_minutes >= 0),
  session_type TEXT NOT NULL CHECK (session_type IN ('focus', 'break')),
  completed INTEGER NOT NULL DEFAULT 0,
  started_at TEXT NOT NULL,
  completed_at TEXT,
  CHECK (completed_minutes <= duration_minutes)
)`
	const index = `CREATE INDEX IF NOT EXISTS idx_focus_sessions_task ON focus_sessions (task_id, started_at)`
	if err := s.db.Migrate(ctx, table, index); err != nil {
		return fmt.Errorf("create focus_sessions table: %w", err)
	}
	return nil
}

func (s *SQLSessionStore) Create(ctx context.Context, session domain.Session) (string, error) {
	if err := session.Validate(); err != nil {
		return "", err
	}
	const stmt = `
INSERT INTO focus_sessions (id, task_id, user_id, duration_minutes, completed_minutes, session_type, completed, started_at)
VALUES (?, ?, ?, ?, 0, ?, 0, ?)`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(stmt),
		session.ID,
		session.TaskID,
		session.UserID,
		session.DurationMinutes,
		string(session.Kind),
		session.StartedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return "", sqldb.Classify(err)
	}
	return session.ID, nil
}

// Complete only touches sessions that are still open, so a terminal patch lands once.
func (s *SQLSessionStore) Complete(ctx context.Context, id string, patch domain.Terminal) error {
	const stmt = `
UPDATE focus_sessions
SET completed_minutes = ?, completed = ?, completed_at = ?
WHERE id = ? AND completed_at IS NULL`
	completed := 0
	if patch.Completed {
		completed = 1
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(stmt),
		patch.CompletedMinutes,
		completed,
		patch.CompletedAt.UTC().Format(timeLayout),
		id,
	)
	if err != nil {
		return sqldb.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return sqldb.Classify(err)
	}
	if n == 0 {
		return fmt.Errorf("open session %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func (s *SQLSessionStore) ListByTask(ctx context.Context, taskID string) ([]domain.Session, error) {
	const query = `
SELECT id, task_id, user_id, duration_minutes, completed_minutes, session_type, completed, started_at, completed_at
FROM focus_sessions
WHERE task_id = ?
ORDER BY started_at DESC`
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), taskID)
	if err != nil {
		return nil, sqldb.Classify(err)
	}
	defer rows.Close()
	var out []domain.Session
	for rows.Next() {
		var (
			session     domain.Session
			kind        string
			completed   int
			startedAt   string
			completedAt sql.NullString
		)
		if err := rows.Scan(&session.ID, &session.TaskID, &session.UserID, &session.DurationMinutes, &session.CompletedMinutes, &kind, &completed, &startedAt, &completedAt); err != nil {
			return nil, sqldb.Classify(err)
		}
		session.Kind = domain.Kind(kind)
		session.Completed = completed != 0
		if session.StartedAt, err = time.Parse(timeLayout, startedAt); err != nil {
			return nil, fmt.Errorf("parse started_at: %w", err)
		}
		if completedAt.Valid {
			at, err := time.Parse(timeLayout, completedAt.String)
			if err != nil {
				return nil, fmt.Errorf("parse completed_at: %w", err)
			}
			session.CompletedAt = &at
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, sqldb.Classify(err)
	}
	return out, nil
}
