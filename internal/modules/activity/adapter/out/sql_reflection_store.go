package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focusloop/internal/modules/activity/domain"
	activityout "focusloop/internal/modules/activity/port/out"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/sqldb"
)

const timeLayout = time.RFC3339Nano

type SQLReflectionStore struct {
	db *sqldb.DB
}

func NewSQLReflectionStore(ctx context.Context, db *sqldb.DB) (activityout.ReflectionStore, error) {
	store := &SQLReflectionStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLReflectionStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS daily_reflections (
  user_id TEXT NOT NULL,
  reflection_date TEXT NOT NULL,
  mood TEXT NOT NULL CHECK (mood IN ('happy', 'neutral', 'sad')),
  gratitude_note TEXT,
  reflection_note TEXT,
  tasks_completed_count INTEGER NOT NULL DEFAULT 0 CHECK (tasks_completed_count >= 0),
  is_shared_with_peers INTEGER NOT NULL DEFAULT 0,
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  PRIMARY KEY (user_id, reflection_date)
)`
	if err := s.db.Migrate(ctx, ddl); err != nil {
		return fmt.Errorf("create daily_reflections table: %w", err)
	}
	return nil
}

func (s *SQLReflectionStore) Save(ctx context.Context, r domain.Reflection) error {
	const stmt = `
INSERT INTO daily_reflections (user_id, reflection_date, mood, gratitude_note, reflection_note, tasks_completed_count, is_shared_with_peers, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, reflection_date) DO UPDATE SET
  mood = excluded.mood,
  gratitude_note = excluded.gratitude_note,
  reflection_note = excluded.reflection_note,
  tasks_completed_count = excluded.tasks_completed_count,
  is_shared_with_peers = excluded.is_shared_with_peers,
  updated_at = excluded.updated_at`
	shared := 0
	if r.Shared {
		shared = 1
	}
	_, err := s.db.ExecContext(ctx, s.db.Rebind(stmt),
		r.UserID, r.Date, string(r.Mood),
		nullableText(r.Gratitude), nullableText(r.Note),
		r.TasksCompleted, shared,
		r.CreatedAt.UTC().Format(timeLayout), r.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("upsert reflection: %w", sqldb.Classify(err))
	}
	return nil
}

func (s *SQLReflectionStore) Find(ctx context.Context, userID, date string) (domain.Reflection, error) {
	const query = `
SELECT mood, gratitude_note, reflection_note, tasks_completed_count, is_shared_with_peers, created_at, updated_at
FROM daily_reflections
WHERE user_id = ? AND reflection_date = ?`
	var (
		r         = domain.Reflection{UserID: userID, Date: date}
		mood      string
		gratitude sql.NullString
		note      sql.NullString
		shared    int
		createdAt string
		updatedAt string
	)
	err := s.db.QueryRowContext(ctx, s.db.Rebind(query), userID, date).
		Scan(&mood, &gratitude, &note, &r.TasksCompleted, &shared, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Reflection{}, fmt.Errorf("reflection for %s: %w", date, apperrors.ErrNotFound)
		}
		return domain.Reflection{}, sqldb.Classify(err)
	}
	r.Mood = domain.Mood(mood)
	r.Gratitude = gratitude.String
	r.Note = note.String
	r.Shared = shared != 0
	if r.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.Reflection{}, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return domain.Reflection{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return r, nil
}

func nullableText(v string) any {
	if v == "" {
		return nil
	}
	return v
}
