package out

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"focusloop/internal/modules/task/domain"
	taskout "focusloop/internal/modules/task/port/out"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/sqldb"
)

const timeLayout = time.RFC3339Nano

type SQLTaskStore struct {
	db *sqldb.DB
}

func NewSQLTaskStore(ctx context.Context, db *sqldb.DB) (taskout.TaskStore, error) {
	store := &SQLTaskStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLTaskStore) ensureSchema(ctx context.Context) error {
	const table = `
CREATE TABLE IF NOT EXISTS tasks (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  title TEXT NOT NULL,
  description TEXT NOT NULL DEFAULT '',
  completed INTEGER NOT NULL DEFAULT 0,
  completed_at TEXT,
  due_date TEXT,
  total_focus_time_minutes INTEGER NOT NULL DEFAULT 0 CHECK (total_focus_time_minutes >= 0),
  created_at TEXT NOT NULL,
  updated_at TEXT NOT NULL,
  deleted_at TEXT
)`
	const index = `CREATE INDEX IF NOT EXISTS idx_tasks_user ON tasks (user_id, created_at)`
	if err := s.db.Migrate(ctx, table, index); err != nil {
		return fmt.Errorf("create tasks table: %w", err)
	}
	return nil
}

func (s *SQLTaskStore) Insert(ctx context.Context, task domain.Task) error {
	const stmt = `
INSERT INTO tasks (id, user_id, title, description, completed, completed_at, due_date, total_focus_time_minutes, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(stmt),
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		boolToInt(task.Completed),
		nullableTime(task.CompletedAt),
		nullableString(task.DueDate),
		task.TotalFocusMinutes,
		task.CreatedAt.UTC().Format(timeLayout),
		task.UpdatedAt.UTC().Format(timeLayout),
	)
	if err != nil {
		return sqldb.Classify(err)
	}
	return nil
}

const selectColumns = `id, user_id, title, description, completed, completed_at, due_date, total_focus_time_minutes, created_at, updated_at`

func (s *SQLTaskStore) FindByID(ctx context.Context, id string) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`SELECT `+selectColumns+` FROM tasks WHERE id = ? AND deleted_at IS NULL`), id)
	task, err := scanTask(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Task{}, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
		}
		return domain.Task{}, sqldb.Classify(err)
	}
	return task, nil
}

func (s *SQLTaskStore) ListByUser(ctx context.Context, userID string) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(`SELECT `+selectColumns+` FROM tasks WHERE user_id = ? AND deleted_at IS NULL ORDER BY completed, created_at`), userID)
	if err != nil {
		return nil, sqldb.Classify(err)
	}
	defer rows.Close()
	var out []domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, sqldb.Classify(err)
		}
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, sqldb.Classify(err)
	}
	return out, nil
}

func (s *SQLTaskStore) MarkDone(ctx context.Context, id string, at time.Time) error {
	stamp := at.UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE tasks SET completed = 1, completed_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`), stamp, stamp, id)
	if err != nil {
		return sqldb.Classify(err)
	}
	return requireRow(res, id)
}

// AddFocusMinutes lets the database evaluate the addition so concurrent writers never
// overwrite each other's minutes.
func (s *SQLTaskStore) AddFocusMinutes(ctx context.Context, id string, delta int, at time.Time) (int, error) {
	const stmt = `
UPDATE tasks
SET total_focus_time_minutes = total_focus_time_minutes + ?, updated_at = ?
WHERE id = ? AND deleted_at IS NULL
RETURNING total_focus_time_minutes`
	var total int
	err := s.db.QueryRowContext(ctx, s.db.Rebind(stmt), delta, at.UTC().Format(timeLayout), id).Scan(&total)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
		}
		return 0, sqldb.Classify(err)
	}
	return total, nil
}

func (s *SQLTaskStore) Delete(ctx context.Context, id, userID string, at time.Time) error {
	stamp := at.UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE tasks SET deleted_at = ?, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NULL`), stamp, stamp, id, userID)
	if err != nil {
		return sqldb.Classify(err)
	}
	return requireRow(res, id)
}

func (s *SQLTaskStore) Restore(ctx context.Context, id, userID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`UPDATE tasks SET deleted_at = NULL, updated_at = ? WHERE id = ? AND user_id = ? AND deleted_at IS NOT NULL`), at.UTC().Format(timeLayout), id, userID)
	if err != nil {
		return sqldb.Classify(err)
	}
	return requireRow(res, id)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		task        domain.Task
		completed   int
		completedAt sql.NullString
		dueDate     sql.NullString
		createdAt   string
		updatedAt   string
	)
	if err := row.Scan(&task.ID, &task.UserID, &task.Title, &task.Description, &completed, &completedAt, &dueDate, &task.TotalFocusMinutes, &createdAt, &updatedAt); err != nil {
		return domain.Task{}, err
	}
	task.Completed = completed != 0
	task.DueDate = dueDate.String
	var err error
	if task.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return domain.Task{}, fmt.Errorf("parse created_at: %w", err)
	}
	if task.UpdatedAt, err = time.Parse(timeLayout, updatedAt); err != nil {
		return domain.Task{}, fmt.Errorf("parse updated_at: %w", err)
	}
	if completedAt.Valid {
		at, err := time.Parse(timeLayout, completedAt.String)
		if err != nil {
			return domain.Task{}, fmt.Errorf("parse completed_at: %w", err)
		}
		task.CompletedAt = &at
	}
	return task, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return sqldb.Classify(err)
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(timeLayout)
}

func nullableString(v string) any {
	if v == "" {
		return nil
	}
	return v
}
