package out

import (
	"context"
	"fmt"

	"focusloop/internal/modules/activity/domain"
	activityout "focusloop/internal/modules/activity/port/out"
	"focusloop/internal/platform/sqldb"
)

type SQLDayStore struct {
	db *sqldb.DB
}

func NewSQLDayStore(ctx context.Context, db *sqldb.DB) (activityout.DayStore, error) {
	store := &SQLDayStore{db: db}
	if err := store.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *SQLDayStore) ensureSchema(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS daily_activity (
  user_id TEXT NOT NULL,
  activity_date TEXT NOT NULL,
  tasks_created INTEGER NOT NULL DEFAULT 0,
  tasks_completed INTEGER NOT NULL DEFAULT 0,
  focus_minutes INTEGER NOT NULL DEFAULT 0,
  focus_sessions INTEGER NOT NULL DEFAULT 0,
  breaks INTEGER NOT NULL DEFAULT 0,
  PRIMARY KEY (user_id, activity_date)
)`
	if err := s.db.Migrate(ctx, ddl); err != nil {
		return fmt.Errorf("create daily_activity table: %w", err)
	}
	return nil
}

func (s *SQLDayStore) Add(ctx context.Context, userID, date string, delta domain.Delta) error {
	const stmt = `
INSERT INTO daily_activity (user_id, activity_date, tasks_created, tasks_completed, focus_minutes, focus_sessions, breaks)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (user_id, activity_date) DO UPDATE SET
  tasks_created = daily_activity.tasks_created + excluded.tasks_created,
  tasks_completed = daily_activity.tasks_completed + excluded.tasks_completed,
  focus_minutes = daily_activity.focus_minutes + excluded.focus_minutes,
  focus_sessions = daily_activity.focus_sessions + excluded.focus_sessions,
  breaks = daily_activity.breaks + excluded.breaks`
	_, err := s.db.ExecContext(ctx, s.db.Rebind(stmt),
		userID, date,
		delta.TasksCreated, delta.TasksCompleted, delta.FocusMinutes, delta.FocusSessions, delta.Breaks,
	)
	if err != nil {
		return fmt.Errorf("upsert daily activity: %w", sqldb.Classify(err))
	}
	return nil
}

func (s *SQLDayStore) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Day, error) {
	query := `
SELECT user_id, activity_date, tasks_created, tasks_completed, focus_minutes, focus_sessions, breaks
FROM daily_activity
WHERE user_id = ?
ORDER BY activity_date DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return nil, sqldb.Classify(err)
	}
	defer rows.Close()
	var out []domain.Day
	for rows.Next() {
		var d domain.Day
		if err := rows.Scan(&d.UserID, &d.Date, &d.TasksCreated, &d.TasksCompleted, &d.FocusMinutes, &d.FocusSessions, &d.Breaks); err != nil {
			return nil, sqldb.Classify(err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, sqldb.Classify(err)
	}
	return out, nil
}
