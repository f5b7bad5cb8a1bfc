package out

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"focusloop/internal/modules/focus/domain"
	focusout "focusloop/internal/modules/focus/port/out"
	taskin "focusloop/internal/modules/task/port/in"
	"focusloop/internal/platform/markdown"
	"focusloop/internal/platform/slug"
)

const (
	journalBlockStart = "<!-- focusloop:sessions:start -->"
	journalBlockEnd   = "<!-- focusloop:sessions:end -->"
)

type sessionNoteMeta struct {
	SchemaVersion    int    `yaml:"schema_version"`
	ID               string `yaml:"id"`
	TaskID           string `yaml:"task_id"`
	TaskTitle        string `yaml:"task_title"`
	UserID           string `yaml:"user_id"`
	SessionType      string `yaml:"session_type"`
	DurationMinutes  int    `yaml:"duration_minutes"`
	CompletedMinutes int    `yaml:"completed_minutes"`
	Completed        bool   `yaml:"completed"`
	StartedAt        string `yaml:"started_at"`
	CompletedAt      string `yaml:"completed_at"`
	TaskTotalMinutes int    `yaml:"task_total_minutes,omitempty"`
}

type dayNoteMeta struct {
	SchemaVersion int    `yaml:"schema_version"`
	Date          string `yaml:"date"`
	FocusMinutes  int    `yaml:"focus_minutes"`
	FocusSessions int    `yaml:"focus_sessions"`
	Breaks        int    `yaml:"breaks"`
}

// JournalNoteWriter keeps a markdown journal of finished sessions: one note per session
// and a daily note listing them.
type JournalNoteWriter struct {
	dir   string
	tasks taskin.Usecase
	mu    sync.Mutex
}

func NewJournalNoteWriter(dir string, tasks taskin.Usecase) focusout.OutcomeSink {
	return &JournalNoteWriter{dir: dir, tasks: tasks}
}

func (w *JournalNoteWriter) RecordOutcome(ctx context.Context, outcome domain.Outcome) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	title := w.taskTitle(ctx, outcome.TaskID)
	notePath, err := w.writeSessionNote(outcome, title)
	if err != nil {
		return err
	}
	return w.updateDayNote(outcome, title, notePath)
}

func (w *JournalNoteWriter) taskTitle(ctx context.Context, taskID string) string {
	if w.tasks == nil {
		return taskID
	}
	task, err := w.tasks.Get(ctx, taskID)
	if err != nil || strings.TrimSpace(task.Title) == "" {
		return taskID
	}
	return task.Title
}

func (w *JournalNoteWriter) writeSessionNote(outcome domain.Outcome, title string) (string, error) {
	at := outcome.CompletedAt
	dir := filepath.Join(w.dir, "sessions", at.Format("2006"), at.Format("01"), at.Format("02"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create journal dir: %w", err)
	}
	name := fmt.Sprintf("%s-%s-%s.md", at.Format("150405"), slug.Make(title), outcome.Kind)
	path := filepath.Join(dir, name)

	meta := sessionNoteMeta{
		SchemaVersion:    domain.SchemaVersion,
		ID:               outcome.SessionID,
		TaskID:           outcome.TaskID,
		TaskTitle:        title,
		UserID:           outcome.UserID,
		SessionType:      string(outcome.Kind),
		DurationMinutes:  outcome.DurationMinutes,
		CompletedMinutes: outcome.CompletedMinutes,
		Completed:        outcome.Completed,
		StartedAt:        outcome.StartedAt.Format(timeLayout),
		CompletedAt:      outcome.CompletedAt.Format(timeLayout),
		TaskTotalMinutes: outcome.TaskTotal,
	}
	heading := "Focus session"
	if outcome.Kind == domain.KindBreak {
		heading = "Break"
	}
	status := "stopped early"
	if outcome.Completed {
		status = "ran to completion"
	}
	body := fmt.Sprintf("# %s %s\n\n- Task: %s\n- Planned: %d minutes\n- Recorded: %d minutes (%s)\n",
		heading, at.Format("2006-01-02 15:04"), title, outcome.DurationMinutes, outcome.CompletedMinutes, status)
	rendered, err := markdown.Render(meta, body)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return "", fmt.Errorf("write session note: %w", err)
	}
	return path, nil
}

func (w *JournalNoteWriter) updateDayNote(outcome domain.Outcome, title, notePath string) error {
	date := outcome.CompletedAt.Format("2006-01-02")
	path := filepath.Join(w.dir, date+".md")

	meta := dayNoteMeta{SchemaVersion: domain.SchemaVersion, Date: date}
	body := fmt.Sprintf("# Focus journal %s\n", date)
	content, err := os.ReadFile(path)
	switch {
	case err == nil:
		if body, err = markdown.Split(string(content), &meta); err != nil {
			return fmt.Errorf("read day note %s: %w", path, err)
		}
	case !os.IsNotExist(err):
		return fmt.Errorf("read day note: %w", err)
	}

	if outcome.Kind == domain.KindBreak {
		meta.Breaks++
	} else {
		meta.FocusSessions++
		meta.FocusMinutes += outcome.CompletedMinutes
	}
	lines, _ := markdown.ManagedLines(body, journalBlockStart, journalBlockEnd)
	rel, err := filepath.Rel(w.dir, notePath)
	if err != nil {
		rel = notePath
	}
	lines = append(lines, fmt.Sprintf("- %s %s %d/%d min on %s ([note](%s))",
		outcome.CompletedAt.Format("15:04"), outcome.Kind, outcome.CompletedMinutes, outcome.DurationMinutes, title, filepath.ToSlash(rel)))
	body = markdown.ReplaceManagedBlock(body, journalBlockStart, journalBlockEnd, strings.Join(lines, "\n"))

	rendered, err := markdown.Render(meta, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("create journal dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(rendered), 0o644); err != nil {
		return fmt.Errorf("write day note: %w", err)
	}
	return nil
}
