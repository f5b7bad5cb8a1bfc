package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "focusloop/internal/platform/errors"
)

const SchemaVersion = 1

type Session struct {
	ID               string
	TaskID           string
	UserID           string
	DurationMinutes  int
	CompletedMinutes int
	Kind             Kind
	Completed        bool
	StartedAt        time.Time
	CompletedAt      *time.Time
}

func (s Session) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("session id is required: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(s.TaskID) == "" {
		return fmt.Errorf("task id is required: %w", apperrors.ErrValidation)
	}
	if s.DurationMinutes <= 0 {
		return fmt.Errorf("duration must be positive, got %d: %w", s.DurationMinutes, apperrors.ErrValidation)
	}
	if err := s.Kind.Validate(); err != nil {
		return err
	}
	return nil
}

// Terminal is the patch applied exactly once when a session stops or expires.
type Terminal struct {
	CompletedMinutes int
	Completed        bool
	CompletedAt      time.Time
}

func (t Terminal) Validate(durationMinutes int) error {
	if t.CompletedMinutes < 0 || (durationMinutes > 0 && t.CompletedMinutes > durationMinutes) {
		return fmt.Errorf("completed minutes %d outside [0, %d]: %w", t.CompletedMinutes, durationMinutes, apperrors.ErrValidation)
	}
	if t.Completed && durationMinutes > 0 && t.CompletedMinutes != durationMinutes {
		return fmt.Errorf("a completed session must record its full duration: %w", apperrors.ErrValidation)
	}
	if t.CompletedAt.IsZero() {
		return fmt.Errorf("completed_at is required: %w", apperrors.ErrValidation)
	}
	return nil
}

// ElapsedMinutes converts the clock state into whole completed minutes, rounding down.
func ElapsedMinutes(durationMinutes, remainingSeconds int) int {
	elapsed := durationMinutes*60 - remainingSeconds
	if elapsed < 0 {
		return 0
	}
	return elapsed / 60
}

// Outcome describes a committed session for downstream consumers.
type Outcome struct {
	SessionID        string
	TaskID           string
	UserID           string
	Kind             Kind
	DurationMinutes  int
	CompletedMinutes int
	Completed        bool
	StartedAt        time.Time
	CompletedAt      time.Time
	TaskTotal        int
	Dismiss          bool
}

// Commit tracks the durable writes owed for one terminal transition. Each write is
// marked done once it succeeds so a retry never repeats it. TaskTotal is the task's
// accrual after the commit; when no minutes were added it is the total already known.
type Commit struct {
	Session     Session
	Terminal    Terminal
	Natural     bool
	SessionDone bool
	LedgerDone  bool
	TaskTotal   int
}

// NeedsLedger reports whether the commit must add minutes to the task's accrual.
func (c Commit) NeedsLedger() bool {
	return c.Session.Kind == KindFocus && c.Terminal.CompletedMinutes > 0
}

func (c Commit) Done() bool {
	return c.SessionDone && (c.LedgerDone || !c.NeedsLedger())
}

func (c Commit) Outcome() Outcome {
	return Outcome{
		SessionID:        c.Session.ID,
		TaskID:           c.Session.TaskID,
		UserID:           c.Session.UserID,
		Kind:             c.Session.Kind,
		DurationMinutes:  c.Session.DurationMinutes,
		CompletedMinutes: c.Terminal.CompletedMinutes,
		Completed:        c.Terminal.Completed,
		StartedAt:        c.Session.StartedAt,
		CompletedAt:      c.Terminal.CompletedAt,
		TaskTotal:        c.TaskTotal,
		Dismiss:          c.Natural && c.Session.Kind == KindBreak,
	}
}
