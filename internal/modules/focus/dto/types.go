package dto

import (
	"fmt"
	"time"
)

type OpenTimerInput struct {
	TaskID string
}

type TimerInfo struct {
	TaskID            string
	UserID            string
	TotalFocusMinutes int
	FocusMenu         []int
	BreakMenu         []int
}

type StartOutput struct {
	SessionID       string
	TaskID          string
	Kind            string
	DurationMinutes int
	StartedAt       time.Time
}

// Snapshot is the render state published after every transition and tick.
type Snapshot struct {
	State            string
	Kind             string
	TaskID           string
	SessionID        string
	DurationMinutes  int
	RemainingSeconds int
	PendingMinutes   int
	HasPending       bool
	Dismissed        bool
	TaskTotal        int
	LastError        string
}

type CommitOutput struct {
	SessionID        string
	TaskID           string
	Kind             string
	DurationMinutes  int
	CompletedMinutes int
	Completed        bool
	CompletedAt      time.Time
	TaskTotal        int
	NextState        string
}

type SessionOutput struct {
	ID               string
	TaskID           string
	Kind             string
	DurationMinutes  int
	CompletedMinutes int
	Completed        bool
	StartedAt        time.Time
	CompletedAt      *time.Time
}

// CommitError reports a failed commit together with the minutes that were computed
// for it, so callers can offer a retry without losing the number.
type CommitError struct {
	SessionID        string
	Kind             string
	CompletedMinutes int
	Retryable        bool
	Err              error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit session %s (%d min): %v", e.SessionID, e.CompletedMinutes, e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }
