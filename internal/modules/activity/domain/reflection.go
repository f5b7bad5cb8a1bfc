package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "focusloop/internal/platform/errors"
)

type Mood string

const (
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodSad     Mood = "sad"
)

func (m Mood) Validate() error {
	switch m {
	case MoodHappy, MoodNeutral, MoodSad:
		return nil
	}
	return fmt.Errorf("mood %q must be happy, neutral or sad: %w", string(m), apperrors.ErrValidation)
}

// Reflection is the end-of-day entry a user keeps, at most one per date.
type Reflection struct {
	UserID         string
	Date           string
	Mood           Mood
	Gratitude      string
	Note           string
	TasksCompleted int
	Shared         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (r Reflection) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("user id is required: %w", apperrors.ErrValidation)
	}
	if _, err := time.Parse(DateLayout, r.Date); err != nil {
		return fmt.Errorf("reflection date %q must be YYYY-MM-DD: %w", r.Date, apperrors.ErrValidation)
	}
	if r.TasksCompleted < 0 {
		return fmt.Errorf("completed task count cannot be negative: %w", apperrors.ErrValidation)
	}
	return r.Mood.Validate()
}
