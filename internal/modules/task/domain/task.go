package domain

import (
	"fmt"
	"strings"
	"time"

	apperrors "focusloop/internal/platform/errors"
)

const DueDateLayout = "2006-01-02"

type Task struct {
	ID                string
	UserID            string
	Title             string
	Description       string
	Completed         bool
	CompletedAt       *time.Time
	DueDate           string
	TotalFocusMinutes int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (t Task) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("id is required: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(t.UserID) == "" {
		return fmt.Errorf("owner is required: %w", apperrors.ErrValidation)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("title is required: %w", apperrors.ErrValidation)
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DueDateLayout, t.DueDate); err != nil {
			return fmt.Errorf("due date %q must be YYYY-MM-DD: %w", t.DueDate, apperrors.ErrValidation)
		}
	}
	if t.TotalFocusMinutes < 0 {
		return fmt.Errorf("focus minutes cannot be negative: %w", apperrors.ErrValidation)
	}
	if t.Completed != (t.CompletedAt != nil) {
		return fmt.Errorf("completed and completed_at disagree: %w", apperrors.ErrValidation)
	}
	return nil
}
