package in

import (
	"context"
	"time"

	"focusloop/internal/modules/activity/dto"
)

type Usecase interface {
	RecordTaskCreated(ctx context.Context, userID string, at time.Time) error
	RecordTaskCompleted(ctx context.Context, userID string, at time.Time) error
	RecordFocus(ctx context.Context, input dto.FocusInput) error
	Streak(ctx context.Context) (dto.StreakOutput, error)
	Days(ctx context.Context, limit int) ([]dto.DayOutput, error)
}

type Reflections interface {
	// SaveToday writes today's reflection, replacing an earlier one from the same day.
	SaveToday(ctx context.Context, input dto.ReflectionInput) (dto.ReflectionOutput, error)
	// Get returns the reflection for date, or today's when date is empty.
	Get(ctx context.Context, date string) (dto.ReflectionOutput, error)
}
