package in

import (
	"context"

	"focusloop/internal/modules/activity/dto"
	activityin "focusloop/internal/modules/activity/port/in"
)

type CLIHandler struct {
	usecase     activityin.Usecase
	reflections activityin.Reflections
}

func NewCLIHandler(usecase activityin.Usecase, reflections activityin.Reflections) CLIHandler {
	return CLIHandler{usecase: usecase, reflections: reflections}
}

func (h CLIHandler) Streak(ctx context.Context) (dto.StreakOutput, error) {
	return h.usecase.Streak(ctx)
}

func (h CLIHandler) Days(ctx context.Context, limit int) ([]dto.DayOutput, error) {
	return h.usecase.Days(ctx, limit)
}

func (h CLIHandler) Reflect(ctx context.Context, mood, gratitude, note string, shared bool) (dto.ReflectionOutput, error) {
	return h.reflections.SaveToday(ctx, dto.ReflectionInput{Mood: mood, Gratitude: gratitude, Note: note, Shared: shared})
}

func (h CLIHandler) Reflection(ctx context.Context, date string) (dto.ReflectionOutput, error) {
	return h.reflections.Get(ctx, date)
}
