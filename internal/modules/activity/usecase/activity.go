package usecase

import (
	"context"
	"fmt"
	"time"

	"focusloop/internal/modules/activity/domain"
	"focusloop/internal/modules/activity/dto"
	activityin "focusloop/internal/modules/activity/port/in"
	activityout "focusloop/internal/modules/activity/port/out"
	"focusloop/internal/modules/activity/service"
	apperrors "focusloop/internal/platform/errors"
)

type Interactor struct {
	svc      *service.ActivityService
	identity activityout.IdentityProvider
}

func NewInteractor(svc *service.ActivityService, identity activityout.IdentityProvider) activityin.Usecase {
	return &Interactor{svc: svc, identity: identity}
}

func (i *Interactor) RecordTaskCreated(ctx context.Context, userID string, at time.Time) error {
	return i.svc.Record(ctx, userID, at, domain.Delta{TasksCreated: 1})
}

func (i *Interactor) RecordTaskCompleted(ctx context.Context, userID string, at time.Time) error {
	return i.svc.Record(ctx, userID, at, domain.Delta{TasksCompleted: 1})
}

func (i *Interactor) RecordFocus(ctx context.Context, input dto.FocusInput) error {
	var delta domain.Delta
	switch input.Kind {
	case "focus":
		delta = domain.Delta{FocusMinutes: input.CompletedMinutes, FocusSessions: 1}
	case "break":
		delta = domain.Delta{Breaks: 1}
	default:
		return fmt.Errorf("unknown session type %q: %w", input.Kind, apperrors.ErrInvalidInput)
	}
	return i.svc.Record(ctx, input.UserID, input.CompletedAt, delta)
}

func (i *Interactor) Streak(ctx context.Context) (dto.StreakOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return dto.StreakOutput{}, err
	}
	streak, today, err := i.svc.Streak(ctx, userID)
	if err != nil {
		return dto.StreakOutput{}, err
	}
	return dto.StreakOutput{
		UserID:     userID,
		Current:    streak.Current,
		Longest:    streak.Longest,
		LastActive: streak.LastActive,
		Today:      toDayOutput(today),
	}, nil
}

func (i *Interactor) Days(ctx context.Context, limit int) ([]dto.DayOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return nil, err
	}
	days, err := i.svc.Days(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]dto.DayOutput, 0, len(days))
	for _, d := range days {
		out = append(out, toDayOutput(d))
	}
	return out, nil
}

func toDayOutput(d domain.Day) dto.DayOutput {
	return dto.DayOutput{
		Date:           d.Date,
		TasksCreated:   d.TasksCreated,
		TasksCompleted: d.TasksCompleted,
		FocusMinutes:   d.FocusMinutes,
		FocusSessions:  d.FocusSessions,
		Breaks:         d.Breaks,
	}
}
