package usecase

import (
	"context"

	"focusloop/internal/modules/activity/domain"
	"focusloop/internal/modules/activity/dto"
	activityin "focusloop/internal/modules/activity/port/in"
	activityout "focusloop/internal/modules/activity/port/out"
	"focusloop/internal/modules/activity/service"
)

type ReflectionInteractor struct {
	svc      *service.ReflectionService
	identity activityout.IdentityProvider
}

func NewReflectionInteractor(svc *service.ReflectionService, identity activityout.IdentityProvider) activityin.Reflections {
	return &ReflectionInteractor{svc: svc, identity: identity}
}

func (i *ReflectionInteractor) SaveToday(ctx context.Context, input dto.ReflectionInput) (dto.ReflectionOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return dto.ReflectionOutput{}, err
	}
	r, err := i.svc.SaveToday(ctx, userID, domain.Mood(input.Mood), input.Gratitude, input.Note, input.Shared)
	if err != nil {
		return dto.ReflectionOutput{}, err
	}
	return toReflectionOutput(r), nil
}

func (i *ReflectionInteractor) Get(ctx context.Context, date string) (dto.ReflectionOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return dto.ReflectionOutput{}, err
	}
	r, err := i.svc.Get(ctx, userID, date)
	if err != nil {
		return dto.ReflectionOutput{}, err
	}
	return toReflectionOutput(r), nil
}

func toReflectionOutput(r domain.Reflection) dto.ReflectionOutput {
	return dto.ReflectionOutput{
		Date:           r.Date,
		Mood:           string(r.Mood),
		Gratitude:      r.Gratitude,
		Note:           r.Note,
		TasksCompleted: r.TasksCompleted,
		Shared:         r.Shared,
		UpdatedAt:      r.UpdatedAt,
	}
}
