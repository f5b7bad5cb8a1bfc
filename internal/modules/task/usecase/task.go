package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"focusloop/internal/modules/task/domain"
	"focusloop/internal/modules/task/dto"
	taskin "focusloop/internal/modules/task/port/in"
	taskout "focusloop/internal/modules/task/port/out"
	"focusloop/internal/modules/task/service"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/logging"
)

type Interactor struct {
	svc      *service.TaskService
	identity taskout.IdentityProvider
	activity taskout.ActivityRecorder
	logger   *slog.Logger
}

func NewInteractor(svc *service.TaskService, identity taskout.IdentityProvider, activity taskout.ActivityRecorder, logger *slog.Logger) taskin.Usecase {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Interactor{svc: svc, identity: identity, activity: activity, logger: logger}
}

func (i *Interactor) Add(ctx context.Context, input dto.AddInput) (dto.TaskOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	task, err := i.svc.Add(ctx, userID, input.Title, input.Description, input.DueDate)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	if i.activity != nil {
		if err := i.activity.TaskCreated(ctx, userID, task.CreatedAt); err != nil {
			i.logger.Warn("record task creation", "task_id", task.ID, "error", err)
		}
	}
	return toOutput(task), nil
}

func (i *Interactor) List(ctx context.Context) ([]dto.TaskOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return nil, err
	}
	tasks, err := i.svc.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.TaskOutput, 0, len(tasks))
	for _, task := range tasks {
		out = append(out, toOutput(task))
	}
	return out, nil
}

func (i *Interactor) Get(ctx context.Context, id string) (dto.TaskOutput, error) {
	task, err := i.owned(ctx, id)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	return toOutput(task), nil
}

func (i *Interactor) MarkDone(ctx context.Context, id string) (dto.TaskOutput, error) {
	task, err := i.owned(ctx, id)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	task, changed, err := i.svc.MarkDone(ctx, task)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	if changed && i.activity != nil {
		if err := i.activity.TaskCompleted(ctx, task.UserID, *task.CompletedAt); err != nil {
			i.logger.Warn("record task completion", "task_id", task.ID, "error", err)
		}
	}
	return toOutput(task), nil
}

func (i *Interactor) Delete(ctx context.Context, id string) (dto.TaskOutput, error) {
	task, err := i.owned(ctx, id)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	if err := i.svc.Delete(ctx, task); err != nil {
		return dto.TaskOutput{}, err
	}
	i.logger.Info("task deleted", "task_id", task.ID)
	return toOutput(task), nil
}

func (i *Interactor) Restore(ctx context.Context, id string) (dto.TaskOutput, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	task, err := i.svc.Restore(ctx, id, userID)
	if err != nil {
		return dto.TaskOutput{}, err
	}
	i.logger.Info("task restored", "task_id", task.ID)
	return toOutput(task), nil
}

func (i *Interactor) TotalFocusMinutes(ctx context.Context, id string) (int, error) {
	task, err := i.owned(ctx, id)
	if err != nil {
		return 0, err
	}
	return task.TotalFocusMinutes, nil
}

func (i *Interactor) IncrementFocusMinutes(ctx context.Context, id string, delta int) (int, error) {
	if _, err := i.owned(ctx, id); err != nil {
		return 0, err
	}
	return i.svc.AddFocusMinutes(ctx, id, delta)
}

// owned loads a task of the current user. Tasks of other users are reported as missing.
func (i *Interactor) owned(ctx context.Context, id string) (domain.Task, error) {
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return domain.Task{}, err
	}
	task, err := i.svc.Get(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	if task.UserID != userID {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, apperrors.ErrNotFound)
	}
	return task, nil
}

func toOutput(task domain.Task) dto.TaskOutput {
	return dto.TaskOutput{
		ID:                task.ID,
		UserID:            task.UserID,
		Title:             task.Title,
		Description:       task.Description,
		Completed:         task.Completed,
		CompletedAt:       task.CompletedAt,
		DueDate:           task.DueDate,
		TotalFocusMinutes: task.TotalFocusMinutes,
		CreatedAt:         task.CreatedAt,
		UpdatedAt:         task.UpdatedAt,
	}
}
