package service

import (
	"context"
	"fmt"
	"strings"

	"focusloop/internal/modules/task/domain"
	taskout "focusloop/internal/modules/task/port/out"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/id"
)

type TaskService struct {
	clock clock.Clock
	idGen id.Generator
	store taskout.TaskStore
}

func NewTaskService(clock clock.Clock, idGen id.Generator, store taskout.TaskStore) *TaskService {
	return &TaskService{clock: clock, idGen: idGen, store: store}
}

func (s *TaskService) Add(ctx context.Context, userID, title, description, dueDate string) (domain.Task, error) {
	now := s.clock.Now()
	task := domain.Task{
		ID:          s.idGen.New(),
		UserID:      userID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		DueDate:     strings.TrimSpace(dueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if task.DueDate == "" {
		task.DueDate = now.Format(domain.DueDateLayout)
	}
	if err := task.Validate(); err != nil {
		return domain.Task{}, err
	}
	if err := s.store.Insert(ctx, task); err != nil {
		return domain.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return task, nil
}

func (s *TaskService) Get(ctx context.Context, id string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	return s.store.FindByID(ctx, id)
}

func (s *TaskService) List(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.store.ListByUser(ctx, userID)
}

// MarkDone completes the task. Completing an already completed task changes nothing.
func (s *TaskService) MarkDone(ctx context.Context, task domain.Task) (domain.Task, bool, error) {
	if task.Completed {
		return task, false, nil
	}
	now := s.clock.Now()
	if err := s.store.MarkDone(ctx, task.ID, now); err != nil {
		return domain.Task{}, false, fmt.Errorf("complete task: %w", err)
	}
	task.Completed = true
	task.CompletedAt = &now
	task.UpdatedAt = now
	return task, true, nil
}

func (s *TaskService) Delete(ctx context.Context, task domain.Task) error {
	if err := s.store.Delete(ctx, task.ID, task.UserID, s.clock.Now()); err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

func (s *TaskService) Restore(ctx context.Context, id, userID string) (domain.Task, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Task{}, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	if err := s.store.Restore(ctx, id, userID, s.clock.Now()); err != nil {
		return domain.Task{}, fmt.Errorf("restore task: %w", err)
	}
	return s.store.FindByID(ctx, id)
}

func (s *TaskService) AddFocusMinutes(ctx context.Context, id string, delta int) (int, error) {
	if strings.TrimSpace(id) == "" {
		return 0, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	if delta < 0 {
		return 0, fmt.Errorf("focus minutes delta %d is negative: %w", delta, apperrors.ErrValidation)
	}
	return s.store.AddFocusMinutes(ctx, id, delta, s.clock.Now())
}
