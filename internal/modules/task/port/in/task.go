package in

import (
	"context"

	"focusloop/internal/modules/task/dto"
)

type Usecase interface {
	Add(ctx context.Context, input dto.AddInput) (dto.TaskOutput, error)
	List(ctx context.Context) ([]dto.TaskOutput, error)
	Get(ctx context.Context, id string) (dto.TaskOutput, error)
	MarkDone(ctx context.Context, id string) (dto.TaskOutput, error)
	Delete(ctx context.Context, id string) (dto.TaskOutput, error)
	// Restore undoes Delete.
	Restore(ctx context.Context, id string) (dto.TaskOutput, error)
	TotalFocusMinutes(ctx context.Context, id string) (int, error)
	// IncrementFocusMinutes atomically adds delta to the task's accrual and returns the new total.
	IncrementFocusMinutes(ctx context.Context, id string, delta int) (int, error)
}
