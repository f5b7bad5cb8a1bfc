package in

import (
	"context"

	"focusloop/internal/modules/task/dto"
	taskin "focusloop/internal/modules/task/port/in"
)

type CLIHandler struct {
	usecase taskin.Usecase
}

func NewCLIHandler(usecase taskin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) Add(ctx context.Context, title, description, dueDate string) (dto.TaskOutput, error) {
	return h.usecase.Add(ctx, dto.AddInput{Title: title, Description: description, DueDate: dueDate})
}

func (h CLIHandler) List(ctx context.Context) ([]dto.TaskOutput, error) {
	return h.usecase.List(ctx)
}

func (h CLIHandler) Show(ctx context.Context, id string) (dto.TaskOutput, error) {
	return h.usecase.Get(ctx, id)
}

func (h CLIHandler) Done(ctx context.Context, id string) (dto.TaskOutput, error) {
	return h.usecase.MarkDone(ctx, id)
}

func (h CLIHandler) Delete(ctx context.Context, id string) (dto.TaskOutput, error) {
	return h.usecase.Delete(ctx, id)
}

func (h CLIHandler) Restore(ctx context.Context, id string) (dto.TaskOutput, error) {
	return h.usecase.Restore(ctx, id)
}
