package in

import (
	"context"

	"focusloop/internal/modules/focus/dto"
	focusin "focusloop/internal/modules/focus/port/in"
)

type CLIHandler struct {
	usecase focusin.Usecase
}

func NewCLIHandler(usecase focusin.Usecase) CLIHandler {
	return CLIHandler{usecase: usecase}
}

func (h CLIHandler) OpenTimer(ctx context.Context, taskID string) (focusin.Timer, error) {
	return h.usecase.OpenTimer(ctx, dto.OpenTimerInput{TaskID: taskID})
}

func (h CLIHandler) ListSessions(ctx context.Context, taskID string) ([]dto.SessionOutput, error) {
	return h.usecase.ListSessions(ctx, taskID)
}
