package in

import (
	"context"

	"focusloop/internal/modules/focus/dto"
)

// Timer drives one focus/break run bound to a single task.
type Timer interface {
	Info() dto.TimerInfo
	Configure(ctx context.Context) error
	SelectDuration(ctx context.Context, minutes int) error
	Start(ctx context.Context) (dto.StartOutput, error)
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	Stop(ctx context.Context) (dto.CommitOutput, error)
	Retry(ctx context.Context) (dto.CommitOutput, error)
	Discard(ctx context.Context) error
	Snapshot(ctx context.Context) (dto.Snapshot, error)
	Subscribe() (<-chan dto.Snapshot, func())
	Close(ctx context.Context) error
}

type Usecase interface {
	OpenTimer(ctx context.Context, input dto.OpenTimerInput) (Timer, error)
	ListSessions(ctx context.Context, taskID string) ([]dto.SessionOutput, error)
}
