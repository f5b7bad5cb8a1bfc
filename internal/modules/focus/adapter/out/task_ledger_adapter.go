package out

import (
	"context"

	focusout "focusloop/internal/modules/focus/port/out"
	taskin "focusloop/internal/modules/task/port/in"
)

// TaskLedgerAdapter exposes the task module's focus-minutes counter as the accrual ledger.
type TaskLedgerAdapter struct {
	tasks taskin.Usecase
}

func NewTaskLedgerAdapter(tasks taskin.Usecase) focusout.AccrualLedger {
	return &TaskLedgerAdapter{tasks: tasks}
}

func (a *TaskLedgerAdapter) TotalFocusMinutes(ctx context.Context, taskID string) (int, error) {
	return a.tasks.TotalFocusMinutes(ctx, taskID)
}

func (a *TaskLedgerAdapter) Increment(ctx context.Context, taskID string, minutes int) (int, error) {
	return a.tasks.IncrementFocusMinutes(ctx, taskID, minutes)
}
