package out

import (
	"context"

	"focusloop/internal/modules/focus/domain"
)

type SessionStore interface {
	Create(ctx context.Context, session domain.Session) (string, error)
	// Complete applies the terminal patch to an open session. It fails with
	// ErrNotFound when no open session with that id exists.
	Complete(ctx context.Context, id string, patch domain.Terminal) error
	ListByTask(ctx context.Context, taskID string) ([]domain.Session, error)
}

// AccrualLedger is the per-task focused-minutes counter. Increment must be an atomic
// add at the storage boundary and returns the new total.
type AccrualLedger interface {
	TotalFocusMinutes(ctx context.Context, taskID string) (int, error)
	Increment(ctx context.Context, taskID string, minutes int) (int, error)
}

type IdentityProvider interface {
	UserID(ctx context.Context) (string, error)
}

// OutcomeSink receives every committed session.
type OutcomeSink interface {
	RecordOutcome(ctx context.Context, outcome domain.Outcome) error
}
