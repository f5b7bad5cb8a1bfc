package out

import (
	"context"
	"time"

	"focusloop/internal/modules/task/domain"
)

type TaskStore interface {
	Insert(ctx context.Context, task domain.Task) error
	FindByID(ctx context.Context, id string) (domain.Task, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Task, error)
	MarkDone(ctx context.Context, id string, at time.Time) error
	// AddFocusMinutes must be evaluated by the store as total = total + delta.
	AddFocusMinutes(ctx context.Context, id string, delta int, at time.Time) (int, error)
	// Delete hides a live task from every other method until it is restored.
	Delete(ctx context.Context, id, userID string, at time.Time) error
	Restore(ctx context.Context, id, userID string, at time.Time) error
}

// ActivityRecorder counts task events toward the owner's daily activity.
type ActivityRecorder interface {
	TaskCreated(ctx context.Context, userID string, at time.Time) error
	TaskCompleted(ctx context.Context, userID string, at time.Time) error
}

type IdentityProvider interface {
	UserID(ctx context.Context) (string, error)
}
