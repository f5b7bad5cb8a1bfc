package out

import (
	"context"

	"focusloop/internal/modules/activity/domain"
)

type DayStore interface {
	// Add upserts the day row, adding delta onto the stored counters.
	Add(ctx context.Context, userID, date string, delta domain.Delta) error
	// ListByUser returns the user's days, newest first. A limit <= 0 returns all of them.
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.Day, error)
}

type ReflectionStore interface {
	// Save inserts the reflection or replaces the one stored for the same user and date.
	Save(ctx context.Context, reflection domain.Reflection) error
	Find(ctx context.Context, userID, date string) (domain.Reflection, error)
}

type IdentityProvider interface {
	UserID(ctx context.Context) (string, error)
}
