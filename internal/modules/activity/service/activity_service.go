package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"focusloop/internal/modules/activity/domain"
	activityout "focusloop/internal/modules/activity/port/out"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
)

type ActivityService struct {
	clock clock.Clock
	store activityout.DayStore
	loc   *time.Location
}

// NewActivityService buckets events into calendar days of loc.
func NewActivityService(clock clock.Clock, store activityout.DayStore, loc *time.Location) *ActivityService {
	if loc == nil {
		loc = time.UTC
	}
	return &ActivityService{clock: clock, store: store, loc: loc}
}

func (s *ActivityService) Record(ctx context.Context, userID string, at time.Time, delta domain.Delta) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("user id is required: %w", apperrors.ErrInvalidInput)
	}
	if err := delta.Validate(); err != nil {
		return err
	}
	if delta.Empty() {
		return nil
	}
	if at.IsZero() {
		at = s.clock.Now()
	}
	return s.store.Add(ctx, userID, s.date(at), delta)
}

func (s *ActivityService) Streak(ctx context.Context, userID string) (domain.Streak, domain.Day, error) {
	days, err := s.store.ListByUser(ctx, userID, 0)
	if err != nil {
		return domain.Streak{}, domain.Day{}, err
	}
	today := s.date(s.clock.Now())
	streak, err := domain.ComputeStreak(days, today)
	if err != nil {
		return domain.Streak{}, domain.Day{}, err
	}
	current := domain.Day{UserID: userID, Date: today}
	for _, d := range days {
		if d.Date == today {
			current = d
			break
		}
	}
	return streak, current, nil
}

func (s *ActivityService) Days(ctx context.Context, userID string, limit int) ([]domain.Day, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

func (s *ActivityService) date(t time.Time) string {
	return t.In(s.loc).Format(domain.DateLayout)
}
