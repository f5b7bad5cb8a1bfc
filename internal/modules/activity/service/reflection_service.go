package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"focusloop/internal/modules/activity/domain"
	activityout "focusloop/internal/modules/activity/port/out"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
)

type ReflectionService struct {
	clock       clock.Clock
	days        activityout.DayStore
	reflections activityout.ReflectionStore
	loc         *time.Location
}

func NewReflectionService(clock clock.Clock, days activityout.DayStore, reflections activityout.ReflectionStore, loc *time.Location) *ReflectionService {
	if loc == nil {
		loc = time.UTC
	}
	return &ReflectionService{clock: clock, days: days, reflections: reflections, loc: loc}
}

// SaveToday stamps the reflection with today's date and the number of tasks the
// user completed today. A second save on the same day keeps the first CreatedAt.
func (s *ReflectionService) SaveToday(ctx context.Context, userID string, mood domain.Mood, gratitude, note string, shared bool) (domain.Reflection, error) {
	now := s.clock.Now()
	today := now.In(s.loc).Format(domain.DateLayout)
	completed, err := s.completedOn(ctx, userID, today)
	if err != nil {
		return domain.Reflection{}, err
	}
	r := domain.Reflection{
		UserID:         userID,
		Date:           today,
		Mood:           domain.Mood(strings.ToLower(strings.TrimSpace(string(mood)))),
		Gratitude:      strings.TrimSpace(gratitude),
		Note:           strings.TrimSpace(note),
		TasksCompleted: completed,
		Shared:         shared,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := r.Validate(); err != nil {
		return domain.Reflection{}, err
	}
	if prev, err := s.reflections.Find(ctx, userID, today); err == nil {
		r.CreatedAt = prev.CreatedAt
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return domain.Reflection{}, err
	}
	if err := s.reflections.Save(ctx, r); err != nil {
		return domain.Reflection{}, fmt.Errorf("save reflection: %w", err)
	}
	return r, nil
}

func (s *ReflectionService) Get(ctx context.Context, userID, date string) (domain.Reflection, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		date = s.clock.Now().In(s.loc).Format(domain.DateLayout)
	}
	if _, err := time.Parse(domain.DateLayout, date); err != nil {
		return domain.Reflection{}, fmt.Errorf("date %q must be YYYY-MM-DD: %w", date, apperrors.ErrInvalidInput)
	}
	return s.reflections.Find(ctx, userID, date)
}

func (s *ReflectionService) completedOn(ctx context.Context, userID, date string) (int, error) {
	days, err := s.days.ListByUser(ctx, userID, 0)
	if err != nil {
		return 0, err
	}
	for _, d := range days {
		if d.Date == date {
			return d.TasksCompleted, nil
		}
	}
	return 0, nil
}
