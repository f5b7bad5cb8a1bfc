package domain

import (
	"fmt"
	"sort"
	"time"

	apperrors "focusloop/internal/platform/errors"
)

const DateLayout = "2006-01-02"

// Day aggregates one user's activity on one calendar date.
type Day struct {
	UserID         string
	Date           string
	TasksCreated   int
	TasksCompleted int
	FocusMinutes   int
	FocusSessions  int
	Breaks         int
}

// Active reports whether the day counts toward a streak: something was finished or focused on.
func (d Day) Active() bool {
	return d.TasksCompleted > 0 || d.FocusMinutes > 0
}

// Delta is added onto a Day; every field must be non-negative.
type Delta struct {
	TasksCreated   int
	TasksCompleted int
	FocusMinutes   int
	FocusSessions  int
	Breaks         int
}

func (d Delta) Validate() error {
	if d.TasksCreated < 0 || d.TasksCompleted < 0 || d.FocusMinutes < 0 || d.FocusSessions < 0 || d.Breaks < 0 {
		return fmt.Errorf("activity delta %+v has negative counts: %w", d, apperrors.ErrValidation)
	}
	return nil
}

func (d Delta) Empty() bool {
	return d == Delta{}
}

type Streak struct {
	Current    int
	Longest    int
	LastActive string
}

// ComputeStreak derives streaks from the active days. The current streak is the run
// ending today, or yesterday when today has no activity yet.
func ComputeStreak(days []Day, today string) (Streak, error) {
	ref, err := time.Parse(DateLayout, today)
	if err != nil {
		return Streak{}, fmt.Errorf("parse date %q: %w", today, apperrors.ErrInvalidInput)
	}
	var dates []time.Time
	for _, d := range days {
		if !d.Active() {
			continue
		}
		t, err := time.Parse(DateLayout, d.Date)
		if err != nil {
			return Streak{}, fmt.Errorf("parse activity date %q: %w", d.Date, apperrors.ErrValidation)
		}
		if t.After(ref) {
			continue
		}
		dates = append(dates, t)
	}
	if len(dates) == 0 {
		return Streak{}, nil
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	streak := Streak{LastActive: dates[len(dates)-1].Format(DateLayout)}
	run := 0
	var prev time.Time
	for i, t := range dates {
		switch {
		case i == 0:
			run = 1
		case t.Equal(prev):
			continue
		case t.Equal(prev.AddDate(0, 0, 1)):
			run++
		default:
			run = 1
		}
		prev = t
		if run > streak.Longest {
			streak.Longest = run
		}
	}
	if prev.Equal(ref) || prev.Equal(ref.AddDate(0, 0, -1)) {
		streak.Current = run
	}
	return streak, nil
}
