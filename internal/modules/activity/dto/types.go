package dto

import "time"

type FocusInput struct {
	UserID           string
	Kind             string
	CompletedMinutes int
	CompletedAt      time.Time
}

type DayOutput struct {
	Date           string
	TasksCreated   int
	TasksCompleted int
	FocusMinutes   int
	FocusSessions  int
	Breaks         int
}

type StreakOutput struct {
	UserID     string
	Current    int
	Longest    int
	LastActive string
	Today      DayOutput
}

type ReflectionInput struct {
	Mood      string
	Gratitude string
	Note      string
	Shared    bool
}

type ReflectionOutput struct {
	Date           string
	Mood           string
	Gratitude      string
	Note           string
	TasksCompleted int
	Shared         bool
	UpdatedAt      time.Time
}
