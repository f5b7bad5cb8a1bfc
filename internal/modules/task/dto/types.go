package dto

import "time"

type AddInput struct {
	Title       string
	Description string
	DueDate     string
}

type TaskOutput struct {
	ID                string
	UserID            string
	Title             string
	Description       string
	Completed         bool
	CompletedAt       *time.Time
	DueDate           string
	TotalFocusMinutes int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
