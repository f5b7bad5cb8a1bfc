package domain

import (
	"fmt"

	apperrors "focusloop/internal/platform/errors"
)

// SessionClock is a countdown with one-second resolution. It only tracks remaining
// time; the caller decides when a second has passed and calls Tick.
type SessionClock struct {
	total     int
	remaining int
	running   bool
	expired   bool
}

func (c *SessionClock) Arm(totalSeconds int) error {
	if totalSeconds <= 0 {
		return fmt.Errorf("clock needs a positive duration, got %ds: %w", totalSeconds, apperrors.ErrInvalidDuration)
	}
	c.total = totalSeconds
	c.remaining = totalSeconds
	c.running = false
	c.expired = false
	return nil
}

func (c *SessionClock) Resume() {
	if c.total == 0 || c.expired {
		return
	}
	c.running = true
}

func (c *SessionClock) Pause() {
	c.running = false
}

// Tick consumes one second. It returns true exactly once, on the tick that reaches zero.
func (c *SessionClock) Tick() bool {
	if !c.running || c.expired {
		return false
	}
	c.remaining--
	if c.remaining > 0 {
		return false
	}
	c.remaining = 0
	c.running = false
	c.expired = true
	return true
}

func (c *SessionClock) Remaining() int { return c.remaining }
func (c *SessionClock) Total() int     { return c.total }
func (c *SessionClock) Running() bool  { return c.running }
func (c *SessionClock) Expired() bool  { return c.expired }

// Elapsed is the number of seconds consumed since Arm.
func (c *SessionClock) Elapsed() int { return c.total - c.remaining }
