package domain

import (
	"fmt"
	"slices"

	apperrors "focusloop/internal/platform/errors"
)

type Kind string

const (
	KindFocus Kind = "focus"
	KindBreak Kind = "break"
)

func (k Kind) Validate() error {
	switch k {
	case KindFocus, KindBreak:
		return nil
	default:
		return fmt.Errorf("unsupported session type %q: %w", string(k), apperrors.ErrValidation)
	}
}

// Menu lists the durations, in minutes, that may be selected for each kind.
type Menu struct {
	Focus        []int
	Break        []int
	DefaultBreak int
}

func DefaultMenu() Menu {
	return Menu{
		Focus:        []int{15, 25, 45, 60},
		Break:        []int{5, 10, 15},
		DefaultBreak: 5,
	}
}

func (m Menu) Options(kind Kind) []int {
	if kind == KindBreak {
		return m.Break
	}
	return m.Focus
}

func (m Menu) Allows(kind Kind, minutes int) error {
	if minutes <= 0 || !slices.Contains(m.Options(kind), minutes) {
		return fmt.Errorf("%d minutes is not on the %s menu %v: %w", minutes, kind, m.Options(kind), apperrors.ErrInvalidDuration)
	}
	return nil
}
