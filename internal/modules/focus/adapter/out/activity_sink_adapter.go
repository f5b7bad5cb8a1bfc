package out

import (
	"context"

	activitydto "focusloop/internal/modules/activity/dto"
	activityin "focusloop/internal/modules/activity/port/in"
	"focusloop/internal/modules/focus/domain"
	focusout "focusloop/internal/modules/focus/port/out"
)

// ActivitySink feeds committed sessions into the owner's daily activity.
type ActivitySink struct {
	activity activityin.Usecase
}

func NewActivitySink(activity activityin.Usecase) focusout.OutcomeSink {
	return &ActivitySink{activity: activity}
}

func (s *ActivitySink) RecordOutcome(ctx context.Context, outcome domain.Outcome) error {
	return s.activity.RecordFocus(ctx, activitydto.FocusInput{
		UserID:           outcome.UserID,
		Kind:             string(outcome.Kind),
		CompletedMinutes: outcome.CompletedMinutes,
		CompletedAt:      outcome.CompletedAt,
	})
}
