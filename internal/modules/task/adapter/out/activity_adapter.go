package out

import (
	"context"
	"time"

	activityin "focusloop/internal/modules/activity/port/in"
	taskout "focusloop/internal/modules/task/port/out"
)

type ActivityAdapter struct {
	activity activityin.Usecase
}

func NewActivityAdapter(activity activityin.Usecase) taskout.ActivityRecorder {
	return &ActivityAdapter{activity: activity}
}

func (a *ActivityAdapter) TaskCreated(ctx context.Context, userID string, at time.Time) error {
	return a.activity.RecordTaskCreated(ctx, userID, at)
}

func (a *ActivityAdapter) TaskCompleted(ctx context.Context, userID string, at time.Time) error {
	return a.activity.RecordTaskCompleted(ctx, userID, at)
}
