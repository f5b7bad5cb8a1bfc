package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"focusloop/internal/modules/focus/domain"
	"focusloop/internal/modules/focus/dto"
	focusin "focusloop/internal/modules/focus/port/in"
	focusout "focusloop/internal/modules/focus/port/out"
	"focusloop/internal/modules/focus/service"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/logging"
)

type Options struct {
	Menu          domain.Menu
	Tickers       clock.TickerFactory
	Logger        *slog.Logger
	CommitTimeout time.Duration
	Sinks         []focusout.OutcomeSink
}

type Interactor struct {
	svc      *service.SessionService
	identity focusout.IdentityProvider
	opts     Options
}

func NewInteractor(svc *service.SessionService, identity focusout.IdentityProvider, opts Options) focusin.Usecase {
	if opts.Logger == nil {
		opts.Logger = logging.Discard()
	}
	return &Interactor{svc: svc, identity: identity, opts: opts}
}

func (i *Interactor) OpenTimer(ctx context.Context, input dto.OpenTimerInput) (focusin.Timer, error) {
	taskID := strings.TrimSpace(input.TaskID)
	if taskID == "" {
		return nil, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	if i.identity == nil {
		return nil, fmt.Errorf("identity provider is not configured")
	}
	userID, err := i.identity.UserID(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	total, err := i.svc.TaskTotal(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("load task %s: %w", taskID, err)
	}
	return NewController(i.svc, ControllerConfig{
		TaskID:        taskID,
		UserID:        userID,
		TotalMinutes:  total,
		Menu:          i.opts.Menu,
		Tickers:       i.opts.Tickers,
		Logger:        i.opts.Logger,
		CommitTimeout: i.opts.CommitTimeout,
		Listeners:     i.listeners(),
	}), nil
}

func (i *Interactor) listeners() []OutcomeListener {
	out := make([]OutcomeListener, 0, len(i.opts.Sinks))
	for _, sink := range i.opts.Sinks {
		sink := sink
		out = append(out, func(ctx context.Context, outcome domain.Outcome) {
			if err := sink.RecordOutcome(ctx, outcome); err != nil {
				i.opts.Logger.Warn("record focus outcome", "session_id", outcome.SessionID, "error", err)
			}
		})
	}
	return out
}

// ListSessions lists the sessions of a task the current user can see.
func (i *Interactor) ListSessions(ctx context.Context, taskID string) ([]dto.SessionOutput, error) {
	taskID = strings.TrimSpace(taskID)
	if _, err := i.svc.TaskTotal(ctx, taskID); err != nil {
		return nil, err
	}
	sessions, err := i.svc.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	out := make([]dto.SessionOutput, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, dto.SessionOutput{
			ID:               s.ID,
			TaskID:           s.TaskID,
			Kind:             string(s.Kind),
			DurationMinutes:  s.DurationMinutes,
			CompletedMinutes: s.CompletedMinutes,
			Completed:        s.Completed,
			StartedAt:        s.StartedAt,
			CompletedAt:      s.CompletedAt,
		})
	}
	return out, nil
}
