package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"focusloop/internal/modules/focus/domain"
	focusout "focusloop/internal/modules/focus/port/out"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/id"
)

type SessionService struct {
	clock  clock.Clock
	idGen  id.Generator
	store  focusout.SessionStore
	ledger focusout.AccrualLedger
}

func NewSessionService(clock clock.Clock, idGen id.Generator, store focusout.SessionStore, ledger focusout.AccrualLedger) *SessionService {
	return &SessionService{clock: clock, idGen: idGen, store: store, ledger: ledger}
}

// Begin records a new open session.
func (s *SessionService) Begin(ctx context.Context, taskID, userID string, kind domain.Kind, minutes int) (domain.Session, error) {
	session := domain.Session{
		ID:              s.idGen.New(),
		TaskID:          taskID,
		UserID:          userID,
		DurationMinutes: minutes,
		Kind:            kind,
		StartedAt:       s.clock.Now(),
	}
	if err := session.Validate(); err != nil {
		return domain.Session{}, err
	}
	id, err := s.store.Create(ctx, session)
	if err != nil {
		return domain.Session{}, fmt.Errorf("create session: %w", err)
	}
	session.ID = id
	return session, nil
}

// Finish prepares the terminal commit for session. A natural expiry records the full
// duration; a stop records the whole minutes elapsed.
func (s *SessionService) Finish(session domain.Session, remainingSeconds int, natural bool) domain.Commit {
	minutes := domain.ElapsedMinutes(session.DurationMinutes, remainingSeconds)
	if natural {
		minutes = session.DurationMinutes
	}
	return domain.Commit{
		Session: session,
		Terminal: domain.Terminal{
			CompletedMinutes: minutes,
			Completed:        natural,
			CompletedAt:      s.clock.Now(),
		},
		Natural: natural,
	}
}

// Commit performs the outstanding writes of c. The session update and the ledger
// increment are independent and run concurrently; both have finished when Commit
// returns. The returned Commit records which writes succeeded.
func (s *SessionService) Commit(ctx context.Context, c domain.Commit) (domain.Commit, error) {
	if err := c.Terminal.Validate(c.Session.DurationMinutes); err != nil {
		return c, err
	}
	var (
		g          errgroup.Group
		sessionErr error
		ledgerErr  error
		total      int
	)
	if !c.SessionDone {
		g.Go(func() error {
			sessionErr = s.store.Complete(ctx, c.Session.ID, c.Terminal)
			return sessionErr
		})
	}
	if c.NeedsLedger() && !c.LedgerDone {
		g.Go(func() error {
			total, ledgerErr = s.ledger.Increment(ctx, c.Session.TaskID, c.Terminal.CompletedMinutes)
			return ledgerErr
		})
	}
	// Wait reports only the first failure. Each write keeps its own error so the
	// commit can record which half succeeded and a retry repeats only the other.
	_ = g.Wait()

	if !c.SessionDone && sessionErr == nil {
		c.SessionDone = true
	}
	if c.NeedsLedger() && !c.LedgerDone && ledgerErr == nil {
		c.LedgerDone = true
		c.TaskTotal = total
	}
	var errs []error
	if sessionErr != nil {
		errs = append(errs, fmt.Errorf("update session: %w", sessionErr))
	}
	if ledgerErr != nil {
		errs = append(errs, fmt.Errorf("increment focus minutes: %w", ledgerErr))
	}
	return c, errors.Join(errs...)
}

func (s *SessionService) ListByTask(ctx context.Context, taskID string) ([]domain.Session, error) {
	if taskID == "" {
		return nil, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	return s.store.ListByTask(ctx, taskID)
}

func (s *SessionService) TaskTotal(ctx context.Context, taskID string) (int, error) {
	if taskID == "" {
		return 0, fmt.Errorf("task id is required: %w", apperrors.ErrInvalidInput)
	}
	return s.ledger.TotalFocusMinutes(ctx, taskID)
}
