package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"focusloop/internal/modules/focus/domain"
	"focusloop/internal/modules/focus/dto"
	"focusloop/internal/modules/focus/service"
	"focusloop/internal/modules/focus/usecase"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type seqID struct{ n atomic.Int64 }

func (s *seqID) New() string { return fmt.Sprintf("sess-%d", s.n.Add(1)) }

type fakeStore struct {
	mu           sync.Mutex
	sessions     map[string]domain.Session
	completes    int
	createErr    error
	completeErrs []error
	block        chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: map[string]domain.Session{}}
}

func (f *fakeStore) Create(_ context.Context, s domain.Session) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.sessions[s.ID] = s
	return s.ID, nil
}

func (f *fakeStore) Complete(ctx context.Context, id string, patch domain.Terminal) error {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.completeErrs) > 0 {
		err := f.completeErrs[0]
		f.completeErrs = f.completeErrs[1:]
		if err != nil {
			return err
		}
	}
	s, ok := f.sessions[id]
	if !ok || s.CompletedAt != nil {
		return apperrors.ErrNotFound
	}
	at := patch.CompletedAt
	s.CompletedMinutes = patch.CompletedMinutes
	s.Completed = patch.Completed
	s.CompletedAt = &at
	f.sessions[id] = s
	f.completes++
	return nil
}

func (f *fakeStore) ListByTask(_ context.Context, taskID string) ([]domain.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Session
	for _, s := range f.sessions {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeStore) get(id string) domain.Session {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sessions[id]
}

func (f *fakeStore) completeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completes
}

type fakeLedger struct {
	mu      sync.Mutex
	totals  map[string]int
	deltas  []int
	incErrs []error
}

func newFakeLedger(taskID string, total int) *fakeLedger {
	return &fakeLedger{totals: map[string]int{taskID: total}}
}

func (f *fakeLedger) TotalFocusMinutes(_ context.Context, taskID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total, ok := f.totals[taskID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	return total, nil
}

func (f *fakeLedger) Increment(_ context.Context, taskID string, minutes int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.incErrs) > 0 {
		err := f.incErrs[0]
		f.incErrs = f.incErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	total, ok := f.totals[taskID]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	f.totals[taskID] = total + minutes
	f.deltas = append(f.deltas, minutes)
	return total + minutes, nil
}

func (f *fakeLedger) snapshot(taskID string) (int, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.totals[taskID], append([]int(nil), f.deltas...)
}

type manualTicker struct {
	ch      chan time.Time
	stopped atomic.Bool
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }
func (m *manualTicker) Stop()               { m.stopped.Store(true) }

// manualTickers hands out tickers whose ticks are delivered by the test.
type manualTickers struct {
	mu      sync.Mutex
	current *manualTicker
	created int
}

func (m *manualTickers) NewTicker(time.Duration) clock.Ticker {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = &manualTicker{ch: make(chan time.Time)}
	m.created++
	return m.current
}

// tick reports whether the controller accepted the tick.
func (m *manualTickers) tick() bool {
	m.mu.Lock()
	t := m.current
	m.mu.Unlock()
	if t == nil {
		return false
	}
	select {
	case t.ch <- time.Time{}:
		return true
	case <-time.After(100 * time.Millisecond):
		return false
	}
}

func (m *manualTickers) stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current == nil || m.current.stopped.Load()
}

func tickN(t *testing.T, tickers *manualTickers, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if !tickers.tick() {
			t.Fatalf("tick %d of %d was not accepted", i+1, n)
		}
	}
}

type harness struct {
	timer    *usecase.Controller
	store    *fakeStore
	ledger   *fakeLedger
	tickers  *manualTickers
	mu       sync.Mutex
	outcomes []domain.Outcome
}

func newHarness(t *testing.T, total int) *harness {
	t.Helper()
	h := &harness{
		store:   newFakeStore(),
		ledger:  newFakeLedger("task-1", total),
		tickers: &manualTickers{},
	}
	svc := service.NewSessionService(fixedClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}, &seqID{}, h.store, h.ledger)
	h.timer = usecase.NewController(svc, usecase.ControllerConfig{
		TaskID:       "task-1",
		UserID:       "user-1",
		TotalMinutes: total,
		Menu:         domain.DefaultMenu(),
		Tickers:      h.tickers,
		Listeners: []usecase.OutcomeListener{func(_ context.Context, o domain.Outcome) {
			h.mu.Lock()
			h.outcomes = append(h.outcomes, o)
			h.mu.Unlock()
		}},
	})
	t.Cleanup(func() { _ = h.timer.Close(context.Background()) })
	return h
}

func (h *harness) recorded() []domain.Outcome {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Outcome(nil), h.outcomes...)
}

func (h *harness) start(t *testing.T, minutes int) dto.StartOutput {
	t.Helper()
	ctx := context.Background()
	if err := h.timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := h.timer.SelectDuration(ctx, minutes); err != nil {
		t.Fatalf("select %d: %v", minutes, err)
	}
	out, err := h.timer.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	return out
}

type snapshotter interface {
	Snapshot(ctx context.Context) (dto.Snapshot, error)
}

func waitForState(t *testing.T, timer snapshotter, want domain.State) dto.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	var last dto.Snapshot
	for time.Now().Before(deadline) {
		snap, err := timer.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("snapshot: %v", err)
		}
		if snap.State == want.String() {
			return snap
		}
		last = snap
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s, last snapshot %+v", want, last)
	return last
}

func TestFocusExpiryAccruesFullDurationAndOffersBreak(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	started := h.start(t, 25)

	tickN(t, h.tickers, 25*60)
	snap := waitForState(t, h.timer, domain.StateConfiguring)

	if snap.Kind != string(domain.KindBreak) || snap.DurationMinutes != 5 {
		t.Fatalf("expected break configuration with 5 minutes preselected, got %+v", snap)
	}
	session := h.store.get(started.SessionID)
	if session.DurationMinutes != 25 || session.CompletedMinutes != 25 || !session.Completed || session.CompletedAt == nil {
		t.Fatalf("unexpected session record %+v", session)
	}
	total, deltas := h.ledger.snapshot("task-1")
	if total != 35 || len(deltas) != 1 || deltas[0] != 25 {
		t.Fatalf("expected one +25 increment to 35, got total=%d deltas=%v", total, deltas)
	}
	if !h.tickers.stopped() {
		t.Fatalf("tick schedule must stop after expiry")
	}
	outcomes := h.recorded()
	if len(outcomes) != 1 || outcomes[0].Kind != domain.KindFocus || outcomes[0].CompletedMinutes != 25 || outcomes[0].TaskTotal != 35 {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestSnapshotsAndCommitsCarryTheTaskTotal(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 10)
	ctx := context.Background()

	h.start(t, 15)
	if snap, _ := h.timer.Snapshot(ctx); snap.TaskTotal != 10 {
		t.Fatalf("running snapshot should show the opening total, got %+v", snap)
	}
	tickN(t, h.tickers, 15*60)
	if snap := waitForState(t, h.timer, domain.StateConfiguring); snap.TaskTotal != 25 {
		t.Fatalf("expiry should publish the new total, got %+v", snap)
	}

	if _, err := h.timer.Start(ctx); err != nil {
		t.Fatalf("start break: %v", err)
	}
	tickN(t, h.tickers, 90)
	out, err := h.timer.Stop(ctx)
	if err != nil {
		t.Fatalf("stop break: %v", err)
	}
	if out.Kind != string(domain.KindBreak) || out.TaskTotal != 25 {
		t.Fatalf("break commit should carry the known total, got %+v", out)
	}

	h.start(t, 15)
	tickN(t, h.tickers, 30)
	out, err = h.timer.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out.CompletedMinutes != 0 || out.TaskTotal != 25 {
		t.Fatalf("zero-minute stop should carry the known total, got %+v", out)
	}
	outcomes := h.recorded()
	if len(outcomes) != 3 || outcomes[1].TaskTotal != 25 || outcomes[2].TaskTotal != 25 {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestPauseResumeStopRoundsDownToZero(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	started := h.start(t, 15)
	ctx := context.Background()

	tickN(t, h.tickers, 3)
	if err := h.timer.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if h.tickers.tick() {
		t.Fatalf("paused controller must not consume ticks")
	}
	if err := h.timer.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	tickN(t, h.tickers, 3)

	out, err := h.timer.Stop(ctx)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out.CompletedMinutes != 0 || out.Completed || out.NextState != domain.StateIdle.String() {
		t.Fatalf("unexpected commit %+v", out)
	}
	session := h.store.get(started.SessionID)
	if session.CompletedMinutes != 0 || session.CompletedAt == nil || session.Completed {
		t.Fatalf("session must be closed with zero minutes, got %+v", session)
	}
	if _, deltas := h.ledger.snapshot("task-1"); len(deltas) != 0 {
		t.Fatalf("zero minutes must not touch the ledger, got %v", deltas)
	}
}

func TestStopAfterSixtySecondsAccruesOneMinute(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 4)
	h.start(t, 45)

	tickN(t, h.tickers, 60)
	out, err := h.timer.Stop(context.Background())
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if out.CompletedMinutes != 1 || out.TaskTotal != 5 {
		t.Fatalf("expected 1 minute and total 5, got %+v", out)
	}
	snap, _ := h.timer.Snapshot(context.Background())
	if snap.State != domain.StateIdle.String() || snap.Kind != string(domain.KindFocus) || snap.DurationMinutes != 0 {
		t.Fatalf("stop must reset to idle without a selection, got %+v", snap)
	}
}

func TestSelectDurationOffMenuKeepsConfiguring(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	ctx := context.Background()
	if err := h.timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	err := h.timer.SelectDuration(ctx, 7)
	if !errors.Is(err, apperrors.ErrInvalidDuration) {
		t.Fatalf("expected invalid duration, got %v", err)
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StateConfiguring.String() {
		t.Fatalf("expected configuring, got %s", snap.State)
	}
	if _, err := h.timer.Start(ctx); !errors.Is(err, apperrors.ErrInvalidDuration) {
		t.Fatalf("start without a selection should fail with invalid duration, got %v", err)
	}
	if count := len(h.store.sessions); count != 0 {
		t.Fatalf("no session should be created, got %d", count)
	}
}

func TestStopRecordsWholeElapsedMinutes(t *testing.T) {
	t.Parallel()
	cases := []struct {
		seconds int
		want    int
	}{
		{seconds: 0, want: 0},
		{seconds: 59, want: 0},
		{seconds: 60, want: 1},
		{seconds: 119, want: 1},
		{seconds: 421, want: 7},
		{seconds: 899, want: 14},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(fmt.Sprintf("%ds", tc.seconds), func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, 0)
			h.start(t, 15)
			tickN(t, h.tickers, tc.seconds)
			out, err := h.timer.Stop(context.Background())
			if err != nil {
				t.Fatalf("stop: %v", err)
			}
			if out.CompletedMinutes != tc.want {
				t.Fatalf("expected %d minutes, got %d", tc.want, out.CompletedMinutes)
			}
			total, _ := h.ledger.snapshot("task-1")
			if total != tc.want {
				t.Fatalf("ledger delta must equal completed minutes, got %d", total)
			}
		})
	}
}

func TestPauseAndResumeAreIdempotent(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	h.start(t, 15)
	ctx := context.Background()
	tickN(t, h.tickers, 10)

	for i := 0; i < 2; i++ {
		if err := h.timer.Pause(ctx); err != nil {
			t.Fatalf("pause %d: %v", i, err)
		}
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StatePaused.String() || snap.RemainingSeconds != 15*60-10 {
		t.Fatalf("unexpected paused snapshot %+v", snap)
	}
	for i := 0; i < 2; i++ {
		if err := h.timer.Resume(ctx); err != nil {
			t.Fatalf("resume %d: %v", i, err)
		}
	}
	tickN(t, h.tickers, 1)
	snap, _ = h.timer.Snapshot(ctx)
	if snap.State != domain.StateRunning.String() || snap.RemainingSeconds != 15*60-11 {
		t.Fatalf("unexpected running snapshot %+v", snap)
	}
}

func TestCommandsOutsideTheirStateAreRejected(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	ctx := context.Background()

	if err := h.timer.Pause(ctx); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("pause in idle: %v", err)
	}
	if _, err := h.timer.Stop(ctx); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("stop in idle: %v", err)
	}
	if err := h.timer.SelectDuration(ctx, 25); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("select in idle: %v", err)
	}
	if _, err := h.timer.Retry(ctx); !errors.Is(err, apperrors.ErrNoPendingCommit) {
		t.Fatalf("retry without pending commit: %v", err)
	}
	h.start(t, 25)
	if err := h.timer.Configure(ctx); !errors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("configure while running: %v", err)
	}
}

func TestTransientLedgerFailureHoldsMinutesUntilRetry(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 3)
	started := h.start(t, 25)
	h.ledger.incErrs = []error{fmt.Errorf("dial: %w", apperrors.ErrTransientStorage)}
	ctx := context.Background()

	tickN(t, h.tickers, 5*60+30)
	_, err := h.timer.Stop(ctx)
	var cerr *dto.CommitError
	if !errors.As(err, &cerr) || !cerr.Retryable || cerr.CompletedMinutes != 5 {
		t.Fatalf("expected retryable commit error with 5 minutes, got %v", err)
	}
	if !errors.Is(err, apperrors.ErrTransientStorage) {
		t.Fatalf("commit error should wrap the storage failure: %v", err)
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StateCommitFailed.String() || !snap.HasPending || snap.PendingMinutes != 5 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if err := h.timer.Configure(ctx); !errors.Is(err, apperrors.ErrPendingCommit) {
		t.Fatalf("configure with pending commit: %v", err)
	}

	out, err := h.timer.Retry(ctx)
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if out.CompletedMinutes != 5 || out.TaskTotal != 8 {
		t.Fatalf("unexpected retry output %+v", out)
	}
	if h.store.completeCount() != 1 {
		t.Fatalf("session update must not be repeated, got %d", h.store.completeCount())
	}
	if _, deltas := h.ledger.snapshot("task-1"); len(deltas) != 1 || deltas[0] != 5 {
		t.Fatalf("expected a single +5 increment, got %v", deltas)
	}
	if s := h.store.get(started.SessionID); s.CompletedMinutes != 5 {
		t.Fatalf("unexpected session %+v", s)
	}
	waitForState(t, h.timer, domain.StateIdle)
}

func TestDiscardDropsPendingCommit(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	h.start(t, 15)
	h.store.completeErrs = []error{apperrors.ErrTransientStorage}
	ctx := context.Background()

	tickN(t, h.tickers, 120)
	if _, err := h.timer.Stop(ctx); err == nil {
		t.Fatalf("expected commit failure")
	}
	if err := h.timer.Discard(ctx); err != nil {
		t.Fatalf("discard: %v", err)
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StateIdle.String() || snap.HasPending {
		t.Fatalf("unexpected snapshot after discard %+v", snap)
	}
	if err := h.timer.Discard(ctx); !errors.Is(err, apperrors.ErrNoPendingCommit) {
		t.Fatalf("second discard: %v", err)
	}
}

func TestMissingTaskIsFatalToTheRun(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	h.start(t, 15)
	h.ledger.incErrs = []error{fmt.Errorf("task gone: %w", apperrors.ErrNotFound)}
	ctx := context.Background()

	tickN(t, h.tickers, 180)
	_, err := h.timer.Stop(ctx)
	var cerr *dto.CommitError
	if !errors.As(err, &cerr) || cerr.Retryable || cerr.CompletedMinutes != 3 {
		t.Fatalf("expected fatal commit error with 3 minutes, got %v", err)
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StateIdle.String() || snap.HasPending || snap.LastError == "" {
		t.Fatalf("fatal failure must force idle and surface the error, got %+v", snap)
	}
	if len(h.recorded()) != 0 {
		t.Fatalf("failed commits must not emit outcomes")
	}
}

func TestCommandsRejectedWhileCommitInFlight(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	h.start(t, 15)
	h.store.block = make(chan struct{})
	ctx := context.Background()
	tickN(t, h.tickers, 90)

	result := make(chan error, 1)
	go func() {
		_, err := h.timer.Stop(ctx)
		result <- err
	}()
	waitForState(t, h.timer, domain.StateTransitioning)

	if err := h.timer.Pause(ctx); !errors.Is(err, apperrors.ErrCommitInFlight) {
		t.Fatalf("pause during commit: %v", err)
	}
	if _, err := h.timer.Stop(ctx); !errors.Is(err, apperrors.ErrCommitInFlight) {
		t.Fatalf("stop during commit: %v", err)
	}
	close(h.store.block)
	if err := <-result; err != nil {
		t.Fatalf("stop: %v", err)
	}
	if total, _ := h.ledger.snapshot("task-1"); total != 1 {
		t.Fatalf("expected exactly one minute accrued, got %d", total)
	}
}

func TestCloseStopsActiveSessionImplicitly(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	started := h.start(t, 25)
	ctx := context.Background()
	tickN(t, h.tickers, 150)
	if err := h.timer.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if err := h.timer.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
	if s := h.store.get(started.SessionID); s.CompletedMinutes != 2 || s.CompletedAt == nil {
		t.Fatalf("close must commit elapsed minutes, got %+v", s)
	}
	if total, _ := h.ledger.snapshot("task-1"); total != 2 {
		t.Fatalf("expected total 2, got %d", total)
	}
	if _, err := h.timer.Snapshot(ctx); !errors.Is(err, apperrors.ErrControllerClosed) {
		t.Fatalf("snapshot after close: %v", err)
	}
	if err := h.timer.Close(ctx); err != nil {
		t.Fatalf("second close should be a no-op: %v", err)
	}
}

func TestBreakExpiryReturnsToIdleAndDismisses(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	h.start(t, 15)
	tickN(t, h.tickers, 15*60)
	waitForState(t, h.timer, domain.StateConfiguring)

	ctx := context.Background()
	if err := h.timer.SelectDuration(ctx, 25); !errors.Is(err, apperrors.ErrInvalidDuration) {
		t.Fatalf("focus duration on break menu: %v", err)
	}
	out, err := h.timer.Start(ctx)
	if err != nil {
		t.Fatalf("start break: %v", err)
	}
	if out.Kind != string(domain.KindBreak) || out.DurationMinutes != 5 {
		t.Fatalf("unexpected break start %+v", out)
	}
	tickN(t, h.tickers, 5*60)
	snap := waitForState(t, h.timer, domain.StateIdle)
	if !snap.Dismissed || snap.Kind != string(domain.KindFocus) {
		t.Fatalf("break expiry must dismiss and reset to focus, got %+v", snap)
	}
	if _, deltas := h.ledger.snapshot("task-1"); len(deltas) != 1 || deltas[0] != 15 {
		t.Fatalf("breaks must not accrue, got %v", deltas)
	}
	outcomes := h.recorded()
	if len(outcomes) != 2 || !outcomes[1].Dismiss || outcomes[1].Kind != domain.KindBreak {
		t.Fatalf("unexpected outcomes %+v", outcomes)
	}
}

func TestSubscribeStreamsSnapshotsUntilClose(t *testing.T) {
	t.Parallel()
	h := newHarness(t, 0)
	ch, cancel := h.timer.Subscribe()
	defer cancel()

	if err := h.timer.Configure(context.Background()); err != nil {
		t.Fatalf("configure: %v", err)
	}
	select {
	case snap := <-ch:
		if snap.State != domain.StateConfiguring.String() || snap.TaskID != "task-1" {
			t.Fatalf("unexpected snapshot %+v", snap)
		}
	case <-time.After(time.Second):
		t.Fatalf("no snapshot published")
	}
	if err := h.timer.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("subscription not closed")
		}
	}
}

func TestConcurrentSessionsOnOneTaskBothAccrue(t *testing.T) {
	t.Parallel()
	store := newFakeStore()
	ledger := newFakeLedger("task-1", 0)
	svc := service.NewSessionService(fixedClock{now: time.Now().UTC()}, &seqID{}, store, ledger)

	var wg sync.WaitGroup
	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		tickers := &manualTickers{}
		timer := usecase.NewController(svc, usecase.ControllerConfig{TaskID: "task-1", UserID: "u", Tickers: tickers})
		wg.Add(1)
		go func() {
			defer wg.Done()
			ctx := context.Background()
			if err := timer.Configure(ctx); err != nil {
				errs <- err
				return
			}
			if err := timer.SelectDuration(ctx, 15); err != nil {
				errs <- err
				return
			}
			if _, err := timer.Start(ctx); err != nil {
				errs <- err
				return
			}
			for j := 0; j < 120; j++ {
				tickers.tick()
			}
			if _, err := timer.Stop(ctx); err != nil {
				errs <- err
				return
			}
			errs <- timer.Close(ctx)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("session: %v", err)
		}
	}
	if total, deltas := ledger.snapshot("task-1"); total != 4 || len(deltas) != 2 {
		t.Fatalf("expected both sessions to accrue, got total=%d deltas=%v", total, deltas)
	}
}

func TestStartFailureKeepsOrDropsConfiguration(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := newHarness(t, 0)
	h.store.createErr = fmt.Errorf("database is locked: %w", apperrors.ErrTransientStorage)
	if err := h.timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := h.timer.SelectDuration(ctx, 25); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := h.timer.Start(ctx); !errors.Is(err, apperrors.ErrTransientStorage) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	snap, _ := h.timer.Snapshot(ctx)
	if snap.State != domain.StateConfiguring.String() || snap.DurationMinutes != 25 || snap.LastError == "" {
		t.Fatalf("transient create failure should keep the selection, got %+v", snap)
	}
	if h.tickers.created != 0 {
		t.Fatalf("no tick schedule should exist before a session is recorded")
	}

	fatal := newHarness(t, 0)
	fatal.store.createErr = fmt.Errorf("bad row: %w", apperrors.ErrValidation)
	if err := fatal.timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := fatal.timer.SelectDuration(ctx, 15); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := fatal.timer.Start(ctx); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("expected validation failure, got %v", err)
	}
	waitForState(t, fatal.timer, domain.StateIdle)
}
