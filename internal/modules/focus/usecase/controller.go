package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"focusloop/internal/modules/focus/domain"
	"focusloop/internal/modules/focus/dto"
	focusin "focusloop/internal/modules/focus/port/in"
	"focusloop/internal/modules/focus/service"
	"focusloop/internal/platform/clock"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/logging"
)

const (
	defaultCommitTimeout = 30 * time.Second
	subscriberBuffer     = 16
)

// OutcomeListener is called on the controller goroutine after each successful commit.
type OutcomeListener func(ctx context.Context, outcome domain.Outcome)

type ControllerConfig struct {
	TaskID        string
	UserID        string
	TotalMinutes  int
	Menu          domain.Menu
	Tickers       clock.TickerFactory
	Logger        *slog.Logger
	CommitTimeout time.Duration
	Listeners     []OutcomeListener
}

// Controller is the focus session state machine. A single goroutine owns all run
// state; commands, clock ticks and commit results are serialized through it.
type Controller struct {
	svc           *service.SessionService
	info          dto.TimerInfo
	menu          domain.Menu
	tickers       clock.TickerFactory
	logger        *slog.Logger
	commitTimeout time.Duration
	listeners     []OutcomeListener

	cmds    chan command
	commits chan commitResult
	done    chan struct{}

	// owned by the loop goroutine
	state     domain.State
	kind      domain.Kind
	selected  int
	timer     domain.SessionClock
	ticker    clock.Ticker
	session   *domain.Session
	pending   *domain.Commit
	waiters   []chan reply
	dismissed bool
	lastErr   error
	closing   bool
	total     int

	mu      sync.Mutex
	subs    map[int]chan dto.Snapshot
	nextSub int
	closed  bool
}

type op int

const (
	opConfigure op = iota
	opSelect
	opStart
	opPause
	opResume
	opStop
	opRetry
	opDiscard
	opSnapshot
	opClose
)

type command struct {
	op      op
	minutes int
	ctx     context.Context
	reply   chan reply
}

type reply struct {
	start    dto.StartOutput
	commit   dto.CommitOutput
	snapshot dto.Snapshot
	err      error
}

type commitResult struct {
	commit domain.Commit
	err    error
}

func NewController(svc *service.SessionService, cfg ControllerConfig) *Controller {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}
	tickers := cfg.Tickers
	if tickers == nil {
		tickers = clock.SystemTickers{}
	}
	timeout := cfg.CommitTimeout
	if timeout <= 0 {
		timeout = defaultCommitTimeout
	}
	menu := cfg.Menu
	if len(menu.Focus) == 0 || len(menu.Break) == 0 {
		menu = domain.DefaultMenu()
	}
	c := &Controller{
		svc: svc,
		info: dto.TimerInfo{
			TaskID:            cfg.TaskID,
			UserID:            cfg.UserID,
			TotalFocusMinutes: cfg.TotalMinutes,
			FocusMenu:         append([]int(nil), menu.Focus...),
			BreakMenu:         append([]int(nil), menu.Break...),
		},
		menu:          menu,
		tickers:       tickers,
		logger:        logger.With("task_id", cfg.TaskID),
		commitTimeout: timeout,
		listeners:     cfg.Listeners,
		cmds:          make(chan command),
		commits:       make(chan commitResult, 1),
		done:          make(chan struct{}),
		state:         domain.StateIdle,
		kind:          domain.KindFocus,
		total:         cfg.TotalMinutes,
		subs:          map[int]chan dto.Snapshot{},
	}
	go func() {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("focus controller panic", "error", r, "stack", string(debug.Stack()))
			}
		}()
		c.loop()
	}()
	return c
}

func (c *Controller) Info() dto.TimerInfo { return c.info }

func (c *Controller) Configure(ctx context.Context) error {
	_, err := c.send(ctx, command{op: opConfigure})
	return err
}

func (c *Controller) SelectDuration(ctx context.Context, minutes int) error {
	_, err := c.send(ctx, command{op: opSelect, minutes: minutes})
	return err
}

func (c *Controller) Start(ctx context.Context) (dto.StartOutput, error) {
	r, err := c.send(ctx, command{op: opStart})
	return r.start, err
}

func (c *Controller) Pause(ctx context.Context) error {
	_, err := c.send(ctx, command{op: opPause})
	return err
}

func (c *Controller) Resume(ctx context.Context) error {
	_, err := c.send(ctx, command{op: opResume})
	return err
}

func (c *Controller) Stop(ctx context.Context) (dto.CommitOutput, error) {
	r, err := c.send(ctx, command{op: opStop})
	return r.commit, err
}

func (c *Controller) Retry(ctx context.Context) (dto.CommitOutput, error) {
	r, err := c.send(ctx, command{op: opRetry})
	return r.commit, err
}

func (c *Controller) Discard(ctx context.Context) error {
	_, err := c.send(ctx, command{op: opDiscard})
	return err
}

func (c *Controller) Snapshot(ctx context.Context) (dto.Snapshot, error) {
	r, err := c.send(ctx, command{op: opSnapshot})
	return r.snapshot, err
}

// Close cancels the tick schedule and stops an active session implicitly. If that
// commit fails with a retryable error the controller stays open in commit_failed.
func (c *Controller) Close(ctx context.Context) error {
	_, err := c.send(ctx, command{op: opClose})
	if errors.Is(err, apperrors.ErrControllerClosed) {
		return nil
	}
	return err
}

// Subscribe returns a stream of snapshots. Slow readers only miss intermediate frames.
func (c *Controller) Subscribe() (<-chan dto.Snapshot, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan dto.Snapshot, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	key := c.nextSub
	c.nextSub++
	c.subs[key] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[key]; ok {
				delete(c.subs, key)
				close(sub)
			}
		})
	}
}

func (c *Controller) send(ctx context.Context, cmd command) (reply, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.ctx = ctx
	cmd.reply = make(chan reply, 1)
	select {
	case c.cmds <- cmd:
	case <-c.done:
		return reply{}, apperrors.ErrControllerClosed
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
	select {
	case r := <-cmd.reply:
		return r, r.err
	case <-ctx.Done():
		return reply{}, ctx.Err()
	}
}

func (c *Controller) loop() {
	defer c.shutdown()
	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.C()
		}
		select {
		case cmd := <-c.cmds:
			c.handle(cmd)
		case <-tick:
			c.handleTick()
		case res := <-c.commits:
			c.finishCommit(res)
		}
		if c.closing && c.state != domain.StateTransitioning {
			return
		}
	}
}

func (c *Controller) shutdown() {
	c.stopTicker()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for key, ch := range c.subs {
		delete(c.subs, key)
		close(ch)
	}
	close(c.done)
}

func (c *Controller) handle(cmd command) {
	if c.state == domain.StateTransitioning {
		switch cmd.op {
		case opSnapshot:
			cmd.reply <- reply{snapshot: c.snapshot()}
		case opClose:
			c.closing = true
			c.waiters = append(c.waiters, cmd.reply)
		default:
			cmd.reply <- reply{err: apperrors.ErrCommitInFlight}
		}
		return
	}
	if c.state == domain.StateCommitFailed {
		switch cmd.op {
		case opRetry, opDiscard, opSnapshot, opClose:
		default:
			cmd.reply <- reply{err: c.pendingError(apperrors.ErrPendingCommit)}
			return
		}
	}

	switch cmd.op {
	case opConfigure:
		cmd.reply <- reply{err: c.configure()}
	case opSelect:
		cmd.reply <- reply{err: c.selectDuration(cmd.minutes)}
	case opStart:
		out, err := c.start(cmd.ctx)
		cmd.reply <- reply{start: out, err: err}
	case opPause:
		cmd.reply <- reply{err: c.pause()}
	case opResume:
		cmd.reply <- reply{err: c.resume()}
	case opStop:
		if !c.state.Active() {
			cmd.reply <- reply{err: c.invalid("stop")}
			return
		}
		c.beginCommit(false, cmd.reply)
	case opRetry:
		if c.state != domain.StateCommitFailed || c.pending == nil {
			cmd.reply <- reply{err: apperrors.ErrNoPendingCommit}
			return
		}
		c.waiters = append(c.waiters, cmd.reply)
		c.runCommit()
	case opDiscard:
		cmd.reply <- reply{err: c.discard()}
	case opSnapshot:
		cmd.reply <- reply{snapshot: c.snapshot()}
	case opClose:
		c.close(cmd.reply)
	}
}

func (c *Controller) configure() error {
	if c.state != domain.StateIdle {
		return c.invalid("configure")
	}
	c.kind = domain.KindFocus
	c.selected = 0
	c.dismissed = false
	c.lastErr = nil
	c.transition(domain.StateConfiguring)
	return nil
}

func (c *Controller) selectDuration(minutes int) error {
	if c.state != domain.StateConfiguring {
		return c.invalid("select duration")
	}
	if err := c.menu.Allows(c.kind, minutes); err != nil {
		return err
	}
	c.selected = minutes
	c.publish()
	return nil
}

func (c *Controller) start(ctx context.Context) (dto.StartOutput, error) {
	if c.state != domain.StateConfiguring {
		return dto.StartOutput{}, c.invalid("start")
	}
	if err := c.menu.Allows(c.kind, c.selected); err != nil {
		return dto.StartOutput{}, fmt.Errorf("select a duration before starting: %w", err)
	}
	session, err := c.svc.Begin(ctx, c.info.TaskID, c.info.UserID, c.kind, c.selected)
	if err != nil {
		if apperrors.IsFatal(err) {
			c.logger.Warn("focus session create failed", "error", err)
			c.reset()
			c.lastErr = err
			c.transition(domain.StateIdle)
		} else {
			c.lastErr = err
			c.publish()
		}
		return dto.StartOutput{}, err
	}
	if err := c.timer.Arm(session.DurationMinutes * 60); err != nil {
		return dto.StartOutput{}, err
	}
	c.session = &session
	c.lastErr = nil
	c.timer.Resume()
	c.startTicker()
	c.transition(domain.StateRunning)
	c.logger.Info("focus session started", "session_id", session.ID, "kind", string(session.Kind), "duration_minutes", session.DurationMinutes)
	return dto.StartOutput{
		SessionID:       session.ID,
		TaskID:          session.TaskID,
		Kind:            string(session.Kind),
		DurationMinutes: session.DurationMinutes,
		StartedAt:       session.StartedAt,
	}, nil
}

func (c *Controller) pause() error {
	switch c.state {
	case domain.StatePaused:
		return nil
	case domain.StateRunning:
		c.timer.Pause()
		c.stopTicker()
		c.transition(domain.StatePaused)
		return nil
	default:
		return c.invalid("pause")
	}
}

func (c *Controller) resume() error {
	switch c.state {
	case domain.StateRunning:
		return nil
	case domain.StatePaused:
		c.timer.Resume()
		c.startTicker()
		c.transition(domain.StateRunning)
		return nil
	default:
		return c.invalid("resume")
	}
}

func (c *Controller) discard() error {
	if c.state != domain.StateCommitFailed || c.pending == nil {
		return apperrors.ErrNoPendingCommit
	}
	c.logger.Warn("pending focus commit discarded", "session_id", c.pending.Session.ID, "completed_minutes", c.pending.Terminal.CompletedMinutes)
	c.reset()
	c.transition(domain.StateIdle)
	return nil
}

func (c *Controller) close(r chan reply) {
	c.stopTicker()
	c.closing = true
	switch {
	case c.state.Active():
		c.beginCommit(false, r)
	case c.state == domain.StateCommitFailed:
		r <- reply{err: c.pendingError(apperrors.ErrPendingCommit)}
	default:
		r <- reply{}
	}
}

func (c *Controller) handleTick() {
	if c.state != domain.StateRunning {
		return
	}
	expired := c.timer.Tick()
	if !expired {
		c.publish()
		return
	}
	c.beginCommit(true, nil)
}

// beginCommit leaves Running/Paused for Transitioning and starts the commit writes.
func (c *Controller) beginCommit(natural bool, waiter chan reply) {
	c.stopTicker()
	c.timer.Pause()
	commit := c.svc.Finish(*c.session, c.timer.Remaining(), natural)
	c.pending = &commit
	if waiter != nil {
		c.waiters = append(c.waiters, waiter)
	}
	c.runCommit()
}

func (c *Controller) runCommit() {
	pending := *c.pending
	c.transition(domain.StateTransitioning)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.commitTimeout)
		defer cancel()
		committed, err := c.svc.Commit(ctx, pending)
		c.commits <- commitResult{commit: committed, err: err}
	}()
}

func (c *Controller) finishCommit(res commitResult) {
	commit := res.commit
	c.pending = &commit
	if res.err != nil {
		c.lastErr = res.err
		cerr := &dto.CommitError{
			SessionID:        commit.Session.ID,
			Kind:             string(commit.Session.Kind),
			CompletedMinutes: commit.Terminal.CompletedMinutes,
			Err:              res.err,
		}
		if apperrors.IsFatal(res.err) {
			c.logger.Error("focus commit failed", "session_id", commit.Session.ID, "completed_minutes", commit.Terminal.CompletedMinutes, "error", res.err)
			c.reset()
			c.lastErr = res.err
			c.transition(domain.StateIdle)
		} else {
			cerr.Retryable = true
			c.closing = false
			c.logger.Warn("focus commit failed, holding result for retry", "session_id", commit.Session.ID, "completed_minutes", commit.Terminal.CompletedMinutes, "error", res.err)
			c.transition(domain.StateCommitFailed)
		}
		c.flushWaiters(reply{err: cerr})
		return
	}

	if commit.NeedsLedger() {
		c.total = commit.TaskTotal
	} else {
		commit.TaskTotal = c.total
	}
	outcome := commit.Outcome()
	c.logger.Info("focus session committed",
		"session_id", commit.Session.ID,
		"kind", string(commit.Session.Kind),
		"completed_minutes", commit.Terminal.CompletedMinutes,
		"completed", commit.Terminal.Completed,
		"task_total", commit.TaskTotal,
	)
	c.reset()
	next := domain.StateIdle
	if commit.Natural && commit.Session.Kind == domain.KindFocus {
		c.kind = domain.KindBreak
		c.selected = c.menu.DefaultBreak
		next = domain.StateConfiguring
	}
	c.dismissed = outcome.Dismiss
	c.transition(next)
	c.notify(outcome)
	c.flushWaiters(reply{commit: dto.CommitOutput{
		SessionID:        commit.Session.ID,
		TaskID:           commit.Session.TaskID,
		Kind:             string(commit.Session.Kind),
		DurationMinutes:  commit.Session.DurationMinutes,
		CompletedMinutes: commit.Terminal.CompletedMinutes,
		Completed:        commit.Terminal.Completed,
		CompletedAt:      commit.Terminal.CompletedAt,
		TaskTotal:        commit.TaskTotal,
		NextState:        next.String(),
	}})
}

func (c *Controller) notify(outcome domain.Outcome) {
	if len(c.listeners) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.commitTimeout)
	defer cancel()
	for _, l := range c.listeners {
		l(ctx, outcome)
	}
}

func (c *Controller) flushWaiters(r reply) {
	for _, w := range c.waiters {
		w <- r
	}
	c.waiters = nil
}

// reset clears the per-run state and the transient duration selection.
func (c *Controller) reset() {
	c.stopTicker()
	c.session = nil
	c.pending = nil
	c.kind = domain.KindFocus
	c.selected = 0
	c.timer = domain.SessionClock{}
	c.lastErr = nil
}

func (c *Controller) transition(next domain.State) {
	prev := c.state
	c.state = next
	if prev != next {
		c.logger.Debug("focus state transition", "from", prev.String(), "to", next.String(), "kind", string(c.kind))
	}
	c.publish()
}

func (c *Controller) snapshot() dto.Snapshot {
	snap := dto.Snapshot{
		State:     c.state.String(),
		Kind:      string(c.kind),
		TaskID:    c.info.TaskID,
		Dismissed: c.dismissed,
		TaskTotal: c.total,
	}
	switch {
	case c.session != nil:
		snap.SessionID = c.session.ID
		snap.DurationMinutes = c.session.DurationMinutes
		snap.RemainingSeconds = c.timer.Remaining()
	case c.state == domain.StateConfiguring:
		snap.DurationMinutes = c.selected
		snap.RemainingSeconds = c.selected * 60
	}
	if c.pending != nil {
		snap.Kind = string(c.pending.Session.Kind)
		snap.SessionID = c.pending.Session.ID
		snap.DurationMinutes = c.pending.Session.DurationMinutes
		snap.PendingMinutes = c.pending.Terminal.CompletedMinutes
		snap.HasPending = true
	}
	if c.lastErr != nil {
		snap.LastError = c.lastErr.Error()
	}
	return snap
}

func (c *Controller) publish() {
	snap := c.snapshot()
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

func (c *Controller) startTicker() {
	c.stopTicker()
	c.ticker = c.tickers.NewTicker(time.Second)
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
}

func (c *Controller) invalid(action string) error {
	return fmt.Errorf("cannot %s while %s: %w", action, c.state, apperrors.ErrInvalidState)
}

func (c *Controller) pendingError(err error) error {
	if c.pending == nil {
		return err
	}
	return &dto.CommitError{
		SessionID:        c.pending.Session.ID,
		Kind:             string(c.pending.Session.Kind),
		CompletedMinutes: c.pending.Terminal.CompletedMinutes,
		Retryable:        true,
		Err:              err,
	}
}

var _ focusin.Timer = (*Controller)(nil)
