package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	activityadapter "focusloop/internal/modules/activity/adapter/out"
	activityservice "focusloop/internal/modules/activity/service"
	activityusecase "focusloop/internal/modules/activity/usecase"
	focusadapter "focusloop/internal/modules/focus/adapter/out"
	"focusloop/internal/modules/focus/domain"
	"focusloop/internal/modules/focus/dto"
	focusin "focusloop/internal/modules/focus/port/in"
	focusout "focusloop/internal/modules/focus/port/out"
	"focusloop/internal/modules/focus/service"
	"focusloop/internal/modules/focus/usecase"
	taskadapter "focusloop/internal/modules/task/adapter/out"
	taskdto "focusloop/internal/modules/task/dto"
	taskin "focusloop/internal/modules/task/port/in"
	taskservice "focusloop/internal/modules/task/service"
	taskusecase "focusloop/internal/modules/task/usecase"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/id"
	"focusloop/internal/platform/identity"
	"focusloop/internal/platform/sqldb"
)

func TestFocusRunAgainstSQLite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()
	db, err := sqldb.Open(ctx, "sqlite", filepath.Join(dir, "focusloop.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer func() { _ = db.Close() }()

	clk := fixedClock{now: time.Date(2026, 3, 5, 14, 0, 0, 0, time.UTC)}
	who := identity.Static{ID: "alice"}

	dayStore, err := activityadapter.NewSQLDayStore(ctx, db)
	if err != nil {
		t.Fatalf("day store: %v", err)
	}
	activity := activityusecase.NewInteractor(activityservice.NewActivityService(clk, dayStore, time.UTC), who)

	taskStore, err := taskadapter.NewSQLTaskStore(ctx, db)
	if err != nil {
		t.Fatalf("task store: %v", err)
	}
	tasks := taskusecase.NewInteractor(taskservice.NewTaskService(clk, id.UUID{}, taskStore), who, nil, nil)
	task, err := tasks.Add(ctx, taskdto.AddInput{Title: "Prepare talk"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}

	sessionStore, err := focusadapter.NewSQLSessionStore(ctx, db)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	svc := service.NewSessionService(clk, id.UUID{}, sessionStore, focusadapter.NewTaskLedgerAdapter(tasks))
	tickers := &manualTickers{}
	journalDir := filepath.Join(dir, "journal")
	uc := usecase.NewInteractor(svc, who, usecase.Options{
		Menu:    domain.DefaultMenu(),
		Tickers: tickers,
		Sinks: []focusout.OutcomeSink{
			focusadapter.NewActivitySink(activity),
			focusadapter.NewJournalNoteWriter(journalDir, tasks),
		},
	})

	if _, err := uc.OpenTimer(ctx, dto.OpenTimerInput{TaskID: "missing"}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("open timer for unknown task: %v", err)
	}
	timer, err := uc.OpenTimer(ctx, dto.OpenTimerInput{TaskID: task.ID})
	if err != nil {
		t.Fatalf("open timer: %v", err)
	}
	if info := timer.Info(); info.UserID != "alice" || info.TotalFocusMinutes != 0 || len(info.FocusMenu) != 4 {
		t.Fatalf("unexpected timer info %+v", info)
	}

	if err := timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := timer.SelectDuration(ctx, 15); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := timer.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	tickN(t, tickers, 15*60)
	waitForState(t, timer, domain.StateConfiguring)

	if _, err := timer.Start(ctx); err != nil {
		t.Fatalf("start break: %v", err)
	}
	tickN(t, tickers, 90)
	out, err := timer.Stop(ctx)
	if err != nil {
		t.Fatalf("stop break: %v", err)
	}
	if out.Kind != "break" || out.CompletedMinutes != 1 || out.TaskTotal != 15 {
		t.Fatalf("unexpected break commit %+v", out)
	}
	if err := timer.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	total, err := tasks.TotalFocusMinutes(ctx, task.ID)
	if err != nil || total != 15 {
		t.Fatalf("task total: %d %v", total, err)
	}
	sessions, err := uc.ListSessions(ctx, task.ID)
	if err != nil || len(sessions) != 2 {
		t.Fatalf("sessions: %+v %v", sessions, err)
	}
	for _, s := range sessions {
		if s.CompletedAt == nil {
			t.Fatalf("session %s left open", s.ID)
		}
	}
	streak, err := activity.Streak(ctx)
	if err != nil || streak.Current != 1 || streak.Today.FocusMinutes != 15 || streak.Today.Breaks != 1 {
		t.Fatalf("streak: %+v %v", streak, err)
	}
	if _, err := os.Stat(filepath.Join(journalDir, "2026-03-05.md")); err != nil {
		t.Fatalf("day note missing: %v", err)
	}
}

type userStack struct {
	tasks   taskin.Usecase
	focus   focusin.Usecase
	tickers *manualTickers
}

func newUserStack(t *testing.T, db *sqldb.DB, userID string) userStack {
	t.Helper()
	ctx := context.Background()
	clk := fixedClock{now: time.Date(2026, 3, 6, 10, 0, 0, 0, time.UTC)}
	who := identity.Static{ID: userID}
	taskStore, err := taskadapter.NewSQLTaskStore(ctx, db)
	if err != nil {
		t.Fatalf("task store: %v", err)
	}
	tasks := taskusecase.NewInteractor(taskservice.NewTaskService(clk, id.UUID{}, taskStore), who, nil, nil)
	sessionStore, err := focusadapter.NewSQLSessionStore(ctx, db)
	if err != nil {
		t.Fatalf("session store: %v", err)
	}
	tickers := &manualTickers{}
	svc := service.NewSessionService(clk, id.UUID{}, sessionStore, focusadapter.NewTaskLedgerAdapter(tasks))
	return userStack{
		tasks:   tasks,
		focus:   usecase.NewInteractor(svc, who, usecase.Options{Menu: domain.DefaultMenu(), Tickers: tickers}),
		tickers: tickers,
	}
}

func openSharedDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "focusloop.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTimerHidesOtherUsersTasks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openSharedDB(t)
	alice := newUserStack(t, db, "alice")
	bob := newUserStack(t, db, "bob")

	task, err := alice.tasks.Add(ctx, taskdto.AddInput{Title: "Alice's essay"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	if _, err := bob.focus.OpenTimer(ctx, dto.OpenTimerInput{TaskID: task.ID}); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("bob opened a timer on alice's task: %v", err)
	}
	if _, err := bob.focus.ListSessions(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("bob listed alice's sessions: %v", err)
	}
	if _, err := bob.tasks.IncrementFocusMinutes(ctx, task.ID, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("bob added minutes to alice's task: %v", err)
	}
	if total, err := alice.tasks.TotalFocusMinutes(ctx, task.ID); err != nil || total != 0 {
		t.Fatalf("alice's total changed: %d %v", total, err)
	}
	if _, err := alice.focus.ListSessions(ctx, task.ID); err != nil {
		t.Fatalf("owner list sessions: %v", err)
	}
}

func TestDeletingTaskMidSessionEndsTheRun(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	alice := newUserStack(t, openSharedDB(t), "alice")

	task, err := alice.tasks.Add(ctx, taskdto.AddInput{Title: "Short-lived"})
	if err != nil {
		t.Fatalf("add task: %v", err)
	}
	timer, err := alice.focus.OpenTimer(ctx, dto.OpenTimerInput{TaskID: task.ID})
	if err != nil {
		t.Fatalf("open timer: %v", err)
	}
	defer func() { _ = timer.Close(ctx) }()
	if err := timer.Configure(ctx); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if err := timer.SelectDuration(ctx, 15); err != nil {
		t.Fatalf("select: %v", err)
	}
	started, err := timer.Start(ctx)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	tickN(t, alice.tickers, 120)

	if _, err := alice.tasks.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	_, err = timer.Stop(ctx)
	var cerr *dto.CommitError
	if !errors.As(err, &cerr) || cerr.Retryable || !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("stop after delete should fail fatally with not found, got %v", err)
	}
	snap, err := timer.Snapshot(ctx)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.State != domain.StateIdle.String() || snap.HasPending || !strings.Contains(snap.LastError, "not found") {
		t.Fatalf("run should be forced idle with the error surfaced, got %+v", snap)
	}

	restored, err := alice.tasks.Restore(ctx, task.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.TotalFocusMinutes != 0 {
		t.Fatalf("lost minutes must not reach the ledger, got %d", restored.TotalFocusMinutes)
	}
	sessions, err := alice.focus.ListSessions(ctx, task.ID)
	if err != nil || len(sessions) != 1 {
		t.Fatalf("sessions: %+v %v", sessions, err)
	}
	if s := sessions[0]; s.ID != started.SessionID || s.CompletedAt == nil || s.CompletedMinutes != 2 {
		t.Fatalf("session record should keep the elapsed minutes, got %+v", s)
	}
}
