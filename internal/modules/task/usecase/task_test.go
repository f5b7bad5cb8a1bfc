package usecase_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	taskadapter "focusloop/internal/modules/task/adapter/out"
	"focusloop/internal/modules/task/dto"
	taskin "focusloop/internal/modules/task/port/in"
	"focusloop/internal/modules/task/service"
	"focusloop/internal/modules/task/usecase"
	apperrors "focusloop/internal/platform/errors"
	"focusloop/internal/platform/id"
	"focusloop/internal/platform/identity"
	"focusloop/internal/platform/sqldb"
)

type fixedClock struct{ now time.Time }

func (f fixedClock) Now() time.Time { return f.now }

type fakeActivity struct {
	mu        sync.Mutex
	created   int
	completed int
}

func (f *fakeActivity) TaskCreated(context.Context, string, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return nil
}

func (f *fakeActivity) TaskCompleted(context.Context, string, time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed++
	return nil
}

func newUsecase(t *testing.T, userID string, db *sqldb.DB, activity *fakeActivity) taskin.Usecase {
	t.Helper()
	store, err := taskadapter.NewSQLTaskStore(context.Background(), db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	clk := fixedClock{now: time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)}
	svc := service.NewTaskService(clk, id.UUID{}, store)
	return usecase.NewInteractor(svc, identity.Static{ID: userID}, activity, nil)
}

func openDB(t *testing.T) *sqldb.DB {
	t.Helper()
	db, err := sqldb.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "focusloop.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()
	activity := &fakeActivity{}
	uc := newUsecase(t, "alice", openDB(t), activity)
	ctx := context.Background()

	added, err := uc.Add(ctx, dto.AddInput{Title: "  Read paper  "})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Title != "Read paper" || added.UserID != "alice" || added.DueDate != "2026-03-04" {
		t.Fatalf("unexpected task %+v", added)
	}

	total, err := uc.IncrementFocusMinutes(ctx, added.ID, 25)
	if err != nil || total != 25 {
		t.Fatalf("increment: total=%d err=%v", total, err)
	}
	if total, err := uc.TotalFocusMinutes(ctx, added.ID); err != nil || total != 25 {
		t.Fatalf("total: %d %v", total, err)
	}

	for i := 0; i < 2; i++ {
		done, err := uc.MarkDone(ctx, added.ID)
		if err != nil {
			t.Fatalf("mark done: %v", err)
		}
		if !done.Completed || done.CompletedAt == nil {
			t.Fatalf("task not completed: %+v", done)
		}
	}
	if activity.created != 1 || activity.completed != 1 {
		t.Fatalf("unexpected activity counts created=%d completed=%d", activity.created, activity.completed)
	}

	list, err := uc.List(ctx)
	if err != nil || len(list) != 1 || list[0].TotalFocusMinutes != 25 {
		t.Fatalf("list: %+v %v", list, err)
	}
}

func TestTaskValidationAndOwnership(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	alice := newUsecase(t, "alice", db, &fakeActivity{})
	bob := newUsecase(t, "bob", db, &fakeActivity{})
	ctx := context.Background()

	if _, err := alice.Add(ctx, dto.AddInput{Title: " "}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("empty title: %v", err)
	}
	if _, err := alice.Add(ctx, dto.AddInput{Title: "x", DueDate: "tomorrow"}); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("bad due date: %v", err)
	}
	task, err := alice.Add(ctx, dto.AddInput{Title: "private"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := bob.Get(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign task should be hidden, got %v", err)
	}
	if _, err := bob.MarkDone(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign task should not be completable, got %v", err)
	}
	if _, err := bob.TotalFocusMinutes(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign total should be hidden, got %v", err)
	}
	if _, err := bob.IncrementFocusMinutes(ctx, task.ID, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign task should not accrue, got %v", err)
	}
	if _, err := bob.Delete(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign task should not be deletable, got %v", err)
	}
	if total, err := alice.TotalFocusMinutes(ctx, task.ID); err != nil || total != 0 {
		t.Fatalf("owner total: %d %v", total, err)
	}
	if _, err := alice.IncrementFocusMinutes(ctx, task.ID, -3); !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("negative delta: %v", err)
	}
	if _, err := alice.TotalFocusMinutes(ctx, "missing"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing task: %v", err)
	}
}

func TestDeleteAndRestore(t *testing.T) {
	t.Parallel()
	db := openDB(t)
	alice := newUsecase(t, "alice", db, &fakeActivity{})
	bob := newUsecase(t, "bob", db, &fakeActivity{})
	ctx := context.Background()

	task, err := alice.Add(ctx, dto.AddInput{Title: "Plan week"})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := alice.IncrementFocusMinutes(ctx, task.ID, 20); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := alice.Restore(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("restoring a live task: %v", err)
	}
	if _, err := alice.Delete(ctx, task.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := alice.Get(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("deleted task still visible: %v", err)
	}
	if list, err := alice.List(ctx); err != nil || len(list) != 0 {
		t.Fatalf("deleted task still listed: %+v %v", list, err)
	}
	if _, err := alice.IncrementFocusMinutes(ctx, task.ID, 5); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("deleted task accrued: %v", err)
	}
	if _, err := alice.MarkDone(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("deleted task completed: %v", err)
	}
	if _, err := alice.Delete(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if _, err := bob.Restore(ctx, task.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("foreign restore: %v", err)
	}

	restored, err := alice.Restore(ctx, task.ID)
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.TotalFocusMinutes != 20 || restored.Title != "Plan week" {
		t.Fatalf("restore should bring the task back unchanged, got %+v", restored)
	}
}
