package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"focusloop/internal/bootstrap"
	focusdto "focusloop/internal/modules/focus/dto"
	focusin "focusloop/internal/modules/focus/port/in"
	"focusloop/internal/platform/config"
	"focusloop/internal/platform/identity"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dataDir string

	root := &cobra.Command{
		Use:           "focusloop",
		Short:         "Task list with a focus/break timer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data-dir", defaultDataDir(), "directory holding the database, config and journal")

	root.AddCommand(newTUICmd(&dataDir))
	root.AddCommand(newTaskCmd(&dataDir))
	root.AddCommand(newFocusCmd(&dataDir))
	root.AddCommand(newSessionCmd(&dataDir))
	root.AddCommand(newStreakCmd(&dataDir))
	root.AddCommand(newReflectionCmd(&dataDir))
	root.AddCommand(newTokenCmd(&dataDir))
	return root
}

func defaultDataDir() string {
	if v := os.Getenv("FOCUSLOOP_DATA_DIR"); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home + string(os.PathSeparator) + "focusloop"
	}
	return "."
}

func loadApp(dataDir string, logOut io.Writer) (*bootstrap.App, error) {
	cfg, err := config.New(dataDir)
	if err != nil {
		return nil, err
	}
	return bootstrap.New(context.Background(), cfg, logOut)
}

// runTUI sends logs to a file so they do not tear the alternate screen.
func runTUI(dataDir, taskID string) error {
	cfg, err := config.New(dataDir)
	if err != nil {
		return err
	}
	logFile, err := bootstrap.LogFile(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	app, err := bootstrap.New(context.Background(), cfg, logFile)
	if err != nil {
		return err
	}
	defer func() { _ = app.Close() }()
	return bootstrap.RunTUI(app, taskID)
}

func newTUICmd(dataDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Run focusloop terminal UI",
		RunE: func(_ *cobra.Command, _ []string) error {
			return runTUI(*dataDir, "")
		},
	}
}

func newTaskCmd(dataDir *string) *cobra.Command {
	task := &cobra.Command{Use: "task", Short: "Manage tasks"}

	var title, description, due string
	add := &cobra.Command{
		Use:   "add --title <title>",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(title) == "" {
				return fmt.Errorf("--title is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			out, err := app.TaskCLI.Add(context.Background(), title, description, due)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task added: %s (%s) due=%s\n", out.Title, out.ID, out.DueDate)
			return nil
		},
	}
	add.Flags().StringVar(&title, "title", "", "task title")
	add.Flags().StringVar(&description, "description", "", "task description")
	add.Flags().StringVar(&due, "due", "", "due date YYYY-MM-DD (default today)")

	list := &cobra.Command{
		Use:   "list",
		Short: "List your tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			tasks, err := app.TaskCLI.List(context.Background())
			if err != nil {
				return err
			}
			if len(tasks) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no tasks")
				return nil
			}
			for _, t := range tasks {
				mark := " "
				if t.Completed {
					mark = "x"
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s\t%s\tdue=%s\tfocus=%dmin\n", mark, t.ID, t.Title, t.DueDate, t.TotalFocusMinutes)
			}
			return nil
		},
	}

	var taskID string
	show := &cobra.Command{
		Use:   "show --id <id>",
		Short: "Show task details",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			t, err := app.TaskCLI.Show(context.Background(), taskID)
			if err != nil {
				return err
			}
			completed := "-"
			if t.CompletedAt != nil {
				completed = t.CompletedAt.Format(time.RFC3339)
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "id: %s\ntitle: %s\ndescription: %s\ndue: %s\nfocus: %d min\ncompleted: %s\n",
				t.ID, t.Title, t.Description, t.DueDate, t.TotalFocusMinutes, completed)
			return nil
		},
	}
	show.Flags().StringVar(&taskID, "id", "", "task id")

	var doneID string
	done := &cobra.Command{
		Use:   "done --id <id>",
		Short: "Mark a task completed",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(doneID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			t, err := app.TaskCLI.Done(context.Background(), doneID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task done: %s (%d min focused)\n", t.Title, t.TotalFocusMinutes)
			return nil
		},
	}
	done.Flags().StringVar(&doneID, "id", "", "task id")

	var deleteID string
	del := &cobra.Command{
		Use:   "delete --id <id>",
		Short: "Delete a task (undo with task restore)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(deleteID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			t, err := app.TaskCLI.Delete(context.Background(), deleteID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task deleted: %s (undo: focusloop task restore --id %s)\n", t.Title, t.ID)
			return nil
		},
	}
	del.Flags().StringVar(&deleteID, "id", "", "task id")

	var restoreID string
	restore := &cobra.Command{
		Use:   "restore --id <id>",
		Short: "Restore a deleted task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(restoreID) == "" {
				return fmt.Errorf("--id is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			t, err := app.TaskCLI.Restore(context.Background(), restoreID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "task restored: %s (%d min focused)\n", t.Title, t.TotalFocusMinutes)
			return nil
		},
	}
	restore.Flags().StringVar(&restoreID, "id", "", "task id")

	task.AddCommand(add, list, show, done, del, restore)
	return task
}

func newFocusCmd(dataDir *string) *cobra.Command {
	focus := &cobra.Command{Use: "focus", Short: "Focus timer"}

	var taskID string
	var minutes int
	var headless bool
	run := &cobra.Command{
		Use:   "run --task-id <id>",
		Short: "Run a focus session for a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--task-id is required")
			}
			if !headless {
				return runTUI(*dataDir, taskID)
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runHeadless(ctx, cmd.OutOrStdout(), app, taskID, minutes)
		},
	}
	run.Flags().StringVar(&taskID, "task-id", "", "task id")
	run.Flags().IntVar(&minutes, "duration", 25, "focus minutes (must be on the configured menu)")
	run.Flags().BoolVar(&headless, "headless", false, "print progress instead of opening the terminal UI")

	focus.AddCommand(run)
	return focus
}

const commitRetries = 3

// runHeadless runs one focus session to expiry or until ctx is cancelled, then
// closes the timer, which commits whatever was focused.
func runHeadless(ctx context.Context, out io.Writer, app *bootstrap.App, taskID string, minutes int) error {
	bg := context.Background()
	timer, err := app.FocusCLI.OpenTimer(bg, taskID)
	if err != nil {
		return err
	}
	updates, unsubscribe := timer.Subscribe()
	defer unsubscribe()

	if err := timer.Configure(bg); err != nil {
		_ = timer.Close(bg)
		return err
	}
	if err := timer.SelectDuration(bg, minutes); err != nil {
		_ = timer.Close(bg)
		return err
	}
	started, err := timer.Start(bg)
	if err != nil {
		_ = timer.Close(bg)
		return err
	}
	_, _ = fmt.Fprintf(out, "focus started: session %s for %d min\n", started.SessionID, started.DurationMinutes)

	lastMinute := -1
	for {
		select {
		case <-ctx.Done():
			_, _ = fmt.Fprintln(out, "interrupted: saving session")
			return finishHeadless(bg, out, app, timer, taskID)
		case snap, ok := <-updates:
			if !ok {
				return nil
			}
			switch {
			case snap.State == "running" && snap.RemainingSeconds/60 != lastMinute:
				lastMinute = snap.RemainingSeconds / 60
				_, _ = fmt.Fprintf(out, "%02d:%02d remaining\n", snap.RemainingSeconds/60, snap.RemainingSeconds%60)
			case snap.State == "configuring" && snap.Kind == "break":
				_, _ = fmt.Fprintln(out, "focus complete")
				return finishHeadless(bg, out, app, timer, taskID)
			case snap.State == "commit_failed":
				if err := retryPending(bg, out, timer, nil); err != nil {
					return err
				}
				return finishHeadless(bg, out, app, timer, taskID)
			case snap.State == "idle" && snap.LastError != "":
				return errors.New(snap.LastError)
			}
		}
	}
}

func finishHeadless(ctx context.Context, out io.Writer, app *bootstrap.App, timer focusin.Timer, taskID string) error {
	if err := timer.Close(ctx); err != nil {
		// A failed save keeps the timer open so the result can be retried.
		if err := retryPending(ctx, out, timer, err); err != nil {
			return err
		}
		if err := timer.Close(ctx); err != nil {
			return err
		}
	}
	t, err := app.TaskCLI.Show(ctx, taskID)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(out, "%s: %d min focused in total\n", t.Title, t.TotalFocusMinutes)
	return nil
}

func retryPending(ctx context.Context, out io.Writer, timer focusin.Timer, err error) error {
	for attempt := 1; attempt <= commitRetries; attempt++ {
		if err != nil {
			var cerr *focusdto.CommitError
			if !errors.As(err, &cerr) || !cerr.Retryable {
				return err
			}
			_, _ = fmt.Fprintf(out, "save failed (%v), retry %d/%d\n", cerr.Err, attempt, commitRetries)
		}
		time.Sleep(time.Duration(attempt) * time.Second)
		if _, err = timer.Retry(ctx); err == nil {
			return nil
		}
	}
	return err
}

func newSessionCmd(dataDir *string) *cobra.Command {
	session := &cobra.Command{Use: "session", Short: "Focus session history"}

	var taskID string
	list := &cobra.Command{
		Use:   "list --task-id <id>",
		Short: "List sessions recorded for a task",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(taskID) == "" {
				return fmt.Errorf("--task-id is required")
			}
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			sessions, err := app.FocusCLI.ListSessions(context.Background(), taskID)
			if err != nil {
				return err
			}
			if len(sessions) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "no sessions")
				return nil
			}
			for _, s := range sessions {
				state := "open"
				if s.CompletedAt != nil {
					state = fmt.Sprintf("%d/%d min", s.CompletedMinutes, s.DurationMinutes)
					if s.Completed {
						state += " full"
					}
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", s.ID, s.Kind, s.StartedAt.Local().Format("2006-01-02 15:04"), state)
			}
			return nil
		},
	}
	list.Flags().StringVar(&taskID, "task-id", "", "task id")

	session.AddCommand(list)
	return session
}

func newStreakCmd(dataDir *string) *cobra.Command {
	var days int
	streak := &cobra.Command{
		Use:   "streak",
		Short: "Show your activity streak",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			ctx := context.Background()
			s, err := app.ActivityCLI.Streak(ctx)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "current: %d days\nlongest: %d days\nlast active: %s\ntoday: %d min focus, %d sessions, %d breaks\n",
				s.Current, s.Longest, s.LastActive, s.Today.FocusMinutes, s.Today.FocusSessions, s.Today.Breaks)
			if days <= 0 {
				return nil
			}
			history, err := app.ActivityCLI.Days(ctx, days)
			if err != nil {
				return err
			}
			for _, d := range history {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\tfocus=%dmin\tsessions=%d\tbreaks=%d\tcreated=%d\tdone=%d\n",
					d.Date, d.FocusMinutes, d.FocusSessions, d.Breaks, d.TasksCreated, d.TasksCompleted)
			}
			return nil
		},
	}
	streak.Flags().IntVar(&days, "days", 0, "also list this many recent active days")
	return streak
}

func newReflectionCmd(dataDir *string) *cobra.Command {
	reflection := &cobra.Command{Use: "reflection", Short: "Daily wind-down reflection"}

	var mood, gratitude, note string
	var shared bool
	save := &cobra.Command{
		Use:   "save --mood <happy|neutral|sad>",
		Short: "Save today's reflection, replacing an earlier one",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			r, err := app.ActivityCLI.Reflect(context.Background(), mood, gratitude, note, shared)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "reflection saved for %s: %s, %d tasks done\n", r.Date, r.Mood, r.TasksCompleted)
			return nil
		},
	}
	save.Flags().StringVar(&mood, "mood", "", "happy, neutral or sad")
	save.Flags().StringVar(&gratitude, "gratitude", "", "something you are grateful for")
	save.Flags().StringVar(&note, "note", "", "how the day went")
	save.Flags().BoolVar(&shared, "share", false, "mark the reflection as shared with peers")

	var date string
	show := &cobra.Command{
		Use:   "show [--date YYYY-MM-DD]",
		Short: "Show a day's reflection (default today)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp(*dataDir, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = app.Close() }()
			r, err := app.ActivityCLI.Reflection(context.Background(), date)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "date: %s\nmood: %s\ntasks done: %d\ngratitude: %s\nnote: %s\nshared: %t\n",
				r.Date, r.Mood, r.TasksCompleted, r.Gratitude, r.Note, r.Shared)
			return nil
		},
	}
	show.Flags().StringVar(&date, "date", "", "day to show")

	reflection.AddCommand(save, show)
	return reflection
}

func newTokenCmd(dataDir *string) *cobra.Command {
	var userID string
	var ttl time.Duration
	token := &cobra.Command{
		Use:   "token --user-id <id>",
		Short: "Mint an identity token signed with the configured secret",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(userID) == "" {
				return fmt.Errorf("--user-id is required")
			}
			cfg, err := config.New(*dataDir)
			if err != nil {
				return err
			}
			if cfg.Identity.JWTSecret == "" {
				return fmt.Errorf("identity.jwt_secret is not configured")
			}
			signed, err := identity.GenerateToken([]byte(cfg.Identity.JWTSecret), userID, ttl)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), signed)
			return nil
		},
	}
	token.Flags().StringVar(&userID, "user-id", "", "user id to embed")
	token.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "token lifetime")
	return token
}
