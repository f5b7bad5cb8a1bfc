package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	activityinadapter "focusloop/internal/modules/activity/adapter/in"
	activityoutadapter "focusloop/internal/modules/activity/adapter/out"
	activityservice "focusloop/internal/modules/activity/service"
	activityusecase "focusloop/internal/modules/activity/usecase"
	focusinadapter "focusloop/internal/modules/focus/adapter/in"
	focusoutadapter "focusloop/internal/modules/focus/adapter/out"
	focusdomain "focusloop/internal/modules/focus/domain"
	focusout "focusloop/internal/modules/focus/port/out"
	focusservice "focusloop/internal/modules/focus/service"
	focususecase "focusloop/internal/modules/focus/usecase"
	taskinadapter "focusloop/internal/modules/task/adapter/in"
	taskoutadapter "focusloop/internal/modules/task/adapter/out"
	taskservice "focusloop/internal/modules/task/service"
	taskusecase "focusloop/internal/modules/task/usecase"
	"focusloop/internal/platform/clock"
	"focusloop/internal/platform/config"
	"focusloop/internal/platform/id"
	"focusloop/internal/platform/identity"
	"focusloop/internal/platform/logging"
	"focusloop/internal/platform/sqldb"
	uiapp "focusloop/internal/ui/app"
	timerview "focusloop/internal/ui/views/timer"
)

type App struct {
	TaskCLI     taskinadapter.CLIHandler
	FocusCLI    focusinadapter.CLIHandler
	ActivityCLI activityinadapter.CLIHandler
	Logger      *slog.Logger

	db *sqldb.DB
}

// New wires every module against one database handle. Logs go to logOut.
func New(ctx context.Context, cfg config.Config, logOut io.Writer) (*App, error) {
	logger := logging.New(logOut, cfg.Log.Level, cfg.Log.Format)
	clk := clock.SystemClock{}
	ids := id.UUID{}

	db, err := sqldb.Open(ctx, cfg.Storage.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.Storage.Driver, err)
	}
	app, err := wire(ctx, cfg, db, clk, ids, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	logger.Debug("focusloop ready", "driver", cfg.Storage.Driver, "data_dir", cfg.DataDir)
	return app, nil
}

func wire(ctx context.Context, cfg config.Config, db *sqldb.DB, clk clock.Clock, ids id.Generator, logger *slog.Logger) (*App, error) {
	who := identityProvider(cfg)

	dayStore, err := activityoutadapter.NewSQLDayStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new day store: %w", err)
	}
	activityUC := activityusecase.NewInteractor(activityservice.NewActivityService(clk, dayStore, time.Local), who)
	reflectionStore, err := activityoutadapter.NewSQLReflectionStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new reflection store: %w", err)
	}
	reflectionUC := activityusecase.NewReflectionInteractor(activityservice.NewReflectionService(clk, dayStore, reflectionStore, time.Local), who)

	taskStore, err := taskoutadapter.NewSQLTaskStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new task store: %w", err)
	}
	taskUC := taskusecase.NewInteractor(
		taskservice.NewTaskService(clk, ids, taskStore),
		who,
		taskoutadapter.NewActivityAdapter(activityUC),
		logger,
	)

	sessionStore, err := focusoutadapter.NewSQLSessionStore(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("new session store: %w", err)
	}
	sinks := []focusout.OutcomeSink{focusoutadapter.NewActivitySink(activityUC)}
	if cfg.Journal.Enabled {
		sinks = append(sinks, focusoutadapter.NewJournalNoteWriter(cfg.Journal.Dir, taskUC))
	}
	focusUC := focususecase.NewInteractor(
		focusservice.NewSessionService(clk, ids, sessionStore, focusoutadapter.NewTaskLedgerAdapter(taskUC)),
		who,
		focususecase.Options{
			Menu: focusdomain.Menu{
				Focus:        cfg.Focus.FocusMenu,
				Break:        cfg.Focus.BreakMenu,
				DefaultBreak: cfg.Focus.DefaultBreak,
			},
			Tickers: clock.SystemTickers{},
			Logger:  logger,
			Sinks:   sinks,
		},
	)

	return &App{
		TaskCLI:     taskinadapter.NewCLIHandler(taskUC),
		FocusCLI:    focusinadapter.NewCLIHandler(focusUC),
		ActivityCLI: activityinadapter.NewCLIHandler(activityUC, reflectionUC),
		Logger:      logger,
		db:          db,
	}, nil
}

func identityProvider(cfg config.Config) identity.Provider {
	if cfg.Identity.Token != "" {
		return identity.JWT{Token: cfg.Identity.Token, Secret: []byte(cfg.Identity.JWTSecret)}
	}
	return identity.Static{ID: cfg.Identity.UserID}
}

func (a *App) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	return a.db.Close()
}

// LogFile opens the append-only log used while the TUI owns the terminal.
func LogFile(cfg config.Config) (*os.File, error) {
	path := filepath.Join(cfg.DataDir, ".focusloop", "focusloop.log")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// RunTUI runs the terminal UI. A non-empty taskID opens its timer immediately.
func RunTUI(app *App, taskID string) error {
	model := uiapp.NewModel(app.TaskCLI, timerOpener{focus: app.FocusCLI}, app.ActivityCLI, taskID)
	program := tea.NewProgram(model, tea.WithAltScreen())
	_, err := program.Run()
	return err
}

type timerOpener struct{ focus focusinadapter.CLIHandler }

func (o timerOpener) OpenTimer(ctx context.Context, taskID string) (timerview.TimerPort, error) {
	timer, err := o.focus.OpenTimer(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return timer, nil
}
