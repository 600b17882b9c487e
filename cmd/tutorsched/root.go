package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/message"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/config"
	"github.com/example/tutor-scheduler/internal/logging"
	"github.com/example/tutor-scheduler/internal/persistence/sqlite"
	"github.com/example/tutor-scheduler/internal/recurrence"
)

// cli holds flag values and what the persistent pre-run derives from them.
type cli struct {
	configPath string
	logLevel   string

	cfg     config.Config
	logger  *slog.Logger
	printer *message.Printer
	out     io.Writer
	errOut  io.Writer
	now     func() time.Time
}

func newRootCommand(out, errOut io.Writer) *cobra.Command {
	c := &cli{out: out, errOut: errOut, now: time.Now}

	root := &cobra.Command{
		Use:           "tutorsched",
		Short:         "Weekly lesson timetable for a private tutor",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.SetOut(out)
	root.SetErr(errOut)

	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "log level (debug, info, warn, error), overrides the configuration")

	root.AddCommand(
		c.serveCmd(),
		c.migrateCmd(),
		c.freeCmd(),
		c.timetableCmd(),
		c.upcomingCmd(),
		c.exportCmd(),
		c.hashKeyCmd(),
	)
	return root
}

func (c *cli) setup() error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.LogLevel = c.logLevel
	}
	logger, err := logging.New(c.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	c.printer = message.NewPrinter(cfg.Language())
	return nil
}

// runtime is a migrated store with the timetable loaded and services over it.
type runtime struct {
	storage  *sqlite.Storage
	students *application.StudentService
	schedule *application.ScheduleService
}

func (c *cli) openRuntime(ctx context.Context) (*runtime, error) {
	storage, err := sqlite.Open(ctx, c.cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	applied, err := storage.Migrate(ctx, c.logger)
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if len(applied) > 0 {
		c.logger.InfoContext(ctx, "database migrated", "applied", applied)
	}

	timetable := application.NewTimetable(c.cfg.FreeSlotCacheTTL, c.now)
	students := application.NewStudentServiceWithLogger(
		newStudentStoreAdapter(storage),
		timetable,
		nil,
		c.now,
		c.cfg.Language(),
		c.logger,
	)
	if err := students.LoadTimetable(ctx); err != nil {
		_ = storage.Close()
		return nil, err
	}

	engine := recurrence.NewEngine(c.cfg.Location())
	return &runtime{
		storage:  storage,
		students: students,
		schedule: application.NewScheduleService(timetable, engine, c.now, c.logger),
	}, nil
}

func (r *runtime) Close() error {
	return r.storage.Close()
}
