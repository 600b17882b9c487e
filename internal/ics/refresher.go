package ics

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/tutor-scheduler/internal/recurrence"
)

// EntrySource supplies the current weekly timetable.
type EntrySource interface {
	CalendarEntries(ctx context.Context) ([]recurrence.Entry, error)
}

// Refresher rewrites an exported .ics file on a cron schedule.
type Refresher struct {
	spec     string
	path     string
	source   EntrySource
	builder  *Builder
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewRefresher validates spec (standard five field cron or a descriptor such
// as "@hourly") and returns a Refresher writing to path.
func NewRefresher(spec, path string, source EntrySource, builder *Builder, loc *time.Location, logger *slog.Logger) (*Refresher, error) {
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}
	if path == "" {
		return nil, fmt.Errorf("export path is required")
	}
	if builder == nil {
		builder = NewBuilder(nil, nil)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		spec:     spec,
		path:     path,
		source:   source,
		builder:  builder,
		location: loc,
		now:      time.Now,
		logger:   logger.With("component", "ics_refresher", "path", path),
	}, nil
}

// RefreshOnce renders the current timetable and replaces the export file.
func (r *Refresher) RefreshOnce(ctx context.Context) error {
	entries, err := r.source.CalendarEntries(ctx)
	if err != nil {
		return fmt.Errorf("load timetable: %w", err)
	}
	content, err := r.builder.Render(entries, r.now().In(r.location))
	if err != nil {
		return fmt.Errorf("render calendar: %w", err)
	}
	if err := WriteFile(r.path, content); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "calendar exported", "events", len(entries))
	return nil
}

// Run exports once, then on every tick of the schedule until ctx is done.
func (r *Refresher) Run(ctx context.Context) error {
	if err := r.RefreshOnce(ctx); err != nil {
		r.logger.ErrorContext(ctx, "initial calendar export failed", "error", err)
	}

	c := cron.New(cron.WithLocation(r.location))
	if _, err := c.AddFunc(r.spec, func() {
		if err := r.RefreshOnce(ctx); err != nil {
			r.logger.ErrorContext(ctx, "scheduled calendar export failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule calendar export: %w", err)
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
