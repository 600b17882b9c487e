package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/tutor-scheduler/internal/ics"
	"github.com/example/tutor-scheduler/internal/recurrence"
)

// ListPeriod identifies the range preset requested for upcoming lessons.
type ListPeriod string

const (
	// ListPeriodNone indicates no preset; caller supplied explicit bounds.
	ListPeriodNone ListPeriod = ""
	// ListPeriodDay constrains results to a single day.
	ListPeriodDay ListPeriod = "day"
	// ListPeriodWeek constrains results to the Monday-start week containing the reference time.
	ListPeriodWeek ListPeriod = "week"
	// ListPeriodMonth constrains results to the month containing the reference time.
	ListPeriodMonth ListPeriod = "month"
)

// UpcomingParams selects the window of dated lessons to list. Explicit bounds
// win over the period preset; with neither, the next seven days are used.
type UpcomingParams struct {
	From            *time.Time
	Until           *time.Time
	Period          ListPeriod
	PeriodReference time.Time
}

// ScheduleService answers timetable queries over the shared registry.
type ScheduleService struct {
	timetable *Timetable
	engine    *recurrence.Engine
	builder   *ics.Builder
	now       func() time.Time
	logger    *slog.Logger
}

// NewScheduleService wires dependencies for schedule queries. A nil engine
// places lessons in Asia/Singapore.
func NewScheduleService(timetable *Timetable, engine *recurrence.Engine, now func() time.Time, logger *slog.Logger) *ScheduleService {
	if now == nil {
		now = time.Now
	}
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if timetable == nil {
		timetable = NewTimetable(0, now)
	}
	return &ScheduleService{
		timetable: timetable,
		engine:    engine,
		builder:   ics.NewBuilder(engine, now),
		now:       now,
		logger:    defaultLogger(logger),
	}
}

// EarliestFreeSlot returns "<DAY> <HH:mm>" for the first free slot of hours
// length, or "No free time".
func (s *ScheduleService) EarliestFreeSlot(ctx context.Context, hours int) (string, error) {
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "EarliestFreeSlot", "hours", hours)
	if err := validateFreeSlotHours(hours); err != nil {
		logFailure(ctx, logger, "invalid duration", err)
		return "", err
	}
	answer := s.timetable.EarliestFreeSlot(hours)
	logger.DebugContext(ctx, "free slot computed", "answer", answer)
	return answer, nil
}

// Timetable lists every registered slot with its occupancy and holders.
func (s *ScheduleService) Timetable(ctx context.Context) []TimetableSlot {
	return s.timetable.Slots()
}

// CalendarEntries implements ics.EntrySource.
func (s *ScheduleService) CalendarEntries(ctx context.Context) ([]recurrence.Entry, error) {
	return s.timetable.Entries(), nil
}

// Upcoming expands every weekly session into dated lessons within the window.
func (s *ScheduleService) Upcoming(ctx context.Context, params UpcomingParams) ([]recurrence.Occurrence, error) {
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "Upcoming")

	from, until := s.upcomingWindow(params)
	if !until.After(from) {
		err := fieldError("until", "until must be after from")
		logFailure(ctx, logger, "invalid window", err)
		return nil, err
	}
	if until.Sub(from) > recurrence.MaxWindow {
		err := fieldError("until", "window cannot exceed 366 days")
		logFailure(ctx, logger, "invalid window", err)
		return nil, err
	}

	occurrences, err := s.engine.Expand(s.timetable.Entries(), from, until)
	if err != nil {
		logFailure(ctx, logger, "expansion failed", err)
		return nil, fmt.Errorf("expand timetable: %w", err)
	}
	return occurrences, nil
}

// Calendar renders the timetable as an iCalendar document whose events start
// on or after today.
func (s *ScheduleService) Calendar(ctx context.Context) (string, error) {
	logger := serviceLogger(ctx, s.logger, "ScheduleService", "Calendar")

	anchor := startOfDay(s.now(), s.engine.Location())
	content, err := s.builder.Render(s.timetable.Entries(), anchor)
	if err != nil {
		logFailure(ctx, logger, "calendar render failed", err)
		return "", fmt.Errorf("render calendar: %w", err)
	}
	return content, nil
}

// Builder exposes the calendar builder for scheduled exports.
func (s *ScheduleService) Builder() *ics.Builder {
	return s.builder
}

func (s *ScheduleService) upcomingWindow(params UpcomingParams) (time.Time, time.Time) {
	loc := s.engine.Location()
	reference := params.PeriodReference
	if reference.IsZero() {
		reference = s.now()
	}

	from, until := reference, reference.AddDate(0, 0, 7)
	if params.Period != ListPeriodNone {
		from, until = computePeriodRange(params.Period, reference, loc)
	}
	if params.From != nil {
		from = *params.From
	}
	if params.Until != nil {
		until = *params.Until
	}
	return from, until
}

func computePeriodRange(period ListPeriod, reference time.Time, loc *time.Location) (time.Time, time.Time) {
	switch period {
	case ListPeriodDay:
		start := startOfDay(reference, loc)
		return start, start.AddDate(0, 0, 1)
	case ListPeriodWeek:
		start := startOfWeek(reference, loc)
		return start, start.AddDate(0, 0, 7)
	case ListPeriodMonth:
		start := startOfMonth(reference, loc)
		return start, start.AddDate(0, 1, 0)
	default:
		return reference, reference.AddDate(0, 0, 7)
	}
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

func startOfWeek(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	weekday := int(start.Weekday())
	// Monday starts the week; time.Sunday is 0.
	offset := (weekday + 6) % 7
	return start.AddDate(0, 0, -offset)
}

func startOfMonth(t time.Time, loc *time.Location) time.Time {
	start := startOfDay(t, loc)
	return time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, loc)
}

// ParseListPeriod validates a period preset supplied by a caller.
func ParseListPeriod(value string) (ListPeriod, error) {
	switch period := ListPeriod(value); period {
	case ListPeriodNone, ListPeriodDay, ListPeriodWeek, ListPeriodMonth:
		return period, nil
	}
	return "", fieldError("period", "period must be one of day, week, month")
}
