package testfixtures

import (
	"log/slog"
	"time"

	"golang.org/x/text/language"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/recurrence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

// ServiceFactory wires the application services over one shared timetable
// with a deterministic clock and id sequence.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Store       *MemoryStudentStore
	Timetable   *application.Timetable
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory.
type ServiceFactoryOption func(*ServiceFactory)

func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator(""),
		Store:       NewMemoryStudentStore(),
		Logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Timetable == nil {
		factory.Timetable = application.NewTimetable(time.Minute, factory.Clock.NowFunc())
	}
	return factory
}

func WithClock(clock *Clock) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Clock = clock }
}

func WithLogger(logger *slog.Logger) ServiceFactoryOption {
	return func(f *ServiceFactory) { f.Logger = logger }
}

func (f *ServiceFactory) NewStudentService() *application.StudentService {
	return application.NewStudentServiceWithLogger(
		f.Store,
		f.Timetable,
		f.IDGenerator.NextFunc(),
		f.Clock.NowFunc(),
		language.English,
		f.Logger,
	)
}

// NewScheduleService places lessons in SGT.
func (f *ServiceFactory) NewScheduleService() *application.ScheduleService {
	return application.NewScheduleService(f.Timetable, recurrence.NewEngine(SGT), f.Clock.NowFunc(), f.Logger)
}

// Held returns every session the timetable holds, one per holder.
func (f *ServiceFactory) Held() []scheduler.Session {
	return f.Timetable.Snapshot()
}
