package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/example/tutor-scheduler/internal/persistence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

// StudentRepository captures the persistence operations needed by the student service.
type StudentRepository interface {
	CreateStudent(ctx context.Context, student Student) error
	UpdateStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	DeleteStudent(ctx context.Context, id string) error
	DeleteAllStudents(ctx context.Context) (int, error)
}

// StudentService keeps student records and the shared timetable in step.
type StudentService struct {
	students    StudentRepository
	timetable   *Timetable
	idGenerator func() string
	now         func() time.Time
	language    language.Tag
	logger      *slog.Logger
}

// NewStudentService wires dependencies for student operations. A nil
// idGenerator produces random UUIDs.
func NewStudentService(students StudentRepository, timetable *Timetable, idGenerator func() string, now func() time.Time) *StudentService {
	return NewStudentServiceWithLogger(students, timetable, idGenerator, now, language.English, nil)
}

// NewStudentServiceWithLogger wires dependencies with a collation language and logger.
func NewStudentServiceWithLogger(students StudentRepository, timetable *Timetable, idGenerator func() string, now func() time.Time, lang language.Tag, logger *slog.Logger) *StudentService {
	if idGenerator == nil {
		idGenerator = uuid.NewString
	}
	if now == nil {
		now = time.Now
	}
	if timetable == nil {
		timetable = NewTimetable(0, now)
	}
	return &StudentService{
		students:    students,
		timetable:   timetable,
		idGenerator: idGenerator,
		now:         now,
		language:    lang,
		logger:      defaultLogger(logger),
	}
}

// LoadTimetable rebuilds the timetable from every stored student.
func (s *StudentService) LoadTimetable(ctx context.Context) error {
	logger := serviceLogger(ctx, s.logger, "StudentService", "LoadTimetable")

	students, err := s.students.ListStudents(ctx)
	if err != nil {
		logFailure(ctx, logger, "failed to load students", err)
		return fmt.Errorf("load timetable: %w", mapRepoError(err))
	}

	s.timetable.mu.Lock()
	s.timetable.reloadLocked(students)
	s.timetable.mu.Unlock()

	logger.InfoContext(ctx, "timetable loaded", "students", len(students))
	return nil
}

// CreateStudent validates input, reserves the student's sessions and stores the record.
func (s *StudentService) CreateStudent(ctx context.Context, input StudentInput) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "CreateStudent")

	normalized := normalizeStudentInput(input)
	if vErr := validateStudentInput(normalized); vErr.HasErrors() {
		logFailure(ctx, logger, "student validation failed", vErr)
		return Student{}, vErr
	}
	sessions, err := parseSessions(normalized.Sessions)
	if err != nil {
		logFailure(ctx, logger, "session validation failed", err)
		return Student{}, err
	}

	now := s.now()
	student := Student{
		ID:        s.idGenerator(),
		Name:      normalized.Name,
		StudyYear: normalized.StudyYear,
		Phone:     normalized.Phone,
		Email:     normalized.Email,
		Address:   normalized.Address,
		Subjects:  normalized.Subjects,
		Payment:   Payment{Status: PaymentPending, BillingStartDay: DefaultBillingStartDay, StatusDate: now},
		Sessions:  sortedSessions(sessions),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if normalized.HourlyRate != nil {
		rate, _ := parseHourlyRate(*normalized.HourlyRate)
		student.HourlyRate = &rate
	}

	s.timetable.mu.Lock()
	defer s.timetable.mu.Unlock()

	if s.timetable.nameTakenLocked(student.ID, student.Name) {
		err := fmt.Errorf("%w: student %q", ErrAlreadyExists, student.Name)
		logFailure(ctx, logger, "duplicate student", err)
		return Student{}, err
	}

	err = s.timetable.commitLocked(student.ID, student.Name, student.Sessions, false, func() error {
		return mapRepoError(s.students.CreateStudent(ctx, student))
	})
	if err != nil {
		logFailure(ctx, logger, "failed to create student", err)
		return Student{}, err
	}

	logger.InfoContext(ctx, "student created", "student_id", student.ID, "sessions", len(student.Sessions))
	return student.clone(), nil
}

// UpdateStudent applies patch. Supplying Sessions replaces the whole set.
func (s *StudentService) UpdateStudent(ctx context.Context, id string, patch StudentPatch) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "UpdateStudent", "student_id", id)

	var next []scheduler.Session
	if patch.Sessions != nil {
		parsed, err := parseSessions(*patch.Sessions)
		if err != nil {
			logFailure(ctx, logger, "session validation failed", err)
			return Student{}, err
		}
		next = parsed
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		vErr := &ValidationError{}
		if patch.Name != nil {
			student.Name = normalizeName(*patch.Name)
			validateName(student.Name, vErr)
		}
		if patch.StudyYear != nil {
			student.StudyYear = strings.ToUpper(strings.TrimSpace(*patch.StudyYear))
			validateStudyYear(student.StudyYear, vErr)
		}
		if patch.Phone != nil {
			student.Phone = strings.TrimSpace(*patch.Phone)
			validatePhone(student.Phone, vErr)
		}
		if patch.Email != nil {
			student.Email = strings.TrimSpace(*patch.Email)
			validateEmail(student.Email, vErr)
		}
		if patch.Address != nil {
			student.Address = strings.TrimSpace(*patch.Address)
			validateAddress(student.Address, vErr)
		}
		if vErr.HasErrors() {
			return nil, vErr
		}
		if patch.Sessions == nil {
			return student.Sessions, nil
		}
		return next, nil
	})
}

// AddSession adds one weekly session to a student.
func (s *StudentService) AddSession(ctx context.Context, id string, input SessionInput) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "AddSession", "student_id", id)

	session, err := scheduler.NewSession(input.Day, input.Start, input.End)
	if err != nil {
		logFailure(ctx, logger, "session validation failed", err)
		return Student{}, err
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		if slices.Contains(student.Sessions, session) {
			return nil, fmt.Errorf("%w: %s already has session %s", ErrAlreadyExists, student.Name, session)
		}
		return append(slices.Clone(student.Sessions), session), nil
	})
}

// RemoveSession removes one weekly session from a student.
func (s *StudentService) RemoveSession(ctx context.Context, id string, input SessionInput) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "RemoveSession", "student_id", id)

	session, err := scheduler.NewSession(input.Day, input.Start, input.End)
	if err != nil {
		logFailure(ctx, logger, "session validation failed", err)
		return Student{}, err
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		i := slices.Index(student.Sessions, session)
		if i < 0 {
			return nil, fmt.Errorf("%w: %s has no session %s", ErrNotFound, student.Name, session)
		}
		return slices.Delete(slices.Clone(student.Sessions), i, i+1), nil
	})
}

// SetPayment records a payment status and, when billingDay is non-nil, a new billing day.
func (s *StudentService) SetPayment(ctx context.Context, id, status string, billingDay *int) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "SetPayment", "student_id", id)

	parsed, err := parsePaymentStatus(status)
	if err != nil {
		logFailure(ctx, logger, "payment validation failed", err)
		return Student{}, err
	}
	if billingDay != nil && (*billingDay < 1 || *billingDay > 31) {
		err := fieldError("billing_start_day", "billing start day must be an integer between 1 and 31")
		logFailure(ctx, logger, "payment validation failed", err)
		return Student{}, err
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		day := DefaultBillingStartDay
		if billingDay != nil {
			day = *billingDay
		}
		student.Payment = Payment{Status: parsed, BillingStartDay: day, StatusDate: s.now()}
		return student.Sessions, nil
	})
}

// AddSubject tags a student with a subject from the vocabulary.
func (s *StudentService) AddSubject(ctx context.Context, id, subject string) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "AddSubject", "student_id", id)

	subject = normalizeSubject(subject)
	if !slices.Contains(Subjects, subject) {
		err := fieldError("subject", fmt.Sprintf("subject must be one of %s", strings.Join(Subjects, ", ")))
		logFailure(ctx, logger, "subject validation failed", err)
		return Student{}, err
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		if slices.Contains(student.Subjects, subject) {
			return nil, fmt.Errorf("%w: %s already has subject %s", ErrAlreadyExists, student.Name, subject)
		}
		student.Subjects = append(slices.Clone(student.Subjects), subject)
		return student.Sessions, nil
	})
}

// SetHourlyRate sets the rate, or clears it when rate is nil.
func (s *StudentService) SetHourlyRate(ctx context.Context, id string, rate *string) (Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "SetHourlyRate", "student_id", id)

	var parsed *decimal.Decimal
	if rate != nil {
		value, err := parseHourlyRate(*rate)
		if err != nil {
			logFailure(ctx, logger, "rate validation failed", err)
			return Student{}, err
		}
		parsed = &value
	}

	return s.mutate(ctx, logger, id, func(student *Student) ([]scheduler.Session, error) {
		student.HourlyRate = parsed
		return student.Sessions, nil
	})
}

// DeleteStudent releases the student's sessions and removes the record.
func (s *StudentService) DeleteStudent(ctx context.Context, id string) error {
	logger := serviceLogger(ctx, s.logger, "StudentService", "DeleteStudent", "student_id", id)

	s.timetable.mu.Lock()
	defer s.timetable.mu.Unlock()

	existing, err := s.students.GetStudent(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, logger, "failed to load student", err)
		return err
	}

	err = s.timetable.commitLocked(id, existing.Name, nil, true, func() error {
		return mapRepoError(s.students.DeleteStudent(ctx, id))
	})
	if err != nil {
		logFailure(ctx, logger, "failed to delete student", err)
		return err
	}

	logger.InfoContext(ctx, "student deleted")
	return nil
}

// GetStudent returns one student.
func (s *StudentService) GetStudent(ctx context.Context, id string) (Student, error) {
	student, err := s.students.GetStudent(ctx, id)
	if err != nil {
		return Student{}, mapRepoError(err)
	}
	return student, nil
}

// ListStudents returns the students matching filter ordered by name under the
// service's collation.
func (s *StudentService) ListStudents(ctx context.Context, filter StudentFilter) ([]Student, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "ListStudents")

	students, err := s.students.ListStudents(ctx)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, logger, "failed to list students", err)
		return nil, err
	}

	keywords := make([]string, 0, len(filter.Keywords))
	for _, k := range filter.Keywords {
		keywords = append(keywords, strings.Fields(k)...)
	}

	out := make([]Student, 0, len(students))
	for _, student := range students {
		if matchesKeywords(student.Name, keywords) {
			out = append(out, student)
		}
	}

	collator := collate.New(s.language, collate.IgnoreCase)
	slices.SortStableFunc(out, func(a, b Student) int {
		if c := collator.CompareString(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out, nil
}

// Clear deletes every student and empties the timetable.
func (s *StudentService) Clear(ctx context.Context) (int, error) {
	logger := serviceLogger(ctx, s.logger, "StudentService", "Clear")

	s.timetable.mu.Lock()
	defer s.timetable.mu.Unlock()

	deleted, err := s.students.DeleteAllStudents(ctx)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, logger, "failed to clear students", err)
		return 0, err
	}
	s.timetable.reloadLocked(nil)

	logger.InfoContext(ctx, "students cleared", "deleted", deleted)
	return deleted, nil
}

// mutate loads the student under the timetable lock, lets change edit the
// record and choose the next session set, then commits both.
func (s *StudentService) mutate(ctx context.Context, logger *slog.Logger, id string, change func(*Student) ([]scheduler.Session, error)) (Student, error) {
	s.timetable.mu.Lock()
	defer s.timetable.mu.Unlock()

	existing, err := s.students.GetStudent(ctx, id)
	if err != nil {
		err = mapRepoError(err)
		logFailure(ctx, logger, "failed to load student", err)
		return Student{}, err
	}

	updated := existing.clone()
	next, err := change(&updated)
	if err != nil {
		logFailure(ctx, logger, "update rejected", err)
		return Student{}, err
	}
	if s.timetable.nameTakenLocked(id, updated.Name) {
		err := fmt.Errorf("%w: student %q", ErrAlreadyExists, updated.Name)
		logFailure(ctx, logger, "duplicate student", err)
		return Student{}, err
	}
	updated.Sessions = sortedSessions(next)
	updated.UpdatedAt = s.now()

	err = s.timetable.commitLocked(id, updated.Name, updated.Sessions, false, func() error {
		return mapRepoError(s.students.UpdateStudent(ctx, updated))
	})
	if err != nil {
		logFailure(ctx, logger, "failed to update student", err)
		return Student{}, err
	}

	logger.InfoContext(ctx, "student updated", "sessions", len(updated.Sessions))
	return updated.clone(), nil
}

func matchesKeywords(name string, keywords []string) bool {
	if len(keywords) == 0 {
		return true
	}
	for _, word := range strings.Fields(name) {
		for _, keyword := range keywords {
			if strings.EqualFold(word, keyword) {
				return true
			}
		}
	}
	return false
}

func mapRepoError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, persistence.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, persistence.ErrDuplicate):
		return fmt.Errorf("%w: %v", ErrAlreadyExists, err)
	case errors.Is(err, persistence.ErrConstraintViolation):
		return &ValidationError{FieldErrors: map[string]string{"record": err.Error()}}
	}
	return err
}
