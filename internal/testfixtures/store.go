package testfixtures

import (
	"context"
	"slices"
	"sync"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/persistence"
)

// MemoryStudentStore is an in-memory application.StudentRepository that
// reports the same sentinels as the SQLite store.
type MemoryStudentStore struct {
	mu       sync.Mutex
	students map[string]application.Student
	order    []string
	failNext error
}

func NewMemoryStudentStore() *MemoryStudentStore {
	return &MemoryStudentStore{students: make(map[string]application.Student)}
}

// FailNext makes the next write return err.
func (m *MemoryStudentStore) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

// Len reports how many students are stored.
func (m *MemoryStudentStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.students)
}

func (m *MemoryStudentStore) takeFailure() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MemoryStudentStore) CreateStudent(ctx context.Context, student application.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.students[student.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.students[student.ID] = copyStudent(student)
	m.order = append(m.order, student.ID)
	return nil
}

func (m *MemoryStudentStore) UpdateStudent(ctx context.Context, student application.Student) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.students[student.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.students[student.ID] = copyStudent(student)
	return nil
}

func (m *MemoryStudentStore) GetStudent(ctx context.Context, id string) (application.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	student, ok := m.students[id]
	if !ok {
		return application.Student{}, persistence.ErrNotFound
	}
	return copyStudent(student), nil
}

func (m *MemoryStudentStore) ListStudents(ctx context.Context) ([]application.Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]application.Student, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, copyStudent(m.students[id]))
	}
	return out, nil
}

func (m *MemoryStudentStore) DeleteStudent(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return err
	}
	if _, ok := m.students[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.students, id)
	m.order = slices.DeleteFunc(m.order, func(other string) bool { return other == id })
	return nil
}

func (m *MemoryStudentStore) DeleteAllStudents(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFailure(); err != nil {
		return 0, err
	}
	n := len(m.students)
	m.students = make(map[string]application.Student)
	m.order = nil
	return n, nil
}

func copyStudent(s application.Student) application.Student {
	out := s
	out.Subjects = slices.Clone(s.Subjects)
	out.Sessions = slices.Clone(s.Sessions)
	if s.HourlyRate != nil {
		rate := *s.HourlyRate
		out.HourlyRate = &rate
	}
	return out
}
