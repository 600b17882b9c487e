package main

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/persistence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

// studentStoreAdapter exposes a persistence.StudentRepository as the
// application's StudentRepository. Repository errors pass through unchanged
// so the service can map the persistence sentinels.
type studentStoreAdapter struct {
	repo persistence.StudentRepository
}

func newStudentStoreAdapter(repo persistence.StudentRepository) *studentStoreAdapter {
	return &studentStoreAdapter{repo: repo}
}

func (a *studentStoreAdapter) CreateStudent(ctx context.Context, student application.Student) error {
	return a.repo.CreateStudent(ctx, toPersistenceStudent(student))
}

func (a *studentStoreAdapter) UpdateStudent(ctx context.Context, student application.Student) error {
	return a.repo.UpdateStudent(ctx, toPersistenceStudent(student))
}

func (a *studentStoreAdapter) GetStudent(ctx context.Context, id string) (application.Student, error) {
	stored, err := a.repo.GetStudent(ctx, id)
	if err != nil {
		return application.Student{}, err
	}
	return toApplicationStudent(stored)
}

func (a *studentStoreAdapter) ListStudents(ctx context.Context) ([]application.Student, error) {
	models, err := a.repo.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	students := make([]application.Student, 0, len(models))
	for _, model := range models {
		student, err := toApplicationStudent(model)
		if err != nil {
			return nil, err
		}
		students = append(students, student)
	}
	return students, nil
}

func (a *studentStoreAdapter) DeleteStudent(ctx context.Context, id string) error {
	return a.repo.DeleteStudent(ctx, id)
}

func (a *studentStoreAdapter) DeleteAllStudents(ctx context.Context) (int, error) {
	return a.repo.DeleteAllStudents(ctx)
}

func toPersistenceStudent(student application.Student) persistence.Student {
	model := persistence.Student{
		ID:                student.ID,
		Name:              student.Name,
		StudyYear:         student.StudyYear,
		Phone:             student.Phone,
		Email:             student.Email,
		Address:           student.Address,
		Subjects:          append([]string(nil), student.Subjects...),
		PaymentStatus:     string(student.Payment.Status),
		BillingStartDay:   student.Payment.BillingStartDay,
		PaymentStatusDate: student.Payment.StatusDate,
		CreatedAt:         student.CreatedAt,
		UpdatedAt:         student.UpdatedAt,
	}
	if student.HourlyRate != nil {
		rate := student.HourlyRate.String()
		model.HourlyRate = &rate
	}
	for _, s := range student.Sessions {
		model.Sessions = append(model.Sessions, persistence.SessionSlot{
			Day:   s.Day().String(),
			Start: s.Start().Compact(),
			End:   s.End().Compact(),
		})
	}
	return model
}

// toApplicationStudent rebuilds sessions through scheduler.NewSession so a
// row that no longer satisfies the session rules is reported, not loaded.
func toApplicationStudent(model persistence.Student) (application.Student, error) {
	student := application.Student{
		ID:        model.ID,
		Name:      model.Name,
		StudyYear: model.StudyYear,
		Phone:     model.Phone,
		Email:     model.Email,
		Address:   model.Address,
		Subjects:  append([]string(nil), model.Subjects...),
		Payment: application.Payment{
			Status:          application.PaymentStatus(model.PaymentStatus),
			BillingStartDay: model.BillingStartDay,
			StatusDate:      model.PaymentStatusDate,
		},
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
	if model.HourlyRate != nil {
		rate, err := decimal.NewFromString(*model.HourlyRate)
		if err != nil {
			return application.Student{}, fmt.Errorf("student %s: stored hourly rate %q: %w", model.ID, *model.HourlyRate, err)
		}
		student.HourlyRate = &rate
	}
	for _, slot := range model.Sessions {
		s, err := scheduler.NewSession(slot.Day, slot.Start, slot.End)
		if err != nil {
			return application.Student{}, fmt.Errorf("student %s: stored session: %w", model.ID, err)
		}
		student.Sessions = append(student.Sessions, s)
	}
	slices.SortFunc(student.Sessions, scheduler.Session.Compare)
	return student, nil
}

// formatStamp renders a UTC timestamp for CLI output.
func formatStamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}
