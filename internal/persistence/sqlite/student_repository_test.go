package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/tutor-scheduler/internal/persistence"
)

func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	ctx := context.Background()
	storage, err := Open(ctx, filepath.Join(t.TempDir(), "students.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { storage.Close() })
	if _, err := storage.Migrate(ctx, nil); err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	return storage
}

func sampleStudent(id, name string) persistence.Student {
	rate := "45.50"
	return persistence.Student{
		ID:              id,
		Name:            name,
		StudyYear:       "SEC3",
		Phone:           "91234567",
		Email:           "student@example.com",
		Address:         "1 Jurong West Street 41",
		Subjects:        []string{"MATH", "PHY"},
		PaymentStatus:   "PENDING",
		BillingStartDay: 5,
		HourlyRate:      &rate,
		Sessions: []persistence.SessionSlot{
			{Day: "MON", Start: "0900", End: "1000"},
			{Day: "THU", Start: "1600", End: "1730"},
		},
	}
}

func TestStudentRepositoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := openTestStorage(t)

	student := sampleStudent("s-1", "Alex Yeoh")
	if err := storage.CreateStudent(ctx, student); err != nil {
		t.Fatalf("CreateStudent returned error: %v", err)
	}

	got, err := storage.GetStudent(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetStudent returned error: %v", err)
	}
	if got.Name != "Alex Yeoh" || got.StudyYear != "SEC3" || got.BillingStartDay != 5 {
		t.Fatalf("unexpected student %+v", got)
	}
	if len(got.Subjects) != 2 || got.Subjects[0] != "MATH" || got.Subjects[1] != "PHY" {
		t.Fatalf("expected subjects in insertion order, got %v", got.Subjects)
	}
	if len(got.Sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %v", got.Sessions)
	}
	if got.HourlyRate == nil || *got.HourlyRate != "45.50" {
		t.Fatalf("expected hourly rate 45.50, got %v", got.HourlyRate)
	}
	if got.CreatedAt.IsZero() || !got.PaymentStatusDate.IsZero() {
		t.Fatalf("unexpected timestamps created=%v status=%v", got.CreatedAt, got.PaymentStatusDate)
	}
}

func TestStudentRepositoryUpdateReplacesChildren(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := openTestStorage(t)

	student := sampleStudent("s-1", "Alex Yeoh")
	if err := storage.CreateStudent(ctx, student); err != nil {
		t.Fatalf("CreateStudent returned error: %v", err)
	}

	statusDate := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	student.Subjects = []string{"CHEM"}
	student.Sessions = []persistence.SessionSlot{{Day: "SAT", Start: "1000", End: "1200"}}
	student.PaymentStatus = "OVERDUE"
	student.PaymentStatusDate = statusDate
	student.HourlyRate = nil
	if err := storage.UpdateStudent(ctx, student); err != nil {
		t.Fatalf("UpdateStudent returned error: %v", err)
	}

	got, err := storage.GetStudent(ctx, "s-1")
	if err != nil {
		t.Fatalf("GetStudent returned error: %v", err)
	}
	if len(got.Subjects) != 1 || got.Subjects[0] != "CHEM" {
		t.Fatalf("expected subjects replaced, got %v", got.Subjects)
	}
	if len(got.Sessions) != 1 || got.Sessions[0].Day != "SAT" {
		t.Fatalf("expected sessions replaced, got %v", got.Sessions)
	}
	if got.PaymentStatus != "OVERDUE" || !got.PaymentStatusDate.Equal(statusDate) {
		t.Fatalf("unexpected payment %s %v", got.PaymentStatus, got.PaymentStatusDate)
	}
	if got.HourlyRate != nil {
		t.Fatalf("expected hourly rate cleared, got %v", *got.HourlyRate)
	}

	if err := storage.UpdateStudent(ctx, sampleStudent("missing", "Nobody")); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStudentRepositoryConstraints(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := openTestStorage(t)

	if err := storage.CreateStudent(ctx, sampleStudent("s-1", "Alex Yeoh")); err != nil {
		t.Fatalf("CreateStudent returned error: %v", err)
	}

	tests := []struct {
		name    string
		student persistence.Student
		wantErr error
	}{
		{name: "same id", student: sampleStudent("s-1", "Someone Else"), wantErr: persistence.ErrDuplicate},
		{name: "same name different case", student: sampleStudent("s-2", "alex  yeoh"), wantErr: persistence.ErrDuplicate},
		{name: "missing id", student: sampleStudent("", "Blank Id"), wantErr: persistence.ErrConstraintViolation},
		{
			name: "bad payment status",
			student: func() persistence.Student {
				s := sampleStudent("s-3", "Bad Status")
				s.PaymentStatus = "LATE"
				return s
			}(),
			wantErr: persistence.ErrConstraintViolation,
		},
	}

	for _, tc := range tests {
		if err := storage.CreateStudent(ctx, tc.student); !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	if _, err := storage.GetStudent(ctx, "s-3"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected failed insert to leave nothing behind, got %v", err)
	}
}

func TestStudentRepositoryListAndDelete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := openTestStorage(t)

	for i, name := range []string{"Alex Yeoh", "Bernice Tan", "Chandra Pillai"} {
		s := sampleStudent(string(rune('a'+i)), name)
		s.CreatedAt = time.Date(2024, 1, 1, 0, 0, i, 0, time.UTC)
		if err := storage.CreateStudent(ctx, s); err != nil {
			t.Fatalf("CreateStudent(%s) returned error: %v", name, err)
		}
	}

	students, err := storage.ListStudents(ctx)
	if err != nil {
		t.Fatalf("ListStudents returned error: %v", err)
	}
	if len(students) != 3 || students[0].Name != "Alex Yeoh" || students[2].Name != "Chandra Pillai" {
		t.Fatalf("unexpected list %+v", students)
	}
	for _, s := range students {
		if len(s.Sessions) != 2 || len(s.Subjects) != 2 {
			t.Fatalf("expected children loaded for %s, got %d sessions %d subjects", s.Name, len(s.Sessions), len(s.Subjects))
		}
	}

	if err := storage.DeleteStudent(ctx, "b"); err != nil {
		t.Fatalf("DeleteStudent returned error: %v", err)
	}
	if err := storage.DeleteStudent(ctx, "b"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}

	deleted, err := storage.DeleteAllStudents(ctx)
	if err != nil {
		t.Fatalf("DeleteAllStudents returned error: %v", err)
	}
	if deleted != 2 {
		t.Fatalf("expected 2 deleted, got %d", deleted)
	}
	var sessions int
	if err := storage.pool.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM student_sessions`).Scan(&sessions); err != nil {
		t.Fatalf("count sessions: %v", err)
	}
	if sessions != 0 {
		t.Fatalf("expected sessions to cascade, %d remain", sessions)
	}
}

func TestStorageMigrateIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	storage := openTestStorage(t)

	applied, err := storage.Migrate(ctx, nil)
	if err != nil {
		t.Fatalf("Migrate returned error: %v", err)
	}
	if len(applied) != 0 {
		t.Fatalf("expected nothing to apply on second run, got %v", applied)
	}
	status, err := storage.MigrationStatus(ctx)
	if err != nil {
		t.Fatalf("MigrationStatus returned error: %v", err)
	}
	if status.CurrentVersion != "003" || len(status.Pending) != 0 {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestErrorMapperPassesThroughUnknownErrors(t *testing.T) {
	t.Parallel()

	mapper := NewErrorMapper()
	plain := errors.New("disk on fire")
	if got := mapper.MapError(plain); got != plain {
		t.Fatalf("expected unknown error unchanged, got %v", got)
	}
	if got := mapper.MapError(errors.New("UNIQUE constraint failed: students.name_key")); !errors.Is(got, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", got)
	}
	if mapper.MapError(nil) != nil {
		t.Fatalf("expected nil for nil")
	}
}
