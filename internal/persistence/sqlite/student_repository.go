package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/example/tutor-scheduler/internal/persistence"
)

// timestampLayout keeps a fixed fraction width so stored values sort lexically.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const studentColumns = `id, name, study_year, phone, email, address, payment_status,
	billing_start_day, payment_status_date, hourly_rate, created_at, updated_at`

// StudentRepository implements persistence.StudentRepository using SQLite
type StudentRepository struct {
	pool   *ConnectionPool
	mapper *ErrorMapper
	now    func() time.Time
}

// NewStudentRepository creates a new SQLite student repository
func NewStudentRepository(pool *ConnectionPool) *StudentRepository {
	return &StudentRepository{
		pool:   pool,
		mapper: NewErrorMapper(),
		now:    time.Now,
	}
}

// CreateStudent inserts the student with its subjects and sessions
func (r *StudentRepository) CreateStudent(ctx context.Context, student persistence.Student) error {
	if student.ID == "" {
		return persistence.ErrConstraintViolation
	}

	now := r.now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = now
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO students (id, name, name_key, study_year, phone, email, address, payment_status,
				billing_start_day, payment_status_date, hourly_rate, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			student.ID,
			student.Name,
			nameKey(student.Name),
			student.StudyYear,
			student.Phone,
			student.Email,
			student.Address,
			paymentStatus(student.PaymentStatus),
			billingDay(student.BillingStartDay),
			formatOptionalTime(student.PaymentStatusDate),
			nullString(student.HourlyRate),
			formatTime(student.CreatedAt),
			formatTime(student.UpdatedAt),
		); err != nil {
			return r.mapper.MapError(err)
		}
		return r.writeChildren(ctx, tx, student)
	})
}

// UpdateStudent overwrites the student row and replaces its subjects and sessions
func (r *StudentRepository) UpdateStudent(ctx context.Context, student persistence.Student) error {
	if student.ID == "" {
		return persistence.ErrNotFound
	}
	if student.UpdatedAt.IsZero() {
		student.UpdatedAt = r.now().UTC()
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		const query = `
			UPDATE students
			SET name = ?, name_key = ?, study_year = ?, phone = ?, email = ?, address = ?,
				payment_status = ?, billing_start_day = ?, payment_status_date = ?, hourly_rate = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			student.Name,
			nameKey(student.Name),
			student.StudyYear,
			student.Phone,
			student.Email,
			student.Address,
			paymentStatus(student.PaymentStatus),
			billingDay(student.BillingStartDay),
			formatOptionalTime(student.PaymentStatusDate),
			nullString(student.HourlyRate),
			formatTime(student.UpdatedAt),
			student.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM student_subjects WHERE student_id = ?`, student.ID); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM student_sessions WHERE student_id = ?`, student.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return r.writeChildren(ctx, tx, student)
	})
}

// GetStudent retrieves a student by ID
func (r *StudentRepository) GetStudent(ctx context.Context, id string) (persistence.Student, error) {
	if id == "" {
		return persistence.Student{}, persistence.ErrNotFound
	}

	var student persistence.Student
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+studentColumns+` FROM students WHERE id = ?`, id)
		s, err := scanStudent(row)
		if err != nil {
			return r.mapper.MapError(err)
		}

		students := []persistence.Student{s}
		if err := r.loadChildren(ctx, tx, students, `WHERE student_id = ?`, id); err != nil {
			return err
		}
		student = students[0]
		return nil
	})
	if err != nil {
		return persistence.Student{}, err
	}
	return student, nil
}

// ListStudents returns every student ordered by creation time
func (r *StudentRepository) ListStudents(ctx context.Context) ([]persistence.Student, error) {
	var students []persistence.Student
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT `+studentColumns+` FROM students ORDER BY created_at, id`)
		if err != nil {
			return r.mapper.MapError(err)
		}
		defer rows.Close()

		students = students[:0]
		for rows.Next() {
			s, err := scanStudent(rows)
			if err != nil {
				return fmt.Errorf("failed to scan student: %w", err)
			}
			students = append(students, s)
		}
		if err := rows.Err(); err != nil {
			return r.mapper.MapError(err)
		}
		if len(students) == 0 {
			return nil
		}
		return r.loadChildren(ctx, tx, students, "")
	})
	if err != nil {
		return nil, err
	}
	return students, nil
}

// DeleteStudent removes a student; subjects and sessions cascade
func (r *StudentRepository) DeleteStudent(ctx context.Context, id string) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM students WHERE id = ?`, id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

// DeleteAllStudents removes every student and reports how many were deleted
func (r *StudentRepository) DeleteAllStudents(ctx context.Context) (int, error) {
	var deleted int
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `DELETE FROM students`)
		if err != nil {
			return r.mapper.MapError(err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		deleted = int(affected)
		return nil
	})
	return deleted, err
}

func (r *StudentRepository) writeChildren(ctx context.Context, tx *sql.Tx, student persistence.Student) error {
	for i, subject := range student.Subjects {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_subjects (student_id, subject, position) VALUES (?, ?, ?)`,
			student.ID, subject, i,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	for _, slot := range student.Sessions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO student_sessions (student_id, day, start_time, end_time) VALUES (?, ?, ?, ?)`,
			student.ID, slot.Day, slot.Start, slot.End,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// loadChildren fills subjects and sessions for the given students. where and
// args narrow both child queries.
func (r *StudentRepository) loadChildren(ctx context.Context, tx *sql.Tx, students []persistence.Student, where string, args ...any) error {
	index := make(map[string]int, len(students))
	for i := range students {
		index[students[i].ID] = i
	}

	subjectRows, err := tx.QueryContext(ctx,
		`SELECT student_id, subject FROM student_subjects `+where+` ORDER BY student_id, position`, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer subjectRows.Close()
	for subjectRows.Next() {
		var id, subject string
		if err := subjectRows.Scan(&id, &subject); err != nil {
			return fmt.Errorf("failed to scan subject: %w", err)
		}
		if i, ok := index[id]; ok {
			students[i].Subjects = append(students[i].Subjects, subject)
		}
	}
	if err := subjectRows.Err(); err != nil {
		return r.mapper.MapError(err)
	}

	sessionRows, err := tx.QueryContext(ctx,
		`SELECT student_id, day, start_time, end_time FROM student_sessions `+where, args...)
	if err != nil {
		return r.mapper.MapError(err)
	}
	defer sessionRows.Close()
	for sessionRows.Next() {
		var id string
		var slot persistence.SessionSlot
		if err := sessionRows.Scan(&id, &slot.Day, &slot.Start, &slot.End); err != nil {
			return fmt.Errorf("failed to scan session: %w", err)
		}
		if i, ok := index[id]; ok {
			students[i].Sessions = append(students[i].Sessions, slot)
		}
	}
	return r.mapper.MapError(sessionRows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (persistence.Student, error) {
	var (
		s                    persistence.Student
		statusDate, rate     sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(
		&s.ID,
		&s.Name,
		&s.StudyYear,
		&s.Phone,
		&s.Email,
		&s.Address,
		&s.PaymentStatus,
		&s.BillingStartDay,
		&statusDate,
		&rate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Student{}, err
	}

	var err error
	if statusDate.Valid && statusDate.String != "" {
		if s.PaymentStatusDate, err = time.Parse(time.RFC3339Nano, statusDate.String); err != nil {
			return persistence.Student{}, fmt.Errorf("failed to parse payment_status_date: %w", err)
		}
	}
	if rate.Valid {
		value := rate.String
		s.HourlyRate = &value
	}
	if s.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return persistence.Student{}, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if s.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return persistence.Student{}, fmt.Errorf("failed to parse updated_at: %w", err)
	}
	return s, nil
}

func nameKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

func paymentStatus(status string) string {
	if status == "" {
		return "PENDING"
	}
	return status
}

func billingDay(day int) int {
	if day == 0 {
		return 1
	}
	return day
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

func formatOptionalTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return formatTime(t)
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
