package persistence

import "context"

// StudentRepository stores students together with their subjects and weekly sessions.
type StudentRepository interface {
	CreateStudent(ctx context.Context, student Student) error
	UpdateStudent(ctx context.Context, student Student) error
	GetStudent(ctx context.Context, id string) (Student, error)
	ListStudents(ctx context.Context) ([]Student, error)
	DeleteStudent(ctx context.Context, id string) error
	DeleteAllStudents(ctx context.Context) (int, error)
}
