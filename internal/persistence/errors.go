package persistence

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrDuplicate indicates a uniqueness constraint was violated.
	ErrDuplicate = errors.New("persistence: duplicate")
	// ErrConstraintViolation indicates a check or not-null constraint was violated.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation indicates a referenced record is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)
