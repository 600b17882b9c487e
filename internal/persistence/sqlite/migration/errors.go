package migration

import (
	"errors"
	"fmt"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file format")
	ErrInvalidVersion       = errors.New("invalid migration version")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied migration file was edited afterwards.
	ErrChecksumMismatch = errors.New("applied migration checksum mismatch")
	// ErrUnknownVersion means the database records a version no file provides.
	ErrUnknownVersion = errors.New("applied migration has no matching file")
)

// MigrationError names the migration and step (scan, execute, verify applied)
// a failure happened in.
type MigrationError struct {
	Version   string
	FilePath  string
	Operation string
	Err       error
}

func (e *MigrationError) Error() string {
	subject := e.FilePath
	if e.Version != "" {
		subject = e.Version + " (" + e.FilePath + ")"
	}
	return fmt.Sprintf("migration %s %s: %v", subject, e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is matches any *MigrationError, so callers can test for the type with errors.Is.
func (e *MigrationError) Is(target error) bool {
	_, ok := target.(*MigrationError)
	return ok
}

func NewMigrationError(version, filePath, operation string, err error) *MigrationError {
	return &MigrationError{Version: version, FilePath: filePath, Operation: operation, Err: err}
}
