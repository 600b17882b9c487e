package scheduler

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSession is returned when a session violates a day, time, duration or window rule.
	ErrInvalidSession = errors.New("scheduler: invalid session")
	// ErrSessionNotFound is returned when removing a session the registry does not hold.
	ErrSessionNotFound = errors.New("scheduler: session not found")
	// ErrOverlappingSessions is returned when a candidate session set conflicts with itself or the registry.
	ErrOverlappingSessions = errors.New("scheduler: overlapping sessions")
	// ErrNoFreeTime is returned when no day of the week can fit the requested duration.
	ErrNoFreeTime = errors.New("scheduler: no free time")
	// ErrInvalidDuration is returned when a free slot search is asked for a non-positive duration.
	ErrInvalidDuration = errors.New("scheduler: duration must be positive")
)

// Session field names reported by InvalidSessionError.
const (
	FieldDay      = "day"
	FieldStart    = "start"
	FieldEnd      = "end"
	FieldDuration = "duration"
	FieldWindow   = "window"
	FieldSession  = "session"
)

// InvalidSessionError names the session field that failed validation and the rule it broke.
type InvalidSessionError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidSessionError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid session %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid session %s %q: %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidSession.
func (e *InvalidSessionError) Is(target error) bool {
	return target == ErrInvalidSession
}

func invalid(field, value, reason string) error {
	return &InvalidSessionError{Field: field, Value: value, Reason: reason}
}
