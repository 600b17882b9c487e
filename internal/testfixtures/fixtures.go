package testfixtures

import (
	"strings"
	"sync/atomic"
	"testing"

	"github.com/example/tutor-scheduler/internal/application"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

var studentCounter atomic.Uint64

// StudentOption adjusts a generated StudentInput.
type StudentOption func(*application.StudentInput)

// NewStudentInput returns valid contact details with a unique name and no
// sessions unless options add them.
func NewStudentInput(opts ...StudentOption) application.StudentInput {
	idx := studentCounter.Add(1)
	input := application.StudentInput{
		Name:      "Student " + spellOut(idx),
		StudyYear: "SEC3",
		Phone:     "91234567",
		Email:     "student@example.com",
		Address:   "Blk 123 Clementi Ave 3",
		Subjects:  []string{"MATH"},
	}
	for _, opt := range opts {
		opt(&input)
	}
	return input
}

func WithName(name string) StudentOption {
	return func(in *application.StudentInput) { in.Name = name }
}

// WithSessions adds sessions written as "MON 0900 - 1000".
func WithSessions(canonical ...string) StudentOption {
	return func(in *application.StudentInput) {
		for _, c := range canonical {
			in.Sessions = append(in.Sessions, SessionInput(c))
		}
	}
}

func WithHourlyRate(rate string) StudentOption {
	return func(in *application.StudentInput) { in.HourlyRate = &rate }
}

func WithSubjects(subjects ...string) StudentOption {
	return func(in *application.StudentInput) { in.Subjects = subjects }
}

// SessionInput splits "MON 0900 - 1000" into its parts without validating them.
func SessionInput(canonical string) application.SessionInput {
	fields := strings.Fields(canonical)
	var in application.SessionInput
	if len(fields) > 0 {
		in.Day = fields[0]
	}
	if len(fields) > 1 {
		in.Start = fields[1]
	}
	if len(fields) > 3 {
		in.End = fields[3]
	}
	return in
}

// Session parses a canonical session or fails the test.
func Session(tb testing.TB, canonical string) scheduler.Session {
	tb.Helper()
	s, err := scheduler.ParseSession(canonical)
	if err != nil {
		tb.Fatalf("ParseSession(%q) returned error: %v", canonical, err)
	}
	return s
}

// spellOut keeps generated names inside the letters, digits and spaces a name allows.
func spellOut(n uint64) string {
	const letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	var b strings.Builder
	for {
		b.WriteByte(letters[n%26])
		n /= 26
		if n == 0 {
			break
		}
	}
	return b.String()
}
