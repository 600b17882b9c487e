// Package ics renders the weekly timetable as an iCalendar feed.
package ics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/tutor-scheduler/internal/recurrence"
)

const productID = "-//tutor-scheduler//timetable//EN"

// Builder turns weekly session entries into VEVENTs carrying a weekly RRULE.
type Builder struct {
	engine *recurrence.Engine
	now    func() time.Time
}

// NewBuilder returns a Builder. A nil engine uses the recurrence default zone.
func NewBuilder(engine *recurrence.Engine, now func() time.Time) *Builder {
	if engine == nil {
		engine = recurrence.NewEngine(nil)
	}
	if now == nil {
		now = time.Now
	}
	return &Builder{engine: engine, now: now}
}

// Build creates one recurring event per entry, starting at the first
// occurrence on or after anchor.
func (b *Builder) Build(entries []recurrence.Entry, anchor time.Time) (*ical.Calendar, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)

	stamp := b.now().UTC()
	for _, entry := range entries {
		rule, err := b.engine.Rule(entry.Session, anchor.AddDate(0, 0, -1))
		if err != nil {
			return nil, fmt.Errorf("build rule for %s: %w", entry.Session, err)
		}
		first := rule.After(anchor, true)
		if first.IsZero() {
			continue
		}
		text, err := recurrence.RuleText(entry.Session)
		if err != nil {
			return nil, err
		}

		event := cal.AddEvent(eventUID(entry))
		event.SetDtStampTime(stamp)
		event.SetStartAt(first)
		event.SetEndAt(first.Add(entry.Session.Duration()))
		event.SetSummary(summary(entry))
		event.SetDescription(entry.Session.String())
		event.AddProperty(ical.ComponentPropertyRrule, text)
	}
	return cal, nil
}

// Render serializes the calendar built from entries.
func (b *Builder) Render(entries []recurrence.Entry, anchor time.Time) (string, error) {
	cal, err := b.Build(entries, anchor)
	if err != nil {
		return "", err
	}
	return cal.Serialize(), nil
}

// WriteFile replaces path with content through a temporary file and rename.
func WriteFile(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".timetable-*.ics")
	if err != nil {
		return fmt.Errorf("create temp export: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp export: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp export: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace export: %w", err)
	}
	return nil
}

func eventUID(entry recurrence.Entry) string {
	s := entry.Session
	return fmt.Sprintf("%s-%s-%s-%s@tutor-scheduler", entry.OwnerID, strings.ToLower(s.Day().String()), s.Start().Compact(), s.End().Compact())
}

func summary(entry recurrence.Entry) string {
	if entry.OwnerName == "" {
		return "Lesson"
	}
	return "Lesson: " + entry.OwnerName
}
