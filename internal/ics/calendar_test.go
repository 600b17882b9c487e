package ics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/teambition/rrule-go"

	"github.com/example/tutor-scheduler/internal/recurrence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

var sgt = time.FixedZone("SGT", 8*60*60)

func mustSession(t testing.TB, canonical string) scheduler.Session {
	t.Helper()
	s, err := scheduler.ParseSession(canonical)
	if err != nil {
		t.Fatalf("ParseSession(%q) returned error: %v", canonical, err)
	}
	return s
}

func TestBuilderRenderRoundTrip(t *testing.T) {
	t.Parallel()

	stamp := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	builder := NewBuilder(recurrence.NewEngine(sgt), func() time.Time { return stamp })
	entries := []recurrence.Entry{
		{OwnerID: "s-1", OwnerName: "Alex Tan", Session: mustSession(t, "WED 1530 - 1700")},
		{OwnerID: "s-2", OwnerName: "Bea Lim", Session: mustSession(t, "MON 0900 - 1000")},
	}
	// 2024-03-04 is a Monday.
	anchor := time.Date(2024, time.March, 4, 10, 0, 0, 0, sgt)

	content, err := builder.Render(entries, anchor)
	if err != nil {
		t.Fatalf("Render returned error: %v", err)
	}

	cal, err := ical.ParseCalendar(strings.NewReader(content))
	if err != nil {
		t.Fatalf("ParseCalendar returned error: %v", err)
	}
	events := cal.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}

	for _, ev := range events {
		uid := ev.GetProperty(ical.ComponentPropertyUniqueId)
		if uid == nil || !strings.HasSuffix(uid.Value, "@tutor-scheduler") {
			t.Fatalf("unexpected UID property: %+v", uid)
		}
		prop := ev.GetProperty(ical.ComponentPropertyRrule)
		if prop == nil {
			t.Fatalf("event %s has no RRULE", uid.Value)
		}
		rule, err := rrule.StrToRRule(prop.Value)
		if err != nil {
			t.Fatalf("RRULE %q does not parse: %v", prop.Value, err)
		}
		if rule.OrigOptions.Freq != rrule.WEEKLY {
			t.Fatalf("expected weekly rule, got %v", rule.OrigOptions.Freq)
		}

		start, err := ev.GetStartAt()
		if err != nil {
			t.Fatalf("GetStartAt returned error: %v", err)
		}
		if start.Before(anchor) {
			t.Fatalf("event %s starts %v before anchor %v", uid.Value, start, anchor)
		}
	}

	// Monday 09:00 already passed at the anchor, so the first lesson is the following week.
	for _, ev := range events {
		if uid := ev.GetProperty(ical.ComponentPropertyUniqueId); uid == nil || !strings.HasPrefix(uid.Value, "s-2-") {
			continue
		}
		start, _ := ev.GetStartAt()
		want := time.Date(2024, time.March, 11, 9, 0, 0, 0, sgt)
		if !start.Equal(want) {
			t.Fatalf("expected first Monday lesson at %v, got %v", want, start)
		}
	}
}

type stubSource struct {
	entries []recurrence.Entry
	err     error
}

func (s stubSource) CalendarEntries(ctx context.Context) ([]recurrence.Entry, error) {
	return s.entries, s.err
}

func TestRefresherRefreshOnceWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "exports", "timetable.ics")
	source := stubSource{entries: []recurrence.Entry{{OwnerID: "s-1", OwnerName: "Alex", Session: mustSession(t, "FRI 1800 - 1900")}}}
	refresher, err := NewRefresher("@hourly", path, source, nil, sgt, nil)
	if err != nil {
		t.Fatalf("NewRefresher returned error: %v", err)
	}

	if err := refresher.RefreshOnce(context.Background()); err != nil {
		t.Fatalf("RefreshOnce returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile returned error: %v", err)
	}
	if !strings.Contains(string(data), "BEGIN:VEVENT") || !strings.Contains(string(data), "Lesson: Alex") {
		t.Fatalf("unexpected export content:\n%s", data)
	}
}

func TestRefresherErrors(t *testing.T) {
	t.Parallel()

	if _, err := NewRefresher("every hour", "out.ics", stubSource{}, nil, nil, nil); err == nil {
		t.Fatalf("expected invalid cron spec to be rejected")
	}
	if _, err := NewRefresher("@daily", "", stubSource{}, nil, nil, nil); err == nil {
		t.Fatalf("expected empty path to be rejected")
	}

	boom := errors.New("boom")
	path := filepath.Join(t.TempDir(), "timetable.ics")
	refresher, err := NewRefresher("*/5 * * * *", path, stubSource{err: boom}, nil, nil, nil)
	if err != nil {
		t.Fatalf("NewRefresher returned error: %v", err)
	}
	if err := refresher.RefreshOnce(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected no export file after failure, got %v", err)
	}
}
