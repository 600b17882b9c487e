package recurrence

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/tutor-scheduler/internal/scheduler"
)

var sgt = time.FixedZone("SGT", 8*60*60)

// MaxWindow bounds a single expansion request.
const MaxWindow = 366 * 24 * time.Hour

// Entry is one owner's weekly session to expand.
type Entry struct {
	OwnerID   string
	OwnerName string
	Session   scheduler.Session
}

// Occurrence is a dated instance of a weekly session.
type Occurrence struct {
	OwnerID   string
	OwnerName string
	Session   scheduler.Session
	Start     time.Time
	End       time.Time
}

// Engine expands weekly sessions into dated occurrences.
type Engine struct {
	location *time.Location
}

// NewEngine constructs an Engine that places occurrences in loc.
// If loc is nil, Asia/Singapore (SGT) is used.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = sgt
	}
	return &Engine{location: loc}
}

// Location returns the zone occurrences are expressed in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return sgt
	}
	return e.location
}

// ErrInvalidWindow indicates the expansion window is empty or too long.
var ErrInvalidWindow = errors.New("recurrence: window must end after it starts and span at most 366 days")

// ErrInvalidSession indicates a zero or malformed session was supplied.
var ErrInvalidSession = errors.New("recurrence: session is not valid")

// RuleText returns the RRULE value for a session, e.g. "FREQ=WEEKLY;BYDAY=MO".
func RuleText(s scheduler.Session) (string, error) {
	wd, err := rruleWeekday(s.Day())
	if err != nil {
		return "", err
	}
	option := rrule.ROption{Freq: rrule.WEEKLY, Byweekday: []rrule.Weekday{wd}}
	return option.String(), nil
}

// Rule builds the weekly rule of s anchored on the date of from.
func (e *Engine) Rule(s scheduler.Session, from time.Time) (*rrule.RRule, error) {
	wd, err := rruleWeekday(s.Day())
	if err != nil {
		return nil, err
	}
	loc := e.Location()
	y, m, d := from.In(loc).Date()
	dtstart := time.Date(y, m, d, s.Start().Hour(), s.Start().Minute(), 0, 0, loc)
	return rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   dtstart,
		Byweekday: []rrule.Weekday{wd},
	})
}

// Occurrences lists every start of s within [from, until].
func (e *Engine) Occurrences(s scheduler.Session, from, until time.Time) ([]time.Time, error) {
	if err := checkWindow(from, until); err != nil {
		return nil, err
	}
	// Anchor a day early so a lesson starting exactly at from is included.
	rule, err := e.Rule(s, from.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}
	return rule.Between(from.In(e.Location()), until.In(e.Location()), true), nil
}

// Expand produces the occurrences of every entry in [from, until], ordered by
// start time and then by owner name.
func (e *Engine) Expand(entries []Entry, from, until time.Time) ([]Occurrence, error) {
	if err := checkWindow(from, until); err != nil {
		return nil, err
	}
	var out []Occurrence
	for _, entry := range entries {
		starts, err := e.Occurrences(entry.Session, from, until)
		if err != nil {
			return nil, fmt.Errorf("expand %s for %s: %w", entry.Session, entry.OwnerID, err)
		}
		for _, start := range starts {
			out = append(out, Occurrence{
				OwnerID:   entry.OwnerID,
				OwnerName: entry.OwnerName,
				Session:   entry.Session,
				Start:     start,
				End:       start.Add(entry.Session.Duration()),
			})
		}
	}
	slices.SortStableFunc(out, func(a, b Occurrence) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return cmp.Compare(a.OwnerName, b.OwnerName)
	})
	return out, nil
}

func checkWindow(from, until time.Time) error {
	if !until.After(from) || until.Sub(from) > MaxWindow {
		return ErrInvalidWindow
	}
	return nil
}

func rruleWeekday(day scheduler.Weekday) (rrule.Weekday, error) {
	switch day {
	case scheduler.Monday:
		return rrule.MO, nil
	case scheduler.Tuesday:
		return rrule.TU, nil
	case scheduler.Wednesday:
		return rrule.WE, nil
	case scheduler.Thursday:
		return rrule.TH, nil
	case scheduler.Friday:
		return rrule.FR, nil
	case scheduler.Saturday:
		return rrule.SA, nil
	case scheduler.Sunday:
		return rrule.SU, nil
	default:
		return rrule.Weekday{}, ErrInvalidSession
	}
}
