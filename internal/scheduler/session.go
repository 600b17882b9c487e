package scheduler

import (
	"cmp"
	"fmt"
	"strings"
	"time"
)

// Weekday identifies a day of the teaching week. Monday sorts first.
type Weekday int

const (
	Monday Weekday = iota + 1
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdaySymbols = [...]string{"", "MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN"}

var weekdayNames = [...]string{"", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY", "SUNDAY"}

// Weekdays lists every day in search order.
var Weekdays = []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// ParseWeekday resolves a three letter day symbol such as "MON". Surrounding
// space is ignored and any letter case is accepted ("mon", " Mon "), which is
// looser than the exact upper case symbols shown to users; String always
// returns the upper case form.
func ParseWeekday(symbol string) (Weekday, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	for i := 1; i < len(weekdaySymbols); i++ {
		if weekdaySymbols[i] == normalized {
			return Weekday(i), true
		}
	}
	return 0, false
}

// Valid reports whether d is one of the seven days.
func (d Weekday) Valid() bool {
	return d >= Monday && d <= Sunday
}

// String returns the three letter symbol.
func (d Weekday) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdaySymbols[d]
}

// FullName returns the upper case day name, e.g. "MONDAY".
func (d Weekday) FullName() string {
	if !d.Valid() {
		return d.String()
	}
	return weekdayNames[d]
}

// Time converts d to the standard library weekday.
func (d Weekday) Time() time.Weekday {
	if d == Sunday {
		return time.Sunday
	}
	return time.Weekday(d)
}

// TimeOfDay is a wall clock time in minutes after midnight.
type TimeOfDay int

const (
	// OpeningTime is the earliest start of any session.
	OpeningTime TimeOfDay = 8 * 60
	// ClosingTime is the latest end of any session.
	ClosingTime TimeOfDay = 22 * 60
	// MinimumLength is the shortest allowed session.
	MinimumLength = 15 * time.Minute
)

// Clock builds a TimeOfDay from hours and minutes.
func Clock(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

// ParseTimeOfDay parses a four digit 24-hour time such as "0930".
func ParseTimeOfDay(value string) (TimeOfDay, bool) {
	if len(value) != 4 {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[2]-'0')*10 + int(value[3]-'0')
	if hour > 23 || minute > 59 {
		return 0, false
	}
	return Clock(hour, minute), true
}

// Hour returns the hour component.
func (t TimeOfDay) Hour() int { return int(t) / 60 }

// Minute returns the minute component.
func (t TimeOfDay) Minute() int { return int(t) % 60 }

// Compact renders t as HHmm.
func (t TimeOfDay) Compact() string {
	return fmt.Sprintf("%02d%02d", t.Hour(), t.Minute())
}

// String renders t as HH:mm.
func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// Add shifts t by d, truncated to whole minutes.
func (t TimeOfDay) Add(d time.Duration) TimeOfDay {
	return t + TimeOfDay(d/time.Minute)
}

// Session is a weekly recurring lesson slot. The zero value is not a valid
// session; use NewSession or ParseSession.
type Session struct {
	day   Weekday
	start TimeOfDay
	end   TimeOfDay
}

// NewSession validates its arguments in order: day symbol, start time, end
// time, minimum length, then the operating window. The first broken rule is
// reported as an *InvalidSessionError.
func NewSession(day, start, end string) (Session, error) {
	d, ok := ParseWeekday(day)
	if !ok {
		return Session{}, invalid(FieldDay, day, "must be one of MON TUE WED THU FRI SAT SUN")
	}
	s, ok := ParseTimeOfDay(strings.TrimSpace(start))
	if !ok {
		return Session{}, invalid(FieldStart, start, "must be a 24-hour time in HHmm format")
	}
	e, ok := ParseTimeOfDay(strings.TrimSpace(end))
	if !ok {
		return Session{}, invalid(FieldEnd, end, "must be a 24-hour time in HHmm format")
	}
	return newSession(d, s, e)
}

// SessionOf validates an already parsed day and time pair.
func SessionOf(day Weekday, start, end TimeOfDay) (Session, error) {
	if !day.Valid() {
		return Session{}, invalid(FieldDay, day.String(), "must be one of MON TUE WED THU FRI SAT SUN")
	}
	if start < 0 || start >= Clock(24, 0) {
		return Session{}, invalid(FieldStart, start.Compact(), "must be a 24-hour time in HHmm format")
	}
	if end < 0 || end >= Clock(24, 0) {
		return Session{}, invalid(FieldEnd, end.Compact(), "must be a 24-hour time in HHmm format")
	}
	return newSession(day, start, end)
}

func newSession(day Weekday, start, end TimeOfDay) (Session, error) {
	if end < start.Add(MinimumLength) {
		return Session{}, invalid(FieldDuration, start.Compact()+"-"+end.Compact(), "end must be at least 15 minutes after start")
	}
	if start < OpeningTime || end > ClosingTime {
		return Session{}, invalid(FieldWindow, start.Compact()+"-"+end.Compact(), "session must fall between 0800 and 2200")
	}
	return Session{day: day, start: start, end: end}, nil
}

// ParseSession reads the canonical form produced by String, e.g. "MON 0900 - 1000".
func ParseSession(value string) (Session, error) {
	fields := strings.Fields(value)
	switch {
	case len(fields) == 4 && fields[2] == "-":
		return NewSession(fields[0], fields[1], fields[3])
	case len(fields) == 3:
		return NewSession(fields[0], fields[1], fields[2])
	default:
		return Session{}, invalid(FieldSession, value, `must look like "MON 0900 - 1000"`)
	}
}

// Day returns the weekday of the session.
func (s Session) Day() Weekday { return s.day }

// Start returns the start time.
func (s Session) Start() TimeOfDay { return s.start }

// End returns the end time.
func (s Session) End() TimeOfDay { return s.end }

// Duration returns the session length.
func (s Session) Duration() time.Duration {
	return time.Duration(s.end-s.start) * time.Minute
}

// IsZero reports whether s is the zero Session.
func (s Session) IsZero() bool {
	return s == Session{}
}

// Overlaps reports whether both sessions fall on the same day and their
// half-open [start, end) intervals intersect. Back to back sessions do not overlap.
func (s Session) Overlaps(other Session) bool {
	if s.day != other.day {
		return false
	}
	if s.start < other.start {
		return s.end > other.start
	}
	return s.start < other.end
}

// Compare orders sessions by day, then start, then end.
func (s Session) Compare(other Session) int {
	if c := cmp.Compare(s.day, other.day); c != 0 {
		return c
	}
	if c := cmp.Compare(s.start, other.start); c != 0 {
		return c
	}
	return cmp.Compare(s.end, other.end)
}

// Equal reports value equality.
func (s Session) Equal(other Session) bool {
	return s == other
}

// String returns the canonical form "MON 0900 - 1000".
func (s Session) String() string {
	return fmt.Sprintf("%s %s - %s", s.day, s.start.Compact(), s.end.Compact())
}
