package scheduler

import (
	"errors"
	"testing"
	"time"
)

func mustSession(t testing.TB, canonical string) Session {
	t.Helper()
	s, err := ParseSession(canonical)
	if err != nil {
		t.Fatalf("ParseSession(%q) returned error: %v", canonical, err)
	}
	return s
}

func TestNewSessionValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		day       string
		start     string
		end       string
		wantField string
	}{
		{name: "valid", day: "MON", start: "0900", end: "1000"},
		{name: "lower case day", day: "tue", start: "0900", end: "1000"},
		{name: "minimum length", day: "MON", start: "1100", end: "1115"},
		{name: "full window", day: "SUN", start: "0800", end: "2200"},
		{name: "bad day", day: "MONDAY", start: "0900", end: "1000", wantField: FieldDay},
		{name: "bad day wins over bad time", day: "XYZ", start: "9am", end: "1000", wantField: FieldDay},
		{name: "start not HHmm", day: "MON", start: "9:00", end: "1000", wantField: FieldStart},
		{name: "start hour out of range", day: "MON", start: "2400", end: "1000", wantField: FieldStart},
		{name: "end minute out of range", day: "MON", start: "0900", end: "0960", wantField: FieldEnd},
		{name: "start parse wins over end parse", day: "MON", start: "abcd", end: "efgh", wantField: FieldStart},
		{name: "one minute short", day: "MON", start: "1100", end: "1114", wantField: FieldDuration},
		{name: "end before start", day: "MON", start: "1200", end: "1100", wantField: FieldDuration},
		{name: "duration wins over window", day: "MON", start: "0700", end: "0705", wantField: FieldDuration},
		{name: "starts before opening", day: "MON", start: "0745", end: "0900", wantField: FieldWindow},
		{name: "ends after closing", day: "FRI", start: "2100", end: "2201", wantField: FieldWindow},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewSession(tc.day, tc.start, tc.end)
			if tc.wantField == "" {
				if err != nil {
					t.Fatalf("expected valid session, got error: %v", err)
				}
				if s.IsZero() {
					t.Fatalf("expected non-zero session")
				}
				return
			}
			if !errors.Is(err, ErrInvalidSession) {
				t.Fatalf("expected ErrInvalidSession, got %v", err)
			}
			var invalidErr *InvalidSessionError
			if !errors.As(err, &invalidErr) {
				t.Fatalf("expected *InvalidSessionError, got %T", err)
			}
			if invalidErr.Field != tc.wantField {
				t.Fatalf("expected field %q, got %q (%v)", tc.wantField, invalidErr.Field, err)
			}
		})
	}
}

func TestSessionString(t *testing.T) {
	t.Parallel()

	s, err := NewSession("wed", "0905", "1030")
	if err != nil {
		t.Fatalf("NewSession returned error: %v", err)
	}
	if got := s.String(); got != "WED 0905 - 1030" {
		t.Fatalf("expected canonical form, got %q", got)
	}

	parsed, err := ParseSession(s.String())
	if err != nil {
		t.Fatalf("ParseSession returned error: %v", err)
	}
	if !parsed.Equal(s) {
		t.Fatalf("expected round trip to produce %v, got %v", s, parsed)
	}
	if s.Duration() != 85*time.Minute {
		t.Fatalf("expected 85m duration, got %v", s.Duration())
	}
}

func TestParseSessionRejectsMalformed(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "MON", "MON 0900", "MON 0900 to 1000", "MON 0900 - 1000 extra"} {
		if _, err := ParseSession(input); !errors.Is(err, ErrInvalidSession) {
			t.Fatalf("ParseSession(%q): expected ErrInvalidSession, got %v", input, err)
		}
	}
}

func TestSessionOverlaps(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{name: "back to back", a: "MON 0900 - 1000", b: "MON 1000 - 1100", want: false},
		{name: "one minute into next", a: "MON 0900 - 1001", b: "MON 1000 - 1100", want: true},
		{name: "contained", a: "MON 0900 - 1200", b: "MON 1000 - 1100", want: true},
		{name: "identical", a: "TUE 1300 - 1400", b: "TUE 1300 - 1400", want: true},
		{name: "same start", a: "TUE 1300 - 1330", b: "TUE 1300 - 1400", want: true},
		{name: "different day", a: "MON 0900 - 1000", b: "TUE 0900 - 1000", want: false},
		{name: "disjoint", a: "MON 0800 - 0900", b: "MON 1500 - 1600", want: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			a := mustSession(t, tc.a)
			b := mustSession(t, tc.b)
			if got := a.Overlaps(b); got != tc.want {
				t.Fatalf("%v.Overlaps(%v) = %v, want %v", a, b, got, tc.want)
			}
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("overlap is not symmetric for %v and %v", a, b)
			}
		})
	}
}

func TestSessionOverlapSymmetryExhaustive(t *testing.T) {
	t.Parallel()

	var sessions []Session
	for _, day := range []Weekday{Monday, Tuesday} {
		for start := OpeningTime; start <= Clock(12, 0); start += 30 {
			for _, length := range []TimeOfDay{15, 45, 60, 90} {
				s, err := SessionOf(day, start, start+length)
				if err != nil {
					t.Fatalf("SessionOf returned error: %v", err)
				}
				sessions = append(sessions, s)
			}
		}
	}

	for _, a := range sessions {
		for _, b := range sessions {
			if a.Overlaps(b) != b.Overlaps(a) {
				t.Fatalf("overlap is not symmetric for %v and %v", a, b)
			}
			want := a.day == b.day && a.start < b.end && b.start < a.end
			if a.Overlaps(b) != want {
				t.Fatalf("%v.Overlaps(%v) = %v, want %v", a, b, a.Overlaps(b), want)
			}
		}
	}
}

func TestSessionCompare(t *testing.T) {
	t.Parallel()

	ordered := []Session{
		mustSession(t, "MON 0900 - 1000"),
		mustSession(t, "MON 0900 - 1100"),
		mustSession(t, "MON 1000 - 1030"),
		mustSession(t, "TUE 0800 - 0900"),
		mustSession(t, "SUN 0800 - 0900"),
	}
	for i := range ordered {
		for j := range ordered {
			got := ordered[i].Compare(ordered[j])
			switch {
			case i < j && got >= 0:
				t.Fatalf("expected %v < %v", ordered[i], ordered[j])
			case i > j && got <= 0:
				t.Fatalf("expected %v > %v", ordered[i], ordered[j])
			case i == j && got != 0:
				t.Fatalf("expected %v == %v", ordered[i], ordered[j])
			}
		}
	}
}

func TestWeekdayConversions(t *testing.T) {
	t.Parallel()

	if Sunday.Time() != time.Sunday || Monday.Time() != time.Monday || Saturday.Time() != time.Saturday {
		t.Fatalf("unexpected time.Weekday mapping")
	}
	if Wednesday.FullName() != "WEDNESDAY" {
		t.Fatalf("expected WEDNESDAY, got %q", Wednesday.FullName())
	}
	for _, symbol := range []string{"SUN", "sun", " Sun "} {
		if day, ok := ParseWeekday(symbol); !ok || day != Sunday || day.String() != "SUN" {
			t.Fatalf("ParseWeekday(%q) = %v, %v; want SUN", symbol, day, ok)
		}
	}
	if _, ok := ParseWeekday("FUN"); ok {
		t.Fatalf("expected FUN to be rejected")
	}
}
