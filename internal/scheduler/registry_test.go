package scheduler

import (
	"errors"
	"math/rand"
	"slices"
	"testing"
)

func collect(r *Registry) []Session {
	var out []Session
	for s := range r.All() {
		out = append(out, s)
	}
	return out
}

func TestRegistryAddKeepsOrderAndCounts(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add(mustSession(t, "WED 1000 - 1100"))
	r.Add(mustSession(t, "MON 1400 - 1500"))
	r.Add(mustSession(t, "MON 0900 - 1000"))
	r.Add(mustSession(t, "MON 0900 - 1000"))

	got := collect(r)
	want := []Session{
		mustSession(t, "MON 0900 - 1000"),
		mustSession(t, "MON 1400 - 1500"),
		mustSession(t, "WED 1000 - 1100"),
	}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if count := r.Count(mustSession(t, "MON 0900 - 1000")); count != 2 {
		t.Fatalf("expected occupancy 2, got %d", count)
	}
	if r.Len() != 3 {
		t.Fatalf("expected 3 distinct sessions, got %d", r.Len())
	}
	if snapshot := r.Snapshot(); len(snapshot) != 4 {
		t.Fatalf("expected 4 held sessions, got %d", len(snapshot))
	}
}

func TestRegistryAddDoesNotRejectOverlap(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	r.Add(mustSession(t, "MON 0900 - 1000"))
	r.Add(mustSession(t, "MON 0930 - 1030"))
	if r.Len() != 2 {
		t.Fatalf("expected both overlapping sessions to be held, got %d", r.Len())
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	shared := mustSession(t, "TUE 1300 - 1400")
	r := NewRegistry(shared, shared)

	if err := r.Remove(shared); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if r.Count(shared) != 1 || r.Len() != 1 {
		t.Fatalf("expected shared session to remain with count 1, got count %d len %d", r.Count(shared), r.Len())
	}
	if err := r.Remove(shared); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %v", collect(r))
	}

	err := r.Remove(shared)
	if !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if r.Count(shared) != 0 {
		t.Fatalf("failed remove must not change counts")
	}
}

func TestRegistryFindOverlap(t *testing.T) {
	t.Parallel()

	r := NewRegistry(
		mustSession(t, "MON 0800 - 0900"),
		mustSession(t, "MON 0930 - 1030"),
		mustSession(t, "MON 1030 - 1130"),
		mustSession(t, "TUE 0900 - 1000"),
	)

	tests := []struct {
		name      string
		candidate string
		want      string
	}{
		{name: "first of two in ascending order", candidate: "MON 1000 - 1100", want: "MON 0930 - 1030"},
		{name: "gap", candidate: "MON 0900 - 0930", want: ""},
		{name: "other day untouched", candidate: "WED 0900 - 1000", want: ""},
		{name: "identical value", candidate: "TUE 0900 - 1000", want: "TUE 0900 - 1000"},
		{name: "late session", candidate: "MON 1100 - 1200", want: "MON 1030 - 1130"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, found := r.FindOverlap(mustSession(t, tc.candidate))
			if tc.want == "" {
				if found {
					t.Fatalf("expected no overlap, got %v", got)
				}
				return
			}
			if !found || got.String() != tc.want {
				t.Fatalf("expected %s, got %v (found=%v)", tc.want, got, found)
			}
		})
	}
}

func TestRegistryFindConflictSkipsEqualValue(t *testing.T) {
	t.Parallel()

	r := NewRegistry(mustSession(t, "TUE 1300 - 1400"))
	if got, found := r.FindConflict(mustSession(t, "TUE 1300 - 1400")); found {
		t.Fatalf("expected identical value to be shareable, got conflict %v", got)
	}
	if _, found := r.FindConflict(mustSession(t, "TUE 1330 - 1430")); !found {
		t.Fatalf("expected conflict with shifted session")
	}
}

func TestRegistryReplaceAll(t *testing.T) {
	t.Parallel()

	r := NewRegistry(mustSession(t, "MON 0900 - 1000"))
	shared := mustSession(t, "FRI 1500 - 1600")
	r.ReplaceAll([]Session{shared, mustSession(t, "THU 0900 - 1000"), shared})

	got := collect(r)
	want := []Session{mustSession(t, "THU 0900 - 1000"), shared}
	if !slices.Equal(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if r.Count(shared) != 2 {
		t.Fatalf("expected repeated values to count twice, got %d", r.Count(shared))
	}
	if r.Count(mustSession(t, "MON 0900 - 1000")) != 0 {
		t.Fatalf("expected previous contents to be discarded")
	}

	r.ReplaceAll(nil)
	if r.Len() != 0 {
		t.Fatalf("expected empty registry after ReplaceAll(nil)")
	}
}

func TestRegistryEnumerationIsRestartable(t *testing.T) {
	t.Parallel()

	r := NewRegistry(mustSession(t, "MON 0900 - 1000"), mustSession(t, "SAT 0900 - 1000"))
	seq := r.All()

	var first, second []Session
	for s := range seq {
		first = append(first, s)
		break
	}
	for s := range seq {
		second = append(second, s)
	}
	if len(first) != 1 || len(second) != 2 {
		t.Fatalf("expected partial then full enumeration, got %v and %v", first, second)
	}

	var saturday []Session
	for s := range r.OnDay(Saturday) {
		saturday = append(saturday, s)
	}
	if len(saturday) != 1 || saturday[0].Day() != Saturday {
		t.Fatalf("expected one Saturday session, got %v", saturday)
	}
	for s := range r.OnDay(Sunday) {
		t.Fatalf("expected no Sunday sessions, got %v", s)
	}
}

func TestRegistryCountInvariantUnderRandomOperations(t *testing.T) {
	t.Parallel()

	pool := []Session{
		mustSession(t, "MON 0900 - 1000"),
		mustSession(t, "MON 0930 - 1030"),
		mustSession(t, "TUE 1300 - 1400"),
		mustSession(t, "SUN 2000 - 2200"),
	}
	rng := rand.New(rand.NewSource(42))
	r := NewRegistry()
	net := make(map[Session]int)

	for i := 0; i < 500; i++ {
		s := pool[rng.Intn(len(pool))]
		if rng.Intn(2) == 0 {
			r.Add(s)
			net[s]++
			continue
		}
		err := r.Remove(s)
		if net[s] == 0 {
			if !errors.Is(err, ErrSessionNotFound) {
				t.Fatalf("expected ErrSessionNotFound for %v, got %v", s, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Remove(%v) returned error: %v", s, err)
		}
		net[s]--
	}

	present := make(map[Session]bool)
	prev := Session{}
	for s := range r.All() {
		if !prev.IsZero() && prev.Compare(s) >= 0 {
			t.Fatalf("enumeration out of order: %v then %v", prev, s)
		}
		prev = s
		present[s] = true
	}
	for _, s := range pool {
		if present[s] != (net[s] > 0) {
			t.Fatalf("session %v present=%v but net count %d", s, present[s], net[s])
		}
		if r.Count(s) != net[s] {
			t.Fatalf("session %v count %d, want %d", s, r.Count(s), net[s])
		}
	}
}
