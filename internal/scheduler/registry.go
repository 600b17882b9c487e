package scheduler

import (
	"fmt"
	"iter"
	"slices"
)

// Registry is the counted multiset of every committed session across all
// owners. Distinct values are kept in ascending order, each with the number of
// owners currently holding that exact slot.
//
// Registry does not reject overlapping values; callers validate through
// Reconciler before committing. It is not safe for concurrent use.
type Registry struct {
	sessions []Session
	counts   map[Session]int
}

// NewRegistry returns a registry holding the given sessions.
func NewRegistry(sessions ...Session) *Registry {
	r := &Registry{}
	r.ReplaceAll(sessions)
	return r
}

// Add records one more owner of s.
func (r *Registry) Add(s Session) {
	if r.counts == nil {
		r.counts = make(map[Session]int)
	}
	if r.counts[s] == 0 {
		idx, _ := slices.BinarySearchFunc(r.sessions, s, Session.Compare)
		r.sessions = slices.Insert(r.sessions, idx, s)
	}
	r.counts[s]++
}

// Remove releases one owner of s. The value leaves the registry when its last
// owner is removed.
func (r *Registry) Remove(s Session) error {
	count := r.counts[s]
	if count == 0 {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, s)
	}
	if count > 1 {
		r.counts[s] = count - 1
		return nil
	}
	delete(r.counts, s)
	if idx, found := slices.BinarySearchFunc(r.sessions, s, Session.Compare); found {
		r.sessions = slices.Delete(r.sessions, idx, idx+1)
	}
	return nil
}

// FindOverlap returns the first registered session, in ascending order, that
// overlaps candidate.
func (r *Registry) FindOverlap(candidate Session) (Session, bool) {
	for s := range r.overlapping(candidate) {
		return s, true
	}
	return Session{}, false
}

// FindConflict is FindOverlap ignoring registered values equal to candidate,
// which other owners may legitimately share.
func (r *Registry) FindConflict(candidate Session) (Session, bool) {
	for s := range r.overlapping(candidate) {
		if !s.Equal(candidate) {
			return s, true
		}
	}
	return Session{}, false
}

func (r *Registry) overlapping(candidate Session) iter.Seq[Session] {
	return func(yield func(Session) bool) {
		for s := range r.OnDay(candidate.day) {
			if s.start >= candidate.end {
				return
			}
			if s.Overlaps(candidate) && !yield(s) {
				return
			}
		}
	}
}

// ReplaceAll discards the current contents and rebuilds the occupancy counts
// from sessions. Repeated values count as separate owners.
func (r *Registry) ReplaceAll(sessions []Session) {
	counts := make(map[Session]int, len(sessions))
	distinct := make([]Session, 0, len(sessions))
	for _, s := range sessions {
		if counts[s] == 0 {
			distinct = append(distinct, s)
		}
		counts[s]++
	}
	slices.SortFunc(distinct, Session.Compare)
	r.sessions = distinct
	r.counts = counts
}

// All yields the distinct sessions in ascending order. The sequence may be
// ranged over any number of times; the registry must not be mutated while a
// range over it is in progress.
func (r *Registry) All() iter.Seq[Session] {
	return func(yield func(Session) bool) {
		for _, s := range r.sessions {
			if !yield(s) {
				return
			}
		}
	}
}

// Occupancies yields each distinct session with its owner count.
func (r *Registry) Occupancies() iter.Seq2[Session, int] {
	return func(yield func(Session, int) bool) {
		for _, s := range r.sessions {
			if !yield(s, r.counts[s]) {
				return
			}
		}
	}
}

// OnDay yields the sessions of one day in ascending order.
func (r *Registry) OnDay(day Weekday) iter.Seq[Session] {
	return func(yield func(Session) bool) {
		idx, _ := slices.BinarySearchFunc(r.sessions, day, func(s Session, d Weekday) int {
			if s.day < d {
				return -1
			}
			return 1
		})
		for _, s := range r.sessions[idx:] {
			if s.day != day || !yield(s) {
				return
			}
		}
	}
}

// Count returns how many owners hold s.
func (r *Registry) Count(s Session) int {
	return r.counts[s]
}

// Len returns the number of distinct sessions.
func (r *Registry) Len() int {
	return len(r.sessions)
}

// Snapshot returns every held session, repeated once per owner, in ascending order.
func (r *Registry) Snapshot() []Session {
	out := make([]Session, 0, len(r.sessions))
	for s, n := range r.Occupancies() {
		for range n {
			out = append(out, s)
		}
	}
	return out
}
