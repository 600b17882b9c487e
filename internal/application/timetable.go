package application

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/example/tutor-scheduler/internal/recurrence"
	"github.com/example/tutor-scheduler/internal/scheduler"
)

// Timetable owns the session registry shared by every student. All access
// goes through its lock, so a retract, validate, commit or rollback sequence
// never interleaves with another student's update.
type Timetable struct {
	mu         sync.RWMutex
	registry   *scheduler.Registry
	reconciler *scheduler.Reconciler
	finder     *scheduler.FreeSlotFinder
	owners     map[string]owner
	cache      *freeSlotCache
}

type owner struct {
	name     string
	sessions []scheduler.Session
}

// NewTimetable returns an empty timetable whose free slot answers are cached
// for cacheTTL.
func NewTimetable(cacheTTL time.Duration, now func() time.Time) *Timetable {
	registry := scheduler.NewRegistry()
	return &Timetable{
		registry:   registry,
		reconciler: scheduler.NewReconciler(registry),
		finder:     scheduler.NewFreeSlotFinder(registry),
		owners:     make(map[string]owner),
		cache:      newFreeSlotCache(cacheTTL, 0, now),
	}
}

// reloadLocked replaces the registry with the sessions of students. Caller holds mu.
func (t *Timetable) reloadLocked(students []Student) {
	var all []scheduler.Session
	owners := make(map[string]owner, len(students))
	for _, s := range students {
		all = append(all, s.Sessions...)
		owners[s.ID] = owner{name: s.Name, sessions: sortedSessions(s.Sessions)}
	}
	t.registry.ReplaceAll(all)
	t.owners = owners
	t.cache.Invalidate()
}

// nameTakenLocked reports whether another student already uses name, ignoring case.
func (t *Timetable) nameTakenLocked(id, name string) bool {
	for otherID, o := range t.owners {
		if otherID != id && strings.EqualFold(o.name, name) {
			return true
		}
	}
	return false
}

// commitLocked swaps id's sessions for next through the reconciler and then
// runs persist. When persist fails the swap is reversed so the registry
// keeps matching the store. A nil next with remove set forgets the owner.
func (t *Timetable) commitLocked(id, name string, next []scheduler.Session, remove bool, persist func() error) error {
	prev := t.owners[id].sessions
	next = sortedSessions(next)

	if err := t.reconciler.ReplaceOwnerSessions(prev, next); err != nil {
		return err
	}

	if persist != nil {
		if err := persist(); err != nil {
			if rbErr := t.reconciler.ReplaceOwnerSessions(next, prev); rbErr != nil {
				return errors.Join(err, fmt.Errorf("restore sessions of %s: %w", id, rbErr))
			}
			return err
		}
	}

	if remove {
		delete(t.owners, id)
	} else {
		t.owners[id] = owner{name: name, sessions: next}
	}
	t.cache.Invalidate()
	return nil
}

// EarliestFreeSlot answers through the cache, computing on a miss.
func (t *Timetable) EarliestFreeSlot(hours int) string {
	if answer, ok := t.cache.Get(hours); ok {
		return answer
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	// Cache before releasing the lock; commits invalidate under the write lock.
	answer := t.finder.EarliestFreeSlot(hours)
	t.cache.Store(hours, answer)
	return answer
}

// Slots enumerates every distinct registered session with its holders.
func (t *Timetable) Slots() []TimetableSlot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	holders := make(map[scheduler.Session][]string)
	for _, o := range t.owners {
		for _, s := range o.sessions {
			holders[s] = append(holders[s], o.name)
		}
	}

	var slots []TimetableSlot
	for session, count := range t.registry.Occupancies() {
		names := holders[session]
		slices.Sort(names)
		slots = append(slots, TimetableSlot{Session: session, Occupancy: count, Owners: names})
	}
	return slots
}

// Entries lists every student's session for recurrence expansion, ordered by
// session and then owner name.
func (t *Timetable) Entries() []recurrence.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	var entries []recurrence.Entry
	for id, o := range t.owners {
		for _, s := range o.sessions {
			entries = append(entries, recurrence.Entry{OwnerID: id, OwnerName: o.name, Session: s})
		}
	}
	slices.SortFunc(entries, func(a, b recurrence.Entry) int {
		if c := a.Session.Compare(b.Session); c != 0 {
			return c
		}
		if c := strings.Compare(a.OwnerName, b.OwnerName); c != 0 {
			return c
		}
		return strings.Compare(a.OwnerID, b.OwnerID)
	})
	return entries
}

// Snapshot returns every held session, one per holder, in order.
func (t *Timetable) Snapshot() []scheduler.Session {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.registry.Snapshot()
}
