package scheduler

import "fmt"

// Reconciler swaps one owner's sessions for a new set. A failed swap leaves the
// registry exactly as it was before the call.
type Reconciler struct {
	registry *Registry
}

// NewReconciler returns a reconciler mutating registry.
func NewReconciler(registry *Registry) *Reconciler {
	return &Reconciler{registry: registry}
}

// ReplaceOwnerSessions retracts oldSessions, validates newSessions against
// each other and against the remaining registry, then commits them. Any
// failure re-adds the retracted sessions before the error is returned.
func (r *Reconciler) ReplaceOwnerSessions(oldSessions, newSessions []Session) error {
	undo := make([]Session, 0, len(oldSessions))
	rollback := func() {
		for _, s := range undo {
			r.registry.Add(s)
		}
	}

	for _, s := range oldSessions {
		if err := r.registry.Remove(s); err != nil {
			rollback()
			return fmt.Errorf("retract owner sessions: %w", err)
		}
		undo = append(undo, s)
	}

	if err := DetectConflicts(r.registry, newSessions); err != nil {
		rollback()
		return err
	}

	for _, s := range newSessions {
		r.registry.Add(s)
	}
	return nil
}

// AddOwnerSessions commits sessions for a new owner.
func (r *Reconciler) AddOwnerSessions(sessions []Session) error {
	return r.ReplaceOwnerSessions(nil, sessions)
}

// RetractOwnerSessions removes every session of an owner that is going away.
func (r *Reconciler) RetractOwnerSessions(sessions []Session) error {
	return r.ReplaceOwnerSessions(sessions, nil)
}
