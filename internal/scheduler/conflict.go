package scheduler

import "fmt"

// OverlapError names the pair of sessions that could not coexist. Internal is
// set when both sessions came from the same candidate set.
type OverlapError struct {
	Candidate Session
	Existing  Session
	Internal  bool
}

func (e *OverlapError) Error() string {
	if e.Internal {
		return fmt.Sprintf("overlapping sessions: %s overlaps %s in the same request", e.Candidate, e.Existing)
	}
	return fmt.Sprintf("overlapping sessions: %s overlaps registered session %s", e.Candidate, e.Existing)
}

// Is reports whether target is ErrOverlappingSessions.
func (e *OverlapError) Is(target error) bool {
	return target == ErrOverlappingSessions
}

// DetectConflicts checks candidates against each other first and then against
// the registry. A registered value equal to a candidate is not a conflict.
func DetectConflicts(registry *Registry, candidates []Session) error {
	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			if candidates[i].Overlaps(candidates[j]) {
				return &OverlapError{Candidate: candidates[j], Existing: candidates[i], Internal: true}
			}
		}
	}
	if registry == nil {
		return nil
	}
	for _, c := range candidates {
		if existing, found := registry.FindConflict(c); found {
			return &OverlapError{Candidate: c, Existing: existing}
		}
	}
	return nil
}
