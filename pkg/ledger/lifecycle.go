package ledger

import "fmt"

// allowedTransitions is the complete status transition table. A rollback is
// its own terminal status rather than a flag on completed, so status-based
// queries stay unambiguous. failed → pending is the explicit operator reset
// that re-arms a retry.
var allowedTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing},
	StatusProcessing: {StatusCompleted, StatusFailed},
	StatusCompleted:  {StatusRolledBack},
	StatusFailed:     {StatusPending},
}

// ValidTransition reports whether from → to is an allowed transition.
func ValidTransition(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// AllowedNext returns the statuses reachable from the given status.
func AllowedNext(from Status) []Status {
	return append([]Status(nil), allowedTransitions[from]...)
}

// TransitionError reports a rejected status transition. It is returned to
// the caller synchronously and never persisted to the record.
type TransitionError struct {
	RecordID string `json:"recordId"`
	From     Status `json:"from"`
	To       Status `json:"to"`
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("migration %s is %s, cannot transition to %s", e.RecordID, e.From, e.To)
}
