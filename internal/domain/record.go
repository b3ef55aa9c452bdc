package domain

import "time"

// TransitionRecord is the audit entry written for every committed transition.
type TransitionRecord struct {
	DispatchID  string         `json:"dispatch_id"`
	From        State          `json:"from"`
	Event       EventKind      `json:"event"`
	To          State          `json:"to"`
	EventAt     time.Time      `json:"event_at"`
	CommittedAt time.Time      `json:"committed_at"`
	Succeeded   bool           `json:"succeeded"`
	Redelivered bool           `json:"redelivered,omitempty"`
	Actions     []ActionResult `json:"actions,omitempty"`
}
