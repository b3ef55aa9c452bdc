package ports

import (
	"context"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// Handle is a dispatched asynchronous action.
// Done is closed exactly once when the action resolves; Err then reports the
// failure, or nil on success. *domain.Completion satisfies this interface.
type Handle interface {
	Done() <-chan struct{}
	Err() error
}

// RetrySafety documents what happens when an action is invoked again for an
// event the host redelivered after the process was killed mid-dispatch.
type RetrySafety int

const (
	// Idempotent actions can be invoked any number of times with the same effect.
	Idempotent RetrySafety = iota

	// AtMostOnce actions must not be repeated; a second invocation may
	// duplicate side effects (e.g. register a second geofence).
	AtMostOnce
)

// String returns a human-readable representation of the retry safety.
func (r RetrySafety) String() string {
	switch r {
	case Idempotent:
		return "idempotent"
	case AtMostOnce:
		return "at_most_once"
	default:
		return "unknown"
	}
}

// ActionProvider launches platform actions.
// Implementations wrap the geofence, location tracking and activity
// recognition subsystems of the host.
type ActionProvider interface {
	// Invoke starts the action and returns its handle.
	// A nil handle means the capability is unavailable and the action was not
	// started. Only domain.ActionKind values with MayBeUnavailable may return nil.
	Invoke(ctx context.Context, kind domain.ActionKind) Handle

	// RetrySafety reports the redelivery contract of the action.
	// The state machine does not deduplicate redelivered events; callers that
	// redeliver must only rely on Idempotent actions being safe to repeat.
	RetrySafety(kind domain.ActionKind) RetrySafety
}
