package domain

import (
	"fmt"
	"strings"
	"time"
)

// EventKind identifies an input to the state machine.
type EventKind int

const (
	EventInitialize EventKind = iota
	EventStopTracking
	EventTrackingError
	EventExitedGeofence
	EventStoppedMoving
	EventStartTracking
)

var eventNames = [...]string{
	EventInitialize:     "initialize",
	EventStopTracking:   "stop_tracking",
	EventTrackingError:  "tracking_error",
	EventExitedGeofence: "exited_geofence",
	EventStoppedMoving:  "stopped_moving",
	EventStartTracking:  "start_tracking",
}

// EventKinds returns every event kind in declaration order.
func EventKinds() []EventKind {
	return []EventKind{
		EventInitialize,
		EventStopTracking,
		EventTrackingError,
		EventExitedGeofence,
		EventStoppedMoving,
		EventStartTracking,
	}
}

// String returns the wire name of the event kind.
func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventNames) {
		return "unknown"
	}
	return eventNames[k]
}

// Valid reports whether k is one of the declared event kinds.
func (k EventKind) Valid() bool {
	return k >= 0 && int(k) < len(eventNames)
}

// ParseEventKind converts a wire or upper-case event name to an EventKind.
func ParseEventKind(name string) (EventKind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, en := range eventNames {
		if en == n {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
}

// MarshalText implements encoding.TextMarshaler.
func (k EventKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownEvent, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EventKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEventKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Event is one asynchronous input to the state machine.
// At is only used for the audit journal, never for control flow.
type Event struct {
	Kind EventKind
	At   time.Time

	// Redelivered is set by the host when it delivers the same event again
	// after the process was killed mid-dispatch.
	Redelivered bool
}

// NewEvent creates an event of the given kind stamped with the current time.
func NewEvent(kind EventKind) Event {
	return Event{Kind: kind, At: time.Now()}
}

// String returns the event kind name.
func (e Event) String() string {
	return e.Kind.String()
}
