package domain

import (
	"fmt"
	"strings"
)

// State is the persisted state of the tracking session.
// Exactly one value is stored at a time; the zero value is StateStart.
type State int

const (
	StateStart State = iota
	StateWaitingForTripStart
	StateOngoingTrip
	StateTrackingStopped
)

var stateNames = [...]string{
	StateStart:               "start",
	StateWaitingForTripStart: "waiting_for_trip_start",
	StateOngoingTrip:         "ongoing_trip",
	StateTrackingStopped:     "tracking_stopped",
}

// States returns every state in declaration order.
func States() []State {
	return []State{StateStart, StateWaitingForTripStart, StateOngoingTrip, StateTrackingStopped}
}

// String returns the persisted name of the state.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	return s >= 0 && int(s) < len(stateNames)
}

// ParseState converts a persisted or upper-case state name to a State.
func ParseState(name string) (State, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, sn := range stateNames {
		if sn == n {
			return State(i), nil
		}
	}
	return StateStart, fmt.Errorf("%w: %q", ErrUnknownState, name)
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownState, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	parsed, err := ParseState(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
