package domain

import (
	"fmt"
	"time"
)

// ActionKind identifies a platform action the state machine can launch.
type ActionKind int

const (
	ActionGeofenceCreate ActionKind = iota
	ActionGeofenceRemove
	ActionTrackingStart
	ActionTrackingStop
	ActionActivityRecognitionStart
	ActionActivityRecognitionStop
)

var actionNames = [...]string{
	ActionGeofenceCreate:           "geofence_create",
	ActionGeofenceRemove:           "geofence_remove",
	ActionTrackingStart:            "tracking_start",
	ActionTrackingStop:             "tracking_stop",
	ActionActivityRecognitionStart: "activity_recognition_start",
	ActionActivityRecognitionStop:  "activity_recognition_stop",
}

// ActionKinds returns every action kind in declaration order.
func ActionKinds() []ActionKind {
	return []ActionKind{
		ActionGeofenceCreate,
		ActionGeofenceRemove,
		ActionTrackingStart,
		ActionTrackingStop,
		ActionActivityRecognitionStart,
		ActionActivityRecognitionStop,
	}
}

// String returns the name of the action kind.
func (k ActionKind) String() string {
	if k < 0 || int(k) >= len(actionNames) {
		return "unknown"
	}
	return actionNames[k]
}

// ParseActionKind converts an action name to an ActionKind.
func ParseActionKind(name string) (ActionKind, bool) {
	for i, an := range actionNames {
		if an == name {
			return ActionKind(i), true
		}
	}
	return 0, false
}

// MayBeUnavailable reports whether the capability behind k can be absent.
// Only geofence creation and continuous tracking can be unavailable; every
// other action is always launched when requested.
func (k ActionKind) MayBeUnavailable() bool {
	return k == ActionGeofenceCreate || k == ActionTrackingStart
}

// Outcome is the resolved result of one action.
type Outcome int

const (
	OutcomeUnavailable Outcome = iota
	OutcomeSucceeded
	OutcomeFailed
)

// String returns a human-readable representation of the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeUnavailable:
		return "unavailable"
	case OutcomeSucceeded:
		return "succeeded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// ActionResult is the outcome of one action in a batch.
type ActionResult struct {
	Kind     ActionKind    `json:"action"`
	Outcome  Outcome       `json:"outcome"`
	Err      error         `json:"-"`
	Duration time.Duration `json:"duration"`
}

// MarshalText implements encoding.TextMarshaler for use as a map key in logs.
func (k ActionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ActionKind) UnmarshalText(text []byte) error {
	parsed, ok := ParseActionKind(string(text))
	if !ok {
		return fmt.Errorf("unknown action %q", string(text))
	}
	*k = parsed
	return nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unavailable":
		*o = OutcomeUnavailable
	case "succeeded":
		*o = OutcomeSucceeded
	case "failed":
		*o = OutcomeFailed
	default:
		return fmt.Errorf("unknown outcome %q", string(text))
	}
	return nil
}
