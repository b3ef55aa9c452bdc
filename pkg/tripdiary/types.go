package tripdiary

import (
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Tracking state machine types, re-exported so embedders can implement the
// ports without importing internal packages.
type (
	// State is the persisted tracking state.
	State = domain.State

	// EventKind identifies an input to the state machine.
	EventKind = domain.EventKind

	// Event is one asynchronous input to the state machine.
	Event = domain.Event

	// ActionKind identifies a platform action.
	ActionKind = domain.ActionKind

	// RequestProfile describes the location request validated by the guard.
	RequestProfile = domain.RequestProfile

	// SettingsStatus is the outcome of a location settings check.
	SettingsStatus = domain.SettingsStatus

	// NotificationKind identifies a notification slot.
	NotificationKind = domain.NotificationKind

	// TransitionRecord is one entry of the transition journal.
	TransitionRecord = domain.TransitionRecord

	// Completion is a ready-made Handle resolved exactly once.
	Completion = domain.Completion
)

// Ports implemented by the host platform.
type (
	Logger             = ports.Logger
	LogField           = ports.Field
	HTTPClient         = ports.HTTPClient
	Handle             = ports.Handle
	RetrySafety        = ports.RetrySafety
	ActionProvider     = ports.ActionProvider
	StateRepository    = ports.StateRepository
	Notifier           = ports.Notifier
	PermissionChecker  = ports.PermissionChecker
	SettingsChecker    = ports.SettingsChecker
	PresenceSignal     = ports.PresenceSignal
	TransitionRecorder = ports.TransitionRecorder
)

// Tracking states.
const (
	StateStart               = domain.StateStart
	StateWaitingForTripStart = domain.StateWaitingForTripStart
	StateOngoingTrip         = domain.StateOngoingTrip
	StateTrackingStopped     = domain.StateTrackingStopped
)

// Event kinds.
const (
	EventInitialize     = domain.EventInitialize
	EventStopTracking   = domain.EventStopTracking
	EventTrackingError  = domain.EventTrackingError
	EventExitedGeofence = domain.EventExitedGeofence
	EventStoppedMoving  = domain.EventStoppedMoving
	EventStartTracking  = domain.EventStartTracking
)

// Retry safety contracts.
const (
	Idempotent = ports.Idempotent
	AtMostOnce = ports.AtMostOnce
)

// NewEvent creates an event of the given kind stamped with the current time.
func NewEvent(kind EventKind) Event {
	return domain.NewEvent(kind)
}

// ParseEventKind converts an event name such as "exited_geofence" to an EventKind.
func ParseEventKind(name string) (EventKind, error) {
	return domain.ParseEventKind(name)
}

// NewCompletion creates an unresolved Completion for an ActionProvider.
func NewCompletion() *Completion {
	return domain.NewCompletion()
}
