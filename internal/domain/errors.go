package domain

import "errors"

// Domain errors represent error conditions in the tripdiary domain.
// These errors can be checked with errors.Is.
var (
	// ErrActionFailed is returned by a handle whose engaged action reported failure
	// without a more specific error.
	ErrActionFailed = errors.New("tripdiary: action failed")

	// ErrActionUnavailable is recorded when a capability could not be engaged.
	ErrActionUnavailable = errors.New("tripdiary: action unavailable")

	// ErrPermissionDenied is reported when the location permission is not granted.
	ErrPermissionDenied = errors.New("tripdiary: location permission denied")

	// ErrSettingsResolvable is reported when location settings are unsatisfied
	// but the user can fix them.
	ErrSettingsResolvable = errors.New("tripdiary: location settings need resolution")

	// ErrSettingsUnresolvable is reported when location settings are unsatisfied
	// and cannot be fixed from the app.
	ErrSettingsUnresolvable = errors.New("tripdiary: location settings unresolvable")

	// ErrUnknownState is returned when parsing an unrecognized state name.
	ErrUnknownState = errors.New("tripdiary: unknown state")

	// ErrUnknownEvent is returned when parsing an unrecognized event name.
	ErrUnknownEvent = errors.New("tripdiary: unknown event")

	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("tripdiary: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("tripdiary: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("tripdiary: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tripdiary: invalid configuration")
)
