package domain

import "time"

// RequestProfile describes the location request made by the tracking action.
// The settings guard validates permissions and device settings against it.
type RequestProfile struct {
	// Accuracy is the requested accuracy class, e.g. "high_accuracy" or "balanced".
	Accuracy string `json:"accuracy" toml:"accuracy"`

	// Interval is the requested update interval.
	Interval time.Duration `json:"interval" toml:"-"`

	// Permission is the platform permission the request needs, e.g. "fine_location".
	Permission string `json:"permission" toml:"permission"`
}

// SettingsCode classifies the result of a location settings check.
type SettingsCode int

const (
	SettingsSatisfied SettingsCode = iota
	SettingsResolutionRequired
	SettingsChangeUnavailable
)

// String returns a human-readable representation of the code.
func (c SettingsCode) String() string {
	switch c {
	case SettingsSatisfied:
		return "satisfied"
	case SettingsResolutionRequired:
		return "resolution_required"
	case SettingsChangeUnavailable:
		return "change_unavailable"
	default:
		return "unknown"
	}
}

// SettingsStatus is the outcome of a location settings check.
type SettingsStatus struct {
	Code SettingsCode

	// StatusCode is the platform status code, shown to the user when non-zero.
	StatusCode int

	// Resolution is an opaque token the host uses to start the resolution flow.
	Resolution string
}

// NotificationKind identifies a notification slot. Posting a notification of
// a kind replaces any outstanding notification of the same kind.
type NotificationKind int

const (
	NotificationStateChange NotificationKind = iota
	NotificationTrackingError
	NotificationLocationPermission
)

// String returns the name of the notification kind.
func (k NotificationKind) String() string {
	switch k {
	case NotificationStateChange:
		return "state_change"
	case NotificationTrackingError:
		return "tracking_error"
	case NotificationLocationPermission:
		return "location_permission"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k NotificationKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}
