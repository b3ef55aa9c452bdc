package ports

import "github.com/bft-labs/tripdiary/internal/domain"

// Notifier surfaces user feedback.
// Delivery is best-effort: the state machine never depends on it succeeding,
// so methods do not return errors.
type Notifier interface {
	// Notify posts an informational or error notification.
	Notify(kind domain.NotificationKind, message string)

	// NotifyResolution posts a notification the user can act on.
	// The token identifies the resolution flow to the host.
	NotifyResolution(kind domain.NotificationKind, message, token string)

	// Cancel removes any outstanding notification of the kind.
	Cancel(kind domain.NotificationKind)
}
