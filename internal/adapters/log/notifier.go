package log

import (
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Notifier implements ports.Notifier by writing notifications to a logger.
// It is the default notifier of the daemon when no webhook is configured.
type Notifier struct {
	logger ports.Logger
}

// NewNotifier creates a log-backed notifier.
func NewNotifier(logger ports.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Notify logs the notification. Tracking errors log at warn level.
func (n *Notifier) Notify(kind domain.NotificationKind, message string) {
	fields := []ports.Field{ports.String("kind", kind.String())}
	if kind == domain.NotificationTrackingError {
		n.logger.Warn("notification: "+message, fields...)
		return
	}
	n.logger.Info("notification: "+message, fields...)
}

// NotifyResolution logs the notification together with its resolution token.
func (n *Notifier) NotifyResolution(kind domain.NotificationKind, message, token string) {
	n.logger.Warn("notification: "+message,
		ports.String("kind", kind.String()),
		ports.String("resolution_token", token))
}

// Cancel logs the cancellation at debug level.
func (n *Notifier) Cancel(kind domain.NotificationKind) {
	n.logger.Debug("notification cancelled", ports.String("kind", kind.String()))
}
