package ports

import (
	"context"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// PermissionChecker verifies permission grants synchronously.
type PermissionChecker interface {
	// LocationPermissionGranted reports whether the permission required by the
	// request profile is granted.
	LocationPermissionGranted(profile domain.RequestProfile) bool
}

// SettingsChecker validates device location settings against a request profile.
type SettingsChecker interface {
	// CheckLocationSettings may block until the platform answers.
	// An error means the check itself failed and the result is unknown.
	CheckLocationSettings(ctx context.Context, profile domain.RequestProfile) (domain.SettingsStatus, error)
}

// PresenceSignal keeps the tracking process alive and visible while a trip
// is being tracked. Start and Stop are idempotent.
type PresenceSignal interface {
	Start()
	Stop()
}
