package tripdiary

import (
	"errors"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// Errors returned by the service. Check them with errors.Is.
var (
	ErrAlreadyRunning    = domain.ErrAlreadyRunning
	ErrNotRunning        = domain.ErrNotRunning
	ErrShutdownTimeout   = domain.ErrShutdownTimeout
	ErrInvalidConfig     = domain.ErrInvalidConfig
	ErrActionFailed      = domain.ErrActionFailed
	ErrActionUnavailable = domain.ErrActionUnavailable
	ErrPermissionDenied  = domain.ErrPermissionDenied
	ErrUnknownEvent      = domain.ErrUnknownEvent

	// ErrNoHistory is returned by History when the configured recorder
	// cannot be read back.
	ErrNoHistory = errors.New("tripdiary: transition recorder is not readable")
)
