package ports

import (
	"context"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// TransitionRecorder appends committed transitions to an audit journal.
type TransitionRecorder interface {
	Record(ctx context.Context, record domain.TransitionRecord) error
}
