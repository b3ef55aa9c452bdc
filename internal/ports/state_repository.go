package ports

import (
	"context"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// StateRepository is the durable single-slot store of the FSM state.
// It survives process restarts.
type StateRepository interface {
	// Load retrieves the persisted state.
	// Returns domain.StateStart and nil error if no state has been saved.
	// Returns an error only for actual read failures or unparseable values.
	Load(ctx context.Context) (domain.State, error)

	// Save persists the state durably before returning.
	// The implementation should use atomic writes (e.g., write to temp file, then rename)
	// to prevent corruption on crash.
	Save(ctx context.Context, state domain.State) error
}
