package app

import (
	"context"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// TrackerConfig contains configuration for the event loop.
type TrackerConfig struct {
	// InitializeOnStart injects an initialize event at startup when the
	// persisted state is start, so a restarted process resumes tracking.
	InitializeOnStart bool
}

// Tracker drains the inbox and dispatches each event in arrival order.
type Tracker struct {
	cfg        TrackerConfig
	inbox      *Inbox
	dispatcher *Dispatcher
	guard      *Guard
	store      ports.StateRepository
	logger     ports.Logger
}

// NewTracker creates the event loop.
func NewTracker(cfg TrackerConfig, inbox *Inbox, dispatcher *Dispatcher, guard *Guard, store ports.StateRepository, logger ports.Logger) *Tracker {
	return &Tracker{
		cfg:        cfg,
		inbox:      inbox,
		dispatcher: dispatcher,
		guard:      guard,
		store:      store,
		logger:     logger,
	}
}

// Run processes events until ctx is done. It returns ctx.Err() after
// outstanding detached dispatches and guard checks have finished.
func (t *Tracker) Run(ctx context.Context) error {
	defer func() {
		t.dispatcher.Wait()
		t.guard.Wait()
	}()

	if t.cfg.InitializeOnStart {
		state, err := t.store.Load(ctx)
		if err != nil {
			t.logger.Warn("failed to load state at startup", ports.Err(err))
		}
		if err != nil || state == domain.StateStart {
			t.logger.Info("resuming tracking from start")
			t.inbox.Inject(domain.NewEvent(domain.EventInitialize))
		} else {
			t.logger.Info("resuming tracking", ports.String("state", state.String()))
		}
	}

	for {
		for {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ev, ok := t.inbox.Pop()
			if !ok {
				break
			}
			t.dispatcher.Dispatch(ctx, ev)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.inbox.Ready():
		}
	}
}
