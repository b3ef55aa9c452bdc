package app

import (
	"context"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// ShutdownTimeout is the maximum time to wait for graceful shutdown.
const ShutdownTimeout = 30 * time.Second

// Phase is the run phase of the tracking service, independent of the
// persisted tracking state.
type Phase int

const (
	PhaseStopped Phase = iota
	PhaseStarting
	PhaseRunning
	PhaseStopping
	PhaseCrashed
)

// String returns a human-readable representation of the phase.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "Stopped"
	case PhaseStarting:
		return "Starting"
	case PhaseRunning:
		return "Running"
	case PhaseStopping:
		return "Stopping"
	case PhaseCrashed:
		return "Crashed"
	default:
		return "Unknown"
	}
}

// allowedPhases lists the valid successors of every phase.
var allowedPhases = map[Phase][]Phase{
	PhaseStopped:  {PhaseStarting},
	PhaseStarting: {PhaseRunning, PhaseStopping, PhaseCrashed},
	PhaseRunning:  {PhaseStopping, PhaseCrashed},
	PhaseStopping: {PhaseStopped, PhaseCrashed},
	PhaseCrashed:  {PhaseStarting},
}

// PhaseListener is called when the service phase changes.
type PhaseListener interface {
	OnPhaseChange(previous, current Phase, reason string)
}

// Lifecycle tracks the run phase of the service and its workers.
type Lifecycle struct {
	mu       sync.RWMutex
	phase    Phase
	cancel   context.CancelFunc
	workers  sync.WaitGroup
	logger   ports.Logger
	listener PhaseListener
}

// NewLifecycle creates a lifecycle in the stopped phase.
func NewLifecycle(logger ports.Logger, listener PhaseListener) *Lifecycle {
	return &Lifecycle{
		phase:    PhaseStopped,
		logger:   logger,
		listener: listener,
	}
}

// Phase returns the current phase.
func (l *Lifecycle) Phase() Phase {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.phase
}

// TransitionTo moves to next, or returns an error if next is not a valid
// successor of the current phase. From stopped or crashed the error is
// ErrNotRunning, otherwise ErrAlreadyRunning.
func (l *Lifecycle) TransitionTo(next Phase, reason string) error {
	l.mu.Lock()
	prev := l.phase
	if !phaseAllowed(prev, next) {
		l.mu.Unlock()
		if prev == PhaseStopped || prev == PhaseCrashed {
			return domain.ErrNotRunning
		}
		return domain.ErrAlreadyRunning
	}
	l.phase = next
	l.mu.Unlock()

	if l.listener != nil {
		l.listener.OnPhaseChange(prev, next, reason)
	}

	l.logger.Info("service phase changed",
		ports.String("from", prev.String()),
		ports.String("to", next.String()),
		ports.String("reason", reason),
	)
	return nil
}

func phaseAllowed(from, to Phase) bool {
	for _, p := range allowedPhases[from] {
		if p == to {
			return true
		}
	}
	return false
}

// CanStart reports whether the service may be started.
func (l *Lifecycle) CanStart() bool {
	return phaseAllowed(l.Phase(), PhaseStarting)
}

// CanStop reports whether the service may be stopped.
func (l *Lifecycle) CanStop() bool {
	return phaseAllowed(l.Phase(), PhaseStopping)
}

// SetCancel stores the function that cancels the run context.
func (l *Lifecycle) SetCancel(cancel context.CancelFunc) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cancel = cancel
}

// Cancel cancels the run context, if any.
func (l *Lifecycle) Cancel() {
	l.mu.Lock()
	cancel := l.cancel
	l.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Go runs fn as a tracked worker.
func (l *Lifecycle) Go(fn func()) {
	l.workers.Add(1)
	go func() {
		defer l.workers.Done()
		fn()
	}()
}

// WaitWithTimeout waits for all workers to finish.
// Returns ErrShutdownTimeout if the timeout expires first.
func (l *Lifecycle) WaitWithTimeout(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		l.workers.Wait()
		close(done)
	}()

	t := time.NewTimer(timeout)
	defer t.Stop()

	select {
	case <-done:
		return nil
	case <-t.C:
		l.logger.Warn("shutdown timeout, workers still running",
			ports.Duration("timeout", timeout),
		)
		return domain.ErrShutdownTimeout
	}
}
