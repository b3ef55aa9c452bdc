package tripdiary

import (
	"time"

	"github.com/bft-labs/tripdiary/internal/app"
	"github.com/bft-labs/tripdiary/internal/domain"
)

// Phase is the run phase of the service.
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
	return app.Phase(p).String()
}

// PhaseChangeEvent is emitted when the service phase changes.
type PhaseChangeEvent struct {
	Previous Phase
	Current  Phase
	Reason   string
}

// CommitEvent is emitted after every handled event.
type CommitEvent struct {
	DispatchID string
	Event      EventKind
	From       State
	To         State

	// Plan names the transition handler that ran.
	Plan string

	// Succeeded is true when every launched action succeeded.
	Succeeded bool

	// Committed is true when To was persisted.
	Committed bool

	Duration time.Duration
	Err      error
}

// GuardEvent is emitted after every permission or settings check.
type GuardEvent struct {
	// Result is one of "permission_denied", "satisfied",
	// "resolution_required", "unresolvable" or "check_failed".
	Result string
}

// EventHandler receives service notifications. Methods are called on the
// dispatch path and must return quickly.
type EventHandler interface {
	OnPhaseChange(event PhaseChangeEvent)
	OnCommit(event CommitEvent)
	OnGuard(event GuardEvent)
}

// BaseEventHandler implements EventHandler with no-ops. Embed it to handle
// only some notifications.
type BaseEventHandler struct{}

func (BaseEventHandler) OnPhaseChange(PhaseChangeEvent) {}
func (BaseEventHandler) OnCommit(CommitEvent)           {}
func (BaseEventHandler) OnGuard(GuardEvent)             {}

// eventEmitterWrapper adapts EventHandler to the internal observer and
// phase listener interfaces.
type eventEmitterWrapper struct {
	handler EventHandler
}

func (e *eventEmitterWrapper) OnPhaseChange(previous, current app.Phase, reason string) {
	if e.handler == nil {
		return
	}
	e.handler.OnPhaseChange(PhaseChangeEvent{
		Previous: Phase(previous),
		Current:  Phase(current),
		Reason:   reason,
	})
}

func (e *eventEmitterWrapper) OnEvent(domain.Event, domain.State)  {}
func (e *eventEmitterWrapper) OnActionResult(domain.ActionResult) {}

func (e *eventEmitterWrapper) OnCommit(c app.Commit) {
	if e.handler == nil {
		return
	}
	e.handler.OnCommit(CommitEvent{
		DispatchID: c.DispatchID,
		Event:      c.Event.Kind,
		From:       c.From,
		To:         c.To,
		Plan:       c.Plan,
		Succeeded:  c.Succeeded,
		Committed:  c.Committed,
		Duration:   c.Duration,
		Err:        c.Err,
	})
}

func (e *eventEmitterWrapper) OnGuard(r app.GuardResult) {
	if e.handler == nil {
		return
	}
	e.handler.OnGuard(GuardEvent{Result: r.String()})
}
