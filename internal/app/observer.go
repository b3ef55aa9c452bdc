package app

import (
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
)

// Commit describes how one event was handled.
type Commit struct {
	DispatchID string
	Event      domain.Event
	From       domain.State
	To         domain.State

	// Plan names the transition handler that ran, e.g. "start_trip".
	Plan    string
	Actions domain.AggregateResult

	// Succeeded is true when every launched action succeeded.
	Succeeded bool

	// Committed is true when To was written to the state repository.
	Committed bool

	Duration time.Duration
	Err      error
}

// GuardResult classifies the outcome of one settings guard check.
type GuardResult int

const (
	GuardPermissionDenied GuardResult = iota
	GuardSatisfied
	GuardResolutionRequired
	GuardUnresolvable
	GuardCheckFailed
)

// String returns a human-readable representation of the guard result.
func (r GuardResult) String() string {
	switch r {
	case GuardPermissionDenied:
		return "permission_denied"
	case GuardSatisfied:
		return "satisfied"
	case GuardResolutionRequired:
		return "resolution_required"
	case GuardUnresolvable:
		return "unresolvable"
	case GuardCheckFailed:
		return "check_failed"
	default:
		return "unknown"
	}
}

// Observer is notified of dispatch progress. Implementations must return
// quickly; they are called on the dispatch path.
type Observer interface {
	OnEvent(event domain.Event, state domain.State)
	OnActionResult(result domain.ActionResult)
	OnCommit(commit Commit)
	OnGuard(result GuardResult)
}

// NopObserver ignores every notification.
type NopObserver struct{}

func (NopObserver) OnEvent(domain.Event, domain.State)  {}
func (NopObserver) OnActionResult(domain.ActionResult) {}
func (NopObserver) OnCommit(Commit)                    {}
func (NopObserver) OnGuard(GuardResult)                {}

// MultiObserver fans notifications out to several observers in order.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(event domain.Event, state domain.State) {
	for _, o := range m {
		o.OnEvent(event, state)
	}
}

func (m MultiObserver) OnActionResult(result domain.ActionResult) {
	for _, o := range m {
		o.OnActionResult(result)
	}
}

func (m MultiObserver) OnCommit(commit Commit) {
	for _, o := range m {
		o.OnCommit(commit)
	}
}

func (m MultiObserver) OnGuard(result GuardResult) {
	for _, o := range m {
		o.OnGuard(result)
	}
}
