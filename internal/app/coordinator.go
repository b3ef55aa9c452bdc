package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// prerequisites maps an action to the action it is pointless without.
// Motion classification is not started when continuous tracking is unavailable.
var prerequisites = map[domain.ActionKind]domain.ActionKind{
	domain.ActionActivityRecognitionStart: domain.ActionTrackingStart,
}

// Coordinator launches a batch of actions concurrently and joins them.
type Coordinator struct {
	actions  ports.ActionProvider
	observer Observer
	logger   ports.Logger
}

// NewCoordinator creates a coordinator over the given action provider.
func NewCoordinator(actions ports.ActionProvider, observer Observer, logger ports.Logger) *Coordinator {
	if observer == nil {
		observer = NopObserver{}
	}
	return &Coordinator{
		actions:  actions,
		observer: observer,
		logger:   logger,
	}
}

type slot struct {
	kind     domain.ActionKind
	handle   ports.Handle
	started  time.Time
	result   domain.ActionResult
	resolved bool
	skipped  bool
}

// Launch invokes every kind and blocks until all launched actions resolved.
// It never returns a partial result: if ctx is done first, it returns ctx.Err().
// The coordinator imposes no timeout of its own.
func (c *Coordinator) Launch(ctx context.Context, event domain.Event, kinds ...domain.ActionKind) (domain.AggregateResult, error) {
	slots := make([]slot, len(kinds))
	index := make(map[domain.ActionKind]int, len(kinds))
	for i, k := range kinds {
		slots[i].kind = k
		if _, dup := index[k]; !dup {
			index[k] = i
		}
	}

	// Dependents listed before their prerequisite wait until it was invoked.
	var deferred []int
	for i, k := range kinds {
		if pre, ok := prerequisites[k]; ok {
			if pi, inBatch := index[pre]; inBatch && pi > i {
				deferred = append(deferred, i)
				continue
			}
		}
		c.invoke(ctx, event, slots, index, i)
	}
	for _, i := range deferred {
		c.invoke(ctx, event, slots, index, i)
	}

	var wg sync.WaitGroup
	for i := range slots {
		s := &slots[i]
		if s.handle == nil {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-s.handle.Done():
				s.result = resolvedResult(s.kind, s.handle.Err(), time.Since(s.started))
				s.resolved = true
			case <-ctx.Done():
			}
		}()
	}
	wg.Wait()

	result := domain.AggregateResult{Results: make([]domain.ActionResult, 0, len(slots))}
	for i := range slots {
		s := &slots[i]
		if s.skipped {
			c.logger.Debug("action skipped",
				ports.String("action", s.kind.String()),
				ports.String("reason", "prerequisite unavailable"))
			continue
		}
		if !s.resolved {
			return domain.AggregateResult{}, ctx.Err()
		}
		result.Results = append(result.Results, s.result)
	}

	for _, res := range result.Results {
		c.observer.OnActionResult(res)
		fields := []ports.Field{
			ports.String("action", res.Kind.String()),
			ports.String("outcome", res.Outcome.String()),
			ports.Duration("duration", res.Duration),
		}
		if res.Err != nil && res.Outcome == domain.OutcomeFailed {
			c.logger.Warn("action failed", append(fields, ports.Err(res.Err))...)
			continue
		}
		c.logger.Debug("action resolved", fields...)
	}

	return result, nil
}

// invoke starts the action in slot i, or marks it skipped or unavailable.
func (c *Coordinator) invoke(ctx context.Context, event domain.Event, slots []slot, index map[domain.ActionKind]int, i int) {
	s := &slots[i]

	if pre, ok := prerequisites[s.kind]; ok {
		if pi, inBatch := index[pre]; inBatch && slots[pi].resolved && slots[pi].result.Outcome == domain.OutcomeUnavailable {
			s.skipped = true
			return
		}
	}

	if event.Redelivered && c.actions.RetrySafety(s.kind) == ports.AtMostOnce {
		c.logger.Warn("invoking at-most-once action for redelivered event",
			ports.String("action", s.kind.String()),
			ports.String("event", event.Kind.String()))
	}

	s.started = time.Now()
	h := c.actions.Invoke(ctx, s.kind)
	if h != nil {
		s.handle = h
		return
	}

	s.resolved = true
	if s.kind.MayBeUnavailable() {
		s.result = domain.ActionResult{
			Kind:    s.kind,
			Outcome: domain.OutcomeUnavailable,
			Err:     domain.ErrActionUnavailable,
		}
		return
	}
	s.result = domain.ActionResult{
		Kind:    s.kind,
		Outcome: domain.OutcomeFailed,
		Err:     fmt.Errorf("%w: provider returned no handle for %s", domain.ErrActionUnavailable, s.kind),
	}
}

func resolvedResult(kind domain.ActionKind, err error, d time.Duration) domain.ActionResult {
	if err != nil {
		return domain.ActionResult{Kind: kind, Outcome: domain.OutcomeFailed, Err: err, Duration: d}
	}
	return domain.ActionResult{Kind: kind, Outcome: domain.OutcomeSucceeded, Duration: d}
}
