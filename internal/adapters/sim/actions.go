package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// ActionSpec is the simulated behavior of one action kind.
type ActionSpec struct {
	Outcome     domain.Outcome
	Delay       time.Duration
	RetrySafety ports.RetrySafety
}

// DefaultActionSpecs returns specs under which every action succeeds at once.
// Geofence creation is at-most-once, as registering a geofence twice leaves
// two geofences behind.
func DefaultActionSpecs() map[domain.ActionKind]ActionSpec {
	specs := make(map[domain.ActionKind]ActionSpec, len(domain.ActionKinds()))
	for _, k := range domain.ActionKinds() {
		specs[k] = ActionSpec{Outcome: domain.OutcomeSucceeded, RetrySafety: ports.Idempotent}
	}
	specs[domain.ActionGeofenceCreate] = ActionSpec{Outcome: domain.OutcomeSucceeded, RetrySafety: ports.AtMostOnce}
	return specs
}

// Actions implements ports.ActionProvider with simulated actions.
type Actions struct {
	mu       sync.RWMutex
	specs    map[domain.ActionKind]ActionSpec
	invoked  map[domain.ActionKind]int
	inflight sync.WaitGroup
	logger   ports.Logger
}

// NewActions creates a simulated provider. Kinds missing from specs succeed
// immediately and are idempotent.
func NewActions(specs map[domain.ActionKind]ActionSpec, logger ports.Logger) *Actions {
	a := &Actions{
		invoked: make(map[domain.ActionKind]int),
		logger:  logger,
	}
	a.Update(specs)
	return a
}

// Update replaces the specs. Actions already in flight keep their old spec.
func (a *Actions) Update(specs map[domain.ActionKind]ActionSpec) {
	cp := make(map[domain.ActionKind]ActionSpec, len(specs))
	for k, v := range specs {
		cp[k] = v
	}
	a.mu.Lock()
	a.specs = cp
	a.mu.Unlock()
}

// Spec returns the current spec of kind.
func (a *Actions) Spec(kind domain.ActionKind) ActionSpec {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if s, ok := a.specs[kind]; ok {
		return s
	}
	return ActionSpec{Outcome: domain.OutcomeSucceeded}
}

// Invocations returns how often kind has been invoked.
func (a *Actions) Invocations(kind domain.ActionKind) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.invoked[kind]
}

// Invoke starts the simulated action.
func (a *Actions) Invoke(ctx context.Context, kind domain.ActionKind) ports.Handle {
	spec := a.Spec(kind)
	a.mu.Lock()
	a.invoked[kind]++
	a.mu.Unlock()

	a.logger.Debug("sim: action invoked",
		ports.String("action", kind.String()),
		ports.String("outcome", spec.Outcome.String()),
		ports.Duration("delay", spec.Delay))

	if spec.Outcome == domain.OutcomeUnavailable {
		if kind.MayBeUnavailable() {
			return nil
		}
		return domain.Failed(fmt.Errorf("%s: %w", kind, domain.ErrActionUnavailable))
	}

	c := domain.NewCompletion()
	if spec.Delay <= 0 {
		resolve(c, kind, spec.Outcome)
		return c
	}

	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		t := time.NewTimer(spec.Delay)
		defer t.Stop()
		select {
		case <-t.C:
			resolve(c, kind, spec.Outcome)
		case <-ctx.Done():
			c.Fail(ctx.Err())
		}
	}()
	return c
}

// RetrySafety reports the configured redelivery contract of kind.
func (a *Actions) RetrySafety(kind domain.ActionKind) ports.RetrySafety {
	return a.Spec(kind).RetrySafety
}

// Wait blocks until every delayed action has resolved.
func (a *Actions) Wait() {
	a.inflight.Wait()
}

func resolve(c *domain.Completion, kind domain.ActionKind, o domain.Outcome) {
	if o == domain.OutcomeFailed {
		c.Fail(fmt.Errorf("simulated %s failure: %w", kind, domain.ErrActionFailed))
		return
	}
	c.Succeed()
}
