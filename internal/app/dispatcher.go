package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Feedback messages posted when verbose feedback is enabled.
const (
	msgTransitionSucceeded = "success moving to new state %s"
	msgTransitionFailed    = "failed moving to new state %s"
)

// DefaultCommitAttempts is the number of times a state write is attempted.
const DefaultCommitAttempts = 3

// DispatcherConfig contains configuration for the transition dispatcher.
type DispatcherConfig struct {
	// Verbose posts a notification for every committed transition.
	Verbose bool

	// ResetOnInitialize routes INITIALIZE in waiting_for_trip_start and
	// ongoing_trip to the start handler.
	ResetOnInitialize bool

	// CommitAttempts bounds the retries of a failing state write.
	CommitAttempts int

	CommitBackoffInitial time.Duration
	CommitBackoffMax     time.Duration
}

// DefaultDispatcherConfig returns a DispatcherConfig with default values.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		ResetOnInitialize:    true,
		CommitAttempts:       DefaultCommitAttempts,
		CommitBackoffInitial: DefaultCommitBackoffInitial,
		CommitBackoffMax:     DefaultCommitBackoffMax,
	}
}

// DispatcherDeps are the collaborators of a Dispatcher.
// Store, Coordinator, Guard and Injector are required.
type DispatcherDeps struct {
	Store       ports.StateRepository
	Coordinator *Coordinator
	Guard       *Guard
	Injector    ports.EventInjector
	Notifier    ports.Notifier
	Presence    ports.PresenceSignal
	Recorder    ports.TransitionRecorder
	Observer    Observer
	Logger      ports.Logger
}

// Dispatcher is the FSM core. For each event it reads the persisted state,
// selects the transition handler, launches its actions, commits the next
// state and runs the settings guard.
//
// Read, decide and commit are serialized: a dispatch holds the commit lock
// from the state read until the guard's synchronous step, so two events can
// never act on the same stale state.
type Dispatcher struct {
	cfg         DispatcherConfig
	store       ports.StateRepository
	coordinator *Coordinator
	guard       *Guard
	injector    ports.EventInjector
	notifier    ports.Notifier
	presence    ports.PresenceSignal
	recorder    ports.TransitionRecorder
	observer    Observer
	logger      ports.Logger

	verbose atomic.Bool

	// mu is the single-writer serialization point. A detached dispatch
	// unlocks it from its own goroutine once it has committed.
	mu sync.Mutex
	wg sync.WaitGroup
}

// dispatch is the immutable per-event context carried through every step.
type dispatch struct {
	id    string
	event domain.Event
	from  domain.State
	start time.Time
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig, deps DispatcherDeps) *Dispatcher {
	if cfg.CommitAttempts <= 0 {
		cfg.CommitAttempts = DefaultCommitAttempts
	}
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Presence == nil {
		deps.Presence = nopPresence{}
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}

	d := &Dispatcher{
		cfg:         cfg,
		store:       deps.Store,
		coordinator: deps.Coordinator,
		guard:       deps.Guard,
		injector:    deps.Injector,
		notifier:    deps.Notifier,
		presence:    deps.Presence,
		recorder:    deps.Recorder,
		observer:    deps.Observer,
		logger:      deps.Logger,
	}
	d.verbose.Store(cfg.Verbose)
	return d
}

// SetVerbose toggles the verbose feedback notifications.
func (d *Dispatcher) SetVerbose(v bool) {
	d.verbose.Store(v)
}

// Verbose reports whether verbose feedback is enabled.
func (d *Dispatcher) Verbose() bool {
	return d.verbose.Load()
}

// Dispatch handles event and returns a channel that receives its Commit.
// For most transitions the commit has happened by the time Dispatch returns.
// Detached transitions (ongoing_trip on stopped_moving) return immediately
// and commit from a background goroutine; later dispatches wait for it.
func (d *Dispatcher) Dispatch(ctx context.Context, event domain.Event) <-chan Commit {
	out := make(chan Commit, 1)

	d.mu.Lock()
	dc := d.begin(ctx, event)
	p := d.planFor(dc.from, event.Kind)

	d.logger.Debug("handling event",
		ports.String("dispatch_id", dc.id),
		ports.String("state", dc.from.String()),
		ports.String("event", event.Kind.String()),
		ports.String("plan", p.name),
		ports.Bool("detached", p.detached))

	if p.detached {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			defer d.mu.Unlock()
			out <- d.execute(ctx, dc, p)
		}()
		return out
	}

	defer d.mu.Unlock()
	out <- d.execute(ctx, dc, p)
	return out
}

// Handle dispatches event and waits for its commit.
func (d *Dispatcher) Handle(ctx context.Context, event domain.Event) Commit {
	return <-d.Dispatch(ctx, event)
}

// Wait blocks until every detached dispatch has committed.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// begin reads the persisted state. An unreadable state is treated as start.
func (d *Dispatcher) begin(ctx context.Context, event domain.Event) dispatch {
	dc := dispatch{
		id:    uuid.NewString(),
		event: event,
		start: time.Now(),
	}

	from, err := d.store.Load(ctx)
	if err != nil || !from.Valid() {
		d.logger.Error("failed to load state, assuming start",
			ports.String("dispatch_id", dc.id),
			ports.Err(err))
		from = domain.StateStart
	}
	dc.from = from

	d.observer.OnEvent(event, from)
	return dc
}

func (d *Dispatcher) execute(ctx context.Context, dc dispatch, p plan) Commit {
	c := Commit{
		DispatchID: dc.id,
		Event:      dc.event,
		From:       dc.from,
		To:         dc.from,
		Plan:       p.name,
	}

	if len(p.actions) > 0 {
		result, err := d.coordinator.Launch(ctx, dc.event, p.actions...)
		if err != nil {
			// Shutting down mid-batch: leave the previous state in place.
			c.Err = fmt.Errorf("launch %s: %w", p.name, err)
			c.Duration = time.Since(dc.start)
			d.logger.Warn("dispatch abandoned before commit",
				ports.String("dispatch_id", dc.id),
				ports.String("event", dc.event.Kind.String()),
				ports.Err(err))
			return c
		}
		c.Actions = result
	}

	c.Succeeded = c.Actions.AllSucceeded()
	c.To = p.decide(dc.from, c.Actions)

	if err := d.persist(ctx, dc, c.To); err != nil {
		c.Err = err
		d.logger.Error("failed to commit state",
			ports.String("dispatch_id", dc.id),
			ports.String("state", c.To.String()),
			ports.Err(err))
	} else {
		c.Committed = true
	}

	d.reconcilePresence(c, p)

	if p.reinit && c.Committed {
		d.injector.Inject(domain.NewEvent(domain.EventInitialize))
	}

	c.Duration = time.Since(dc.start)
	d.record(ctx, c)
	d.feedback(c)
	d.observer.OnCommit(c)

	d.logger.Info("state transition",
		ports.String("dispatch_id", dc.id),
		ports.String("from", c.From.String()),
		ports.String("event", dc.event.Kind.String()),
		ports.String("to", c.To.String()),
		ports.String("actions", c.Actions.String()),
		ports.Bool("succeeded", c.Succeeded),
		ports.Duration("duration", c.Duration))

	// A tracking error is re-raised until it lands in start or
	// tracking_stopped; there the re-run would be a no-op loop.
	trackingError := dc.event.Kind == domain.EventTrackingError
	settled := c.To == domain.StateStart || c.To == domain.StateTrackingStopped
	d.guard.Check(ctx, CheckRequest{
		DispatchID:            dc.id,
		State:                 c.To,
		SuppressTrackingError: trackingError && settled,
		RetryTrackingError:    trackingError && !settled,
		ReinitScheduled:       p.reinit && c.Committed,
	})

	return c
}

// persist writes the next state, retrying with backoff.
func (d *Dispatcher) persist(ctx context.Context, dc dispatch, s domain.State) error {
	b := newBackoff(d.cfg.CommitBackoffInitial, d.cfg.CommitBackoffMax)

	var err error
	for attempt := 1; attempt <= d.cfg.CommitAttempts; attempt++ {
		if err = d.store.Save(ctx, s); err == nil {
			return nil
		}
		d.logger.Warn("state write failed",
			ports.String("dispatch_id", dc.id),
			ports.Int("attempt", attempt),
			ports.Err(err))
		if attempt == d.cfg.CommitAttempts {
			break
		}
		if werr := b.Wait(ctx); werr != nil {
			return fmt.Errorf("commit %s: %w", s, errors.Join(err, werr))
		}
	}
	return fmt.Errorf("commit %s: %w", s, err)
}

// reconcilePresence keeps the presence signal active exactly while the
// committed state is ongoing_trip.
func (d *Dispatcher) reconcilePresence(c Commit, p plan) {
	switch {
	case c.To == domain.StateOngoingTrip && c.From != domain.StateOngoingTrip:
		d.presence.Start()
	case c.From == domain.StateOngoingTrip && c.To != domain.StateOngoingTrip:
		d.presence.Stop()
	case p.stopsAll && c.Succeeded:
		d.presence.Stop()
	}
}

func (d *Dispatcher) record(ctx context.Context, c Commit) {
	if d.recorder == nil {
		return
	}
	rec := domain.TransitionRecord{
		DispatchID:  c.DispatchID,
		From:        c.From,
		Event:       c.Event.Kind,
		To:          c.To,
		EventAt:     c.Event.At,
		CommittedAt: time.Now(),
		Succeeded:   c.Succeeded,
		Redelivered: c.Event.Redelivered,
		Actions:     c.Actions.Results,
	}
	if err := d.recorder.Record(ctx, rec); err != nil {
		d.logger.Warn("failed to record transition",
			ports.String("dispatch_id", c.DispatchID),
			ports.Err(err))
	}
}

func (d *Dispatcher) feedback(c Commit) {
	if !d.verbose.Load() {
		return
	}
	if c.Succeeded && c.Committed {
		d.notifier.Notify(domain.NotificationStateChange, fmt.Sprintf(msgTransitionSucceeded, c.To))
		return
	}
	d.notifier.Notify(domain.NotificationStateChange, fmt.Sprintf(msgTransitionFailed, c.To))
}

type nopNotifier struct{}

func (nopNotifier) Notify(domain.NotificationKind, string)                   {}
func (nopNotifier) NotifyResolution(domain.NotificationKind, string, string) {}
func (nopNotifier) Cancel(domain.NotificationKind)                           {}

type nopPresence struct{}

func (nopPresence) Start() {}
func (nopPresence) Stop()  {}
