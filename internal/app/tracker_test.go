package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tripdiary/internal/domain"
)

type trackerFixture struct {
	store   *memStore
	actions *fakeActions
	device  *fakeDevice
	inbox   *Inbox
	tracker *Tracker
}

func newTrackerFixture(initial domain.State, initOnStart bool) *trackerFixture {
	f := &trackerFixture{
		store:   newMemStore(initial),
		actions: newFakeActions(),
		device:  &fakeDevice{},
		inbox:   NewInbox(),
	}
	gcfg := DefaultGuardConfig()
	gcfg.SelfHealInitial = 0
	guard := NewGuard(gcfg, GuardDeps{
		Permissions: f.device,
		Settings:    f.device,
		Store:       f.store,
		Injector:    f.inbox,
		Logger:      nopLogger{},
	})
	d := NewDispatcher(DefaultDispatcherConfig(), DispatcherDeps{
		Store:       f.store,
		Coordinator: NewCoordinator(f.actions, nil, nopLogger{}),
		Guard:       guard,
		Injector:    f.inbox,
		Logger:      nopLogger{},
	})
	f.tracker = NewTracker(TrackerConfig{InitializeOnStart: initOnStart}, f.inbox, d, guard, f.store, nopLogger{})
	return f
}

func (f *trackerFixture) run(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.tracker.Run(ctx) }()
	return cancel, done
}

func waitForState(t *testing.T, store *memStore, want domain.State) {
	t.Helper()
	require.Eventually(t, func() bool { return store.Get() == want }, time.Second, 5*time.Millisecond,
		"state never became %s (is %s)", want, store.Get())
}

func TestTracker_InitializeOnStart(t *testing.T) {
	f := newTrackerFixture(domain.StateStart, true)
	cancel, done := f.run(t)
	defer cancel()

	waitForState(t, f.store, domain.StateWaitingForTripStart)

	cancel()
	err := <-done
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTracker_NoInitializeWhenTracking(t *testing.T) {
	f := newTrackerFixture(domain.StateOngoingTrip, true)
	cancel, done := f.run(t)

	time.Sleep(20 * time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, f.actions.Invoked())
	assert.Equal(t, domain.StateOngoingTrip, f.store.Get())
}

func TestTracker_FullTrip(t *testing.T) {
	f := newTrackerFixture(domain.StateTrackingStopped, false)
	cancel, done := f.run(t)
	defer func() {
		cancel()
		<-done
	}()

	// start_tracking commits start and queues initialize, which creates the geofence.
	f.inbox.Inject(domain.NewEvent(domain.EventStartTracking))
	waitForState(t, f.store, domain.StateWaitingForTripStart)

	f.inbox.Inject(domain.NewEvent(domain.EventExitedGeofence))
	waitForState(t, f.store, domain.StateOngoingTrip)

	f.inbox.Inject(domain.NewEvent(domain.EventStoppedMoving))
	waitForState(t, f.store, domain.StateWaitingForTripStart)

	f.inbox.Inject(domain.NewEvent(domain.EventStopTracking))
	waitForState(t, f.store, domain.StateTrackingStopped)
}

func TestTracker_SelfHealsAfterGeofenceFailure(t *testing.T) {
	f := newTrackerFixture(domain.StateStart, false)
	f.actions.set(domain.ActionGeofenceCreate, domain.OutcomeFailed)
	cancel, done := f.run(t)
	defer func() {
		cancel()
		<-done
	}()

	f.inbox.Inject(domain.NewEvent(domain.EventInitialize))
	require.Eventually(t, func() bool { return len(f.actions.Invoked()) >= 2 }, time.Second, 5*time.Millisecond)

	// Geofencing recovers; the next self-heal initialize gets through.
	f.actions.set(domain.ActionGeofenceCreate, domain.OutcomeSucceeded)
	waitForState(t, f.store, domain.StateWaitingForTripStart)
}
