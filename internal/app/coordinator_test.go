package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

func launch(t *testing.T, actions ports.ActionProvider, kinds ...domain.ActionKind) domain.AggregateResult {
	t.Helper()
	c := NewCoordinator(actions, nil, nopLogger{})
	r, err := c.Launch(context.Background(), domain.NewEvent(evInit), kinds...)
	require.NoError(t, err)
	return r
}

func TestCoordinator_AllSucceed(t *testing.T) {
	r := launch(t, newFakeActions(), gr, tsp, arp)

	assert.True(t, r.AllSucceeded())
	assert.Equal(t, []domain.ActionKind{gr, tsp, arp}, r.Kinds())
}

func TestCoordinator_EmptyBatch(t *testing.T) {
	r := launch(t, newFakeActions())

	assert.True(t, r.AllSucceeded())
	assert.Empty(t, r.Results)
}

func TestCoordinator_Outcomes(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.ActionKind
		outcome domain.Outcome
		want    domain.Outcome
	}{
		{"geofence create unavailable", gc, unavailable, domain.OutcomeUnavailable},
		{"tracking start unavailable", ts, unavailable, domain.OutcomeUnavailable},
		{"geofence remove without handle", gr, unavailable, domain.OutcomeFailed},
		{"tracking stop without handle", tsp, unavailable, domain.OutcomeFailed},
		{"tracking stop failed", tsp, failed, domain.OutcomeFailed},
		{"activity stop succeeded", arp, domain.OutcomeSucceeded, domain.OutcomeSucceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := launch(t, newFakeActions().set(tt.kind, tt.outcome), tt.kind)

			res, ok := r.Result(tt.kind)
			require.True(t, ok)
			assert.Equal(t, tt.want, res.Outcome)
			assert.Equal(t, tt.want == domain.OutcomeSucceeded, r.AllSucceeded())
			if tt.outcome == unavailable {
				assert.ErrorIs(t, res.Err, domain.ErrActionUnavailable)
			}
		})
	}
}

func TestCoordinator_UnavailableIsNotSuccess(t *testing.T) {
	r := launch(t, newFakeActions().set(gc, unavailable), tsp, arp, gc)

	assert.False(t, r.AllSucceeded())
	assert.True(t, r.Launched(gc))
	assert.False(t, r.Available(gc))
	assert.False(t, r.Failed(gc))
	assert.False(t, r.Succeeded(gc))
}

func TestCoordinator_TrackingStartInvokedBeforeActivityRecognition(t *testing.T) {
	actions := newFakeActions()
	r := launch(t, actions, gr, ars, ts)

	assert.Equal(t, []domain.ActionKind{gr, ts, ars}, actions.Invoked())
	// Results stay in batch order.
	assert.Equal(t, []domain.ActionKind{gr, ars, ts}, r.Kinds())
}

func TestCoordinator_SkipsActivityRecognitionWithoutTracking(t *testing.T) {
	actions := newFakeActions().set(ts, unavailable)
	r := launch(t, actions, gr, ars, ts)

	assert.Equal(t, []domain.ActionKind{gr, ts}, actions.Invoked())
	assert.False(t, r.Launched(ars))
	assert.Equal(t, []domain.ActionKind{gr, ts}, r.Kinds())
}

func TestCoordinator_JoinsAllHandles(t *testing.T) {
	actions := newFakeActions()
	slow := domain.NewCompletion()
	actions.hold(tsp, slow)

	go func() {
		time.Sleep(20 * time.Millisecond)
		slow.Fail(nil)
	}()

	began := time.Now()
	r := launch(t, actions, gr, tsp, arp)

	assert.GreaterOrEqual(t, time.Since(began), 15*time.Millisecond)
	assert.True(t, r.Failed(tsp))
	res, _ := r.Result(tsp)
	assert.ErrorIs(t, res.Err, domain.ErrActionFailed)
	assert.True(t, r.Succeeded(gr))
	assert.True(t, r.Succeeded(arp))
}

func TestCoordinator_ContextCancelled(t *testing.T) {
	actions := newFakeActions()
	actions.hold(gr, domain.NewCompletion())

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	c := NewCoordinator(actions, nil, nopLogger{})
	r, err := c.Launch(ctx, domain.NewEvent(evStop), gr, tsp)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, r.Results)
}

func TestCoordinator_ReportsResultsToObserver(t *testing.T) {
	obs := &countingObserver{}
	c := NewCoordinator(newFakeActions().set(ts, unavailable), obs, nopLogger{})

	_, err := c.Launch(context.Background(), domain.NewEvent(evExited), gr, ars, ts)
	require.NoError(t, err)

	assert.Equal(t, int32(2), obs.results.Load())
}
