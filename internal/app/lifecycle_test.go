package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
)

type phaseChange struct {
	previous Phase
	current  Phase
	reason   string
}

type recordingListener struct {
	mu      sync.Mutex
	changes []phaseChange
}

func (r *recordingListener) OnPhaseChange(previous, current Phase, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, phaseChange{previous, current, reason})
}

func (r *recordingListener) Changes() []phaseChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]phaseChange{}, r.changes...)
}

func TestNewLifecycle(t *testing.T) {
	l := NewLifecycle(nopLogger{}, nil)
	if l.Phase() != PhaseStopped {
		t.Errorf("initial phase = %v, want Stopped", l.Phase())
	}
}

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseStopped, "Stopped"},
		{PhaseStarting, "Starting"},
		{PhaseRunning, "Running"},
		{PhaseStopping, "Stopping"},
		{PhaseCrashed, "Crashed"},
		{Phase(42), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %s, want %s", tt.phase, got, tt.want)
		}
	}
}

func TestLifecycle_TransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    Phase
		to      Phase
		wantErr error
	}{
		{"stopped to starting", PhaseStopped, PhaseStarting, nil},
		{"starting to running", PhaseStarting, PhaseRunning, nil},
		{"starting to stopping", PhaseStarting, PhaseStopping, nil},
		{"starting to crashed", PhaseStarting, PhaseCrashed, nil},
		{"running to stopping", PhaseRunning, PhaseStopping, nil},
		{"running to crashed", PhaseRunning, PhaseCrashed, nil},
		{"stopping to stopped", PhaseStopping, PhaseStopped, nil},
		{"crashed to starting", PhaseCrashed, PhaseStarting, nil},

		{"stopped to running", PhaseStopped, PhaseRunning, domain.ErrNotRunning},
		{"stopped to stopping", PhaseStopped, PhaseStopping, domain.ErrNotRunning},
		{"crashed to stopped", PhaseCrashed, PhaseStopped, domain.ErrNotRunning},
		{"starting to stopped", PhaseStarting, PhaseStopped, domain.ErrAlreadyRunning},
		{"running to starting", PhaseRunning, PhaseStarting, domain.ErrAlreadyRunning},
		{"stopping to running", PhaseStopping, PhaseRunning, domain.ErrAlreadyRunning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLifecycle(nopLogger{}, nil)
			l.phase = tt.from

			err := l.TransitionTo(tt.to, "test")
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("TransitionTo() error = %v, want %v", err, tt.wantErr)
			}
			want := tt.to
			if tt.wantErr != nil {
				want = tt.from
			}
			if l.Phase() != want {
				t.Errorf("phase = %v, want %v", l.Phase(), want)
			}
		})
	}
}

func TestLifecycle_NotifiesListener(t *testing.T) {
	listener := &recordingListener{}
	l := NewLifecycle(nopLogger{}, listener)

	_ = l.TransitionTo(PhaseStarting, "start")
	_ = l.TransitionTo(PhaseRunning, "running")
	_ = l.TransitionTo(PhaseStopped, "invalid")

	changes := listener.Changes()
	if len(changes) != 2 {
		t.Fatalf("got %d changes, want 2", len(changes))
	}
	if changes[1].previous != PhaseStarting || changes[1].current != PhaseRunning || changes[1].reason != "running" {
		t.Errorf("change 1 = %+v", changes[1])
	}
}

func TestLifecycle_CanStartCanStop(t *testing.T) {
	tests := []struct {
		phase     Phase
		wantStart bool
		wantStop  bool
	}{
		{PhaseStopped, true, false},
		{PhaseStarting, false, true},
		{PhaseRunning, false, true},
		{PhaseStopping, false, false},
		{PhaseCrashed, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			l := NewLifecycle(nopLogger{}, nil)
			l.phase = tt.phase
			if got := l.CanStart(); got != tt.wantStart {
				t.Errorf("CanStart() = %v, want %v", got, tt.wantStart)
			}
			if got := l.CanStop(); got != tt.wantStop {
				t.Errorf("CanStop() = %v, want %v", got, tt.wantStop)
			}
		})
	}
}

func TestLifecycle_Cancel(t *testing.T) {
	l := NewLifecycle(nopLogger{}, nil)
	l.Cancel() // nil cancel is fine

	ctx, cancel := context.WithCancel(context.Background())
	l.SetCancel(cancel)
	l.Cancel()

	select {
	case <-ctx.Done():
	default:
		t.Error("context should be canceled after Cancel()")
	}
}

func TestLifecycle_WaitWithTimeout(t *testing.T) {
	l := NewLifecycle(nopLogger{}, nil)

	l.Go(func() { time.Sleep(10 * time.Millisecond) })
	if err := l.WaitWithTimeout(time.Second); err != nil {
		t.Fatalf("WaitWithTimeout() = %v, want nil", err)
	}

	release := make(chan struct{})
	l.Go(func() { <-release })
	if err := l.WaitWithTimeout(10 * time.Millisecond); !errors.Is(err, domain.ErrShutdownTimeout) {
		t.Errorf("WaitWithTimeout() = %v, want ErrShutdownTimeout", err)
	}
	close(release)
}

func TestLifecycle_Concurrency(t *testing.T) {
	l := NewLifecycle(nopLogger{}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = l.Phase()
				_ = l.CanStart()
				_ = l.CanStop()
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = l.TransitionTo(PhaseStarting, "test")
			_ = l.TransitionTo(PhaseRunning, "test")
		}()
	}
	wg.Wait()
}
