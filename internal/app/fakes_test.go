package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...ports.Field) {}
func (nopLogger) Info(string, ...ports.Field)  {}
func (nopLogger) Warn(string, ...ports.Field)  {}
func (nopLogger) Error(string, ...ports.Field) {}

// recordingLogger keeps warning messages for assertions.
type recordingLogger struct {
	nopLogger
	mu    sync.Mutex
	warns []string
}

func (l *recordingLogger) Warn(msg string, _ ...ports.Field) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, msg)
}

func (l *recordingLogger) Warnings() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.warns...)
}

var errBoom = errors.New("boom")

// memStore is an in-memory StateRepository.
type memStore struct {
	mu       sync.Mutex
	state    domain.State
	saves    []domain.State
	loadErr  error
	failNext int
}

func newMemStore(s domain.State) *memStore {
	return &memStore{state: s}
}

func (m *memStore) Load(context.Context) (domain.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.StateStart, m.loadErr
	}
	return m.state, nil
}

func (m *memStore) Save(_ context.Context, s domain.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext > 0 {
		m.failNext--
		return errBoom
	}
	m.state = s
	m.saves = append(m.saves, s)
	return nil
}

func (m *memStore) Get() domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *memStore) Saves() []domain.State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.State{}, m.saves...)
}

// fakeActions resolves every action immediately with a configured outcome.
// Kinds without an entry succeed.
type fakeActions struct {
	mu       sync.Mutex
	outcomes map[domain.ActionKind]domain.Outcome
	pending  map[domain.ActionKind]*domain.Completion
	safety   map[domain.ActionKind]ports.RetrySafety
	invoked  []domain.ActionKind
}

func newFakeActions() *fakeActions {
	return &fakeActions{
		outcomes: make(map[domain.ActionKind]domain.Outcome),
		pending:  make(map[domain.ActionKind]*domain.Completion),
		safety:   make(map[domain.ActionKind]ports.RetrySafety),
	}
}

func (f *fakeActions) set(kind domain.ActionKind, o domain.Outcome) *fakeActions {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[kind] = o
	return f
}

// hold makes kind return c instead of resolving immediately.
func (f *fakeActions) hold(kind domain.ActionKind, c *domain.Completion) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pending[kind] = c
}

func (f *fakeActions) Invoke(_ context.Context, kind domain.ActionKind) ports.Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = append(f.invoked, kind)
	if c, ok := f.pending[kind]; ok {
		return c
	}
	o, set := f.outcomes[kind]
	if !set {
		return domain.Succeeded()
	}
	switch o {
	case domain.OutcomeUnavailable:
		return nil
	case domain.OutcomeFailed:
		return domain.Failed(errBoom)
	default:
		return domain.Succeeded()
	}
}

func (f *fakeActions) RetrySafety(kind domain.ActionKind) ports.RetrySafety {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.safety[kind]
}

func (f *fakeActions) Invoked() []domain.ActionKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ActionKind{}, f.invoked...)
}

func (f *fakeActions) reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invoked = nil
}

// recordingInjector collects injected events without dispatching them.
type recordingInjector struct {
	mu     sync.Mutex
	events []domain.EventKind
}

func (r *recordingInjector) Inject(ev domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev.Kind)
}

func (r *recordingInjector) Events() []domain.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.EventKind{}, r.events...)
}

func (r *recordingInjector) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type notification struct {
	op      string
	kind    domain.NotificationKind
	message string
	token   string
}

type recordingNotifier struct {
	mu  sync.Mutex
	got []notification
}

func (r *recordingNotifier) Notify(kind domain.NotificationKind, msg string) {
	r.add(notification{op: "notify", kind: kind, message: msg})
}

func (r *recordingNotifier) NotifyResolution(kind domain.NotificationKind, msg, token string) {
	r.add(notification{op: "resolve", kind: kind, message: msg, token: token})
}

func (r *recordingNotifier) Cancel(kind domain.NotificationKind) {
	r.add(notification{op: "cancel", kind: kind})
}

func (r *recordingNotifier) add(n notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) All() []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notification{}, r.got...)
}

// fakeDevice answers permission and settings checks.
type fakeDevice struct {
	mu        sync.Mutex
	denied    bool
	status    domain.SettingsStatus
	err       error
	checks    int
	permCalls int
}

func (d *fakeDevice) LocationPermissionGranted(domain.RequestProfile) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.permCalls++
	return !d.denied
}

func (d *fakeDevice) CheckLocationSettings(context.Context, domain.RequestProfile) (domain.SettingsStatus, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checks++
	return d.status, d.err
}

func (d *fakeDevice) PermissionCalls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.permCalls
}

type countingPresence struct {
	mu     sync.Mutex
	active bool
	starts int
	stops  int
}

func (p *countingPresence) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = true
	p.starts++
}

func (p *countingPresence) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = false
	p.stops++
}

func (p *countingPresence) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

type memRecorder struct {
	mu      sync.Mutex
	records []domain.TransitionRecord
}

func (m *memRecorder) Record(_ context.Context, rec domain.TransitionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *memRecorder) Records() []domain.TransitionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.TransitionRecord{}, m.records...)
}

// harness wires a dispatcher over fakes. Injected events are recorded
// rather than dispatched.
type harness struct {
	store    *memStore
	actions  *fakeActions
	injector *recordingInjector
	notifier *recordingNotifier
	device   *fakeDevice
	presence *countingPresence
	recorder *memRecorder
	guard    *Guard
	dispatch *Dispatcher
	dispCfg  DispatcherConfig
	guardCfg GuardConfig
	logger   ports.Logger
}

type harnessOption func(*harness)

func withDispatcherConfig(fn func(*DispatcherConfig)) harnessOption {
	return func(h *harness) { fn(&h.dispCfg) }
}

func withLogger(l ports.Logger) harnessOption {
	return func(h *harness) { h.logger = l }
}

func newHarness(t *testing.T, initial domain.State, opts ...harnessOption) *harness {
	t.Helper()

	h := &harness{
		store:    newMemStore(initial),
		actions:  newFakeActions(),
		injector: &recordingInjector{},
		notifier: &recordingNotifier{},
		device:   &fakeDevice{},
		presence: &countingPresence{},
		recorder: &memRecorder{},
		dispCfg:  DefaultDispatcherConfig(),
		guardCfg: DefaultGuardConfig(),
		logger:   nopLogger{},
	}
	h.dispCfg.CommitBackoffInitial = time.Millisecond
	h.dispCfg.CommitBackoffMax = time.Millisecond
	h.guardCfg.SelfHealInitial = 0
	for _, opt := range opts {
		opt(h)
	}

	h.guard = NewGuard(h.guardCfg, GuardDeps{
		Permissions: h.device,
		Settings:    h.device,
		Store:       h.store,
		Injector:    h.injector,
		Notifier:    h.notifier,
		Logger:      h.logger,
	})
	h.dispatch = NewDispatcher(h.dispCfg, DispatcherDeps{
		Store:       h.store,
		Coordinator: NewCoordinator(h.actions, nil, h.logger),
		Guard:       h.guard,
		Injector:    h.injector,
		Notifier:    h.notifier,
		Presence:    h.presence,
		Recorder:    h.recorder,
		Logger:      h.logger,
	})
	return h
}

// handle dispatches one event and waits for the commit and the guard.
func (h *harness) handle(kind domain.EventKind) Commit {
	c := h.dispatch.Handle(context.Background(), domain.NewEvent(kind))
	h.dispatch.Wait()
	h.guard.Wait()
	return c
}
