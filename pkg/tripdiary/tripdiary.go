package tripdiary

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/bft-labs/tripdiary/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/tripdiary/internal/adapters/http"
	logAdapter "github.com/bft-labs/tripdiary/internal/adapters/log"
	"github.com/bft-labs/tripdiary/internal/adapters/sim"
	"github.com/bft-labs/tripdiary/internal/app"
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/metrics"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Service is a trip tracking state machine that can be embedded in other
// applications. Use New() to create an instance, then Start() to begin
// handling events.
type Service struct {
	config    Config
	opts      options
	lifecycle *app.Lifecycle
	logger    ports.Logger

	inbox      *app.Inbox
	dispatcher *app.Dispatcher
	guard      *app.Guard
	tracker    *app.Tracker
	store      ports.StateRepository
	recorder   ports.TransitionRecorder
	journal    *fs.Journal
	metrics    *metrics.Collector
	control    *httpAdapter.ControlServer
	webhook    *httpAdapter.WebhookNotifier

	plugins []Plugin

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a new Service with the given configuration.
// The instance is created in PhaseStopped; call Start() to begin.
// Returns an error if configuration is invalid.
func New(cfg Config, opts ...Option) (*Service, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}

	needsDir := o.store == nil || o.presence == nil || o.recorder == nil
	if needsDir && cfg.StateDir == "" {
		return nil, fmt.Errorf("%w: state dir is required", domain.ErrInvalidConfig)
	}

	var logger ports.Logger = logAdapter.NewNoopLogger()
	if o.logger != nil {
		logger = o.logger
	}

	emitter := &eventEmitterWrapper{handler: o.eventHandler}
	s := &Service{
		config:    cfg,
		opts:      o,
		lifecycle: app.NewLifecycle(logger, emitter),
		logger:    logger,
		inbox:     app.NewInbox(),
		metrics:   metrics.NewCollector(),
		plugins:   o.plugins,
	}

	s.store = o.store
	if s.store == nil {
		s.store = fs.NewStateFileRepository(cfg.StateDir)
	}

	s.recorder = o.recorder
	if s.recorder == nil {
		s.journal = fs.NewJournal(cfg.StateDir, fs.JournalConfig{
			MaxRecords:    cfg.Journal.MaxRecords,
			CheckInterval: cfg.Journal.CheckInterval,
		}, logger)
		s.recorder = s.journal
	}

	presence := o.presence
	if presence == nil {
		presence = fs.NewPresenceFile(cfg.StateDir, logger)
	}

	actions := o.actions
	if actions == nil {
		logger.Warn("no action provider configured, using simulated actions")
		actions = sim.NewActions(sim.DefaultActionSpecs(), logger)
	}

	permissions, settings := o.permissions, o.settings
	if permissions == nil || settings == nil {
		device := sim.NewDevice(sim.DefaultDeviceState(), logger)
		if permissions == nil {
			permissions = device
		}
		if settings == nil {
			settings = device
		}
	}

	notifier := o.notifier
	if notifier == nil {
		notifier = logAdapter.NewNotifier(logger)
	}
	if o.webhook != nil {
		s.webhook = httpAdapter.NewWebhookNotifier(o.webhook.adapterConfig(hostname()), o.httpClient, logger)
		notifier = fanoutNotifier{notifier, s.webhook}
	}

	observer := app.MultiObserver{s.metrics, emitter}
	coordinator := app.NewCoordinator(actions, observer, logger)

	s.guard = app.NewGuard(app.GuardConfig{
		Profile:         cfg.Profile,
		SelfHealInitial: cfg.SelfHealInitial,
		SelfHealMax:     cfg.SelfHealMax,
	}, app.GuardDeps{
		Permissions: permissions,
		Settings:    settings,
		Store:       s.store,
		Injector:    s.inbox,
		Notifier:    notifier,
		Observer:    observer,
		Logger:      logger,
	})

	dcfg := app.DefaultDispatcherConfig()
	dcfg.Verbose = cfg.Verbose
	dcfg.ResetOnInitialize = cfg.ResetOnInitialize
	dcfg.CommitAttempts = cfg.CommitAttempts
	s.dispatcher = app.NewDispatcher(dcfg, app.DispatcherDeps{
		Store:       s.store,
		Coordinator: coordinator,
		Guard:       s.guard,
		Injector:    s.inbox,
		Notifier:    notifier,
		Presence:    presence,
		Recorder:    s.recorder,
		Observer:    observer,
		Logger:      logger,
	})

	s.tracker = app.NewTracker(app.TrackerConfig{InitializeOnStart: cfg.InitializeOnStart},
		s.inbox, s.dispatcher, s.guard, s.store, logger)

	if cfg.ControlAddr != "" {
		s.control = httpAdapter.NewControlServer(cfg.ControlAddr, s.store, s.inbox, s.metrics.Handler(), logger)
	}

	return s, nil
}

// Start begins handling events in the background.
// Returns immediately after starting the event loop.
// Returns an error if already running or if a plugin fails to initialize.
// The provided context is used for the lifetime of the service.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lifecycle.CanStart() {
		return domain.ErrAlreadyRunning
	}
	if err := s.lifecycle.TransitionTo(app.PhaseStarting, "Start() called"); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.lifecycle.SetCancel(cancel)

	pluginCfg := PluginConfig{
		StateDir:   s.config.StateDir,
		ConfigPath: s.opts.configPath,
		Logger:     s.logger,
		Controller: s,
	}
	for _, p := range s.plugins {
		if err := p.Initialize(runCtx, pluginCfg); err != nil {
			s.logger.Error("plugin initialization failed",
				ports.String("plugin", p.Name()),
				ports.Err(err))
			cancel()
			_ = s.lifecycle.TransitionTo(app.PhaseCrashed, "plugin init failed: "+p.Name())
			return err
		}
		s.logger.Info("plugin initialized", ports.String("plugin", p.Name()))
	}

	if s.journal != nil {
		s.lifecycle.Go(func() { s.journal.Run(runCtx) })
	}

	if s.control != nil {
		s.lifecycle.Go(func() {
			if err := s.control.Run(runCtx); err != nil {
				s.logger.Error("control API failed", ports.Err(err))
				s.crash("control API failed: " + err.Error())
			}
		})
	}

	s.lifecycle.Go(func() {
		if err := s.lifecycle.TransitionTo(app.PhaseRunning, "tracker starting"); err != nil {
			s.logger.Error("failed to transition to running", ports.Err(err))
			return
		}

		err := s.tracker.Run(runCtx)
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("tracker error", ports.Err(err))
			s.crash(err.Error())
		}
	})

	return nil
}

// crash cancels the run context and moves to crashed, unless Stop is
// already in progress.
func (s *Service) crash(reason string) {
	if s.lifecycle.Phase() == app.PhaseStopping {
		return
	}
	s.lifecycle.Cancel()
	_ = s.lifecycle.TransitionTo(app.PhaseCrashed, reason)
}

// Stop gracefully shuts down the service.
// Waits for in-flight dispatches and guard checks, up to the configured
// shutdown timeout. Returns nil on graceful shutdown, ErrShutdownTimeout if
// the timeout expired.
func (s *Service) Stop() error {
	s.mu.Lock()

	if !s.lifecycle.CanStop() {
		s.mu.Unlock()
		return domain.ErrNotRunning
	}
	if err := s.lifecycle.TransitionTo(app.PhaseStopping, "Stop() called"); err != nil {
		s.mu.Unlock()
		return err
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	err := s.lifecycle.WaitWithTimeout(s.config.ShutdownTimeout)

	shutdownCtx := context.Background()
	for i := len(s.plugins) - 1; i >= 0; i-- {
		p := s.plugins[i]
		if shutdownErr := p.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error("plugin shutdown failed",
				ports.String("plugin", p.Name()),
				ports.Err(shutdownErr))
		} else {
			s.logger.Info("plugin shutdown complete", ports.String("plugin", p.Name()))
		}
	}

	if err != nil {
		_ = s.lifecycle.TransitionTo(app.PhaseCrashed, "shutdown timeout")
	} else {
		_ = s.lifecycle.TransitionTo(app.PhaseStopped, "graceful shutdown")
	}
	return err
}

// Close stops webhook delivery after draining queued notifications.
// Call it once the service will not be started again.
func (s *Service) Close() {
	if s.webhook != nil {
		s.webhook.Close()
	}
}

// Status returns the current run phase.
// Safe to call concurrently from any goroutine.
func (s *Service) Status() Phase {
	return Phase(s.lifecycle.Phase())
}

// Inject queues an event. It never blocks; events queued before Start are
// handled once the service runs.
func (s *Service) Inject(event Event) {
	s.inbox.Inject(event)
}

// State returns the persisted tracking state.
func (s *Service) State(ctx context.Context) (State, error) {
	return s.store.Load(ctx)
}

// Recheck runs the permission and settings guard against the persisted
// state, e.g. after the user changed device settings. It returns false
// when the location permission is denied.
func (s *Service) Recheck(ctx context.Context) bool {
	return s.guard.Recheck(ctx)
}

// SetVerbose toggles the per-transition feedback notifications.
func (s *Service) SetVerbose(v bool) {
	s.dispatcher.SetVerbose(v)
}

// Verbose reports whether per-transition feedback is enabled.
func (s *Service) Verbose() bool {
	return s.dispatcher.Verbose()
}

// History returns the newest limit journal records, oldest first.
// A limit of zero returns every record.
func (s *Service) History(limit int) ([]TransitionRecord, error) {
	r, ok := s.recorder.(interface {
		Read(limit int) ([]domain.TransitionRecord, error)
	})
	if !ok {
		return nil, ErrNoHistory
	}
	return r.Read(limit)
}

// MetricsHandler serves the service metrics in the Prometheus format.
func (s *Service) MetricsHandler() http.Handler {
	return s.metrics.Handler()
}

// fanoutNotifier posts every notification to each notifier in order.
type fanoutNotifier []ports.Notifier

func (f fanoutNotifier) Notify(kind domain.NotificationKind, message string) {
	for _, n := range f {
		n.Notify(kind, message)
	}
}

func (f fanoutNotifier) NotifyResolution(kind domain.NotificationKind, message, token string) {
	for _, n := range f {
		n.NotifyResolution(kind, message, token)
	}
}

func (f fanoutNotifier) Cancel(kind domain.NotificationKind) {
	for _, n := range f {
		n.Cancel(kind)
	}
}

// hostname returns the current hostname.
func hostname() string {
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}

var _ Controller = (*Service)(nil)
