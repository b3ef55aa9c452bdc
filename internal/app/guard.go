package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// Guard notification texts and resolution tokens.
const (
	PermissionResolutionToken = "enable_location_permission"

	msgPermissionOff   = "location permission is off, tap to enable it"
	msgSettingsError   = "location settings need attention (error %d)"
	msgSettingsUnknown = "unknown error while checking location settings"
)

// GuardConfig contains configuration for the settings guard.
type GuardConfig struct {
	// Profile is the tracking request profile validated on every check.
	Profile domain.RequestProfile

	// SelfHealInitial delays the second and later consecutive re-initializations
	// from start. Zero disables the delay.
	SelfHealInitial time.Duration
	SelfHealMax     time.Duration
}

// DefaultGuardConfig returns a GuardConfig with default values.
func DefaultGuardConfig() GuardConfig {
	return GuardConfig{
		Profile: domain.RequestProfile{
			Accuracy:   "high_accuracy",
			Interval:   30 * time.Second,
			Permission: "fine_location",
		},
		SelfHealInitial: DefaultSelfHealInitial,
		SelfHealMax:     DefaultSelfHealMax,
	}
}

// GuardDeps are the collaborators of a Guard.
type GuardDeps struct {
	Permissions ports.PermissionChecker
	Settings    ports.SettingsChecker
	Store       ports.StateRepository
	Injector    ports.EventInjector
	Notifier    ports.Notifier
	Observer    Observer
	Logger      ports.Logger
}

// CheckRequest describes the commit being checked.
type CheckRequest struct {
	DispatchID string
	State      domain.State

	// SuppressTrackingError is set when a tracking error already reached its
	// target state. The guard then reports problems without injecting
	// another tracking error.
	SuppressTrackingError bool

	// RetryTrackingError is set when a tracking error was handled but the
	// fallback kept the machine tracking. Problems are re-raised; repeated
	// re-raises back off like self-heal.
	RetryTrackingError bool

	// ReinitScheduled is set when the commit already queued an initialize.
	ReinitScheduled bool
}

// Guard validates permissions and location settings after every commit
// and injects corrective events.
type Guard struct {
	cfg         GuardConfig
	permissions ports.PermissionChecker
	settings    ports.SettingsChecker
	store       ports.StateRepository
	injector    ports.EventInjector
	notifier    ports.Notifier
	observer    Observer
	logger      ports.Logger

	mu       sync.Mutex
	heal     *backoff
	streak   int
	retry    *backoff
	retries  int
	inflight sync.WaitGroup
}

// NewGuard creates a settings guard.
func NewGuard(cfg GuardConfig, deps GuardDeps) *Guard {
	if deps.Notifier == nil {
		deps.Notifier = nopNotifier{}
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	return &Guard{
		cfg:         cfg,
		permissions: deps.Permissions,
		settings:    deps.Settings,
		store:       deps.Store,
		injector:    deps.Injector,
		notifier:    deps.Notifier,
		observer:    deps.Observer,
		logger:      deps.Logger,
		heal:        newBackoff(cfg.SelfHealInitial, cfg.SelfHealMax),
		retry:       newBackoff(cfg.SelfHealInitial, cfg.SelfHealMax),
	}
}

// Check runs the permission check synchronously and, when it passes,
// starts the settings check in the background. It returns the permission
// outcome; the settings outcome is reported to the observer.
func (g *Guard) Check(ctx context.Context, req CheckRequest) bool {
	if !g.permissions.LocationPermissionGranted(g.cfg.Profile) {
		g.logger.Warn("location permission denied",
			ports.String("dispatch_id", req.DispatchID),
			ports.String("permission", g.cfg.Profile.Permission),
			ports.Err(domain.ErrPermissionDenied))
		g.notifier.NotifyResolution(domain.NotificationLocationPermission, msgPermissionOff, PermissionResolutionToken)
		g.observer.OnGuard(GuardPermissionDenied)
		g.injectTrackingError(ctx, req)
		return false
	}

	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		g.checkSettings(ctx, req)
	}()
	return true
}

// Recheck runs the guard against the currently persisted state.
func (g *Guard) Recheck(ctx context.Context) bool {
	state, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("recheck could not load state", ports.Err(err))
		state = domain.StateStart
	}
	return g.Check(ctx, CheckRequest{State: state})
}

// Wait blocks until every background settings check has finished.
func (g *Guard) Wait() {
	g.inflight.Wait()
}

func (g *Guard) checkSettings(ctx context.Context, req CheckRequest) {
	status, err := g.settings.CheckLocationSettings(ctx, g.cfg.Profile)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		g.logger.Error("location settings check failed",
			ports.String("dispatch_id", req.DispatchID),
			ports.Err(err))
		g.notifier.Notify(domain.NotificationTrackingError, msgSettingsUnknown)
		g.observer.OnGuard(GuardCheckFailed)
		g.injectTrackingError(ctx, req)
		return
	}

	switch status.Code {
	case domain.SettingsSatisfied:
		g.notifier.Cancel(domain.NotificationTrackingError)
		g.observer.OnGuard(GuardSatisfied)
		g.selfHeal(ctx, req)

	case domain.SettingsResolutionRequired:
		g.logger.Info("location settings need user resolution",
			ports.String("dispatch_id", req.DispatchID),
			ports.Int("status_code", status.StatusCode),
			ports.Err(domain.ErrSettingsResolvable))
		g.notifier.NotifyResolution(domain.NotificationTrackingError,
			fmt.Sprintf(msgSettingsError, status.StatusCode), status.Resolution)
		g.observer.OnGuard(GuardResolutionRequired)

	case domain.SettingsChangeUnavailable:
		g.logger.Warn("location settings cannot be satisfied",
			ports.String("dispatch_id", req.DispatchID),
			ports.Int("status_code", status.StatusCode),
			ports.Err(domain.ErrSettingsUnresolvable))
		g.notifier.Notify(domain.NotificationTrackingError, fmt.Sprintf(msgSettingsError, status.StatusCode))
		g.observer.OnGuard(GuardUnresolvable)
		g.injectTrackingError(ctx, req)

	default:
		g.notifier.Notify(domain.NotificationTrackingError, msgSettingsUnknown)
		g.observer.OnGuard(GuardCheckFailed)
		g.injectTrackingError(ctx, req)
	}
}

// selfHeal re-initializes the FSM when it is stuck in start. Consecutive
// re-initializations back off; the streak ends once a check sees another state.
func (g *Guard) selfHeal(ctx context.Context, req CheckRequest) {
	state, err := g.store.Load(ctx)
	if err != nil {
		g.logger.Warn("self-heal could not load state",
			ports.String("dispatch_id", req.DispatchID),
			ports.Err(err))
		return
	}

	g.mu.Lock()
	if state != domain.StateStart {
		g.streak = 0
		g.heal.Reset()
		g.mu.Unlock()
		return
	}
	if req.ReinitScheduled {
		g.mu.Unlock()
		return
	}
	var delay time.Duration
	if g.streak > 0 && g.cfg.SelfHealInitial > 0 {
		delay = g.heal.Next()
	}
	g.streak++
	streak := g.streak
	g.mu.Unlock()

	if delay > 0 {
		g.logger.Debug("delaying re-initialization",
			ports.String("dispatch_id", req.DispatchID),
			ports.Int("streak", streak),
			ports.Duration("delay", delay))
		if err := sleepContext(ctx, delay); err != nil {
			return
		}
	}

	g.logger.Info("settings satisfied in start, re-initializing",
		ports.String("dispatch_id", req.DispatchID))
	g.injector.Inject(domain.NewEvent(domain.EventInitialize))
}

func (g *Guard) injectTrackingError(ctx context.Context, req CheckRequest) {
	if req.SuppressTrackingError {
		g.logger.Debug("tracking error already being handled, not injecting",
			ports.String("dispatch_id", req.DispatchID))
		return
	}

	var delay time.Duration
	g.mu.Lock()
	if req.RetryTrackingError {
		if g.retries > 0 && g.cfg.SelfHealInitial > 0 {
			delay = g.retry.Next()
		}
		g.retries++
	} else {
		g.retries = 0
		g.retry.Reset()
	}
	g.mu.Unlock()

	if delay == 0 {
		g.injector.Inject(domain.NewEvent(domain.EventTrackingError))
		return
	}

	g.logger.Debug("delaying tracking error retry",
		ports.String("dispatch_id", req.DispatchID),
		ports.Duration("delay", delay))
	g.inflight.Add(1)
	go func() {
		defer g.inflight.Done()
		if err := sleepContext(ctx, delay); err != nil {
			return
		}
		g.injector.Inject(domain.NewEvent(domain.EventTrackingError))
	}()
}
