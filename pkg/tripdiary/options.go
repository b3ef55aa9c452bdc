package tripdiary

import (
	"time"

	httpAdapter "github.com/bft-labs/tripdiary/internal/adapters/http"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// WebhookConfig configures notification delivery to an HTTP endpoint.
type WebhookConfig struct {
	URL     string
	AuthKey string
	Timeout time.Duration
}

// Option configures optional behavior of a Service.
type Option func(*options)

// options holds the optional configuration for a Service instance.
type options struct {
	httpClient   ports.HTTPClient
	logger       ports.Logger
	eventHandler EventHandler
	plugins      []Plugin
	configPath   string

	actions     ports.ActionProvider
	permissions ports.PermissionChecker
	settings    ports.SettingsChecker
	store       ports.StateRepository
	notifier    ports.Notifier
	presence    ports.PresenceSignal
	recorder    ports.TransitionRecorder
	webhook     *WebhookConfig
}

// WithHTTPClient sets the HTTP client used for webhook delivery.
func WithHTTPClient(client HTTPClient) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets a custom logger for structured logging.
// If not provided, a no-op logger is used (no output).
func WithLogger(logger Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithEventHandler sets a handler for service notifications.
func WithEventHandler(handler EventHandler) Option {
	return func(o *options) {
		o.eventHandler = handler
	}
}

// WithPlugin registers a plugin to be initialized when the service starts.
func WithPlugin(plugin Plugin) Option {
	return func(o *options) {
		o.plugins = append(o.plugins, plugin)
	}
}

// WithConfigPath records the configuration file the host loaded, for
// plugins that react to edits.
func WithConfigPath(path string) Option {
	return func(o *options) {
		o.configPath = path
	}
}

// WithActionProvider sets the platform actions. If not provided, every
// action is simulated and succeeds at once.
func WithActionProvider(actions ActionProvider) Option {
	return func(o *options) {
		o.actions = actions
	}
}

// WithDevice sets the permission and settings checkers. If not provided, a
// simulated device with permission granted and settings satisfied is used.
func WithDevice(permissions PermissionChecker, settings SettingsChecker) Option {
	return func(o *options) {
		o.permissions = permissions
		o.settings = settings
	}
}

// WithStateRepository replaces the state file in StateDir.
func WithStateRepository(store StateRepository) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithNotifier replaces the log-backed notifier.
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithPresence replaces the presence marker file in StateDir.
func WithPresence(p PresenceSignal) Option {
	return func(o *options) {
		o.presence = p
	}
}

// WithRecorder replaces the transition journal in StateDir.
func WithRecorder(r TransitionRecorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithWebhook also delivers every notification to an HTTP endpoint.
func WithWebhook(cfg WebhookConfig) Option {
	return func(o *options) {
		o.webhook = &cfg
	}
}

func (w WebhookConfig) adapterConfig(hostname string) httpAdapter.WebhookConfig {
	return httpAdapter.WebhookConfig{
		URL:      w.URL,
		AuthKey:  w.AuthKey,
		Timeout:  w.Timeout,
		Hostname: hostname,
	}
}
