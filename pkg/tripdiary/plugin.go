package tripdiary

import "context"

// Plugin extends a service with optional behavior.
// Plugins are initialized in registration order by Start and shut down in
// reverse order by Stop.
type Plugin interface {
	// Name returns the plugin identifier used in logs.
	Name() string

	// Initialize starts the plugin. ctx is cancelled when the service stops.
	Initialize(ctx context.Context, cfg PluginConfig) error

	// Shutdown releases the plugin's resources.
	Shutdown(ctx context.Context) error
}

// PluginConfig is handed to every plugin on Initialize.
type PluginConfig struct {
	StateDir string

	// ConfigPath is the configuration file the host loaded, if any.
	ConfigPath string

	Logger     Logger
	Controller Controller
}

// Controller is the part of the service plugins may drive.
type Controller interface {
	State(ctx context.Context) (State, error)
	Inject(event Event)
	Recheck(ctx context.Context) bool
	SetVerbose(v bool)
	Verbose() bool
}
