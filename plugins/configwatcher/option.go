package configwatcher

import "github.com/bft-labs/tripdiary/pkg/tripdiary"

// WithConfigWatcher returns a tripdiary Option that enables config file
// watching. The watched file is the one passed with tripdiary.WithConfigPath.
//
// Usage:
//
//	device := sim.NewDevice(sim.DefaultDeviceState(), logger)
//	svc, err := tripdiary.New(cfg,
//	    tripdiary.WithConfigPath(path),
//	    tripdiary.WithDevice(device, device),
//	    configwatcher.WithConfigWatcher(configwatcher.Config{
//	        DebounceDelay: 100 * time.Millisecond,
//	        Device:        device,
//	    }),
//	)
func WithConfigWatcher(cfg Config) tripdiary.Option {
	return tripdiary.WithPlugin(New(cfg))
}

// WithDefaultConfigWatcher returns a tripdiary Option that reloads only the
// verbose flag, debounced by 100ms.
//
// Usage:
//
//	svc, err := tripdiary.New(cfg, configwatcher.WithDefaultConfigWatcher())
func WithDefaultConfigWatcher() tripdiary.Option {
	return WithConfigWatcher(DefaultConfig())
}
