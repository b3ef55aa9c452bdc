// Package configwatcher provides config file monitoring for tripdiary.
// When enabled, it watches the TOML config file and applies the settings
// that may change at runtime: the verbose flag and the simulated device
// and actions. After every reload the settings guard is re-run, so a
// granted permission or fixed location setting takes effect immediately.
package configwatcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/tripdiary/internal/adapters/sim"
	"github.com/bft-labs/tripdiary/internal/cliconfig"
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
	"github.com/bft-labs/tripdiary/pkg/tripdiary"
)

// DeviceUpdater receives the reloaded [device] section.
type DeviceUpdater interface {
	Update(state sim.DeviceState)
}

// ActionUpdater receives the reloaded [actions.<kind>] sections.
type ActionUpdater interface {
	Update(specs map[domain.ActionKind]sim.ActionSpec)
}

// Plugin implements config watching functionality.
type Plugin struct {
	mu sync.Mutex

	debounceDelay time.Duration
	device        DeviceUpdater
	actions       ActionUpdater

	path       string
	logger     tripdiary.Logger
	controller tripdiary.Controller
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	debounce   *time.Timer
	reloads    int
}

// Config holds configuration options for the config watcher plugin.
type Config struct {
	// DebounceDelay is the delay to wait after a file change before reloading.
	// Default: 100 milliseconds
	DebounceDelay time.Duration

	// Device receives the [device] section. Nil skips it.
	Device DeviceUpdater

	// Actions receives the [actions.<kind>] sections. Nil skips them.
	Actions ActionUpdater
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DebounceDelay: 100 * time.Millisecond,
	}
}

// New creates a new config watcher plugin with the given configuration.
func New(cfg Config) *Plugin {
	if cfg.DebounceDelay <= 0 {
		cfg.DebounceDelay = 100 * time.Millisecond
	}
	return &Plugin{
		debounceDelay: cfg.DebounceDelay,
		device:        cfg.Device,
		actions:       cfg.Actions,
	}
}

// Name returns the plugin identifier.
func (p *Plugin) Name() string {
	return "configwatcher"
}

// Initialize starts watching the config file named by cfg.ConfigPath.
func (p *Plugin) Initialize(ctx context.Context, cfg tripdiary.PluginConfig) error {
	p.mu.Lock()
	p.path = cfg.ConfigPath
	p.logger = cfg.Logger
	p.controller = cfg.Controller
	p.mu.Unlock()

	if p.path == "" || p.controller == nil {
		p.logger.Warn("config watcher disabled: no config file")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors replace files instead of writing them.
	if err := watcher.Add(filepath.Dir(p.path)); err != nil {
		watcher.Close()
		return err
	}

	watchCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.logger.Info("config watcher plugin initialized", ports.String("path", p.path))

	p.wg.Add(1)
	go p.watchLoop(watchCtx, watcher)
	return nil
}

// Shutdown stops the config watcher.
func (p *Plugin) Shutdown(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()

	p.mu.Lock()
	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.mu.Unlock()
	return nil
}

// Reloads returns the number of completed reloads.
func (p *Plugin) Reloads() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.reloads
}

func (p *Plugin) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer p.wg.Done()
	defer watcher.Close()

	name := filepath.Base(p.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			p.debounceReload(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			p.logger.Error("config watcher error", ports.Err(err))
		}
	}
}

func (p *Plugin) debounceReload(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.debounce != nil {
		p.debounce.Stop()
	}
	p.debounce = time.AfterFunc(p.debounceDelay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := p.reload(ctx); err != nil {
			p.logger.Error("config reload failed",
				ports.String("path", p.path),
				ports.Err(err))
		}
	})
}

// reload applies the file in full before touching any component, so an
// invalid file leaves the running settings unchanged.
func (p *Plugin) reload(ctx context.Context) error {
	fc, err := cliconfig.LoadFileConfig(p.path)
	if err != nil {
		return err
	}

	base := cliconfig.DefaultConfig()
	if err := cliconfig.ApplyDeviceConfig(&base.Device, fc.Device); err != nil {
		return err
	}
	device, err := base.Device.State()
	if err != nil {
		return err
	}
	if err := cliconfig.ApplyActionConfig(&base, fc.Actions); err != nil {
		return err
	}
	specs, err := base.ActionSpecs()
	if err != nil {
		return err
	}

	if fc.Verbose != nil {
		p.controller.SetVerbose(*fc.Verbose)
	}
	if p.device != nil {
		p.device.Update(device)
	}
	if p.actions != nil {
		p.actions.Update(specs)
	}

	granted := p.controller.Recheck(ctx)

	p.mu.Lock()
	p.reloads++
	p.mu.Unlock()

	p.logger.Info("config reloaded",
		ports.String("path", p.path),
		ports.Bool("permission_granted", granted))
	return nil
}

var _ tripdiary.Plugin = (*Plugin)(nil)
