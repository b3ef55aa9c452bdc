package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	logAdapter "github.com/bft-labs/tripdiary/internal/adapters/log"
	redisAdapter "github.com/bft-labs/tripdiary/internal/adapters/redis"
	"github.com/bft-labs/tripdiary/internal/adapters/sim"
	"github.com/bft-labs/tripdiary/internal/cliconfig"
	"github.com/bft-labs/tripdiary/pkg/tripdiary"
	"github.com/bft-labs/tripdiary/plugins/configwatcher"
)

const helpDescription = `
Detect trips from geofence and activity events and keep the tracking
actions of the device in step with them.

Highlights:
  - Waits behind a geofence, tracks while moving, stops when you do.
  - Persists its state to a file or Redis and survives restarts.
  - Checks location permission and settings after every transition.
  - Configure via file, env, or flags; the file is reloaded on change.
`

var exampleUsage = strings.TrimSpace(`
  tripdiary run --state-dir ~/.tripdiary --verbose
  tripdiary run --store redis --redis-url redis://localhost:6379/0
  tripdiary inject exited_geofence
  tripdiary state
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func main() {
	cfg := cliconfig.DefaultConfig()
	var cfgPath string

	log := cliconfig.Logger()

	root := &cobra.Command{
		Use:           "tripdiary",
		Short:         "Trip tracking state machine",
		Long:          strings.TrimSpace(helpDescription),
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfgPath, "config", "", "path to config file (default: $HOME/.tripdiary/config.toml)")
	pf.StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "directory of the state file, journal and presence marker (default: $HOME/.tripdiary)")
	pf.StringVar(&cfg.StoreBackend, "store", cfg.StoreBackend, "state store backend: file or redis")
	pf.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL for the redis store")
	pf.StringVar(&cfg.RedisKey, "redis-key", cfg.RedisKey, "Redis hash key holding the state")
	pf.StringVar(&cfg.ControlAddr, "control-addr", cfg.ControlAddr, "control API address; empty disables it")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	pf.BoolVar(&cfg.LogJSON, "log-json", cfg.LogJSON, "log JSON lines instead of the console format")

	load := func(cmd *cobra.Command) (string, error) {
		return loadConfig(cmd, &cfg, cfgPath)
	}

	run := &cobra.Command{
		Use:   "run",
		Short: "Run the tracker until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgFile, err := load(cmd)
			if err != nil {
				return err
			}
			return runTracker(cfg, cfgFile)
		},
	}
	f := run.Flags()
	f.BoolVar(&cfg.Verbose, "verbose", cfg.Verbose, "notify every committed transition")
	f.BoolVar(&cfg.ResetOnInitialize, "reset-on-initialize", cfg.ResetOnInitialize, "treat initialize during tracking as a reset")
	f.BoolVar(&cfg.InitializeOnStart, "initialize-on-start", cfg.InitializeOnStart, "initialize on start when the persisted state is start")
	f.IntVar(&cfg.CommitAttempts, "commit-attempts", cfg.CommitAttempts, "attempts of a failing state write")
	f.DurationVar(&cfg.SelfHealInitial, "self-heal-initial", cfg.SelfHealInitial, "first delay between re-initializations from start")
	f.DurationVar(&cfg.SelfHealMax, "self-heal-max", cfg.SelfHealMax, "maximum delay between re-initializations from start")
	f.StringVar(&cfg.WebhookURL, "webhook-url", cfg.WebhookURL, "URL receiving notifications as JSON")
	f.StringVar(&cfg.AuthKey, "auth-key", cfg.AuthKey, "bearer token for the webhook")
	f.DurationVar(&cfg.NotifyTimeout, "notify-timeout", cfg.NotifyTimeout, "webhook request timeout")
	f.StringVar(&cfg.Accuracy, "accuracy", cfg.Accuracy, "requested location accuracy")
	f.DurationVar(&cfg.Interval, "interval", cfg.Interval, "requested location interval")
	f.StringVar(&cfg.Permission, "permission", cfg.Permission, "required location permission")
	f.IntVar(&cfg.JournalMaxRecords, "journal-max-records", cfg.JournalMaxRecords, "transition journal records kept")
	f.DurationVar(&cfg.JournalCheckInterval, "journal-check-interval", cfg.JournalCheckInterval, "how often the journal is trimmed")

	root.AddCommand(run)
	root.AddCommand(newStateCommand(&cfg, load))
	root.AddCommand(newInjectCommand(&cfg, load))
	root.AddCommand(newForceCommand(&cfg, load, "force-trip-start", "Start a trip now", tripdiary.EventExitedGeofence))
	root.AddCommand(newForceCommand(&cfg, load, "force-trip-end", "End the current trip now", tripdiary.EventStoppedMoving))
	root.AddCommand(newHistoryCommand(&cfg, load))

	if err := root.Execute(); err != nil {
		log.Error().Err(err).Msg("tripdiary")
		os.Exit(1)
	}
}

// loadConfig applies the config file, then TRIPDIARY_* variables, then the
// flags set on cmd, and validates the result. It returns the config file
// path, or "" when no file was read.
func loadConfig(cmd *cobra.Command, cfg *cliconfig.Config, cfgPath string) (string, error) {
	cfgFile := cfgPath
	if cfgFile == "" {
		cfgFile = cliconfig.DefaultConfigPath()
	}

	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if cfgFile != "" && cliconfig.FileExists(cfgFile) {
		fc, err := cliconfig.LoadFileConfig(cfgFile)
		if err != nil {
			return "", fmt.Errorf("load config: %w", err)
		}
		if err := cliconfig.ApplyFileConfig(cfg, fc, changed); err != nil {
			return "", err
		}
	} else {
		cfgFile = ""
	}

	if err := cliconfig.ApplyEnvConfig(cfg, changed); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return cfgFile, nil
}

func runTracker(cfg cliconfig.Config, cfgFile string) error {
	logger, err := logAdapter.NewZerologAdapter(logAdapter.Options{
		Level: cfg.LogLevel,
		JSON:  cfg.LogJSON,
	})
	if err != nil {
		return err
	}
	log := logger.Logger()

	// Log configuration (masking API key)
	logCfg := cfg
	if len(logCfg.AuthKey) > 0 {
		logCfg.AuthKey = "*****"
	}
	log.Info().Interface("config", logCfg).Msg("configuration")

	deviceState, err := cfg.Device.State()
	if err != nil {
		return err
	}
	specs, err := cfg.ActionSpecs()
	if err != nil {
		return err
	}
	device := sim.NewDevice(deviceState, logger)
	actions := sim.NewActions(specs, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	opts := []tripdiary.Option{
		tripdiary.WithLogger(logger),
		tripdiary.WithDevice(device, device),
		tripdiary.WithActionProvider(actions),
	}

	if cfgFile != "" {
		opts = append(opts,
			tripdiary.WithConfigPath(cfgFile),
			configwatcher.WithConfigWatcher(configwatcher.Config{
				DebounceDelay: 100 * time.Millisecond,
				Device:        device,
				Actions:       actions,
			}),
		)
	}

	if cfg.StoreBackend == cliconfig.StoreRedis {
		rcfg := redisAdapter.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		rcfg.Key = cfg.RedisKey
		client, err := redisAdapter.Connect(ctx, rcfg)
		if err != nil {
			return fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		opts = append(opts, tripdiary.WithStateRepository(redisAdapter.NewStateStore(client, cfg.RedisKey)))
		log.Info().Str("key", cfg.RedisKey).Msg("using redis state store")
	}

	if cfg.WebhookURL != "" {
		opts = append(opts,
			tripdiary.WithHTTPClient(&http.Client{Timeout: cfg.NotifyTimeout}),
			tripdiary.WithWebhook(tripdiary.WebhookConfig{
				URL:     cfg.WebhookURL,
				AuthKey: cfg.AuthKey,
				Timeout: cfg.NotifyTimeout,
			}),
		)
	}

	libCfg := tripdiary.Config{
		StateDir:          cfg.StateDir,
		Verbose:           cfg.Verbose,
		ResetOnInitialize: cfg.ResetOnInitialize,
		InitializeOnStart: cfg.InitializeOnStart,
		CommitAttempts:    cfg.CommitAttempts,
		SelfHealInitial:   cfg.SelfHealInitial,
		SelfHealMax:       cfg.SelfHealMax,
		Profile:           cfg.Profile(),
		Journal: tripdiary.JournalConfig{
			MaxRecords:    cfg.JournalMaxRecords,
			CheckInterval: cfg.JournalCheckInterval,
		},
		ControlAddr: cfg.ControlAddr,
	}

	svc, err := tripdiary.New(libCfg, opts...)
	if err != nil {
		return fmt.Errorf("create tripdiary: %w", err)
	}
	defer svc.Close()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("start tripdiary: %w", err)
	}

	// Poll for a crash of the event loop or the control API.
	doneCh := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if svc.Status() == tripdiary.PhaseCrashed {
					close(doneCh)
					return
				}
			}
		}
	}()

	select {
	case <-sigCh:
		log.Info().Msg("received signal, stopping...")
	case <-doneCh:
		log.Error().Msg("tripdiary crashed")
		return fmt.Errorf("tripdiary crashed")
	}

	if err := svc.Stop(); err != nil {
		return fmt.Errorf("stop tripdiary: %w", err)
	}
	return nil
}
