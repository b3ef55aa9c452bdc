package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	StateDir          string `toml:"state_dir"`
	Verbose           *bool  `toml:"verbose"`
	ResetOnInitialize *bool  `toml:"reset_on_initialize"`
	InitializeOnStart *bool  `toml:"initialize_on_start"`
	CommitAttempts    int    `toml:"commit_attempts"`
	SelfHealInitial   string `toml:"self_heal_initial"`
	SelfHealMax       string `toml:"self_heal_max"`
	ControlAddr       string `toml:"control_addr"`
	LogLevel          string `toml:"log_level"`
	LogJSON           *bool  `toml:"log_json"`

	Tracking FileTracking `toml:"tracking"`
	Store    FileStore    `toml:"store"`
	Notify   FileNotify   `toml:"notify"`
	Journal  FileJournal  `toml:"journal"`

	Device  FileDevice            `toml:"device"`
	Actions map[string]FileAction `toml:"actions"`
}

// FileTracking is the [tracking] section.
type FileTracking struct {
	Accuracy   string `toml:"accuracy"`
	Interval   string `toml:"interval"`
	Permission string `toml:"permission"`
}

// FileStore is the [store] section.
type FileStore struct {
	Backend  string `toml:"backend"`
	RedisURL string `toml:"redis_url"`
	RedisKey string `toml:"redis_key"`
}

// FileNotify is the [notify] section.
type FileNotify struct {
	WebhookURL string `toml:"webhook_url"`
	AuthKey    string `toml:"auth_key"`
	Timeout    string `toml:"timeout"`
}

// FileJournal is the [journal] section.
type FileJournal struct {
	MaxRecords    int    `toml:"max_records"`
	CheckInterval string `toml:"check_interval"`
}

// FileDevice is the [device] section.
type FileDevice struct {
	PermissionGranted *bool  `toml:"permission_granted"`
	Settings          string `toml:"settings"`
	StatusCode        int    `toml:"status_code"`
	Resolution        string `toml:"resolution"`
	CheckDelay        string `toml:"check_delay"`
	FailChecks        *bool  `toml:"fail_checks"`
}

// FileAction is one [actions.<kind>] section.
type FileAction struct {
	Outcome     string `toml:"outcome"`
	Delay       string `toml:"delay"`
	RetrySafety string `toml:"retry_safety"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, fmt.Errorf("parse %s: %w", path, err)
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.tripdiary/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tripdiary", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", fc.StateDir, &cfg.StateDir)
	s.setString("control-addr", fc.ControlAddr, &cfg.ControlAddr)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("store", fc.Store.Backend, &cfg.StoreBackend)
	s.setString("redis-url", fc.Store.RedisURL, &cfg.RedisURL)
	s.setString("redis-key", fc.Store.RedisKey, &cfg.RedisKey)
	s.setString("webhook-url", fc.Notify.WebhookURL, &cfg.WebhookURL)
	s.setString("auth-key", fc.Notify.AuthKey, &cfg.AuthKey)
	s.setString("accuracy", fc.Tracking.Accuracy, &cfg.Accuracy)
	s.setString("permission", fc.Tracking.Permission, &cfg.Permission)

	durations := []struct {
		flag  string
		value string
		dst   *time.Duration
	}{
		{"self-heal-initial", fc.SelfHealInitial, &cfg.SelfHealInitial},
		{"self-heal-max", fc.SelfHealMax, &cfg.SelfHealMax},
		{"notify-timeout", fc.Notify.Timeout, &cfg.NotifyTimeout},
		{"interval", fc.Tracking.Interval, &cfg.Interval},
		{"journal-check-interval", fc.Journal.CheckInterval, &cfg.JournalCheckInterval},
	}
	for _, d := range durations {
		if err := s.setDuration(d.flag, d.value, d.dst); err != nil {
			return err
		}
	}

	s.setInt("commit-attempts", fc.CommitAttempts, &cfg.CommitAttempts)
	s.setInt("journal-max-records", fc.Journal.MaxRecords, &cfg.JournalMaxRecords)

	s.setBool("verbose", fc.Verbose, &cfg.Verbose)
	s.setBool("reset-on-initialize", fc.ResetOnInitialize, &cfg.ResetOnInitialize)
	s.setBool("initialize-on-start", fc.InitializeOnStart, &cfg.InitializeOnStart)
	s.setBool("log-json", fc.LogJSON, &cfg.LogJSON)

	if err := ApplyDeviceConfig(&cfg.Device, fc.Device); err != nil {
		return err
	}
	return ApplyActionConfig(cfg, fc.Actions)
}

// ApplyDeviceConfig applies the [device] section. The section has no flags.
func ApplyDeviceConfig(dst *DeviceConfig, fd FileDevice) error {
	s := newConfigSetter(nil)
	s.setBool("", fd.PermissionGranted, &dst.PermissionGranted)
	s.setString("", fd.Settings, &dst.Settings)
	s.setString("", fd.Resolution, &dst.Resolution)
	s.setBool("", fd.FailChecks, &dst.FailChecks)
	if fd.StatusCode != 0 {
		dst.StatusCode = fd.StatusCode
	}
	return s.setDuration("device.check_delay", fd.CheckDelay, &dst.CheckDelay)
}

// ApplyActionConfig merges the [actions.<kind>] sections into cfg.Actions.
func ApplyActionConfig(cfg *Config, actions map[string]FileAction) error {
	if len(actions) == 0 {
		return nil
	}
	if cfg.Actions == nil {
		cfg.Actions = make(map[string]ActionConfig, len(actions))
	}
	s := newConfigSetter(nil)
	for name, fa := range actions {
		ac := cfg.Actions[name]
		s.setString("", fa.Outcome, &ac.Outcome)
		s.setString("", fa.RetrySafety, &ac.RetrySafety)
		if err := s.setDuration("actions."+name+".delay", fa.Delay, &ac.Delay); err != nil {
			return err
		}
		cfg.Actions[name] = ac
	}
	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
