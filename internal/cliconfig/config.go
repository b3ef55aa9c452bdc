package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bft-labs/tripdiary/internal/adapters/sim"
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

// DefaultControlAddr is the default listen address of the control API.
const DefaultControlAddr = "127.0.0.1:7480"

// Store backends.
const (
	StoreFile  = "file"
	StoreRedis = "redis"
)

// Config holds CLI configuration for tripdiary.
type Config struct {
	StateDir string

	Verbose           bool
	ResetOnInitialize bool
	InitializeOnStart bool
	CommitAttempts    int
	SelfHealInitial   time.Duration
	SelfHealMax       time.Duration

	ControlAddr string
	LogLevel    string
	LogJSON     bool

	StoreBackend string
	RedisURL     string
	RedisKey     string

	WebhookURL    string
	AuthKey       string
	NotifyTimeout time.Duration

	Accuracy   string
	Interval   time.Duration
	Permission string

	JournalMaxRecords    int
	JournalCheckInterval time.Duration

	Device  DeviceConfig
	Actions map[string]ActionConfig
}

// DeviceConfig is the simulated device of the [device] section.
type DeviceConfig struct {
	PermissionGranted bool
	Settings          string
	StatusCode        int
	Resolution        string
	CheckDelay        time.Duration
	FailChecks        bool
}

// ActionConfig is the simulated action of an [actions.<kind>] section.
type ActionConfig struct {
	Outcome     string
	Delay       time.Duration
	RetrySafety string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ResetOnInitialize:    true,
		InitializeOnStart:    true,
		CommitAttempts:       3,
		SelfHealInitial:      5 * time.Second,
		SelfHealMax:          5 * time.Minute,
		ControlAddr:          DefaultControlAddr,
		LogLevel:             "info",
		StoreBackend:         StoreFile,
		RedisKey:             "tripdiary:state",
		NotifyTimeout:        10 * time.Second,
		Accuracy:             "high_accuracy",
		Interval:             30 * time.Second,
		Permission:           "fine_location",
		JournalMaxRecords:    10000,
		JournalCheckInterval: time.Hour,
		Device: DeviceConfig{
			PermissionGranted: true,
			Settings:          domain.SettingsSatisfied.String(),
		},
		AuthKey: os.Getenv("TRIPDIARY_AUTH_KEY"),
	}
}

// DefaultStateDir returns ~/.tripdiary, or ".tripdiary" when the home
// directory is unknown.
func DefaultStateDir() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".tripdiary")
	}
	return ".tripdiary"
}

// Validate checks the configuration for errors and sets derived defaults.
// Every error wraps domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	if c.StateDir == "" {
		c.StateDir = DefaultStateDir()
	}

	switch c.StoreBackend {
	case "":
		c.StoreBackend = StoreFile
	case StoreFile:
	case StoreRedis:
		if c.RedisURL == "" {
			return invalid("store.redis_url is required for the redis backend")
		}
		if c.RedisKey == "" {
			return invalid("store.redis_key must not be empty")
		}
	default:
		return invalid("unknown store backend %q", c.StoreBackend)
	}

	if c.CommitAttempts < 1 {
		return invalid("commit attempts must be at least 1")
	}
	if c.SelfHealInitial < 0 || c.SelfHealMax < 0 {
		return invalid("self-heal delays must not be negative")
	}
	if c.SelfHealInitial > 0 && c.SelfHealMax < c.SelfHealInitial {
		return invalid("self-heal max %s is below initial %s", c.SelfHealMax, c.SelfHealInitial)
	}
	if c.NotifyTimeout <= 0 {
		return invalid("notify timeout must be positive")
	}

	if c.Accuracy == "" || c.Permission == "" {
		return invalid("tracking accuracy and permission are required")
	}
	if c.Interval <= 0 {
		return invalid("tracking interval must be positive")
	}

	if c.JournalMaxRecords < 0 {
		return invalid("journal max records must not be negative")
	}
	if c.JournalCheckInterval <= 0 {
		return invalid("journal check interval must be positive")
	}

	// Ensure no trailing slash
	c.WebhookURL = strings.TrimRight(c.WebhookURL, "/")

	if _, err := c.Device.State(); err != nil {
		return err
	}
	if _, err := c.ActionSpecs(); err != nil {
		return err
	}
	return nil
}

// Profile returns the location request profile of the [tracking] section.
func (c Config) Profile() domain.RequestProfile {
	return domain.RequestProfile{
		Accuracy:   c.Accuracy,
		Interval:   c.Interval,
		Permission: c.Permission,
	}
}

// State converts the device section to the simulated device state.
func (d DeviceConfig) State() (sim.DeviceState, error) {
	code, err := parseSettingsCode(d.Settings)
	if err != nil {
		return sim.DeviceState{}, err
	}
	return sim.DeviceState{
		PermissionGranted: d.PermissionGranted,
		Settings:          code,
		StatusCode:        d.StatusCode,
		Resolution:        d.Resolution,
		CheckDelay:        d.CheckDelay,
		FailChecks:        d.FailChecks,
	}, nil
}

// ActionSpecs converts the [actions.<kind>] sections to simulated action
// specs, on top of sim.DefaultActionSpecs.
func (c Config) ActionSpecs() (map[domain.ActionKind]sim.ActionSpec, error) {
	specs := sim.DefaultActionSpecs()

	names := make([]string, 0, len(c.Actions))
	for name := range c.Actions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		kind, ok := domain.ParseActionKind(name)
		if !ok {
			return nil, invalid("unknown action %q", name)
		}
		ac := c.Actions[name]
		spec := specs[kind]

		if ac.Outcome != "" {
			var o domain.Outcome
			if err := o.UnmarshalText([]byte(ac.Outcome)); err != nil {
				return nil, invalid("actions.%s: %v", name, err)
			}
			spec.Outcome = o
		}
		if ac.Delay < 0 {
			return nil, invalid("actions.%s: delay must not be negative", name)
		}
		spec.Delay = ac.Delay

		switch ac.RetrySafety {
		case "":
		case ports.Idempotent.String():
			spec.RetrySafety = ports.Idempotent
		case ports.AtMostOnce.String():
			spec.RetrySafety = ports.AtMostOnce
		default:
			return nil, invalid("actions.%s: unknown retry safety %q", name, ac.RetrySafety)
		}
		specs[kind] = spec
	}
	return specs, nil
}

func parseSettingsCode(s string) (domain.SettingsCode, error) {
	for _, c := range []domain.SettingsCode{
		domain.SettingsSatisfied,
		domain.SettingsResolutionRequired,
		domain.SettingsChangeUnavailable,
	} {
		if c.String() == s {
			return c, nil
		}
	}
	if s == "" {
		return domain.SettingsSatisfied, nil
	}
	return 0, invalid("unknown device settings %q", s)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{domain.ErrInvalidConfig}, args...)...)
}

// configSetter helps apply configuration values while respecting flag precedence.
// It only applies values if the corresponding flag hasn't been explicitly set.
type configSetter struct {
	changed map[string]bool
}

// newConfigSetter creates a new setter with the given changed flags map.
func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
// Used for environment variables that come as strings.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
