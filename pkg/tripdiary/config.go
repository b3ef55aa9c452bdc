package tripdiary

import (
	"fmt"
	"time"

	"github.com/bft-labs/tripdiary/internal/app"
	"github.com/bft-labs/tripdiary/internal/domain"
)

// Config holds the configuration of a tracking service.
// Start from DefaultConfig; the zero value disables the boolean features.
type Config struct {
	// StateDir holds the state file, the transition journal and the
	// presence marker. Required unless all three are replaced via options.
	StateDir string

	// Verbose posts a notification for every committed transition.
	Verbose bool

	// ResetOnInitialize treats initialize in waiting_for_trip_start and
	// ongoing_trip as a reset to a fresh start.
	ResetOnInitialize bool

	// InitializeOnStart injects initialize when the service starts and the
	// persisted state is start.
	InitializeOnStart bool

	// CommitAttempts bounds the retries of a failing state write.
	// Default: 3
	CommitAttempts int

	// SelfHealInitial and SelfHealMax bound the delay between consecutive
	// re-initializations from start. Zero SelfHealInitial disables the delay.
	SelfHealInitial time.Duration
	SelfHealMax     time.Duration

	// Profile is the location request checked by the settings guard.
	Profile RequestProfile

	// Journal configures retention of the default transition journal.
	Journal JournalConfig

	// ControlAddr is the listen address of the control API. Empty disables it.
	ControlAddr string

	// ShutdownTimeout bounds Stop.
	// Default: 30 seconds
	ShutdownTimeout time.Duration
}

// JournalConfig configures retention of the transition journal.
type JournalConfig struct {
	// MaxRecords is the number of newest records kept.
	// Default: 10000
	MaxRecords int

	// CheckInterval is how often the journal is trimmed.
	// Default: 1 hour
	CheckInterval time.Duration
}

// DefaultConfig returns a Config with default values. StateDir is left empty.
func DefaultConfig() Config {
	g := app.DefaultGuardConfig()
	return Config{
		ResetOnInitialize: true,
		InitializeOnStart: true,
		CommitAttempts:    app.DefaultCommitAttempts,
		SelfHealInitial:   g.SelfHealInitial,
		SelfHealMax:       g.SelfHealMax,
		Profile:           g.Profile,
		Journal: JournalConfig{
			MaxRecords:    10000,
			CheckInterval: time.Hour,
		},
		ShutdownTimeout: app.ShutdownTimeout,
	}
}

// SetDefaults fills zero numeric fields and empty profile fields with defaults.
func (c *Config) SetDefaults() {
	def := DefaultConfig()
	if c.CommitAttempts <= 0 {
		c.CommitAttempts = def.CommitAttempts
	}
	if c.Profile.Accuracy == "" {
		c.Profile.Accuracy = def.Profile.Accuracy
	}
	if c.Profile.Permission == "" {
		c.Profile.Permission = def.Profile.Permission
	}
	if c.Profile.Interval <= 0 {
		c.Profile.Interval = def.Profile.Interval
	}
	if c.Journal.MaxRecords <= 0 {
		c.Journal.MaxRecords = def.Journal.MaxRecords
	}
	if c.Journal.CheckInterval <= 0 {
		c.Journal.CheckInterval = def.Journal.CheckInterval
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = def.ShutdownTimeout
	}
}

// Validate checks the configuration. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if c.SelfHealInitial < 0 || c.SelfHealMax < 0 {
		return fmt.Errorf("%w: self-heal delays must not be negative", domain.ErrInvalidConfig)
	}
	if c.SelfHealInitial > 0 && c.SelfHealMax < c.SelfHealInitial {
		return fmt.Errorf("%w: self-heal max %s is below initial %s",
			domain.ErrInvalidConfig, c.SelfHealMax, c.SelfHealInitial)
	}
	if c.CommitAttempts < 1 {
		return fmt.Errorf("%w: commit attempts must be at least 1", domain.ErrInvalidConfig)
	}
	return nil
}
