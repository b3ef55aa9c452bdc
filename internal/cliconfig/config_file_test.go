package cliconfig

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleConfig = `
state_dir = "/var/lib/tripdiary"
verbose = true
reset_on_initialize = false
commit_attempts = 5
self_heal_initial = "2s"
self_heal_max = "1m"
control_addr = "127.0.0.1:9000"

[tracking]
accuracy = "balanced"
interval = "1m"
permission = "coarse_location"

[store]
backend = "redis"
redis_url = "redis://cache:6379/1"
redis_key = "trips:state"

[notify]
webhook_url = "https://hooks.example.com/trip"
timeout = "3s"

[journal]
max_records = 500
check_interval = "10m"

[device]
permission_granted = false
settings = "change_unavailable"
status_code = 8502

[actions.tracking_start]
outcome = "unavailable"

[actions.geofence_create]
delay = "250ms"
retry_safety = "idempotent"
`

func TestLoadFileConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o600); err != nil {
		t.Fatal(err)
	}

	fc, err := LoadFileConfig(path)
	if err != nil {
		t.Fatalf("LoadFileConfig() error = %v", err)
	}

	cfg := DefaultConfig()
	if err := ApplyFileConfig(&cfg, fc, map[string]bool{}); err != nil {
		t.Fatalf("ApplyFileConfig() error = %v", err)
	}

	if cfg.StateDir != "/var/lib/tripdiary" || !cfg.Verbose || cfg.ResetOnInitialize {
		t.Errorf("top-level keys not applied: %+v", cfg)
	}
	if !cfg.InitializeOnStart {
		t.Error("initialize_on_start missing from file should keep its default")
	}
	if cfg.CommitAttempts != 5 || cfg.SelfHealInitial != 2*time.Second || cfg.SelfHealMax != time.Minute {
		t.Errorf("dispatch keys not applied: %+v", cfg)
	}
	if cfg.Accuracy != "balanced" || cfg.Interval != time.Minute || cfg.Permission != "coarse_location" {
		t.Errorf("tracking section not applied: %+v", cfg)
	}
	if cfg.StoreBackend != StoreRedis || cfg.RedisURL != "redis://cache:6379/1" || cfg.RedisKey != "trips:state" {
		t.Errorf("store section not applied: %+v", cfg)
	}
	if cfg.WebhookURL != "https://hooks.example.com/trip" || cfg.NotifyTimeout != 3*time.Second {
		t.Errorf("notify section not applied: %+v", cfg)
	}
	if cfg.JournalMaxRecords != 500 || cfg.JournalCheckInterval != 10*time.Minute {
		t.Errorf("journal section not applied: %+v", cfg)
	}
	if cfg.Device.PermissionGranted || cfg.Device.Settings != "change_unavailable" || cfg.Device.StatusCode != 8502 {
		t.Errorf("device section not applied: %+v", cfg.Device)
	}
	if cfg.Actions["tracking_start"].Outcome != "unavailable" {
		t.Errorf("actions.tracking_start not applied: %+v", cfg.Actions)
	}
	if ga := cfg.Actions["geofence_create"]; ga.Delay != 250*time.Millisecond || ga.RetrySafety != "idempotent" {
		t.Errorf("actions.geofence_create not applied: %+v", ga)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestApplyFileConfig(t *testing.T) {
	trueVal := true

	tests := []struct {
		name     string
		fc       FileConfig
		changed  map[string]bool
		initial  Config
		expected Config
		wantErr  bool
	}{
		{
			name:     "applies values",
			fc:       FileConfig{StateDir: "/file", Verbose: &trueVal, CommitAttempts: 7},
			changed:  map[string]bool{},
			expected: Config{StateDir: "/file", Verbose: true, CommitAttempts: 7},
		},
		{
			name:     "respects changed flags",
			fc:       FileConfig{StateDir: "/file", ControlAddr: "file:1"},
			changed:  map[string]bool{"state-dir": true},
			initial:  Config{StateDir: "/flag"},
			expected: Config{StateDir: "/flag", ControlAddr: "file:1"},
		},
		{
			name:    "invalid duration",
			fc:      FileConfig{SelfHealMax: "forever"},
			changed: map[string]bool{},
			wantErr: true,
		},
		{
			name:    "invalid action delay",
			fc:      FileConfig{Actions: map[string]FileAction{"tracking_start": {Delay: "soon"}}},
			changed: map[string]bool{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.initial
			err := ApplyFileConfig(&cfg, tt.fc, tt.changed)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyFileConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if cfg.StateDir != tt.expected.StateDir ||
				cfg.ControlAddr != tt.expected.ControlAddr ||
				cfg.Verbose != tt.expected.Verbose ||
				cfg.CommitAttempts != tt.expected.CommitAttempts {
				t.Errorf("got %+v, want %+v", cfg, tt.expected)
			}
		})
	}
}

func TestLoadFileConfig_Errors(t *testing.T) {
	dir := t.TempDir()

	if _, err := LoadFileConfig(filepath.Join(dir, "missing.toml")); err == nil {
		t.Error("expected error for missing file")
	}

	bad := filepath.Join(dir, "bad.toml")
	if err := os.WriteFile(bad, []byte("verbose = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := LoadFileConfig(bad)
	if err == nil || !strings.Contains(err.Error(), "bad.toml") {
		t.Errorf("LoadFileConfig() error = %v, want parse error naming the file", err)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	p := DefaultConfigPath()
	if p != "" && !strings.HasSuffix(p, filepath.Join(".tripdiary", "config.toml")) {
		t.Errorf("DefaultConfigPath() = %q", p)
	}
}

func TestFileExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x")
	if FileExists(path) {
		t.Error("FileExists() = true before create")
	}
	_ = os.WriteFile(path, nil, 0o600)
	if !FileExists(path) {
		t.Error("FileExists() = false after create")
	}
}
