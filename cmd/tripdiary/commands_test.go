package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/tripdiary/internal/adapters/fs"
	"github.com/bft-labs/tripdiary/internal/cliconfig"
	"github.com/bft-labs/tripdiary/internal/domain"
)

func TestWriteHistory(t *testing.T) {
	recs := []domain.TransitionRecord{
		{
			From:        domain.StateWaitingForTripStart,
			Event:       domain.EventExitedGeofence,
			To:          domain.StateOngoingTrip,
			CommittedAt: time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC),
			Succeeded:   true,
			Actions: []domain.ActionResult{
				{Kind: domain.ActionTrackingStart, Outcome: domain.OutcomeSucceeded},
			},
		},
		{
			From:        domain.StateOngoingTrip,
			Event:       domain.EventStoppedMoving,
			To:          domain.StateWaitingForTripStart,
			Redelivered: true,
		},
	}

	var buf bytes.Buffer
	if err := writeHistory(&buf, recs); err != nil {
		t.Fatalf("writeHistory failed: %v", err)
	}
	out := buf.String()

	for _, want := range []string{"COMMITTED", "exited_geofence", "tracking_start=succeeded", "failed (redelivered)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(out, "\n"); lines != 3 {
		t.Errorf("got %d lines, want 3", lines)
	}
}

func TestLoadConfig_FlagOverridesEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRIPDIARY_STATE_DIR", filepath.Join(dir, "from-env"))
	t.Setenv("TRIPDIARY_LOG_LEVEL", "debug")

	cfg := cliconfig.DefaultConfig()
	cmd := &cobra.Command{Use: "test", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().StringVar(&cfg.StateDir, "state-dir", cfg.StateDir, "")
	cmd.Flags().StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "")
	if err := cmd.Flags().Parse([]string{"--state-dir", filepath.Join(dir, "from-flag")}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfgFile, err := loadConfig(cmd, &cfg, filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfgFile != "" {
		t.Errorf("cfgFile = %q, want empty for a missing file", cfgFile)
	}
	if cfg.StateDir != filepath.Join(dir, "from-flag") {
		t.Errorf("StateDir = %q, want the flag value", cfg.StateDir)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug from env", cfg.LogLevel)
	}
}

func TestLoadStoredState_File(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	cfg := cliconfig.DefaultConfig()
	cfg.StateDir = dir
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}

	st, err := loadStoredState(ctx, cfg)
	if err != nil {
		t.Fatalf("loadStoredState failed: %v", err)
	}
	if st != domain.StateStart {
		t.Errorf("state = %v, want start without a state file", st)
	}

	if err := fs.NewStateFileRepository(dir).Save(ctx, domain.StateOngoingTrip); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	st, err = loadStoredState(ctx, cfg)
	if err != nil {
		t.Fatalf("loadStoredState failed: %v", err)
	}
	if st != domain.StateOngoingTrip {
		t.Errorf("state = %v, want ongoing_trip", st)
	}
}
