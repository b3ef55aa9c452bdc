package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (TRIPDIARY_*).
// It respects flags that have been explicitly set (changed map).
// Returns error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("state-dir", os.Getenv("TRIPDIARY_STATE_DIR"), &cfg.StateDir)
	s.setString("control-addr", os.Getenv("TRIPDIARY_CONTROL_ADDR"), &cfg.ControlAddr)
	s.setString("log-level", os.Getenv("TRIPDIARY_LOG_LEVEL"), &cfg.LogLevel)
	s.setString("store", os.Getenv("TRIPDIARY_STORE_BACKEND"), &cfg.StoreBackend)
	s.setString("redis-url", os.Getenv("TRIPDIARY_REDIS_URL"), &cfg.RedisURL)
	s.setString("redis-key", os.Getenv("TRIPDIARY_REDIS_KEY"), &cfg.RedisKey)
	s.setString("webhook-url", os.Getenv("TRIPDIARY_WEBHOOK_URL"), &cfg.WebhookURL)
	s.setString("auth-key", os.Getenv("TRIPDIARY_AUTH_KEY"), &cfg.AuthKey)
	s.setString("accuracy", os.Getenv("TRIPDIARY_ACCURACY"), &cfg.Accuracy)
	s.setString("permission", os.Getenv("TRIPDIARY_PERMISSION"), &cfg.Permission)

	if err := s.setDuration("self-heal-initial", os.Getenv("TRIPDIARY_SELF_HEAL_INITIAL"), &cfg.SelfHealInitial); err != nil {
		return err
	}
	if err := s.setDuration("self-heal-max", os.Getenv("TRIPDIARY_SELF_HEAL_MAX"), &cfg.SelfHealMax); err != nil {
		return err
	}
	if err := s.setDuration("notify-timeout", os.Getenv("TRIPDIARY_NOTIFY_TIMEOUT"), &cfg.NotifyTimeout); err != nil {
		return err
	}
	if err := s.setDuration("interval", os.Getenv("TRIPDIARY_INTERVAL"), &cfg.Interval); err != nil {
		return err
	}
	if err := s.setDuration("journal-check-interval", os.Getenv("TRIPDIARY_JOURNAL_CHECK_INTERVAL"), &cfg.JournalCheckInterval); err != nil {
		return err
	}

	if err := s.setIntFromString("commit-attempts", os.Getenv("TRIPDIARY_COMMIT_ATTEMPTS"), &cfg.CommitAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("journal-max-records", os.Getenv("TRIPDIARY_JOURNAL_MAX_RECORDS"), &cfg.JournalMaxRecords); err != nil {
		return err
	}

	s.setBoolFromString("verbose", os.Getenv("TRIPDIARY_VERBOSE"), &cfg.Verbose)
	s.setBoolFromString("reset-on-initialize", os.Getenv("TRIPDIARY_RESET_ON_INITIALIZE"), &cfg.ResetOnInitialize)
	s.setBoolFromString("initialize-on-start", os.Getenv("TRIPDIARY_INITIALIZE_ON_START"), &cfg.InitializeOnStart)
	s.setBoolFromString("log-json", os.Getenv("TRIPDIARY_LOG_JSON"), &cfg.LogJSON)

	return nil
}
