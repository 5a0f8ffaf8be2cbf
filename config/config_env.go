package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ApplyEnvConfig applies BATCHWATCH_* environment variables, skipping
// fields whose flag was set explicitly. BATCHWATCH_PATHS is a list
// separated by the OS path list separator.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	if v := os.Getenv("BATCHWATCH_PATHS"); v != "" {
		s.setStrings("path", filepath.SplitList(v), &cfg.Paths)
	}
	s.setString("log-level", strings.TrimSpace(os.Getenv("BATCHWATCH_LOG_LEVEL")), &cfg.LogLevel)
	s.setString("name", os.Getenv("BATCHWATCH_NAME"), &cfg.Name)

	if err := s.setDuration("idle", os.Getenv("BATCHWATCH_IDLE_INTERVAL"), &cfg.IdleInterval); err != nil {
		return err
	}
	if err := s.setIntFromString("batch-size", os.Getenv("BATCHWATCH_BATCH_SIZE"), &cfg.BatchSize); err != nil {
		return err
	}
	if err := s.setIntFromString("mailbox-limit", os.Getenv("BATCHWATCH_MAILBOX_LIMIT"), &cfg.MailboxLimit); err != nil {
		return err
	}

	s.setBoolFromString("once", os.Getenv("BATCHWATCH_ONCE"), &cfg.Once)

	return nil
}
