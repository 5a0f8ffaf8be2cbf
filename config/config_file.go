package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML friendly.
type FileConfig struct {
	Paths        []string `toml:"paths"`
	BatchSize    int      `toml:"batch_size"`
	IdleInterval string   `toml:"idle_interval"`
	MailboxLimit int      `toml:"mailbox_limit"`
	LogLevel     string   `toml:"log_level"`
	Name         string   `toml:"name"`
	Once         *bool    `toml:"once"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns ~/.batchwatch/config.toml, or "" when the home
// directory is unknown.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".batchwatch", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setStrings("path", fc.Paths, &cfg.Paths)
	s.setString("log-level", fc.LogLevel, &cfg.LogLevel)
	s.setString("name", fc.Name, &cfg.Name)

	if err := s.setDuration("idle", fc.IdleInterval, &cfg.IdleInterval); err != nil {
		return err
	}

	s.setInt("batch-size", fc.BatchSize, &cfg.BatchSize)
	s.setInt("mailbox-limit", fc.MailboxLimit, &cfg.MailboxLimit)

	s.setBool("once", fc.Once, &cfg.Once)

	return nil
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
