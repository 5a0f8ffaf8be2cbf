// Package config holds the configuration of the batchwatch command and the
// rules for merging defaults, a TOML file, environment variables and flags.
//
// Precedence, highest first: explicitly set flags, BATCHWATCH_* environment
// variables, the config file, defaults.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zoobzio/batchpipe"
)

// Config holds CLI configuration for batchwatch.
type Config struct {
	Paths        []string
	BatchSize    int
	IdleInterval time.Duration
	MailboxLimit int
	LogLevel     string
	Name         string
	Once         bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		BatchSize:    100,
		IdleInterval: time.Second,
		LogLevel:     "info",
		Name:         "batchwatch",
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Paths) == 0 {
		return fmt.Errorf("at least one path is required")
	}
	for _, p := range c.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("path must not be empty")
		}
	}
	if err := c.Pipe().Validate(); err != nil {
		return err
	}
	if c.MailboxLimit < 0 {
		return fmt.Errorf("mailbox limit must not be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Pipe returns the batching parameters.
func (c *Config) Pipe() batchpipe.Config {
	return batchpipe.Config{
		BatchSize:    c.BatchSize,
		IdleInterval: c.IdleInterval,
	}
}

// Level parses LogLevel. An empty level means info.
func (c *Config) Level() (zerolog.Level, error) {
	if c.LogLevel == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log-level: %w", err)
	}
	return level, nil
}

// configSetter applies values only when the matching flag was not set
// explicitly.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

func (s *configSetter) setStrings(flag string, value []string, dst *[]string) {
	if len(value) == 0 || s.changed[flag] {
		return
	}
	*dst = append([]string(nil), value...)
}

// setInt ignores non-positive values.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

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

func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

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

// setBoolFromString accepts "true" and "1" as true.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
