package batchpipe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is the base error for every rejected configuration.
	ErrInvalidConfig = errors.New("batchpipe: invalid config")

	// ErrPipeClosed is returned when an item or a subscription arrives after
	// the pipe was completed or faulted.
	ErrPipeClosed = errors.New("batchpipe: pipe closed")

	// ErrBackpressure is returned by Submit when the mailbox limit is reached.
	ErrBackpressure = errors.New("batchpipe: mailbox full")

	// ErrNilSubscriber is returned by Subscribe when fn is nil.
	ErrNilSubscriber = errors.New("batchpipe: nil subscriber")

	// ErrFaulted resolves the completion of a pipe faulted with a nil error.
	ErrFaulted = errors.New("batchpipe: pipe faulted")
)

// ConfigError describes a single invalid configuration value.
type ConfigError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s=%v %s", ErrInvalidConfig, e.Field, e.Value, e.Reason)
}

// Unwrap lets errors.Is match ErrInvalidConfig.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
