package batchpipe

import "github.com/zoobzio/batchpipe/log"

type options struct {
	clock        Clock
	logger       log.Logger
	name         string
	mailboxLimit int
}

func defaultOptions() options {
	return options{
		clock:  RealClock,
		logger: log.NewNoopLogger(),
		name:   "batchpipe",
	}
}

// Option configures a Pipe at construction.
type Option func(*options)

// WithClock sets the clock used by the idle timer. Use RealClock for
// production and a clockz fake clock for deterministic tests.
func WithClock(clock Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithLogger sets the logger for flush, completion and fault events.
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName sets the name reported by Name and attached to log entries.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithMailboxLimit bounds the number of events waiting for the intake
// loop. When the limit is reached Submit fails with ErrBackpressure.
// Zero, the default, leaves the mailbox unbounded.
func WithMailboxLimit(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.mailboxLimit = n
		}
	}
}
