// Package batchpipe provides a batching pipe: a concurrency primitive that
// sits between an item producer and an item consumer, groups individual
// items into batches and releases a batch downstream when either a
// configured item count is reached or a configured idle interval has
// elapsed since the last item arrived.
//
// Basic usage:
//
//	pipe, err := batchpipe.New[Event](100, time.Second)
//	if err != nil {
//		return err
//	}
//
//	pipe.Subscribe(func(batch []Event) {
//		bulkInsert(batch)
//	})
//
//	for _, e := range events {
//		if err := pipe.Submit(e); err != nil {
//			break
//		}
//	}
//	pipe.Complete()
//
//	if err := pipe.Wait(ctx); err != nil {
//		return err
//	}
//
// Batches can also be pulled without blocking with TryTake and TryTakeAll,
// or the pipe can be used as a channel stage through Process.
//
// Every mutation of the pending batch happens on a single intake
// goroutine. Submit, Complete and Fault only enqueue events for it, and
// the idle timer is selected in the same loop, so a size flush and an idle
// flush can never race on the same batch.
package batchpipe

import (
	"context"
	"time"
)

// Processor transforms an input channel of type In to an output channel of
// type Out. Processors close the output channel when processing is
// complete and respect context cancellation.
type Processor[In, Out any] interface {
	// Process transforms the input channel to an output channel.
	Process(ctx context.Context, in <-chan In) <-chan Out

	// Name returns a descriptive name for the processor, useful for debugging.
	Name() string
}

// Config holds the fixed batching parameters of a pipe.
type Config struct {
	// BatchSize is the number of items that forces an immediate flush.
	BatchSize int

	// IdleInterval is the quiet period after the last item before a
	// partial batch is flushed.
	IdleInterval time.Duration
}

// Validate reports the first invalid field as a *ConfigError.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return &ConfigError{Field: "BatchSize", Value: c.BatchSize, Reason: "must be positive"}
	}
	if c.IdleInterval <= 0 {
		return &ConfigError{Field: "IdleInterval", Value: c.IdleInterval, Reason: "must be positive"}
	}
	return nil
}

// FlushReason identifies which trigger released a batch.
type FlushReason int

const (
	// FlushSize means the batch reached BatchSize.
	FlushSize FlushReason = iota
	// FlushIdle means IdleInterval elapsed after the last item.
	FlushIdle
	// FlushComplete means the partial tail was released by Complete.
	FlushComplete
)

func (r FlushReason) String() string {
	switch r {
	case FlushSize:
		return "size"
	case FlushIdle:
		return "idle"
	case FlushComplete:
		return "complete"
	default:
		return "unknown"
	}
}
