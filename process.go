package batchpipe

import (
	"context"
	"errors"
	"runtime"
)

var _ Processor[int, []int] = (*Pipe[int])(nil)

// Process runs the pipe as a channel stage. Every item read from in is
// submitted; closing in completes the pipe, and cancelling ctx faults it
// with ctx.Err(). The returned channel carries every batch in flush order
// and is closed once the pipe has terminated.
//
// Example:
//
//	pipe, _ := batchpipe.New[Event](100, 250*time.Millisecond)
//	for batch := range pipe.Process(ctx, events) {
//		publish(batch)
//	}
//
// Process subscribes to the pipe, so batches are not available to TryTake
// while it runs. If the pipe has already terminated the returned channel is
// closed immediately.
func (p *Pipe[T]) Process(ctx context.Context, in <-chan T) <-chan []T {
	out := make(chan []T)

	_, err := p.Subscribe(func(batch []T) {
		select {
		case out <- batch:
		case <-ctx.Done():
		case <-p.emitter.halted:
		}
	})
	if err != nil {
		close(out)
		return out
	}

	go func() {
		p.feed(ctx, in)

		// The dispatcher may still be forwarding; out is closed only after
		// it has returned.
		<-p.emitter.stopped
		close(out)
	}()

	return out
}

func (p *Pipe[T]) feed(ctx context.Context, in <-chan T) {
	for {
		select {
		case <-ctx.Done():
			p.Fault(ctx.Err())
			return

		case <-p.Done():
			return

		case item, ok := <-in:
			if !ok {
				_ = p.Complete()
				return
			}
			if !p.submitWait(ctx, item) {
				return
			}
		}
	}
}

// submitWait retries an item rejected for backpressure until the intake
// loop catches up. It reports false when the pipe can no longer accept
// items.
func (p *Pipe[T]) submitWait(ctx context.Context, item T) bool {
	for {
		err := p.Submit(item)
		if err == nil {
			return true
		}
		if !errors.Is(err, ErrBackpressure) {
			return false
		}
		select {
		case <-ctx.Done():
			p.Fault(ctx.Err())
			return false
		default:
			runtime.Gosched()
		}
	}
}
