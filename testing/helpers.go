// Package testing provides test utilities for batchpipe.
package testing

import (
	"testing"
	"time"

	"github.com/zoobzio/batchpipe"
)

// CollectBatches reads batches from a channel until it closes or the
// timeout passes.
func CollectBatches[T any](t *testing.T, ch <-chan []T, timeout time.Duration) [][]T {
	t.Helper()

	var batches [][]T
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case batch, ok := <-ch:
			if !ok {
				return batches
			}
			batches = append(batches, batch)
		case <-timer.C:
			return batches
		}
	}
}

// Drain waits for the pipe to terminate and pulls every buffered batch.
// It fails the test if the pipe does not terminate within timeout.
func Drain[T any](t *testing.T, p *batchpipe.Pipe[T], timeout time.Duration) [][]T {
	t.Helper()

	select {
	case <-p.Done():
	case <-time.After(timeout):
		t.Fatalf("pipe %q did not terminate within %v", p.Name(), timeout)
	}
	return p.TryTakeAll()
}

// WaitFor polls cond every millisecond until it holds, failing the test
// after timeout.
func WaitFor(t *testing.T, timeout time.Duration, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out after %v waiting for %s", timeout, what)
		}
		time.Sleep(time.Millisecond)
	}
}

// Flatten concatenates batches in order.
func Flatten[T any](batches [][]T) []T {
	var out []T
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

// AssertBatchSizes verifies every batch is non-empty and no larger than max.
func AssertBatchSizes[T any](t *testing.T, batches [][]T, maxSize int) {
	t.Helper()

	for i, b := range batches {
		if len(b) == 0 {
			t.Errorf("batch %d: empty batch emitted", i)
		}
		if len(b) > maxSize {
			t.Errorf("batch %d: size %d exceeds %d", i, len(b), maxSize)
		}
	}
}

// AssertSequence verifies items are exactly 0..n-1 in order, which is what
// a single producer submitting a counter must get back.
func AssertSequence(t *testing.T, items []int, n int) {
	t.Helper()

	if len(items) != n {
		t.Errorf("expected %d items, got %d", n, len(items))
	}
	for i, v := range items {
		if v != i {
			t.Errorf("item %d: expected %d, got %d", i, i, v)
			return
		}
	}
}
