package batchpipe

import (
	"reflect"
	"testing"
	"time"
)

// waitFor polls cond until it holds or two seconds pass.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitDone[T any](t *testing.T, p *Pipe[T]) {
	t.Helper()

	select {
	case <-p.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for pipe to terminate")
	}
}

func assertBatch[T any](t *testing.T, got, want []T) {
	t.Helper()

	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected batch %v, got %v", want, got)
	}
}

func mustNew[T any](t *testing.T, size int, idle time.Duration, opts ...Option) *Pipe[T] {
	t.Helper()

	p, err := New[T](size, idle, opts...)
	if err != nil {
		t.Fatalf("New(%d, %v): %v", size, idle, err)
	}
	return p
}

func mustSubmit[T any](t *testing.T, p *Pipe[T], items ...T) {
	t.Helper()

	for _, item := range items {
		if err := p.Submit(item); err != nil {
			t.Fatalf("Submit(%v): %v", item, err)
		}
	}
}
