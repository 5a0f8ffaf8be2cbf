package batchpipe

import (
	"context"
	"sync"

	"github.com/oleiade/lane/v2"
)

// emitter buffers flushed batches and hands each one out exactly once,
// either to a pull consumer or to the push subscribers.
//
// The intake loop only ever enqueues, so a slow subscriber holds up the
// dispatcher goroutine and never the intake loop.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type emitter[T any] struct {
	queue *lane.Queue[[]T]

	mu          sync.Mutex
	subscribers []subscriber[T]
	nextID      uint64
	closed      bool
	faulted     bool
	terminated  bool
	err         error

	wake    chan struct{}
	halted  chan struct{}
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

type subscriber[T any] struct {
	id uint64
	fn func([]T)
}

func newEmitter[T any]() *emitter[T] {
	e := &emitter[T]{
		queue:   lane.NewQueue[[]T](),
		wake:    make(chan struct{}, 1),
		halted:  make(chan struct{}),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	go e.dispatch()
	return e
}

// emit queues a batch. It reports false when the emitter has faulted and
// the batch was dropped.
func (e *emitter[T]) emit(batch []T) bool {
	e.mu.Lock()
	if e.faulted {
		e.mu.Unlock()
		return false
	}
	e.queue.Enqueue(batch)
	e.mu.Unlock()

	e.signal()
	return true
}

// close marks that no further batches will be emitted.
func (e *emitter[T]) close() {
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()

	e.signal()
}

// fault discards every undelivered batch and records err. It returns the
// number of items in the discarded batches, and false if the emitter had
// already terminated. The caller resolves completion once the intake loop
// has stopped.
func (e *emitter[T]) fault(err error) (int, bool) {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return 0, false
	}
	e.faulted = true
	e.terminated = true
	e.err = err

	dropped := 0
	for {
		batch, ok := e.queue.Dequeue()
		if !ok {
			break
		}
		dropped += len(batch)
	}
	e.mu.Unlock()

	close(e.halted)
	e.signal()
	return dropped, true
}

func (e *emitter[T]) subscribe(fn func([]T)) (uint64, error) {
	e.mu.Lock()
	if e.terminated {
		e.mu.Unlock()
		return 0, ErrPipeClosed
	}
	e.nextID++
	id := e.nextID
	e.subscribers = append(e.subscribers, subscriber[T]{id: id, fn: fn})
	e.mu.Unlock()

	e.signal()
	return id, nil
}

// unsubscribe removes a subscriber. A batch already handed to the
// dispatcher may still reach it. Unknown ids are ignored.
func (e *emitter[T]) unsubscribe(id uint64) {
	e.mu.Lock()
	for i, s := range e.subscribers {
		if s.id == id {
			e.subscribers = append(e.subscribers[:i:i], e.subscribers[i+1:]...)
			break
		}
	}
	e.mu.Unlock()

	e.signal()
}

func (e *emitter[T]) tryTake() ([]T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.faulted {
		return nil, false
	}
	return e.queue.Dequeue()
}

// tryTakeIf dequeues the oldest batch only when match accepts it.
func (e *emitter[T]) tryTakeIf(match func([]T) bool) ([]T, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.faulted {
		return nil, false
	}
	head, ok := e.queue.Head()
	if !ok || !match(head) {
		return nil, false
	}
	return e.queue.Dequeue()
}

func (e *emitter[T]) tryTakeAll() [][]T {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.faulted {
		return nil
	}
	var batches [][]T
	for {
		batch, ok := e.queue.Dequeue()
		if !ok {
			return batches
		}
		batches = append(batches, batch)
	}
}

func (e *emitter[T]) size() int {
	return int(e.queue.Size())
}

func (e *emitter[T]) errValue() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

func (e *emitter[T]) wait(ctx context.Context) error {
	select {
	case <-e.done:
		return e.errValue()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *emitter[T]) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *emitter[T]) resolve() {
	e.once.Do(func() { close(e.done) })
}

// dispatch delivers queued batches to subscribers until the emitter is
// closed and drained, or faulted.
func (e *emitter[T]) dispatch() {
	defer close(e.stopped)

	for range e.wake {
		for {
			batch, subscribers, state := e.next()
			if state == dispatchStop {
				return
			}
			if state == dispatchIdle {
				break
			}
			for _, s := range subscribers {
				s.fn(batch)
			}
		}
	}
}

type dispatchState int

const (
	dispatchDeliver dispatchState = iota
	dispatchIdle
	dispatchStop
)

func (e *emitter[T]) next() ([]T, []subscriber[T], dispatchState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.faulted {
		return nil, nil, dispatchStop
	}

	if len(e.subscribers) > 0 {
		if batch, ok := e.queue.Dequeue(); ok {
			subscribers := make([]subscriber[T], len(e.subscribers))
			copy(subscribers, e.subscribers)
			return batch, subscribers, dispatchDeliver
		}
	}

	// Without subscribers buffered batches stay available to pull consumers.
	if e.closed {
		e.terminated = true
		e.resolve()
		return nil, nil, dispatchStop
	}
	return nil, nil, dispatchIdle
}
