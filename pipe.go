package batchpipe

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oleiade/lane/v2"

	"github.com/zoobzio/batchpipe/log"
)

type eventKind int

const (
	eventItem eventKind = iota
	eventComplete
)

type event[T any] struct {
	item T
	kind eventKind
}

// Pipe groups submitted items into batches. A batch is released when it
// reaches BatchSize items, or when IdleInterval passes without a new item.
// Complete releases the remaining partial batch and terminates the pipe;
// Fault terminates it immediately and discards whatever is still pending.
//
// All methods are safe for concurrent use.
//
//nolint:govet // fieldalignment: struct layout optimized for readability
type Pipe[T any] struct {
	config       Config
	name         string
	clock        Clock
	logger       log.Logger
	mailboxLimit int

	mu      sync.Mutex
	closed  bool
	faulted bool
	mailbox *lane.Queue[event[T]]
	wake    chan struct{}
	halt    chan struct{}
	exited  chan struct{}

	timer   *idleTimer
	emitter *emitter[T]
	stats   counters
	pending atomic.Int64
}

// New creates a pipe that flushes every batchSize items, or idleInterval
// after the last submitted item, whichever comes first.
//
// When to use:
//   - Grouping events for bulk downstream writes
//   - Coalescing bursty producers into fewer, larger requests
//   - Bounding the latency of a partial batch during quiet periods
//
// Example:
//
//	// Flush every 500 rows, or one second after the last row
//	pipe, err := batchpipe.New[Row](500, time.Second)
//	if err != nil {
//		return err
//	}
//	pipe.Subscribe(func(rows []Row) { db.BulkInsert(rows) })
//
// Returns a *ConfigError wrapping ErrInvalidConfig when batchSize or
// idleInterval is not positive.
func New[T any](batchSize int, idleInterval time.Duration, opts ...Option) (*Pipe[T], error) {
	return NewFromConfig[T](Config{BatchSize: batchSize, IdleInterval: idleInterval}, opts...)
}

// NewFromConfig creates a pipe from a Config. See New.
func NewFromConfig[T any](config Config, opts ...Option) (*Pipe[T], error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	p := newPipe[T](config, o)
	go p.run()

	return p, nil
}

func newPipe[T any](config Config, o options) *Pipe[T] {
	return &Pipe[T]{
		config:       config,
		name:         o.name,
		clock:        o.clock,
		logger:       o.logger,
		mailboxLimit: o.mailboxLimit,
		mailbox:      lane.NewQueue[event[T]](),
		wake:         make(chan struct{}, 1),
		halt:         make(chan struct{}),
		exited:       make(chan struct{}),
		timer:        newIdleTimer(o.clock, config.IdleInterval),
		emitter:      newEmitter[T](),
	}
}

// Submit queues an item for the pending batch. It never blocks.
// It returns ErrPipeClosed after Complete or Fault, and ErrBackpressure
// when a mailbox limit is configured and reached.
func (p *Pipe[T]) Submit(item T) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.stats.rejected.Add(1)
		return ErrPipeClosed
	}
	if p.mailboxLimit > 0 && int(p.mailbox.Size()) >= p.mailboxLimit {
		p.mu.Unlock()
		p.stats.rejected.Add(1)
		return ErrBackpressure
	}
	p.mailbox.Enqueue(event[T]{kind: eventItem, item: item})
	p.stats.submitted.Add(1)
	p.mu.Unlock()

	p.signal()
	return nil
}

// Complete stops accepting items. Items already submitted are still
// batched, the remaining partial batch is flushed, and then the pipe
// terminates. Only the first call has an effect; later calls return
// ErrPipeClosed.
func (p *Pipe[T]) Complete() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPipeClosed
	}
	p.closed = true
	p.mailbox.Enqueue(event[T]{kind: eventComplete})
	p.mu.Unlock()

	p.signal()
	return nil
}

// Fault terminates the pipe abruptly. The pending batch and every batch not
// yet handed to a consumer are discarded, and the completion resolves with
// err (ErrFaulted if err is nil). Fault returns after the intake loop has
// stopped, so Stats is settled by the time Done is closed. Fault has no
// effect once the pipe has terminated.
func (p *Pipe[T]) Fault(err error) {
	if err == nil {
		err = ErrFaulted
	}

	p.mu.Lock()
	if p.faulted {
		p.mu.Unlock()
		return
	}
	p.faulted = true
	p.closed = true
	p.mu.Unlock()

	undelivered, ok := p.emitter.fault(err)
	if !ok {
		return
	}
	p.stats.undelivered.Add(uint64(undelivered))
	close(p.halt)

	<-p.exited
	p.emitter.resolve()

	p.logger.Warn("pipe faulted",
		log.String("pipe", p.name),
		log.Err(err),
	)
}

// Subscribe registers fn to receive every batch the pipe emits, in flush
// order. All subscribers are called in registration order, on a single
// dispatcher goroutine, and a batch delivered to subscribers is no longer
// available to TryTake. Batches buffered before the first subscription are
// delivered to it.
//
// The returned func removes the subscription and is safe to call more than
// once. Once the last subscriber is gone, batches buffer for pull consumers
// again. Subscribe returns ErrNilSubscriber for a nil fn and ErrPipeClosed
// once the pipe has terminated; the returned func is then a no-op.
func (p *Pipe[T]) Subscribe(fn func([]T)) (func(), error) {
	if fn == nil {
		return func() {}, ErrNilSubscriber
	}
	id, err := p.emitter.subscribe(fn)
	if err != nil {
		return func() {}, err
	}
	var once sync.Once
	return func() {
		once.Do(func() { p.emitter.unsubscribe(id) })
	}, nil
}

// TryTake removes and returns the oldest buffered batch without blocking.
func (p *Pipe[T]) TryTake() ([]T, bool) {
	return p.emitter.tryTake()
}

// TryTakeIf removes and returns the oldest buffered batch only when match
// reports true for it. A nil match behaves like TryTake.
func (p *Pipe[T]) TryTakeIf(match func([]T) bool) ([]T, bool) {
	if match == nil {
		return p.emitter.tryTake()
	}
	return p.emitter.tryTakeIf(match)
}

// TryTakeAll removes and returns every buffered batch, oldest first.
func (p *Pipe[T]) TryTakeAll() [][]T {
	return p.emitter.tryTakeAll()
}

// Len returns the number of batches buffered for consumers.
func (p *Pipe[T]) Len() int {
	return p.emitter.size()
}

// Done returns a channel that is closed when the pipe has terminated.
func (p *Pipe[T]) Done() <-chan struct{} {
	return p.emitter.done
}

// Err returns the fault error after termination, or nil.
func (p *Pipe[T]) Err() error {
	return p.emitter.errValue()
}

// Wait blocks until the pipe terminates or ctx is done.
func (p *Pipe[T]) Wait(ctx context.Context) error {
	return p.emitter.wait(ctx)
}

// Name returns the pipe name.
func (p *Pipe[T]) Name() string {
	return p.name
}

// Stats returns a snapshot of the pipe counters.
func (p *Pipe[T]) Stats() Stats {
	return p.stats.snapshot()
}

// Pending returns the size of the open batch as last recorded by the
// intake loop.
func (p *Pipe[T]) Pending() int {
	return int(p.pending.Load())
}

func (p *Pipe[T]) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// run is the intake loop. It is the only goroutine that touches the
// pending batch and the idle timer.
func (p *Pipe[T]) run() {
	defer close(p.exited)

	batch := p.newBatch()

	for {
		select {
		case <-p.halt:
			p.abort(batch)
			return

		case <-p.wake:
			var done bool
			batch, done = p.drain(batch)
			if done {
				return
			}

		case tick := <-p.timer.C():
			batch = p.onIdle(batch, tick)
		}
	}
}

// drain processes every queued event. It reports true once the pipe has
// finished, either by completion or by fault.
func (p *Pipe[T]) drain(batch []T) ([]T, bool) {
	for {
		select {
		case <-p.halt:
			p.abort(batch)
			return nil, true
		default:
		}

		ev, ok := p.mailbox.Dequeue()
		if !ok {
			return batch, false
		}

		switch ev.kind {
		case eventItem:
			batch = p.accept(batch, ev.item)
		case eventComplete:
			p.finish(batch)
			return nil, true
		}
	}
}

func (p *Pipe[T]) accept(batch []T, item T) []T {
	batch = append(batch, item)

	if len(batch) >= p.config.BatchSize {
		p.timer.Disarm()
		p.flush(batch, FlushSize)
		batch = p.newBatch()
	} else {
		p.timer.Arm()
	}

	p.pending.Store(int64(len(batch)))
	return batch
}

func (p *Pipe[T]) onIdle(batch []T, tick time.Time) []T {
	if len(batch) == 0 || !p.timer.Expired(tick) {
		p.stats.staleTimers.Add(1)
		p.logger.Debug("stale idle timer ignored",
			log.String("pipe", p.name),
			log.Int("pending", len(batch)),
		)
		return batch
	}

	p.flush(batch, FlushIdle)
	p.pending.Store(0)
	return p.newBatch()
}

func (p *Pipe[T]) finish(batch []T) {
	p.timer.Disarm()

	// A full batch was already flushed by accept, so only a partial tail
	// can remain here.
	if len(batch) > 0 && len(batch) < p.config.BatchSize {
		p.flush(batch, FlushComplete)
	}
	p.pending.Store(0)
	p.emitter.close()

	p.logger.Debug("pipe completed", log.String("pipe", p.name))
}

func (p *Pipe[T]) abort(batch []T) {
	p.timer.Disarm()

	discarded := len(batch)
	for {
		ev, ok := p.mailbox.Dequeue()
		if !ok {
			break
		}
		if ev.kind == eventItem {
			discarded++
		}
	}
	p.stats.discarded.Add(uint64(discarded))
	p.pending.Store(0)
}

func (p *Pipe[T]) flush(batch []T, reason FlushReason) {
	if !p.emitter.emit(batch) {
		p.stats.discarded.Add(uint64(len(batch)))
		return
	}
	p.stats.flushed(reason, len(batch), p.clock.Now())

	p.logger.Debug("batch flushed",
		log.String("pipe", p.name),
		log.String("reason", reason.String()),
		log.Int("size", len(batch)),
	)
}

func (p *Pipe[T]) newBatch() []T {
	return make([]T, 0, p.config.BatchSize)
}
