package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/zoobzio/batchpipe"
	"github.com/zoobzio/batchpipe/log"
)

// Event is one filesystem notification as submitted to the pipe.
type Event struct {
	Path string    `json:"path"`
	Op   string    `json:"op"`
	At   time.Time `json:"at"`
}

func newEvent(ev fsnotify.Event, at time.Time) Event {
	return Event{Path: ev.Name, Op: ev.Op.String(), At: at}
}

type batchLine struct {
	Size   int     `json:"size"`
	Events []Event `json:"events"`
}

// printer writes every batch as one JSON line. With once set it keeps only
// the first batch and calls onFirst after writing it.
type printer struct {
	enc     *json.Encoder
	logger  log.Logger
	once    bool
	onFirst func()

	mu      sync.Mutex
	printed int
}

func newPrinter(w io.Writer, logger log.Logger, once bool, onFirst func()) *printer {
	return &printer{
		enc:     json.NewEncoder(w),
		logger:  logger,
		once:    once,
		onFirst: onFirst,
	}
}

func (p *printer) print(batch []Event) {
	p.mu.Lock()
	if p.once && p.printed > 0 {
		p.mu.Unlock()
		return
	}
	p.printed++
	first := p.printed == 1
	err := p.enc.Encode(batchLine{Size: len(batch), Events: batch})
	p.mu.Unlock()

	if err != nil {
		p.logger.Error("write batch", log.Err(err))
	}
	if first && p.once && p.onFirst != nil {
		p.onFirst()
	}
}

// Printed returns the number of batches written.
func (p *printer) Printed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.printed
}

// pump forwards watcher notifications into the pipe until ctx is done or
// the watcher closes, then completes the pipe. A watcher error faults it.
func pump(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, pipe *batchpipe.Pipe[Event], clock batchpipe.Clock, logger log.Logger) {
	for {
		select {
		case <-ctx.Done():
			_ = pipe.Complete()
			return

		case ev, ok := <-events:
			if !ok {
				_ = pipe.Complete()
				return
			}
			if err := pipe.Submit(newEvent(ev, clock.Now())); err != nil {
				logger.Warn("event dropped",
					log.String("path", ev.Name),
					log.Err(err),
				)
			}

		case err, ok := <-errs:
			if !ok {
				_ = pipe.Complete()
				return
			}
			pipe.Fault(fmt.Errorf("watch: %w", err))
			return
		}
	}
}
