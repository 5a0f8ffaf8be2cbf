package batchpipe

import (
	"sync/atomic"
	"time"
)

// Stats is a point-in-time snapshot of a pipe's counters.
type Stats struct {
	// LastFlush is the pipe clock's time at the most recent flush.
	LastFlush time.Time

	// Submitted is the number of items accepted by Submit.
	Submitted uint64
	// Rejected is the number of Submit calls that returned an error.
	Rejected uint64

	// Batches is the number of batches handed to the emitter.
	Batches uint64
	// Emitted is the number of items across all emitted batches.
	Emitted uint64

	SizeFlushes     uint64
	IdleFlushes     uint64
	CompleteFlushes uint64

	// Discarded is the number of accepted items a fault dropped before they
	// were flushed. Once the pipe has terminated, Emitted+Discarded equals
	// Submitted.
	Discarded uint64
	// Undelivered is the number of emitted items a fault dropped from the
	// buffer before any consumer took them. They are also counted in
	// Emitted, never in Discarded.
	Undelivered uint64
	// StaleTimers counts idle timer firings that found nothing to flush.
	StaleTimers uint64
}

type counters struct {
	lastFlush       atomicTime
	submitted       atomic.Uint64
	rejected        atomic.Uint64
	batches         atomic.Uint64
	emitted         atomic.Uint64
	sizeFlushes     atomic.Uint64
	idleFlushes     atomic.Uint64
	completeFlushes atomic.Uint64
	discarded       atomic.Uint64
	undelivered     atomic.Uint64
	staleTimers     atomic.Uint64
}

func (c *counters) flushed(reason FlushReason, size int, at time.Time) {
	c.batches.Add(1)
	c.emitted.Add(uint64(size))
	switch reason {
	case FlushSize:
		c.sizeFlushes.Add(1)
	case FlushIdle:
		c.idleFlushes.Add(1)
	case FlushComplete:
		c.completeFlushes.Add(1)
	}
	c.lastFlush.Store(at)
}

func (c *counters) snapshot() Stats {
	return Stats{
		LastFlush:       c.lastFlush.Load(),
		Submitted:       c.submitted.Load(),
		Rejected:        c.rejected.Load(),
		Batches:         c.batches.Load(),
		Emitted:         c.emitted.Load(),
		SizeFlushes:     c.sizeFlushes.Load(),
		IdleFlushes:     c.idleFlushes.Load(),
		CompleteFlushes: c.completeFlushes.Load(),
		Discarded:       c.discarded.Load(),
		Undelivered:     c.undelivered.Load(),
		StaleTimers:     c.staleTimers.Load(),
	}
}

// atomicTime stores a time.Time as Unix nanoseconds.
type atomicTime struct {
	nanos atomic.Int64
}

func (at *atomicTime) Store(t time.Time) {
	at.nanos.Store(t.UnixNano())
}

// Load returns the zero time if nothing was stored.
func (at *atomicTime) Load() time.Time {
	nanos := at.nanos.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
