package integration

import (
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/batchpipe"
	testinghelpers "github.com/zoobzio/batchpipe/testing"
)

// TestPipe_NoDoubleEmission races size flushes against real idle timers
// with randomized submission gaps around the idle interval. Every run must
// emit each submitted item exactly once, in submission order.
func TestPipe_NoDoubleEmission(t *testing.T) {
	const runs = 30

	for run := 0; run < runs; run++ {
		seed := uint64(time.Now().UnixNano()) + uint64(run)
		rng := rand.New(rand.NewPCG(seed, seed>>1))

		size := 1 + rng.IntN(6)
		idle := time.Duration(100+rng.IntN(400)) * time.Microsecond
		n := 50 + rng.IntN(150)

		p, err := batchpipe.New[int](size, idle)
		if err != nil {
			t.Fatal(err)
		}

		for i := 0; i < n; i++ {
			if err := p.Submit(i); err != nil {
				t.Fatalf("seed %d: submit %d: %v", seed, i, err)
			}
			// Gaps on both sides of the idle interval.
			if rng.IntN(3) == 0 {
				time.Sleep(time.Duration(rng.IntN(700)) * time.Microsecond)
			}
		}
		_ = p.Complete()

		batches := testinghelpers.Drain(t, p, 5*time.Second)
		testinghelpers.AssertBatchSizes(t, batches, size)
		testinghelpers.AssertSequence(t, testinghelpers.Flatten(batches), n)

		stats := p.Stats()
		if stats.Emitted != uint64(n) || stats.Batches != uint64(len(batches)) {
			t.Fatalf("seed %d: stats %+v do not match %d items in %d batches", seed, stats, n, len(batches))
		}
		if stats.Discarded != 0 {
			t.Fatalf("seed %d: unexpected discards: %+v", seed, stats)
		}
	}
}

// TestPipe_ConcurrentCompleteAndFault checks that racing Complete against
// Fault always resolves the completion exactly once with one of the two
// outcomes, and that nothing is emitted twice.
func TestPipe_ConcurrentCompleteAndFault(t *testing.T) {
	const runs = 50

	faultErr := errorString("racing fault")

	for run := 0; run < runs; run++ {
		p, err := batchpipe.New[int](4, time.Millisecond)
		if err != nil {
			t.Fatal(err)
		}
		for i := 0; i < 10; i++ {
			_ = p.Submit(i)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = p.Complete()
		}()
		go func() {
			defer wg.Done()
			p.Fault(faultErr)
		}()
		wg.Wait()

		batches := testinghelpers.Drain(t, p, 5*time.Second)
		items := testinghelpers.Flatten(batches)

		switch p.Err() {
		case nil:
			testinghelpers.AssertSequence(t, items, 10)
		case faultErr:
			if len(items) != 0 {
				t.Fatalf("run %d: faulted pipe left %d items to pull", run, len(items))
			}
			stats := p.Stats()
			if stats.Emitted+stats.Discarded != stats.Submitted || stats.Undelivered > stats.Emitted {
				t.Fatalf("run %d: unbalanced counters: %+v", run, stats)
			}
		default:
			t.Fatalf("run %d: unexpected error %v", run, p.Err())
		}
	}
}

type errorString string

func (e errorString) Error() string { return string(e) }
