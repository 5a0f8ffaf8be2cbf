package testing

import (
	"testing"
	"time"

	"github.com/zoobzio/batchpipe"
)

func TestCollectBatches(t *testing.T) {
	t.Run("collects all batches before channel close", func(t *testing.T) {
		ch := make(chan []int, 2)
		ch <- []int{1, 2}
		ch <- []int{3}
		close(ch)

		batches := CollectBatches(t, ch, 100*time.Millisecond)
		if len(batches) != 2 {
			t.Errorf("expected 2 batches, got %d", len(batches))
		}
	})

	t.Run("returns on timeout", func(t *testing.T) {
		ch := make(chan []int)

		batches := CollectBatches(t, ch, 20*time.Millisecond)
		if len(batches) != 0 {
			t.Errorf("expected 0 batches on timeout, got %d", len(batches))
		}
	})
}

func TestFlatten(t *testing.T) {
	got := Flatten([][]int{{0, 1}, {}, {2}, {3, 4}})
	AssertSequence(t, got, 5)

	if Flatten[int](nil) != nil {
		t.Error("expected nil for no batches")
	}
}

func TestDrain(t *testing.T) {
	p, err := batchpipe.New[int](2, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		_ = p.Submit(i)
	}
	_ = p.Complete()

	batches := Drain(t, p, time.Second)
	AssertBatchSizes(t, batches, 2)
	AssertSequence(t, Flatten(batches), 3)
}

func TestWaitFor(t *testing.T) {
	start := time.Now()
	WaitFor(t, time.Second, "ten milliseconds", func() bool {
		return time.Since(start) >= 10*time.Millisecond
	})
}
