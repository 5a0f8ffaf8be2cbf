package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/zoobzio/batchpipe"
)

// BenchmarkPipe_SubmitSizeFlush measures Submit throughput when every batch
// is released by the size trigger.
func BenchmarkPipe_SubmitSizeFlush(b *testing.B) {
	p, err := batchpipe.New[int](100, time.Hour)
	if err != nil {
		b.Fatal(err)
	}
	_, _ = p.Subscribe(func([]int) {})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = p.Submit(i)
	}
	_ = p.Complete()
	_ = p.Wait(context.Background())
}

// BenchmarkPipe_Process measures the channel adapter end to end.
func BenchmarkPipe_Process(b *testing.B) {
	ctx := context.Background()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		p, err := batchpipe.New[int](64, time.Hour)
		if err != nil {
			b.Fatal(err)
		}
		in := make(chan int, 1000)
		for j := 0; j < 1000; j++ {
			in <- j
		}
		close(in)
		b.StartTimer()

		for range p.Process(ctx, in) { //nolint:revive // intentionally draining channel
		}
	}
}
