package parallel

import (
	"sync/atomic"
	"testing"
)

func TestForSequentialFallback(t *testing.T) {
	cfg := Config{Enabled: false}
	var sum int64
	For(100, func(i int) { sum += int64(i) }, cfg)
	if sum != 4950 {
		t.Errorf("sum = %d, want 4950", sum)
	}
}

func TestForParallelCoversAllIndices(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 4, MinChunkSize: 1}
	n := 1000
	seen := make([]int32, n)
	For(n, func(i int) { atomic.AddInt32(&seen[i], 1) }, cfg)

	for i, c := range seen {
		if c != 1 {
			t.Fatalf("index %d visited %d times, want exactly once", i, c)
		}
	}
}

func TestForSmallNUnderChunkSize(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}
	var count int64
	For(10, func(i int) { count++ }, cfg) // sequential path, no atomics needed
	if count != 10 {
		t.Errorf("count = %d, want 10", count)
	}
}

func TestForZeroItems(t *testing.T) {
	For(0, func(i int) { t.Fatal("should not be called") }, DefaultConfig())
}
