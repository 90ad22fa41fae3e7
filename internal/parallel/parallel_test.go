package parallel

import (
	"sync"
	"sync/atomic"
	"testing"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestForRange_CoversEveryIndexOnce(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 3, MinChunkSize: 5}
	n := 101
	seen := make([]int32, n)

	ForRange(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&seen[i], 1)
		}
	}, cfg)

	for i, c := range seen {
		if c != 1 {
			t.Errorf("index %d visited %d times", i, c)
		}
	}
}

func TestForRange_SmallInputRunsInline(t *testing.T) {
	cfg := Config{Enabled: true, NumWorkers: 8, MinChunkSize: 64}

	var mu sync.Mutex
	var calls [][2]int
	ForRange(10, func(start, end int) {
		mu.Lock()
		calls = append(calls, [2]int{start, end})
		mu.Unlock()
	}, cfg)

	if len(calls) != 1 || calls[0] != [2]int{0, 10} {
		t.Errorf("expected a single inline chunk, got %v", calls)
	}
}

func TestForRange_Empty(t *testing.T) {
	called := false
	ForRange(0, func(_, _ int) { called = true }, DefaultConfig())
	if called {
		t.Error("f must not be called for n == 0")
	}
}
