package pagination

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestNewCollector_Defaults(t *testing.T) {
	c := NewCollector[int, string]("test", Config{}, zerolog.Nop())
	if c.config.MaxConcurrency != DefaultConcurrency() {
		t.Errorf("MaxConcurrency = %d, want %d", c.config.MaxConcurrency, DefaultConcurrency())
	}
	if d := DefaultConcurrency(); d < 5 || d > maxDefaultWorkers {
		t.Errorf("DefaultConcurrency() = %d, want within [5, %d]", d, maxDefaultWorkers)
	}
}

func TestCollect_AllKeys(t *testing.T) {
	c := NewCollector[int, string]("test_all", Config{MaxConcurrency: 4}, zerolog.Nop())

	keys := make([]int, 50)
	for i := range keys {
		keys[i] = i
	}

	results, err := c.Collect(context.Background(), keys, func(ctx context.Context, k int) (string, error) {
		return fmt.Sprintf("v%d", k), nil
	})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if len(results) != len(keys) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(keys))
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	for i, r := range results {
		if r.Key != i || r.Value != fmt.Sprintf("v%d", i) {
			t.Errorf("results[%d] = %+v", i, r)
		}
	}
}

func TestCollect_FailuresAreSkipped(t *testing.T) {
	c := NewCollector[int, int]("test_skip", Config{MaxConcurrency: 3}, zerolog.Nop())
	before := testutil.ToFloat64(tasksTotal.WithLabelValues("test_skip", "failed"))

	results, err := c.Collect(context.Background(), []int{1, 2, 3, 4, 5, 6}, func(ctx context.Context, k int) (int, error) {
		if k%2 == 0 {
			return 0, errors.New("404")
		}
		return k * 10, nil
	})
	if err != nil {
		t.Fatalf("Collect() error = %v, failures must not fail the call", err)
	}
	if len(results) != 3 {
		t.Errorf("len(results) = %d, want 3", len(results))
	}
	for _, r := range results {
		if r.Key%2 == 0 {
			t.Errorf("failed key %d leaked into results", r.Key)
		}
	}

	after := testutil.ToFloat64(tasksTotal.WithLabelValues("test_skip", "failed"))
	if after-before != 3 {
		t.Errorf("failed counter delta = %v, want 3", after-before)
	}
}

func TestCollect_BoundedConcurrency(t *testing.T) {
	const limit = 3
	c := NewCollector[int, int]("test_bound", Config{MaxConcurrency: limit}, zerolog.Nop())

	var inFlight, peak int32
	_, err := c.Collect(context.Background(), make([]int, 20), func(ctx context.Context, k int) (int, error) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return k, nil
	})
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	if peak > limit {
		t.Errorf("peak concurrency = %d, want <= %d", peak, limit)
	}
}

func TestCollect_Empty(t *testing.T) {
	c := NewCollector[string, int]("test_empty", DefaultConfig(), zerolog.Nop())
	results, err := c.Collect(context.Background(), nil, func(ctx context.Context, k string) (int, error) {
		t.Error("fetch should not be called")
		return 0, nil
	})
	if err != nil || results != nil {
		t.Errorf("Collect(nil) = %v, %v; want nil, nil", results, err)
	}
}

func TestCollect_ContextCancelled(t *testing.T) {
	c := NewCollector[int, int]("test_cancel", Config{MaxConcurrency: 1}, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())

	var calls int32
	_, err := c.Collect(ctx, []int{1, 2, 3, 4}, func(ctx context.Context, k int) (int, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			cancel()
		}
		return k, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Collect() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times after cancellation, want 1", calls)
	}
}
