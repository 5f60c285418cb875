package pagination

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for fan-out stages.
var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_collector_tasks_total",
		Help: "Fetch tasks executed by stage and outcome",
	}, []string{"stage", "outcome"})

	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "swapi_collector_stage_duration_seconds",
		Help:    "Wall time of one fan-out call by stage",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	}, []string{"stage"})
)

// maxDefaultWorkers caps the default pool size.
const maxDefaultWorkers = 32

// Config holds collector configuration.
type Config struct {
	// MaxConcurrency is the number of workers per call. Zero picks DefaultConcurrency().
	MaxConcurrency int
}

// DefaultConcurrency mirrors a typical I/O thread pool default: CPUs + 4, capped at 32.
func DefaultConcurrency() int {
	n := runtime.NumCPU() + 4
	if n > maxDefaultWorkers {
		n = maxDefaultWorkers
	}
	return n
}

// DefaultConfig returns the default collector configuration.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: DefaultConcurrency(),
	}
}

// FetchFunc performs one blocking fetch for key.
type FetchFunc[K comparable, T any] func(ctx context.Context, key K) (T, error)

// Result is one successful fetch.
type Result[K comparable, T any] struct {
	Key   K
	Value T
}

// Collector fans fetches out over a bounded worker pool.
type Collector[K comparable, T any] struct {
	stage  string
	config Config
	logger zerolog.Logger
}

// NewCollector creates a collector. stage names the fan-out in logs and metrics.
func NewCollector[K comparable, T any](stage string, config Config, logger zerolog.Logger) *Collector[K, T] {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = DefaultConcurrency()
	}
	return &Collector[K, T]{
		stage:  stage,
		config: config,
		logger: logger.With().Str("stage", stage).Logger(),
	}
}

// Collect fetches every key and returns the successful results in completion order.
// It blocks until all workers are done. The error is non-nil only when ctx ends
// before the pool drains; the results gathered so far are returned with it.
func (c *Collector[K, T]) Collect(ctx context.Context, keys []K, fetch FetchFunc[K, T]) ([]Result[K, T], error) {
	if len(keys) == 0 {
		return nil, nil
	}
	start := time.Now()

	workers := c.config.MaxConcurrency
	if workers > len(keys) {
		workers = len(keys)
	}

	queue := make(chan K, len(keys))
	for _, k := range keys {
		queue <- k
	}
	close(queue)

	var (
		mu      sync.Mutex
		results = make([]Result[K, T], 0, len(keys))
		failed  int
		wg      sync.WaitGroup
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for key := range queue {
				if ctx.Err() != nil {
					return
				}

				value, err := fetch(ctx, key)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					tasksTotal.WithLabelValues(c.stage, "failed").Inc()
					c.logger.Warn().
						Err(err).
						Int("worker_id", workerID).
						Str("key", fmt.Sprint(key)).
						Msg("Fetch failed, skipping")

					mu.Lock()
					failed++
					mu.Unlock()
					continue
				}

				tasksTotal.WithLabelValues(c.stage, "ok").Inc()
				mu.Lock()
				results = append(results, Result[K, T]{Key: key, Value: value})
				mu.Unlock()
			}
		}(i)
	}

	wg.Wait()
	stageDuration.WithLabelValues(c.stage).Observe(time.Since(start).Seconds())

	if err := ctx.Err(); err != nil {
		return results, fmt.Errorf("%s fan-out interrupted: %w", c.stage, err)
	}

	c.logger.Debug().
		Int("tasks", len(keys)).
		Int("succeeded", len(results)).
		Int("failed", failed).
		Int("workers", workers).
		Dur("duration", time.Since(start)).
		Msg("Fan-out complete")

	return results, nil
}
