// Package ratelimit gates outgoing SWAPI requests with a client-side token bucket
// so that the parallel page and species fan-outs stay polite towards the public API.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// Prometheus metrics for request gating.
var (
	rateLimitWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "swapi_rate_limit_waits_total",
		Help: "Total number of requests that had to wait for a rate limit token",
	})

	rateLimitWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_rate_limit_wait_seconds",
		Help:    "Time spent waiting for a rate limit token",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)

// waitThreshold is the minimum wait that counts as throttling in metrics and logs.
const waitThreshold = 5 * time.Millisecond

// Config holds limiter configuration.
type Config struct {
	// RequestsPerSecond is the sustained request rate. Zero or negative disables limiting.
	RequestsPerSecond float64

	// Burst is the number of requests allowed to go out at once.
	Burst int
}

// DefaultConfig returns a rate that keeps a full people crawl well under a second
// of throttling while never hammering the API with a burst larger than the worker pool.
func DefaultConfig() Config {
	return Config{
		RequestsPerSecond: 20,
		Burst:             10,
	}
}

// Limiter gates requests. A nil *Limiter never blocks.
type Limiter struct {
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewLimiter creates a limiter. It returns nil when limiting is disabled.
func NewLimiter(cfg Config, logger zerolog.Logger) *Limiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger,
	}
}

// Wait blocks until a request may be sent or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	start := time.Now()
	if err := l.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	if waited := time.Since(start); waited >= waitThreshold {
		rateLimitWaitsTotal.Inc()
		rateLimitWaitSeconds.Observe(waited.Seconds())
		l.logger.Debug().
			Dur("wait_duration", waited).
			Msg("Request throttled by rate limiter")
	}
	return nil
}

// Limit returns the configured sustained rate, or rate.Inf when l is nil.
func (l *Limiter) Limit() rate.Limit {
	if l == nil {
		return rate.Inf
	}
	return l.limiter.Limit()
}
