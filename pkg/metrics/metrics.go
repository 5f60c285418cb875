// Package metrics provides the Prometheus registry for swapi-export and the
// run-level metrics of a batch run.
// Component metrics are defined in their respective packages (client, cache,
// pagination, ratelimit) to maintain modularity and avoid circular dependencies.
//
// A batch run has no scrape endpoint; WriteTextfile dumps everything gathered
// during the run for the node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gatherer is the source dumped by WriteTextfile. All metrics are registered
// with the default registry via promauto in their respective packages.
var Gatherer = prometheus.DefaultGatherer

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var (
	// RunsTotal counts finished runs by outcome.
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "swapi_runs_total",
		Help: "Finished export runs by outcome",
	}, []string{"outcome"})

	// RunDuration tracks wall time of a run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "swapi_run_duration_seconds",
		Help:    "Wall time of one export run",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120},
	})

	// CharactersProcessed is the number of people records the last run ranked.
	CharactersProcessed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_run_characters",
		Help: "People records ranked by the last run",
	})

	// PagesFetched is the number of people pages the last run fetched.
	PagesFetched = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_run_pages_fetched",
		Help: "People pages fetched by the last run",
	})

	// LastSuccess is the unix time of the last successful run.
	LastSuccess = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "swapi_run_last_success_timestamp_seconds",
		Help: "Unix time of the last successful export run",
	})
)

// ObserveRun records the outcome of one run.
func ObserveRun(err error, duration time.Duration, pages, characters int) {
	RunDuration.Observe(duration.Seconds())
	PagesFetched.Set(float64(pages))
	CharactersProcessed.Set(float64(characters))

	if err != nil {
		RunsTotal.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	RunsTotal.WithLabelValues(OutcomeSuccess).Inc()
	LastSuccess.SetToCurrentTime()
}

// WriteTextfile writes all gathered metrics to path in the text exposition format.
func WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Run Metrics (pkg/metrics):
//   - swapi_runs_total{outcome} (Counter): Finished runs ("success", "failure")
//   - swapi_run_duration_seconds (Histogram): Wall time of one run
//   - swapi_run_characters (Gauge): People records ranked by the last run
//   - swapi_run_pages_fetched (Gauge): People pages fetched by the last run
//   - swapi_run_last_success_timestamp_seconds (Gauge): Last successful run
//
// Rate Limit Metrics (pkg/ratelimit):
//   - swapi_rate_limit_waits_total (Counter): Requests that had to wait for a token
//   - swapi_rate_limit_wait_seconds (Histogram): Time spent waiting for a token
//
// Cache Metrics (pkg/cache):
//   - swapi_page_cache_hits_total{backend} (Counter): Loads that found an entry
//   - swapi_page_cache_misses_total{backend} (Counter): Loads without an entry
//   - swapi_page_cache_size_bytes{backend} (Gauge): Size of the last entry read or written
//   - swapi_page_cache_errors_total{backend, operation} (Counter): Store failures
//
// Request Metrics (pkg/client):
//   - swapi_requests_total{endpoint, status} (Counter): Total requests by endpoint and HTTP status
//   - swapi_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - swapi_errors_total{class} (Counter): Errors by class (client, server, network, unexpected)
//
// Fan-out Metrics (pkg/pagination):
//   - swapi_collector_tasks_total{stage, outcome} (Counter): Fetch tasks by stage ("people", "species")
//   - swapi_collector_stage_duration_seconds{stage} (Histogram): Wall time of one fan-out
//
// Example Prometheus Queries:
//
//   # Skipped pages in the last hour
//   increase(swapi_collector_tasks_total{stage="people",outcome="failed"}[1h])
//
//   # Stale batch job
//   time() - swapi_run_last_success_timestamp_seconds > 86400
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(swapi_request_duration_seconds_bucket[5m]))
