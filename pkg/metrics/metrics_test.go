package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveRun(t *testing.T) {
	successBefore := testutil.ToFloat64(RunsTotal.WithLabelValues(OutcomeSuccess))
	failureBefore := testutil.ToFloat64(RunsTotal.WithLabelValues(OutcomeFailure))

	ObserveRun(nil, 2*time.Second, 9, 82)
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues(OutcomeSuccess)) - successBefore; got != 1 {
		t.Errorf("success delta = %v, want 1", got)
	}
	if got := testutil.ToFloat64(CharactersProcessed); got != 82 {
		t.Errorf("CharactersProcessed = %v, want 82", got)
	}
	if got := testutil.ToFloat64(PagesFetched); got != 9 {
		t.Errorf("PagesFetched = %v, want 9", got)
	}
	if testutil.ToFloat64(LastSuccess) <= 0 {
		t.Error("LastSuccess should be set after a successful run")
	}

	ObserveRun(errors.New("boom"), time.Second, 0, 0)
	if got := testutil.ToFloat64(RunsTotal.WithLabelValues(OutcomeFailure)) - failureBefore; got != 1 {
		t.Errorf("failure delta = %v, want 1", got)
	}
}

func TestWriteTextfile(t *testing.T) {
	ObserveRun(nil, time.Second, 1, 10)

	path := filepath.Join(t.TempDir(), "textfile", "swapi_export.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	for _, name := range []string{"swapi_runs_total", "swapi_run_duration_seconds", "swapi_run_characters"} {
		if !strings.Contains(string(data), name) {
			t.Errorf("textfile missing %s", name)
		}
	}
}

func TestWriteTextfile_CustomGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "swapi_test_events_total",
		Help: "Test counter",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	saved := Gatherer
	Gatherer = reg
	t.Cleanup(func() { Gatherer = saved })

	path := filepath.Join(t.TempDir(), "custom.prom")
	if err := WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(data), "swapi_test_events_total 3") {
		t.Errorf("textfile = %q, want the custom counter", data)
	}
	if strings.Contains(string(data), "swapi_runs_total") {
		t.Error("textfile should only hold metrics of the configured gatherer")
	}
}
