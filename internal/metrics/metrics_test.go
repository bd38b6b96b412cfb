package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gobreaker "github.com/sony/gobreaker/v2"
)

func TestBreakerStateValue(t *testing.T) {
	tc := []struct {
		state gobreaker.State
		want  float64
	}{
		{state: gobreaker.StateClosed, want: 0},
		{state: gobreaker.StateHalfOpen, want: 1},
		{state: gobreaker.StateOpen, want: 2},
	}

	for _, tt := range tc {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := BreakerStateValue(tt.state); got != tt.want {
				t.Errorf("BreakerStateValue(%v) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(RowsInserted.WithLabelValues("artists"))
	RowsInserted.WithLabelValues("artists").Add(3)

	if got := testutil.ToFloat64(RowsInserted.WithLabelValues("artists")); got != before+3 {
		t.Errorf("expected counter to grow by 3, got %v -> %v", before, got)
	}
}

func TestGatherAndLint(t *testing.T) {
	ImportRuns.WithLabelValues("success").Inc()
	CatalogRequests.WithLabelValues("tracks", "ok").Inc()

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer, "listenlog_import_runs_total", "listenlog_catalog_requests_total")
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint problem in %s: %s", p.Metric, p.Text)
	}
}
