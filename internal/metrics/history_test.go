package metrics_test

import (
	"testing"
	"time"

	"github.com/torosent/flood/internal/metrics"
)

func TestHistoryCurrentRPS(t *testing.T) {
	var h metrics.History
	start := time.Now()

	first := h.Add(metrics.Stats{Total: 10, RequestsPerSec: 10}, start)
	if first.CurrentRPS != 10 {
		t.Errorf("first point RPS = %v, want overall rate 10", first.CurrentRPS)
	}
	second := h.Add(metrics.Stats{Total: 40}, start.Add(2*time.Second))
	if second.CurrentRPS != 15 {
		t.Errorf("second point RPS = %v, want 15", second.CurrentRPS)
	}

	points := h.Points()
	if len(points) != 2 {
		t.Fatalf("got %d points", len(points))
	}
	points[0].Total = 999
	if h.Points()[0].Total != 10 {
		t.Error("Points must return a copy")
	}

	var nilHistory *metrics.History
	if nilHistory.Points() != nil {
		t.Error("nil history should have no points")
	}
}
