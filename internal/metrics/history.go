package metrics

import (
	"sync"
	"time"
)

// DataPoint is one periodic snapshot of a running test.
type DataPoint struct {
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	Total        int64     `json:"total" yaml:"total"`
	Successes    int64     `json:"successes" yaml:"successes"`
	Failures     int64     `json:"failures" yaml:"failures"`
	CurrentRPS   float64   `json:"current_rps" yaml:"current_rps"`
	P50LatencyMs float64   `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P95LatencyMs float64   `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99LatencyMs float64   `json:"p99_latency_ms" yaml:"p99_latency_ms"`
}

// History accumulates data points for time-series charts. CurrentRPS is
// derived from the change in Total since the previous point.
type History struct {
	mu     sync.Mutex
	points []DataPoint
}

// Add appends a point built from stats taken at the given time.
func (h *History) Add(stats Stats, at time.Time) DataPoint {
	h.mu.Lock()
	defer h.mu.Unlock()

	point := DataPoint{
		Timestamp:    at,
		Total:        stats.Total,
		Successes:    stats.Successes,
		Failures:     stats.Failures,
		P50LatencyMs: stats.P50LatencyMs,
		P95LatencyMs: stats.P95LatencyMs,
		P99LatencyMs: stats.P99LatencyMs,
	}
	if n := len(h.points); n > 0 {
		prev := h.points[n-1]
		if dt := at.Sub(prev.Timestamp).Seconds(); dt > 0 {
			point.CurrentRPS = float64(stats.Total-prev.Total) / dt
		}
	} else {
		point.CurrentRPS = stats.RequestsPerSec
	}
	h.points = append(h.points, point)
	return point
}

// Points returns a copy of the recorded points.
func (h *History) Points() []DataPoint {
	if h == nil {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]DataPoint(nil), h.points...)
}
