package metrics

import (
	"encoding/json"
	"time"
)

// Stats represents aggregated metrics for one run.
type Stats struct {
	Total          int64         `json:"total" yaml:"total"`
	Successes      int64         `json:"successes" yaml:"successes"`
	Failures       int64         `json:"failures" yaml:"failures"`
	Bytes          int64         `json:"bytes_received" yaml:"bytes_received"`
	MinLatency     time.Duration `json:"-" yaml:"-"`
	MaxLatency     time.Duration `json:"-" yaml:"-"`
	MeanLatency    time.Duration `json:"-" yaml:"-"`
	P50Latency     time.Duration `json:"-" yaml:"-"`
	P90Latency     time.Duration `json:"-" yaml:"-"`
	P95Latency     time.Duration `json:"-" yaml:"-"`
	P99Latency     time.Duration `json:"-" yaml:"-"`
	Duration       time.Duration `json:"-" yaml:"-"`
	RequestsPerSec float64       `json:"requests_per_sec" yaml:"requests_per_sec"`

	// JSON-friendly millisecond fields.
	MinLatencyMs  float64        `json:"min_latency_ms" yaml:"min_latency_ms"`
	MaxLatencyMs  float64        `json:"max_latency_ms" yaml:"max_latency_ms"`
	MeanLatencyMs float64        `json:"mean_latency_ms" yaml:"mean_latency_ms"`
	P50LatencyMs  float64        `json:"p50_latency_ms" yaml:"p50_latency_ms"`
	P90LatencyMs  float64        `json:"p90_latency_ms" yaml:"p90_latency_ms"`
	P95LatencyMs  float64        `json:"p95_latency_ms" yaml:"p95_latency_ms"`
	P99LatencyMs  float64        `json:"p99_latency_ms" yaml:"p99_latency_ms"`
	DurationMs    float64        `json:"duration_ms" yaml:"duration_ms"`
	Errors        map[string]int `json:"errors,omitempty" yaml:"errors,omitempty"`

	// Samples holds the most recent successful response prefixes, oldest first.
	Samples [][]byte `json:"-" yaml:"-"`
}

// FailureRate returns failures/total, or 0 when nothing was recorded.
func (s Stats) FailureRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Failures) / float64(s.Total)
}

// SampleStrings returns the samples as text.
func (s Stats) SampleStrings() []string {
	if len(s.Samples) == 0 {
		return nil
	}
	out := make([]string, len(s.Samples))
	for i, sample := range s.Samples {
		out[i] = string(sample)
	}
	return out
}

// MarshalJSON adds the samples as strings.
func (s Stats) MarshalJSON() ([]byte, error) {
	type plain Stats
	return json.Marshal(struct {
		plain
		Samples []string `json:"samples,omitempty"`
	}{plain: plain(s), Samples: s.SampleStrings()})
}

func (s *Stats) fillMillis() {
	s.MinLatencyMs = toMillis(s.MinLatency)
	s.MaxLatencyMs = toMillis(s.MaxLatency)
	s.MeanLatencyMs = toMillis(s.MeanLatency)
	s.P50LatencyMs = toMillis(s.P50Latency)
	s.P90LatencyMs = toMillis(s.P90Latency)
	s.P95LatencyMs = toMillis(s.P95Latency)
	s.P99LatencyMs = toMillis(s.P99Latency)
	s.DurationMs = toMillis(s.Duration)
}

func toMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
