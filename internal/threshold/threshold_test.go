package threshold

import (
	"strings"
	"testing"
	"time"

	"github.com/torosent/flood/internal/metrics"
	"github.com/torosent/flood/internal/rawhttp"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      Threshold
		wantError bool
	}{
		{
			name:  "p95 latency",
			input: "latency:p95 < 500",
			want:  Threshold{Metric: "latency", Aggregate: "p95", Operator: "<", Value: 500, Raw: "latency:p95 < 500"},
		},
		{
			name:  "failure rate",
			input: "failure:rate < 0.01",
			want:  Threshold{Metric: "failure", Aggregate: "rate", Operator: "<", Value: 0.01, Raw: "failure:rate < 0.01"},
		},
		{
			name:  "p99 latency with <= and padding",
			input: "  latency:p99<=1000 ",
			want:  Threshold{Metric: "latency", Aggregate: "p99", Operator: "<=", Value: 1000, Raw: "latency:p99<=1000"},
		},
		{
			name:  "requests rate",
			input: "requests:rate > 100",
			want:  Threshold{Metric: "requests", Aggregate: "rate", Operator: ">", Value: 100, Raw: "requests:rate > 100"},
		},
		{name: "empty string", input: "", wantError: true},
		{name: "missing operator", input: "latency:p95 500", wantError: true},
		{name: "unknown metric", input: "throughput:p95 < 500", wantError: true},
		{name: "aggregate not valid for metric", input: "failure:p95 < 1", wantError: true},
		{name: "unknown operator", input: "latency:p95 != 5", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if (err != nil) != tt.wantError {
				t.Fatalf("Parse() error = %v, wantError %v", err, tt.wantError)
			}
			if !tt.wantError && got != tt.want {
				t.Errorf("Parse() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseMultipleCollectsErrors(t *testing.T) {
	if got, err := ParseMultiple(nil); err != nil || got != nil {
		t.Fatalf("ParseMultiple(nil) = %v, %v", got, err)
	}
	_, err := ParseMultiple([]string{"latency:p95 < 5", "bogus", "failure:p1 < 2"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "threshold[1]") || !strings.Contains(err.Error(), "threshold[2]") {
		t.Errorf("error should name each bad entry: %v", err)
	}
}

func sampleStats() metrics.Stats {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	for i := 1; i <= 100; i++ {
		a.Record(rawhttp.Outcome{Response: []byte("ok"), Size: 2, Latency: time.Duration(i) * time.Millisecond})
	}
	for i := 0; i < 10; i++ {
		a.Record(rawhttp.Outcome{Err: rawhttp.ErrEmptyResponse, Latency: time.Millisecond})
	}
	return a.Snapshot(time.Second)
}

func TestEvaluate(t *testing.T) {
	stats := sampleStats()
	tests := []struct {
		threshold string
		pass      bool
	}{
		{"latency:p50 < 60", true},
		{"latency:p99 < 50", false},
		{"latency:max <= 100", true},
		{"failure:rate < 0.05", false},
		{"failure:count == 10", true},
		{"success:rate > 0.9", true},
		{"requests:count == 110", true},
		{"requests:rate >= 110", true},
	}
	for _, tt := range tests {
		t.Run(tt.threshold, func(t *testing.T) {
			th, err := Parse(tt.threshold)
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			results := NewEvaluator([]Threshold{th}).Evaluate(stats)
			if len(results) != 1 {
				t.Fatalf("got %d results", len(results))
			}
			if results[0].Pass != tt.pass {
				t.Errorf("Pass = %v, want %v (actual %.3f)", results[0].Pass, tt.pass, results[0].Actual)
			}
			if results[0].Message == "" {
				t.Error("message should be set")
			}
		})
	}
}

func TestAllPassed(t *testing.T) {
	if !AllPassed(nil) {
		t.Error("no thresholds should pass")
	}
	if AllPassed([]Result{{Pass: true}, {Pass: false}}) {
		t.Error("a failing result should fail the set")
	}
}

func TestEvaluateEmptyRun(t *testing.T) {
	stats := metrics.NewAggregator(metrics.AggregatorOptions{}).Snapshot(0)
	th, _ := Parse("failure:rate == 0")
	results := NewEvaluator([]Threshold{th}).Evaluate(stats)
	if !results[0].Pass {
		t.Errorf("empty run should report zero failure rate: %+v", results[0])
	}
}

func TestCompareValues(t *testing.T) {
	tests := []struct {
		actual   float64
		op       string
		expected float64
		want     bool
	}{
		{1, "<", 2, true},
		{2, "<", 2, false},
		{2, "<=", 2, true},
		{3, ">", 2, true},
		{2, ">=", 2, true},
		{0.1 + 0.2, "==", 0.3, true},
		{1, "!", 1, false},
	}
	for _, tt := range tests {
		if got := compareValues(tt.actual, tt.op, tt.expected); got != tt.want {
			t.Errorf("compareValues(%v %s %v) = %v, want %v", tt.actual, tt.op, tt.expected, got, tt.want)
		}
	}
}
