// Package threshold evaluates pass/fail assertions such as
// "latency:p99 < 500" against the final statistics of a run.
package threshold

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/torosent/flood/internal/metrics"
)

// Threshold represents a performance assertion that can pass or fail.
type Threshold struct {
	Metric    string  // "latency", "failure", "success" or "requests"
	Aggregate string  // e.g. "p95", "avg", "rate", "count"
	Operator  string  // "<", "<=", ">", ">=", "=="
	Value     float64 // the threshold value to compare against
	Raw       string  // original threshold string for display
}

// Result represents the outcome of evaluating a threshold.
type Result struct {
	Threshold Threshold
	Actual    float64
	Pass      bool
	Message   string
}

type extractor func(metrics.Stats) float64

// catalog maps metric and aggregate names to the stat they read.
// Latencies are in milliseconds, rates are fractions except requests:rate,
// which is requests per second.
var catalog = map[string]map[string]extractor{
	"latency": {
		"p50": func(s metrics.Stats) float64 { return s.P50LatencyMs },
		"p90": func(s metrics.Stats) float64 { return s.P90LatencyMs },
		"p95": func(s metrics.Stats) float64 { return s.P95LatencyMs },
		"p99": func(s metrics.Stats) float64 { return s.P99LatencyMs },
		"avg": func(s metrics.Stats) float64 { return s.MeanLatencyMs },
		"min": func(s metrics.Stats) float64 { return s.MinLatencyMs },
		"max": func(s metrics.Stats) float64 { return s.MaxLatencyMs },
	},
	"failure": {
		"rate":  func(s metrics.Stats) float64 { return s.FailureRate() },
		"count": func(s metrics.Stats) float64 { return float64(s.Failures) },
	},
	"success": {
		"rate": func(s metrics.Stats) float64 {
			if s.Total == 0 {
				return 0
			}
			return float64(s.Successes) / float64(s.Total)
		},
		"count": func(s metrics.Stats) float64 { return float64(s.Successes) },
	},
	"requests": {
		"rate":  func(s metrics.Stats) float64 { return s.RequestsPerSec },
		"count": func(s metrics.Stats) float64 { return float64(s.Total) },
	},
}

var pattern = regexp.MustCompile(`^([a-z_]+):([a-z0-9]+)\s*([<>=!]+)\s*([0-9.]+)$`)

// Evaluator evaluates thresholds against collected metrics.
type Evaluator struct {
	thresholds []Threshold
}

// NewEvaluator creates a new threshold evaluator.
func NewEvaluator(thresholds []Threshold) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate checks all thresholds against the provided stats.
func (e *Evaluator) Evaluate(stats metrics.Stats) []Result {
	if len(e.thresholds) == 0 {
		return nil
	}
	results := make([]Result, 0, len(e.thresholds))
	for _, t := range e.thresholds {
		results = append(results, evaluateOne(t, stats))
	}
	return results
}

// AllPassed reports whether every result passed.
func AllPassed(results []Result) bool {
	for _, r := range results {
		if !r.Pass {
			return false
		}
	}
	return true
}

func evaluateOne(t Threshold, stats metrics.Stats) Result {
	extract, ok := catalog[t.Metric][t.Aggregate]
	if !ok {
		return Result{
			Threshold: t,
			Message:   fmt.Sprintf("error: unsupported threshold %s:%s", t.Metric, t.Aggregate),
		}
	}
	actual := extract(stats)
	pass := compareValues(actual, t.Operator, t.Value)
	status := "✓"
	if !pass {
		status = "✗"
	}
	return Result{
		Threshold: t,
		Actual:    actual,
		Pass:      pass,
		Message:   fmt.Sprintf("%s %s: %.2f %s %.2f", status, t.Raw, actual, t.Operator, t.Value),
	}
}

// Parse parses a threshold string into a Threshold struct.
// Supported formats:
//   - "latency:p95 < 500"    (latency percentile in ms; also p50, p90, p99, avg, min, max)
//   - "failure:rate < 0.01"  (failure fraction)
//   - "failure:count < 10"
//   - "success:rate >= 0.99"
//   - "requests:rate > 100"  (requests per second)
//   - "requests:count == 1000"
func Parse(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold string")
	}

	matches := pattern.FindStringSubmatch(s)
	if matches == nil {
		return Threshold{}, fmt.Errorf("invalid threshold format: %q (expected format: metric:aggregate operator value, e.g., 'latency:p95 < 500')", s)
	}
	metric, aggregate, operator, valueStr := matches[1], matches[2], matches[3], matches[4]

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return Threshold{}, fmt.Errorf("invalid threshold value %q: %v", valueStr, err)
	}
	aggregates, ok := catalog[metric]
	if !ok {
		return Threshold{}, fmt.Errorf("unsupported metric: %q (supported: %s)", metric, strings.Join(keys(catalog), ", "))
	}
	if _, ok := aggregates[aggregate]; !ok {
		return Threshold{}, fmt.Errorf("unsupported aggregate %q for %s (supported: %s)", aggregate, metric, strings.Join(keys(aggregates), ", "))
	}
	if !isValidOperator(operator) {
		return Threshold{}, fmt.Errorf("unsupported operator: %q (supported: <, <=, >, >=, ==)", operator)
	}

	return Threshold{
		Metric:    metric,
		Aggregate: aggregate,
		Operator:  operator,
		Value:     value,
		Raw:       s,
	}, nil
}

// ParseMultiple parses multiple threshold strings.
func ParseMultiple(thresholds []string) ([]Threshold, error) {
	if len(thresholds) == 0 {
		return nil, nil
	}
	result := make([]Threshold, 0, len(thresholds))
	var errs []string
	for i, s := range thresholds {
		t, err := Parse(s)
		if err != nil {
			errs = append(errs, fmt.Sprintf("threshold[%d]: %v", i, err))
			continue
		}
		result = append(result, t)
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("threshold parsing errors: %s", strings.Join(errs, "; "))
	}
	return result, nil
}

func keys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func isValidOperator(operator string) bool {
	switch operator {
	case "<", "<=", ">", ">=", "==":
		return true
	}
	return false
}

func compareValues(actual float64, operator string, expected float64) bool {
	const epsilon = 1e-9
	switch operator {
	case "<":
		return actual < expected
	case "<=":
		return actual <= expected || math.Abs(actual-expected) < epsilon
	case ">":
		return actual > expected
	case ">=":
		return actual >= expected || math.Abs(actual-expected) < epsilon
	case "==":
		return math.Abs(actual-expected) < epsilon
	default:
		return false
	}
}
