package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"github.com/torosent/flood/internal/rawhttp"
)

const (
	// DefaultSampleCapacity is how many recent successful responses are kept.
	DefaultSampleCapacity = 3
	// DefaultSampleBytes is the prefix length kept for each sample.
	DefaultSampleBytes = 200
)

// Observer receives every recorded outcome after the aggregator has counted it.
// Implementations must be safe for concurrent use.
type Observer interface {
	Observe(outcome rawhttp.Outcome)
}

// AggregatorOptions configure an Aggregator.
type AggregatorOptions struct {
	SampleCapacity int      // ring size for response samples (default 3)
	SampleBytes    int      // bytes kept per sample (default 200)
	Observer       Observer // optional, e.g. Prometheus counters
}

func (o *AggregatorOptions) normalize() {
	if o.SampleCapacity <= 0 {
		o.SampleCapacity = DefaultSampleCapacity
	}
	if o.SampleBytes <= 0 {
		o.SampleBytes = DefaultSampleBytes
	}
}

// Aggregator tallies outcomes for a single run in a thread-safe manner.
type Aggregator struct {
	opts AggregatorOptions

	mu             sync.Mutex
	hist           *hdrhistogram.Histogram
	successes      int64
	failures       int64
	bytes          int64
	minLatency     time.Duration
	maxLatency     time.Duration
	sumLatency     time.Duration
	samples        [][]byte
	failuresByKind map[string]int64
}

// NewAggregator returns an empty aggregator.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	opts.normalize()
	// Track latencies from 1µs up to 60s with 3 significant figures.
	h := hdrhistogram.New(1, 60_000_000, 3)
	return &Aggregator{
		opts:           opts,
		hist:           h,
		samples:        make([][]byte, 0, opts.SampleCapacity),
		failuresByKind: make(map[string]int64),
	}
}

// Record counts one outcome. Successful responses are truncated to the
// sample prefix before the lock is taken.
func (a *Aggregator) Record(outcome rawhttp.Outcome) {
	var sample []byte
	var kind string
	if outcome.Success() {
		n := len(outcome.Response)
		if n > a.opts.SampleBytes {
			n = a.opts.SampleBytes
		}
		sample = append([]byte(nil), outcome.Response[:n]...)
	} else {
		kind = rawhttp.Kind(outcome.Err)
	}
	latencyUs := clampLatency(a.hist, outcome.Latency)

	a.mu.Lock()
	if outcome.Latency > 0 {
		_ = a.hist.RecordValue(latencyUs)
	}
	a.sumLatency += outcome.Latency
	if a.minLatency == 0 || outcome.Latency < a.minLatency {
		a.minLatency = outcome.Latency
	}
	if outcome.Latency > a.maxLatency {
		a.maxLatency = outcome.Latency
	}
	if kind == "" {
		a.successes++
		a.bytes += int64(outcome.Size)
		if len(a.samples) == a.opts.SampleCapacity {
			copy(a.samples, a.samples[1:])
			a.samples = a.samples[:len(a.samples)-1]
		}
		a.samples = append(a.samples, sample)
	} else {
		a.failures++
		a.failuresByKind[kind]++
	}
	a.mu.Unlock()

	if a.opts.Observer != nil {
		a.opts.Observer.Observe(outcome)
	}
}

// Counts returns the current success and failure tallies.
func (a *Aggregator) Counts() (successes, failures int64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.successes, a.failures
}

// Snapshot returns a consistent view of everything recorded so far. Values
// are final only once every worker has been joined.
func (a *Aggregator) Snapshot(elapsed time.Duration) Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	total := a.successes + a.failures
	stats := Stats{
		Total:      total,
		Successes:  a.successes,
		Failures:   a.failures,
		Bytes:      a.bytes,
		MinLatency: a.minLatency,
		MaxLatency: a.maxLatency,
	}

	if total > 0 {
		stats.MeanLatency = time.Duration(int64(a.sumLatency) / total)
	}
	if a.hist.TotalCount() > 0 {
		stats.P50Latency = time.Duration(a.hist.ValueAtQuantile(50)) * time.Microsecond
		stats.P90Latency = time.Duration(a.hist.ValueAtQuantile(90)) * time.Microsecond
		stats.P95Latency = time.Duration(a.hist.ValueAtQuantile(95)) * time.Microsecond
		stats.P99Latency = time.Duration(a.hist.ValueAtQuantile(99)) * time.Microsecond
	}

	stats.Duration = elapsed
	if elapsed > 0 && total > 0 {
		stats.RequestsPerSec = float64(total) / elapsed.Seconds()
	}

	if len(a.failuresByKind) > 0 {
		stats.Errors = make(map[string]int, len(a.failuresByKind))
		for k, v := range a.failuresByKind {
			stats.Errors[k] = int(v)
		}
	}

	if len(a.samples) > 0 {
		stats.Samples = make([][]byte, len(a.samples))
		for i, s := range a.samples {
			stats.Samples[i] = append([]byte(nil), s...)
		}
	}

	stats.fillMillis()
	return stats
}

func clampLatency(h *hdrhistogram.Histogram, latency time.Duration) int64 {
	us := latency.Microseconds()
	if us < h.LowestTrackableValue() {
		us = h.LowestTrackableValue()
	}
	if us > h.HighestTrackableValue() {
		us = h.HighestTrackableValue()
	}
	return us
}
