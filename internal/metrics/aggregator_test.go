package metrics_test

import (
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/torosent/flood/internal/metrics"
	"github.com/torosent/flood/internal/rawhttp"
)

func success(body string, latency time.Duration) rawhttp.Outcome {
	return rawhttp.Outcome{Response: []byte(body), Size: len(body), Latency: latency}
}

func failure(err error) rawhttp.Outcome {
	return rawhttp.Outcome{Err: err, Latency: time.Millisecond}
}

func TestAggregatorLatencyStats(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})

	for i := 1; i <= 5; i++ {
		a.Record(success("ok", time.Duration(i*10)*time.Millisecond))
	}

	stats := a.Snapshot(0)
	if stats.Total != 5 || stats.Successes != 5 || stats.Failures != 0 {
		t.Fatalf("counts = %d/%d/%d, want 5/5/0", stats.Total, stats.Successes, stats.Failures)
	}
	if stats.MinLatency != 10*time.Millisecond {
		t.Errorf("expected min 10ms, got %s", stats.MinLatency)
	}
	if stats.MaxLatency != 50*time.Millisecond {
		t.Errorf("expected max 50ms, got %s", stats.MaxLatency)
	}
	if stats.MeanLatency != 30*time.Millisecond {
		t.Errorf("expected mean 30ms, got %s", stats.MeanLatency)
	}
	if stats.Bytes != 10 {
		t.Errorf("expected 10 bytes, got %d", stats.Bytes)
	}
}

func TestPercentilesCalculations(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	for i := 1; i <= 100; i++ {
		a.Record(success("x", time.Duration(i)*time.Millisecond))
	}

	stats := a.Snapshot(0)
	if stats.P50Latency < 49*time.Millisecond || stats.P50Latency > 51*time.Millisecond {
		t.Errorf("expected P50 ~50ms, got %s", stats.P50Latency)
	}
	if stats.P95Latency < 94*time.Millisecond || stats.P95Latency > 96*time.Millisecond {
		t.Errorf("expected P95 ~95ms, got %s", stats.P95Latency)
	}
	if stats.P99Latency < 98*time.Millisecond || stats.P99Latency > 100*time.Millisecond {
		t.Errorf("expected P99 ~99ms, got %s", stats.P99Latency)
	}
}

func TestSampleRingKeepsMostRecent(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	for _, body := range []string{"one", "two", "three", "four", "five"} {
		a.Record(success(body, time.Millisecond))
	}
	a.Record(failure(errors.New("boom")))

	got := a.Snapshot(0).SampleStrings()
	want := []string{"three", "four", "five"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("samples = %q, want %q", got, want)
	}
}

func TestSamplesAreTruncatedToPrefix(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	long := strings.Repeat("z", 1000)
	a.Record(success(long, time.Millisecond))

	stats := a.Snapshot(0)
	if len(stats.Samples) != 1 || len(stats.Samples[0]) != metrics.DefaultSampleBytes {
		t.Fatalf("expected one %d-byte sample, got %d samples", metrics.DefaultSampleBytes, len(stats.Samples))
	}
	if stats.Bytes != 1000 {
		t.Errorf("byte count should use the full size, got %d", stats.Bytes)
	}
}

func TestFailureBreakdownByKind(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	a.Record(failure(&rawhttp.ConnectError{Op: "dial", Addr: "h:1", Err: errors.New("refused")}))
	a.Record(failure(&rawhttp.ConnectError{Op: "dial", Addr: "h:1", Err: errors.New("refused")}))
	a.Record(failure(&rawhttp.TransferError{Op: "read", Err: rawhttp.ErrEmptyResponse}))

	stats := a.Snapshot(time.Second)
	if stats.Failures != 3 {
		t.Fatalf("failures = %d, want 3", stats.Failures)
	}
	if stats.Errors["connect dial"] != 2 || stats.Errors["empty response"] != 1 {
		t.Fatalf("unexpected breakdown %v", stats.Errors)
	}
	if stats.FailureRate() != 1 {
		t.Errorf("FailureRate() = %v, want 1", stats.FailureRate())
	}
}

func TestJSONReportSchema(t *testing.T) {
	a := metrics.NewAggregator(metrics.AggregatorOptions{})
	a.Record(success("HTTP/1.1 200 OK", 15*time.Millisecond))
	a.Record(success("HTTP/1.1 200 OK", 25*time.Millisecond))

	data, err := json.Marshal(a.Snapshot(100 * time.Millisecond))
	if err != nil {
		t.Fatalf("failed to marshal stats: %v", err)
	}

	var parsed map[string]interface{}
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	requiredFields := []string{"total", "successes", "failures", "min_latency_ms", "max_latency_ms", "mean_latency_ms", "p50_latency_ms", "p90_latency_ms", "p99_latency_ms", "duration_ms", "requests_per_sec", "samples"}
	for _, field := range requiredFields {
		if _, ok := parsed[field]; !ok {
			t.Errorf("missing field %q in JSON output", field)
		}
	}
	if samples, _ := parsed["samples"].([]interface{}); len(samples) != 2 || samples[0] != "HTTP/1.1 200 OK" {
		t.Errorf("samples = %v", parsed["samples"])
	}
}

type countingObserver struct {
	mu    sync.Mutex
	count int
}

func (c *countingObserver) Observe(rawhttp.Outcome) {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
}

func TestConcurrentRecording(t *testing.T) {
	obs := &countingObserver{}
	a := metrics.NewAggregator(metrics.AggregatorOptions{Observer: obs})

	var wg sync.WaitGroup
	workers := 10
	recordsPerWorker := 100

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			for j := 0; j < recordsPerWorker; j++ {
				if j%4 == 0 {
					a.Record(failure(errors.New("x")))
				} else {
					a.Record(success("ok", time.Millisecond))
				}
			}
		}(i)
	}
	wg.Wait()

	successes, failures := a.Counts()
	if successes+failures != int64(workers*recordsPerWorker) {
		t.Fatalf("expected total %d, got %d", workers*recordsPerWorker, successes+failures)
	}
	if failures != 250 {
		t.Errorf("failures = %d, want 250", failures)
	}
	if obs.count != workers*recordsPerWorker {
		t.Errorf("observer saw %d outcomes", obs.count)
	}
	if n := len(a.Snapshot(0).Samples); n != metrics.DefaultSampleCapacity {
		t.Errorf("sample ring holds %d entries, want %d", n, metrics.DefaultSampleCapacity)
	}
}
