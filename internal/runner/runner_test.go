package runner_test

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/torosent/flood/internal/rawhttp"
	"github.com/torosent/flood/internal/runner"
)

var target = rawhttp.Target{Host: "127.0.0.1", Port: 80, Method: "GET", Path: "/"}

// fakeExecutor simulates a request with fixed latency.
type fakeExecutor struct {
	latency time.Duration
	calls   atomic.Int64
	fail    func(n int64) bool
}

func (f *fakeExecutor) Execute(ctx context.Context, _ rawhttp.Target, _ time.Duration) rawhttp.Outcome {
	n := f.calls.Add(1)
	if f.latency > 0 {
		select {
		case <-time.After(f.latency):
		case <-ctx.Done():
			return rawhttp.Outcome{Err: &rawhttp.TransferError{Op: "read", Err: ctx.Err()}}
		}
	}
	if f.fail != nil && f.fail(n) {
		return rawhttp.Outcome{Err: &rawhttp.ConnectError{Op: "dial", Addr: "x", Err: errors.New("refused")}, Latency: f.latency}
	}
	return rawhttp.Outcome{Response: []byte("ok"), Size: 2, Latency: f.latency}
}

func mustNew(t *testing.T, cfg runner.Config, opt runner.Options) *runner.Runner {
	t.Helper()
	r, err := runner.New(cfg, opt)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

func TestRunConservesUnitCount(t *testing.T) {
	tests := []struct {
		name        string
		concurrency int
		total       int
	}{
		{"single worker", 1, 17},
		{"more units than workers", 4, 25},
		{"more workers than units", 20, 3},
		{"many units", 16, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{fail: func(n int64) bool { return n%3 == 0 }}
			r := mustNew(t, runner.Config{Target: target, Concurrency: tt.concurrency, TotalRequests: tt.total, Timeout: time.Second}, runner.Options{Executor: exec})
			res, err := r.Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if res.Successes+res.Failures != int64(tt.total) {
				t.Fatalf("successes+failures = %d, want %d", res.Successes+res.Failures, tt.total)
			}
			if exec.calls.Load() != int64(tt.total) {
				t.Fatalf("executor called %d times, want %d", exec.calls.Load(), tt.total)
			}
			if res.Skipped != 0 {
				t.Errorf("Skipped = %d, want 0", res.Skipped)
			}
			if r.State() != runner.StateCompleted {
				t.Errorf("State() = %s, want completed", r.State())
			}
		})
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	tests := []struct {
		name  string
		cfg   runner.Config
		field string
	}{
		{"zero concurrency", runner.Config{Target: target, Concurrency: 0, TotalRequests: 1, Timeout: time.Second}, "concurrency"},
		{"negative concurrency", runner.Config{Target: target, Concurrency: -3, TotalRequests: 1, Timeout: time.Second}, "concurrency"},
		{"negative total", runner.Config{Target: target, Concurrency: 1, TotalRequests: -1, Timeout: time.Second}, "total"},
		{"missing host", runner.Config{Target: rawhttp.Target{Port: 80, Method: "GET"}, Concurrency: 1, Timeout: time.Second}, "host"},
		{"bad port", runner.Config{Target: rawhttp.Target{Host: "h", Port: 70000, Method: "GET"}, Concurrency: 1, Timeout: time.Second}, "port"},
		{"negative delay", runner.Config{Target: target, Concurrency: 1, InterRequestDelay: -time.Second, Timeout: time.Second}, "interval"},
		{"zero timeout", runner.Config{Target: target, Concurrency: 1, TotalRequests: 1}, "timeout"},
		{"negative timeout", runner.Config{Target: target, Concurrency: 1, TotalRequests: 1, Timeout: -time.Second}, "timeout"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runner.New(tt.cfg, runner.Options{})
			var cfgErr *runner.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestRunZeroRequests(t *testing.T) {
	exec := &fakeExecutor{}
	var transitions []string
	var mu sync.Mutex
	r := mustNew(t, runner.Config{Target: target, Concurrency: 4, TotalRequests: 0, Timeout: time.Second}, runner.Options{
		Executor: exec,
		OnState: func(from, to runner.State) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Successes != 0 || res.Failures != 0 {
		t.Fatalf("counts = %d/%d, want 0/0", res.Successes, res.Failures)
	}
	if res.Elapsed > 100*time.Millisecond {
		t.Errorf("elapsed = %s, want ~0", res.Elapsed)
	}
	if exec.calls.Load() != 0 {
		t.Errorf("executor called %d times", exec.calls.Load())
	}
	want := []string{"configured->running", "running->draining", "draining->completed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Fatalf("transitions = %v, want %v", transitions, want)
		}
	}
}

func TestRunIsSingleUse(t *testing.T) {
	r := mustNew(t, runner.Config{Target: target, Concurrency: 1, TotalRequests: 1, Timeout: time.Second}, runner.Options{Executor: &fakeExecutor{}})
	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if _, err := r.Run(context.Background()); !errors.Is(err, runner.ErrAlreadyRun) {
		t.Fatalf("second Run() error = %v, want ErrAlreadyRun", err)
	}
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (netip.Addr, error) {
	return netip.Addr{}, &net.DNSError{Err: "no such host", Name: "nope.invalid", IsNotFound: true}
}

func TestRunResolutionFailureNeverStarts(t *testing.T) {
	exec := &fakeExecutor{}
	r := mustNew(t, runner.Config{Target: target, Concurrency: 2, TotalRequests: 5, Timeout: time.Second}, runner.Options{
		Executor: exec,
		Resolver: failingResolver{},
	})
	_, err := r.Run(context.Background())
	var cfgErr *runner.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "host" {
		t.Fatalf("expected host ConfigError, got %v", err)
	}
	var dnsErr *net.DNSError
	if !errors.As(err, &dnsErr) {
		t.Error("ConfigError should wrap the resolver error")
	}
	if r.State() != runner.StateConfigured {
		t.Errorf("State() = %s, want configured", r.State())
	}
	if exec.calls.Load() != 0 {
		t.Errorf("executor called %d times", exec.calls.Load())
	}
}

func TestRunInterRequestDelayPacesWorkers(t *testing.T) {
	exec := &fakeExecutor{}
	r := mustNew(t, runner.Config{
		Target:            target,
		Concurrency:       2,
		TotalRequests:     6,
		Timeout:           time.Second,
		InterRequestDelay: 30 * time.Millisecond,
	}, runner.Options{Executor: exec})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Each worker handles three units and sleeps after each.
	if res.Elapsed < 90*time.Millisecond {
		t.Fatalf("elapsed = %s, delay not honored", res.Elapsed)
	}
	if res.Successes != 6 {
		t.Fatalf("successes = %d, want 6", res.Successes)
	}
}

func TestRateLimiterCapsThroughput(t *testing.T) {
	exec := &fakeExecutor{}
	r := mustNew(t, runner.Config{Target: target, Concurrency: 8, TotalRequests: 10, RatePerSecond: 100, Timeout: time.Second}, runner.Options{
		Executor:       exec,
		LimiterFactory: func(rps int) *rate.Limiter { return rate.NewLimiter(rate.Limit(rps), 1) },
	})
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	// Ten units at 100 rps need at least nine 10ms intervals.
	if res.Elapsed < 80*time.Millisecond {
		t.Fatalf("rate limiter not applied: %s for 10 units", res.Elapsed)
	}
	if res.Total() != 10 {
		t.Fatalf("total = %d, want 10", res.Total())
	}
}

func TestRunCancellationReportsSkipped(t *testing.T) {
	exec := &fakeExecutor{latency: 20 * time.Millisecond}
	r := mustNew(t, runner.Config{Target: target, Concurrency: 2, TotalRequests: 1000, Timeout: time.Second}, runner.Options{Executor: exec})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := r.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Skipped == 0 {
		t.Fatal("expected skipped units after cancellation")
	}
	if res.Total()+int64(res.Skipped) != 1000 {
		t.Fatalf("successes+failures+skipped = %d, want 1000", res.Total()+int64(res.Skipped))
	}
	if r.State() != runner.StateCompleted {
		t.Errorf("State() = %s, want completed", r.State())
	}
}

// serveFixed answers every connection with payload and closes it.
func serveFixed(t *testing.T, payload string) (string, int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(conn net.Conn) {
				defer conn.Close()
				reader := bufio.NewReader(conn)
				for {
					line, err := reader.ReadString('\n')
					if err != nil || line == "\r\n" {
						break
					}
				}
				_, _ = conn.Write([]byte(payload))
			}(conn)
		}
	}()
	return "127.0.0.1", ln.Addr().(*net.TCPAddr).Port
}

func TestRunAgainstFixedPayloadServer(t *testing.T) {
	const payload = "0123456789"
	host, port := serveFixed(t, payload)

	r := mustNew(t, runner.Config{
		Target:        rawhttp.Target{Host: host, Port: port, Method: "GET", Path: "/"},
		Concurrency:   5,
		TotalRequests: 50,
		Timeout:       5 * time.Second,
	}, runner.Options{})

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Successes != 50 || res.Failures != 0 {
		t.Fatalf("counts = %d/%d, want 50/0 (errors %v)", res.Successes, res.Failures, res.Stats.Errors)
	}
	if len(res.Samples) == 0 || len(res.Samples) > 3 {
		t.Fatalf("sample buffer holds %d entries, want 1..3", len(res.Samples))
	}
	for i, s := range res.Samples {
		if string(s) != payload {
			t.Errorf("sample %d = %q, want %q", i, s, payload)
		}
	}
	if res.ID == "" {
		t.Error("run ID not assigned")
	}
}

func TestRunAllFailuresIsStillAResult(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	r := mustNew(t, runner.Config{
		Target:        rawhttp.Target{Host: "127.0.0.1", Port: port, Method: "GET", Path: "/"},
		Concurrency:   3,
		TotalRequests: 9,
		Timeout:       time.Second,
	}, runner.Options{})
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Failures != 9 || res.Successes != 0 {
		t.Fatalf("counts = %d/%d, want 0/9", res.Successes, res.Failures)
	}
	if res.Stats.FailureRate() != 1 {
		t.Errorf("FailureRate() = %v, want 1", res.Stats.FailureRate())
	}
}
