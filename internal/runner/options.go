package runner

import (
	"context"
	"fmt"
	"net/netip"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/torosent/flood/internal/metrics"
	"github.com/torosent/flood/internal/rawhttp"
)

// Config is the immutable input of one run.
type Config struct {
	Target            rawhttp.Target
	Concurrency       int           // number of worker goroutines, at least 1
	TotalRequests     int           // units placed in the queue
	Timeout           time.Duration // bound on each request exchange, must be positive
	InterRequestDelay time.Duration // pause after each unit, per worker
	RatePerSecond     int           // global pacing across workers (0 means unlimited)
}

// ConfigError reports a configuration problem that prevents a run from
// starting.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid %s: %s: %v", e.Field, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Validate checks the run configuration.
func (c Config) Validate() error {
	switch {
	case c.Concurrency < 1:
		return &ConfigError{Field: "concurrency", Reason: "must be at least 1"}
	case c.TotalRequests < 0:
		return &ConfigError{Field: "total", Reason: "must not be negative"}
	case c.Target.Host == "":
		return &ConfigError{Field: "host", Reason: "is required"}
	case c.Target.Port < 1 || c.Target.Port > 65535:
		return &ConfigError{Field: "port", Reason: fmt.Sprintf("%d is outside 1-65535", c.Target.Port)}
	case c.Target.Method == "":
		return &ConfigError{Field: "method", Reason: "is required"}
	case c.Timeout <= 0:
		return &ConfigError{Field: "timeout", Reason: "must be positive"}
	case c.InterRequestDelay < 0:
		return &ConfigError{Field: "interval", Reason: "must not be negative"}
	case c.RatePerSecond < 0:
		return &ConfigError{Field: "rate", Reason: "must not be negative"}
	}
	return nil
}

// Executor performs one request. *rawhttp.Executor satisfies it.
type Executor interface {
	Execute(ctx context.Context, t rawhttp.Target, timeout time.Duration) rawhttp.Outcome
}

// Resolver looks up the target host before any worker starts.
type Resolver interface {
	Resolve(ctx context.Context, host string) (netip.Addr, error)
}

// Options carry the collaborators of a run. Every field is optional.
type Options struct {
	Executor       Executor                    // defaults to rawhttp.NewExecutor(nil, nil)
	Resolver       Resolver                    // nil skips the pre-run lookup
	Aggregator     metrics.AggregatorOptions   // sample ring size and observer
	Logger         zerolog.Logger              // defaults to a disabled logger
	LimiterFactory func(rps int) *rate.Limiter // optional injection for tests
	OnState        func(from, to State)        // called on every state transition
}

func (o *Options) normalize() {
	if o.Executor == nil {
		o.Executor = rawhttp.NewExecutor(nil, nil)
	}
	if o.LimiterFactory == nil {
		o.LimiterFactory = func(rps int) *rate.Limiter {
			if rps <= 0 {
				return nil
			}
			// Burst of one keeps the aggregate rate flat across workers.
			return rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
}
