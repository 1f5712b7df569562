package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/time/rate"

	"github.com/torosent/flood/internal/metrics"
)

// ErrAlreadyRun is returned when Run is called twice on the same Runner.
var ErrAlreadyRun = errors.New("runner: run already started")

// Result is the terminal summary of one run.
type Result struct {
	ID        string
	Successes int64
	Failures  int64
	Skipped   int // units never handed out because the run was canceled
	Elapsed   time.Duration
	Samples   [][]byte // most recent successful response prefixes, oldest first
	Stats     metrics.Stats
}

// Total returns the number of units that produced an outcome.
func (r Result) Total() int64 { return r.Successes + r.Failures }

// Runner drives one load run: a pre-filled queue drained by a fixed pool of
// workers. A Runner is single use.
type Runner struct {
	cfg     Config
	opt     Options
	queue   *WorkQueue
	agg     *metrics.Aggregator
	state   stateMachine
	started atomic.Bool
}

// New validates cfg, fills the work queue and returns a runner in the
// Configured state.
func New(cfg Config, opt Options) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opt.normalize()
	r := &Runner{
		cfg:   cfg,
		opt:   opt,
		queue: NewWorkQueue(cfg.TotalRequests),
		agg:   metrics.NewAggregator(opt.Aggregator),
	}
	r.state.notify = opt.OnState
	return r, nil
}

// State returns the current lifecycle state.
func (r *Runner) State() State { return r.state.load() }

// Aggregator exposes the live tallies, e.g. for progress displays.
func (r *Runner) Aggregator() *metrics.Aggregator { return r.agg }

// Config returns the run configuration.
func (r *Runner) Config() Config { return r.cfg }

// Run resolves the target, starts the workers and blocks until every
// dequeued unit has been recorded. Per-request failures never surface as an
// error; only configuration problems do, and then no worker is started.
//
// Canceling ctx stops workers from taking new units. Requests already in
// flight are aborted and recorded as failures; units still queued are
// reported in Result.Skipped.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	if !r.started.CompareAndSwap(false, true) {
		return Result{}, ErrAlreadyRun
	}
	log := r.opt.Logger
	host := r.cfg.Target.Host

	if r.opt.Resolver != nil {
		addr, err := r.opt.Resolver.Resolve(ctx, host)
		if err != nil {
			return Result{}, &ConfigError{Field: "host", Reason: "cannot resolve " + host, Err: err}
		}
		log.Debug().Str("host", host).Stringer("addr", addr).Msg("target resolved")
	}

	limiter := r.opt.LimiterFactory(r.cfg.RatePerSecond)
	id := ulid.Make().String()

	log.Info().
		Str("run_id", id).
		Str("target", r.cfg.Target.Method+" "+r.cfg.Target.Path).
		Str("host", host).
		Int("port", r.cfg.Target.Port).
		Bool("tls", r.cfg.Target.UseTLS).
		Int("concurrency", r.cfg.Concurrency).
		Int("total", r.cfg.TotalRequests).
		Msg("starting load run")

	start := time.Now()
	r.state.advance(StateConfigured, StateRunning)

	var wg sync.WaitGroup
	wg.Add(r.cfg.Concurrency)
	for i := 0; i < r.cfg.Concurrency; i++ {
		go func() {
			defer wg.Done()
			r.work(ctx, limiter)
		}()
	}
	wg.Wait()

	skipped := r.queue.Abandon()
	r.state.advance(StateRunning, StateDraining)
	r.queue.AwaitDrained()

	elapsed := time.Since(start)
	stats := r.agg.Snapshot(elapsed)
	r.state.advance(StateDraining, StateCompleted)

	if skipped > 0 {
		log.Warn().Str("run_id", id).Int("skipped", skipped).Msg("run canceled before the queue drained")
	}
	log.Info().
		Str("run_id", id).
		Int64("successes", stats.Successes).
		Int64("failures", stats.Failures).
		Dur("elapsed", elapsed).
		Msg("load run completed")

	return Result{
		ID:        id,
		Successes: stats.Successes,
		Failures:  stats.Failures,
		Skipped:   skipped,
		Elapsed:   elapsed,
		Samples:   stats.Samples,
		Stats:     stats,
	}, nil
}

// work is one worker: dequeue, execute, record, pause, until the queue is
// empty or ctx is done.
func (r *Runner) work(ctx context.Context, limiter *rate.Limiter) {
	for {
		if ctx.Err() != nil {
			return
		}
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
		}
		unit, ok := r.queue.TryDequeue()
		if !ok {
			r.state.advance(StateRunning, StateDraining)
			return
		}

		outcome := r.opt.Executor.Execute(withUnit(ctx, unit), r.cfg.Target, r.cfg.Timeout)
		r.agg.Record(outcome)
		r.queue.Done()

		if d := r.cfg.InterRequestDelay; d > 0 {
			timer := time.NewTimer(d)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}
}

type unitKey struct{}

func withUnit(ctx context.Context, unit WorkUnit) context.Context {
	return context.WithValue(ctx, unitKey{}, unit)
}

// UnitFromContext returns the work unit an Execute call is serving.
func UnitFromContext(ctx context.Context) (WorkUnit, bool) {
	unit, ok := ctx.Value(unitKey{}).(WorkUnit)
	return unit, ok
}
