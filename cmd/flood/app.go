package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/torosent/flood/internal/config"
	"github.com/torosent/flood/internal/dashboard"
	"github.com/torosent/flood/internal/metrics"
	"github.com/torosent/flood/internal/output"
	"github.com/torosent/flood/internal/rawhttp"
	"github.com/torosent/flood/internal/resolve"
	"github.com/torosent/flood/internal/runner"
	"github.com/torosent/flood/internal/tracing"
)

const (
	progressInterval = time.Second
	shutdownTimeout  = 5 * time.Second
)

// app holds the process-scoped collaborators shared by every run.
type app struct {
	logger     zerolog.Logger
	stdout     io.Writer
	tracer     *tracing.Provider
	tracingCfg tracing.Config
	registry   *prometheus.Registry
	observer   *metrics.PromObserver
	metricsSrv *http.Server
}

func newApp(ctx context.Context, cfg config.Config, logger zerolog.Logger, stdout io.Writer) (*app, error) {
	tracingCfg := cfg.Tracing.Options()
	tp, err := tracing.Init(ctx, tracingCfg)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	registry := prometheus.NewRegistry()
	observer, err := metrics.NewPromObserver(registry)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, err
	}

	a := &app{
		logger:     logger,
		stdout:     stdout,
		tracer:     tp,
		tracingCfg: tracingCfg,
		registry:   registry,
		observer:   observer,
	}
	if cfg.MetricsAddr != "" {
		a.serveMetrics(cfg.MetricsAddr)
	}
	return a, nil
}

func (a *app) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	a.metricsSrv = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		a.logger.Info().Str("addr", addr).Msg("serving prometheus metrics")
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error().Err(err).Msg("metrics server stopped")
		}
	}()
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if a.metricsSrv != nil {
		_ = a.metricsSrv.Shutdown(ctx)
	}
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn().Err(err).Msg("tracing shutdown failed")
	}
}

// newRunner wires the executor chain for one configuration.
func (a *app) newRunner(cfg config.Config, logger zerolog.Logger) (*runner.Runner, error) {
	runCfg, err := cfg.RunConfig()
	if err != nil {
		return nil, err
	}

	var exec runner.Executor = rawhttp.NewExecutor(rawhttp.NewConnector(cfg.TLSConfig()), nil).WithLogger(logger)
	if cfg.LogErrors {
		exec = runner.WithLogging(exec, failureLogger(logger))
	}
	if a.tracingCfg.Enabled() {
		exec = runner.WithTracing(exec, a.tracer.Tracer(), a.tracer.ShouldPropagate())
	}

	return runner.New(runCfg, runner.Options{
		Executor:   exec,
		Resolver:   resolve.New(nil, logger),
		Aggregator: metrics.AggregatorOptions{Observer: a.observer},
		Logger:     logger,
		OnState: func(from, to runner.State) {
			logger.Debug().Stringer("from", from).Stringer("to", to).Msg("run state changed")
		},
	})
}

// execute performs one run with a live display. Interactive displays are
// only used for runs started from the command line.
func (a *app) execute(ctx context.Context, cfg config.Config, interactive bool) (runner.Result, []metrics.DataPoint, error) {
	logger := a.logger
	if cfg.Verbose && logger.GetLevel() > zerolog.DebugLevel {
		logger = logger.Level(zerolog.DebugLevel)
	}

	r, err := a.newRunner(cfg, logger)
	if err != nil {
		return runner.Result{}, nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	history := &metrics.History{}
	var stop func()
	switch {
	case interactive && cfg.Dashboard:
		dash, err := dashboard.New(r.Aggregator(), history, dashboardConfig(cfg), cancel)
		if err != nil {
			return runner.Result{}, nil, err
		}
		dash.Start()
		stop = dash.Stop
	case interactive && !cfg.JSONOutput && !cfg.YAMLOutput:
		progress := output.NewProgressReporter(r.Aggregator(), history, progressInterval, a.stdout)
		progress.Start()
		stop = progress.Stop
	}

	result, err := r.Run(runCtx)
	if stop != nil {
		stop()
	}
	return result, history.Points(), err
}

func dashboardConfig(cfg config.Config) dashboard.TestConfig {
	return dashboard.TestConfig{
		Target:      targetLabel(cfg),
		Concurrency: cfg.Concurrency,
		Total:       cfg.Total,
		Rate:        cfg.Rate,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		Method:      cfg.Method,
		ConfigFile:  cfg.ConfigFile,
	}
}

func targetLabel(cfg config.Config) string {
	scheme := "http"
	if cfg.HTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, cfg.Host, cfg.Port, cfg.Path)
}

func failureLogger(logger zerolog.Logger) runner.FailureLogger {
	return runner.FailureLoggerFunc(func(unit runner.WorkUnit, outcome rawhttp.Outcome) {
		logger.Warn().
			Int64("unit", unit.Seq).
			Str("kind", rawhttp.Kind(outcome.Err)).
			Dur("latency", outcome.Latency).
			Err(outcome.Err).
			Msg("request failed")
	})
}
