package runner

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/torosent/flood/internal/rawhttp"
	"github.com/torosent/flood/internal/tracing"
)

// FailureLogger logs failed requests.
type FailureLogger interface {
	LogFailure(unit WorkUnit, outcome rawhttp.Outcome)
}

// FailureLoggerFunc adapts a function to FailureLogger.
type FailureLoggerFunc func(unit WorkUnit, outcome rawhttp.Outcome)

func (f FailureLoggerFunc) LogFailure(unit WorkUnit, outcome rawhttp.Outcome) { f(unit, outcome) }

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, t rawhttp.Target, timeout time.Duration) rawhttp.Outcome

func (f ExecutorFunc) Execute(ctx context.Context, t rawhttp.Target, timeout time.Duration) rawhttp.Outcome {
	return f(ctx, t, timeout)
}

// WithLogging wraps an Executor to log failures.
func WithLogging(exec Executor, logger FailureLogger) Executor {
	if logger == nil {
		return exec
	}
	return ExecutorFunc(func(ctx context.Context, t rawhttp.Target, timeout time.Duration) rawhttp.Outcome {
		outcome := exec.Execute(ctx, t, timeout)
		if !outcome.Success() {
			unit, _ := UnitFromContext(ctx)
			logger.LogFailure(unit, outcome)
		}
		return outcome
	})
}

// WithTracing wraps an Executor so every unit gets a client span. When
// propagate is set the span's trace context is sent as request headers.
func WithTracing(exec Executor, tracer trace.Tracer, propagate bool) Executor {
	if tracer == nil {
		return exec
	}
	return ExecutorFunc(func(ctx context.Context, t rawhttp.Target, timeout time.Duration) rawhttp.Outcome {
		unit, _ := UnitFromContext(ctx)
		ctx, span := tracing.StartUnitSpan(ctx, tracer, t.Method, t.Host, t.Port, unit.Seq)
		if propagate {
			t.Headers = tracing.InjectHeaders(ctx, t.Headers)
		}
		outcome := exec.Execute(ctx, t, timeout)
		tracing.EndSpan(span, outcome.Err, attribute.Int("flood.bytes", outcome.Size))
		return outcome
	})
}
