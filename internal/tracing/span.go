package tracing

import (
	"context"
	"net/textproto"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// StartUnitSpan starts a client span for one work unit sent to host:port.
func StartUnitSpan(ctx context.Context, tracer trace.Tracer, method, host string, port int, unit int64) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, method+" "+host,
		trace.WithSpanKind(trace.SpanKindClient),
	)
	span.SetAttributes(
		attribute.String("net.peer.name", host),
		attribute.Int("net.peer.port", port),
		attribute.Int64("flood.unit", unit),
	)
	return ctx, span
}

// EndSpan finishes a span, recording error status if applicable.
func EndSpan(span trace.Span, err error, attrs ...attribute.KeyValue) {
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// InjectHeaders returns headers plus the W3C trace context of ctx. The input
// map is not modified.
func InjectHeaders(ctx context.Context, headers map[string]string) map[string]string {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	if len(carrier) == 0 {
		return headers
	}
	out := make(map[string]string, len(headers)+len(carrier))
	for k, v := range headers {
		out[k] = v
	}
	for k, v := range carrier {
		out[textproto.CanonicalMIMEHeaderKey(k)] = v
	}
	return out
}
