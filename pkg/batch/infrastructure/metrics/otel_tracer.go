package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// OpenTelemetryTracer is an implementation of metrics.Tracer using OpenTelemetry.
type OpenTelemetryTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// NewOpenTelemetryTracer creates a tracer whose spans go to processor.
func NewOpenTelemetryTracer(serviceName string, processor sdktrace.SpanProcessor) *OpenTelemetryTracer {
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(processor),
		sdktrace.WithResource(newResource(serviceName)),
	)
	return &OpenTelemetryTracer{provider: provider, tracer: provider.Tracer(instrumentationName)}
}

// NewOTLPTracer wires NewOpenTelemetryTracer to a batching OTLP exporter.
func NewOTLPTracer(ctx context.Context, serviceName string, s OTLPSettings) (*OpenTelemetryTracer, error) {
	exp, err := NewTraceExporter(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	return NewOpenTelemetryTracer(serviceName, sdktrace.NewBatchSpanProcessor(exp)), nil
}

// StartRunSpan starts the root span of a run.
func (t *OpenTelemetryTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "conversion.run", trace.WithAttributes(attribute.String("run.id", runID)))
	return ctx, func() { span.End() }
}

// StartUnitSpan starts a span for one unit.
func (t *OpenTelemetryTracer) StartUnitSpan(ctx context.Context, unitKey string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "conversion.unit", trace.WithAttributes(attribute.String("unit.key", unitKey)))
	return ctx, func() { span.End() }
}

// RecordError records err on the current span and marks it failed.
func (t *OpenTelemetryTracer) RecordError(ctx context.Context, module string, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err, trace.WithAttributes(
		attribute.String("module", module),
		attribute.String("error.kind", exception.KindOf(err).String()),
	))
	span.SetStatus(codes.Error, exception.ExtractErrorMessage(err))
}

// RecordEvent adds an event to the current span. Attribute values are
// stringified unless they are one of the common scalar types.
func (t *OpenTelemetryTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {
	attrs := make([]attribute.KeyValue, 0, len(attributes))
	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			attrs = append(attrs, attribute.String(k, val))
		case int:
			attrs = append(attrs, attribute.Int(k, val))
		case int64:
			attrs = append(attrs, attribute.Int64(k, val))
		case float64:
			attrs = append(attrs, attribute.Float64(k, val))
		case bool:
			attrs = append(attrs, attribute.Bool(k, val))
		default:
			attrs = append(attrs, attribute.String(k, fmt.Sprint(val)))
		}
	}
	trace.SpanFromContext(ctx).AddEvent(name, trace.WithAttributes(attrs...))
}

// Shutdown flushes and stops the provider.
func (t *OpenTelemetryTracer) Shutdown(ctx context.Context) error {
	logger.Debugf("Tracer: shutting down OpenTelemetry provider.")
	return t.provider.Shutdown(ctx)
}

var _ metrics.Tracer = (*OpenTelemetryTracer)(nil)
