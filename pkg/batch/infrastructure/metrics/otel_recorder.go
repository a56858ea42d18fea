package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
)

const instrumentationName = "github.com/tigerroll/nsrdb2epw"

// OTelMetricRecorder is an OpenTelemetry implementation of metrics.MetricRecorder.
type OTelMetricRecorder struct {
	provider *sdkmetric.MeterProvider

	requests        metric.Int64Counter
	requestDuration metric.Float64Histogram
	units           metric.Int64Counter
	files           metric.Int64Counter
	bytes           metric.Int64Counter
	runDuration     metric.Float64Histogram
	operation       metric.Float64Histogram
}

// NewOTelMetricRecorder creates instruments on a MeterProvider fed by reader.
// Production code passes a PeriodicReader around an OTLP exporter; tests pass
// a ManualReader.
func NewOTelMetricRecorder(serviceName string, reader sdkmetric.Reader) (*OTelMetricRecorder, error) {
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(reader),
		sdkmetric.WithResource(newResource(serviceName)),
	)
	meter := provider.Meter(instrumentationName)

	r := &OTelMetricRecorder{provider: provider}
	var err error
	if r.requests, err = meter.Int64Counter("nsrdb2epw.requests", metric.WithDescription("Provider HTTP requests.")); err != nil {
		return nil, fmt.Errorf("failed to create requests counter: %w", err)
	}
	if r.requestDuration, err = meter.Float64Histogram("nsrdb2epw.request.duration", metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create request duration histogram: %w", err)
	}
	if r.units, err = meter.Int64Counter("nsrdb2epw.units", metric.WithDescription("Units by outcome.")); err != nil {
		return nil, fmt.Errorf("failed to create units counter: %w", err)
	}
	if r.files, err = meter.Int64Counter("nsrdb2epw.files.written"); err != nil {
		return nil, fmt.Errorf("failed to create files counter: %w", err)
	}
	if r.bytes, err = meter.Int64Counter("nsrdb2epw.bytes.written", metric.WithUnit("By")); err != nil {
		return nil, fmt.Errorf("failed to create bytes counter: %w", err)
	}
	if r.runDuration, err = meter.Float64Histogram("nsrdb2epw.run.duration", metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create run duration histogram: %w", err)
	}
	if r.operation, err = meter.Float64Histogram("nsrdb2epw.operation.duration", metric.WithUnit("s")); err != nil {
		return nil, fmt.Errorf("failed to create operation histogram: %w", err)
	}
	return r, nil
}

// NewOTLPMetricRecorder wires NewOTelMetricRecorder to an OTLP exporter.
func NewOTLPMetricRecorder(ctx context.Context, serviceName string, s OTLPSettings) (*OTelMetricRecorder, error) {
	exp, err := NewMetricExporter(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
	}
	return NewOTelMetricRecorder(serviceName, sdkmetric.NewPeriodicReader(exp))
}

// RecordRequest records one provider request.
func (r *OTelMetricRecorder) RecordRequest(ctx context.Context, kind, status string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	r.requests.Add(ctx, 1, attrs)
	r.requestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUnit records the outcome of a unit.
func (r *OTelMetricRecorder) RecordUnit(ctx context.Context, outcome, errorKind string) {
	r.units.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome), attribute.String("error_kind", errorKind)))
}

// RecordFileWritten records an artifact write.
func (r *OTelMetricRecorder) RecordFileWritten(ctx context.Context, kind string, bytes int64) {
	attrs := metric.WithAttributes(attribute.String("kind", kind))
	r.files.Add(ctx, 1, attrs)
	r.bytes.Add(ctx, bytes, attrs)
}

// RecordRun records the end of a run.
func (r *OTelMetricRecorder) RecordRun(ctx context.Context, status string, duration time.Duration) {
	r.runDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("status", status)))
}

// RecordDuration records a named operation with its tags as attributes.
func (r *OTelMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	attrs := []attribute.KeyValue{attribute.String("operation", name)}
	for k, v := range tags {
		attrs = append(attrs, attribute.String(k, v))
	}
	r.operation.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// Shutdown flushes pending data and stops the provider.
func (r *OTelMetricRecorder) Shutdown(ctx context.Context) error {
	return r.provider.Shutdown(ctx)
}

var _ metrics.MetricRecorder = (*OTelMetricRecorder)(nil)
