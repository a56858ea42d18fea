package metrics

import (
	"context"
	"time"
)

// NoOpMetricRecorder is an implementation of MetricRecorder that does nothing.
// It is used when metrics are disabled or during testing.
type NoOpMetricRecorder struct{}

// NewNoOpMetricRecorder creates a new instance of NoOpMetricRecorder.
func NewNoOpMetricRecorder() MetricRecorder {
	return &NoOpMetricRecorder{}
}

// RecordRequest does nothing.
func (r *NoOpMetricRecorder) RecordRequest(ctx context.Context, kind, status string, duration time.Duration) {
}

// RecordUnit does nothing.
func (r *NoOpMetricRecorder) RecordUnit(ctx context.Context, outcome, errorKind string) {}

// RecordFileWritten does nothing.
func (r *NoOpMetricRecorder) RecordFileWritten(ctx context.Context, kind string, bytes int64) {}

// RecordRun does nothing.
func (r *NoOpMetricRecorder) RecordRun(ctx context.Context, status string, duration time.Duration) {}

// RecordDuration does nothing.
func (r *NoOpMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
}

var _ MetricRecorder = (*NoOpMetricRecorder)(nil)

// --- NoOpTracer ---

// NoOpTracer is an implementation of Tracer that does nothing.
type NoOpTracer struct{}

// NewNoOpTracer creates a new instance of NoOpTracer.
func NewNoOpTracer() Tracer {
	return &NoOpTracer{}
}

// StartRunSpan returns ctx unchanged.
func (t *NoOpTracer) StartRunSpan(ctx context.Context, runID string) (context.Context, func()) {
	return ctx, func() {}
}

// StartUnitSpan returns ctx unchanged.
func (t *NoOpTracer) StartUnitSpan(ctx context.Context, unitKey string) (context.Context, func()) {
	return ctx, func() {}
}

// RecordError does nothing.
func (t *NoOpTracer) RecordError(ctx context.Context, module string, err error) {}

// RecordEvent does nothing.
func (t *NoOpTracer) RecordEvent(ctx context.Context, name string, attributes map[string]interface{}) {}

var _ Tracer = (*NoOpTracer)(nil)
