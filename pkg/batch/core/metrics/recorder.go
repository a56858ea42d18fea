// Package metrics defines the observability ports of the conversion pipeline:
// a MetricRecorder for counters and durations and a Tracer for spans.
// Backends live in pkg/batch/infrastructure/metrics.
package metrics

import (
	"context"
	"time"
)

// Request kinds passed to RecordRequest.
const (
	RequestDiscovery = "discovery"
	RequestCSV       = "csv"
	RequestJob       = "job"
)

// Unit outcomes passed to RecordUnit.
const (
	UnitConverted = "converted"
	UnitSubmitted = "submitted"
	UnitFailed    = "failed"
)

// MetricRecorder records metrics of a conversion run. Implementations must be
// safe for concurrent use: units are processed in parallel.
type MetricRecorder interface {
	// RecordRequest records one provider HTTP request.
	//
	// kind: RequestDiscovery, RequestCSV or RequestJob.
	// status: "ok" or the error kind name (e.g., "UpstreamProtocolError").
	RecordRequest(ctx context.Context, kind, status string, duration time.Duration)

	// RecordUnit records the final outcome of one (year, point group) unit.
	// errorKind is empty unless outcome is UnitFailed.
	RecordUnit(ctx context.Context, outcome, errorKind string)

	// RecordFileWritten records an artifact persisted to storage.
	// kind is "csv", "epw" or "parquet".
	RecordFileWritten(ctx context.Context, kind string, bytes int64)

	// RecordRun records the end of a whole run.
	RecordRun(ctx context.Context, status string, duration time.Duration)

	// RecordDuration records the execution time of a named operation
	// (e.g., "transform", "emit") with additional tags.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)
}
