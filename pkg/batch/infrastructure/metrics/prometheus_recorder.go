// Package metrics provides the Prometheus and OpenTelemetry backends of the
// core metrics ports.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// The tool is a short-lived batch process, so nothing scrapes it: the registry
// is written to a node_exporter textfile with WriteTextfile when the run ends.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	requestDurationSeconds *prometheus.HistogramVec
	requestCounter         *prometheus.CounterVec
	unitCounter            *prometheus.CounterVec
	filesWritten           *prometheus.CounterVec
	bytesWritten           *prometheus.CounterVec
	runDurationSeconds     *prometheus.HistogramVec
	operationSeconds       *prometheus.HistogramVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
func NewPrometheusRecorder() *PrometheusRecorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		requestDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nsrdb2epw_request_duration_seconds",
			Help:    "Duration of provider HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind", "status"}),
		requestCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nsrdb2epw_requests_total",
			Help: "Total number of provider HTTP requests by kind and status.",
		}, []string{"kind", "status"}),
		unitCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nsrdb2epw_units_total",
			Help: "Total number of (year, point group) units by outcome.",
		}, []string{"outcome", "error_kind"}),
		filesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nsrdb2epw_files_written_total",
			Help: "Total number of artifacts written by kind.",
		}, []string{"kind"}),
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nsrdb2epw_bytes_written_total",
			Help: "Total bytes written by artifact kind.",
		}, []string{"kind"}),
		runDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nsrdb2epw_run_duration_seconds",
			Help:    "Duration of conversion runs.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}, []string{"status"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nsrdb2epw_operation_duration_seconds",
			Help:    "Duration of named pipeline operations.",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	registry.MustRegister(
		r.requestDurationSeconds,
		r.requestCounter,
		r.unitCounter,
		r.filesWritten,
		r.bytesWritten,
		r.runDurationSeconds,
		r.operationSeconds,
	)
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordRequest records one provider request.
func (r *PrometheusRecorder) RecordRequest(ctx context.Context, kind, status string, duration time.Duration) {
	r.requestCounter.WithLabelValues(kind, status).Inc()
	r.requestDurationSeconds.WithLabelValues(kind, status).Observe(duration.Seconds())
}

// RecordUnit records the outcome of a unit.
func (r *PrometheusRecorder) RecordUnit(ctx context.Context, outcome, errorKind string) {
	r.unitCounter.WithLabelValues(outcome, errorKind).Inc()
}

// RecordFileWritten records an artifact write.
func (r *PrometheusRecorder) RecordFileWritten(ctx context.Context, kind string, bytes int64) {
	r.filesWritten.WithLabelValues(kind).Inc()
	r.bytesWritten.WithLabelValues(kind).Add(float64(bytes))
}

// RecordRun records the end of a run.
func (r *PrometheusRecorder) RecordRun(ctx context.Context, status string, duration time.Duration) {
	r.runDurationSeconds.WithLabelValues(status).Observe(duration.Seconds())
	logger.Debugf("Metrics: run ended with status %s in %.3fs", status, duration.Seconds())
}

// RecordDuration records a named operation; tags are ignored to keep label
// cardinality fixed.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	r.operationSeconds.WithLabelValues(name).Observe(duration.Seconds())
}

// WriteTextfile dumps the registry in the text exposition format. The write
// goes through a temporary file, so a collector never reads a partial file.
func (r *PrometheusRecorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return err
	}
	logger.Infof("Metrics written to %s", path)
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
