package metrics

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
)

// Metric backends accepted by Settings.Backend.
const (
	BackendNone       = "none"
	BackendPrometheus = "prometheus"
	BackendOTel       = "otel"
)

// Settings selects and configures the observability backends.
type Settings struct {
	ServiceName string
	// Backend is BackendNone, BackendPrometheus or BackendOTel.
	Backend string
	// TextfilePath receives the Prometheus registry when the application stops.
	TextfilePath   string
	MetricsOTLP    OTLPSettings
	TracingEnabled bool
	TracingOTLP    OTLPSettings
}

// NewMetricRecorder builds the recorder named by s.Backend and registers its
// shutdown with the Fx lifecycle.
func NewMetricRecorder(lc fx.Lifecycle, s Settings) (metrics.MetricRecorder, error) {
	switch s.Backend {
	case "", BackendNone:
		return metrics.NewNoOpMetricRecorder(), nil
	case BackendPrometheus:
		r := NewPrometheusRecorder()
		if s.TextfilePath != "" {
			lc.Append(fx.Hook{OnStop: func(ctx context.Context) error {
				return r.WriteTextfile(s.TextfilePath)
			}})
		}
		return r, nil
	case BackendOTel:
		r, err := NewOTLPMetricRecorder(context.Background(), s.ServiceName, s.MetricsOTLP)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{OnStop: r.Shutdown})
		return r, nil
	default:
		return nil, fmt.Errorf("unknown metrics backend '%s'", s.Backend)
	}
}

// NewTracer builds an OTLP tracer when tracing is enabled, a no-op otherwise.
func NewTracer(lc fx.Lifecycle, s Settings) (metrics.Tracer, error) {
	if !s.TracingEnabled {
		return metrics.NewNoOpTracer(), nil
	}
	t, err := NewOTLPTracer(context.Background(), s.ServiceName, s.TracingOTLP)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{OnStop: t.Shutdown})
	return t, nil
}

// Module is an Fx module that provides the MetricRecorder and Tracer selected
// by the Settings supplied elsewhere in the graph.
var Module = fx.Options(
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracer),
)
