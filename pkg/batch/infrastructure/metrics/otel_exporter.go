package metrics

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// OTLPSettings selects an OTLP collector.
type OTLPSettings struct {
	// Protocol is "http" (default) or "grpc".
	Protocol string
	// Endpoint is host:port; empty uses the exporter's default or the
	// OTEL_EXPORTER_OTLP_ENDPOINT environment variable.
	Endpoint string
	Insecure bool
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// NewTraceExporter creates an OTLP span exporter for s.
func NewTraceExporter(ctx context.Context, s OTLPSettings) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(s.Protocol) {
	case "", "http":
		var opts []otlptracehttp.Option
		if s.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(s.Endpoint))
		}
		if s.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	case "grpc":
		var opts []otlptracegrpc.Option
		if s.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpoint(s.Endpoint))
		}
		if s.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", s.Protocol)
	}
}

// NewMetricExporter creates an OTLP metric exporter for s.
func NewMetricExporter(ctx context.Context, s OTLPSettings) (sdkmetric.Exporter, error) {
	switch strings.ToLower(s.Protocol) {
	case "", "http":
		var opts []otlpmetrichttp.Option
		if s.Endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(s.Endpoint))
		}
		if s.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc":
		var opts []otlpmetricgrpc.Option
		if s.Endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(s.Endpoint))
		}
		if s.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", s.Protocol)
	}
}
