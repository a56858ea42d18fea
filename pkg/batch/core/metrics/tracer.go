package metrics

import "context"

// Tracer is an abstract interface for distributed tracing.
type Tracer interface {
	// StartRunSpan starts the root span of a conversion run.
	// Returns a context carrying the span and a function ending it.
	StartRunSpan(ctx context.Context, runID string) (context.Context, func())

	// StartUnitSpan starts a child span for one unit (e.g., "2020/123456").
	StartUnitSpan(ctx context.Context, unitKey string) (context.Context, func())

	// RecordError records an error on the span in ctx.
	//
	// module: the component that failed (e.g., "provider", "writer").
	RecordError(ctx context.Context, module string, err error)

	// RecordEvent records an event on the span in ctx.
	RecordEvent(ctx context.Context, name string, attributes map[string]interface{})
}
