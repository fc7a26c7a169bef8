package ports

import (
	"context"
	"time"
)

// Renderer is the abstraction for output rendering. It decouples span
// collection from presentation, so the same event stream can drive a linear
// CI-style renderer without the execution core knowing about terminals.
//
//go:generate mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type Renderer interface {
	// Start initializes the renderer and begins its lifecycle.
	Start(ctx context.Context) error

	// Stop signals the renderer to stop accepting new events and flush any
	// buffered output.
	Stop() error

	// Wait blocks until the renderer has fully terminated.
	Wait() error

	// OnPlanEmit is called once analysis succeeds, with the resolved script
	// labels in execution order and their dependency map.
	OnPlanEmit(scripts []string, deps map[string][]string, root string)

	// OnScriptStart is called when a script begins execution.
	OnScriptStart(spanID, parentID, label string, startTime time.Time)

	// OnScriptLog is called when a script emits output. stderr reports
	// which stream the chunk came from.
	OnScriptLog(spanID string, data []byte, stderr bool)

	// OnScriptComplete is called when a script's execution record reaches a
	// terminal outcome.
	OnScriptComplete(spanID string, endTime time.Time, outcome ExecutionOutcome, err error)
}

// Span is one traced execution interval, mirroring an OpenTelemetry span
// without exposing the OTel API to the core.
type Span interface {
	// End completes the span.
	End()

	// RecordError records an error and marks the span as failed.
	RecordError(err error)

	// SetAttribute attaches a key-value pair to the span.
	SetAttribute(key string, value any)
}

// SpanConfig carries options applied by SpanOption; currently unused by any
// option but kept so Tracer.Start's signature can grow without breaking
// callers.
type SpanConfig struct{}

// SpanOption configures a span at Start time.
type SpanOption func(*SpanConfig)

// Tracer opens spans for script executions.
type Tracer interface {
	// Start opens a new span named name, a child of any span already on
	// ctx.
	Start(ctx context.Context, name string, opts ...SpanOption) (context.Context, Span)
}
