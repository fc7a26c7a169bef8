package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/wireit-go/wireit/internal/adapters/telemetry"
)

// newRecordingTracer installs an SDK tracer provider backed by a
// tracetest.SpanRecorder as the process-global provider, since
// telemetry.Tracer resolves its underlying trace.Tracer through
// otel.Tracer at construction time.
func newRecordingTracer(t *testing.T) (*telemetry.Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		otel.SetTracerProvider(prev)
	})

	return telemetry.NewTracer("test"), sr
}

func TestTracer_Start_RecordsSpan(t *testing.T) {
	tracer, sr := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "build")
	span.SetAttribute("script", "build")
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "build", spans[0].Name())
}

func TestSpan_RecordError_SetsErrorStatus(t *testing.T) {
	tracer, sr := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "compile")
	span.RecordError(errors.New("boom"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "Error", spans[0].Status().Code.String())
}

func TestSpan_SetAttribute_HandlesMixedTypes(t *testing.T) {
	tracer, sr := newRecordingTracer(t)

	_, span := tracer.Start(context.Background(), "lint")
	span.SetAttribute("count", 3)
	span.SetAttribute("ratio", 0.5)
	span.SetAttribute("ok", true)
	span.SetAttribute("tags", []string{"a", "b"})
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Len(t, spans[0].Attributes(), 4)
}
