package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withRecorder(t *testing.T) *tracetest.SpanRecorder {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		provider.Shutdown(context.Background())
	})
	return recorder
}

func TestRun_FailsSpanOnError(t *testing.T) {
	recorder := withRecorder(t)

	var traceID string
	err := Run(context.Background(), "job.overdue_refresh", func(ctx context.Context) error {
		traceID = TraceID(ctx)
		return errors.New("store down")
	}, attribute.String("job.name", "overdue_refresh"))

	assert.EqualError(t, err, "store down")
	assert.Len(t, traceID, 32)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "job.overdue_refresh", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Contains(t, spans[0].Attributes(), attribute.String("job.name", "overdue_refresh"))
}

func TestRun_Success(t *testing.T) {
	recorder := withRecorder(t)

	require.NoError(t, Run(context.Background(), "job.ok", func(context.Context) error { return nil }))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.NotEqual(t, codes.Error, spans[0].Status().Code)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
