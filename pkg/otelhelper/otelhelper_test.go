package otelhelper_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/flowd-io/flowd/pkg/otelhelper"
)

func TestStartSpanCarriesAttributes(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "node.execute",
		otelhelper.ExecutionIDKey.String("exec-1"),
		otelhelper.NodeTypeKey.String("task"),
	)
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "node.execute", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), otelhelper.ExecutionIDKey.String("exec-1"))
	assert.Contains(t, spans[0].Attributes(), otelhelper.NodeTypeKey.String("task"))
}

func TestSetErrorMarksSpanFailed(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tracer := provider.Tracer("test")

	_, span := otelhelper.StartSpan(context.Background(), tracer, "node.execute")
	otelhelper.SetError(span, errors.New("handler blew up"), otelhelper.NodeIDKey.String("approve"))
	span.End()

	spans := recorder.Ended()
	require.Len(t, spans, 1)

	status := spans[0].Status()
	assert.Equal(t, codes.Error, status.Code)
	assert.Equal(t, "handler blew up", status.Description)

	events := spans[0].Events()
	require.Len(t, events, 1)
	assert.Equal(t, "exception", events[0].Name)
	assert.Contains(t, events[0].Attributes, otelhelper.NodeIDKey.String("approve"))
}
