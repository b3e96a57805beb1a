// Package otelhelper provides distributed tracing setup for engine
// monitoring.
package otelhelper

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otlptracehttp "go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys shared by every span the engine emits.
const (
	TemplateIDKey  = attribute.Key("flowd.template.id")
	ExecutionIDKey = attribute.Key("flowd.execution.id")
	NodeIDKey      = attribute.Key("flowd.node.id")
	NodeTypeKey    = attribute.Key("flowd.node.type")
	EventIDKey     = attribute.Key("flowd.event.id")
	ServiceIDKey   = attribute.Key("flowd.service.id")
	WorkerIDKey    = attribute.Key("flowd.worker.id")
)

// NewTracerProvider builds an OTLP/HTTP trace provider for the named
// service and installs it as the global provider, so packages holding a
// tracer from otel.Tracer start exporting. Callers own the returned
// provider and must Shutdown it on exit to flush pending spans.
func NewTracerProvider(ctx context.Context, serviceName string) (*sdktrace.TracerProvider, error) {
	r, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, err
	}

	exporter, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(r),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}))

	return tp, nil
}

// nolint:ireturn,spancheck // Returning interface is intentional for OpenTelemetry tracing
func StartSpan(ctx context.Context, tracer trace.Tracer, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
