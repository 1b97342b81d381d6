package main

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"tagcache/config"
)

const (
	serviceName           = "tagcached"
	defaultZipkinEndpoint = "http://localhost:9411/api/v2/spans"
)

// newTracerProvider installs a global tracer provider exporting to the
// configured collector. With no exporter spans are recorded but dropped.
func newTracerProvider(ctx context.Context, exporter, endpoint string) (*sdktrace.TracerProvider, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			attribute.String("service.version", version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	opts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	var spanExporter sdktrace.SpanExporter
	switch exporter {
	case config.ExporterJaeger:
		var endpointOpts []jaeger.CollectorEndpointOption
		if endpoint != "" {
			endpointOpts = append(endpointOpts, jaeger.WithEndpoint(endpoint))
		}
		spanExporter, err = jaeger.New(jaeger.WithCollectorEndpoint(endpointOpts...))
		if err != nil {
			return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
		}
	case config.ExporterZipkin:
		if endpoint == "" {
			endpoint = defaultZipkinEndpoint
		}
		spanExporter, err = zipkin.New(endpoint)
		if err != nil {
			return nil, fmt.Errorf("failed to create Zipkin exporter: %w", err)
		}
	}
	if spanExporter != nil {
		opts = append(opts, sdktrace.WithBatcher(spanExporter))
	}

	tp := sdktrace.NewTracerProvider(opts...)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}
