// Package telemetry wires an OpenTelemetry TracerProvider for Porter's
// own spans (registry and provider construction, CLI --help discovery,
// tool-call routing). Export is opt-in: with no
// OTEL_EXPORTER_OTLP_ENDPOINT set, Setup leaves the global no-op
// provider in place so tracing costs nothing by default.
package telemetry

import (
	"context"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Tracer is the well-known tracer name Porter's packages pull spans
// from via otel.Tracer(Tracer).
const Tracer = "github.com/nextlevelbuilder/porter"

// Setup installs a global TracerProvider. When OTEL_EXPORTER_OTLP_ENDPOINT
// is unset, tracing is a no-op: Setup still returns a valid shutdown
// func so callers don't need to branch on whether export is enabled.
func Setup(ctx context.Context, serviceName, serviceVersion string) (func(context.Context) error, error) {
	endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := newExporter(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", serviceName),
		attribute.String("service.version", serviceVersion),
	))
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return tp.Shutdown, nil
}

// newExporter picks gRPC or HTTP/protobuf OTLP transport based on
// OTEL_EXPORTER_OTLP_PROTOCOL, defaulting to http/protobuf per the
// OpenTelemetry spec's own default.
func newExporter(ctx context.Context, endpoint string) (*otlptrace.Exporter, error) {
	if os.Getenv("OTEL_EXPORTER_OTLP_PROTOCOL") == "grpc" {
		client := otlptracegrpc.NewClient(otlptracegrpc.WithEndpoint(endpoint), otlptracegrpc.WithInsecure())
		return otlptrace.New(ctx, client)
	}
	client := otlptracehttp.NewClient(otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	return otlptrace.New(ctx, client)
}
