package telemetry

import (
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// NewTracerProviderWithExporter exposes newTracerProviderWithExporter so
// tests in other packages can record spans with in-memory exporters.
func NewTracerProviderWithExporter(exporter sdktrace.SpanExporter, cfg Config) (*sdktrace.TracerProvider, ShutdownFunc, error) {
	return newTracerProviderWithExporter(exporter, cfg)
}
