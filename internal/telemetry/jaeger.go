package telemetry

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
)

/*
LEARNING: JAEGER INTEGRATION FOR DISTRIBUTED TRACING

Architecture:
  niconeon → OpenTelemetry SDK → Jaeger Exporter → Jaeger Collector → Jaeger UI

Spans worth looking at:
  POST /rpc  → AppCore.OpenVideo    (fetch, cache fallback)
             → AppCore.PlaybackTick (emitted / coalesced / dropped counts)
  GET  /ws   → WebSocket.Connect, then one WebSocket.ProcessMessage per frame

Tracing is off unless TRACING_ENABLED is set. Without a provider the global
tracer is a no-op, so span calls across the code cost next to nothing.
*/

// InitJaeger installs a global tracer provider exporting to jaegerEndpoint.
// The returned function flushes pending spans and must be called on shutdown.
func InitJaeger(serviceName, version, jaegerEndpoint string) (func(context.Context) error, error) {
	exp, err := jaeger.New(
		jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(jaegerEndpoint)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	// Root spans are always sampled, child spans follow their parent
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.AlwaysSample())),
	)
	otel.SetTracerProvider(tp)

	logrus.WithFields(logrus.Fields{
		"endpoint": jaegerEndpoint,
		"service":  serviceName,
		"version":  version,
	}).Info("✓ Jaeger tracing initialized")

	return tp.Shutdown, nil
}
