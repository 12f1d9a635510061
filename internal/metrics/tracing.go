package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracingMu      sync.RWMutex
	tracerProvider *sdktrace.TracerProvider
	tracer         trace.Tracer
)

// InitTracing initializes OpenTelemetry tracing with an OTLP HTTP exporter.
// An empty endpoint leaves tracing disabled; spans become no-ops.
func InitTracing(serviceName, environment, otlpEndpoint string) error {
	if otlpEndpoint == "" {
		log.Printf("[Tracing] No OTLP endpoint configured, tracing disabled")
		return nil
	}

	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(otlpEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return err
	}

	if err := installTracer(serviceName, environment, sdktrace.WithBatcher(exporter)); err != nil {
		return err
	}

	log.Printf("[Tracing] Initialized OpenTelemetry with OTLP endpoint: %s", otlpEndpoint)
	return nil
}

func installTracer(serviceName, environment string, processor sdktrace.TracerProviderOption) error {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String("1.0.0"),
			attribute.String("environment", environment),
		),
	)
	if err != nil {
		return err
	}

	tp := sdktrace.NewTracerProvider(
		processor,
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)

	tracingMu.Lock()
	tracerProvider = tp
	tracer = tp.Tracer(serviceName)
	tracingMu.Unlock()

	otel.SetTracerProvider(tp)
	return nil
}

// StartSpan starts a new span with the given name
func StartSpan(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracingMu.RLock()
	t := tracer
	tracingMu.RUnlock()

	if t == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return t.Start(ctx, spanName, trace.WithAttributes(attrs...))
}

// RunAttributes returns the attributes attached to every inference span
func RunAttributes(runID string, individuals int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("heredity.run_id", runID),
		attribute.Int("heredity.individuals", individuals),
	}
}

// AddSpanAttributes adds attributes to the current span
func AddSpanAttributes(ctx context.Context, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(attrs...)
	}
}

// AddSpanEvent adds an event to the current span
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// RecordSpanError records an error on the current span
func RecordSpanError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() && err != nil {
		span.RecordError(err)
	}
}

// ShutdownTracing flushes and shuts down the trace provider
func ShutdownTracing() error {
	tracingMu.Lock()
	tp := tracerProvider
	tracerProvider = nil
	tracer = nil
	tracingMu.Unlock()

	if tp == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return tp.Shutdown(ctx)
}
