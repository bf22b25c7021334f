package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentationName names the tracer and meter of this module.
const InstrumentationName = "github.com/tienminhktvn/dataops-project"

// ServiceInfo is stamped on every exported span and metric.
type ServiceInfo struct {
	Name        string
	Version     string
	Environment string
}

// InitTracer installs a batching OTLP/HTTP tracer provider as the global
// provider. The caller shuts it down on exit.
func InitTracer(ctx context.Context, cfg Config, svc ServiceInfo) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating trace exporter: %w", err)
	}
	res, err := newResource(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

// newResource leaves the schema URL unset so it merges with the SDK
// defaults regardless of their semconv version.
func newResource(ctx context.Context, svc ServiceInfo) (*resource.Resource, error) {
	return resource.New(ctx,
		resource.WithTelemetrySDK(),
		resource.WithFromEnv(),
		resource.WithAttributes(
			semconv.ServiceName(svc.Name),
			semconv.ServiceVersion(svc.Version),
			attribute.String("deployment.environment", svc.Environment),
		),
	)
}

// Tracer returns the module tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Span and attribute names used across the service.
const (
	SpanRun         = "pipeline.run"
	SpanTask        = "pipeline.task"
	SpanHTTPRequest = "http.request"

	AttrPipelineID = "pipeline.id"
	AttrRunID      = "pipeline.run_id"
	AttrTrigger    = "pipeline.trigger"
	AttrTaskID     = "task.id"
	AttrTaskState  = "task.state"
	AttrAttempts   = "task.attempts"
	AttrStatus     = "status"
)
