package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// InitMeter installs a periodic OTLP/HTTP meter provider as the global
// provider. The caller shuts it down on exit.
func InitMeter(ctx context.Context, cfg Config, svc ServiceInfo) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}
	res, err := newResource(ctx, svc)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if cfg.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(cfg.Interval))
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// Meter returns the module meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metric names.
const (
	MetricTaskAttempts    = "dataops.task.attempts"
	MetricTaskDuration    = "dataops.task.duration"
	MetricRunTotal        = "dataops.run.total"
	MetricRunDuration     = "dataops.run.duration"
	MetricRequestTotal    = "dataops.http.requests"
	MetricRequestDuration = "dataops.http.duration"
)

// Metrics holds the pipeline and API instruments.
type Metrics struct {
	taskAttempts    metric.Int64Counter
	taskDuration    metric.Float64Histogram
	runTotal        metric.Int64Counter
	runDuration     metric.Float64Histogram
	requestTotal    metric.Int64Counter
	requestDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error
	if m.taskAttempts, err = meter.Int64Counter(MetricTaskAttempts,
		metric.WithDescription("Task attempts by task and final state"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricTaskAttempts, err)
	}
	if m.taskDuration, err = meter.Float64Histogram(MetricTaskDuration,
		metric.WithDescription("Wall time of a task across all attempts"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricTaskDuration, err)
	}
	if m.runTotal, err = meter.Int64Counter(MetricRunTotal,
		metric.WithDescription("Finished pipeline runs by status"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRunTotal, err)
	}
	if m.runDuration, err = meter.Float64Histogram(MetricRunDuration,
		metric.WithDescription("Wall time of a pipeline run"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRunDuration, err)
	}
	if m.requestTotal, err = meter.Int64Counter(MetricRequestTotal,
		metric.WithDescription("API requests by method, route and status"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRequestTotal, err)
	}
	if m.requestDuration, err = meter.Float64Histogram(MetricRequestDuration,
		metric.WithDescription("API request latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("creating %s: %w", MetricRequestDuration, err)
	}
	return m, nil
}

// RecordTask records a task that reached a terminal state.
func (m *Metrics) RecordTask(ctx context.Context, pipelineID, taskID, state string, attempts int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrPipelineID, pipelineID),
		attribute.String(AttrTaskID, taskID),
		attribute.String(AttrTaskState, state),
	)
	if attempts > 0 {
		m.taskAttempts.Add(ctx, int64(attempts), attrs)
		m.taskDuration.Record(ctx, d.Seconds(), attrs)
	}
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(ctx context.Context, pipelineID, trigger, status string, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(AttrPipelineID, pipelineID),
		attribute.String(AttrTrigger, trigger),
		attribute.String(AttrStatus, status),
	)
	m.runTotal.Add(ctx, 1, attrs)
	m.runDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordRequest records one API request.
func (m *Metrics) RecordRequest(ctx context.Context, method, route string, status int, d time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	)
	m.requestTotal.Add(ctx, 1, attrs)
	m.requestDuration.Record(ctx, d.Seconds(), attrs)
}
