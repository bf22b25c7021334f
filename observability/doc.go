// Package observability exports pipeline metrics and traces over OTLP/HTTP
// with OpenTelemetry.
//
//	tp, err := observability.InitTracer(ctx, cfg, svc)
//	mp, err := observability.InitMeter(ctx, cfg, svc)
//	metrics, err := observability.NewMetrics(observability.Meter())
//	obs := observability.NewRunObserver(metrics, observability.Tracer())
//
// RunObserver is registered on the engine like any dag.Observer and
// records dataops.task.attempts, dataops.task.duration, dataops.run.total
// and dataops.run.duration, plus one span per run and per task.
// GinMiddleware does the same for API requests. Component wraps provider
// setup and shutdown for the component registry.
package observability
