package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tienminhktvn/dataops-project/dag"
)

// RunObserver turns engine notifications into metrics and spans. Each run
// gets a root span; every finished task becomes a child span back-dated to
// its real start, with one event per attempt.
type RunObserver struct {
	metrics *Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu    sync.Mutex
	roots map[string]runSpan
}

type runSpan struct {
	ctx  context.Context
	span trace.Span
}

var _ dag.Observer = (*RunObserver)(nil)

// NewRunObserver records on metrics and tracer. A nil tracer disables spans.
func NewRunObserver(metrics *Metrics, tracer trace.Tracer) *RunObserver {
	return &RunObserver{
		metrics: metrics,
		tracer:  tracer,
		now:     time.Now,
		roots:   make(map[string]runSpan),
	}
}

func (o *RunObserver) TaskFinished(run *dag.PipelineRun, a dag.TaskAttempt) {
	ctx := context.Background()
	if o.metrics != nil {
		o.metrics.RecordTask(ctx, run.PipelineID, a.TaskID, string(a.State), a.Attempts, a.Duration())
	}
	if o.tracer == nil {
		return
	}

	parent := o.root(run)
	start, end := a.StartedAt, a.FinishedAt
	if end.IsZero() {
		end = o.now()
	}
	if start.IsZero() {
		start = end
	}
	_, span := o.tracer.Start(parent.ctx, SpanTask+" "+a.TaskID,
		trace.WithTimestamp(start),
		trace.WithAttributes(
			attribute.String(AttrTaskID, a.TaskID),
			attribute.String(AttrTaskState, string(a.State)),
			attribute.Int(AttrAttempts, a.Attempts),
			attribute.String("task.trigger_rule", string(a.TriggerRule)),
		),
	)
	for _, rec := range a.History {
		span.AddEvent("attempt", trace.WithTimestamp(rec.StartedAt), trace.WithAttributes(
			attribute.Int("attempt.number", rec.Number),
			attribute.String("attempt.outcome", string(rec.Outcome)),
			attribute.Int64("attempt.duration_ms", rec.Duration.Milliseconds()),
		))
	}
	switch a.State {
	case dag.StateFailure:
		span.SetStatus(codes.Error, a.Detail)
	case dag.StateSkipped:
		span.SetAttributes(attribute.String("task.skip_reason", a.Detail))
	}
	span.End(trace.WithTimestamp(end))
}

func (o *RunObserver) RunFinished(run *dag.PipelineRun) {
	if o.metrics != nil {
		o.metrics.RecordRun(context.Background(), run.PipelineID, run.Trigger, string(run.Status()), run.Duration())
	}
	if o.tracer == nil {
		return
	}

	root := o.root(run)
	o.mu.Lock()
	delete(o.roots, run.ID)
	o.mu.Unlock()

	if run.Status() == dag.RunFailed {
		root.span.SetAttributes(attribute.String("pipeline.failed_task", run.FailedTask()))
		root.span.SetStatus(codes.Error, run.FailureDetail())
	} else {
		root.span.SetStatus(codes.Ok, "")
	}
	end := run.FinishedAt()
	if end.IsZero() {
		end = o.now()
	}
	root.span.End(trace.WithTimestamp(end))
}

// root returns the run span, starting it on first use.
func (o *RunObserver) root(run *dag.PipelineRun) runSpan {
	o.mu.Lock()
	defer o.mu.Unlock()
	if r, ok := o.roots[run.ID]; ok {
		return r
	}
	start := run.StartedAt()
	if start.IsZero() {
		start = o.now()
	}
	ctx, span := o.tracer.Start(context.Background(), SpanRun,
		trace.WithTimestamp(start),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String(AttrPipelineID, run.PipelineID),
			attribute.String(AttrRunID, run.ID),
			attribute.String(AttrTrigger, run.Trigger),
		),
	)
	r := runSpan{ctx: ctx, span: span}
	o.roots[run.ID] = r
	return r
}
