package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/logger"
)

type harness struct {
	reader  *sdkmetric.ManualReader
	spans   *tracetest.SpanRecorder
	metrics *Metrics
	tp      *sdktrace.TracerProvider
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{reader: sdkmetric.NewManualReader(), spans: tracetest.NewSpanRecorder()}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(h.reader))
	h.tp = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(h.spans))
	t.Cleanup(func() {
		_ = mp.Shutdown(context.Background())
		_ = h.tp.Shutdown(context.Background())
	})
	m, err := NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	h.metrics = m
	return h
}

func (h *harness) sum(t *testing.T, name string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			if s, ok := m.Data.(metricdata.Sum[int64]); ok {
				for _, dp := range s.DataPoints {
					total += dp.Value
				}
			}
		}
	}
	return total
}

// runPipeline executes bronze (fails once, then passes) and silver (fails).
func runPipeline(t *testing.T, obs dag.Observer) *dag.PipelineRun {
	t.Helper()
	bronzeCalls := 0
	reg := dag.NewRegistry()
	reg.MustRegister(dag.TaskSpec{
		ID:    "run_bronze_layer",
		Retry: dag.RetryPolicy{MaxRetries: 1, BaseDelay: time.Millisecond, Multiplier: 1, MaxDelay: time.Millisecond},
		Run: func(context.Context) (dag.Outcome, error) {
			bronzeCalls++
			if bronzeCalls == 1 {
				return dag.Failed("lock timeout"), nil
			}
			return dag.Succeeded(""), nil
		},
	})
	reg.MustRegister(dag.TaskSpec{
		ID:        "run_silver_layer",
		DependsOn: []string{"run_bronze_layer"},
		Run: func(context.Context) (dag.Outcome, error) {
			return dag.Failed("Database Error in model slvr_orders"), nil
		},
	})
	if err := reg.Finalize(); err != nil {
		t.Fatal(err)
	}
	plan, err := dag.BuildPlan(reg)
	if err != nil {
		t.Fatal(err)
	}
	engine := dag.NewEngine(
		dag.WithLogger(logger.Nop()),
		dag.WithObserver(obs),
		dag.WithSleep(func(context.Context, time.Duration) error { return nil }),
	)
	run := dag.NewRun("dbt_dataops_pipeline", time.Now())
	run.Trigger = "manual"
	out, err := engine.Execute(context.Background(), plan, reg, run)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	return out
}

func TestRunObserver_RecordsMetrics(t *testing.T) {
	h := newHarness(t)
	run := runPipeline(t, NewRunObserver(h.metrics, nil))

	if run.Status() != dag.RunFailed {
		t.Fatalf("status = %s", run.Status())
	}
	if got := h.sum(t, MetricTaskAttempts); got != 3 {
		t.Errorf("%s = %d, want 3 (bronze 2 + silver 1)", MetricTaskAttempts, got)
	}
	if got := h.sum(t, MetricRunTotal); got != 1 {
		t.Errorf("%s = %d, want 1", MetricRunTotal, got)
	}
}

func TestRunObserver_SpansNestUnderRun(t *testing.T) {
	h := newHarness(t)
	runPipeline(t, NewRunObserver(h.metrics, h.tp.Tracer("test")))

	ended := h.spans.Ended()
	if len(ended) != 3 {
		t.Fatalf("got %d spans, want 3", len(ended))
	}
	var root sdktrace.ReadOnlySpan
	for _, s := range ended {
		if s.Name() == SpanRun {
			root = s
		}
	}
	if root == nil {
		t.Fatal("no run span")
	}
	if root.Status().Code != codes.Error {
		t.Errorf("run span status = %v", root.Status())
	}
	for _, s := range ended {
		if s == root {
			continue
		}
		if s.Parent().SpanID() != root.SpanContext().SpanID() {
			t.Errorf("%s is not a child of the run span", s.Name())
		}
		if s.Name() == SpanTask+" run_bronze_layer" && len(s.Events()) != 2 {
			t.Errorf("bronze events = %d, want one per attempt", len(s.Events()))
		}
		if s.Name() == SpanTask+" run_silver_layer" && s.Status().Code != codes.Error {
			t.Errorf("silver status = %v", s.Status())
		}
	}
}

func TestGinMiddleware_UsesRouteTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := newHarness(t)
	r := gin.New()
	r.Use(GinMiddleware(h.metrics, h.tp.Tracer("test")))
	r.GET("/api/v1/runs/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, id := range []string{"a", "b"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/api/v1/runs/"+id, http.NoBody))
	}
	if got := h.sum(t, MetricRequestTotal); got != 2 {
		t.Errorf("%s = %d", MetricRequestTotal, got)
	}
	for _, s := range h.spans.Ended() {
		if s.Name() != SpanHTTPRequest+" GET /api/v1/runs/:id" {
			t.Errorf("span name = %q", s.Name())
		}
	}
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Endpoint != "localhost:4318" || cfg.SampleRate != 1 || cfg.Interval != 15*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("disabled config should validate: %v", err)
	}
	cfg.Enabled = true
	cfg.SampleRate = 2
	if err := cfg.Validate(); err == nil {
		t.Error("sample rate 2 accepted")
	}
}

func TestSampler(t *testing.T) {
	if sampler(1).Description() != sdktrace.AlwaysSample().Description() {
		t.Error("rate 1 should always sample")
	}
	if sampler(-1).Description() != sdktrace.NeverSample().Description() {
		t.Error("negative rate should never sample")
	}
	if sampler(0.25).Description() != sdktrace.TraceIDRatioBased(0.25).Description() {
		t.Error("fractional rate should be ratio based")
	}
}

func TestComponent_Disabled(t *testing.T) {
	c := NewComponent(Config{}, ServiceInfo{Name: "dataops"}, logger.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if h := c.Health(context.Background()); h.Status != component.StatusHealthy || h.Message != "disabled" {
		t.Errorf("health = %+v", h)
	}
	if err := c.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestComponent_EnabledLifecycle(t *testing.T) {
	cfg := Config{Enabled: true, Endpoint: "127.0.0.1:1", Insecure: true}
	cfg.ApplyDefaults()
	c := NewComponent(cfg, ServiceInfo{Name: "dataops", Version: "test"}, logger.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// Nothing listens on the endpoint; only the shutdown path is exercised.
	_ = c.Stop(ctx)
}
