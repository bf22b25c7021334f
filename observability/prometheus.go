package observability

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
)

// PrometheusConfig exposes run metrics for scraping, independent of the
// OTLP export.
type PrometheusConfig struct {
	Enabled   bool   `yaml:"enabled" mapstructure:"enabled"`
	Path      string `yaml:"path" mapstructure:"path"`
	Namespace string `yaml:"namespace" mapstructure:"namespace"`
	// RuntimeMetrics adds the Go runtime and process collectors.
	RuntimeMetrics bool `yaml:"runtime_metrics" mapstructure:"runtime_metrics"`
}

func (c *PrometheusConfig) ApplyDefaults() {
	if c.Path == "" {
		c.Path = "/metrics"
	}
	if c.Namespace == "" {
		c.Namespace = "dataops"
	}
}

func (c *PrometheusConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Path, "/") {
		return errors.InvalidInput("observability.prometheus.path", "must start with /")
	}
	return nil
}

var durationBuckets = []float64{1, 5, 15, 30, 60, 300, 900, 1800, 3600, 7200}

// PromCollector records run and task outcomes on its own registry.
type PromCollector struct {
	registry     *prometheus.Registry
	taskAttempts *prometheus.CounterVec
	taskDuration *prometheus.HistogramVec
	taskState    *prometheus.CounterVec
	runs         *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	lastRun      *prometheus.GaugeVec
}

var _ dag.Observer = (*PromCollector)(nil)

func NewPromCollector(cfg PrometheusConfig) (*PromCollector, error) {
	cfg.ApplyDefaults()
	ns := cfg.Namespace
	c := &PromCollector{
		registry: prometheus.NewRegistry(),
		taskAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "task_attempts_total",
			Help: "Task attempts, retries included.",
		}, []string{"pipeline", "task"}),
		taskState: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "task_finished_total",
			Help: "Tasks reaching a terminal state.",
		}, []string{"pipeline", "task", "state"}),
		taskDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "task_duration_seconds",
			Help:    "Wall time of a task across all its attempts.",
			Buckets: durationBuckets,
		}, []string{"pipeline", "task"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: "runs_total",
			Help: "Finished pipeline runs.",
		}, []string{"pipeline", "trigger", "status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Name: "run_duration_seconds",
			Help:    "Wall time of a pipeline run.",
			Buckets: durationBuckets,
		}, []string{"pipeline"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns, Name: "last_run_timestamp_seconds",
			Help: "Unix time the latest run with each status finished.",
		}, []string{"pipeline", "status"}),
	}
	cs := []prometheus.Collector{c.taskAttempts, c.taskState, c.taskDuration, c.runs, c.runDuration, c.lastRun}
	if cfg.RuntimeMetrics {
		cs = append(cs, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	for _, col := range cs {
		if err := c.registry.Register(col); err != nil {
			return nil, errors.Internal(err)
		}
	}
	return c, nil
}

func (c *PromCollector) TaskFinished(run *dag.PipelineRun, a dag.TaskAttempt) {
	c.taskState.WithLabelValues(run.PipelineID, a.TaskID, string(a.State)).Inc()
	if a.Attempts == 0 {
		return
	}
	c.taskAttempts.WithLabelValues(run.PipelineID, a.TaskID).Add(float64(a.Attempts))
	c.taskDuration.WithLabelValues(run.PipelineID, a.TaskID).Observe(a.Duration().Seconds())
}

func (c *PromCollector) RunFinished(run *dag.PipelineRun) {
	status := string(run.Status())
	c.runs.WithLabelValues(run.PipelineID, run.Trigger, status).Inc()
	c.runDuration.WithLabelValues(run.PipelineID).Observe(run.Duration().Seconds())
	finished := run.FinishedAt()
	if !finished.IsZero() {
		c.lastRun.WithLabelValues(run.PipelineID, status).Set(float64(finished.Unix()))
	}
}

// Handler serves the registry in the Prometheus text format.
func (c *PromCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Registry exposes the underlying registry, for tests.
func (c *PromCollector) Registry() *prometheus.Registry { return c.registry }
