package main

import (
	"context"
	"fmt"

	"github.com/tienminhktvn/dataops-project/bootstrap"
	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/database"
	"github.com/tienminhktvn/dataops-project/health"
	"github.com/tienminhktvn/dataops-project/httpclient"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/notify"
	"github.com/tienminhktvn/dataops-project/observability"
	"github.com/tienminhktvn/dataops-project/pipeline"
	"github.com/tienminhktvn/dataops-project/process"
	"github.com/tienminhktvn/dataops-project/scheduler"
	"github.com/tienminhktvn/dataops-project/server"
	"github.com/tienminhktvn/dataops-project/sse"
	"github.com/tienminhktvn/dataops-project/util"
	"github.com/tienminhktvn/dataops-project/workload"
)

// service holds the wired parts of one process. Infrastructure is
// registered in newService; the pipeline and everything on top of it is
// built in configure, once the database and container runtime are up.
type service struct {
	app   *bootstrap.App[*Config]
	cfg   *Config
	log   *logger.Logger
	serve bool

	db       *database.Component
	workload *workload.Component
	obs      *observability.Component
	metrics  *observability.Metrics
	prom     *observability.PromCollector
	events   *sse.Component
	webhook  *httpclient.Component

	pipeline  *pipeline.Pipeline
	scheduler *scheduler.Scheduler
	server    *server.Server
}

func newService(app *bootstrap.App[*Config], serve bool) (*service, error) {
	cfg := app.Cfg
	s := &service{app: app, cfg: cfg, log: app.Logger, serve: serve}

	s.obs = observability.NewComponent(cfg.Observability, observability.ServiceInfo{
		Name:        cfg.Name,
		Version:     cfg.Version,
		Environment: cfg.Environment,
	}, s.log)
	if err := app.RegisterComponent(s.obs); err != nil {
		return nil, err
	}
	if cfg.Database.Enabled {
		s.db = database.NewComponent(cfg.Database, s.log)
		if err := app.RegisterComponent(s.db); err != nil {
			return nil, err
		}
	}
	if cfg.Workload.Enabled {
		s.workload = workload.NewComponent(cfg.Workload, &cfg.Docker, s.log)
		if err := app.RegisterComponent(s.workload); err != nil {
			return nil, err
		}
	}

	if cfg.Notify.Enabled() {
		s.log.Info("run notifications go to webhook", logger.Fields("url", util.MaskSecret(cfg.Notify.WebhookURL, 24)))
		s.webhook = httpclient.NewComponent(cfg.Notify.ClientConfig())
		if err := app.RegisterComponent(s.webhook); err != nil {
			return nil, err
		}
	}
	// The event stream is only useful behind the HTTP server.
	if serve && cfg.Server.Enabled && cfg.Events.Enabled {
		s.events = sse.NewComponent(cfg.Events, s.log)
		if err := app.RegisterComponent(s.events); err != nil {
			return nil, err
		}
	}

	app.OnConfigure(s.configure)
	app.OnReady(func(context.Context) error {
		s.describePipeline()
		return nil
	})
	return s, nil
}

func (s *service) configure(_ context.Context, app *bootstrap.App[*Config]) error {
	runner, err := s.runner()
	if err != nil {
		return err
	}
	deps := pipeline.Deps{
		Runner: runner,
		Gate:   health.NewGateFromConfig(s.cfg.Health, s.dataStore()),
		Logger: s.log,
	}
	var webhook *httpclient.Client
	if s.webhook != nil {
		webhook = s.webhook.Client()
	}
	if deps.Notifier, err = notify.NewWithClient(s.cfg.Notify, webhook, s.log); err != nil {
		return err
	}
	if s.cfg.Observability.Enabled {
		if s.metrics, err = observability.NewMetrics(observability.Meter()); err != nil {
			return err
		}
		deps.Observers = append(deps.Observers, observability.NewRunObserver(s.metrics, observability.Tracer()))
	}
	if s.serve && s.cfg.Server.Enabled && s.cfg.Observability.Prometheus.Enabled {
		if s.prom, err = observability.NewPromCollector(s.cfg.Observability.Prometheus); err != nil {
			return err
		}
		deps.Observers = append(deps.Observers, s.prom)
	}
	if s.events != nil {
		deps.Observers = append(deps.Observers, sse.NewRunStream(s.events.Hub()))
	}
	if s.pipeline, err = pipeline.New(s.cfg.Pipeline, nil, deps); err != nil {
		return err
	}

	opts := []scheduler.Option{scheduler.WithLogger(s.log)}
	if s.db != nil {
		opts = append(opts, scheduler.WithStore(database.NewRunStore(s.db.DB())))
	}
	if s.scheduler, err = scheduler.New(s.pipeline, s.cfg.Pipeline.Schedule, s.cfg.Scheduler, opts...); err != nil {
		return err
	}
	if !s.serve {
		return nil
	}

	if err := app.RegisterComponent(s.scheduler); err != nil {
		return err
	}
	if !s.cfg.Server.Enabled {
		return nil
	}
	if s.server, err = server.New(s.cfg.Server, s.log); err != nil {
		return err
	}
	if s.metrics != nil {
		s.server.Use(observability.GinMiddleware(s.metrics, observability.Tracer()))
	}
	s.server.RegisterDefaultEndpoints(s.cfg.Name, app.Components.HealthAll)
	s.server.RegisterRunEndpoints(s.scheduler, s.pipeline, s.scheduler)
	if s.events != nil {
		s.server.RegisterEventStream(s.events.Hub(), s.cfg.Events)
	}
	if s.prom != nil {
		s.server.RegisterMetrics(s.cfg.Observability.Prometheus.Path, s.prom.Handler())
	}
	return app.RegisterComponent(server.NewComponent(s.server))
}

// runner picks the command runner for the configured mode. shell and
// docker-cli both go through sh -c; the docker-cli prefix comes from the
// pipeline's CommandBuilder.
func (s *service) runner() (pipeline.CommandRunner, error) {
	switch s.cfg.Pipeline.Runner {
	case pipeline.RunnerDocker:
		r := s.workload.Runner()
		if r == nil {
			return nil, fmt.Errorf("container runner is not started")
		}
		return r, nil
	default:
		return process.NewShellRunner(s.cfg.Shell, s.log), nil
	}
}

// dataStore is nil without a database, which fails every gate probe.
func (s *service) dataStore() health.DataStore {
	if s.db == nil {
		return nil
	}
	return s.db
}

func (s *service) describePipeline() {
	info := bootstrap.PipelineInfo{
		ID:     s.pipeline.ID(),
		Levels: s.pipeline.Plan().Levels,
	}
	if s.serve && !s.cfg.Scheduler.Disabled {
		info.Schedule = s.scheduler.Schedule()
		info.NextRun = s.scheduler.NextRun()
	}
	s.app.Summary.SetPipeline(info)
}

// runOnce executes one run in the foreground. A failed run is an error so
// the process exits non-zero.
func (s *service) runOnce(ctx context.Context) error {
	run, err := s.scheduler.RunNow(ctx, scheduler.TriggerManual)
	if err != nil {
		return err
	}
	snap := run.Snapshot()
	s.log.Info("run finished", logger.Fields(
		logger.FieldRunID, snap.ID,
		logger.FieldStatus, string(snap.Status),
		logger.FieldDuration, snap.DurationSecs,
	))
	if snap.Status != dag.RunSucceeded {
		return fmt.Errorf("run %s failed at %s: %s", snap.ID, snap.FailedTask, snap.FailureDetail)
	}
	return nil
}
