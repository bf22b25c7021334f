package pipeline

import (
	"context"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/health"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/notify"
)

// CommandRunner executes one command line. A non-zero exit is a FAILURE
// outcome; an error means the command could not be run or ran out of time.
type CommandRunner interface {
	Execute(ctx context.Context, command string) (dag.Outcome, error)
}

// CommandRunnerFunc adapts a function to CommandRunner.
type CommandRunnerFunc func(ctx context.Context, command string) (dag.Outcome, error)

func (f CommandRunnerFunc) Execute(ctx context.Context, command string) (dag.Outcome, error) {
	return f(ctx, command)
}

// Deps are the collaborators of a Pipeline. Runner is required.
type Deps struct {
	Runner CommandRunner
	// Gate is evaluated after the tasks; nil disables the health gate.
	Gate *health.Gate
	// Notifier sends the run's single notification; nil sends nothing.
	Notifier  *notify.Notifier
	Observers []dag.Observer
	Logger    *logger.Logger
	// Clock and Sleep are passed to the engine; tests replace them.
	Clock func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// Pipeline is a validated definition bound to its runner, gate and notifier.
type Pipeline struct {
	cfg     Config
	def     *dag.Definition
	reg     *dag.Registry
	plan    *dag.Plan
	engine  *dag.Engine
	builder CommandBuilder
	gate    *health.Gate
	log     *logger.Logger
	now     func() time.Time
}

// New builds the pipeline described by def, or by cfg when def is nil.
// Registry and plan errors are returned here, before any run starts.
func New(cfg Config, def *dag.Definition, deps Deps) (*Pipeline, error) {
	if deps.Runner == nil {
		return nil, errors.InvalidInput("runner", "a command runner is required")
	}
	log := deps.Logger
	if log == nil {
		log = logger.Get("pipeline")
	}
	if def == nil {
		var err error
		if def, err = LoadDefinition(cfg); err != nil {
			return nil, err
		}
	}

	p := &Pipeline{
		cfg:     cfg,
		def:     def,
		builder: NewCommandBuilder(cfg),
		gate:    deps.Gate,
		log:     log.WithFields(logger.Fields(logger.FieldPipelineID, def.ID)),
		now:     deps.Clock,
	}
	if p.now == nil {
		p.now = time.Now
	}

	reg, err := def.Build(p.taskFactory(deps.Runner))
	if err != nil {
		return nil, err
	}
	plan, err := dag.BuildPlan(reg)
	if err != nil {
		return nil, err
	}
	p.reg, p.plan = reg, plan

	opts := []dag.Option{
		dag.WithLogger(log.WithComponent("engine")),
		dag.WithMaxParallel(cfg.MaxParallel),
		dag.WithClock(p.now),
		dag.WithObserver(deps.Observers...),
	}
	if deps.Gate != nil {
		opts = append(opts, dag.WithGate(deps.Gate))
	}
	if deps.Sleep != nil {
		opts = append(opts, dag.WithSleep(deps.Sleep))
	}
	// The notifier goes last so the other observers have seen the run.
	if deps.Notifier != nil {
		opts = append(opts, dag.WithObserver(deps.Notifier))
	}
	p.engine = dag.NewEngine(opts...)

	p.log.Info("pipeline ready", logger.Fields(
		logger.FieldCount, reg.Len(),
		"levels", len(plan.Levels),
		"runner", cfg.Runner,
		"gate", deps.Gate != nil,
	))
	return p, nil
}

func (p *Pipeline) ID() string                  { return p.def.ID }
func (p *Pipeline) Definition() *dag.Definition { return p.def }
func (p *Pipeline) Registry() *dag.Registry     { return p.reg }
func (p *Pipeline) Plan() *dag.Plan             { return p.plan }
func (p *Pipeline) Config() Config              { return p.cfg }

// Gate returns the health gate, or nil when it is disabled.
func (p *Pipeline) Gate() *health.Gate { return p.gate }

// NewRun creates a run of this pipeline for trigger at the current time.
func (p *Pipeline) NewRun(trigger string) *dag.PipelineRun {
	run := dag.NewRun(p.def.ID, p.now())
	run.Trigger = trigger
	return run
}

// Execute drives run to a terminal status. The returned error only reports
// a run that cannot start; task and gate failures are on the run.
func (p *Pipeline) Execute(ctx context.Context, run *dag.PipelineRun) (*dag.PipelineRun, error) {
	return p.engine.Execute(ctx, p.plan, p.reg, run)
}

// Run creates and executes a run for trigger.
func (p *Pipeline) Run(ctx context.Context, trigger string) (*dag.PipelineRun, error) {
	return p.Execute(ctx, p.NewRun(trigger))
}

// taskFactory binds each definition command to runner.
func (p *Pipeline) taskFactory(runner CommandRunner) dag.TaskFactory {
	return func(def dag.TaskDef) (dag.TaskFunc, error) {
		if def.Command == "" {
			return nil, errors.InvalidInput("command", "task "+def.ID+" has no command")
		}
		command := p.builder.Build(def.Command)
		log := p.log.WithFields(logger.Fields(logger.FieldTaskID, def.ID))
		return func(ctx context.Context) (dag.Outcome, error) {
			log.Debug("running command", logger.Fields("command", command))
			return runner.Execute(ctx, command)
		}, nil
	}
}
