package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/tienminhktvn/dataops-project/component"
	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
)

// Trigger kinds recorded on each run.
const (
	TriggerManual   = "manual"
	TriggerSchedule = "scheduled"
)

// Pipeline is what the scheduler runs. *pipeline.Pipeline implements it.
type Pipeline interface {
	ID() string
	NewRun(trigger string) *dag.PipelineRun
	Execute(ctx context.Context, run *dag.PipelineRun) (*dag.PipelineRun, error)
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithStore mirrors every run into store.
func WithStore(store Store) Option {
	return func(s *Scheduler) { s.store = store }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// Scheduler starts runs of one pipeline from a cron schedule or on demand
// and allows at most one active run.
type Scheduler struct {
	pipeline Pipeline
	cfg      Config
	expr     string
	cron     *cron.Cron
	store    Store
	log      *logger.Logger
	history  *history

	runCtx context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup

	mu           sync.Mutex
	active       *dag.PipelineRun
	cancelActive context.CancelFunc
	running      bool
}

var _ component.Component = (*Scheduler)(nil)

// New creates a scheduler for p on the cron expression expr.
func New(p Pipeline, expr string, cfg Config, opts ...Option) (*Scheduler, error) {
	if p == nil {
		return nil, errors.InvalidInput("pipeline", "pipeline is required")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schedule, err := ParseSchedule(expr)
	if err != nil {
		return nil, err
	}
	loc, _ := cfg.location()

	s := &Scheduler{
		pipeline: p,
		cfg:      cfg,
		expr:     expr,
		history:  newHistory(cfg.HistorySize),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.Get("scheduler")
	}
	s.log = s.log.WithFields(logger.Fields(logger.FieldPipelineID, p.ID()))
	s.runCtx, s.stop = context.WithCancel(context.Background())
	s.cron = cron.New(cron.WithLocation(loc), cron.WithLogger(cronLogger{log: s.log}))
	s.cron.Schedule(schedule, cron.FuncJob(s.tick))
	return s, nil
}

// tick runs on every cron fire. Missed ticks are not replayed.
func (s *Scheduler) tick() {
	run, err := s.Trigger(s.runCtx, TriggerSchedule)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeRunAlreadyActive) {
			s.log.Warn("scheduled run skipped", logger.Fields(logger.FieldError, err.Error()))
			return
		}
		s.log.Error("scheduled run not started", logger.Fields(logger.FieldError, err.Error()))
		return
	}
	s.log.Info("scheduled run started", logger.Fields(logger.FieldRunID, run.ID))
}

// Trigger starts a run in the background and returns it at once. It fails
// with RUN_ALREADY_ACTIVE while another run is in progress. The run outlives
// ctx; use Cancel or Stop to end it.
func (s *Scheduler) Trigger(ctx context.Context, trigger string) (*dag.PipelineRun, error) {
	if ctx.Err() != nil {
		return nil, errors.Cancelled("trigger")
	}
	run, runCtx, err := s.claim(s.runCtx, trigger, true)
	if err != nil {
		return nil, err
	}
	go func() {
		defer s.wg.Done()
		_, _ = s.execute(runCtx, run)
	}()
	return run, nil
}

// RunNow runs the pipeline and waits for it. Cancelling ctx cancels the run.
func (s *Scheduler) RunNow(ctx context.Context, trigger string) (*dag.PipelineRun, error) {
	run, runCtx, err := s.claim(ctx, trigger, false)
	if err != nil {
		return nil, err
	}
	return s.execute(runCtx, run)
}

// Cancel stops the active run with id. Pending tasks are skipped and the
// run fails as cancelled.
func (s *Scheduler) Cancel(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil && s.active.ID == id {
		s.cancelActive()
		s.log.Warn("run cancel requested", logger.Fields(logger.FieldRunID, id))
		return nil
	}
	if _, ok := s.history.get(id); ok {
		return errors.InvalidInput("run", "run "+id+" is not active")
	}
	return errors.NotFound("run", id)
}

// Active returns a snapshot of the run in progress.
func (s *Scheduler) Active() (dag.RunSnapshot, bool) {
	s.mu.Lock()
	run := s.active
	s.mu.Unlock()
	if run == nil {
		return dag.RunSnapshot{}, false
	}
	return run.Snapshot(), true
}

// Run returns the run with id from memory or, failing that, the store.
func (s *Scheduler) Run(ctx context.Context, id string) (dag.RunSnapshot, error) {
	if run, ok := s.history.get(id); ok {
		return run.Snapshot(), nil
	}
	if s.store != nil {
		return s.store.GetRun(ctx, id)
	}
	return dag.RunSnapshot{}, errors.NotFound("run", id)
}

// Runs returns up to limit runs, newest first. Older runs come from the
// store once the in-memory history is exhausted.
func (s *Scheduler) Runs(ctx context.Context, limit int) ([]dag.RunSnapshot, error) {
	runs := s.history.list(limit)
	if s.store == nil || (limit > 0 && len(runs) >= limit) {
		return runs, nil
	}
	stored, err := s.store.ListRuns(ctx, s.pipeline.ID(), limit)
	if err != nil {
		return runs, err
	}
	seen := make(map[string]struct{}, len(runs))
	for _, r := range runs {
		seen[r.ID] = struct{}{}
	}
	for _, r := range stored {
		if limit > 0 && len(runs) >= limit {
			break
		}
		if _, ok := seen[r.ID]; ok {
			continue
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// NextRun returns the next scheduled fire time, or zero when the cron
// loop is not running.
func (s *Scheduler) NextRun() time.Time {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()
	if !running {
		return time.Time{}
	}
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Schedule returns the cron expression.
func (s *Scheduler) Schedule() string { return s.expr }

// claim registers a new active run or reports the one in progress. A
// background run is added to the wait group under the lock so Stop cannot
// miss it.
func (s *Scheduler) claim(parent context.Context, trigger string, background bool) (*dag.PipelineRun, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		return nil, nil, errors.RunAlreadyActive(s.pipeline.ID(), s.active.ID)
	}
	if s.runCtx.Err() != nil {
		return nil, nil, errors.Cancelled("trigger").WithDetail("reason", "scheduler stopped")
	}
	run := s.pipeline.NewRun(trigger)
	ctx, cancel := context.WithCancel(parent)
	s.active = run
	s.cancelActive = cancel
	s.history.add(run)
	if background {
		s.wg.Add(1)
	}
	return run, ctx, nil
}

func (s *Scheduler) release(run *dag.PipelineRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == run {
		s.cancelActive()
		s.active = nil
		s.cancelActive = nil
	}
}

func (s *Scheduler) execute(ctx context.Context, run *dag.PipelineRun) (*dag.PipelineRun, error) {
	defer s.release(run)
	log := s.log.WithFields(logger.Fields(logger.FieldRunID, run.ID, logger.FieldTrigger, run.Trigger))
	log.Info("run accepted")
	s.persist(run)

	out, err := s.pipeline.Execute(ctx, run)
	if err != nil {
		log.Error("run could not start", logger.Fields(logger.FieldError, err.Error()))
		if run.Abort(dag.StartupTask, dag.ErrorDetail(err), time.Now()) {
			s.persist(run)
		}
		return nil, err
	}
	s.persist(out)
	return out, nil
}

func (s *Scheduler) persist(run *dag.PipelineRun) {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.StoreTimeout)
	defer cancel()
	if err := s.store.SaveRun(ctx, run.Snapshot()); err != nil {
		s.log.Warn("failed to persist run", logger.Fields(logger.FieldRunID, run.ID, logger.FieldError, err.Error()))
	}
}

func (s *Scheduler) Name() string { return "scheduler" }

// Start begins the cron loop unless scheduling is disabled.
func (s *Scheduler) Start(_ context.Context) error {
	if s.cfg.Disabled {
		s.log.Info("cron schedule disabled, manual triggers only")
		return nil
	}
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	s.cron.Start()
	s.log.Info("scheduler started", logger.Fields("schedule", s.expr, "next_run", s.NextRun().Format(time.RFC3339)))
	return nil
}

// Stop halts the cron loop, cancels the active run and waits for it up to
// DrainTimeout or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) error {
	<-s.cron.Stop().Done()
	s.mu.Lock()
	s.running = false
	if s.cancelActive != nil {
		s.cancelActive()
	}
	s.stop()
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(s.cfg.DrainTimeout)
	defer timer.Stop()
	select {
	case <-done:
		return nil
	case <-timer.C:
		return errors.Timeout("scheduler drain")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health is degraded while the latest finished run failed.
func (s *Scheduler) Health(_ context.Context) component.Health {
	h := component.Health{Name: s.Name(), Status: component.StatusHealthy}
	last, ok := s.history.last()
	if ok && last.Status() == dag.RunFailed {
		h.Status = component.StatusDegraded
		h.Message = fmt.Sprintf("last run %s failed at %s", last.ID, last.FailedTask())
		return h
	}
	if next := s.NextRun(); !next.IsZero() {
		h.Message = "next run " + next.Format(time.RFC3339)
	}
	return h
}

func (s *Scheduler) Describe() component.Description {
	details := "manual only"
	if !s.cfg.Disabled {
		tz := s.cfg.Timezone
		if tz == "" {
			tz = "UTC"
		}
		details = fmt.Sprintf("cron=%q tz=%s", s.expr, tz)
	}
	return component.Description{Name: "Scheduler", Type: "scheduler", Details: details}
}

// cronLogger routes cron's own logging into the scheduler logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, logger.Fields(keysAndValues...))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := logger.Fields(keysAndValues...)
	fields[logger.FieldError] = err.Error()
	l.log.Error("cron: "+msg, fields)
}
