package dag

import (
	"context"
	stderrors "errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/resilience"
)

// Gate validates a run after every task has finished. A non-nil error fails
// the run with HealthCheckTask as the responsible task.
type Gate interface {
	Check(ctx context.Context, run *PipelineRun) error
}

// GateFunc adapts a function to Gate.
type GateFunc func(ctx context.Context, run *PipelineRun) error

func (f GateFunc) Check(ctx context.Context, run *PipelineRun) error { return f(ctx, run) }

// Option configures an Engine.
type Option func(*Engine)

// WithMaxParallel bounds concurrent task attempts. Zero or less means the
// widest ready set of the plan.
func WithMaxParallel(n int) Option {
	return func(e *Engine) { e.maxParallel = n }
}

// WithGate sets the post-run gate.
func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

// WithObserver appends observers.
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) {
		for _, o := range obs {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSleep replaces the backoff wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(e *Engine) { e.sleep = sleep }
}

// Engine drives a PipelineRun through a Plan.
type Engine struct {
	maxParallel int
	gate        Gate
	observers   []Observer
	log         *logger.Logger
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// NewEngine creates an engine. A LoggingObserver on the engine logger is
// always registered first.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		now:   time.Now,
		sleep: resilience.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = logger.Get("dag")
	}
	e.observers = append([]Observer{LoggingObserver{Log: e.log}}, e.observers...)
	return e
}

// Execute runs plan against reg, recording results on run (a new run is
// created when run is nil). Task and gate failures are reported through the
// run's status; the returned error is only for a plan that does not match
// the registry or a run that already finished.
func (e *Engine) Execute(ctx context.Context, plan *Plan, reg *Registry, run *PipelineRun) (*PipelineRun, error) {
	if plan == nil || reg == nil {
		return nil, errors.InvalidInput("plan", "plan and registry are required")
	}
	ids := plan.Tasks()
	if len(ids) != reg.Len() {
		return nil, errors.InvalidInput("plan", fmt.Sprintf("plan has %d task(s), registry has %d", len(ids), reg.Len()))
	}
	for _, id := range ids {
		if _, err := reg.Get(id); err != nil {
			return nil, err
		}
	}
	if run == nil {
		run = NewRun("", e.now())
	}
	if run.Done() {
		return nil, errors.InvalidInput("run", "run "+run.ID+" already finished")
	}

	run.start(e.now(), reg, ids)
	log := e.log.WithFields(logger.Fields(logger.FieldRunID, run.ID, logger.FieldPipelineID, run.PipelineID))
	log.Info("pipeline run started", logger.Fields("levels", len(plan.Levels), "tasks", len(ids)))

	bh := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "dag.tasks",
		MaxConcurrent: e.parallelism(plan),
		MaxWait:       resilience.WaitUntilDone,
	})

	cancelled := false
	for i, level := range plan.Levels {
		if ctx.Err() != nil {
			cancelled = true
			break
		}
		if e.runLevel(ctx, i, level, reg, run, bh, log) {
			cancelled = true
		}
	}

	if !cancelled && run.FailedTask() == "" && e.gate != nil {
		if ctx.Err() != nil {
			cancelled = true
		} else {
			cancelled = e.runGate(ctx, run, log)
		}
	}

	if cancelled {
		e.skipPending(run, ids, CancelledTask)
		run.recordFailure(CancelledTask, CancelledDetail)
		log.Warn("pipeline run cancelled")
	}

	run.finish(e.now())
	for _, o := range e.observers {
		o := o
		safeNotify(log, "run_finished", func() { o.RunFinished(run) })
	}
	return run, nil
}

func (e *Engine) parallelism(plan *Plan) int {
	widest := 1
	for _, lvl := range plan.Levels {
		if len(lvl) > widest {
			widest = len(lvl)
		}
	}
	if e.maxParallel <= 0 || e.maxParallel > widest {
		return widest
	}
	return e.maxParallel
}

// runLevel evaluates triggers for one ready set, runs the eligible tasks
// concurrently and waits for all of them. It reports whether any task was
// interrupted by cancellation.
func (e *Engine) runLevel(ctx context.Context, index int, level []string, reg *Registry, run *PipelineRun, bh *resilience.Bulkhead, log *logger.Logger) bool {
	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		interrupted = make(map[string]bool)
	)

	for _, id := range level {
		spec, _ := reg.Get(id)
		decision := EvaluateTrigger(spec.TriggerRule, run.States(spec.DependsOn))
		if !decision.Run {
			e.skip(run, id, decision.Reason)
			continue
		}

		wg.Add(1)
		go func(spec TaskSpec) {
			defer wg.Done()
			if err := bh.Acquire(ctx); err != nil {
				e.skip(run, spec.ID, CancelledTask)
				mu.Lock()
				interrupted[spec.ID] = true
				mu.Unlock()
				return
			}
			defer bh.Release()
			if e.runTask(ctx, spec, run, log) {
				mu.Lock()
				interrupted[spec.ID] = true
				mu.Unlock()
			}
		}(spec)
	}
	wg.Wait()

	var failed []TaskAttempt
	for _, id := range level {
		a, _ := run.Attempt(id)
		if a.State != StateFailure || interrupted[id] {
			continue
		}
		if a.TriggerRule == AllDone {
			log.Warn("task failed under ALL_DONE; run continues", logger.Fields(logger.FieldTaskID, id, logger.FieldError, a.Detail))
			continue
		}
		failed = append(failed, a)
	}
	sort.SliceStable(failed, func(i, j int) bool { return failed[i].FinishedAt.Before(failed[j].FinishedAt) })
	for _, a := range failed {
		if run.recordFailure(a.TaskID, a.Detail) {
			log.Error("run failed by task", logger.Fields(logger.FieldTaskID, a.TaskID, "level", index, logger.FieldError, a.Detail))
		}
	}

	// An ALL_SUCCESS task that never ran blocks success even when the
	// failure behind it was tolerated under ALL_DONE.
	for _, id := range level {
		a, _ := run.Attempt(id)
		if a.State != StateSkipped || a.TriggerRule != AllSuccess || interrupted[id] || a.Detail == CancelledTask {
			continue
		}
		task, detail := blamedUpstream(reg, run, id)
		if run.recordFailure(task, detail) {
			log.Error("run failed by skipped task", logger.Fields(logger.FieldTaskID, id, "blamed", task, "level", index, logger.FieldError, detail))
		}
	}
	return len(interrupted) > 0
}

// blamedUpstream walks the ancestry of a skipped task breadth-first and
// returns the nearest failed task. A skip with no failed ancestor is blamed
// on the task itself.
func blamedUpstream(reg *Registry, run *PipelineRun, id string) (string, string) {
	seen := map[string]bool{id: true}
	queue := []string{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		spec, err := reg.Get(cur)
		if err != nil {
			continue
		}
		for _, dep := range spec.DependsOn {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if a, ok := run.Attempt(dep); ok && a.State == StateFailure {
				return a.TaskID, a.Detail
			}
			queue = append(queue, dep)
		}
	}
	a, _ := run.Attempt(id)
	return id, a.Detail
}

// runTask performs up to MaxRetries+1 attempts and finalizes the attempt.
// It reports whether cancellation cut the task short.
func (e *Engine) runTask(ctx context.Context, spec TaskSpec, run *PipelineRun, log *logger.Logger) bool {
	tlog := log.WithFields(logger.Fields(logger.FieldTaskID, spec.ID))
	run.update(spec.ID, func(a *TaskAttempt) {
		a.State = StateRunning
		a.StartedAt = e.now()
	})

	var (
		last        Outcome
		interrupted bool
	)
	for attempt := 1; ; attempt++ {
		begin := e.now()
		run.update(spec.ID, func(a *TaskAttempt) { a.Attempts = attempt })
		tlog.Debug("task attempt started", logger.Fields(logger.FieldAttempt, attempt))

		last = e.attempt(ctx, spec)
		rec := AttemptRecord{
			Number:    attempt,
			Outcome:   last.Status,
			Detail:    last.Detail,
			StartedAt: begin,
			Duration:  e.now().Sub(begin),
		}
		run.update(spec.ID, func(a *TaskAttempt) {
			a.History = append(a.History, rec)
			a.LastOutcome = last.Status
		})

		if last.Status == OutcomeSuccess {
			break
		}
		if ctx.Err() != nil {
			interrupted = true
			break
		}
		if !resilience.ShouldRetry(attempt, spec.Retry.MaxRetries) {
			break
		}

		delay := resilience.NextDelay(attempt, spec.Retry.BaseDelay, spec.Retry.Multiplier, spec.Retry.MaxDelay)
		tlog.Warn("task attempt failed; retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldStatus, string(last.Status),
			logger.FieldBackoff, delay.String(),
			logger.FieldError, last.Detail,
		))
		if err := e.sleep(ctx, delay); err != nil {
			interrupted = true
			break
		}
	}

	final := run.update(spec.ID, func(a *TaskAttempt) {
		a.FinishedAt = e.now()
		a.Detail = last.Detail
		switch {
		case last.Status == OutcomeSuccess:
			a.State = StateSuccess
		case interrupted:
			a.State = StateFailure
			a.Detail = CancelledTask
		default:
			a.State = StateFailure
		}
	})
	e.notifyTask(run, final, log)
	return interrupted
}

type attemptResult struct {
	out Outcome
	err error
}

// attempt runs one attempt under its own timeout. An attempt that outlives
// its timeout is abandoned; its goroutine ends when the body returns.
func (e *Engine) attempt(ctx context.Context, spec TaskSpec) Outcome {
	actx, cancel := context.WithCancel(ctx)
	if spec.Timeout > 0 {
		cancel()
		actx, cancel = context.WithTimeout(ctx, spec.Timeout)
	}
	defer cancel()

	done := make(chan attemptResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- attemptResult{err: fmt.Errorf("task panicked: %v", r)}
			}
		}()
		out, err := spec.Run(actx)
		done <- attemptResult{out: out, err: err}
	}()

	select {
	case res := <-done:
		return classify(ctx, actx, spec, res)
	case <-actx.Done():
		if ctx.Err() != nil {
			return Outcome{Status: OutcomeFailure, Detail: CancelledTask}
		}
		return timeoutOutcome(spec)
	}
}

func classify(ctx, actx context.Context, spec TaskSpec, res attemptResult) Outcome {
	if res.err != nil {
		if ctx.Err() == nil && stderrors.Is(actx.Err(), context.DeadlineExceeded) {
			return timeoutOutcome(spec)
		}
		return Outcome{Status: OutcomeFailure, Detail: ErrorDetail(res.err)}
	}
	switch res.out.Status {
	case "", OutcomeSuccess:
		return Outcome{Status: OutcomeSuccess, Detail: res.out.Detail}
	case OutcomeFailure, OutcomeTimeout:
		return res.out
	default:
		return Outcome{Status: OutcomeFailure, Detail: fmt.Sprintf("unknown outcome status %q: %s", res.out.Status, res.out.Detail)}
	}
}

func timeoutOutcome(spec TaskSpec) Outcome {
	return Outcome{Status: OutcomeTimeout, Detail: errors.Timeout(spec.ID).Message + " (" + spec.Timeout.String() + ")"}
}

// runGate runs the gate and records its result. It reports whether the gate
// was cut short by cancellation.
func (e *Engine) runGate(ctx context.Context, run *PipelineRun, log *logger.Logger) bool {
	log.Info("running health gate")
	err := e.checkGate(ctx, run)
	if err == nil {
		run.setGateDetail("passed")
		log.Info("health gate passed")
		return false
	}
	if ctx.Err() != nil {
		run.setGateDetail(CancelledTask)
		return true
	}
	detail := ErrorDetail(err)
	run.setGateDetail(detail)
	run.recordFailure(HealthCheckTask, detail)
	log.Error("health gate failed", logger.Fields(logger.FieldError, detail))
	return false
}

func (e *Engine) checkGate(ctx context.Context, run *PipelineRun) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health gate panicked: %v", r)
		}
	}()
	return e.gate.Check(ctx, run)
}

func (e *Engine) skip(run *PipelineRun, id, reason string) {
	now := e.now()
	a := run.update(id, func(a *TaskAttempt) {
		a.State = StateSkipped
		a.Detail = reason
		a.FinishedAt = now
	})
	e.notifyTask(run, a, e.log)
}

func (e *Engine) skipPending(run *PipelineRun, ids []string, reason string) {
	for id, st := range run.States(ids) {
		if st == StatePending {
			e.skip(run, id, reason)
		}
	}
}

func (e *Engine) notifyTask(run *PipelineRun, a TaskAttempt, log *logger.Logger) {
	for _, o := range e.observers {
		o := o
		safeNotify(log, "task_finished", func() { o.TaskFinished(run, a) })
	}
}

// ErrorDetail returns the human-readable part of err: the message of an
// AppError, or err.Error() otherwise.
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := errors.AsAppError(err); ok {
		if appErr.Cause != nil {
			return appErr.Message + ": " + appErr.Cause.Error()
		}
		return appErr.Message
	}
	return err.Error()
}
