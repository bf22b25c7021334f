package dag

import (
	"fmt"

	"github.com/tienminhktvn/dataops-project/logger"
)

// Observer is notified of terminal transitions. TaskFinished fires once per
// task that reaches SUCCESS, FAILURE or SKIPPED; RunFinished fires once per
// run after its status is terminal. Calls come from the engine's goroutines
// and may overlap for tasks in the same ready set.
type Observer interface {
	TaskFinished(run *PipelineRun, attempt TaskAttempt)
	RunFinished(run *PipelineRun)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are ignored.
type ObserverFuncs struct {
	OnTask func(run *PipelineRun, attempt TaskAttempt)
	OnRun  func(run *PipelineRun)
}

func (o ObserverFuncs) TaskFinished(run *PipelineRun, attempt TaskAttempt) {
	if o.OnTask != nil {
		o.OnTask(run, attempt)
	}
}

func (o ObserverFuncs) RunFinished(run *PipelineRun) {
	if o.OnRun != nil {
		o.OnRun(run)
	}
}

// LoggingObserver writes one line per terminal task and run.
type LoggingObserver struct {
	Log *logger.Logger
}

func (o LoggingObserver) TaskFinished(run *PipelineRun, a TaskAttempt) {
	fields := logger.Fields(
		logger.FieldRunID, run.ID,
		logger.FieldTaskID, a.TaskID,
		logger.FieldState, string(a.State),
		logger.FieldAttempt, a.Attempts,
		logger.FieldDuration, a.Duration().Milliseconds(),
	)
	switch a.State {
	case StateFailure:
		fields[logger.FieldError] = a.Detail
		o.Log.Error("task failed", fields)
	case StateSkipped:
		fields["reason"] = a.Detail
		o.Log.Warn("task skipped", fields)
	default:
		o.Log.Info("task succeeded", fields)
	}
}

func (o LoggingObserver) RunFinished(run *PipelineRun) {
	fields := logger.Fields(
		logger.FieldRunID, run.ID,
		logger.FieldPipelineID, run.PipelineID,
		logger.FieldStatus, string(run.Status()),
		logger.FieldDuration, run.Duration().Milliseconds(),
	)
	if run.Status() == RunFailed {
		fields[logger.FieldTaskID] = run.FailedTask()
		fields[logger.FieldError] = run.FailureDetail()
		o.Log.Error("pipeline run failed", fields)
		return
	}
	o.Log.Info("pipeline run succeeded", fields)
}

// safeNotify calls fn and turns a panic into a log line.
func safeNotify(log *logger.Logger, what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("observer panicked", logger.Fields(logger.FieldOperation, what, logger.FieldError, fmt.Sprint(r)))
		}
	}()
	fn()
}
