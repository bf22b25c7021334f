package dag

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// TaskState is the lifecycle state of a task within one run.
type TaskState string

const (
	StatePending TaskState = "PENDING"
	StateRunning TaskState = "RUNNING"
	StateSuccess TaskState = "SUCCESS"
	StateFailure TaskState = "FAILURE"
	StateSkipped TaskState = "SKIPPED"
)

// Terminal reports whether no further transition can happen.
func (s TaskState) Terminal() bool {
	return s == StateSuccess || s == StateFailure || s == StateSkipped
}

// RunStatus is the overall status of a PipelineRun.
type RunStatus string

const (
	RunRunning   RunStatus = "RUNNING"
	RunSucceeded RunStatus = "SUCCEEDED"
	RunFailed    RunStatus = "FAILED"
)

// Synthetic task ids used as the responsible task of a failed run.
const (
	HealthCheckTask = "health_check"
	CancelledTask   = "cancelled"
	StartupTask     = "startup"
)

// CancelledDetail is the failure detail of a cancelled run.
const CancelledDetail = "pipeline run cancelled"

// AttemptRecord describes a single attempt of a task.
type AttemptRecord struct {
	Number    int           `json:"number"`
	Outcome   OutcomeStatus `json:"outcome"`
	Detail    string        `json:"detail,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// TaskAttempt tracks one task for the lifetime of a run.
type TaskAttempt struct {
	TaskID      string          `json:"task_id"`
	TriggerRule TriggerRule     `json:"trigger_rule"`
	State       TaskState       `json:"state"`
	Attempts    int             `json:"attempts"`
	StartedAt   time.Time       `json:"started_at,omitempty"`
	FinishedAt  time.Time       `json:"finished_at,omitempty"`
	LastOutcome OutcomeStatus   `json:"last_outcome,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	History     []AttemptRecord `json:"history,omitempty"`
}

// Duration returns the wall time from first start to finish.
func (a TaskAttempt) Duration() time.Duration {
	if a.StartedAt.IsZero() || a.FinishedAt.IsZero() {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

func (a TaskAttempt) copy() TaskAttempt {
	a.History = append([]AttemptRecord(nil), a.History...)
	return a
}

// PipelineRun is one execution of a pipeline. Its attempt map is written by
// concurrent task goroutines and guarded by mu.
type PipelineRun struct {
	ID          string
	PipelineID  string
	LogicalDate time.Time
	Trigger     string

	mu            sync.RWMutex
	startedAt     time.Time
	finishedAt    time.Time
	status        RunStatus
	failedTask    string
	failureDetail string
	gateDetail    string
	attempts      map[string]*TaskAttempt
	order         []string
}

// NewRun creates a run with a random id.
func NewRun(pipelineID string, logicalDate time.Time) *PipelineRun {
	return NewRunWithID(uuid.NewString(), pipelineID, logicalDate)
}

// NewRunWithID creates a run with a caller-supplied id.
func NewRunWithID(id, pipelineID string, logicalDate time.Time) *PipelineRun {
	return &PipelineRun{
		ID:          id,
		PipelineID:  pipelineID,
		LogicalDate: logicalDate,
		status:      RunRunning,
		attempts:    make(map[string]*TaskAttempt),
	}
}

// Status returns the current run status.
func (r *PipelineRun) Status() RunStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// Done reports whether the run reached a terminal status.
func (r *PipelineRun) Done() bool {
	return r.Status() != RunRunning
}

// StartedAt returns when execution began.
func (r *PipelineRun) StartedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.startedAt
}

// FinishedAt returns when the run reached its terminal status.
func (r *PipelineRun) FinishedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.finishedAt
}

// Duration returns the run's wall time, or zero while it is running.
func (r *PipelineRun) Duration() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.startedAt.IsZero() || r.finishedAt.IsZero() {
		return 0
	}
	return r.finishedAt.Sub(r.startedAt)
}

// FailedTask returns the id responsible for a failed run: a task id,
// HealthCheckTask or CancelledTask.
func (r *PipelineRun) FailedTask() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failedTask
}

// FailureDetail returns the error text of the responsible task.
func (r *PipelineRun) FailureDetail() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failureDetail
}

// GateDetail returns the health gate summary, if the gate ran.
func (r *PipelineRun) GateDetail() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gateDetail
}

// Attempt returns a copy of the attempt for id.
func (r *PipelineRun) Attempt(id string) (TaskAttempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.attempts[id]
	if !ok {
		return TaskAttempt{}, false
	}
	return a.copy(), true
}

// Attempts returns copies of all attempts in plan order.
func (r *PipelineRun) Attempts() []TaskAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TaskAttempt, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.attempts[id].copy())
	}
	return out
}

// States returns the current state of each id.
func (r *PipelineRun) States(ids []string) map[string]TaskState {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]TaskState, len(ids))
	for _, id := range ids {
		if a, ok := r.attempts[id]; ok {
			out[id] = a.State
		} else {
			out[id] = StatePending
		}
	}
	return out
}

// start records the start time and seeds a pending attempt per task.
func (r *PipelineRun) start(now time.Time, reg *Registry, ids []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startedAt = now
	for _, id := range ids {
		if _, ok := r.attempts[id]; ok {
			continue
		}
		a := &TaskAttempt{TaskID: id, State: StatePending}
		if spec, err := reg.Get(id); err == nil {
			a.TriggerRule = spec.TriggerRule
		}
		r.attempts[id] = a
		r.order = append(r.order, id)
	}
}

// update applies fn to the attempt for id under the lock and returns a copy.
func (r *PipelineRun) update(id string, fn func(a *TaskAttempt)) TaskAttempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.attempts[id]
	if !ok {
		a = &TaskAttempt{TaskID: id, State: StatePending}
		r.attempts[id] = a
		r.order = append(r.order, id)
	}
	fn(a)
	return a.copy()
}

// recordFailure names the responsible task unless one is already recorded.
// It reports whether this call set it.
func (r *PipelineRun) recordFailure(taskID, detail string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failedTask != "" || r.status != RunRunning {
		return false
	}
	r.failedTask = taskID
	r.failureDetail = detail
	return true
}

func (r *PipelineRun) setGateDetail(detail string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateDetail = detail
}

// finish moves the run to its terminal status. Only the first call has
// effect; it reports whether this call made the transition.
func (r *PipelineRun) finish(now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.status != RunRunning {
		return false
	}
	if r.failedTask != "" {
		r.status = RunFailed
	} else {
		r.status = RunSucceeded
	}
	r.finishedAt = now
	return true
}

// Abort fails a run that could not be executed, blaming taskID. It reports
// whether the run was still running.
func (r *PipelineRun) Abort(taskID, detail string, now time.Time) bool {
	r.recordFailure(taskID, detail)
	return r.finish(now)
}

// RunSnapshot is a point-in-time copy of a run, safe to serialize.
type RunSnapshot struct {
	ID            string        `json:"id"`
	PipelineID    string        `json:"pipeline_id"`
	LogicalDate   time.Time     `json:"logical_date"`
	Trigger       string        `json:"trigger,omitempty"`
	Status        RunStatus     `json:"status"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at,omitempty"`
	DurationSecs  float64       `json:"duration_seconds"`
	FailedTask    string        `json:"failed_task,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`
	GateDetail    string        `json:"gate_detail,omitempty"`
	Tasks         []TaskAttempt `json:"tasks"`
}

// Snapshot copies the run for reporting.
func (r *PipelineRun) Snapshot() RunSnapshot {
	tasks := r.Attempts()
	r.mu.RLock()
	defer r.mu.RUnlock()
	snap := RunSnapshot{
		ID:            r.ID,
		PipelineID:    r.PipelineID,
		LogicalDate:   r.LogicalDate,
		Trigger:       r.Trigger,
		Status:        r.status,
		StartedAt:     r.startedAt,
		FinishedAt:    r.finishedAt,
		FailedTask:    r.failedTask,
		FailureDetail: r.failureDetail,
		GateDetail:    r.gateDetail,
		Tasks:         tasks,
	}
	if !r.finishedAt.IsZero() && !r.startedAt.IsZero() {
		snap.DurationSecs = r.finishedAt.Sub(r.startedAt).Seconds()
	}
	return snap
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
