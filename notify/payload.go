package notify

import (
	"strings"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
)

// Payload is the content of one terminal notification. It is derived from
// the run and never stored.
type Payload struct {
	RunID       string
	PipelineID  string
	LogicalDate time.Time
	Duration    time.Duration
	Succeeded   bool

	// Set on failure only.
	TaskID  string
	Detail  string
	LogsURL string
}

// SuccessPayload summarizes a succeeded run.
func SuccessPayload(run *dag.PipelineRun) Payload {
	return Payload{
		RunID:       run.ID,
		PipelineID:  run.PipelineID,
		LogicalDate: runDate(run),
		Duration:    run.Duration(),
		Succeeded:   true,
	}
}

// FailurePayload summarizes a failed run attributed to taskID.
func FailurePayload(run *dag.PipelineRun, taskID, detail, logsTemplate string) Payload {
	p := SuccessPayload(run)
	p.Succeeded = false
	p.TaskID = taskID
	p.Detail = detail
	p.LogsURL = LogsURL(logsTemplate, run.PipelineID, run.ID, taskID)
	return p
}

// LogsURL expands {pipeline_id}, {run_id} and {task_id} in template.
func LogsURL(template, pipelineID, runID, taskID string) string {
	if template == "" {
		return ""
	}
	return strings.NewReplacer(
		"{pipeline_id}", pipelineID,
		"{run_id}", runID,
		"{task_id}", taskID,
	).Replace(template)
}

func runDate(run *dag.PipelineRun) time.Time {
	if !run.LogicalDate.IsZero() {
		return run.LogicalDate
	}
	return run.StartedAt()
}
