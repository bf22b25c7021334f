package sse

import (
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
)

// Event names as they appear on the "event:" line.
const (
	EventConnected = "connected"
	EventTask      = "task"
	EventRun       = "run"
)

// AllRuns is the topic pattern matching every run.
const AllRuns = "run:*"

// RunTopic is the topic events of runID are published on.
func RunTopic(runID string) string {
	return "run:" + runID
}

// Event is one frame on the stream.
type Event struct {
	Name  string
	Topic string
	Data  any
}

// ConnectedData is sent first on every stream.
type ConnectedData struct {
	ClientID string `json:"client_id"`
	Topic    string `json:"topic"`
}

// TaskData reports a task reaching a terminal state.
type TaskData struct {
	RunID      string        `json:"run_id"`
	PipelineID string        `json:"pipeline_id"`
	TaskID     string        `json:"task_id"`
	State      dag.TaskState `json:"state"`
	Attempts   int           `json:"attempts"`
	Detail     string        `json:"detail,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}

// RunData reports a run reaching its terminal status.
type RunData struct {
	RunID         string        `json:"run_id"`
	PipelineID    string        `json:"pipeline_id"`
	Trigger       string        `json:"trigger,omitempty"`
	Status        dag.RunStatus `json:"status"`
	FailedTask    string        `json:"failed_task,omitempty"`
	FailureDetail string        `json:"failure_detail,omitempty"`
	DurationSecs  float64       `json:"duration_seconds"`
}
