package sse

import (
	"github.com/tienminhktvn/dataops-project/dag"
)

// RunStream publishes run progress to a Publisher.
type RunStream struct {
	pub Publisher
}

var _ dag.Observer = (*RunStream)(nil)

func NewRunStream(pub Publisher) *RunStream {
	return &RunStream{pub: pub}
}

func (s *RunStream) TaskFinished(run *dag.PipelineRun, a dag.TaskAttempt) {
	s.pub.Publish(Event{
		Name:  EventTask,
		Topic: RunTopic(run.ID),
		Data: TaskData{
			RunID:      run.ID,
			PipelineID: run.PipelineID,
			TaskID:     a.TaskID,
			State:      a.State,
			Attempts:   a.Attempts,
			Detail:     a.Detail,
			FinishedAt: a.FinishedAt,
		},
	})
}

func (s *RunStream) RunFinished(run *dag.PipelineRun) {
	s.pub.Publish(Event{
		Name:  EventRun,
		Topic: RunTopic(run.ID),
		Data: RunData{
			RunID:         run.ID,
			PipelineID:    run.PipelineID,
			Trigger:       run.Trigger,
			Status:        run.Status(),
			FailedTask:    run.FailedTask(),
			FailureDetail: run.FailureDetail(),
			DurationSecs:  run.Duration().Seconds(),
		},
	})
}
