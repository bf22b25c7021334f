package endpoint

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/dag"
)

// PlanSource exposes the resolved graph. *pipeline.Pipeline implements it.
type PlanSource interface {
	ID() string
	Plan() *dag.Plan
	Registry() *dag.Registry
}

// ScheduleSource reports the cron schedule. *scheduler.Scheduler
// implements it; nil omits the schedule fields.
type ScheduleSource interface {
	Schedule() string
	NextRun() time.Time
}

// PlanTask describes one task in the plan.
type PlanTask struct {
	ID          string          `json:"id"`
	Level       int             `json:"level"`
	DependsOn   []string        `json:"depends_on"`
	TriggerRule dag.TriggerRule `json:"trigger_rule"`
	Retries     int             `json:"retries"`
	Timeout     string          `json:"timeout,omitempty"`
	Description string          `json:"description,omitempty"`
}

// PlanView is the body of GET /api/v1/plan.
type PlanView struct {
	PipelineID string     `json:"pipeline_id"`
	Levels     [][]string `json:"levels"`
	Tasks      []PlanTask `json:"tasks"`
	Schedule   string     `json:"schedule,omitempty"`
	NextRun    *time.Time `json:"next_run,omitempty"`
}

// Plan returns the execution levels and per-task settings.
func Plan(src PlanSource, sched ScheduleSource) gin.HandlerFunc {
	return func(c *gin.Context) {
		RespondOK(c, BuildPlanView(src, sched))
	}
}

// BuildPlanView is shared with the plan subcommand.
func BuildPlanView(src PlanSource, sched ScheduleSource) PlanView {
	plan := src.Plan()
	reg := src.Registry()
	view := PlanView{PipelineID: src.ID(), Levels: plan.Levels}
	for _, id := range plan.Tasks() {
		spec, err := reg.Get(id)
		if err != nil {
			continue
		}
		t := PlanTask{
			ID:          id,
			Level:       plan.Level(id),
			DependsOn:   append([]string{}, spec.DependsOn...),
			TriggerRule: spec.TriggerRule,
			Retries:     spec.Retry.MaxRetries,
			Description: spec.Description,
		}
		if spec.Timeout > 0 {
			t.Timeout = spec.Timeout.String()
		}
		view.Tasks = append(view.Tasks, t)
	}
	if sched != nil {
		view.Schedule = sched.Schedule()
		if next := sched.NextRun(); !next.IsZero() {
			view.NextRun = &next
		}
	}
	return view
}
