package endpoint

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
)

// RunService starts, cancels and reports pipeline runs.
// *scheduler.Scheduler implements it.
type RunService interface {
	Trigger(ctx context.Context, trigger string) (*dag.PipelineRun, error)
	Cancel(id string) error
	Run(ctx context.Context, id string) (dag.RunSnapshot, error)
	Runs(ctx context.Context, limit int) ([]dag.RunSnapshot, error)
}

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

// TriggerManual is recorded on runs started through the API.
const TriggerManual = "manual"

// RunAccepted is the body of a successful trigger.
type RunAccepted struct {
	RunID       string        `json:"run_id"`
	PipelineID  string        `json:"pipeline_id"`
	Trigger     string        `json:"trigger"`
	Status      dag.RunStatus `json:"status"`
	LogicalDate string        `json:"logical_date"`
	Location    string        `json:"location"`
}

// TriggerRun starts a manual run. 202 with the run id, 409 while another
// run is active.
func TriggerRun(svc RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		run, err := svc.Trigger(c.Request.Context(), TriggerManual)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		location := c.FullPath()
		if location == "" {
			location = c.Request.URL.Path
		}
		location += "/" + run.ID
		c.Header("Location", location)
		RespondAccepted(c, RunAccepted{
			RunID:       run.ID,
			PipelineID:  run.PipelineID,
			Trigger:     run.Trigger,
			Status:      run.Status(),
			LogicalDate: run.LogicalDate.Format(time.RFC3339),
			Location:    location,
		})
	}
}

// ListRuns returns recent runs, newest first. ?limit caps the count.
func ListRuns(svc RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := defaultRunLimit
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxRunLimit {
				RespondWithError(c, errors.InvalidInput("limit", "must be between 1 and "+strconv.Itoa(maxRunLimit)))
				return
			}
			limit = n
		}
		runs, err := svc.Runs(c.Request.Context(), limit)
		if err != nil {
			RespondWithError(c, err)
			return
		}
		RespondOKWithMeta(c, runs, &Meta{Count: len(runs), Limit: limit})
	}
}

// GetRun returns one run with its task attempts.
func GetRun(svc RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap, err := svc.Run(c.Request.Context(), c.Param("id"))
		if err != nil {
			RespondWithError(c, err)
			return
		}
		RespondOK(c, snap)
	}
}

// CancelRun cancels the active run. 202 when accepted; pending tasks are
// skipped as the engine unwinds.
func CancelRun(svc RunService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := svc.Cancel(id); err != nil {
			RespondWithError(c, err)
			return
		}
		RespondAccepted(c, gin.H{"run_id": id, "cancel_requested": true})
	}
}
