package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
	"github.com/tienminhktvn/dataops-project/pipeline"
	"github.com/tienminhktvn/dataops-project/scheduler"
	"github.com/tienminhktvn/dataops-project/server/endpoint"
)

// planCommand prints the plan without connecting to anything.
func planCommand(args []string, stdout io.Writer) error {
	fs, common := newFlagSet("plan", stdout)
	format := fs.String("format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := common.load()
	if err != nil {
		return err
	}
	view, err := buildPlanView(cfg, time.Now())
	if err != nil {
		return err
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "text":
		return writePlanText(stdout, view)
	default:
		return fmt.Errorf("unknown format %q", *format)
	}
}

func buildPlanView(cfg *Config, now time.Time) (endpoint.PlanView, error) {
	p, err := pipeline.New(cfg.Pipeline, nil, pipeline.Deps{
		Runner: pipeline.CommandRunnerFunc(func(context.Context, string) (dag.Outcome, error) {
			return dag.Outcome{}, errors.Internal(fmt.Errorf("plan does not run commands"))
		}),
		Logger: logger.Nop(),
	})
	if err != nil {
		return endpoint.PlanView{}, err
	}
	var sched endpoint.ScheduleSource
	if !cfg.Scheduler.Disabled {
		if sched, err = newCronPreview(cfg, now); err != nil {
			return endpoint.PlanView{}, err
		}
	}
	return endpoint.BuildPlanView(p, sched), nil
}

// cronPreview reports the next fire time without starting a scheduler.
type cronPreview struct {
	expr string
	next time.Time
}

func newCronPreview(cfg *Config, now time.Time) (*cronPreview, error) {
	schedule, err := scheduler.ParseSchedule(cfg.Pipeline.Schedule)
	if err != nil {
		return nil, err
	}
	loc := time.UTC
	if cfg.Scheduler.Timezone != "" {
		if loc, err = time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
			return nil, errors.InvalidInput("scheduler.timezone", err.Error())
		}
	}
	return &cronPreview{expr: cfg.Pipeline.Schedule, next: schedule.Next(now.In(loc))}, nil
}

func (c *cronPreview) Schedule() string   { return c.expr }
func (c *cronPreview) NextRun() time.Time { return c.next }

func writePlanText(w io.Writer, view endpoint.PlanView) error {
	fmt.Fprintf(w, "pipeline %s\n", view.PipelineID)
	if view.Schedule != "" {
		fmt.Fprintf(w, "schedule %s", view.Schedule)
		if view.NextRun != nil {
			fmt.Fprintf(w, " (next %s)", view.NextRun.Format(time.RFC3339))
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "LEVEL\tTASK\tRULE\tRETRIES\tTIMEOUT\tDEPENDS ON")
	for _, t := range view.Tasks {
		deps := strings.Join(t.DependsOn, ",")
		if deps == "" {
			deps = "-"
		}
		timeout := t.Timeout
		if timeout == "" {
			timeout = "-"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n", t.Level, t.ID, t.TriggerRule, t.Retries, timeout, deps)
	}
	return tw.Flush()
}
