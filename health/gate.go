package health

import (
	"context"
	"fmt"
	"time"

	"github.com/tienminhktvn/dataops-project/dag"
	"github.com/tienminhktvn/dataops-project/errors"
	"github.com/tienminhktvn/dataops-project/logger"
)

// DataStore runs a query that returns a single count.
type DataStore interface {
	QueryScalarCount(ctx context.Context, query string) (int64, error)
}

// DataStoreFunc adapts a function to DataStore.
type DataStoreFunc func(ctx context.Context, query string) (int64, error)

func (f DataStoreFunc) QueryScalarCount(ctx context.Context, query string) (int64, error) {
	return f(ctx, query)
}

// Gate evaluates checks against a data store. It implements dag.Gate and
// keeps no per-run state; results travel with the returned error.
type Gate struct {
	store  DataStore
	checks []Check
	log    *logger.Logger
	now    func() time.Time
}

var _ dag.Gate = (*Gate)(nil)

// NewGate creates a gate over store running checks on every Check call.
func NewGate(store DataStore, checks []Check, log *logger.Logger) *Gate {
	if log == nil {
		log = logger.Get("health")
	}
	return &Gate{
		store:  store,
		checks: append([]Check(nil), checks...),
		log:    log,
		now:    time.Now,
	}
}

// Checks returns the configured checks.
func (g *Gate) Checks() []Check {
	return append([]Check(nil), g.checks...)
}

// Evaluate runs every check in order and never stops early. A missing data
// store fails every check.
func (g *Gate) Evaluate(ctx context.Context, checks []Check) *Result {
	res := &Result{EvaluatedAt: g.now(), Checks: make([]CheckResult, 0, len(checks))}
	for _, c := range checks {
		start := g.now()
		var (
			count int64
			err   error
		)
		if g.store == nil {
			err = fmt.Errorf("no data store configured")
		} else {
			count, err = g.probe(ctx, c)
		}
		cr := Judge(c, count, err)
		cr.Duration = g.now().Sub(start)
		res.Checks = append(res.Checks, cr)

		fields := logger.Fields(logger.FieldCheck, c.Name, logger.FieldStatus, string(cr.Status), logger.FieldCount, cr.Count)
		if cr.Status == Pass {
			g.log.Info("health check passed", fields)
		} else {
			fields["reason"] = cr.Reason
			g.log.Warn("health check failed", fields)
		}
	}
	return res
}

func (g *Gate) probe(ctx context.Context, c Check) (count int64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("probe panicked: %v", r)
		}
	}()
	return g.store.QueryScalarCount(ctx, c.Query)
}

// Check evaluates the configured checks for run and returns a
// HEALTH_CHECK_FAILED AppError listing every failure. The per-check
// results are attached under the "checks" detail.
func (g *Gate) Check(ctx context.Context, run *dag.PipelineRun) error {
	log := g.log
	if run != nil {
		log = log.WithFields(logger.Fields(logger.FieldRunID, run.ID))
	}
	log.Info("running pipeline health checks", logger.Fields(logger.FieldCount, len(g.checks)))

	res := g.Evaluate(ctx, g.checks)
	if res.Passed() {
		log.Info("all health checks passed")
		return nil
	}
	err := errors.HealthCheckFailed(res.Failures()).WithDetail("checks", res.Checks)
	log.Error("health checks failed", logger.Fields(logger.FieldError, err.Message))
	return err
}
