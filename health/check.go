package health

import (
	"fmt"
	"strings"
	"time"
)

// Kind selects how a probe's count is judged.
type Kind string

const (
	// RowCount passes when the count is positive.
	RowCount Kind = "ROW_COUNT"
	// Orphans counts records that break referential integrity and passes
	// only when the count is zero.
	Orphans Kind = "ORPHANS"
)

// Status is the verdict of one check.
type Status string

const (
	Pass Status = "PASS"
	Fail Status = "FAIL"
)

// Check is a named probe run against the data store.
type Check struct {
	Name  string `mapstructure:"name" json:"name" validate:"required"`
	Kind  Kind   `mapstructure:"kind" json:"kind" validate:"omitempty,oneof=ROW_COUNT ORPHANS"`
	Query string `mapstructure:"query" json:"query" validate:"required"`
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Name     string        `json:"name"`
	Kind     Kind          `json:"kind"`
	Status   Status        `json:"status"`
	Count    int64         `json:"count"`
	Reason   string        `json:"reason,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Judge classifies a probe result. A non-nil err always fails the check.
func Judge(c Check, count int64, err error) CheckResult {
	res := CheckResult{Name: c.Name, Kind: c.kind(), Count: count}
	switch {
	case err != nil:
		res.Status = Fail
		res.Count = 0
		res.Reason = fmt.Sprintf("%s connection/query error: %s", c.Name, err.Error())
	case c.kind() == Orphans && count > 0:
		res.Status = Fail
		res.Reason = fmt.Sprintf("%d orphaned records", count)
	case c.kind() == RowCount && count <= 0:
		res.Status = Fail
		res.Reason = c.Name + " is empty"
	default:
		res.Status = Pass
	}
	return res
}

func (c Check) kind() Kind {
	if c.Kind == "" {
		return RowCount
	}
	return c.Kind
}

// Result aggregates every check of one evaluation, in check order.
type Result struct {
	Checks      []CheckResult `json:"checks"`
	EvaluatedAt time.Time     `json:"evaluated_at"`
}

// Passed reports whether every check passed. An empty result passes.
func (r *Result) Passed() bool {
	for _, c := range r.Checks {
		if c.Status != Pass {
			return false
		}
	}
	return true
}

// Failures returns the reasons of failed checks in check order.
func (r *Result) Failures() []string {
	var out []string
	for _, c := range r.Checks {
		if c.Status != Pass {
			out = append(out, c.Reason)
		}
	}
	return out
}

// Summary is a one-line description such as "4 checks, 3 passed, 1 failed".
func (r *Result) Summary() string {
	failed := len(r.Failures())
	s := fmt.Sprintf("%d checks, %d passed, %d failed", len(r.Checks), len(r.Checks)-failed, failed)
	if failed > 0 {
		s += ": " + strings.Join(r.Failures(), "; ")
	}
	return s
}

// DefaultChecks returns the layer checks of the nightly dbt pipeline: a
// non-empty table per medallion layer and no gold rows without a silver
// product.
func DefaultChecks() []Check {
	return []Check{
		{Name: "bronze", Kind: RowCount, Query: "SELECT COUNT(*) FROM bronze.brnz_products"},
		{Name: "silver", Kind: RowCount, Query: "SELECT COUNT(*) FROM silver.slvr_products"},
		{Name: "gold", Kind: RowCount, Query: "SELECT COUNT(*) FROM gold.gld_product_performance"},
		{Name: "orphans", Kind: Orphans, Query: "SELECT COUNT(*) FROM gold.gld_product_performance g " +
			"LEFT JOIN silver.slvr_products s ON g.product_id = s.product_id WHERE s.product_id IS NULL"},
	}
}
