package dag

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// TriggerRule decides whether a task runs given its dependencies' states.
type TriggerRule string

const (
	// AllSuccess runs the task only when every dependency succeeded.
	AllSuccess TriggerRule = "ALL_SUCCESS"
	// AllDone runs the task once every dependency is terminal, whatever the state.
	AllDone TriggerRule = "ALL_DONE"
)

// ParseTriggerRule accepts the rule names case-insensitively; empty means AllSuccess.
func ParseTriggerRule(s string) (TriggerRule, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", string(AllSuccess):
		return AllSuccess, nil
	case string(AllDone):
		return AllDone, nil
	default:
		return "", fmt.Errorf("unknown trigger rule %q", s)
	}
}

// Valid reports whether r is a known rule.
func (r TriggerRule) Valid() bool {
	return r == AllSuccess || r == AllDone
}

// OutcomeStatus is what a task body reports for one attempt.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeFailure OutcomeStatus = "FAILURE"
	OutcomeTimeout OutcomeStatus = "TIMEOUT"
)

// Outcome is the result of one task attempt.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Detail string        `json:"detail,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(detail string) Outcome { return Outcome{Status: OutcomeSuccess, Detail: detail} }

// Failed builds a failure outcome.
func Failed(detail string) Outcome { return Outcome{Status: OutcomeFailure, Detail: detail} }

// TaskFunc runs one attempt of a task. A non-nil error counts as a failed
// attempt; ctx carries the attempt's own timeout.
type TaskFunc func(ctx context.Context) (Outcome, error)

// RetryPolicy controls re-attempts of a failed task.
type RetryPolicy struct {
	MaxRetries int           `json:"max_retries"`
	BaseDelay  time.Duration `json:"base_delay"`
	Multiplier float64       `json:"multiplier"`
	MaxDelay   time.Duration `json:"max_delay"`
}

// NoRetry is a policy with a single attempt.
var NoRetry = RetryPolicy{}

// TaskSpec is the immutable description of a task.
type TaskSpec struct {
	ID          string
	DependsOn   []string
	TriggerRule TriggerRule
	Retry       RetryPolicy
	// Timeout bounds each attempt separately. Zero means no timeout.
	Timeout time.Duration
	Run     TaskFunc
	// Description is informational and shown by the plan endpoint.
	Description string
}

func (s TaskSpec) clone() TaskSpec {
	out := s
	out.DependsOn = append([]string(nil), s.DependsOn...)
	if out.TriggerRule == "" {
		out.TriggerRule = AllSuccess
	}
	return out
}
