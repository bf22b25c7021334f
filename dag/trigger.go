package dag

import "fmt"

// Decision is the result of evaluating a trigger rule.
type Decision struct {
	Run bool
	// Reason explains a skip.
	Reason string
}

// EvaluateTrigger decides whether a task with rule runs, given the states of
// its direct dependencies keyed by dependency id. It is only meaningful once
// every dependency is terminal; a non-terminal dependency yields a skip.
func EvaluateTrigger(rule TriggerRule, deps map[string]TaskState) Decision {
	for _, id := range sortedKeys(deps) {
		if st := deps[id]; !st.Terminal() {
			return Decision{Reason: fmt.Sprintf("dependency %s is %s", id, st)}
		}
	}

	switch rule {
	case AllDone:
		return Decision{Run: true}
	case AllSuccess, "":
		for _, id := range sortedKeys(deps) {
			if st := deps[id]; st != StateSuccess {
				return Decision{Reason: fmt.Sprintf("upstream %s is %s", id, st)}
			}
		}
		return Decision{Run: true}
	default:
		return Decision{Reason: fmt.Sprintf("unknown trigger rule %s", rule)}
	}
}
