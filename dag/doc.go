// Package dag resolves and executes a fixed graph of named tasks.
//
// A Registry holds immutable TaskSpecs and validates the dependency
// relation on Finalize. BuildPlan layers the graph into ready sets with
// Kahn's algorithm. The Engine walks the plan one ready set at a time,
// evaluating each task's TriggerRule against its dependencies' terminal
// states, retrying failed attempts with deterministic backoff and running
// an optional Gate once every gated task has succeeded.
//
// Observers receive every terminal task transition and exactly one
// RunFinished call per PipelineRun.
package dag
