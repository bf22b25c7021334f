// Package notify sends the single terminal message of a pipeline run.
//
// Notifier subscribes to the engine as a dag.Observer. A succeeded run gets
// the green success message; a failed run gets the red failure message
// naming the responsible task, which is "health_check" when the gate failed.
// Each run id is notified at most once and delivery errors are only logged.
package notify
