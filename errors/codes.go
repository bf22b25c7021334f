package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Configuration errors (fatal at plan-build time)
const (
	// ErrCodeInvalidInput indicates a task or config value is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeDuplicateTask indicates a task id was registered twice.
	ErrCodeDuplicateTask ErrorCode = "DUPLICATE_TASK"
	// ErrCodeUnknownTask indicates a lookup for a task id that is not registered.
	ErrCodeUnknownTask ErrorCode = "UNKNOWN_TASK"
	// ErrCodeUnknownDependency indicates a task depends on an id that was never registered.
	ErrCodeUnknownDependency ErrorCode = "UNKNOWN_DEPENDENCY"
	// ErrCodeCyclicDependency indicates the dependency relation contains a cycle.
	ErrCodeCyclicDependency ErrorCode = "CYCLIC_DEPENDENCY"
	// ErrCodeUnresolvableGraph indicates layering left tasks with unresolved dependencies.
	ErrCodeUnresolvableGraph ErrorCode = "UNRESOLVABLE_GRAPH"
)

// Execution errors
const (
	// ErrCodeTaskExecution indicates the external command failed.
	ErrCodeTaskExecution ErrorCode = "TASK_EXECUTION_FAILED"
	// ErrCodeTimeout indicates an attempt did not finish within its timeout.
	ErrCodeTimeout ErrorCode = "TIMEOUT"
	// ErrCodeProcess indicates the command runner itself failed (not the command).
	ErrCodeProcess ErrorCode = "PROCESS_ERROR"
	// ErrCodeCancelled indicates the pipeline run was cancelled.
	ErrCodeCancelled ErrorCode = "CANCELLED"
)

// Validation and delivery errors
const (
	// ErrCodeHealthCheckFailed indicates at least one post-run health check failed.
	ErrCodeHealthCheckFailed ErrorCode = "HEALTH_CHECK_FAILED"
	// ErrCodeQueryFailed indicates a health probe could not be executed.
	ErrCodeQueryFailed ErrorCode = "QUERY_FAILED"
	// ErrCodeDeliveryFailed indicates a notification could not be delivered.
	ErrCodeDeliveryFailed ErrorCode = "DELIVERY_FAILED"
)

// Scheduling errors
const (
	// ErrCodeRunAlreadyActive indicates a trigger arrived while a run was in progress.
	ErrCodeRunAlreadyActive ErrorCode = "RUN_ALREADY_ACTIVE"
	// ErrCodeNotFound indicates a run or resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// API errors
const (
	// ErrCodeUnauthorized indicates a missing or wrong API token.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeRateLimited indicates too many API calls from one client.
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeTaskExecution:  true,
	ErrCodeTimeout:        true,
	ErrCodeProcess:        true,
	ErrCodeQueryFailed:    true,
	ErrCodeDeliveryFailed: true,
	ErrCodeRateLimited:    true,
	ErrCodeInternal:       false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}

// IsConfigurationCode reports whether code belongs to the configuration class,
// i.e. errors that prevent a pipeline from ever starting.
func IsConfigurationCode(code ErrorCode) bool {
	switch code {
	case ErrCodeInvalidInput, ErrCodeDuplicateTask, ErrCodeUnknownTask,
		ErrCodeUnknownDependency, ErrCodeCyclicDependency, ErrCodeUnresolvableGraph:
		return true
	}
	return false
}
