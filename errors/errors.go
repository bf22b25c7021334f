package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// HTTPStatus is the recommended HTTP status code for this error.
	HTTPStatus int `json:"-"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Retryable:  IsRetryableCode(code),
	}
}

// --- Configuration errors ---

// InvalidInput creates a new AppError for an invalid task or config value.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		HTTPStatus: http.StatusBadRequest, Retryable: false, Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidInput, Message: message,
		HTTPStatus: http.StatusBadRequest, Retryable: false,
	}
}

// DuplicateTask creates a new AppError for a task id registered twice.
func DuplicateTask(id string) *AppError {
	return &AppError{
		Code: ErrCodeDuplicateTask, Message: fmt.Sprintf("task %q is already registered", id),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"task_id": id},
	}
}

// UnknownTask creates a new AppError for a lookup of an unregistered task.
func UnknownTask(id string) *AppError {
	return &AppError{
		Code: ErrCodeUnknownTask, Message: fmt.Sprintf("task %q is not registered", id),
		HTTPStatus: http.StatusNotFound, Retryable: false,
		Details: map[string]any{"task_id": id},
	}
}

// UnknownDependency creates a new AppError for a dependency on an unregistered task.
func UnknownDependency(taskID, dependency string) *AppError {
	return &AppError{
		Code:       ErrCodeUnknownDependency,
		Message:    fmt.Sprintf("task %q depends on unknown task %q", taskID, dependency),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"task_id": taskID, "dependency": dependency},
	}
}

// CyclicDependency creates a new AppError describing the offending cycle.
func CyclicDependency(path []string) *AppError {
	return &AppError{
		Code:       ErrCodeCyclicDependency,
		Message:    fmt.Sprintf("dependency cycle detected: %s", strings.Join(path, " -> ")),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"cycle": path},
	}
}

// UnresolvableGraph creates a new AppError for tasks left over after layering.
func UnresolvableGraph(remaining []string) *AppError {
	return &AppError{
		Code:       ErrCodeUnresolvableGraph,
		Message:    fmt.Sprintf("%d task(s) could not be scheduled: %s", len(remaining), strings.Join(remaining, ", ")),
		HTTPStatus: http.StatusBadRequest, Retryable: false,
		Details: map[string]any{"remaining": remaining},
	}
}

// --- Execution errors ---

// TaskExecution creates a new AppError for a failed external command.
func TaskExecution(taskID, detail string) *AppError {
	return &AppError{
		Code: ErrCodeTaskExecution, Message: detail,
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"task_id": taskID},
	}
}

// Timeout creates a new AppError for an operation that timed out.
func Timeout(operation string) *AppError {
	return &AppError{
		Code: ErrCodeTimeout, Message: fmt.Sprintf("%s did not complete before its timeout", operation),
		HTTPStatus: http.StatusGatewayTimeout, Retryable: true,
		Details: map[string]any{"operation": operation},
	}
}

// Process creates a new AppError for a command runner failure.
func Process(runner string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeProcess, Message: fmt.Sprintf("%s runner failed", runner),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"runner": runner}, Cause: cause,
	}
}

// Cancelled creates a new AppError for a cancelled operation.
func Cancelled(operation string) *AppError {
	return &AppError{
		Code: ErrCodeCancelled, Message: fmt.Sprintf("%s cancelled", operation),
		HTTPStatus: http.StatusServiceUnavailable, Retryable: false,
	}
}

// --- Validation and delivery errors ---

// HealthCheckFailed creates a new AppError aggregating failed health checks.
func HealthCheckFailed(failures []string) *AppError {
	return &AppError{
		Code:       ErrCodeHealthCheckFailed,
		Message:    fmt.Sprintf("pipeline health check failed: %d error(s) found: %s", len(failures), strings.Join(failures, "; ")),
		HTTPStatus: http.StatusUnprocessableEntity, Retryable: false,
		Details: map[string]any{"failures": failures},
	}
}

// QueryFailed creates a new AppError for a probe that could not be executed.
func QueryFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeQueryFailed, Message: "data store query failed",
		HTTPStatus: http.StatusBadGateway, Retryable: true, Cause: cause,
	}
}

// DeliveryFailed creates a new AppError for a notification that was not delivered.
func DeliveryFailed(channel string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeDeliveryFailed, Message: fmt.Sprintf("failed to deliver notification via %s", channel),
		HTTPStatus: http.StatusBadGateway, Retryable: true,
		Details: map[string]any{"channel": channel}, Cause: cause,
	}
}

// --- Scheduling errors ---

// RunAlreadyActive creates a new AppError for a trigger rejected by the max-active-runs limit.
func RunAlreadyActive(pipelineID, activeRunID string) *AppError {
	return &AppError{
		Code:       ErrCodeRunAlreadyActive,
		Message:    fmt.Sprintf("pipeline %q already has an active run (%s)", pipelineID, activeRunID),
		HTTPStatus: http.StatusConflict, Retryable: false,
		Details: map[string]any{"pipeline_id": pipelineID, "active_run_id": activeRunID},
	}
}

// NotFound creates a new AppError for a resource that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		HTTPStatus: http.StatusNotFound, Retryable: false, Details: details,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Retryable: false, Cause: cause,
	}
}

// Unauthorized creates a new AppError for a request without valid credentials.
func Unauthorized(reason string) *AppError {
	return &AppError{
		Code: ErrCodeUnauthorized, Message: reason,
		HTTPStatus: http.StatusUnauthorized, Retryable: false,
	}
}

// RateLimited creates a new AppError for a request refused by a rate limiter.
func RateLimited(operation string) *AppError {
	return &AppError{
		Code: ErrCodeRateLimited, Message: fmt.Sprintf("too many %s requests", operation),
		HTTPStatus: http.StatusTooManyRequests, Retryable: true,
	}
}
