package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeNotFound, "not found", http.StatusNotFound)
	if err.Code != ErrCodeNotFound {
		t.Errorf("expected code %s, got %s", ErrCodeNotFound, err.Code)
	}
	if err.Message != "not found" {
		t.Errorf("expected message 'not found', got %q", err.Message)
	}
	if err.HTTPStatus != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, err.HTTPStatus)
	}
	if err.Retryable {
		t.Error("NOT_FOUND should not be retryable")
	}
}

func TestAppError_New_Retryable(t *testing.T) {
	err := New(ErrCodeTimeout, "timed out", http.StatusGatewayTimeout)
	if !err.Retryable {
		t.Error("TIMEOUT should be retryable")
	}
}

func TestAppError_DuplicateTask(t *testing.T) {
	err := DuplicateTask("run_bronze_layer")
	if err.Code != ErrCodeDuplicateTask {
		t.Errorf("expected DUPLICATE_TASK, got %s", err.Code)
	}
	if err.Details["task_id"] != "run_bronze_layer" {
		t.Errorf("expected task_id detail, got %v", err.Details["task_id"])
	}
	if !IsConfigurationCode(err.Code) {
		t.Error("DUPLICATE_TASK should be a configuration error")
	}
}

func TestAppError_CyclicDependency_Message(t *testing.T) {
	err := CyclicDependency([]string{"a", "b", "a"})
	if !strings.Contains(err.Message, "a -> b -> a") {
		t.Errorf("expected cycle path in message, got %q", err.Message)
	}
}

func TestAppError_UnresolvableGraph(t *testing.T) {
	err := UnresolvableGraph([]string{"x", "y"})
	if !strings.HasPrefix(err.Message, "2 task(s)") {
		t.Errorf("unexpected message %q", err.Message)
	}
	if !IsConfigurationCode(err.Code) {
		t.Error("UNRESOLVABLE_GRAPH should be a configuration error")
	}
}

func TestAppError_HealthCheckFailed_ListsFailures(t *testing.T) {
	err := HealthCheckFailed([]string{"silver is empty", "3 orphaned records"})
	if !strings.Contains(err.Message, "2 error(s)") {
		t.Errorf("expected count in message, got %q", err.Message)
	}
	if !strings.Contains(err.Message, "silver is empty; 3 orphaned records") {
		t.Errorf("expected joined failures, got %q", err.Message)
	}
}

func TestAppError_RunAlreadyActive(t *testing.T) {
	err := RunAlreadyActive("dbt_dataops_pipeline", "run-1")
	if err.HTTPStatus != http.StatusConflict {
		t.Errorf("expected 409, got %d", err.HTTPStatus)
	}
	if IsConfigurationCode(err.Code) {
		t.Error("RUN_ALREADY_ACTIVE is not a configuration error")
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := DeliveryFailed("webhook", cause)
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in Error(), got %q", err.Error())
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := NotFound("run", "1").WithDetails(map[string]any{"extra": true})
	if err.Details["resource"] != "run" {
		t.Error("original details should be preserved")
	}
	if err.Details["extra"] != true {
		t.Error("new details should be merged")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := Cancelled("pipeline run").WithDetail("reason", "signal")
	if err.Details["reason"] != "signal" {
		t.Errorf("expected reason detail, got %v", err.Details)
	}
}

func TestErrorCode_IsRetryableCode_Table(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want bool
	}{
		{ErrCodeTaskExecution, true},
		{ErrCodeTimeout, true},
		{ErrCodeDeliveryFailed, true},
		{ErrCodeCyclicDependency, false},
		{ErrCodeHealthCheckFailed, false},
		{ErrCodeInternal, false},
	}
	for _, tt := range tests {
		if got := IsRetryableCode(tt.code); got != tt.want {
			t.Errorf("IsRetryableCode(%s) = %v, want %v", tt.code, got, tt.want)
		}
	}
}

func TestAppError_ToResponse_Success(t *testing.T) {
	resp := UnknownTask("gold").ToResponse()
	if resp.Error.Code != ErrCodeUnknownTask {
		t.Errorf("expected UNKNOWN_TASK, got %s", resp.Error.Code)
	}
	if resp.Error.Details["task_id"] != "gold" {
		t.Errorf("expected task_id detail, got %v", resp.Error.Details)
	}
}

func TestIsCode_Wrapped(t *testing.T) {
	err := fmt.Errorf("finalize: %w", CyclicDependency([]string{"a", "a"}))
	if !IsCode(err, ErrCodeCyclicDependency) {
		t.Error("expected IsCode to see through wrapping")
	}
	if IsCode(err, ErrCodeDuplicateTask) {
		t.Error("expected IsCode to reject a different code")
	}
	if IsCode(fmt.Errorf("plain"), ErrCodeInternal) {
		t.Error("expected IsCode false for non-AppError")
	}
}

func TestWrap_NilReturnsNil(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrap_AppErrorPassthrough(t *testing.T) {
	orig := NotFound("run", "1")
	if got := Wrap(orig); got != orig {
		t.Error("Wrap should return the original AppError unchanged")
	}
}

func TestWrap_PlainError(t *testing.T) {
	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}
