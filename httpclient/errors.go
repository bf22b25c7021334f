package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	ErrCodeTimeout ErrorCode = iota
	ErrCodeConnection
	ErrCodeAuth
	ErrCodeNotFound
	ErrCodeRateLimit
	// ErrCodeValidation covers other 4xx responses and requests that could
	// not be built.
	ErrCodeValidation
	ErrCodeServer
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeAuth:
		return "auth"
	case ErrCodeNotFound:
		return "not_found"
	case ErrCodeRateLimit:
		return "rate_limit"
	case ErrCodeValidation:
		return "validation"
	case ErrCodeServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is a classified HTTP client error.
type Error struct {
	// StatusCode is 0 for connection-level errors.
	StatusCode int
	Code       ErrorCode
	Message    string
	Retryable  bool
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("httpclient: %s (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("httpclient: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewTimeoutError wraps a request that ran out of time.
func NewTimeoutError(err error) *Error {
	return &Error{Code: ErrCodeTimeout, Message: err.Error(), Retryable: true, Err: err}
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(err error) *Error {
	return &Error{Code: ErrCodeConnection, Message: err.Error(), Retryable: true, Err: err}
}

// NewValidationError reports a request that could not be built.
func NewValidationError(msg string) *Error {
	return &Error{Code: ErrCodeValidation, Message: msg}
}

// ClassifyStatusCode converts a non-2xx status into a typed error and returns
// nil for 2xx. 429 and 5xx are retryable.
func ClassifyStatusCode(statusCode int, body []byte) *Error {
	e := &Error{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d", statusCode),
		Body:       body,
	}
	switch {
	case statusCode >= 200 && statusCode < 300:
		return nil
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		e.Code = ErrCodeAuth
	case statusCode == http.StatusNotFound:
		e.Code = ErrCodeNotFound
	case statusCode == http.StatusTooManyRequests:
		e.Code = ErrCodeRateLimit
		e.Retryable = true
	case statusCode >= 400 && statusCode < 500:
		e.Code = ErrCodeValidation
	case statusCode >= 500:
		e.Code = ErrCodeServer
		e.Retryable = true
	default:
		e.Code = ErrCodeServer
	}
	return e
}

// IsTimeout reports a timeout error.
func IsTimeout(err error) bool {
	return hasCode(err, ErrCodeTimeout)
}

// IsConnection reports a connection error.
func IsConnection(err error) bool {
	return hasCode(err, ErrCodeConnection)
}

// IsServerError reports a 5xx response.
func IsServerError(err error) bool {
	return hasCode(err, ErrCodeServer)
}

// IsRetryable reports whether err is a classified error worth retrying.
func IsRetryable(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Retryable
}

func hasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == code
}
