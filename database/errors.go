package database

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/tienminhktvn/dataops-project/errors"
)

// IsConnectionError reports whether err looks like a lost or refused
// connection rather than a bad query.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	patterns := []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no route to host",
		"network is unreachable",
		"connection closed",
		"driver: bad connection",
		"database is closed",
	}
	for _, p := range patterns {
		if strings.Contains(errStr, p) {
			return true
		}
	}
	return false
}

// FromDatabase converts a driver error into a QUERY_FAILED AppError. The
// message says whether the store was unreachable or the query itself failed.
func FromDatabase(err error) *apperrors.AppError {
	if err == nil {
		return nil
	}
	appErr := apperrors.QueryFailed(err)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		appErr.Message = "data store query timed out"
	case IsConnectionError(err):
		appErr.Message = "data store unavailable"
	default:
		appErr.Retryable = false
	}
	return appErr
}
