package retry

import (
	"context"
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// ErrorType represents the classification of an error.
type ErrorType int

const (
	// ErrorTypeUnknown represents errors that cannot be definitively classified.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient represents temporary errors that may succeed on retry.
	ErrorTypeTransient
	// ErrorTypePermanent represents errors that will not succeed even with retries.
	ErrorTypePermanent
)

// String returns the string representation of ErrorType.
func (e ErrorType) String() string {
	switch e {
	case ErrorTypeTransient:
		return "Transient"
	case ErrorTypePermanent:
		return "Permanent"
	default:
		return "Unknown"
	}
}

// ClassifyError decides whether a storage error is worth retrying.
// Only lock contention inside SQLite and timeouts are transient.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypePermanent // No error means no retry
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeTransient
	}
	if errors.Is(err, context.Canceled) {
		return ErrorTypePermanent
	}

	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		switch sqlErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return ErrorTypeTransient
		default:
			return ErrorTypePermanent
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range []string{"database is locked", "database table is locked", "timeout"} {
		if strings.Contains(errStr, pattern) {
			return ErrorTypeTransient
		}
	}

	return ErrorTypeUnknown
}

// IsRetryable returns true if the error is classified as transient.
func IsRetryable(err error) bool {
	return ClassifyError(err) == ErrorTypeTransient
}
