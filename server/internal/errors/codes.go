package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a specific error type for engine operations.
type ErrorCode string

const (
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeStoreUnavailable indicates the progress store could not be read or written.
	ErrCodeStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ErrCodeRecordConflict indicates a concurrent write won every retry.
	ErrCodeRecordConflict ErrorCode = "RECORD_CONFLICT"
	// ErrCodeContextCanceled indicates the operation was canceled.
	ErrCodeContextCanceled ErrorCode = "CONTEXT_CANCELED"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeNotFound indicates the learner has no record for the item.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// EngineError represents a structured error for scheduling operations.
type EngineError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *EngineError) WithContext(key string, value any) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *EngineError) GetCode() ErrorCode {
	return e.Code
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *EngineError {
	return &EngineError{Code: ErrCodeInvalidArgument, Message: msg}
}

// InvalidArgumentf is InvalidArgument with formatting.
func InvalidArgumentf(format string, args ...any) *EngineError {
	return InvalidArgument(fmt.Sprintf(format, args...))
}

// StoreUnavailable creates a store unavailable error.
func StoreUnavailable(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeStoreUnavailable, Message: msg, Cause: cause}
}

// RecordConflict creates a record conflict error.
func RecordConflict(msg string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeRecordConflict, Message: msg, Cause: cause}
}

// ContextCanceled creates a context canceled error.
func ContextCanceled(cause error) *EngineError {
	return &EngineError{Code: ErrCodeContextCanceled, Message: "operation canceled", Cause: cause}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *EngineError {
	return &EngineError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// NotFound creates a not found error.
func NotFound(msg string) *EngineError {
	return &EngineError{Code: ErrCodeNotFound, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *EngineError {
	return &EngineError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or anything it wraps, carries code.
func IsCode(err error, code ErrorCode) bool {
	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if no EngineError is in the chain.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var engineErr *EngineError
	if stderrors.As(err, &engineErr) {
		return engineErr.Code
	}
	return defaultCode
}

// HTTPStatus maps a code onto the status the HTTP API responds with.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidArgument:
		return http.StatusBadRequest
	case ErrCodeStoreUnavailable, ErrCodeContextCanceled:
		return http.StatusServiceUnavailable
	case ErrCodeRecordConflict:
		return http.StatusConflict
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
