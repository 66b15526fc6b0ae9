package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"time"
)

// detailStack is the Details key holding a recovered panic's stack.
const detailStack = "stack"

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
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

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// HasCode reports whether any error in err's chain is an AppError with code.
func HasCode(err error, code ErrorCode) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// --- Shutdown Error Constructors ---

// ShutdownTimeout creates an AppError for a shutdown that ran out of time.
func ShutdownTimeout(timeout time.Duration) *AppError {
	return &AppError{
		Code: ErrCodeShutdownTimeout, Message: fmt.Sprintf("graceful shutdown did not complete within %s", timeout),
		HTTPStatus: http.StatusServiceUnavailable,
		Details:    map[string]any{"timeout": timeout.String()},
	}
}

// CleanupFailed wraps an error returned by the cleanup action.
func CleanupFailed(cause error) *AppError {
	return &AppError{
		Code: ErrCodeCleanupFailed, Message: "cleanup failed",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// Panic creates an AppError from a recovered panic value and its stack.
// If the value is itself an error it becomes the cause.
func Panic(value any, stack []byte) *AppError {
	e := &AppError{
		Code: ErrCodePanic, Message: fmt.Sprintf("panic: %v", value),
		HTTPStatus: http.StatusInternalServerError,
		Details:    map[string]any{detailStack: string(stack)},
	}
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// UnhandledFailure wraps an error returned by detached background work.
func UnhandledFailure(cause error) *AppError {
	return &AppError{
		Code: ErrCodeUnhandledFailure, Message: "unhandled background failure",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}

// NotReady creates an AppError for a process that has not signalled readiness.
func NotReady() *AppError {
	return &AppError{
		Code: ErrCodeNotReady, Message: "The service is starting up.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// ShuttingDown creates an AppError for a process that is draining.
func ShuttingDown() *AppError {
	return &AppError{
		Code: ErrCodeShuttingDown, Message: "The service is shutting down.",
		HTTPStatus: http.StatusServiceUnavailable,
	}
}

// Supervisor wraps a failure talking to the supervisor channel.
func Supervisor(op string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeSupervisor, Message: fmt.Sprintf("supervisor channel %s failed", op),
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
		Details: map[string]any{"operation": op},
	}
}

// InvalidConfig creates an AppError for configuration that failed validation.
func InvalidConfig(message string) *AppError {
	return &AppError{
		Code: ErrCodeInvalidConfig, Message: message,
		HTTPStatus: http.StatusBadRequest,
	}
}

// Internal creates a new AppError for an internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		HTTPStatus: http.StatusInternalServerError, Cause: cause,
	}
}
