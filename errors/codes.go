package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Shutdown errors
const (
	// ErrCodeShutdownTimeout indicates the graceful shutdown exceeded its bound.
	ErrCodeShutdownTimeout ErrorCode = "SHUTDOWN_TIMEOUT"
	// ErrCodeCleanupFailed indicates the cleanup action returned an error.
	ErrCodeCleanupFailed ErrorCode = "CLEANUP_FAILED"
	// ErrCodePanic indicates a recovered panic.
	ErrCodePanic ErrorCode = "PANIC"
	// ErrCodeUnhandledFailure indicates background work failed with nobody waiting on it.
	ErrCodeUnhandledFailure ErrorCode = "UNHANDLED_FAILURE"
)

// Availability errors
const (
	// ErrCodeNotReady indicates the process has not signalled readiness yet.
	ErrCodeNotReady ErrorCode = "NOT_READY"
	// ErrCodeShuttingDown indicates the process is draining and will exit.
	ErrCodeShuttingDown ErrorCode = "SHUTTING_DOWN"
	// ErrCodeSupervisor indicates the supervisor channel could not be used.
	ErrCodeSupervisor ErrorCode = "SUPERVISOR_ERROR"
)

// Configuration errors
const (
	// ErrCodeInvalidConfig indicates configuration failed validation.
	ErrCodeInvalidConfig ErrorCode = "INVALID_CONFIG"
)

// Internal errors
const (
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)
