package bootstrap

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kbukum/graceful/shutdown"
)

// ExitError reports a shutdown that finished with a non-zero exit code.
type ExitError struct {
	Code     int
	TimedOut bool
	// Errors holds every captured error, primary first.
	Errors []error
}

func (e *ExitError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "shutdown failed with exit code %d", e.Code)
	if e.TimedOut {
		b.WriteString(" (timed out)")
	}
	for i, err := range e.Errors {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Unwrap exposes the captured errors to errors.Is and errors.As.
func (e *ExitError) Unwrap() []error {
	return e.Errors
}

// ExitCode returns the exit code carried by err: 0 for nil, the shutdown's
// code for an *ExitError, 1 for any other error.
func ExitCode(err error) int {
	if err == nil {
		return shutdown.ExitCodeSuccess
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return shutdown.ExitCodeFailure
}

func exitError(st shutdown.State) error {
	if st.ExitCode == shutdown.ExitCodeSuccess {
		return nil
	}
	return &ExitError{Code: st.ExitCode, TimedOut: st.TimedOut, Errors: st.Errors()}
}
