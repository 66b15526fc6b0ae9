//go:build windows

package shutdown

import (
	"os"
	"syscall"
)

// The Go runtime delivers CTRL_C_EVENT and CTRL_BREAK_EVENT as os.Interrupt
// and console close, logoff and shutdown events as SIGTERM.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM}
