//go:build !windows

package shutdown

import (
	"os"
	"syscall"
)

// SIGTERM comes from process managers and container runtimes, SIGINT from a
// terminal, SIGHUP from a closed controlling terminal.
var terminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}
