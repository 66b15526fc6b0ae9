package process

import "time"

// Result describes how a subprocess ended.
type Result struct {
	// Stdout is the captured standard output. Empty for spawned children.
	Stdout []byte
	// Stderr is the captured standard error. Empty for spawned children.
	Stderr []byte
	// ExitCode is the exit status, or -1 if a signal ended the process.
	ExitCode int
	// Signal names the terminating signal. Empty on a normal exit.
	Signal string
	// Duration is the time from start to reap.
	Duration time.Duration
}

// Clean reports whether the process exited on its own with status 0.
func (r *Result) Clean() bool {
	return r != nil && r.ExitCode == 0 && r.Signal == ""
}
