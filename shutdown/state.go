package shutdown

import "time"

// Phase is the coordinator's position in its lifecycle.
type Phase string

const (
	// PhaseIdle is the initial phase; no trigger has been seen.
	PhaseIdle Phase = "idle"
	// PhaseShuttingDown means cleanup is running under the watchdog.
	PhaseShuttingDown Phase = "shutting_down"
	// PhaseTerminated is absorbing; the exit function has been called.
	PhaseTerminated Phase = "terminated"
)

// Exit codes passed to the exit function.
const (
	ExitCodeSuccess = 0
	ExitCodeFailure = 1
)

// State is the shutdown state owned by a single Coordinator.
type State struct {
	Phase     Phase
	ID        string
	Trigger   Trigger
	Primary   error
	Queued    []error
	TimedOut  bool
	StartedAt time.Time
	ExitCode  int

	watchdog *time.Timer
}

// Errors returns every captured error in capture order: the primary error
// first, then queued errors in arrival order.
func (s State) Errors() []error {
	errs := make([]error, 0, len(s.Queued)+1)
	if s.Primary != nil {
		errs = append(errs, s.Primary)
	}
	return append(errs, s.Queued...)
}

// Failed reports whether the process must exit with a failure status.
func (s State) Failed() bool {
	return s.Primary != nil || len(s.Queued) > 0 || s.TimedOut
}

// WatchdogArmed reports whether the watchdog timer is pending.
func (s State) WatchdogArmed() bool {
	return s.watchdog != nil
}

// snapshot returns a copy that shares no mutable memory with s.
func (s *State) snapshot() State {
	cp := *s
	cp.Queued = append([]error(nil), s.Queued...)
	return cp
}
