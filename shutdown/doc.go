// Package shutdown coordinates a process's graceful shutdown.
//
// A Coordinator owns the shutdown state and turns any number of concurrent
// triggers (termination signals, a supervisor "shutdown" message, recovered
// panics, fatal errors, unhandled background failures) into exactly one run
// of a cleanup action. The cleanup runs under a watchdog; whichever of
// cleanup completion and watchdog expiry comes first decides the exit. Every
// captured error is logged before the process exits, and the exit status is
// non-zero if any error was captured or the watchdog fired.
//
//	coord, err := shutdown.New(func(ctx context.Context) error {
//	    return server.Shutdown(ctx)
//	}, 15*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer coord.Recover()
//	coord.Arm(shutdown.Signals())
//
// Trigger sources are subscribed through Arm and return Subscription handles;
// all of them are closed before the exit function runs, so nothing fires
// twice during exit.
//
// States move idle → shutting_down → terminated and never back. A cleanup
// still running when the watchdog fires is abandoned: its context is
// cancelled, but the process exits without waiting for it, so resources it
// holds may not be released.
package shutdown
