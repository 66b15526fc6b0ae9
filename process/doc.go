// Package process launches subprocesses.
//
// Run executes a command to completion and captures its output. Spawn starts
// a long-running child connected over a supervisor channel, so the parent can
// wait for the child's "ready" message and ask it to shut down gracefully:
//
//	child, err := process.Spawn(ctx, process.Command{Binary: "./server"}, log)
//	if err != nil {
//	    return err
//	}
//	if err := child.WaitReady(ctx); err != nil {
//	    return err
//	}
//	res, err := child.Stop(ctx) // "shutdown", then SIGTERM after the grace period
//
// Children run in their own process group; signals go to the whole group.
package process
