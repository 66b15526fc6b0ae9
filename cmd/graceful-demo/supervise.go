//go:build !windows

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/process"
)

type superviseOptions struct {
	after time.Duration
	grace time.Duration
	ready time.Duration
}

func newSuperviseCmd(g *globals) *cobra.Command {
	o := &superviseOptions{}
	cmd := &cobra.Command{
		Use:   "supervise [flags] -- [run flags]",
		Short: "Spawn \"run\" as a child and shut it down over the supervisor channel",
		Long: `Supervise starts this binary's run command as a child process connected
over a socket pair, waits for its "ready" message and then sends "shutdown",
either after --after or when the supervisor itself receives a signal. The
child is sent SIGTERM if it is still running after --grace.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := g.load(cmd, nil)
			if err != nil {
				return err
			}
			bin, err := os.Executable()
			if err != nil {
				return err
			}
			childArgs := append([]string{"run"}, g.forward()...)
			childArgs = append(childArgs, args...)
			return o.supervise(cmd, bin, childArgs, log)
		},
	}
	cmd.Flags().DurationVar(&o.after, "after", 0, "Send shutdown after this delay (0 waits for a signal)")
	cmd.Flags().DurationVar(&o.grace, "grace", 30*time.Second, "Time the child gets before SIGTERM")
	cmd.Flags().DurationVar(&o.ready, "ready-timeout", 10*time.Second, "Time the child gets to report ready")
	return cmd
}

// forward returns the persistent flags to pass on to the child.
func (g *globals) forward() []string {
	var args []string
	if g.configFile != "" {
		args = append(args, "--config", g.configFile)
	}
	if g.logLevel != "" {
		args = append(args, "--log-level", g.logLevel)
	}
	if g.logFormat != "" {
		args = append(args, "--log-format", g.logFormat)
	}
	return args
}

func (o *superviseOptions) supervise(cmd *cobra.Command, bin string, args []string, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	child, err := process.Spawn(context.WithoutCancel(ctx), process.Command{
		Binary:      bin,
		Args:        args,
		Stdout:      cmd.OutOrStdout(),
		Stderr:      cmd.ErrOrStderr(),
		GracePeriod: o.grace,
	}, log.WithComponent("supervisor"))
	if err != nil {
		return err
	}

	readyCtx, cancel := context.WithTimeout(ctx, o.ready)
	err = child.WaitReady(readyCtx)
	cancel()
	if err != nil {
		res, _ := child.Stop(context.Background())
		return fmt.Errorf("child not ready (exit code %d): %w", res.ExitCode, err)
	}
	log.Info("Child ready", logger.Fields("pid", child.Pid()))

	var after <-chan time.Time
	if o.after > 0 {
		after = time.After(o.after)
	}
	select {
	case <-after:
	case <-ctx.Done():
	case <-child.Done():
	}

	res, _ := child.Stop(context.Background())
	if res.Signal != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "child killed by %s after %s\n", res.Signal, res.Duration.Round(time.Millisecond))
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "child exited with code %d after %s\n", res.ExitCode, res.Duration.Round(time.Millisecond))
	}
	if res.ExitCode < 0 {
		// Killed by a signal.
		return exitStatus(1)
	}
	return exitStatus(res.ExitCode)
}
