//go:build !windows

package process

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"
)

// Run executes a subprocess and waits for it to complete.
// If the context is canceled, SIGTERM is sent first, then SIGKILL after GracePeriod.
func Run(ctx context.Context, cmd Command) (*Result, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}

	c := command(ctx, cmd)

	var stdout, stderr bytes.Buffer
	c.Stdout = tee(&stdout, cmd.Stdout)
	c.Stderr = tee(&stderr, cmd.Stderr)

	start := time.Now()
	res, err := finish(ctx, c, c.Run(), start)
	res.Stdout = stdout.Bytes()
	res.Stderr = stderr.Bytes()
	return res, err
}

// command builds an exec.Cmd in its own process group. Cancelling ctx sends
// SIGTERM to the group; the kill follows after the grace period.
func command(ctx context.Context, cmd Command) *exec.Cmd {
	c := exec.CommandContext(ctx, cmd.Binary, cmd.Args...) //nolint:gosec // dynamic args are the purpose of this package
	c.Dir = cmd.Dir
	c.Env = mergeEnv(cmd.Env)
	if cmd.Stdin != nil {
		c.Stdin = cmd.Stdin
	}

	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		return signalGroup(c.Process.Pid, syscall.SIGTERM)
	}
	c.WaitDelay = cmd.grace()
	return c
}

func finish(ctx context.Context, c *exec.Cmd, err error, start time.Time) (*Result, error) {
	result := &Result{
		ExitCode: c.ProcessState.ExitCode(),
		Duration: time.Since(start),
	}
	if ws, ok := waitStatus(c); ok && ws.Signaled() {
		result.Signal = ws.Signal().String()
	}
	if err != nil {
		// Context cancellation is the expected way to kill a process
		if ctx.Err() != nil {
			return result, fmt.Errorf("process: killed by context: %w", ctx.Err())
		}
		return result, fmt.Errorf("process: exit code %d: %w", result.ExitCode, err)
	}
	return result, nil
}

func waitStatus(c *exec.Cmd) (syscall.WaitStatus, bool) {
	if c.ProcessState == nil {
		return 0, false
	}
	ws, ok := c.ProcessState.Sys().(syscall.WaitStatus)
	return ws, ok
}

func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if err == syscall.ESRCH {
		return nil
	}
	return err
}

func tee(buf *bytes.Buffer, w io.Writer) io.Writer {
	if w == nil {
		return buf
	}
	return io.MultiWriter(buf, w)
}

// mergeEnv merges additional env vars with the current environment.
func mergeEnv(extra []string) []string {
	if len(extra) == 0 {
		return nil // inherit parent env
	}
	env := os.Environ()
	return append(env, extra...)
}
