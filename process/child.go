//go:build !windows

package process

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/supervisor"
)

// childChannelFD is the descriptor number of the first ExtraFiles entry.
const childChannelFD = 3

const drainTimeout = time.Second

// Child is a running subprocess connected over a supervisor channel.
type Child struct {
	cmd   *exec.Cmd
	ch    supervisor.Channel
	log   *logger.Logger
	grace time.Duration
	start time.Time

	readyOnce    sync.Once
	ready        chan struct{}
	stoppingOnce sync.Once
	stopping     chan struct{}
	drained      chan struct{}

	done   chan struct{}
	result *Result
	err    error
}

// Spawn starts cmd with a supervisor channel on descriptor 3, advertised to
// the child through GRACEFUL_CHANNEL_FD. Cancelling ctx terminates the
// child's process group.
func Spawn(ctx context.Context, cmd Command, log *logger.Logger) (*Child, error) {
	if cmd.Binary == "" {
		return nil, fmt.Errorf("process: binary is required")
	}
	if log == nil {
		log = logger.WithComponent("process")
	}

	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, fmt.Errorf("process: socketpair: %w", err)
	}
	syscall.CloseOnExec(fds[0])
	syscall.CloseOnExec(fds[1])
	local := os.NewFile(uintptr(fds[0]), "supervisor")
	remote := os.NewFile(uintptr(fds[1]), "child-channel")

	cmd.Env = append(append([]string(nil), cmd.Env...), supervisor.EnvChannelFD+"="+strconv.Itoa(childChannelFD))
	c := command(ctx, cmd)
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr
	c.ExtraFiles = []*os.File{remote}

	conn, err := net.FileConn(local)
	_ = local.Close()
	if err != nil {
		_ = remote.Close()
		return nil, fmt.Errorf("process: channel: %w", err)
	}

	start := time.Now()
	if err := c.Start(); err != nil {
		_ = remote.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("process: start %s: %w", cmd.Binary, err)
	}
	_ = remote.Close()

	child := &Child{
		cmd:      c,
		log:      log.WithFields(logger.Fields("pid", c.Process.Pid)),
		grace:    cmd.grace(),
		start:    start,
		ready:    make(chan struct{}),
		stopping: make(chan struct{}),
		drained:  make(chan struct{}),
		done:     make(chan struct{}),
	}
	child.ch = supervisor.NewPipe(conn, child.log)
	go child.listen()
	go child.wait(ctx)

	child.log.Info("Child started", logger.Fields("binary", cmd.Binary))
	return child, nil
}

func (c *Child) listen() {
	defer close(c.drained)
	for msg := range c.ch.Messages() {
		c.log.Debug("Child message", logger.Fields("message", msg))
		switch msg {
		case supervisor.MessageReady:
			c.readyOnce.Do(func() { close(c.ready) })
		case supervisor.MessageStopping:
			c.stoppingOnce.Do(func() { close(c.stopping) })
		}
	}
}

func (c *Child) wait(ctx context.Context) {
	c.result, c.err = finish(ctx, c.cmd, c.cmd.Wait(), c.start)
	// Messages written just before exit are still buffered in the socket.
	// A grandchild holding the descriptor keeps it open, hence the bound.
	select {
	case <-c.drained:
	case <-time.After(drainTimeout):
	}
	_ = c.ch.Close()
	c.log.Info("Child exited", logger.Fields(logger.FieldExitCode, c.result.ExitCode))
	close(c.done)
}

// Pid returns the child's process ID.
func (c *Child) Pid() int { return c.cmd.Process.Pid }

// Ready is closed when the child reports ready.
func (c *Child) Ready() <-chan struct{} { return c.ready }

// Stopping is closed when the child reports it has begun shutting down.
func (c *Child) Stopping() <-chan struct{} { return c.stopping }

// Done is closed once the child has exited.
func (c *Child) Done() <-chan struct{} { return c.done }

// WaitReady blocks until the child reports ready. It fails if the child
// exits first or ctx ends.
func (c *Child) WaitReady(ctx context.Context) error {
	select {
	case <-c.ready:
		return nil
	case <-c.done:
		return fmt.Errorf("process: child exited before ready (exit code %d)", c.result.ExitCode)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown asks the child to shut down gracefully.
func (c *Child) Shutdown() error {
	return c.ch.Notify(supervisor.MessageShutdown)
}

// Signal sends sig to the child's process group.
func (c *Child) Signal(sig syscall.Signal) error {
	return signalGroup(c.Pid(), sig)
}

// Wait blocks until the child exits.
func (c *Child) Wait() (*Result, error) {
	<-c.done
	return c.result, c.err
}

// Stop sends "shutdown" and waits for the child to exit. The child's group
// gets SIGTERM once the grace period passes and SIGKILL when ctx ends.
func (c *Child) Stop(ctx context.Context) (*Result, error) {
	select {
	case <-c.done:
		return c.Wait()
	default:
	}

	if err := c.Shutdown(); err != nil {
		c.log.Warn("Shutdown message not delivered", logger.Fields(logger.FieldError, err.Error()))
	}

	grace := time.NewTimer(c.grace)
	defer grace.Stop()

	select {
	case <-c.done:
		return c.Wait()
	case <-grace.C:
		c.log.Warn("Child ignored shutdown, sending SIGTERM")
		c.kill(syscall.SIGTERM)
	case <-ctx.Done():
	}

	select {
	case <-c.done:
	case <-ctx.Done():
		c.log.Warn("Child still running, sending SIGKILL")
		c.kill(syscall.SIGKILL)
		<-c.done
	}
	return c.Wait()
}

func (c *Child) kill(sig syscall.Signal) {
	if err := c.Signal(sig); err != nil {
		c.log.Warn("Signal failed", logger.Fields(logger.FieldSignal, sig.String(), logger.FieldError, err.Error()))
	}
}
