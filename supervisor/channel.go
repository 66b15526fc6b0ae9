package supervisor

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"sync"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
)

// Messages exchanged with the supervisor.
const (
	MessageReady    = "ready"
	MessageStopping = "stopping"
	MessageShutdown = "shutdown"
)

// Environment variables consulted by Detect.
const (
	EnvChannelFD    = "GRACEFUL_CHANNEL_FD"
	EnvNotifySocket = "NOTIFY_SOCKET"
)

// Channel is a connection to the supervisor.
type Channel interface {
	// Notify sends a message to the supervisor.
	Notify(msg string) error
	// Messages delivers inbound messages. It is closed when the channel
	// ends.
	Messages() <-chan string
	// Close releases the channel. It is safe to call more than once.
	Close() error
	// Kind names the transport: "pipe", "systemd" or "nop".
	Kind() string
}

// Detect returns the channel configured by the environment. The channel fd
// variable is removed from the environment once consumed so that child
// processes do not inherit it.
func Detect(log *logger.Logger) (Channel, error) {
	if log == nil {
		log = logger.WithComponent("supervisor")
	}

	if v := os.Getenv(EnvChannelFD); v != "" {
		fd, err := strconv.Atoi(v)
		if err != nil || fd < 0 {
			return nil, apperrors.Supervisor("detect", fmt.Errorf("invalid %s %q", EnvChannelFD, v))
		}
		f := os.NewFile(uintptr(fd), "supervisor-channel")
		if f == nil {
			return nil, apperrors.Supervisor("detect", fmt.Errorf("invalid channel fd %d", fd))
		}
		_ = os.Unsetenv(EnvChannelFD)
		log.Debug("Supervisor channel detected", logger.Fields("kind", kindPipe, "fd", fd))
		return NewPipe(fileConn(f), log), nil
	}

	if sock := os.Getenv(EnvNotifySocket); sock != "" {
		ch, err := NewSystemd()
		if err != nil {
			return nil, err
		}
		log.Debug("Supervisor channel detected", logger.Fields("kind", kindSystemd, "socket", sock))
		return ch, nil
	}

	return Nop(), nil
}

// fileConn prefers a net.Conn view of f so that Close interrupts a blocked
// read. Plain pipes fall back to the file itself.
func fileConn(f *os.File) io.ReadWriteCloser {
	if c, err := net.FileConn(f); err == nil {
		_ = f.Close()
		return c
	}
	return f
}

const (
	kindPipe    = "pipe"
	kindSystemd = "systemd"
	kindNop     = "nop"
)

// quiet is embedded by transports without inbound messages.
type quiet struct {
	once sync.Once
	msgs chan string
}

func (q *quiet) Messages() <-chan string { return q.msgs }

func (q *quiet) stop() {
	q.once.Do(func() { close(q.msgs) })
}

type nop struct {
	quiet
}

// Nop returns a Channel that discards notifications and never delivers
// messages.
func Nop() Channel {
	return &nop{quiet: quiet{msgs: make(chan string)}}
}

func (n *nop) Notify(string) error { return nil }

func (n *nop) Close() error {
	n.stop()
	return nil
}

func (n *nop) Kind() string { return kindNop }
