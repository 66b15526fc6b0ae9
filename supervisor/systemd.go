package supervisor

import (
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"github.com/coreos/go-systemd/v22/daemon"

	apperrors "github.com/kbukum/graceful/errors"
)

// Systemd sends sd_notify state changes to the socket named by NOTIFY_SOCKET.
type Systemd struct {
	quiet
	closed atomic.Bool
}

// NewSystemd returns a channel for the notification socket in the
// environment. The socket is dialed on every Notify.
func NewSystemd() (*Systemd, error) {
	if os.Getenv(EnvNotifySocket) == "" {
		return nil, apperrors.Supervisor("detect", errors.New(EnvNotifySocket+" is not set"))
	}
	return &Systemd{quiet: quiet{msgs: make(chan string)}}, nil
}

// Notify maps ready and stopping onto READY=1 and STOPPING=1. Any other
// message is sent as a STATUS line.
func (s *Systemd) Notify(msg string) error {
	if s.closed.Load() {
		return apperrors.Supervisor("notify", errors.New("channel closed"))
	}
	sent, err := daemon.SdNotify(false, notifyState(msg))
	if err != nil {
		return apperrors.Supervisor("notify", err)
	}
	if !sent {
		return apperrors.Supervisor("notify", errors.New(EnvNotifySocket+" is not set"))
	}
	return nil
}

// Close stops the channel. Later calls are no-ops.
func (s *Systemd) Close() error {
	s.closed.Store(true)
	s.stop()
	return nil
}

// Kind returns "systemd".
func (s *Systemd) Kind() string { return kindSystemd }

func notifyState(msg string) string {
	switch msg {
	case MessageReady:
		return "READY=1"
	case MessageStopping:
		return "STOPPING=1"
	default:
		return "STATUS=" + strings.ReplaceAll(msg, "\n", " ")
	}
}
