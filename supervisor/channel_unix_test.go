//go:build !windows

package supervisor

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"syscall"
	"testing"
	"time"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
)

func TestDetectChannelFD(t *testing.T) {
	fds, err := syscall.Socketpair(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		t.Fatalf("socketpair: %v", err)
	}
	peer := os.NewFile(uintptr(fds[1]), "peer")
	defer peer.Close()

	t.Setenv(EnvNotifySocket, "")
	t.Setenv(EnvChannelFD, strconv.Itoa(fds[0]))

	ch, err := Detect(logger.Nop())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	defer ch.Close()

	if ch.Kind() != "pipe" {
		t.Fatalf("expected pipe, got %q", ch.Kind())
	}
	if v, ok := os.LookupEnv(EnvChannelFD); ok && v != "" {
		t.Errorf("expected %s to be cleared, got %q", EnvChannelFD, v)
	}

	if _, err := peer.WriteString("\"shutdown\"\n"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg, _ := receive(t, ch); msg != MessageShutdown {
		t.Errorf("expected shutdown, got %q", msg)
	}

	if err := ch.Notify(MessageReady); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	line, err := bufio.NewReader(peer).ReadString('\n')
	if err != nil || line != "\"ready\"\n" {
		t.Errorf("unexpected line %q (err: %v)", line, err)
	}
}

func listenNotify(t *testing.T) (*net.UnixConn, string) {
	t.Helper()
	// Unix socket paths are length-limited; keep the directory short.
	dir, err := os.MkdirTemp("", "sd")
	if err != nil {
		t.Fatalf("tempdir: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	path := filepath.Join(dir, "notify.sock")
	ln, err := net.ListenUnixgram("unixgram", &net.UnixAddr{Name: path, Net: "unixgram"})
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })
	return ln, path
}

func readDatagram(t *testing.T, ln *net.UnixConn) string {
	t.Helper()
	_ = ln.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, 256)
	n, _, err := ln.ReadFromUnix(buf)
	if err != nil {
		t.Fatalf("read datagram: %v", err)
	}
	return string(buf[:n])
}

func TestSystemdNotify(t *testing.T) {
	ln, path := listenNotify(t)
	t.Setenv(EnvNotifySocket, path)

	ch, err := NewSystemd()
	if err != nil {
		t.Fatalf("NewSystemd failed: %v", err)
	}
	defer ch.Close()

	if err := ch.Notify(MessageReady); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got := readDatagram(t, ln); got != "READY=1" {
		t.Errorf("expected READY=1, got %q", got)
	}
	if err := ch.Notify(MessageStopping); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got := readDatagram(t, ln); got != "STOPPING=1" {
		t.Errorf("expected STOPPING=1, got %q", got)
	}
	if err := ch.Notify("draining\nconnections"); err != nil {
		t.Fatalf("Notify failed: %v", err)
	}
	if got := readDatagram(t, ln); got != "STATUS=draining connections" {
		t.Errorf("expected a single STATUS line, got %q", got)
	}
}

func TestDetectNotifySocket(t *testing.T) {
	_, path := listenNotify(t)
	t.Setenv(EnvChannelFD, "")
	t.Setenv(EnvNotifySocket, path)

	ch, err := Detect(logger.Nop())
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	defer ch.Close()
	if ch.Kind() != "systemd" {
		t.Errorf("expected systemd, got %q", ch.Kind())
	}
}

func TestNewSystemdWithoutSocket(t *testing.T) {
	t.Setenv(EnvNotifySocket, "")
	_, err := NewSystemd()
	if !apperrors.HasCode(err, apperrors.ErrCodeSupervisor) {
		t.Fatalf("expected SUPERVISOR error, got %v", err)
	}
}

func TestSystemdNotifyMissingSocket(t *testing.T) {
	t.Setenv(EnvNotifySocket, filepath.Join(os.TempDir(), "does-not-exist.sock"))
	ch, err := NewSystemd()
	if err != nil {
		t.Fatalf("NewSystemd failed: %v", err)
	}
	defer ch.Close()
	if err := ch.Notify(MessageReady); !apperrors.HasCode(err, apperrors.ErrCodeSupervisor) {
		t.Fatalf("expected SUPERVISOR error, got %v", err)
	}
}

func TestSystemdCloseTwice(t *testing.T) {
	_, path := listenNotify(t)
	t.Setenv(EnvNotifySocket, path)

	ch, err := NewSystemd()
	if err != nil {
		t.Fatalf("NewSystemd failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, ok := <-ch.Messages(); ok {
		t.Error("expected Messages to be closed")
	}
	if err := ch.Notify(MessageStopping); err == nil {
		t.Error("expected Notify after Close to fail")
	}
}
