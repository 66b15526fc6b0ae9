package bootstrap

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/graceful/component"
	"github.com/kbukum/graceful/config"
	"github.com/kbukum/graceful/crash"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/shutdown"
)

// testConfig is a minimal config for testing that satisfies the Config interface.
type testConfig struct {
	config.ServiceConfig
}

func newTestConfig(name, version string) *testConfig {
	return &testConfig{
		ServiceConfig: config.ServiceConfig{
			Name:        name,
			Version:     version,
			Environment: "development",
		},
	}
}

// newTestApp builds an app with a silent logger and a fake supervisor
// channel, so tests never pick up the real environment.
func newTestApp(t *testing.T, opts ...Option) (*App[*testConfig], *fakeChannel) {
	t.Helper()
	ch := newFakeChannel()
	all := append([]Option{WithLogger(logger.Nop()), WithChannel(ch)}, opts...)
	app, err := NewApp(newTestConfig("test", "1.0"), all...)
	if err != nil {
		t.Fatalf("NewApp failed: %v", err)
	}
	return app, ch
}

// recorder is a goroutine-safe event log.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) hook(e string) Hook {
	return func(context.Context) error {
		r.add(e)
		return nil
	}
}

// mockComponent implements component.Component for testing.
type mockComponent struct {
	name     string
	startErr error
	stopErr  error
	health   component.Health
	rec      *recorder

	mu      sync.Mutex
	started bool
	stopped bool
}

func (m *mockComponent) Name() string { return m.name }

func (m *mockComponent) Start(ctx context.Context) error {
	m.mu.Lock()
	m.started = true
	m.mu.Unlock()
	if m.rec != nil {
		m.rec.add("start:" + m.name)
	}
	return m.startErr
}

func (m *mockComponent) Stop(ctx context.Context) error {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	if m.rec != nil {
		m.rec.add("stop:" + m.name)
	}
	return m.stopErr
}

func (m *mockComponent) Health(ctx context.Context) component.Health {
	return m.health
}

func (m *mockComponent) state() (started, stopped bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started, m.stopped
}

// fakeChannel is an in-memory supervisor channel.
type fakeChannel struct {
	mu     sync.Mutex
	sent   []string
	closed bool
	msgs   chan string
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{msgs: make(chan string, 4)}
}

func (f *fakeChannel) Notify(msg string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Messages() <-chan string { return f.msgs }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) Kind() string { return "fake" }

func (f *fakeChannel) notified() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// runAsync runs app.Run in a goroutine and waits for readiness.
func runAsync(t *testing.T, app *App[*testConfig], ctx context.Context) <-chan error {
	t.Helper()
	errc := make(chan error, 1)
	go func() { errc <- app.Run(ctx) }()

	deadline := time.Now().Add(5 * time.Second)
	for !app.IsReady() {
		if time.Now().After(deadline) {
			t.Fatal("app never became ready")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errc
}

func waitErr(t *testing.T, errc <-chan error) error {
	t.Helper()
	select {
	case err := <-errc:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
		return nil
	}
}

// countingReporter counts Flush calls.
type countingReporter struct {
	flushes atomic.Int32
}

func (r *countingReporter) Capture(context.Context, error) {}

func (r *countingReporter) Flush(context.Context) error {
	r.flushes.Add(1)
	return nil
}

// builtBy returns a reporter constructor that hands out r.
func (r *countingReporter) builtBy() func(context.Context, crash.Config) (shutdown.Reporter, error) {
	return func(context.Context, crash.Config) (shutdown.Reporter, error) { return r, nil }
}

type countingFlusher struct {
	flushes atomic.Int32
}

func (f *countingFlusher) ForceFlush(context.Context) error {
	f.flushes.Add(1)
	return nil
}
