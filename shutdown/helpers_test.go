package shutdown

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/graceful/logger"
)

// syncBuffer is a goroutine-safe log sink.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// entries decodes every JSON log line written so far.
func (b *syncBuffer) entries(t *testing.T) []map[string]interface{} {
	t.Helper()
	b.mu.Lock()
	data := append([]byte(nil), b.buf.Bytes()...)
	b.mu.Unlock()

	var out []map[string]interface{}
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		var e map[string]interface{}
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			t.Fatalf("invalid log line %q: %v", sc.Text(), err)
		}
		out = append(out, e)
	}
	return out
}

// messages returns entries whose message equals msg.
func (b *syncBuffer) messages(t *testing.T, msg string) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, e := range b.entries(t) {
		if e["message"] == msg {
			out = append(out, e)
		}
	}
	return out
}

// exitRecorder captures the code passed to the exit function.
type exitRecorder struct {
	codes chan int
}

func newExitRecorder() *exitRecorder {
	return &exitRecorder{codes: make(chan int, 4)}
}

func (r *exitRecorder) exit(code int) { r.codes <- code }

func (r *exitRecorder) wait(t *testing.T, within time.Duration) int {
	t.Helper()
	select {
	case code := <-r.codes:
		return code
	case <-time.After(within):
		t.Fatalf("process did not exit within %s", within)
		return -1
	}
}

type harness struct {
	coord *Coordinator
	exits *exitRecorder
	logs  *syncBuffer
}

func newHarness(t *testing.T, cleanup Cleanup, timeout time.Duration, opts ...Option) *harness {
	t.Helper()
	h := &harness{exits: newExitRecorder(), logs: &syncBuffer{}}
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: logger.FormatJSON}, "test", h.logs)
	all := append([]Option{WithLogger(log), WithExit(h.exits.exit)}, opts...)

	coord, err := New(cleanup, timeout, all...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	h.coord = coord
	return h
}

// fakeSource is a Source the test fires by hand.
type fakeSource struct {
	mu        sync.Mutex
	fire      func(Trigger)
	closed    bool
	failWith  error
	subscribe int
}

func (f *fakeSource) Subscribe(fire func(Trigger)) (Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribe++
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.fire = fire
	return SubscriptionFunc(func() error {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.closed = true
		return nil
	}), nil
}

func (f *fakeSource) Fire(t Trigger) {
	f.mu.Lock()
	fire, closed := f.fire, f.closed
	f.mu.Unlock()
	if fire != nil && !closed {
		fire(t)
	}
}

func (f *fakeSource) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// recordingReporter stores captured errors.
type recordingReporter struct {
	mu       sync.Mutex
	captured []error
	flushed  int
	flushErr error
	onFlush  func()
}

func (r *recordingReporter) Capture(_ context.Context, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captured = append(r.captured, err)
}

func (r *recordingReporter) Flush(_ context.Context) error {
	r.mu.Lock()
	r.flushed++
	err, hook := r.flushErr, r.onFlush
	r.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

// countingFlusher counts ForceFlush calls and runs an optional hook first.
type countingFlusher struct {
	flushes atomic.Int32
	before  func()
	err     error
}

func (f *countingFlusher) ForceFlush(context.Context) error {
	if f.before != nil {
		f.before()
	}
	f.flushes.Add(1)
	return f.err
}

var errSubscribe = errors.New("subscribe failed")
