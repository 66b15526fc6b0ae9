package probe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/graceful/component"
	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/logger"
	"github.com/kbukum/graceful/shutdown"
)

type fakeState struct {
	ready atomic.Bool
	phase atomic.Value
}

func newFakeState(ready bool, phase shutdown.Phase) *fakeState {
	s := &fakeState{}
	s.ready.Store(ready)
	s.phase.Store(phase)
	return s
}

func (s *fakeState) IsReady() bool         { return s.ready.Load() }
func (s *fakeState) Phase() shutdown.Phase { return s.phase.Load().(shutdown.Phase) }

func get(t *testing.T, h http.Handler, path string) (int, map[string]interface{}) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, http.NoBody))

	var body map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON from %s: %v (%q)", path, err, rr.Body.String())
	}
	return rr.Code, body
}

func errorCode(body map[string]interface{}) string {
	e, _ := body["error"].(map[string]interface{})
	code, _ := e["code"].(string)
	return code
}

func TestLiveness(t *testing.T) {
	s := New(Config{}, "svc", newFakeState(false, shutdown.PhaseShuttingDown), nil, logger.Nop())
	code, body := get(t, s.Handler(), "/livez")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["status"] != "alive" || body["service"] != "svc" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestReadiness(t *testing.T) {
	healthy := func(ctx context.Context) []component.Health {
		return []component.Health{{Name: "db", Status: component.StatusHealthy}}
	}
	unhealthy := func(ctx context.Context) []component.Health {
		return []component.Health{{Name: "db", Status: component.StatusUnhealthy}}
	}

	tests := []struct {
		name     string
		ready    bool
		phase    shutdown.Phase
		checker  HealthChecker
		wantCode int
		wantErr  apperrors.ErrorCode
	}{
		{"ready", true, shutdown.PhaseIdle, healthy, http.StatusOK, ""},
		{"ready without checker", true, shutdown.PhaseIdle, nil, http.StatusOK, ""},
		{"starting", false, shutdown.PhaseIdle, healthy, http.StatusServiceUnavailable, apperrors.ErrCodeNotReady},
		{"unhealthy component", true, shutdown.PhaseIdle, unhealthy, http.StatusServiceUnavailable, apperrors.ErrCodeNotReady},
		{"shutting down", true, shutdown.PhaseShuttingDown, healthy, http.StatusServiceUnavailable, apperrors.ErrCodeShuttingDown},
		{"terminated", true, shutdown.PhaseTerminated, healthy, http.StatusServiceUnavailable, apperrors.ErrCodeShuttingDown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := New(Config{}, "svc", newFakeState(tc.ready, tc.phase), tc.checker, logger.Nop())
			code, body := get(t, s.Handler(), "/readyz")
			if code != tc.wantCode {
				t.Fatalf("expected %d, got %d (%v)", tc.wantCode, code, body)
			}
			if tc.wantErr == "" {
				if body["status"] != "ready" {
					t.Errorf("expected ready status, got %v", body)
				}
				return
			}
			if got := errorCode(body); got != string(tc.wantErr) {
				t.Errorf("expected error code %s, got %q", tc.wantErr, got)
			}
		})
	}
}

func TestStatus(t *testing.T) {
	checker := func(ctx context.Context) []component.Health {
		return []component.Health{{Name: "db", Status: component.StatusHealthy}}
	}
	s := New(Config{}, "svc", newFakeState(true, shutdown.PhaseShuttingDown), checker, logger.Nop())

	code, body := get(t, s.Handler(), "/status")
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if body["phase"] != string(shutdown.PhaseShuttingDown) {
		t.Errorf("expected shutting_down phase, got %v", body["phase"])
	}
	if body["ready"] != true {
		t.Errorf("expected ready true, got %v", body["ready"])
	}
	comps, _ := body["components"].([]interface{})
	if len(comps) != 1 {
		t.Errorf("expected one component, got %v", body["components"])
	}
}

func TestRequestIDHeader(t *testing.T) {
	s := New(Config{}, "svc", newFakeState(true, shutdown.PhaseIdle), nil, logger.Nop())

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/livez", http.NoBody)
	req.Header.Set("X-Request-Id", "abc-123")
	s.Handler().ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-Id"); got != "abc-123" {
		t.Errorf("expected request ID echoed, got %q", got)
	}

	rr = httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/livez", http.NoBody))
	if rr.Header().Get("X-Request-Id") == "" {
		t.Error("expected generated request ID")
	}
}

func TestRecoveryReturnsInternalError(t *testing.T) {
	panicking := func(ctx context.Context) []component.Health { panic("checker exploded") }
	s := New(Config{}, "svc", newFakeState(true, shutdown.PhaseIdle), panicking, logger.Nop())

	code, body := get(t, s.Handler(), "/status")
	if code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", code)
	}
	if got := errorCode(body); got != string(apperrors.ErrCodeInternal) {
		t.Errorf("expected INTERNAL_ERROR, got %q", got)
	}
}

func TestStartStop(t *testing.T) {
	cfg := Config{Host: "127.0.0.1", Port: 0}
	s := New(cfg, "svc", newFakeState(true, shutdown.PhaseIdle), nil, logger.Nop())

	if h := s.Health(context.Background()); h.Status != component.StatusUnhealthy {
		t.Errorf("expected unhealthy before start, got %s", h.Status)
	}
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if h := s.Health(context.Background()); h.Status != component.StatusHealthy {
		t.Errorf("expected healthy after start, got %s", h.Status)
	}

	resp, err := http.Get(fmt.Sprintf("http://%s/livez", s.Addr()))
	if err != nil {
		t.Fatalf("GET /livez: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := s.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}
}

func TestStartBindFailure(t *testing.T) {
	first := New(Config{Host: "127.0.0.1"}, "svc", newFakeState(true, shutdown.PhaseIdle), nil, logger.Nop())
	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer first.Stop(context.Background())

	_, port, _ := splitHostPort(first.Addr())
	second := New(Config{Host: "127.0.0.1", Port: port}, "svc", newFakeState(true, shutdown.PhaseIdle), nil, logger.Nop())
	if err := second.Start(context.Background()); err == nil {
		second.Stop(context.Background())
		t.Fatal("expected bind failure on a used port")
	}
}

func TestConfigDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Port != 8081 {
		t.Errorf("expected port 8081, got %d", cfg.Port)
	}
	if cfg.ReadTimeout != 5*time.Second {
		t.Errorf("expected 5s read timeout, got %s", cfg.ReadTimeout)
	}
}
