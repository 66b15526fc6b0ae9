package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	apperrors "github.com/kbukum/graceful/errors"
	"github.com/kbukum/graceful/shutdown"
	"github.com/kbukum/graceful/supervisor"
)

const demoMainEnv = "GRACEFUL_DEMO_MAIN"

// TestMain lets the supervise tests re-execute this binary as the demo.
func TestMain(m *testing.M) {
	if os.Getenv(demoMainEnv) == "1" {
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv(supervisor.EnvChannelFD, "")
	t.Setenv(supervisor.EnvNotifySocket, "")

	out := &syncBuffer{}
	root := newRootCmd()
	root.SetOut(out)
	root.SetErr(out)
	root.SetArgs(args)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := root.ExecuteContext(ctx)
	return out.String(), err
}

// syncBuffer is shared by the command and a spawned child's output copier.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func codeOf(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return -1
	}
	return 0
}

func TestRunScenarios(t *testing.T) {
	tests := []struct {
		scenario string
		timeout  string
		wantCode int
		wantLog  string
	}{
		{scenarioClean, "2s", 0, "Cleanup finished"},
		{scenarioReject, "2s", 1, "cleanup rejected"},
		{scenarioHang, "100ms", 1, shutdown.LogTimedOut},
		{scenarioPanic, "2s", 1, "boom"},
		{scenarioUnhandled, "2s", 1, "background job failed"},
		{scenarioFatal, "2s", 1, "lost connection"},
	}
	for _, tc := range tests {
		t.Run(tc.scenario, func(t *testing.T) {
			out, err := execute(t, "run",
				"--scenario", tc.scenario,
				"--after", "10ms",
				"--drain", "10ms",
				"--timeout", tc.timeout,
				"--log-format", "json",
			)
			if got := codeOf(err); got != tc.wantCode {
				t.Fatalf("expected exit code %d, got %d (err %v)\n%s", tc.wantCode, got, err, out)
			}
			if !strings.Contains(out, shutdown.LogExiting) {
				t.Errorf("expected exiting line in output:\n%s", out)
			}
			if !strings.Contains(out, tc.wantLog) {
				t.Errorf("expected %q in output:\n%s", tc.wantLog, out)
			}
		})
	}
}

func TestRunUnknownScenario(t *testing.T) {
	_, err := execute(t, "run", "--scenario", "explode", "--log-format", "json")
	if err == nil || !strings.Contains(err.Error(), "unknown scenario") {
		t.Fatalf("expected unknown scenario error, got %v", err)
	}
}

func TestInvalidRejectionPolicy(t *testing.T) {
	_, err := execute(t, "run", "--rejection-policy", "ignore", "--log-format", "json")
	if !apperrors.HasCode(err, apperrors.ErrCodeInvalidConfig) {
		t.Fatalf("expected INVALID_CONFIG, got %v", err)
	}
}

func TestConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	yaml := "name: demo-from-file\nshutdown:\n  timeout: 3s\n  rejection_policy: crash\nprobe:\n  port: 9090\n"
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	root := newRootCmd()
	g := &globals{configFile: path, logFormat: "json"}
	cfg, _, err := g.load(root, &shutdownFlags{probePort: -1, timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Name != "demo-from-file" {
		t.Errorf("expected name from file, got %q", cfg.Name)
	}
	if cfg.Shutdown.Timeout != 5*time.Second {
		t.Errorf("expected flag to override the file timeout, got %s", cfg.Shutdown.Timeout)
	}
	if cfg.Shutdown.RejectionPolicy != "crash" {
		t.Errorf("expected crash policy, got %q", cfg.Shutdown.RejectionPolicy)
	}
	if cfg.Probe.Port != 9090 || cfg.Probe.Enabled {
		t.Errorf("expected disabled probe on 9090, got %+v", cfg.Probe)
	}
}

func TestProbePortZeroIsKept(t *testing.T) {
	root := newRootCmd()
	g := &globals{logFormat: "json"}
	cfg, _, err := g.load(root, &shutdownFlags{probePort: 0})
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if !cfg.Probe.Enabled || cfg.Probe.Port != 0 {
		t.Errorf("expected enabled probe on port 0, got %+v", cfg.Probe)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("version failed: %v", err)
	}
	if !strings.HasPrefix(out, serviceName+" ") {
		t.Errorf("unexpected output %q", out)
	}
}
