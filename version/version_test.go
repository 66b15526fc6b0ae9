package version

import (
	"runtime/debug"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "1.2.0"}, "1.2.0"},
		{"with commit", Info{Version: "1.2.0", GitCommit: "abc1234"}, "1.2.0-abc1234"},
		{"dirty", Info{Version: "dev", GitCommit: "abc1234", Dirty: true}, "dev-abc1234-dirty"},
		{"dirty without commit", Info{Version: "dev", Dirty: true}, "dev"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.info.Short(); got != tc.want {
				t.Errorf("Short() = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	info := Info{Version: "1.0.0", GitCommit: "abc1234", GoVersion: "go1.26.0", BuildTime: "2026-01-02T03:04:05Z"}
	want := "1.0.0-abc1234 (go1.26.0, built 2026-01-02T03:04:05Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := (Info{Version: "dev"}).String(); got != "dev" {
		t.Errorf("String() = %q, want dev", got)
	}
}

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.26.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}

	var info Info
	fromBuildInfo(&info, bi)
	if info.GitCommit != "0123456" {
		t.Errorf("expected truncated commit, got %q", info.GitCommit)
	}
	if info.BuildTime != "2026-01-02T03:04:05Z" || !info.Dirty || info.GoVersion != "go1.26.0" {
		t.Errorf("unexpected info %+v", info)
	}

	linked := Info{GitCommit: "feedbee", BuildTime: "link-time"}
	fromBuildInfo(&linked, bi)
	if linked.GitCommit != "feedbee" || linked.BuildTime != "link-time" {
		t.Errorf("build info must not override link-time values, got %+v", linked)
	}
}

func TestGetDefaultsToDev(t *testing.T) {
	if got := Get().Version; got != Version {
		t.Errorf("expected %q, got %q", Version, got)
	}
}
