// Package version reports the build version of a binary.
//
// Values are set at link time and fall back to the VCS stamp of the module
// build:
//
//	go build -ldflags "-X github.com/kbukum/graceful/version.Version=1.2.0"
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time using -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the version of the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty,omitempty"`
}

// Get returns the version of the running binary.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
	if bi, ok := debug.ReadBuildInfo(); ok {
		fromBuildInfo(&info, bi)
	}
	return info
}

func fromBuildInfo(info *Info, bi *debug.BuildInfo) {
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
				if len(info.GitCommit) > 7 {
					info.GitCommit = info.GitCommit[:7]
				}
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
}

// Short returns the version with the commit appended, e.g. "1.2.0-abc1234".
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	v := i.Version + "-" + i.GitCommit
	if i.Dirty {
		v += "-dirty"
	}
	return v
}

// String returns a one-line description for --version output.
func (i Info) String() string {
	var extra []string
	if i.GoVersion != "" {
		extra = append(extra, i.GoVersion)
	}
	if i.BuildTime != "" {
		extra = append(extra, "built "+i.BuildTime)
	}
	if len(extra) == 0 {
		return i.Short()
	}
	return fmt.Sprintf("%s (%s)", i.Short(), strings.Join(extra, ", "))
}
