package version

import (
	"fmt"
	"runtime/debug"
	"strings"
)

// Set at build time with -ldflags "-X .../version.Version=1.4.0".
var (
	Version   = "dev"
	Commit    = ""
	BuildTime = ""
)

// Info describes the running binary.
type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	BuildTime string `json:"build_time,omitempty"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
	Release   bool   `json:"release"`
}

// Get returns the linker-provided values, filling gaps from the VCS stamp
// the Go toolchain embeds.
func Get() Info {
	info := Info{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		info.GoVersion = bi.GoVersion
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				if info.BuildTime == "" {
					info.BuildTime = s.Value
				}
			}
		}
	}
	if len(info.Commit) > 7 {
		info.Commit = info.Commit[:7]
	}
	info.Release = info.Version != "dev" && !info.Dirty && !strings.Contains(info.Version, "dirty")
	return info
}

// Short returns "1.4.0-abc1234", with a "-dirty" suffix for modified trees.
func (i Info) Short() string {
	if i.Commit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.Commit
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// String is used by the version subcommand.
func (i Info) String() string {
	s := i.Short()
	if i.BuildTime != "" {
		s += fmt.Sprintf(" (built %s)", i.BuildTime)
	}
	if i.GoVersion != "" {
		s += " " + i.GoVersion
	}
	return s
}

// UserAgent is sent on outbound HTTP calls, e.g. "dataops/1.4.0-abc1234".
func UserAgent(product string) string {
	return product + "/" + Get().Short()
}
