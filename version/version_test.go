package version

import (
	"strings"
	"testing"
)

func saveAndRestore() func() {
	v, c, b := Version, Commit, BuildTime
	return func() { Version, Commit, BuildTime = v, c, b }
}

func TestGet_Dev(t *testing.T) {
	defer saveAndRestore()()
	Version = "dev"

	info := Get()
	if info.Version != "dev" || info.Release {
		t.Errorf("info = %+v", info)
	}
}

func TestGet_LinkerValues(t *testing.T) {
	defer saveAndRestore()()
	Version, Commit, BuildTime = "1.4.0", "abc1234def5678", "2026-03-01T01:00:00Z"

	info := Get()
	if info.Commit != "abc1234" {
		t.Errorf("commit = %q, want it shortened to 7 chars", info.Commit)
	}
	if info.BuildTime != "2026-03-01T01:00:00Z" {
		t.Errorf("build time = %q", info.BuildTime)
	}
}

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.4.0", Commit: "abc1234"}, "1.4.0-abc1234"},
		{Info{Version: "1.4.0", Commit: "abc1234", Dirty: true}, "1.4.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestInfo_String(t *testing.T) {
	s := Info{Version: "1.4.0", Commit: "abc1234", BuildTime: "2026-03-01T01:00:00Z", GoVersion: "go1.24.0"}.String()
	if !strings.Contains(s, "built 2026-03-01") || !strings.HasSuffix(s, "go1.24.0") {
		t.Errorf("String() = %q", s)
	}
}

func TestUserAgent(t *testing.T) {
	defer saveAndRestore()()
	Version, Commit = "1.4.0", "abc1234"
	if ua := UserAgent("dataops"); !strings.HasPrefix(ua, "dataops/1.4.0-abc1234") {
		t.Errorf("UserAgent = %q", ua)
	}
}
