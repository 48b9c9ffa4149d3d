package buildinfo

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	info := Get()
	if info.Version == "" || info.Commit == "" || info.BuildTime == "" || info.GoVersion == "" {
		t.Errorf("Get() has empty fields: %+v", info)
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.Contains(s, Get().Version) || !strings.Contains(s, "built at") {
		t.Errorf("String() = %q", s)
	}
}

func TestResolve(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.24.4",
		Main:      debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef0123"},
			{Key: "vcs.time", Value: "2025-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	}
	read := func() (*debug.BuildInfo, bool) { return bi, true }

	tests := []struct {
		name                       string
		version, commit, buildTime string
		want                       Info
	}{
		{
			name:    "falls back to embedded info",
			version: "dev", commit: "unknown", buildTime: "unknown",
			want: Info{
				Version:   "v1.2.3",
				Commit:    "0123456789ab",
				BuildTime: "2025-01-02T03:04:05Z",
				GoVersion: "go1.24.4",
				Modified:  true,
			},
		},
		{
			name:    "ldflags win",
			version: "v9.9.9", commit: "abc", buildTime: "today",
			want: Info{
				Version:   "v9.9.9",
				Commit:    "abc",
				BuildTime: "today",
				GoVersion: "go1.24.4",
				Modified:  true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolve(tt.version, tt.commit, tt.buildTime, read)
			if got != tt.want {
				t.Errorf("resolve() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolve_NoBuildInfo(t *testing.T) {
	got := resolve("dev", "unknown", "unknown", func() (*debug.BuildInfo, bool) { return nil, false })
	if got.Version != "dev" || got.Commit != "unknown" || got.GoVersion == "" {
		t.Errorf("resolve() = %+v", got)
	}
}
