// Package version reports the build version of the server.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time via -ldflags "-X harperls.dev/harper-ls/internal/version.Version=v1.0.0".
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// readBuildInfo is replaced in tests.
var readBuildInfo = debug.ReadBuildInfo

// Get returns the version string. An ldflags value wins over the module
// version recorded by `go install`; without either it is "dev".
func Get() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := readBuildInfo(); ok {
		if v := info.Main.Version; v != "" && v != "(devel)" {
			return v
		}
	}
	return "dev"
}

// Full returns the version with the commit it was built from, if known.
func Full() string {
	v := Get()
	commit := GitCommit
	if commit == "unknown" {
		commit = vcsRevision()
	}
	if commit == "" || commit == "unknown" {
		return v
	}
	if len(commit) > 12 {
		commit = commit[:12]
	}
	return fmt.Sprintf("%s (commit %s)", v, commit)
}

func vcsRevision() string {
	info, ok := readBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}
