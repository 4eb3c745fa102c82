// Package version reports the canmon build version.
package version

import (
	"fmt"
	"runtime/debug"
	"time"
)

// Set at build time:
//
//	go build -ldflags="-X github.com/muurk/canmon/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/canmon/internal/version.Commit=abc1234" ./cmd/canmon
//
// Unset values are taken from the embedded VCS stamp, or fall back to a
// dev build marker.
var (
	// Version is the release version
	Version = ""
	// Commit is the short git commit hash
	Commit = ""
)

func init() {
	info, _ := debug.ReadBuildInfo()
	Version, Commit = resolve(Version, Commit, info, time.Now())
}

// resolve fills empty version and commit values from build info
func resolve(version, commit string, info *debug.BuildInfo, now time.Time) (string, string) {
	var revision, modified, vcsTime string
	if info != nil {
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				revision = s.Value
			case "vcs.modified":
				modified = s.Value
			case "vcs.time":
				vcsTime = s.Value
			}
		}
		// Module version is set for `go install module@vX.Y.Z` builds
		if version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}

	if commit == "" && revision != "" {
		commit = revision
		if len(commit) > 7 {
			commit = commit[:7]
		}
		if modified == "true" {
			commit += "-dirty"
		}
	}

	if version == "" {
		stamp := now
		if t, err := time.Parse(time.RFC3339, vcsTime); err == nil {
			stamp = t
		}
		version = "dev-" + stamp.Format("20060102")
	}
	if commit == "" {
		commit = "unknown"
	}
	return version, commit
}

// Full returns the version string including commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}
