// Package version exposes build metadata injected at link time, with
// fallbacks read from the embedded build info.
package version

import (
	"runtime"
	"runtime/debug"
)

var (
	Version   string // Set via ldflags.
	Branch    string
	BuildDate string

	Revision  = getRevision()
	GoVersion = runtime.Version()
	GoOS      = runtime.GOOS
	GoArch    = runtime.GOARCH
)

// GetVersion returns the release version, falling back to the VCS revision
// for untagged builds.
func GetVersion() string {
	if Version != "" {
		return Version
	}

	return Revision
}

func getRevision() string {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}

	rev := "unknown"
	suffix := ""

	for _, s := range buildInfo.Settings {
		switch s.Key {
		case "vcs.revision":
			rev = shortRevision(s.Value)

		case "vcs.modified":
			if s.Value == "true" {
				suffix = "-dirty"
			}
		}
	}

	return rev + suffix
}

func shortRevision(rev string) string {
	if len(rev) > 7 {
		return rev[:7]
	}

	return rev
}
