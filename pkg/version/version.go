// Package version holds the build metadata of the rbmap binary.
package version

import (
	"runtime/debug"
	"strings"
)

const unknown = "unknown"

// Version, Commit and Date are set with -ldflags "-X" at release time.
var (
	Version = "dev"
	Commit  = unknown
	Date    = unknown
)

// InitBinaryVersion fills the values that were not set by the linker from
// the module and VCS information embedded by the Go toolchain.
func InitBinaryVersion() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	apply(info)
}

func apply(info *debug.BuildInfo) {
	if Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		Version = strings.TrimPrefix(info.Main.Version, "v")
	}

	dirty := false

	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if Commit == unknown {
				Commit = setting.Value
			}
		case "vcs.time":
			if Date == unknown {
				Date = setting.Value
			}
		case "vcs.modified":
			dirty = setting.Value == "true"
		}
	}

	if dirty && Commit != unknown && !strings.HasSuffix(Commit, "-dirty") {
		Commit += "-dirty"
	}
}

// String formats the build metadata for the version command.
func String() string {
	return Version + " (commit: " + Commit + ", built: " + Date + ")"
}
