package version //nolint:testpackage // tests reset the package-level values.

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetVersion(t *testing.T) {
	t.Helper()

	oldVersion, oldCommit, oldDate := Version, Commit, Date
	Version, Commit, Date = "dev", unknown, unknown

	t.Cleanup(func() { Version, Commit, Date = oldVersion, oldCommit, oldDate })
}

func TestApplyFromBuildInfo(t *testing.T) {
	resetVersion(t)

	apply(&debug.BuildInfo{
		Main: debug.Module{Version: "v1.4.0"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	assert.Equal(t, "1.4.0", Version)
	assert.Equal(t, "abc123-dirty", Commit)
	assert.Equal(t, "2026-01-02T03:04:05Z", Date)
	assert.Equal(t, "1.4.0 (commit: abc123-dirty, built: 2026-01-02T03:04:05Z)", String())
}

func TestApplyKeepsLinkerValues(t *testing.T) {
	resetVersion(t)

	Version, Commit = "2.0.0", "fromldflags"

	apply(&debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})

	assert.Equal(t, "2.0.0", Version)
	assert.Equal(t, "fromldflags", Commit)
	assert.Equal(t, unknown, Date)
}

func TestApplyDevelBuild(t *testing.T) {
	resetVersion(t)

	apply(&debug.BuildInfo{Main: debug.Module{Version: "(devel)"}})

	assert.Equal(t, "dev", Version)
	assert.Equal(t, unknown, Commit)
}
