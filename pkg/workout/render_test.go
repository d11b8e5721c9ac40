package workout_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbmap/pkg/workout"
)

func testReport() *workout.Report {
	return &workout.Report{
		Settings:        testSettings(),
		Status:          workout.StatusPass,
		Completed:       5_000,
		Inserts:         workout.OpStats{Total: 2_500, Hits: 1_000, Elapsed: 2500 * time.Microsecond},
		Removes:         workout.OpStats{Total: 1_800, Hits: 900},
		Gets:            workout.OpStats{Total: 1_000, Hits: 600},
		Drained:         300,
		Checks:          26,
		Hibernations:    5,
		HibernatedBytes: 4_096,
		MaxSize:         350,
		MaxHeight:       11,
		Rotations:       1_234,
		ArenaSlots:      351,
		Duration:        time.Second,
		Samples: []workout.Sample{
			{Op: 500, Size: 200, Height: 9, BlackHeight: 5},
			{Op: 1_000, Size: 300, Height: 10, BlackHeight: 5},
		},
	}
}

func TestOpStats(t *testing.T) {
	t.Parallel()

	stats := workout.OpStats{Total: 4, Hits: 1, Elapsed: 8 * time.Millisecond}

	assert.Equal(t, 3, stats.Misses())
	assert.Equal(t, 2*time.Millisecond, stats.PerOp())
	assert.Zero(t, workout.OpStats{}.PerOp())
}

func TestRenderText(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, workout.RenderText(&buf, testReport()))

	out := buf.String()
	assert.Contains(t, out, "PASS")
	assert.Contains(t, out, "seed 42")
	assert.Contains(t, out, "5,300 ops")
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "1µs")
	assert.Contains(t, out, "Rotations")
	assert.Contains(t, out, "1,234")
	assert.Contains(t, out, "4.1 kB")
}

func TestRenderTextFailure(t *testing.T) {
	t.Parallel()

	report := testReport()
	report.Status = workout.StatusFail
	report.Error = "map diverged from the reference model: op #7"

	var buf bytes.Buffer

	require.NoError(t, workout.RenderText(&buf, report))
	assert.Contains(t, buf.String(), "FAIL")
	assert.Contains(t, buf.String(), "op #7")
}

func TestRenderYAML(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, workout.RenderYAML(&buf, testReport()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, "pass", decoded["status"])
	assert.Equal(t, 26, decoded["checks"])
	assert.NotContains(t, decoded, "error")
}

func TestRenderJSON(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, workout.RenderJSON(&buf, testReport()))

	var decoded workout.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, *testReport(), decoded)
}

func TestRenderPlot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, workout.RenderPlot(&buf, testReport()))

	out := buf.String()
	assert.Contains(t, out, "<html")
	assert.Contains(t, out, "Tree shape")
	assert.Contains(t, out, "Operations")
}

func TestWritePlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "workout.html")

	require.NoError(t, workout.WritePlot(path, testReport()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Tree shape")
}

func TestWritePlotBadPath(t *testing.T) {
	t.Parallel()

	err := workout.WritePlot(filepath.Join(t.TempDir(), "missing", "workout.html"), testReport())
	assert.Error(t, err)
}
