package config_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rbmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, config.Default(), cfg)
	assert.Equal(t, config.DefaultWorkoutOps, cfg.Workout.Ops)
	assert.Equal(t, config.DefaultWorkoutKeySpace, cfg.Workout.KeySpace)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Observability.OTLPEndpoint)
}

func TestLoadConfigEmptyFile(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
workout:
  ops: 500
  key_space: 64
  seed: -7
  get_weight: 0
  hibernate_every: 100
allocator:
  hibernation_threshold: 32
logging:
  level: debug
  json: true
observability:
  environment: ci
  sample_ratio: 0.5
  metrics_addr: "127.0.0.1:9464"
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Workout.Ops)
	assert.Equal(t, 64, cfg.Workout.KeySpace)
	assert.Equal(t, int64(-7), cfg.Workout.Seed)
	assert.Equal(t, 0, cfg.Workout.GetWeight)
	assert.Equal(t, config.DefaultWorkoutInsertWeight, cfg.Workout.InsertWeight)
	assert.Equal(t, 100, cfg.Workout.HibernateEvery)
	assert.Equal(t, 32, cfg.Allocator.HibernationThreshold)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "ci", cfg.Observability.Environment)
	assert.InDelta(t, 0.5, cfg.Observability.SampleRatio, 1e-9)
	assert.Equal(t, "127.0.0.1:9464", cfg.Observability.MetricsAddr)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RBMAP_WORKOUT_OPS", "42")
	t.Setenv("RBMAP_LOGGING_JSON", "true")
	t.Setenv("RBMAP_OBSERVABILITY_OTLP_ENDPOINT", "localhost:4317")

	path := writeConfig(t, "workout:\n  ops: 500\n")

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 42, cfg.Workout.Ops)
	assert.True(t, cfg.Logging.JSON)
	assert.Equal(t, "localhost:4317", cfg.Observability.OTLPEndpoint)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadConfigMalformedFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "workout: [1, 2\n"))
	require.Error(t, err)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"zero ops", "workout:\n  ops: 0\n", config.ErrSchemaViolation},
		{"zero key space", "workout:\n  key_space: 0\n", config.ErrSchemaViolation},
		{"negative weight", "workout:\n  remove_weight: -1\n", config.ErrSchemaViolation},
		{"unknown level", "logging:\n  level: loud\n", config.ErrSchemaViolation},
		{"ratio above one", "observability:\n  sample_ratio: 2\n", config.ErrSchemaViolation},
		{
			"no weights",
			"workout:\n  insert_weight: 0\n  remove_weight: 0\n  get_weight: 0\n",
			config.ErrNoWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateDefault(t *testing.T) {
	t.Parallel()

	require.NoError(t, config.Validate(config.Default()))
}

func TestDump(t *testing.T) {
	t.Parallel()

	cfg := config.Default()
	cfg.Workout.Seed = 99
	cfg.Observability.Environment = "dev"

	var buf bytes.Buffer

	require.NoError(t, config.Dump(cfg, &buf))

	out := buf.String()
	assert.Contains(t, out, "key_space: 10000")
	assert.Contains(t, out, "seed: 99")
	assert.Contains(t, out, "environment: dev")

	var decoded config.Config

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, cfg, &decoded)
}

func TestSchemaIsEmbedded(t *testing.T) {
	t.Parallel()

	assert.Contains(t, string(config.Schema()), `"WorkoutConfig"`)
}
