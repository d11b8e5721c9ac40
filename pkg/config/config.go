// Package config loads and validates the rbmap configuration: workout
// parameters, allocator tuning, logging and telemetry export.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/viper"
	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:generate go run ../../tools/schemagen -config schema.json

// EnvPrefix prefixes the environment variables overriding configuration keys,
// e.g. RBMAP_WORKOUT_OPS for workout.ops.
const EnvPrefix = "RBMAP"

// Sentinel validation errors.
var (
	ErrSchemaViolation = errors.New("configuration does not match schema")
	ErrNoWeights       = errors.New("at least one workout operation weight must be positive")
)

//go:embed schema.json
var schemaJSON []byte

// Config holds all configuration for the rbmap command.
type Config struct {
	Workout       WorkoutConfig       `json:"workout"       mapstructure:"workout"       yaml:"workout"`
	Allocator     AllocatorConfig     `json:"allocator"     mapstructure:"allocator"     yaml:"allocator"`
	Logging       LoggingConfig       `json:"logging"       mapstructure:"logging"       yaml:"logging"`
	Observability ObservabilityConfig `json:"observability" mapstructure:"observability" yaml:"observability"`
}

// WorkoutConfig holds the randomized workout parameters.
type WorkoutConfig struct {
	// Ops is the number of random operations before the final drain.
	Ops int `json:"ops" mapstructure:"ops" schema:"minimum=1" yaml:"ops"`
	// KeySpace bounds the keys to [0, KeySpace).
	KeySpace int `json:"key_space" mapstructure:"key_space" schema:"minimum=1" yaml:"key_space"`
	// Seed makes the run reproducible.
	Seed int64 `json:"seed" mapstructure:"seed" yaml:"seed"`

	InsertWeight int `json:"insert_weight" mapstructure:"insert_weight" schema:"minimum=0" yaml:"insert_weight"`
	RemoveWeight int `json:"remove_weight" mapstructure:"remove_weight" schema:"minimum=0" yaml:"remove_weight"`
	GetWeight    int `json:"get_weight"    mapstructure:"get_weight"    schema:"minimum=0" yaml:"get_weight"`

	// CheckEvery, SampleEvery and HibernateEvery are periods in operations; 0 disables.
	CheckEvery     int `json:"check_every"     mapstructure:"check_every"     schema:"minimum=0" yaml:"check_every"`
	SampleEvery    int `json:"sample_every"    mapstructure:"sample_every"    schema:"minimum=0" yaml:"sample_every"`
	HibernateEvery int `json:"hibernate_every" mapstructure:"hibernate_every" schema:"minimum=0" yaml:"hibernate_every"`
}

// AllocatorConfig holds node allocator tuning.
type AllocatorConfig struct {
	HibernationThreshold int `json:"hibernation_threshold" mapstructure:"hibernation_threshold" schema:"minimum=0" yaml:"hibernation_threshold"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level string `json:"level" mapstructure:"level" schema:"enum=debug|info|warn|warning|error" yaml:"level"`
	JSON  bool   `json:"json"  mapstructure:"json"  yaml:"json"`
}

// ObservabilityConfig holds telemetry export configuration.
type ObservabilityConfig struct {
	Environment  string  `json:"environment"   mapstructure:"environment"   yaml:"environment"`
	OTLPEndpoint string  `json:"otlp_endpoint" mapstructure:"otlp_endpoint" yaml:"otlp_endpoint"`
	OTLPInsecure bool    `json:"otlp_insecure" mapstructure:"otlp_insecure" yaml:"otlp_insecure"`
	OTLPHeaders  string  `json:"otlp_headers"  mapstructure:"otlp_headers"  yaml:"otlp_headers"`
	SampleRatio  float64 `json:"sample_ratio"  mapstructure:"sample_ratio"  schema:"minimum=0,maximum=1" yaml:"sample_ratio"`
	MetricsAddr  string  `json:"metrics_addr"  mapstructure:"metrics_addr"  yaml:"metrics_addr"`
}

// LoadConfig loads configuration from defaults, an optional YAML file and
// RBMAP_* environment variables, in increasing priority. With an empty
// configPath the file is searched as rbmap.yaml in ., ./config and
// $HOME/.config/rbmap; a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	viperCfg := viper.New()

	setDefaults(viperCfg)

	if configPath != "" {
		viperCfg.SetConfigFile(configPath)
	} else {
		viperCfg.SetConfigName("rbmap")
		viperCfg.SetConfigType("yaml")
		viperCfg.AddConfigPath(".")
		viperCfg.AddConfigPath("./config")
		viperCfg.AddConfigPath("$HOME/.config/rbmap")
	}

	viperCfg.SetEnvPrefix(EnvPrefix)
	viperCfg.AutomaticEnv()
	viperCfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	readErr := viperCfg.ReadInConfig()
	if readErr != nil {
		var notFoundErr viper.ConfigFileNotFoundError
		if !errors.As(readErr, &notFoundErr) {
			return nil, fmt.Errorf("failed to read config file: %w", readErr)
		}
	}

	var config Config

	unmarshalErr := viperCfg.Unmarshal(&config)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", unmarshalErr)
	}

	validateErr := Validate(&config)
	if validateErr != nil {
		return nil, fmt.Errorf("invalid configuration: %w", validateErr)
	}

	return &config, nil
}

// Default returns the configuration used when nothing overrides the defaults.
func Default() *Config {
	return &Config{
		Workout: WorkoutConfig{
			Ops:            DefaultWorkoutOps,
			KeySpace:       DefaultWorkoutKeySpace,
			Seed:           DefaultWorkoutSeed,
			InsertWeight:   DefaultWorkoutInsertWeight,
			RemoveWeight:   DefaultWorkoutRemoveWeight,
			GetWeight:      DefaultWorkoutGetWeight,
			CheckEvery:     DefaultWorkoutCheckEvery,
			SampleEvery:    DefaultWorkoutSampleEvery,
			HibernateEvery: DefaultWorkoutHibernateEvery,
		},
		Allocator: AllocatorConfig{HibernationThreshold: DefaultHibernationThreshold},
		Logging:   LoggingConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Observability: ObservabilityConfig{
			Environment:  DefaultObservabilityEnvironment,
			OTLPEndpoint: DefaultObservabilityOTLPEndpoint,
			OTLPInsecure: DefaultObservabilityOTLPInsecure,
			OTLPHeaders:  DefaultObservabilityOTLPHeaders,
			SampleRatio:  DefaultObservabilitySampleRatio,
			MetricsAddr:  DefaultObservabilityMetricsAddr,
		},
	}
}

// setDefaults sets default configuration values.
func setDefaults(viperCfg *viper.Viper) {
	// Workout defaults.
	viperCfg.SetDefault("workout.ops", DefaultWorkoutOps)
	viperCfg.SetDefault("workout.key_space", DefaultWorkoutKeySpace)
	viperCfg.SetDefault("workout.seed", DefaultWorkoutSeed)
	viperCfg.SetDefault("workout.insert_weight", DefaultWorkoutInsertWeight)
	viperCfg.SetDefault("workout.remove_weight", DefaultWorkoutRemoveWeight)
	viperCfg.SetDefault("workout.get_weight", DefaultWorkoutGetWeight)
	viperCfg.SetDefault("workout.check_every", DefaultWorkoutCheckEvery)
	viperCfg.SetDefault("workout.sample_every", DefaultWorkoutSampleEvery)
	viperCfg.SetDefault("workout.hibernate_every", DefaultWorkoutHibernateEvery)

	// Allocator defaults.
	viperCfg.SetDefault("allocator.hibernation_threshold", DefaultHibernationThreshold)

	// Logging defaults.
	viperCfg.SetDefault("logging.level", DefaultLogLevel)
	viperCfg.SetDefault("logging.json", DefaultLogJSON)

	// Observability defaults.
	viperCfg.SetDefault("observability.environment", DefaultObservabilityEnvironment)
	viperCfg.SetDefault("observability.otlp_endpoint", DefaultObservabilityOTLPEndpoint)
	viperCfg.SetDefault("observability.otlp_insecure", DefaultObservabilityOTLPInsecure)
	viperCfg.SetDefault("observability.otlp_headers", DefaultObservabilityOTLPHeaders)
	viperCfg.SetDefault("observability.sample_ratio", DefaultObservabilitySampleRatio)
	viperCfg.SetDefault("observability.metrics_addr", DefaultObservabilityMetricsAddr)
}

// Validate checks config against the embedded JSON schema, then the
// constraints the schema cannot express.
func Validate(config *Config) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(schemaJSON),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("run schema validation: %w", err)
	}

	if !result.Valid() {
		errs := make([]error, 0, len(result.Errors()))
		for _, verr := range result.Errors() {
			errs = append(errs, fmt.Errorf("%w: %s: %s", ErrSchemaViolation, verr.Field(), verr.Description()))
		}

		return errors.Join(errs...)
	}

	workout := config.Workout
	if workout.InsertWeight+workout.RemoveWeight+workout.GetWeight <= 0 {
		return ErrNoWeights
	}

	return nil
}

// Dump writes config to w as YAML.
func Dump(config *Config, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	err := encoder.Encode(config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	err = encoder.Close()
	if err != nil {
		return fmt.Errorf("flush config: %w", err)
	}

	return nil
}

// Schema returns the JSON schema the configuration is validated against.
func Schema() []byte {
	return schemaJSON
}
