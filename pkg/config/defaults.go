package config

// Workout defaults.
const (
	DefaultWorkoutOps            = 100_000
	DefaultWorkoutKeySpace       = 10_000
	DefaultWorkoutSeed           = 1
	DefaultWorkoutInsertWeight   = 5
	DefaultWorkoutRemoveWeight   = 3
	DefaultWorkoutGetWeight      = 2
	DefaultWorkoutCheckEvery     = 1_000
	DefaultWorkoutSampleEvery    = 1_000
	DefaultWorkoutHibernateEvery = 0
)

// Allocator defaults.
const (
	DefaultHibernationThreshold = 0
)

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Observability defaults.
const (
	DefaultObservabilityEnvironment  = ""
	DefaultObservabilityOTLPEndpoint = ""
	DefaultObservabilityOTLPInsecure = false
	DefaultObservabilityOTLPHeaders  = ""
	DefaultObservabilitySampleRatio  = 0.0
	DefaultObservabilityMetricsAddr  = ""
)
