package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricChecksTotal         = "rbmap.workout.checks.total"
	metricCheckDuration       = "rbmap.workout.check.duration.seconds"
	metricHibernationsTotal   = "rbmap.workout.hibernations.total"
	metricHibernationDuration = "rbmap.workout.hibernation.duration.seconds"
	metricDivergencesTotal    = "rbmap.workout.divergences.total"

	attrPhase = "phase"
)

// checkBucketBoundaries covers 10us to 10s, from checks of small trees to
// full validations of multi-million entry maps.
var checkBucketBoundaries = []float64{1e-5, 1e-4, 1e-3, 0.01, 0.05, 0.1, 0.5, 1, 5, 10}

// WorkoutMetrics holds OTel instruments for workout-level events.
type WorkoutMetrics struct {
	checksTotal         metric.Int64Counter
	checkDuration       metric.Float64Histogram
	hibernationsTotal   metric.Int64Counter
	hibernationDuration metric.Float64Histogram
	divergencesTotal    metric.Int64Counter
}

// WorkoutStats holds the statistics of one workout run, decoupled from the
// workout types.
type WorkoutStats struct {
	CheckDurations     []time.Duration
	HibernateDurations []time.Duration
	BootDurations      []time.Duration
	Divergences        int
}

// NewWorkoutMetrics creates workout metric instruments from the given meter.
func NewWorkoutMetrics(mt metric.Meter) (*WorkoutMetrics, error) {
	checks, err := mt.Int64Counter(metricChecksTotal,
		metric.WithDescription("Total structural checks run"),
		metric.WithUnit("{check}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChecksTotal, err)
	}

	checkDur, err := mt.Float64Histogram(metricCheckDuration,
		metric.WithDescription("Structural check and oracle comparison duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(checkBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricCheckDuration, err)
	}

	hibernations, err := mt.Int64Counter(metricHibernationsTotal,
		metric.WithDescription("Total allocator hibernate/boot cycles"),
		metric.WithUnit("{cycle}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricHibernationsTotal, err)
	}

	hibernationDur, err := mt.Float64Histogram(metricHibernationDuration,
		metric.WithDescription("Allocator hibernate and boot duration in seconds by phase"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(checkBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricHibernationDuration, err)
	}

	divergences, err := mt.Int64Counter(metricDivergencesTotal,
		metric.WithDescription("Total divergences between the map and the reference model"),
		metric.WithUnit("{divergence}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDivergencesTotal, err)
	}

	return &WorkoutMetrics{
		checksTotal:         checks,
		checkDuration:       checkDur,
		hibernationsTotal:   hibernations,
		hibernationDuration: hibernationDur,
		divergencesTotal:    divergences,
	}, nil
}

// RecordRun records the statistics of a finished workout.
// Safe to call on a nil receiver (no-op).
func (wm *WorkoutMetrics) RecordRun(ctx context.Context, stats WorkoutStats) {
	if wm == nil {
		return
	}

	wm.checksTotal.Add(ctx, int64(len(stats.CheckDurations)))

	for _, d := range stats.CheckDurations {
		wm.checkDuration.Record(ctx, d.Seconds())
	}

	wm.hibernationsTotal.Add(ctx, int64(len(stats.HibernateDurations)))

	hibernateAttrs := metric.WithAttributes(attribute.String(attrPhase, "hibernate"))
	for _, d := range stats.HibernateDurations {
		wm.hibernationDuration.Record(ctx, d.Seconds(), hibernateAttrs)
	}

	bootAttrs := metric.WithAttributes(attribute.String(attrPhase, "boot"))
	for _, d := range stats.BootDurations {
		wm.hibernationDuration.Record(ctx, d.Seconds(), bootAttrs)
	}

	wm.divergencesTotal.Add(ctx, int64(stats.Divergences))
}
