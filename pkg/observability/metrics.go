package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/Sumatoshi-tech/rbmap/pkg/safeconv"
)

const (
	metricOpsTotal       = "rbmap.map.operations.total"
	metricOpDuration     = "rbmap.map.operation.duration.seconds"
	metricEntries        = "rbmap.map.entries"
	metricRotationsTotal = "rbmap.map.rotations.total"

	attrOp      = "op"
	attrOutcome = "outcome"
)

// opBucketBoundaries covers 100ns to 10ms: single map operations on trees of
// up to a few million entries, plus the occasional allocator growth.
var opBucketBoundaries = []float64{1e-7, 2.5e-7, 5e-7, 1e-6, 2.5e-6, 5e-6, 1e-5, 1e-4, 1e-3, 1e-2}

// MapMetrics holds the OTel instruments for operations applied to a map and
// the rebalancing work they cause.
type MapMetrics struct {
	opsTotal       metric.Int64Counter
	opDuration     metric.Float64Histogram
	entries        metric.Int64UpDownCounter
	rotationsTotal metric.Int64Counter
}

// NewMapMetrics creates map metric instruments from the given meter.
func NewMapMetrics(mt metric.Meter) (*MapMetrics, error) {
	opsTotal, err := mt.Int64Counter(metricOpsTotal,
		metric.WithDescription("Total number of map operations by op and outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpsTotal, err)
	}

	opDuration, err := mt.Float64Histogram(metricOpDuration,
		metric.WithDescription("Map operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(opBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricOpDuration, err)
	}

	entries, err := mt.Int64UpDownCounter(metricEntries,
		metric.WithDescription("Number of live map entries"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricEntries, err)
	}

	rotations, err := mt.Int64Counter(metricRotationsTotal,
		metric.WithDescription("Total number of tree rotations"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRotationsTotal, err)
	}

	return &MapMetrics{
		opsTotal:       opsTotal,
		opDuration:     opDuration,
		entries:        entries,
		rotationsTotal: rotations,
	}, nil
}

// RecordOp records one completed operation with its outcome and duration.
// Safe to call on a nil receiver (no-op), as are the other methods.
func (mm *MapMetrics) RecordOp(ctx context.Context, op, outcome string, duration time.Duration) {
	if mm == nil {
		return
	}

	mm.opsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrOutcome, outcome),
	))
	mm.opDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String(attrOp, op)))
}

// AddEntries moves the live entries gauge by delta.
func (mm *MapMetrics) AddEntries(ctx context.Context, delta int64) {
	if mm != nil && delta != 0 {
		mm.entries.Add(ctx, delta)
	}
}

// AddRotations adds count rotations.
func (mm *MapMetrics) AddRotations(ctx context.Context, count uint64) {
	if mm != nil && count != 0 {
		mm.rotationsTotal.Add(ctx, safeconv.MustUint64ToInt64(count))
	}
}
