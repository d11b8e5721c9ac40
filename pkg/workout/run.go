package workout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
	"github.com/Sumatoshi-tech/rbmap/pkg/rbtree"
)

// Run errors.
var (
	// ErrDivergence means the map disagreed with the reference model.
	ErrDivergence = errors.New("map diverged from the reference model")
	// ErrInvariant means the map failed its structural check.
	ErrInvariant = errors.New("map invariant violated")
)

// Operation names, also used as metric attributes.
const (
	OpInsert = "insert"
	OpRemove = "remove"
	OpGet    = "get"
)

// Operation outcomes.
const (
	outcomeInserted = "inserted"
	outcomeReplaced = "replaced"
	outcomeHit      = "hit"
	outcomeMiss     = "miss"
)

// Option configures a run.
type Option func(*runner)

// WithLogger sets the logger for checkpoint and summary records.
func WithLogger(logger *slog.Logger) Option {
	return func(r *runner) {
		r.logger = logger
	}
}

// WithTracer sets the tracer for the run span.
func WithTracer(tracer trace.Tracer) Option {
	return func(r *runner) {
		r.tracer = tracer
	}
}

// WithMapMetrics records every map operation into mm.
func WithMapMetrics(mm *observability.MapMetrics) Option {
	return func(r *runner) {
		r.mapMetrics = mm
	}
}

// WithWorkoutMetrics records the run statistics into wm when the run ends.
func WithWorkoutMetrics(wm *observability.WorkoutMetrics) Option {
	return func(r *runner) {
		r.workoutMetrics = wm
	}
}

type runner struct {
	settings Settings

	rng   *rand.Rand
	tree  *rbtree.Map[int, int]
	model *oracle

	logger         *slog.Logger
	tracer         trace.Tracer
	mapMetrics     *observability.MapMetrics
	workoutMetrics *observability.WorkoutMetrics

	report    *Report
	stats     observability.WorkoutStats
	rotations uint64
}

// Run executes a workout. The map and the model start empty; Settings.Ops
// random operations are applied to both, with periodic structural checks,
// full comparisons, shape samples and hibernation cycles; finally every
// remaining key is removed in random order.
//
// The returned error wraps ErrDivergence or ErrInvariant when the map
// misbehaves and the context error when ctx is done. The report is returned
// whenever the settings are valid.
func Run(ctx context.Context, settings Settings, options ...Option) (*Report, error) {
	err := settings.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid workout settings: %w", err)
	}

	r := newRunner(settings, options...)

	ctx, span := r.tracer.Start(ctx, "workout.run", trace.WithAttributes(
		attribute.Int64("workout.seed", settings.Seed),
		attribute.Int("workout.ops", settings.Ops),
		attribute.Int("workout.key_space", settings.KeySpace),
	))
	defer span.End()

	start := time.Now()
	err = r.run(ctx)
	r.finish(time.Since(start), err)

	span.SetAttributes(
		attribute.String("workout.status", string(r.report.Status)),
		attribute.Int("workout.completed", r.report.Completed),
	)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	r.workoutMetrics.RecordRun(ctx, r.stats)

	r.logger.InfoContext(ctx, "workout finished",
		slog.String("status", string(r.report.Status)),
		slog.Int("ops", r.report.TotalOps()),
		slog.Int("checks", r.report.Checks),
		slog.Int("max_height", r.report.MaxHeight),
		slog.Duration("duration", r.report.Duration),
	)

	return r.report, err
}

func newRunner(settings Settings, options ...Option) *runner {
	alloc := rbtree.NewAllocator[int, int]()
	alloc.HibernationThreshold = settings.HibernationThreshold

	r := &runner{
		settings: settings,
		rng:      rand.New(rand.NewSource(settings.Seed)), //nolint:gosec // reproducible workload, not security.
		tree:     rbtree.NewWithAllocator(alloc, func(a, b int) int { return a - b }),
		model:    newOracle(),
		logger:   slog.New(slog.DiscardHandler),
		tracer:   nooptrace.NewTracerProvider().Tracer(""),
		report:   &Report{Settings: settings, Status: StatusPass},
	}

	for _, option := range options {
		option(r)
	}

	return r
}

func (r *runner) run(ctx context.Context) error {
	for idx := range r.settings.Ops {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("workout interrupted after %d ops: %w", idx, err)
		}

		err = r.step(ctx, idx)
		if err != nil {
			return err
		}

		r.report.Completed++
		done := idx + 1

		if every(r.settings.SampleEvery, done) {
			r.sample(done)
		}

		if every(r.settings.CheckEvery, done) {
			err = r.verify(ctx, done)
			if err != nil {
				return err
			}
		}

		if every(r.settings.HibernateEvery, done) {
			err = r.hibernate(ctx, done)
			if err != nil {
				return err
			}
		}
	}

	if !every(r.settings.SampleEvery, r.settings.Ops) {
		r.sample(r.settings.Ops)
	}

	if !every(r.settings.CheckEvery, r.settings.Ops) {
		err := r.verify(ctx, r.settings.Ops)
		if err != nil {
			return err
		}
	}

	return r.drain(ctx)
}

func every(period, done int) bool {
	return period > 0 && done%period == 0
}

func (r *runner) pickOp() string {
	settings := r.settings
	roll := r.rng.Intn(settings.InsertWeight + settings.RemoveWeight + settings.GetWeight)

	switch {
	case roll < settings.InsertWeight:
		return OpInsert
	case roll < settings.InsertWeight+settings.RemoveWeight:
		return OpRemove
	default:
		return OpGet
	}
}

func (r *runner) step(ctx context.Context, idx int) error {
	op := r.pickOp()
	key := r.rng.Intn(r.settings.KeySpace)

	switch op {
	case OpInsert:
		return r.insert(ctx, idx, key, r.rng.Int())
	case OpRemove:
		return r.remove(ctx, idx, key)
	default:
		return r.get(ctx, idx, key)
	}
}

func (r *runner) insert(ctx context.Context, idx, key, value int) error {
	start := time.Now()
	previous, replaced := r.tree.Insert(key, value)
	elapsed := time.Since(start)

	wantPrevious, wantReplaced := r.model.insert(key, value)

	outcome := outcomeInserted
	if replaced {
		outcome = outcomeReplaced
	} else {
		r.mapMetrics.AddEntries(ctx, 1)
	}

	r.report.Inserts.add(replaced, elapsed)
	r.record(ctx, OpInsert, outcome, elapsed)

	return r.compare(idx, OpInsert, key, previous, replaced, wantPrevious, wantReplaced)
}

func (r *runner) remove(ctx context.Context, idx, key int) error {
	start := time.Now()
	value, found := r.tree.Remove(key)
	elapsed := time.Since(start)

	wantValue, wantFound := r.model.remove(key)

	outcome := outcomeMiss
	if found {
		outcome = outcomeHit
		r.mapMetrics.AddEntries(ctx, -1)
	}

	r.report.Removes.add(found, elapsed)
	r.record(ctx, OpRemove, outcome, elapsed)

	return r.compare(idx, OpRemove, key, value, found, wantValue, wantFound)
}

func (r *runner) get(ctx context.Context, idx, key int) error {
	start := time.Now()
	value, found := r.tree.Get(key)
	elapsed := time.Since(start)

	wantValue, wantFound := r.model.get(key)

	outcome := outcomeMiss
	if found {
		outcome = outcomeHit
	}

	r.report.Gets.add(found, elapsed)
	r.record(ctx, OpGet, outcome, elapsed)

	return r.compare(idx, OpGet, key, value, found, wantValue, wantFound)
}

// record forwards the operation and the rotations it caused to the metrics.
func (r *runner) record(ctx context.Context, op, outcome string, elapsed time.Duration) {
	r.mapMetrics.RecordOp(ctx, op, outcome, elapsed)

	rotations := r.tree.Stats().Rotations
	r.mapMetrics.AddRotations(ctx, rotations-r.rotations)
	r.rotations = rotations

	if size := r.tree.Len(); size > r.report.MaxSize {
		r.report.MaxSize = size
	}
}

func (r *runner) compare(idx int, op string, key, got int, gotOK bool, want int, wantOK bool) error {
	if got == want && gotOK == wantOK {
		return nil
	}

	r.stats.Divergences++

	return fmt.Errorf("%w: op #%d %s(%d): map returned (%d, %t), model (%d, %t)",
		ErrDivergence, idx, op, key, got, gotOK, want, wantOK)
}

// verify runs the structural check and compares the whole map with the model.
func (r *runner) verify(ctx context.Context, done int) error {
	start := time.Now()

	defer func() {
		r.stats.CheckDurations = append(r.stats.CheckDurations, time.Since(start))
	}()

	r.report.Checks++

	err := r.tree.Check()
	if err != nil {
		return fmt.Errorf("%w after %d ops: %w", ErrInvariant, done, err)
	}

	if r.tree.Len() != r.model.len() {
		r.stats.Divergences++

		return fmt.Errorf("%w after %d ops: map holds %d entries, model %d",
			ErrDivergence, done, r.tree.Len(), r.model.len())
	}

	var sb strings.Builder
	for key, value := range r.tree.All() {
		writeEntry(&sb, key, value)
	}

	got, want := sb.String(), r.model.dump()
	if got != want {
		r.stats.Divergences++

		return fmt.Errorf("%w after %d ops:\n%s", ErrDivergence, done, lineDiff(want, got))
	}

	r.logger.DebugContext(ctx, "checkpoint",
		slog.Int("op", done),
		slog.Int("size", r.tree.Len()),
		slog.Int("height", r.tree.Height()),
	)

	return nil
}

func (r *runner) sample(done int) {
	smp := Sample{
		Op:          done,
		Size:        r.tree.Len(),
		Height:      r.tree.Height(),
		BlackHeight: r.tree.BlackHeight(),
	}

	r.report.Samples = append(r.report.Samples, smp)
	r.report.MaxHeight = max(r.report.MaxHeight, smp.Height)
}

// hibernate compresses the allocator, restores it and checks nothing was lost.
func (r *runner) hibernate(ctx context.Context, done int) error {
	alloc := r.tree.Allocator()

	start := time.Now()
	alloc.Hibernate()

	if !alloc.Hibernated() {
		// Below the threshold.
		return nil
	}

	r.stats.HibernateDurations = append(r.stats.HibernateDurations, time.Since(start))

	r.report.Hibernations++
	r.report.HibernatedBytes = alloc.HibernatedSize()

	start = time.Now()
	alloc.Boot()
	r.stats.BootDurations = append(r.stats.BootDurations, time.Since(start))

	r.logger.DebugContext(ctx, "allocator hibernated",
		slog.Int("op", done),
		slog.Int("slots", alloc.Size()),
		slog.Int("compressed_bytes", r.report.HibernatedBytes),
	)

	return r.verify(ctx, done)
}

// drain removes every remaining key in random order.
func (r *runner) drain(ctx context.Context) error {
	keys := r.model.sortedKeys()
	r.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	for _, key := range keys {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("workout interrupted while draining: %w", err)
		}

		err = r.remove(ctx, r.report.Completed+r.report.Drained, key)
		if err != nil {
			return err
		}

		r.report.Drained++
	}

	if r.tree.Len() != 0 || r.tree.Allocator().Used() != 0 {
		r.stats.Divergences++

		return fmt.Errorf("%w: %d entries and %d nodes left after draining",
			ErrDivergence, r.tree.Len(), r.tree.Allocator().Used())
	}

	return r.verify(ctx, r.report.Completed)
}

func (r *runner) finish(elapsed time.Duration, err error) {
	report := r.report
	report.Duration = elapsed

	stats := r.tree.Stats()
	report.Rotations = stats.Rotations
	report.InsertFixups = stats.InsertFixups
	report.DeleteFixups = stats.DeleteFixups

	if !r.tree.Allocator().Hibernated() {
		report.ArenaSlots = r.tree.Allocator().Size()
	}

	switch {
	case err == nil:
		report.Status = StatusPass
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		report.Status = StatusCancelled
		report.Error = err.Error()
	default:
		report.Status = StatusFail
		report.Error = err.Error()
	}
}
