// Package commands implements CLI command handlers for rbmap.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/rbmap/pkg/config"
	"github.com/Sumatoshi-tech/rbmap/pkg/observability"
	"github.com/Sumatoshi-tech/rbmap/pkg/version"
	"github.com/Sumatoshi-tech/rbmap/pkg/workout"
)

// Output formats of the workout report.
const (
	FormatText = "text"
	FormatYAML = "yaml"
	FormatJSON = "json"
)

const (
	metricsPath              = "/metrics"
	metricsReadHeaderTimeout = 5 * time.Second
	metricsShutdownTimeout   = 5 * time.Second
)

// ErrUnknownFormat indicates an unsupported --format value.
var ErrUnknownFormat = errors.New("unknown output format")

type observabilityInit func(observability.Config) (observability.Providers, error)

// WorkoutCommand holds configuration and dependencies for the workout command.
type WorkoutCommand struct {
	configPath  string
	format      string
	plotPath    string
	metricsAddr string
	verbose     bool
	quiet       bool

	ops                  int
	keySpace             int
	seed                 int64
	insertWeight         int
	removeWeight         int
	getWeight            int
	checkEvery           int
	sampleEvery          int
	hibernateEvery       int
	hibernationThreshold int

	obsInit observabilityInit
}

// NewWorkoutCommand creates the workout command.
func NewWorkoutCommand() *cobra.Command {
	return newWorkoutCommandWithDeps(observability.Init)
}

func newWorkoutCommandWithDeps(obsInit observabilityInit) *cobra.Command {
	wc := &WorkoutCommand{obsInit: obsInit}

	cmd := &cobra.Command{
		Use:   "workout",
		Short: "Stress the map with random operations",
		Long: `Run a reproducible sequence of random inserts, removes and lookups against
the map, mirror each one on a reference model and periodically check the
red-black invariants. Configuration comes from rbmap.yaml and RBMAP_*
environment variables; flags override both.

The command fails when the map diverges from the model or breaks an invariant.`,
		Args: cobra.NoArgs,
		RunE: wc.run,
	}

	cmd.Flags().StringVarP(&wc.configPath, "config", "c", "", "Config file path (default: rbmap.yaml search)")
	cmd.Flags().StringVar(&wc.format, "format", FormatText, "Output format: text, yaml, json")
	cmd.Flags().StringVar(&wc.plotPath, "plot", "", "Write an HTML chart of the run to this file")
	cmd.Flags().StringVar(&wc.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address during the run")
	cmd.Flags().BoolVarP(&wc.verbose, "verbose", "v", false, "Log every checkpoint")
	cmd.Flags().BoolVarP(&wc.quiet, "quiet", "q", false, "Only log errors")

	cmd.Flags().IntVar(&wc.ops, "ops", 0, "Number of random operations")
	cmd.Flags().IntVar(&wc.keySpace, "key-space", 0, "Keys are drawn from [0, key-space)")
	cmd.Flags().Int64Var(&wc.seed, "seed", 0, "Random seed")
	cmd.Flags().IntVar(&wc.insertWeight, "insert-weight", 0, "Relative frequency of inserts")
	cmd.Flags().IntVar(&wc.removeWeight, "remove-weight", 0, "Relative frequency of removes")
	cmd.Flags().IntVar(&wc.getWeight, "get-weight", 0, "Relative frequency of lookups")
	cmd.Flags().IntVar(&wc.checkEvery, "check-every", 0, "Full check period in operations (0 = only at the end)")
	cmd.Flags().IntVar(&wc.sampleEvery, "sample-every", 0, "Shape sample period in operations (0 = only at the end)")
	cmd.Flags().IntVar(&wc.hibernateEvery, "hibernate-every", 0, "Hibernation cycle period in operations (0 = disabled)")
	cmd.Flags().IntVar(&wc.hibernationThreshold, "hibernation-threshold", 0,
		"Minimum arena slots for hibernation to compress")

	return cmd
}

func (wc *WorkoutCommand) run(cmd *cobra.Command, _ []string) error {
	switch wc.format {
	case FormatText, FormatYAML, FormatJSON:
	default:
		return fmt.Errorf("%w: %q (want text, yaml or json)", ErrUnknownFormat, wc.format)
	}

	cfg, err := config.LoadConfig(wc.configPath)
	if err != nil {
		return err
	}

	settings := wc.settings(cmd, cfg)

	if wc.metricsAddr == "" {
		wc.metricsAddr = cfg.Observability.MetricsAddr
	}

	err = settings.Validate()
	if err != nil {
		return fmt.Errorf("invalid workout settings: %w", err)
	}

	obsCfg, err := wc.observabilityConfig(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	providers, err := wc.obsInit(obsCfg)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	logger := providers.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	options := []workout.Option{workout.WithLogger(logger)}
	if providers.Tracer != nil {
		options = append(options, workout.WithTracer(providers.Tracer))
	}

	metricOptions, stopMetrics, err := wc.metrics(ctx, providers, logger)
	if err != nil {
		return err
	}

	defer stopMetrics()

	options = append(options, metricOptions...)

	report, runErr := workout.Run(ctx, settings, options...)
	if report == nil {
		return runErr
	}

	err = wc.render(cmd.OutOrStdout(), report)
	if err != nil {
		return errors.Join(runErr, err)
	}

	if wc.plotPath != "" {
		err = workout.WritePlot(wc.plotPath, report)
		if err != nil {
			return errors.Join(runErr, err)
		}

		logger.Info("plot written", "path", wc.plotPath)
	}

	return runErr
}

// settings merges the changed flags over the loaded configuration.
func (wc *WorkoutCommand) settings(cmd *cobra.Command, cfg *config.Config) workout.Settings {
	settings := workout.Settings{
		Ops:                  cfg.Workout.Ops,
		KeySpace:             cfg.Workout.KeySpace,
		Seed:                 cfg.Workout.Seed,
		InsertWeight:         cfg.Workout.InsertWeight,
		RemoveWeight:         cfg.Workout.RemoveWeight,
		GetWeight:            cfg.Workout.GetWeight,
		CheckEvery:           cfg.Workout.CheckEvery,
		SampleEvery:          cfg.Workout.SampleEvery,
		HibernateEvery:       cfg.Workout.HibernateEvery,
		HibernationThreshold: cfg.Allocator.HibernationThreshold,
	}

	flags := cmd.Flags()

	overrides := []struct {
		name   string
		target *int
		value  int
	}{
		{"ops", &settings.Ops, wc.ops},
		{"key-space", &settings.KeySpace, wc.keySpace},
		{"insert-weight", &settings.InsertWeight, wc.insertWeight},
		{"remove-weight", &settings.RemoveWeight, wc.removeWeight},
		{"get-weight", &settings.GetWeight, wc.getWeight},
		{"check-every", &settings.CheckEvery, wc.checkEvery},
		{"sample-every", &settings.SampleEvery, wc.sampleEvery},
		{"hibernate-every", &settings.HibernateEvery, wc.hibernateEvery},
		{"hibernation-threshold", &settings.HibernationThreshold, wc.hibernationThreshold},
	}

	for _, override := range overrides {
		if flags.Changed(override.name) {
			*override.target = override.value
		}
	}

	if flags.Changed("seed") {
		settings.Seed = wc.seed
	}

	return settings
}

func (wc *WorkoutCommand) observabilityConfig(cfg *config.Config, logWriter io.Writer) (observability.Config, error) {
	obsCfg := observability.DefaultConfig()
	obsCfg.ServiceVersion = version.Version
	obsCfg.Mode = observability.ModeWorkout
	obsCfg.Environment = cfg.Observability.Environment
	obsCfg.OTLPEndpoint = cfg.Observability.OTLPEndpoint
	obsCfg.OTLPInsecure = cfg.Observability.OTLPInsecure
	obsCfg.OTLPHeaders = observability.ParseOTLPHeaders(cfg.Observability.OTLPHeaders)
	obsCfg.SampleRatio = cfg.Observability.SampleRatio
	obsCfg.LogJSON = cfg.Logging.JSON
	obsCfg.LogWriter = logWriter

	level, err := observability.ParseLogLevel(cfg.Logging.Level)
	if err != nil {
		return observability.Config{}, err
	}

	obsCfg.LogLevel = level

	switch {
	case wc.quiet:
		obsCfg.LogLevel = slog.LevelError
	case wc.verbose:
		obsCfg.LogLevel = slog.LevelDebug
		obsCfg.DebugTrace = true
	}

	return obsCfg, nil
}

// metrics builds the map and workout instruments. With a metrics address they
// are exported by a Prometheus endpoint served for the duration of the run;
// otherwise they go to the meter of the observability providers.
func (wc *WorkoutCommand) metrics(
	ctx context.Context,
	providers observability.Providers,
	logger *slog.Logger,
) ([]workout.Option, func(), error) {
	meter := providers.Meter
	stop := func() {}

	if wc.metricsAddr != "" {
		mp, handler, err := observability.NewPrometheusProvider()
		if err != nil {
			return nil, nil, err
		}

		if providers.Tracer != nil {
			handler = observability.HTTPMiddleware(providers.Tracer, handler)
		}

		shutdown, err := serveMetrics(ctx, wc.metricsAddr, handler, logger)
		if err != nil {
			return nil, nil, errors.Join(err, mp.Shutdown(ctx))
		}

		meter = mp.Meter("github.com/Sumatoshi-tech/rbmap")
		stop = func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
			defer cancel()

			err := errors.Join(shutdown(shutdownCtx), mp.Shutdown(shutdownCtx))
			if err != nil {
				logger.Warn("metrics shutdown failed", "error", err)
			}
		}
	}

	if meter == nil {
		return nil, stop, nil
	}

	mapMetrics, err := observability.NewMapMetrics(meter)
	if err != nil {
		stop()

		return nil, nil, err
	}

	workoutMetrics, err := observability.NewWorkoutMetrics(meter)
	if err != nil {
		stop()

		return nil, nil, err
	}

	return []workout.Option{
		workout.WithMapMetrics(mapMetrics),
		workout.WithWorkoutMetrics(workoutMetrics),
	}, stop, nil
}

func serveMetrics(
	ctx context.Context,
	addr string,
	handler http.Handler,
	logger *slog.Logger,
) (func(context.Context) error, error) {
	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle(metricsPath, handler)

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: metricsReadHeaderTimeout}

	go func() {
		serveErr := srv.Serve(listener)
		if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", serveErr)
		}
	}()

	logger.Info("serving metrics", "addr", listener.Addr().String(), "path", metricsPath)

	return srv.Shutdown, nil
}

func (wc *WorkoutCommand) render(w io.Writer, report *workout.Report) error {
	switch wc.format {
	case FormatYAML:
		return workout.RenderYAML(w, report)
	case FormatJSON:
		return workout.RenderJSON(w, report)
	default:
		return workout.RenderText(w, report)
	}
}
