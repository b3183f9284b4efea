package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// runFlags mirrors Config. A flag only overrides the environment when it
// was set on the command line.
type runFlags struct {
	envFile     string
	backend     string
	capacity    uint64
	slots       int
	alignment   uint64
	frames      int
	allocs      int
	minSize     uint64
	maxSize     uint64
	seed        uint64
	policy      string
	metricsAddr string
	logLevel    string
}

func newRunCmd() *cobra.Command {
	var f runFlags
	def := DefaultConfig()

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a frame loop against a ring allocator",
		Long: `The run command creates a ring on the selected backend and runs a
fixed number of frames, each issuing random allocation requests. Requests
the ring cannot serve are skipped and counted.

Example:
  ringsim run
  ringsim run --backend noop --frames 1000 --allocs 128
  ringsim run --capacity 65536 --slots 2 --policy release-on-swap`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := LoadConfig(f.envFile)
			if err != nil {
				return err
			}
			f.apply(cmd, &cfg)
			if err := ValidateConfig(&cfg); err != nil {
				return err
			}
			return runSimulation(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.envFile, "env-file", "", "dotenv file to load (default .env if present)")
	flags.StringVar(&f.backend, "backend", def.Backend, "ring backend: host or noop")
	flags.Uint64Var(&f.capacity, "capacity", def.Capacity, "ring size in bytes")
	flags.IntVar(&f.slots, "slots", def.FrameSlots, "frames in flight")
	flags.Uint64Var(&f.alignment, "alignment", def.Alignment, "allocation granularity in bytes")
	flags.IntVarP(&f.frames, "frames", "n", def.Frames, "number of frames to run")
	flags.IntVar(&f.allocs, "allocs", def.AllocsPerFrame, "allocation requests per frame")
	flags.Uint64Var(&f.minSize, "min-size", def.MinSize, "smallest request in bytes")
	flags.Uint64Var(&f.maxSize, "max-size", def.MaxSize, "largest request in bytes")
	flags.Uint64Var(&f.seed, "seed", def.Seed, "request size generator seed")
	flags.StringVar(&f.policy, "policy", def.MappingPolicy, "mapping policy: persistent or release-on-swap")
	flags.StringVar(&f.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address while running")
	flags.StringVar(&f.logLevel, "log-level", def.LogLevel, "log level: debug, info, warn or error")
	return cmd
}

func (f *runFlags) apply(cmd *cobra.Command, cfg *Config) {
	changed := cmd.Flags().Changed
	if changed("backend") {
		cfg.Backend = f.backend
	}
	if changed("capacity") {
		cfg.Capacity = f.capacity
	}
	if changed("slots") {
		cfg.FrameSlots = f.slots
	}
	if changed("alignment") {
		cfg.Alignment = f.alignment
	}
	if changed("frames") {
		cfg.Frames = f.frames
	}
	if changed("allocs") {
		cfg.AllocsPerFrame = f.allocs
	}
	if changed("min-size") {
		cfg.MinSize = f.minSize
	}
	if changed("max-size") {
		cfg.MaxSize = f.maxSize
	}
	if changed("seed") {
		cfg.Seed = f.seed
	}
	if changed("policy") {
		cfg.MappingPolicy = f.policy
	}
	if changed("metrics-addr") {
		cfg.MetricsAddr = f.metricsAddr
	}
	if changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
}

func runSimulation(ctx context.Context, out, errOut io.Writer, cfg Config) error {
	level, err := cfg.level()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level}))
	gpuring.SetLogger(logger)
	defer gpuring.SetLogger(nil)

	var obs gpuring.Observer
	if cfg.MetricsAddr != "" {
		reg := prometheus.NewRegistry()
		collector, err := metrics.NewCollector(reg, "ringsim")
		if err != nil {
			return err
		}
		obs = collector

		_, stop, err := serveMetrics(cfg.MetricsAddr, reg, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	b, err := openBackend(cfg.Backend)
	if err != nil {
		return err
	}
	defer b.Close()

	logger.Info("ringsim: starting",
		slog.String("backend", b.Name()),
		slog.Uint64("capacity", cfg.Capacity),
		slog.Int("slots", cfg.FrameSlots),
		slog.Int("frames", cfg.Frames))

	res, err := simulate(ctx, cfg, b, obs)
	if err != nil {
		return fmt.Errorf("simulation stopped after %d frames: %w", res.Frames, err)
	}
	return report(out, b.Name(), res)
}

// serveMetrics serves reg on addr until the returned stop function is
// called. It returns the address actually bound.
func serveMetrics(addr string, reg *prometheus.Registry, logger *slog.Logger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("metrics listener: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logger.Info("Starting metrics server", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server failed", "error", err)
		}
	}()

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func report(out io.Writer, backendName string, res Result) error {
	p := message.NewPrinter(language.English)
	lines := []struct {
		format string
		args   []any
	}{
		{"backend:      %s\n", []any{backendName}},
		{"frames:       %d\n", []any{res.Frames}},
		{"allocations:  %d (%d bytes)\n", []any{res.Allocations, res.Bytes}},
		{"skipped:      %d\n", []any{res.Skipped}},
		{"forfeited:    %d bytes\n", []any{res.Stats.Forfeited}},
		{"peak usage:   %.1f%%\n", []any{res.Peak * 100}},
		{"elapsed:      %v\n", []any{res.Elapsed.Round(time.Microsecond)}},
		{"final:        %s\n", []any{res.Stats.String()}},
	}
	for _, l := range lines {
		if _, err := p.Fprintf(out, l.format, l.args...); err != nil {
			return err
		}
	}
	return nil
}
