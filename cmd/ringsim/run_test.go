package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Capacity = 1 << 16
	cfg.Frames = 20
	cfg.AllocsPerFrame = 8
	cfg.MinSize = 256
	cfg.MaxSize = 1024
	return cfg
}

func runSim(t *testing.T, cfg Config, obs gpuring.Observer) Result {
	t.Helper()
	require.NoError(t, ValidateConfig(&cfg))
	b, err := openBackend(cfg.Backend)
	require.NoError(t, err)
	defer b.Close()

	res, err := simulate(context.Background(), cfg, b, obs)
	require.NoError(t, err)
	return res
}

func TestSimulateHost(t *testing.T) {
	cfg := smallConfig()
	res := runSim(t, cfg, nil)

	assert.Equal(t, cfg.Frames, res.Frames)
	assert.Equal(t, uint64(cfg.Frames*cfg.AllocsPerFrame), res.Allocations+res.Skipped)
	assert.Zero(t, res.Skipped, "a 64 KiB ring holds three frames of at most 8 KiB")
	assert.Equal(t, res.Allocations, res.Stats.Allocations)
	assert.Equal(t, cfg.Capacity, res.Stats.Available, "drain returns every byte")
	assert.Zero(t, res.Stats.Retired)
	assert.Greater(t, res.Peak, 0.0)
}

func TestSimulateBackpressure(t *testing.T) {
	cfg := smallConfig()
	cfg.Capacity = 8192
	cfg.AllocsPerFrame = 16

	res := runSim(t, cfg, nil)
	assert.Equal(t, cfg.Frames, res.Frames)
	assert.Positive(t, res.Skipped)
	assert.Positive(t, res.Allocations)
	assert.Equal(t, res.Skipped, res.Stats.OutOfSpace)
	assert.Equal(t, cfg.Capacity, res.Stats.Available)
	assert.Less(t, res.Peak, 1.0)
}

func TestSimulateDeterministic(t *testing.T) {
	cfg := smallConfig()
	cfg.Capacity = 8192
	cfg.AllocsPerFrame = 16
	cfg.Seed = 7

	a := runSim(t, cfg, nil)
	b := runSim(t, cfg, nil)
	assert.Equal(t, a.Allocations, b.Allocations)
	assert.Equal(t, a.Skipped, b.Skipped)
	assert.Equal(t, a.Bytes, b.Bytes)
	assert.Equal(t, a.Stats.Forfeited, b.Stats.Forfeited)
}

func TestSimulateNoopBackend(t *testing.T) {
	cfg := smallConfig()
	cfg.Backend = "noop"
	cfg.MappingPolicy = "release-on-swap"

	res := runSim(t, cfg, nil)
	assert.Equal(t, cfg.Frames, res.Frames)
	assert.Equal(t, cfg.Capacity, res.Stats.Available)
	assert.False(t, res.Stats.Mapped)
}

func TestSimulateNoopBackendSmallAlignment(t *testing.T) {
	cfg := smallConfig()
	cfg.Backend = "noop"
	cfg.Alignment = 2
	cfg.MinSize = 2
	cfg.MaxSize = 6

	res := runSim(t, cfg, nil)
	assert.Equal(t, cfg.Frames, res.Frames)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, cfg.Capacity, res.Stats.Available)
}

func TestSimulateWithCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg, "sim")
	require.NoError(t, err)

	res := runSim(t, smallConfig(), c)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, m := range f.GetMetric() {
			if m.GetCounter() != nil {
				values[f.GetName()] += m.GetCounter().GetValue()
			}
		}
	}
	assert.Equal(t, float64(res.Allocations), values["gpuring_allocations_total"])
	assert.Equal(t, float64(res.Bytes), values["gpuring_allocated_bytes_total"])
	assert.Equal(t, float64(res.Frames), values["gpuring_frames_swapped_total"])
}

func TestSimulateCanceled(t *testing.T) {
	cfg := smallConfig()
	b, err := openBackend(cfg.Backend)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := simulate(ctx, cfg, b, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Frames)
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRunCommand(t *testing.T) {
	out, err := executeRoot(t, "run", "--frames", "5", "--allocs", "4", "--capacity", "65536")
	require.NoError(t, err)
	assert.Contains(t, out, "backend:      host")
	assert.Contains(t, out, "frames:       5\n")
	assert.Contains(t, out, "skipped:      0\n")
	assert.Contains(t, out, "Ring[")
}

func TestRunCommandFlagsOverrideEnv(t *testing.T) {
	t.Setenv("RINGSIM_FRAMES", "3")
	t.Setenv("RINGSIM_CAPACITY", "65536")

	out, err := executeRoot(t, "run", "--allocs", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "frames:       3\n")

	out, err = executeRoot(t, "run", "--allocs", "2", "-n", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "frames:       4\n")
}

func TestRunCommandInvalid(t *testing.T) {
	_, err := executeRoot(t, "run", "--backend", "vulkan")
	assert.ErrorIs(t, err, ErrInvalidBackend)

	_, err = executeRoot(t, "run", "--max-size", "2048", "--capacity", "2048")
	assert.ErrorIs(t, err, ErrInvalidSizeRange)

	_, err = executeRoot(t, "run", "extra")
	assert.Error(t, err)
}

func TestServeMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg, "served")
	require.NoError(t, err)
	c.Allocated(256, 0)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	addr, stop, err := serveMetrics("127.0.0.1:0", reg, logger)
	require.NoError(t, err)
	defer stop()

	resp, err := http.Get("http://" + addr + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `gpuring_allocations_total{buffer="served"} 1`)
}

func TestReportFormatsNumbers(t *testing.T) {
	var buf bytes.Buffer
	res := Result{
		Frames:      1200,
		Allocations: 1234567,
		Bytes:       987654321,
		Peak:        0.5,
		Stats:       gpuring.Stats{Capacity: 1 << 20, Available: 1 << 20},
	}
	require.NoError(t, report(&buf, "host", res))

	out := buf.String()
	assert.Contains(t, out, "frames:       1,200\n")
	assert.Contains(t, out, "allocations:  1,234,567 (987,654,321 bytes)\n")
	assert.Contains(t, out, "peak usage:   50.0%\n")
}
