package metrics_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorTracksRingEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := metrics.NewCollector(reg, "test")
	require.NoError(t, err)

	ring, err := gpuring.New(gpuring.NewHostDevice(), 1024, 2, gpuring.WithObserver(c))
	require.NoError(t, err)
	defer ring.Close()

	_, err = ring.Allocate(512, false)
	require.NoError(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Mapped))

	_, err = ring.Allocate(600, false)
	require.ErrorIs(t, err, gpuring.ErrInvalidArgument)
	_, err = ring.Allocate(512, false)
	require.ErrorIs(t, err, gpuring.ErrOutOfSpace)

	require.NoError(t, ring.SwapFrame(0))
	assert.Equal(t, float64(512), testutil.ToFloat64(c.RetiredBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.FramesSwapped))

	_, err = ring.Allocate(256, false)
	require.NoError(t, err)
	require.NoError(t, ring.Unmap())
	assert.Equal(t, float64(0), testutil.ToFloat64(c.Mapped))

	ring.FreeOldFrame(0)
	assert.Equal(t, float64(0), testutil.ToFloat64(c.RetiredBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.FramesFreed))

	// Cursor at 768: a 256-byte request wraps and forfeits the tail.
	_, err = ring.Allocate(256, false)
	require.NoError(t, err)

	assert.Equal(t, float64(3), testutil.ToFloat64(c.Allocations))
	assert.Equal(t, float64(1024), testutil.ToFloat64(c.AllocatedBytes))
	assert.Equal(t, float64(256), testutil.ToFloat64(c.ForfeitedBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Rejections.WithLabelValues(metrics.ReasonInvalidArgument)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Rejections.WithLabelValues(metrics.ReasonOutOfSpace)))
	assert.Equal(t, float64(0), testutil.ToFloat64(c.Rejections.WithLabelValues(metrics.ReasonOther)))
	assert.Equal(t, 1, testutil.CollectAndCount(c.AllocationSize))
}

func TestCollectorRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := metrics.NewCollector(reg, "vertices")
	require.NoError(t, err)
	_, err = metrics.NewCollector(reg, "constants")
	require.NoError(t, err, "distinct buffer labels must coexist")

	_, err = metrics.NewCollector(reg, "vertices")
	require.Error(t, err)
	var already prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &already))

	first.Unregister(reg)
	_, err = metrics.NewCollector(reg, "vertices")
	assert.NoError(t, err, "label is free again after Unregister")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, name := range []string{
		"gpuring_allocations_total",
		"gpuring_allocated_bytes_total",
		"gpuring_forfeited_bytes_total",
		"gpuring_rejections_total",
		"gpuring_frames_swapped_total",
		"gpuring_frames_freed_total",
		"gpuring_retired_bytes",
		"gpuring_mapped",
	} {
		assert.True(t, names[name], "metric %s not gathered", name)
	}
}

func TestCollectorWithoutRegistry(t *testing.T) {
	c, err := metrics.NewCollector(nil, "detached")
	require.NoError(t, err)

	c.Allocated(64, 0)
	c.MappingChanged(true)
	assert.Equal(t, float64(64), testutil.ToFloat64(c.AllocatedBytes))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Mapped))
}

func TestReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("%w: frame needs 2048 bytes", gpuring.ErrOutOfSpace), metrics.ReasonOutOfSpace},
		{gpuring.ErrInvalidArgument, metrics.ReasonInvalidArgument},
		{gpuring.ErrAllocatorClosed, metrics.ReasonOther},
		{errors.New("map failed"), metrics.ReasonOther},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, metrics.Reason(tt.err), "Reason(%v)", tt.err)
	}
}
