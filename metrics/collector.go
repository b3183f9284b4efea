// Package metrics exports ring allocator accounting to Prometheus.
//
// A Collector is a gpuring.Observer; pass it with gpuring.WithObserver:
//
//	c, err := metrics.NewCollector(prometheus.DefaultRegisterer, "constants")
//	if err != nil {
//	    return err
//	}
//	ring, err := gpuring.New(dev, 4<<20, 3, gpuring.WithObserver(c))
package metrics

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuring"
	"github.com/prometheus/client_golang/prometheus"
)

// Rejection reasons used as the reason label of gpuring_rejections_total.
const (
	ReasonInvalidArgument = "invalid_argument"
	ReasonOutOfSpace      = "out_of_space"
	ReasonOther           = "other"
)

// Collector records ring allocator events as Prometheus metrics. Every
// series carries a constant buffer label so several rings can share a
// registry.
type Collector struct {
	Allocations    prometheus.Counter
	AllocatedBytes prometheus.Counter
	ForfeitedBytes prometheus.Counter
	AllocationSize prometheus.Histogram
	Rejections     *prometheus.CounterVec
	FramesSwapped  prometheus.Counter
	FramesFreed    prometheus.Counter
	RetiredBytes   prometheus.Gauge
	Mapped         prometheus.Gauge
}

var _ gpuring.Observer = (*Collector)(nil)

// NewCollector creates the metrics for the ring labeled label and
// registers them with reg. A nil reg leaves them unregistered.
func NewCollector(reg prometheus.Registerer, label string) (*Collector, error) {
	constLabels := prometheus.Labels{"buffer": label}

	c := &Collector{
		Allocations: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gpuring_allocations_total",
			Help:        "Total number of successful ring allocations",
			ConstLabels: constLabels,
		}),
		AllocatedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gpuring_allocated_bytes_total",
			Help:        "Total bytes handed out by ring allocations",
			ConstLabels: constLabels,
		}),
		ForfeitedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gpuring_forfeited_bytes_total",
			Help:        "Total tail bytes skipped when allocations wrapped to the start",
			ConstLabels: constLabels,
		}),
		AllocationSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "gpuring_allocation_size_bytes",
			Help:        "Size distribution of ring allocations",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(16, 4, 8),
		}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "gpuring_rejections_total",
			Help:        "Total number of failed ring allocations by reason",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		FramesSwapped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gpuring_frames_swapped_total",
			Help:        "Total number of frames retired into a slot",
			ConstLabels: constLabels,
		}),
		FramesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "gpuring_frames_freed_total",
			Help:        "Total number of retired frames reclaimed",
			ConstLabels: constLabels,
		}),
		RetiredBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gpuring_retired_bytes",
			Help:        "Bytes held by frames in flight",
			ConstLabels: constLabels,
		}),
		Mapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "gpuring_mapped",
			Help:        "Whether the ring has an active CPU mapping (1) or not (0)",
			ConstLabels: constLabels,
		}),
	}

	// Pre-create the reason series so they export as zero.
	for _, reason := range []string{ReasonInvalidArgument, ReasonOutOfSpace, ReasonOther} {
		c.Rejections.WithLabelValues(reason)
	}

	if reg != nil {
		for _, m := range c.collectors() {
			if err := reg.Register(m); err != nil {
				return nil, fmt.Errorf("metrics: register ring %q: %w", label, err)
			}
		}
	}
	return c, nil
}

// Unregister removes the metrics from reg.
func (c *Collector) Unregister(reg prometheus.Registerer) {
	for _, m := range c.collectors() {
		reg.Unregister(m)
	}
}

func (c *Collector) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.Allocations,
		c.AllocatedBytes,
		c.ForfeitedBytes,
		c.AllocationSize,
		c.Rejections,
		c.FramesSwapped,
		c.FramesFreed,
		c.RetiredBytes,
		c.Mapped,
	}
}

// Allocated implements gpuring.Observer.
func (c *Collector) Allocated(size, forfeited uint64) {
	c.Allocations.Inc()
	c.AllocatedBytes.Add(float64(size))
	c.AllocationSize.Observe(float64(size))
	if forfeited > 0 {
		c.ForfeitedBytes.Add(float64(forfeited))
	}
}

// Rejected implements gpuring.Observer.
func (c *Collector) Rejected(err error) {
	c.Rejections.WithLabelValues(Reason(err)).Inc()
}

// Swapped implements gpuring.Observer.
func (c *Collector) Swapped(_ int, retired uint64) {
	c.FramesSwapped.Inc()
	c.RetiredBytes.Add(float64(retired))
}

// Freed implements gpuring.Observer.
func (c *Collector) Freed(_ int, reclaimed uint64) {
	c.FramesFreed.Inc()
	c.RetiredBytes.Sub(float64(reclaimed))
}

// MappingChanged implements gpuring.Observer.
func (c *Collector) MappingChanged(mapped bool) {
	if mapped {
		c.Mapped.Set(1)
		return
	}
	c.Mapped.Set(0)
}

// Reason maps an allocation error to its rejection label.
func Reason(err error) string {
	switch {
	case errors.Is(err, gpuring.ErrOutOfSpace):
		return ReasonOutOfSpace
	case errors.Is(err, gpuring.ErrInvalidArgument):
		return ReasonInvalidArgument
	default:
		return ReasonOther
	}
}
