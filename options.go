package gpuring

import "fmt"

// DefaultAlignment is the allocation granularity required by constant
// and vertex buffer consumers.
const DefaultAlignment = 16

// MappingPolicy controls how long the CPU-visible mapping stays active.
type MappingPolicy int

const (
	// MappingPersistent keeps the mapping across Allocate calls and frame
	// boundaries until Unmap or a forced remap releases it. The driver
	// must call Unmap before the GPU reads the region.
	MappingPersistent MappingPolicy = iota

	// MappingReleaseOnSwap releases the mapping inside SwapFrame, so a
	// finished frame is never handed to the GPU while still mapped.
	MappingReleaseOnSwap
)

// String returns the string representation of MappingPolicy.
func (p MappingPolicy) String() string {
	switch p {
	case MappingPersistent:
		return "Persistent"
	case MappingReleaseOnSwap:
		return "ReleaseOnSwap"
	default:
		return fmt.Sprintf("Unknown(%d)", int(p))
	}
}

// Option configures a CircularAllocator during creation.
//
// Example:
//
//	ring, err := gpuring.New(dev, 4<<20, 3,
//	    gpuring.WithLabel("constants"),
//	    gpuring.WithMappingPolicy(gpuring.MappingReleaseOnSwap))
type Option func(*options)

type options struct {
	alignment uint64
	policy    MappingPolicy
	observer  Observer
	label     string
}

func defaultOptions() options {
	return options{
		alignment: DefaultAlignment,
		policy:    MappingPersistent,
		observer:  nopObserver{},
		label:     "gpuring",
	}
}

// WithAlignment sets the allocation granularity. Every allocation size
// must be a multiple of it and every returned offset is aligned to it.
// n must be a power of two; New rejects other values.
func WithAlignment(n uint64) Option {
	return func(o *options) {
		o.alignment = n
	}
}

// WithMappingPolicy sets the mapping lifetime policy.
func WithMappingPolicy(p MappingPolicy) Option {
	return func(o *options) {
		o.policy = p
	}
}

// WithObserver installs accounting hooks, typically a metrics collector.
// A nil observer restores the default no-op observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs == nil {
			obs = nopObserver{}
		}
		o.observer = obs
	}
}

// WithLabel sets the debug label used for the region and in logs.
func WithLabel(label string) Option {
	return func(o *options) {
		if label != "" {
			o.label = label
		}
	}
}
