package gpuring

import "errors"

// Allocation errors. These are the only two error kinds Allocate reports
// on its own; neither is retried internally.
var (
	// ErrInvalidArgument is returned for caller bugs: zero or misaligned
	// sizes, requests that can never fit, zero capacity or frame slots,
	// and frame bookkeeping that violates the lifecycle contract.
	// The allocator state is never mutated when it is returned.
	ErrInvalidArgument = errors.New("gpuring: invalid argument")

	// ErrOutOfSpace is returned when a request does not fit in the budget
	// left by in-flight frames. The caller should apply backpressure:
	// wait for older frames to retire or allocate less this frame.
	ErrOutOfSpace = errors.New("gpuring: out of space")
)

// Region and lifecycle errors.
var (
	// ErrRegionMapped is returned when mapping a region that already has
	// an active CPU-visible mapping.
	ErrRegionMapped = errors.New("gpuring: region is already mapped")

	// ErrRegionNotMapped is returned when unmapping a region without an
	// active mapping.
	ErrRegionNotMapped = errors.New("gpuring: region is not mapped")

	// ErrRegionDestroyed is returned when operating on a destroyed region.
	ErrRegionDestroyed = errors.New("gpuring: region has been destroyed")

	// ErrAllocatorClosed is returned when operating on a closed allocator.
	ErrAllocatorClosed = errors.New("gpuring: allocator closed")
)
