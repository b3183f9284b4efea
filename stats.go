package gpuring

import "fmt"

// Stats is a snapshot of a CircularAllocator's accounting.
type Stats struct {
	// Capacity is the region size in bytes.
	Capacity uint64

	// Available is the budget not reserved by any in-flight frame.
	Available uint64

	// Consumed is the number of bytes claimed by the current frame,
	// including forfeited tail bytes.
	Consumed uint64

	// Retired is the sum of bytes held by in-flight frame slots.
	Retired uint64

	// Cursor is the offset of the next allocation.
	Cursor uint64

	// FramesInFlight is the number of slots holding retired bytes.
	FramesInFlight int

	// Mapped reports whether a CPU-visible mapping is active.
	Mapped bool

	// Allocations is the number of successful allocations since creation.
	Allocations uint64

	// Forfeited is the total number of tail bytes skipped by wraparounds.
	Forfeited uint64

	// OutOfSpace is the number of allocations rejected for lack of budget.
	OutOfSpace uint64
}

// Utilization returns the fraction of capacity that is claimed by the
// current frame or by frames in flight (0.0 to 1.0).
func (s Stats) Utilization() float64 {
	if s.Capacity == 0 {
		return 0
	}
	return float64(s.Capacity-s.Available+s.Consumed) / float64(s.Capacity)
}

// String returns a human-readable string of the stats.
func (s Stats) String() string {
	return fmt.Sprintf("Ring[%.1f%% used, cursor %d/%d, frame %d B, retired %d B in %d frames, %d allocs, %d forfeited, %d rejected]",
		s.Utilization()*100,
		s.Cursor,
		s.Capacity,
		s.Consumed,
		s.Retired,
		s.FramesInFlight,
		s.Allocations,
		s.Forfeited,
		s.OutOfSpace)
}
