package gpuring

import (
	"fmt"
	"sync"
)

// Span is a byte range of a region written by the CPU while it was mapped.
type Span struct {
	Offset uint64
	Size   uint64
}

// End returns the offset one past the last byte of the span.
func (s Span) End() uint64 { return s.Offset + s.Size }

// Device reserves GPU-visible regions. It is implemented by rendering
// drivers; see backend/wgpu for the wgpu HAL implementation and
// HostDevice for an in-process one.
type Device interface {
	// CreateRegion reserves a region of exactly size bytes.
	CreateRegion(label string, size uint64) (Region, error)
}

// Region is GPU-visible backing memory with an exclusive CPU-visible
// mapping. At most one mapping may be active at a time.
type Region interface {
	// Size returns the region size in bytes.
	Size() uint64

	// Map acquires the CPU-visible mapping of the whole region.
	// Returns ErrRegionMapped if a mapping is already active.
	Map() ([]byte, error)

	// Unmap releases the mapping. written lists the spans the CPU wrote
	// since Map, in write order; the region must make them visible to
	// the GPU before the next submission reads them.
	Unmap(written []Span) error

	// Destroy releases the region. It is idempotent.
	Destroy()
}

// MapState represents the mapping state of a region.
type MapState int

const (
	// MapStateUnmapped means the region has no CPU-visible mapping.
	MapStateUnmapped MapState = iota
	// MapStateMapped means the region is mapped for CPU writes.
	MapStateMapped
	// MapStateDestroyed means the region has been released.
	MapStateDestroyed
)

// String returns the string representation of MapState.
func (s MapState) String() string {
	switch s {
	case MapStateUnmapped:
		return "Unmapped"
	case MapStateMapped:
		return "Mapped"
	case MapStateDestroyed:
		return "Destroyed"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// HostDevice creates regions backed by ordinary Go memory. The CPU and
// the "GPU" share the same bytes, so Unmap only records what was flushed.
// It is used by tests and by the simulator when no GPU is present.
type HostDevice struct{}

// NewHostDevice returns a HostDevice.
func NewHostDevice() *HostDevice { return &HostDevice{} }

// CreateRegion implements Device.
func (*HostDevice) CreateRegion(label string, size uint64) (Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: region size is 0", ErrInvalidArgument)
	}
	return &HostRegion{label: label, data: make([]byte, size)}, nil
}

// HostRegion is the Region created by HostDevice.
//
// HostRegion is safe for concurrent use.
type HostRegion struct {
	mu       sync.Mutex
	label    string
	data     []byte
	state    MapState
	maps     int
	flushed  []Span
	lastSpan []Span
}

// Label returns the debug label given at creation.
func (r *HostRegion) Label() string { return r.label }

// Size implements Region.
func (r *HostRegion) Size() uint64 { return uint64(len(r.data)) }

// Map implements Region.
func (r *HostRegion) Map() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case MapStateDestroyed:
		return nil, ErrRegionDestroyed
	case MapStateMapped:
		return nil, ErrRegionMapped
	}
	r.state = MapStateMapped
	r.maps++
	return r.data, nil
}

// Unmap implements Region.
func (r *HostRegion) Unmap(written []Span) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case MapStateDestroyed:
		return ErrRegionDestroyed
	case MapStateUnmapped:
		return ErrRegionNotMapped
	}
	for _, s := range written {
		if s.End() > uint64(len(r.data)) {
			return fmt.Errorf("%w: span [%d, %d) exceeds region size %d",
				ErrInvalidArgument, s.Offset, s.End(), len(r.data))
		}
	}
	r.state = MapStateUnmapped
	r.lastSpan = append([]Span(nil), written...)
	r.flushed = append(r.flushed, written...)
	return nil
}

// Destroy implements Region.
func (r *HostRegion) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state = MapStateDestroyed
	r.data = nil
}

// MapState returns the current mapping state.
func (r *HostRegion) MapState() MapState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// MapCount returns how many times the region has been mapped.
func (r *HostRegion) MapCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maps
}

// LastFlush returns the spans passed to the most recent Unmap.
func (r *HostRegion) LastFlush() []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Span(nil), r.lastSpan...)
}

// Flushed returns every span passed to Unmap since creation.
func (r *HostRegion) Flushed() []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Span(nil), r.flushed...)
}

// Bytes returns the backing memory regardless of mapping state.
// It stands in for what the GPU would read.
func (r *HostRegion) Bytes() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.data
}
