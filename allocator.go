package gpuring

import (
	"errors"
	"fmt"
	"log/slog"
)

// Allocation is the result of a successful Allocate.
type Allocation struct {
	// Offset is the byte offset of the allocation from the region base.
	// Bind it as the dynamic offset of the draw that consumes the data.
	Offset uint64

	// Size is the allocation size in bytes.
	Size uint64

	// Data is the mapped window [Offset, Offset+Size) of the region. It
	// is only valid until the mapping is released by Unmap, a forced
	// remap, or SwapFrame under MappingReleaseOnSwap.
	Data []byte
}

// CircularAllocator is a frame-synchronized ring allocator for streaming
// per-frame GPU-visible data.
//
// Allocations are carved linearly from a fixed region. A request that
// would cross the end of the region restarts at offset 0, and the skipped
// tail is charged to the current frame. At each frame boundary SwapFrame
// moves the bytes claimed by the frame into a retirement slot, shrinking
// the budget for later frames until FreeOldFrame returns them once the
// GPU has finished with that frame:
//
//	<START> | free | F1 in use | F2 in use | F3 in use | free | <END>
//
// CircularAllocator is NOT safe for concurrent use. All calls must come
// from the single render-submission goroutine. No call blocks.
//
// Lifecycle:
//  1. Create with New (reserves the region)
//  2. Per frame: Allocate zero or more times, Unmap, SwapFrame(i)
//  3. Once the GPU fence for frame i has signaled: FreeOldFrame(i)
//  4. Close when the driver tears down
type CircularAllocator struct {
	region Region
	opts   options

	capacity  uint64
	retired   []uint64 // bytes held per frame slot, indexed by frame % len
	cursor    uint64   // offset of the next allocation
	consumed  uint64   // bytes claimed by the current frame, forfeits included
	available uint64   // bytes not reserved by an in-flight frame

	mapping []byte // active CPU-visible mapping, nil when unmapped
	written []Span // spans allocated under the active mapping

	allocations uint64
	forfeited   uint64
	outOfSpace  uint64

	closed bool
}

// New reserves a capacity-byte region from dev and returns an allocator
// with frameSlots retirement slots, typically 2 or 3 (one per frame that
// may be in flight).
//
// Returns an error wrapping ErrInvalidArgument if dev is nil, capacity is
// zero, frameSlots is not positive, or the configured alignment is not a
// power of two. Region reservation failures are returned wrapped.
func New(dev Device, capacity uint64, frameSlots int, opts ...Option) (*CircularAllocator, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if dev == nil {
		return nil, fmt.Errorf("%w: device is nil", ErrInvalidArgument)
	}
	if capacity == 0 {
		return nil, fmt.Errorf("%w: capacity is 0", ErrInvalidArgument)
	}
	if frameSlots <= 0 {
		return nil, fmt.Errorf("%w: frame slot count %d", ErrInvalidArgument, frameSlots)
	}
	if o.alignment == 0 || o.alignment&(o.alignment-1) != 0 {
		return nil, fmt.Errorf("%w: alignment %d is not a power of two", ErrInvalidArgument, o.alignment)
	}

	region, err := dev.CreateRegion(o.label, capacity)
	if err != nil {
		return nil, fmt.Errorf("gpuring: reserve %d-byte region %q: %w", capacity, o.label, err)
	}
	if region.Size() < capacity {
		region.Destroy()
		return nil, fmt.Errorf("gpuring: region %q is %d bytes, requested %d", o.label, region.Size(), capacity)
	}

	Logger().Info("gpuring: region reserved",
		slog.String("label", o.label),
		slog.Uint64("capacity", capacity),
		slog.Int("frameSlots", frameSlots),
		slog.String("mapping", o.policy.String()))

	return &CircularAllocator{
		region:    region,
		opts:      o,
		capacity:  capacity,
		retired:   make([]uint64, frameSlots),
		available: capacity,
	}, nil
}

// Allocate claims size bytes for the current frame and returns them
// through the active CPU-visible mapping, acquiring the mapping if none
// is active. With forceRemap set, an active mapping is released and
// reacquired first; use it when the previous mapping is known to be
// stale, such as after a device context reset.
//
// size must be a positive multiple of the alignment (16 by default).
// Returns an error wrapping:
//   - ErrInvalidArgument for a zero or misaligned size, or a size that can
//     never fit in the region (size >= Capacity). Such a request is not
//     reported as ErrOutOfSpace because waiting for frames to retire can
//     never satisfy it.
//   - ErrOutOfSpace if the frame would reach the budget left by frames in
//     flight
//   - the region's error if the mapping cannot be acquired
//
// A failed Allocate leaves the cursor and the frame accounting untouched.
func (a *CircularAllocator) Allocate(size uint64, forceRemap bool) (Allocation, error) {
	if a.closed {
		return Allocation{}, ErrAllocatorClosed
	}
	if size == 0 || size%a.opts.alignment != 0 {
		return a.reject(fmt.Errorf("%w: size %d is not a positive multiple of %d",
			ErrInvalidArgument, size, a.opts.alignment))
	}
	if size >= a.capacity {
		return a.reject(fmt.Errorf("%w: size %d can never fit in a %d-byte region",
			ErrInvalidArgument, size, a.capacity))
	}

	// Allocations never straddle <END>: the remainder is forfeited and the
	// request is served from <START>.
	offset, forfeit := a.cursor, uint64(0)
	if offset+size >= a.capacity {
		forfeit = a.capacity - offset
		offset = 0
	}

	consumed := a.consumed + forfeit + size
	if consumed >= a.available {
		a.outOfSpace++
		return a.reject(fmt.Errorf("%w: frame needs %d bytes, %d available",
			ErrOutOfSpace, consumed, a.available))
	}

	if err := a.ensureMapped(forceRemap); err != nil {
		Logger().Warn("gpuring: mapping failed",
			slog.String("label", a.opts.label),
			slog.String("err", err.Error()))
		return Allocation{}, err
	}

	a.consumed = consumed
	a.cursor = offset + size
	a.forfeited += forfeit
	a.allocations++
	a.recordWrite(offset, size)
	a.opts.observer.Allocated(size, forfeit)

	if forfeit > 0 {
		Logger().Debug("gpuring: wrapped to start",
			slog.String("label", a.opts.label),
			slog.Uint64("forfeited", forfeit),
			slog.Uint64("consumed", a.consumed))
	}

	end := offset + size
	return Allocation{
		Offset: offset,
		Size:   size,
		Data:   a.mapping[offset:end:end],
	}, nil
}

// Unmap releases the active CPU-visible mapping, handing the spans
// written under it to the region. It is a no-op if nothing is mapped.
// It must be called before the GPU reads the region in a submission,
// unless MappingReleaseOnSwap already released it in SwapFrame.
func (a *CircularAllocator) Unmap() error {
	if a.closed {
		return ErrAllocatorClosed
	}
	return a.release()
}

// SwapFrame closes the current frame: the bytes it claimed are retired
// into the slot frameIndex % FrameSlots and withheld from the budget until
// FreeOldFrame(frameIndex). frameIndex must increase by one per frame.
//
// Returns an error wrapping ErrInvalidArgument, without changing any
// state, if the slot still holds bytes of an older frame that was never
// freed. Overwriting the slot instead would drop those bytes from the
// accounting for good.
func (a *CircularAllocator) SwapFrame(frameIndex uint64) error {
	if a.closed {
		return ErrAllocatorClosed
	}
	slot := a.slot(frameIndex)
	if a.retired[slot] != 0 {
		err := fmt.Errorf("%w: slot %d for frame %d still retiring %d bytes",
			ErrInvalidArgument, slot, frameIndex, a.retired[slot])
		Logger().Warn("gpuring: swap into busy slot",
			slog.String("label", a.opts.label),
			slog.String("err", err.Error()))
		return err
	}

	if a.opts.policy == MappingReleaseOnSwap {
		if err := a.release(); err != nil {
			return err
		}
	}

	a.retired[slot] = a.consumed
	a.available -= a.consumed
	a.consumed = 0
	a.opts.observer.Swapped(slot, a.retired[slot])
	return nil
}

// FreeOldFrame returns the bytes retired by frame frameIndex to the
// budget and clears its slot; calling it again for the same frame is a
// no-op.
//
// Call it only after the GPU has finished consuming the frame, as
// signaled by a fence. Freeing earlier lets later allocations overwrite
// memory the GPU is still reading; the allocator cannot detect this.
func (a *CircularAllocator) FreeOldFrame(frameIndex uint64) {
	slot := a.slot(frameIndex)
	n := a.retired[slot]
	if n == 0 {
		return
	}
	a.available += n
	a.retired[slot] = 0
	a.opts.observer.Freed(slot, n)
}

// Close releases the mapping and destroys the region. Later calls
// return ErrAllocatorClosed, except Close itself which is idempotent.
func (a *CircularAllocator) Close() error {
	if a.closed {
		return nil
	}
	err := a.release()
	a.mapping = nil
	a.region.Destroy()
	a.closed = true

	Logger().Info("gpuring: allocator closed",
		slog.String("label", a.opts.label),
		slog.Uint64("allocations", a.allocations))
	return err
}

// Capacity returns the region size in bytes.
func (a *CircularAllocator) Capacity() uint64 { return a.capacity }

// FrameSlots returns the number of retirement slots.
func (a *CircularAllocator) FrameSlots() int { return len(a.retired) }

// Available returns the budget not reserved by frames in flight.
func (a *CircularAllocator) Available() uint64 { return a.available }

// Consumed returns the bytes claimed by the current frame.
func (a *CircularAllocator) Consumed() uint64 { return a.consumed }

// Cursor returns the offset of the next allocation.
func (a *CircularAllocator) Cursor() uint64 { return a.cursor }

// Retired returns the bytes held by the slot of frameIndex.
func (a *CircularAllocator) Retired(frameIndex uint64) uint64 {
	return a.retired[a.slot(frameIndex)]
}

// Mapped reports whether a CPU-visible mapping is active.
func (a *CircularAllocator) Mapped() bool { return a.mapping != nil }

// Policy returns the mapping lifetime policy.
func (a *CircularAllocator) Policy() MappingPolicy { return a.opts.policy }

// Label returns the debug label.
func (a *CircularAllocator) Label() string { return a.opts.label }

// Region returns the backing region, for binding by the driver.
func (a *CircularAllocator) Region() Region { return a.region }

// Stats returns a snapshot of the accounting.
func (a *CircularAllocator) Stats() Stats {
	s := Stats{
		Capacity:    a.capacity,
		Available:   a.available,
		Consumed:    a.consumed,
		Cursor:      a.cursor,
		Mapped:      a.mapping != nil,
		Allocations: a.allocations,
		Forfeited:   a.forfeited,
		OutOfSpace:  a.outOfSpace,
	}
	for _, n := range a.retired {
		s.Retired += n
		if n != 0 {
			s.FramesInFlight++
		}
	}
	return s
}

func (a *CircularAllocator) slot(frameIndex uint64) int {
	return int(frameIndex % uint64(len(a.retired)))
}

func (a *CircularAllocator) reject(err error) (Allocation, error) {
	Logger().Warn("gpuring: allocation rejected",
		slog.String("label", a.opts.label),
		slog.String("err", err.Error()))
	a.opts.observer.Rejected(err)
	return Allocation{}, err
}

func (a *CircularAllocator) ensureMapped(force bool) error {
	if a.mapping != nil && !force {
		return nil
	}
	if err := a.release(); err != nil {
		return err
	}

	m, err := a.region.Map()
	if err != nil {
		return fmt.Errorf("gpuring: map region %q: %w", a.opts.label, err)
	}
	if uint64(len(m)) < a.capacity {
		err := fmt.Errorf("gpuring: region %q mapped %d bytes, need %d", a.opts.label, len(m), a.capacity)
		if uerr := a.region.Unmap(nil); uerr != nil {
			err = errors.Join(err, fmt.Errorf("gpuring: unmap region %q: %w", a.opts.label, uerr))
		}
		return err
	}
	a.mapping = m
	a.opts.observer.MappingChanged(true)

	Logger().Debug("gpuring: mapped",
		slog.String("label", a.opts.label),
		slog.Bool("forced", force))
	return nil
}

func (a *CircularAllocator) release() error {
	if a.mapping == nil {
		return nil
	}
	if err := a.region.Unmap(a.written); err != nil {
		return fmt.Errorf("gpuring: unmap region %q: %w", a.opts.label, err)
	}
	a.mapping = nil
	a.written = a.written[:0]
	a.opts.observer.MappingChanged(false)
	return nil
}

// recordWrite appends [offset, offset+size) to the written spans,
// extending the last span when the two are contiguous.
func (a *CircularAllocator) recordWrite(offset, size uint64) {
	if n := len(a.written); n > 0 && a.written[n-1].End() == offset {
		a.written[n-1].Size += size
		return
	}
	a.written = append(a.written, Span{Offset: offset, Size: size})
}
