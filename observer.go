package gpuring

// Observer receives accounting events from a CircularAllocator. Calls are
// made synchronously from the allocating goroutine, after the state change
// they describe has been committed.
type Observer interface {
	// Allocated reports a committed allocation of size bytes. forfeited
	// is the tail skipped by a wraparound, zero otherwise.
	Allocated(size, forfeited uint64)

	// Rejected reports a failed Allocate. err wraps ErrInvalidArgument or
	// ErrOutOfSpace.
	Rejected(err error)

	// Swapped reports that slot now holds retired bytes.
	Swapped(slot int, retired uint64)

	// Freed reports that the retired bytes of slot were reclaimed.
	Freed(slot int, reclaimed uint64)

	// MappingChanged reports acquisition (true) or release (false) of the
	// CPU-visible mapping.
	MappingChanged(mapped bool)
}

type nopObserver struct{}

func (nopObserver) Allocated(uint64, uint64) {}
func (nopObserver) Rejected(error)           {}
func (nopObserver) Swapped(int, uint64)      {}
func (nopObserver) Freed(int, uint64)        {}
func (nopObserver) MappingChanged(bool)      {}
