package backend

import (
	"errors"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/frame"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNotInitialized is returned when operations are called before Init.
	ErrNotInitialized = errors.New("backend: not initialized")
)

// RingBackend is a source of ring regions together with the fence that
// tells when the consumer of a frame is done with it.
//
// Backends must be registered via Register() and are selected via
// Get() or Default().
type RingBackend interface {
	// Name returns the backend identifier (e.g., "host", "noop").
	Name() string

	// Init acquires the device. It must be called before Device or Fence.
	Init() error

	// Close releases all backend resources. Rings created on the device
	// must be closed first.
	Close()

	// Device returns the region device, or nil before Init.
	Device() gpuring.Device

	// Fence returns the frame fence, or nil before Init.
	Fence() frame.Fence
}
