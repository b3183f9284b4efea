package backend

import (
	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/frame"
)

// Backend name constants.
const (
	// BackendHost is the name of the in-memory host backend.
	BackendHost = "host"
	// BackendNoop is the name of the gogpu/wgpu backend on the noop HAL
	// driver, registered by importing backend/wgpu.
	BackendNoop = "noop"
)

// HostBackend keeps regions in Go memory and completes frames as soon
// as they are signaled. It needs no GPU and is always available.
type HostBackend struct {
	device *gpuring.HostDevice
	fence  *frame.ImmediateFence
}

// init registers the host backend on package import.
func init() {
	Register(BackendHost, func() RingBackend {
		return &HostBackend{}
	})
}

// NewHostBackend creates a new host backend.
func NewHostBackend() *HostBackend {
	return &HostBackend{}
}

// Name returns the backend identifier.
func (b *HostBackend) Name() string {
	return BackendHost
}

// Init initializes the backend.
func (b *HostBackend) Init() error {
	b.device = gpuring.NewHostDevice()
	b.fence = &frame.ImmediateFence{}
	return nil
}

// Close releases all backend resources.
func (b *HostBackend) Close() {
	b.device = nil
	b.fence = nil
}

// Device returns the host device.
func (b *HostBackend) Device() gpuring.Device {
	if b.device == nil {
		return nil
	}
	return b.device
}

// Fence returns the immediate fence.
func (b *HostBackend) Fence() frame.Fence {
	if b.fence == nil {
		return nil
	}
	return b.fence
}
