// Package gpuring provides a frame-synchronized ring allocator for
// streaming per-frame GPU-visible memory.
//
// # Overview
//
// Renderers upload constants, dynamic vertices and indices every frame.
// Instead of creating a buffer per upload, gpuring reserves one region up
// front and hands out 16-byte aligned sub-allocations from it in a ring.
// Space claimed by a frame is retired at the frame boundary and becomes
// reusable only after the driver confirms, through a GPU fence, that the
// frame has been consumed.
//
// # Quick Start
//
//	import "github.com/gogpu/gpuring"
//
//	ring, err := gpuring.New(gpuring.NewHostDevice(), 1<<20, 3)
//	if err != nil {
//	    return err
//	}
//	defer ring.Close()
//
//	alloc, err := ring.Allocate(64, false)
//	if errors.Is(err, gpuring.ErrOutOfSpace) {
//	    // back off: wait for an older frame to retire
//	}
//	copy(alloc.Data, constants)
//
//	_ = ring.Unmap()
//	_ = ring.SwapFrame(frame)
//	// ... once the fence for frame has signaled:
//	ring.FreeOldFrame(frame)
//
// # Architecture
//
// The module is organized into:
//   - gpuring: CircularAllocator, the Device/Region driver contract and an
//     in-process HostDevice
//   - backend: registry of named backends, each a Device plus a fence
//   - backend/wgpu: Device and fence timeline on gogpu/wgpu HAL
//   - frame: Pacer, which runs the begin/allocate/end lifecycle and frees
//     frames when their fence signals
//   - metrics: Prometheus Observer
//   - cmd/ringsim: a simulator that drives the ring for many frames
//
// # Logging
//
// gpuring is silent by default. Call SetLogger with a *slog.Logger to see
// lifecycle events and, at debug level, per-allocation diagnostics.
package gpuring
