// Package wgpu provides the gogpu/wgpu backend for gpuring.
//
// Device reserves gpuring regions as hal.Buffers and uploads the spans
// written under each mapping with queue.WriteBuffer. Timeline turns a
// hal.Fence into a frame counter so a frame.Pacer can reclaim a frame's
// ring space only once the GPU has consumed it.
//
// # Usage
//
//	dev, err := wgpu.NewDevice(halDevice, halQueue, gputypes.BufferUsageUniform)
//	if err != nil {
//	    return err
//	}
//	ring, err := gpuring.New(dev, 4<<20, 3, gpuring.WithAlignment(256))
//	if err != nil {
//	    return err
//	}
//	timeline, err := dev.NewTimeline()
//	if err != nil {
//	    return err
//	}
//	pacer := frame.NewPacer(ring, timeline)
//
// Uniform buffer dynamic offsets must honor the device's
// MinUniformBufferOffsetAlignment, usually 256; pass it to
// gpuring.WithAlignment.
//
// Applications that already own a device share it through FromProvider.
package wgpu
