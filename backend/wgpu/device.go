// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuring"
	"github.com/gogpu/wgpu/hal"
)

// Device errors.
var (
	// ErrNilHALDevice is returned when a nil hal.Device or hal.Queue is given.
	ErrNilHALDevice = errors.New("wgpu: hal device or queue is nil")

	// ErrNilProvider is returned when a nil DeviceProvider is given.
	ErrNilProvider = errors.New("wgpu: nil DeviceProvider")

	// ErrProviderNotHAL is returned when a provider does not expose HAL types.
	ErrProviderNotHAL = errors.New("wgpu: provider does not expose HAL types")

	// ErrMapUsage is returned when the requested usage asks for buffer
	// mapping. Regions upload through the queue and never map the buffer.
	ErrMapUsage = errors.New("wgpu: region usage must not include MapRead or MapWrite")
)

// DefaultUsage is the usage of regions when none is given: constant data
// and dynamic vertices.
const DefaultUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageUniform

// copyBufferAlignment is the WebGPU alignment of queue writes.
const copyBufferAlignment uint64 = 4

// Device implements gpuring.Device on a gogpu/wgpu HAL device.
//
// Regions are real GPU buffers. Their CPU-visible mapping is a shadow copy
// in Go memory; unmapping uploads exactly the spans written while mapped
// with queue.WriteBuffer, which gives write-no-overwrite semantics: bytes
// of frames still in flight are never rewritten.
type Device struct {
	device hal.Device
	queue  hal.Queue
	usage  gputypes.BufferUsage
}

// NewDevice wraps a HAL device and queue. usage is the bind usage of every
// region created (vertex, uniform, storage, ...); CopyDst is always added.
// A zero usage selects DefaultUsage.
func NewDevice(device hal.Device, queue hal.Queue, usage gputypes.BufferUsage) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilHALDevice
	}
	if usage == 0 {
		usage = DefaultUsage
	}
	if usage.Contains(gputypes.BufferUsageMapRead) || usage.Contains(gputypes.BufferUsageMapWrite) {
		return nil, ErrMapUsage
	}
	return &Device{
		device: device,
		queue:  queue,
		usage:  usage | gputypes.BufferUsageCopyDst,
	}, nil
}

// FromProvider shares the GPU device of a host application. The provider
// must implement HalDevice() any and HalQueue() any returning hal.Device
// and hal.Queue.
func FromProvider(provider gpucontext.DeviceProvider, usage gputypes.BufferUsage) (*Device, error) {
	if provider == nil {
		return nil, ErrNilProvider
	}
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrProviderNotHAL
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrProviderNotHAL)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrProviderNotHAL)
	}
	slogger().Info("wgpu: using shared GPU device")
	return NewDevice(device, queue, usage)
}

// Usage returns the buffer usage of regions created by the device.
func (d *Device) Usage() gputypes.BufferUsage { return d.usage }

// HAL returns the underlying device and queue.
func (d *Device) HAL() (hal.Device, hal.Queue) { return d.device, d.queue }

// CreateRegion implements gpuring.Device. The buffer size is rounded up
// to the copy alignment.
func (d *Device) CreateRegion(label string, size uint64) (gpuring.Region, error) {
	if size == 0 {
		return nil, fmt.Errorf("%w: region size is 0", gpuring.ErrInvalidArgument)
	}
	alignedSize := (size + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)

	buffer, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  alignedSize,
		Usage: d.usage,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create buffer %q: %w", label, err)
	}

	slogger().Debug("wgpu: region buffer created",
		slog.String("label", label),
		slog.Uint64("size", alignedSize))

	return &Region{
		device: d.device,
		queue:  d.queue,
		buffer: buffer,
		label:  label,
		shadow: make([]byte, alignedSize),
	}, nil
}
