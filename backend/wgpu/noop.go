// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"errors"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/backend"
	"github.com/gogpu/gpuring/frame"
	"github.com/gogpu/wgpu/hal"
	"github.com/gogpu/wgpu/hal/noop"
)

// NoopBackend runs the HAL device path on the noop driver: real buffer,
// queue write and fence calls with no GPU behind them.
type NoopBackend struct {
	instance hal.Instance
	device   hal.Device
	ring     *Device
	timeline *Timeline
}

// init registers the noop backend on package import.
func init() {
	backend.Register(backend.BackendNoop, func() backend.RingBackend {
		return &NoopBackend{}
	})
}

// Name returns the backend identifier.
func (b *NoopBackend) Name() string { return backend.BackendNoop }

// Init opens the first noop adapter and creates the frame timeline.
func (b *NoopBackend) Init() error {
	if b.ring != nil {
		return nil
	}
	api := noop.API{}
	instance, err := api.CreateInstance(nil)
	if err != nil {
		return fmt.Errorf("wgpu: create noop instance: %w", err)
	}
	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return errors.New("wgpu: noop instance has no adapters")
	}
	openDev, err := adapters[0].Adapter.Open(0, gputypes.DefaultLimits())
	if err != nil {
		instance.Destroy()
		return fmt.Errorf("wgpu: open noop device: %w", err)
	}

	ring, err := NewDevice(openDev.Device, openDev.Queue, 0)
	if err == nil {
		b.timeline, err = ring.NewTimeline()
	}
	if err != nil {
		openDev.Device.Destroy()
		instance.Destroy()
		return err
	}
	b.instance = instance
	b.device = openDev.Device
	b.ring = ring
	return nil
}

// Close destroys the timeline, device and instance.
func (b *NoopBackend) Close() {
	if b.ring == nil {
		return
	}
	b.timeline.Destroy()
	b.device.Destroy()
	b.instance.Destroy()
	b.ring, b.timeline, b.device, b.instance = nil, nil, nil, nil
}

// Device returns the HAL ring device.
func (b *NoopBackend) Device() gpuring.Device {
	if b.ring == nil {
		return nil
	}
	return b.ring
}

// Fence returns the frame timeline.
func (b *NoopBackend) Fence() frame.Fence {
	if b.timeline == nil {
		return nil
	}
	return b.timeline
}
