// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// DefaultFenceTimeout bounds a fence wait when the context has no deadline.
const DefaultFenceTimeout = 5 * time.Second

// Timeline errors.
var (
	// ErrFenceTimeout is returned when a frame fence does not signal in time.
	ErrFenceTimeout = errors.New("wgpu: timed out waiting for frame fence")

	// ErrTimelineDestroyed is returned when using a destroyed timeline.
	ErrTimelineDestroyed = errors.New("wgpu: timeline destroyed")
)

// Timeline is a hal.Fence used as a frame counter: frame i is complete
// once the fence reaches i+1. It satisfies frame.Fence.
//
// Timeline is NOT safe for concurrent use.
type Timeline struct {
	device hal.Device
	queue  hal.Queue
	fence  hal.Fence
}

// NewTimeline creates a fence-backed frame timeline on the device.
func (d *Device) NewTimeline() (*Timeline, error) {
	fence, err := d.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	return &Timeline{device: d.device, queue: d.queue, fence: fence}, nil
}

// Signal submits a fence signal for frame after all work already
// submitted to the queue.
func (t *Timeline) Signal(frame uint64) error {
	if t.fence == nil {
		return ErrTimelineDestroyed
	}
	if err := t.queue.Submit(nil, t.fence, frame+1); err != nil {
		return fmt.Errorf("wgpu: signal frame %d: %w", frame, err)
	}
	return nil
}

// Wait blocks until the GPU has completed frame. The wait is bounded by
// the context deadline, or DefaultFenceTimeout if there is none.
func (t *Timeline) Wait(ctx context.Context, frame uint64) error {
	if t.fence == nil {
		return ErrTimelineDestroyed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := DefaultFenceTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return context.DeadlineExceeded
		}
	}

	ok, err := t.device.Wait(t.fence, frame+1, timeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for frame %d: %w", frame, err)
	}
	if !ok {
		return fmt.Errorf("%w: frame %d after %v", ErrFenceTimeout, frame, timeout)
	}
	return nil
}

// Destroy releases the fence. It is idempotent.
func (t *Timeline) Destroy() {
	if t.fence == nil {
		return
	}
	t.device.DestroyFence(t.fence)
	t.fence = nil
}
