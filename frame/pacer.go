// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package frame drives a gpuring.CircularAllocator through the per-frame
// lifecycle.
//
// A Pacer owns the frame counter. BeginFrame reclaims the ring space of
// the frame that last used the slot about to be reused, waiting on the
// Fence until the GPU is done with it. EndFrame flushes the mapping,
// retires the frame and signals the fence.
//
//	pacer := frame.NewPacer(ring, timeline)
//	for running {
//	    if _, err := pacer.BeginFrame(ctx); err != nil {
//	        return err
//	    }
//	    alloc, err := pacer.Allocate(256)
//	    ...
//	    submit draws
//	    if err := pacer.EndFrame(); err != nil {
//	        return err
//	    }
//	}
//	pacer.Drain(ctx)
package frame

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gogpu/gpuring"
)

// Lifecycle errors.
var (
	// ErrFrameActive is returned by BeginFrame and Drain while a frame is
	// open.
	ErrFrameActive = errors.New("frame: frame already active")

	// ErrNoFrame is returned by Allocate and EndFrame outside a frame.
	ErrNoFrame = errors.New("frame: no active frame")

	// ErrNotSignaled is returned by ImmediateFence.Wait for a frame that
	// was never signaled.
	ErrNotSignaled = errors.New("frame: frame was not signaled")
)

// Pacer sequences BeginFrame, Allocate and EndFrame over a ring allocator
// and a fence.
//
// Pacer is NOT safe for concurrent use.
type Pacer struct {
	ring  *gpuring.CircularAllocator
	fence Fence

	frame  uint64 // index of the current or next frame
	oldest uint64 // oldest frame whose space has not been reclaimed
	active bool
	stale  bool // mapping must be reacquired on the next Allocate
}

// NewPacer returns a Pacer starting at frame 0. A nil fence selects an
// ImmediateFence.
func NewPacer(ring *gpuring.CircularAllocator, fence Fence) *Pacer {
	if fence == nil {
		fence = &ImmediateFence{}
	}
	return &Pacer{ring: ring, fence: fence}
}

// Frame returns the index of the active frame, or of the next frame when
// none is active.
func (p *Pacer) Frame() uint64 { return p.frame }

// InFlight returns the number of ended frames whose space is not yet
// reclaimed.
func (p *Pacer) InFlight() int { return int(p.frame - p.oldest) }

// Active reports whether a frame is open.
func (p *Pacer) Active() bool { return p.active }

// BeginFrame opens the next frame and returns its index. When every slot
// holds a frame in flight, it first waits for the oldest one and frees
// its space. On error the frame is not opened and may be retried.
func (p *Pacer) BeginFrame(ctx context.Context) (uint64, error) {
	if p.active {
		return 0, ErrFrameActive
	}
	slots := uint64(p.ring.FrameSlots())
	for p.frame-p.oldest >= slots {
		if err := p.reclaim(ctx); err != nil {
			return 0, err
		}
	}
	p.active = true
	return p.frame, nil
}

// Allocate claims size bytes in the active frame. After Reset the first
// successful allocation reacquires the mapping.
func (p *Pacer) Allocate(size uint64) (gpuring.Allocation, error) {
	if !p.active {
		return gpuring.Allocation{}, ErrNoFrame
	}
	alloc, err := p.ring.Allocate(size, p.stale)
	if err != nil {
		return gpuring.Allocation{}, err
	}
	p.stale = false
	return alloc, nil
}

// EndFrame flushes the frame's writes, retires its space and signals the
// fence. The frame counter advances even when signaling fails, since the
// frame's space is already retired; the error then resurfaces from the
// fence wait that reclaims it.
func (p *Pacer) EndFrame() error {
	if !p.active {
		return ErrNoFrame
	}
	if err := p.ring.Unmap(); err != nil {
		return fmt.Errorf("frame: end frame %d: %w", p.frame, err)
	}
	if err := p.ring.SwapFrame(p.frame); err != nil {
		return fmt.Errorf("frame: end frame %d: %w", p.frame, err)
	}

	frame := p.frame
	p.frame++
	p.active = false

	if err := p.fence.Signal(frame); err != nil {
		return fmt.Errorf("frame: signal frame %d: %w", frame, err)
	}
	return nil
}

// Drain waits for every frame in flight and frees its space. Afterwards
// the whole ring is available again.
func (p *Pacer) Drain(ctx context.Context) error {
	if p.active {
		return ErrFrameActive
	}
	for p.oldest < p.frame {
		if err := p.reclaim(ctx); err != nil {
			return err
		}
	}
	gpuring.Logger().Debug("frame: drained",
		slog.String("label", p.ring.Label()),
		slog.Uint64("frame", p.frame))
	return nil
}

// Reset marks the current mapping stale, as after a device context
// reset. The next Allocate flushes what was written and forces a remap.
// It may be called inside or outside a frame.
func (p *Pacer) Reset() {
	p.stale = true
}

func (p *Pacer) reclaim(ctx context.Context) error {
	if err := p.fence.Wait(ctx, p.oldest); err != nil {
		return fmt.Errorf("frame: wait for frame %d: %w", p.oldest, err)
	}
	p.ring.FreeOldFrame(p.oldest)
	p.oldest++
	return nil
}
