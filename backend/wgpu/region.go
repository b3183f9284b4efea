// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/wgpu/hal"
)

// Region is a gpuring.Region backed by a hal.Buffer.
//
// Region is safe for concurrent use, but only one mapping may be active
// at a time.
type Region struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	buffer hal.Buffer
	label  string

	// shadow is the CPU-visible copy handed out by Map.
	shadow []byte
	state  gpuring.MapState

	// uploaded counts bytes written to the GPU buffer since creation.
	uploaded uint64
}

var _ gpuring.Region = (*Region)(nil)

// Size implements gpuring.Region.
func (r *Region) Size() uint64 { return uint64(len(r.shadow)) }

// Label returns the buffer debug label.
func (r *Region) Label() string { return r.label }

// Map implements gpuring.Region.
func (r *Region) Map() ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case gpuring.MapStateDestroyed:
		return nil, gpuring.ErrRegionDestroyed
	case gpuring.MapStateMapped:
		return nil, gpuring.ErrRegionMapped
	}
	r.state = gpuring.MapStateMapped
	return r.shadow, nil
}

// Unmap implements gpuring.Region. Each written span is widened to the
// 4-byte granularity of queue writes and uploaded with queue.WriteBuffer,
// which the queue orders before the next submission. If a span is out of
// range or an upload fails, the region stays mapped.
func (r *Region) Unmap(written []gpuring.Span) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case gpuring.MapStateDestroyed:
		return gpuring.ErrRegionDestroyed
	case gpuring.MapStateUnmapped:
		return gpuring.ErrRegionNotMapped
	}

	size := uint64(len(r.shadow))
	for _, s := range written {
		if s.End() > size {
			return fmt.Errorf("%w: span [%d, %d) exceeds buffer %q of %d bytes",
				gpuring.ErrInvalidArgument, s.Offset, s.End(), r.label, size)
		}
	}

	spans := copySpans(written)
	var n uint64
	for _, s := range spans {
		if err := r.queue.WriteBuffer(r.buffer, s.Offset, r.shadow[s.Offset:s.End()]); err != nil {
			r.uploaded += n
			return fmt.Errorf("wgpu: write buffer %q at %d: %w", r.label, s.Offset, err)
		}
		n += s.Size
	}
	r.uploaded += n
	r.state = gpuring.MapStateUnmapped

	slogger().Debug("wgpu: region flushed",
		slog.String("label", r.label),
		slog.Int("spans", len(spans)),
		slog.Uint64("bytes", n))
	return nil
}

// copySpans widens the non-empty written spans to copyBufferAlignment and
// merges each one into its predecessor when they touch or overlap. The
// shadow is a multiple of copyBufferAlignment long, so widened spans stay
// in range.
func copySpans(written []gpuring.Span) []gpuring.Span {
	spans := make([]gpuring.Span, 0, len(written))
	for _, s := range written {
		if s.Size == 0 {
			continue
		}
		start := s.Offset &^ (copyBufferAlignment - 1)
		end := (s.End() + copyBufferAlignment - 1) &^ (copyBufferAlignment - 1)
		if n := len(spans); n > 0 && start <= spans[n-1].End() && end >= spans[n-1].Offset {
			last := &spans[n-1]
			lo, hi := min(last.Offset, start), max(last.End(), end)
			last.Offset, last.Size = lo, hi-lo
			continue
		}
		spans = append(spans, gpuring.Span{Offset: start, Size: end - start})
	}
	return spans
}

// Destroy implements gpuring.Region. It is idempotent.
func (r *Region) Destroy() {
	r.mu.Lock()
	if r.state == gpuring.MapStateDestroyed {
		r.mu.Unlock()
		return
	}
	buffer := r.buffer
	r.buffer = nil
	r.shadow = nil
	r.state = gpuring.MapStateDestroyed
	r.mu.Unlock()

	if buffer != nil {
		r.device.DestroyBuffer(buffer)
	}
}

// Buffer returns the GPU buffer for binding, or nil once destroyed.
func (r *Region) Buffer() hal.Buffer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buffer
}

// MapState returns the current mapping state.
func (r *Region) MapState() gpuring.MapState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Uploaded returns the number of bytes written to the GPU buffer.
func (r *Region) Uploaded() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.uploaded
}
