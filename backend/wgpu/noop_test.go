// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"context"
	"testing"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/backend"
	"github.com/gogpu/gpuring/frame"
)

func TestNoopBackendRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.BackendNoop) {
		t.Fatal("noop backend should be registered on import")
	}
	if b := backend.Default(); b == nil || b.Name() != backend.BackendNoop {
		t.Errorf("Default() should prefer the noop backend over host")
	}
}

func TestNoopBackendPacesFrames(t *testing.T) {
	b, err := backend.Open(backend.BackendNoop)
	if err != nil {
		t.Fatalf("Open(noop) error = %v", err)
	}
	defer b.Close()

	ring, err := gpuring.New(b.Device(), 8192, 3, gpuring.WithAlignment(256))
	if err != nil {
		t.Fatalf("gpuring.New() error = %v", err)
	}
	defer ring.Close()

	pacer := frame.NewPacer(ring, b.Fence())
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		if _, err := pacer.BeginFrame(ctx); err != nil {
			t.Fatalf("frame %d: BeginFrame() error = %v", i, err)
		}
		for j := 0; j < 4; j++ {
			if _, err := pacer.Allocate(256); err != nil {
				t.Fatalf("frame %d: Allocate() error = %v", i, err)
			}
		}
		if err := pacer.EndFrame(); err != nil {
			t.Fatalf("frame %d: EndFrame() error = %v", i, err)
		}
	}
	if err := pacer.Drain(ctx); err != nil {
		t.Fatalf("Drain() error = %v", err)
	}

	region := ring.Region().(*Region)
	if got := region.Uploaded(); got != 10*4*256 {
		t.Errorf("Uploaded() = %d, want %d", got, 10*4*256)
	}
}

func TestNoopBackendLifecycle(t *testing.T) {
	b := &NoopBackend{}
	if b.Device() != nil || b.Fence() != nil {
		t.Error("Device() and Fence() should be nil before Init")
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := b.Init(); err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	b.Close()
	b.Close()
	if b.Device() != nil {
		t.Error("Device() should be nil after Close")
	}
}
