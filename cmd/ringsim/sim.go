package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gogpu/gpuring"
	"github.com/gogpu/gpuring/backend"
	"github.com/gogpu/gpuring/frame"
)

// Result summarizes a simulation run.
type Result struct {
	Frames      int
	Allocations uint64
	Skipped     uint64 // requests refused with ErrOutOfSpace
	Bytes       uint64
	Elapsed     time.Duration
	Stats       gpuring.Stats // taken after the final drain
	Peak        float64       // highest utilization seen at a frame end
}

// simulate runs cfg.Frames frames of cfg.AllocsPerFrame random requests
// against a fresh ring on b. Out-of-space requests are skipped and
// counted, the way a renderer drops a draw under backpressure.
func simulate(ctx context.Context, cfg Config, b backend.RingBackend, obs gpuring.Observer) (Result, error) {
	policy, err := cfg.policy()
	if err != nil {
		return Result{}, err
	}
	ring, err := gpuring.New(b.Device(), cfg.Capacity, cfg.FrameSlots,
		gpuring.WithAlignment(cfg.Alignment),
		gpuring.WithMappingPolicy(policy),
		gpuring.WithObserver(obs),
		gpuring.WithLabel("ringsim"))
	if err != nil {
		return Result{}, err
	}
	defer ring.Close()

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	lo := (cfg.MinSize + cfg.Alignment - 1) / cfg.Alignment
	hi := cfg.MaxSize / cfg.Alignment
	if hi < lo {
		hi = lo
	}

	pacer := frame.NewPacer(ring, b.Fence())
	var res Result
	start := time.Now()

	for f := 0; f < cfg.Frames; f++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		idx, err := pacer.BeginFrame(ctx)
		if err != nil {
			return res, err
		}
		for i := 0; i < cfg.AllocsPerFrame; i++ {
			size := (lo + rng.Uint64N(hi-lo+1)) * cfg.Alignment
			alloc, err := pacer.Allocate(size)
			if errors.Is(err, gpuring.ErrOutOfSpace) {
				res.Skipped++
				continue
			}
			if err != nil {
				return res, fmt.Errorf("frame %d: %w", idx, err)
			}
			stamp(alloc.Data, idx)
			res.Allocations++
			res.Bytes += size
		}
		if u := ring.Stats().Utilization(); u > res.Peak {
			res.Peak = u
		}
		if err := pacer.EndFrame(); err != nil {
			return res, err
		}
		res.Frames++
	}

	if err := pacer.Drain(ctx); err != nil {
		return res, err
	}
	res.Elapsed = time.Since(start)
	res.Stats = ring.Stats()
	return res, nil
}

// stamp fills data with the frame index, standing in for vertex or
// constant data a renderer would write.
func stamp(data []byte, idx uint64) {
	for i := range data {
		data[i] = byte(idx)
	}
}
