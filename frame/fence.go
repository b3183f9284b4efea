package frame

import "context"

// Fence tracks GPU completion of frames.
//
// Signal is called once per frame, after the frame's work has been
// submitted. Wait blocks until that work has completed. Frames are
// signaled in increasing order starting at zero.
type Fence interface {
	Signal(frame uint64) error
	Wait(ctx context.Context, frame uint64) error
}

// ImmediateFence is a Fence for hosts without a GPU: a frame completes as
// soon as it is signaled. Waiting for a frame that was never signaled
// returns ErrNotSignaled.
type ImmediateFence struct {
	signaled uint64 // frames signaled so far
}

// Signal marks frame complete.
func (f *ImmediateFence) Signal(frame uint64) error {
	if frame+1 > f.signaled {
		f.signaled = frame + 1
	}
	return nil
}

// Wait returns nil if frame has been signaled.
func (f *ImmediateFence) Wait(ctx context.Context, frame uint64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if frame >= f.signaled {
		return ErrNotSignaled
	}
	return nil
}
