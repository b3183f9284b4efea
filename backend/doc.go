// Package backend provides a registry of ring backends.
//
// A backend supplies the gpuring.Device that reserves ring regions and the
// frame.Fence that paces their reuse. The host backend is registered on
// import; HAL backends register themselves from their own packages:
//
//	import _ "github.com/gogpu/gpuring/backend/wgpu"
//
// # Backend Selection
//
// Use Default() to get the best available backend, or Get() to request
// a specific backend by name:
//
//	// Get the default (best available) backend
//	b := backend.Default()
//
//	// Or request a specific backend
//	b := backend.Get("host")
//
// # Usage with a Ring
//
//	b, err := backend.Open("host")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer b.Close()
//
//	ring, err := gpuring.New(b.Device(), 1<<20, 3)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ring.Close()
//	pacer := frame.NewPacer(ring, b.Fence())
//
// # Available Backends
//
// - "host": Go memory, frames complete on signal (always available)
// - "noop": gogpu/wgpu buffers and fences on the noop HAL driver
package backend
