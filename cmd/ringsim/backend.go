package main

import (
	"errors"
	"fmt"

	"github.com/gogpu/gpuring/backend"
	_ "github.com/gogpu/gpuring/backend/wgpu" // registers the noop HAL backend
)

// openBackend opens a registered ring backend: "host" keeps the ring in
// Go memory, "noop" drives the wgpu HAL with the noop driver.
func openBackend(name string) (backend.RingBackend, error) {
	b, err := backend.Open(name)
	if errors.Is(err, backend.ErrBackendNotAvailable) {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrInvalidBackend, name, backend.Available())
	}
	return b, err
}
