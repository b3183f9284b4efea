// Command ringsim simulates a frame-paced GPU ring buffer.
//
// Usage:
//
//	ringsim run --frames 1000 --allocs 128 --backend noop
//	RINGSIM_CAPACITY=65536 ringsim run --metrics-addr :9090
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
