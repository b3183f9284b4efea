package main

import (
	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ringsim",
		Short: "Simulate frame-paced GPU ring buffer allocation",
		Long: `ringsim drives a gpuring circular allocator through a synthetic
frame loop and reports how the ring behaves under load: allocations served,
requests refused for lack of space, tail bytes forfeited at wraparound and
peak utilization.

Settings come from RINGSIM_* environment variables, optionally loaded from a
.env file, and can be overridden with flags.`,
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}
