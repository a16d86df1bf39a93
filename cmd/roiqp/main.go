// Command roiqp runs ROI-aware QP sweeps and evaluates them with
// Bjøntegaard deltas.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/cmd/roiqp/commands"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "roiqp",
		Short: "ROI-driven QP maps for VVC and their BD-rate evaluation",
		Long: `roiqp builds per-block QP maps from detected and propagated regions of
interest, encodes each sequence at several base QPs and compares the
resulting rate-distortion curves against a uniform-QP baseline.

Examples:
  roiqp gop --structure RA --frames 40        # Print the coding structure
  roiqp sweep --synthetic 32                  # Sweep a synthetic sequence
  roiqp sweep --yuv crowd.yuv --size 1920x1080 --encoder vvenc
  roiqp bdrate results/rd.csv                 # Re-evaluate an RD table
  roiqp history SWEEP_ID --db results/roiqp.db  # Show a recorded sweep`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return commands.Setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			monitoring.Sync()
		},
	}
	commands.AddGlobalFlags(root)
	root.AddCommand(commands.NewCommands()...)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}
