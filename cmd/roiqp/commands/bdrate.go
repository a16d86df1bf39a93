package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/internal/bdrate"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
	"github.com/banshee-data/roiqp/internal/report"
)

// NewBDRateCmd returns the command re-evaluating an RD table written by
// sweep.
func NewBDRateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bdrate RD_CSV",
		Short: "Compute BD-Rate and BD-PSNR from an RD table",
		Long: `Read an rd.csv written by sweep (or any CSV with sequence, method, qp,
bitrate_kbps and psnr_y columns) and compare every method against the anchor.`,
		Args: cobra.ExactArgs(1),
		RunE: runBDRate,
	}
	cmd.Flags().String("anchor", pipeline.Baseline.Name, "Method the others are compared against")
	cmd.Flags().Bool("sampled", false, "Integrate on a sampled grid instead of analytically")
	cmd.Flags().String("format", "table", "Output format: table, markdown or csv")
	return cmd
}

func runBDRate(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return errors.Wrap(err, "open rd table")
	}
	rows, err := report.ReadRowsCSV(f)
	f.Close()
	if err != nil {
		return err
	}
	integration := bdrate.Analytic
	if settings.GetBool("sampled") {
		integration = bdrate.Sampled
	}
	cs := pipeline.CompareAll(rows, settings.GetString("anchor"), integration)

	switch format := settings.GetString("format"); format {
	case "table":
		return printComparisons(cmd, cs)
	case "markdown", "md":
		return report.WriteComparisonsMarkdown(cmd.OutOrStdout(), cs)
	case "csv":
		return report.WriteComparisonsCSV(cmd.OutOrStdout(), cs)
	default:
		return errors.Newf("unknown format %q", format)
	}
}
