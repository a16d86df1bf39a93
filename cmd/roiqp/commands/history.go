package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/pipeline"
	"github.com/banshee-data/roiqp/internal/storage/sqlite"
)

// NewHistoryCmd returns the command showing what a recorded sweep ran and
// how it scored.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history SWEEP_ID",
		Short: "Show the runs and evaluations of a recorded sweep",
		Args:  cobra.ExactArgs(1),
		RunE:  runHistory,
	}
	cmd.Flags().String("db", "results/roiqp.db", "SQLite database written by sweep --db")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := settings.GetString("db")
	db, err := sqlite.Open(path)
	if err != nil {
		return err
	}
	defer db.Close()
	version, _, err := db.MigrateVersion()
	if err != nil {
		return err
	}

	sweepID := args[0]
	runs, err := sqlite.NewRunStore(db.DB).ListBySweep(sweepID)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return errors.Newf("no runs recorded for sweep %s", sweepID)
	}
	rd := sqlite.NewRDStore(db.DB)
	data := pterm.TableData{{"Sequence", "Method", "Structure", "Frames", "Status", "Points", "Error"}}
	for _, r := range runs {
		rows, err := rd.ListByRun(r.RunID)
		if err != nil {
			return err
		}
		data = append(data, []string{
			r.Sequence, r.Method, r.Structure, strconv.Itoa(r.Frames), r.Status, strconv.Itoa(len(rows)), r.Error,
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s (schema v%d): sweep %s, %d runs\n", path, version, sweepID, len(runs))
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	fmt.Fprintln(out, table)

	evals, err := sqlite.NewEvaluationStore(db.DB).ListBySweep(sweepID)
	if err != nil {
		return err
	}
	cs := make([]pipeline.Comparison, 0, len(evals))
	for _, e := range evals {
		cs = append(cs, e.Comparison)
	}
	return printComparisons(cmd, cs)
}
