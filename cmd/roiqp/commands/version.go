package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/internal/version"
)

// NewVersionCmd returns the command printing build metadata.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show roiqp version information",
		RunE:  runVersion,
	}
	cmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
	return cmd
}

func runVersion(cmd *cobra.Command, args []string) error {
	info := version.Get()
	out := cmd.OutOrStdout()
	if settings.GetBool("json") {
		data, err := json.MarshalIndent(info, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}
	fmt.Fprintln(out, info.String())
	fmt.Fprintf(out, "Platform: %s\n", info.Platform)
	_, err := fmt.Fprintf(out, "Go: %s\n", info.GoVersion)
	return err
}
