package commands

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/banshee-data/roiqp/internal/gop"
)

// NewGopCmd returns the command printing the frame structure of a coding
// configuration.
func NewGopCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gop",
		Short: "Print the coding structure of a sequence",
		Long: `Print frame types, temporal layers, QP offsets, references and detector
keyframes for a coding structure. Mode and period default to the tuning file.`,
		RunE: runGop,
	}
	cmd.Flags().String("structure", "", "Coding structure: AI, RA or LD")
	cmd.Flags().Int("period", 0, "Intra period (RA) or segment length (LD)")
	cmd.Flags().Int("frames", 33, "Number of frames")
	cmd.Flags().Bool("json", false, "Print frames as JSON")
	return cmd
}

func runGop(cmd *cobra.Command, args []string) error {
	cfg, err := loadTuning()
	if err != nil {
		return err
	}
	s, err := gop.StructureFromTuning(cfg)
	if err != nil {
		return err
	}
	if name := settings.GetString("structure"); name != "" {
		if s.Mode, err = gop.ParseMode(name); err != nil {
			return err
		}
	}
	if p := settings.GetInt("period"); p != 0 {
		s.Period = p
	}
	frames, err := s.Generate(settings.GetInt("frames"))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if settings.GetBool("json") {
		data, err := json.MarshalIndent(frames, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(data))
		return err
	}

	keys, err := s.KeyframeIndices(len(frames))
	if err != nil {
		return err
	}
	bounds, err := s.Boundaries(len(frames))
	if err != nil {
		return err
	}

	data := pterm.TableData{{"Index", "Type", "Layer", "QP offset", "Refs", "Keyframe"}}
	for _, f := range frames {
		key := ""
		if f.IsKeyframe {
			key = "yes"
		}
		data = append(data, []string{
			strconv.Itoa(f.Index), string(f.Type), strconv.Itoa(f.TemporalLayer),
			strconv.Itoa(f.QPOffset), joinInts(f.Refs), key,
		})
	}
	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	gops := make([]string, len(bounds))
	for i, b := range bounds {
		gops[i] = fmt.Sprintf("[%d,%d)", b.Start, b.End)
	}
	fmt.Fprintf(out, "%s: %d frames, %d keyframes\n", s, len(frames), len(keys))
	fmt.Fprintf(out, "Keyframes: %s\n", joinInts(keys))
	fmt.Fprintf(out, "GOPs: %s\n", strings.Join(gops, " "))
	_, err = fmt.Fprintln(out, table)
	return err
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, n := range v {
		s[i] = strconv.Itoa(n)
	}
	return strings.Join(s, ",")
}
