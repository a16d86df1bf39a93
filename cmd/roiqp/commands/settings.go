// Package commands implements the roiqp subcommands.
package commands

import (
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/banshee-data/roiqp/internal/config"
	"github.com/banshee-data/roiqp/internal/errors"
	"github.com/banshee-data/roiqp/internal/monitoring"
)

// settings resolves flag values with ROIQP_* environment overrides, e.g.
// ROIQP_DB or ROIQP_OUT.
var settings = newSettings()

func newSettings() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("ROIQP")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// AddGlobalFlags registers the flags shared by every subcommand.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringP("config", "c", "", "Tuning file (.json, .yaml or .toml); built-in defaults when empty")
	root.PersistentFlags().Bool("debug", false, "Emit per-frame debug logs")
	root.PersistentFlags().Bool("json-logs", false, "Log as JSON instead of console text")
}

// Setup binds the invoked command's flags and initializes logging.
func Setup(cmd *cobra.Command) error {
	settings = newSettings()
	if err := settings.BindPFlags(cmd.Flags()); err != nil {
		return errors.Wrap(err, "bind flags")
	}
	return monitoring.Initialize(monitoring.Options{
		JSON:  settings.GetBool("json-logs"),
		Debug: settings.GetBool("debug"),
	})
}

// NewCommands returns a fresh set of subcommands for the root command.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{NewGopCmd(), NewSweepCmd(), NewBDRateCmd(), NewHistoryCmd(), NewVersionCmd()}
}

// loadTuning returns the file named by --config, or the defaults.
func loadTuning() (*config.TuningConfig, error) {
	path := settings.GetString("config")
	if path == "" {
		return config.DefaultTuningConfig(), nil
	}
	cfg, err := config.LoadTuningConfig(path)
	if err != nil {
		return nil, errors.WithHint(errors.Wrapf(err, "load %s", path), "see config/tuning.defaults.json for every key")
	}
	return cfg, nil
}

// parseInts parses a comma-separated list such as "22,27,32,37".
func parseInts(s string) ([]int, error) {
	var out []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, errors.Newf("invalid integer %q", f)
		}
		out = append(out, v)
	}
	return out, nil
}
