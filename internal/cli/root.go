// Package cli defines the binclock command tree.
package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/config"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/version"
)

var (
	// cfgPath is the configuration YAML file.
	cfgPath string
	// simFlag forces the simulated clock on, overriding the file.
	simFlag bool
	// logLevel overrides the configured log level.
	logLevel string

	// rootCmd is the base command; the work happens in the subcommands.
	rootCmd = &cobra.Command{
		Use:   "binclock",
		Short: "Binary clock appliance with a three-button settings UI.",
		Long: `binclock drives a binary LED clock: a DS3231 keeps the time, three
buttons edit the time and the alarm, and the state is reported over
MQTT and a small web page.

Run the appliance with "binclock run". On a machine without the clock
chip, --sim substitutes a software clock and button stubs.`,
	}
)

// Execute runs the binclock CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig layers the file (when present) over the defaults and folds
// in the flag overrides. A missing file at the default path is fine; a
// missing file the user named is not.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	loaded, err := config.Load(cfgPath)
	switch {
	case err == nil:
		cfg = loaded
	case errors.Is(err, fs.ErrNotExist) && !rootCmd.PersistentFlags().Changed("config"):
		// Keep the defaults.
	default:
		return nil, err
	}

	if rootCmd.PersistentFlags().Changed("sim") {
		cfg.Sim = simFlag
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	pf.BoolVar(&simFlag, "sim", false, "use the simulated clock instead of the hardware")
	pf.StringVar(&logLevel, "log-level", config.DefaultLogLevel, "log level: debug, info, warn or error")
}
