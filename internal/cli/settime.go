package cli

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

var setTimeFormat12 bool

var setTimeCmd = &cobra.Command{
	Use:   "set-time HH:MM[:SS]",
	Short: "Write a new time of day to the clock chip.",
	Long: `Writes the given time of day straight to the DS3231, keeping today's
date. A running daemon adopts the change on its next tick.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Sim {
			return fmt.Errorf("set-time talks to the clock chip; not available with the simulated clock")
		}

		hour, minute, second, err := parseClock(args[0])
		if err != nil {
			return err
		}

		dev, err := rtc.OpenDS3231(cfg.I2C.Bus, uint16(cfg.I2C.Addr))
		if err != nil {
			return fmt.Errorf("open rtc: %w", err)
		}
		defer dev.Close()

		sample := rtc.SampleAt(time.Now())
		sample.Hour = hour
		sample.Minute = minute
		sample.Second = second

		use12 := cfg.Use12Hour
		if cmd.Flags().Changed("12-hour") {
			use12 = setTimeFormat12
		}
		if err := dev.WriteTime(sample, use12); err != nil {
			return fmt.Errorf("write time: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "time set to %s\n", sample)
		return nil
	},
}

// parseClock splits a HH:MM or HH:MM:SS string into its fields.
func parseClock(s string) (hour, minute, second int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, 0, 0, fmt.Errorf("bad time %q, want HH:MM or HH:MM:SS", s)
	}

	fields := []*int{&hour, &minute, &second}
	limits := []int{23, 59, 59}
	for i, p := range parts {
		v, convErr := strconv.Atoi(p)
		if convErr != nil || v < 0 || v > limits[i] {
			return 0, 0, 0, fmt.Errorf("bad time %q: field %q out of range", s, p)
		}
		*fields[i] = v
	}
	return hour, minute, second, nil
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	setTimeCmd.Flags().BoolVar(&setTimeFormat12, "12-hour", false, "store the time in 12-hour format")
	rootCmd.AddCommand(setTimeCmd)
}
