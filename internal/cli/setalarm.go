package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

var (
	setAlarmID      int
	setAlarmDisable bool
	setAlarmRepeat  string
)

var setAlarmCmd = &cobra.Command{
	Use:   "set-alarm [HH:MM[:SS]]",
	Short: "Program or disable an alarm slot on the clock chip.",
	Long: `Writes an alarm schedule straight to the DS3231. Slot 1 matches down
to the second; slot 2 fires at second zero. With --disable the stored
schedule survives and only the slot is switched off.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Sim {
			return fmt.Errorf("set-alarm talks to the clock chip; not available with the simulated clock")
		}
		if setAlarmID < rtc.Alarm1 || setAlarmID > rtc.Alarm2 {
			return rtc.ErrBadAlarmID
		}

		dev, err := rtc.OpenDS3231(cfg.I2C.Bus, uint16(cfg.I2C.Addr))
		if err != nil {
			return fmt.Errorf("open rtc: %w", err)
		}
		defer dev.Close()

		if setAlarmDisable {
			if len(args) > 0 {
				return fmt.Errorf("--disable does not take a time")
			}
			if err := dev.SetAlarmEnabled(setAlarmID, false); err != nil {
				return fmt.Errorf("disable alarm %d: %w", setAlarmID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "alarm %d disabled\n", setAlarmID)
			return nil
		}

		if len(args) == 0 {
			return fmt.Errorf("a time is required unless --disable is given")
		}
		hour, minute, second, err := parseClock(args[0])
		if err != nil {
			return err
		}
		repeat, err := rtc.ParseRepeat(setAlarmRepeat)
		if err != nil {
			return err
		}

		alarm := rtc.Alarm{
			ID:      setAlarmID,
			Hour:    hour,
			Minute:  minute,
			Second:  second,
			Enabled: true,
			Repeat:  repeat,
		}
		if err := dev.WriteAlarm(alarm); err != nil {
			return fmt.Errorf("write alarm %d: %w", setAlarmID, err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", alarm)
		return nil
	},
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	setAlarmCmd.Flags().IntVar(&setAlarmID, "id", rtc.Alarm2, "alarm slot, 1 or 2")
	setAlarmCmd.Flags().BoolVar(&setAlarmDisable, "disable", false, "switch the slot off, keeping its schedule")
	setAlarmCmd.Flags().StringVar(&setAlarmRepeat, "repeat", "daily", "repeat frequency: never, hourly or daily")
	rootCmd.AddCommand(setAlarmCmd)
}
