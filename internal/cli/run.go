package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/button"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/clockd"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/config"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/display"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/engine"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/gpio"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/logger"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/melody"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/mqtt"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/settings"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/status"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/version"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/web"
)

// shutdownGrace bounds how long the web server may take to drain.
const shutdownGrace = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the clock appliance.",
	Long: `Starts the control loop: the DS3231 tick drives the display, the three
buttons drive the settings editor, and state is reported over MQTT and
the web status page until SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
		defer stop()

		return runDaemon(ctx, cfg)
	},
}

// runDaemon builds the appliance from the configuration and drives it
// until ctx is cancelled.
func runDaemon(ctx context.Context, cfg *config.Config) error {
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Infow("starting binary clock",
		"version", version.Short(),
		"sim", cfg.Sim,
		"poll", cfg.Poll.Std().String(),
		"debounce", cfg.Debounce.Std().String())

	wiring, err := button.ParseWiring(cfg.GPIO.Wiring)
	if err != nil {
		return err
	}

	clk := clock.New()
	shared := button.NewDebounce(cfg.Debounce.Std())

	// The hardware and the simulation provide the same three raw lines
	// and one tick source; everything past this block is common.
	var (
		dev                        rtc.Device
		decRead, saveRead, incRead button.RawFunc
		thermo                     clockd.Thermometer
		chip                       *gpio.Chip
	)
	if cfg.Sim {
		dev = rtc.NewSim(clk.Now)

		// Idle fake lines: a pressed level that never arrives.
		idle := wiring == button.CommonAnode
		decRead = gpio.NewFakePin(idle).Read
		saveRead = gpio.NewFakePin(idle).Read
		incRead = gpio.NewFakePin(idle).Read

		log.Infow("simulated clock in place of the DS3231")
	} else {
		chip, err = gpio.OpenChip(cfg.GPIO.Chip)
		if err != nil {
			return fmt.Errorf("open gpio chip: %w", err)
		}
		defer chip.Close()

		pull := gpio.PullDown
		if wiring == button.CommonAnode {
			pull = gpio.PullUp
		}
		pins := make([]*gpio.RealPin, 0, 3)
		for _, offset := range []int{cfg.GPIO.DecPin, cfg.GPIO.SavePin, cfg.GPIO.IncPin} {
			pin, err := chip.RequestPin(offset, pull)
			if err != nil {
				return fmt.Errorf("request gpio line %d: %w", offset, err)
			}
			defer pin.Close()
			pins = append(pins, pin)
		}
		decRead, saveRead, incRead = pins[0].Read, pins[1].Read, pins[2].Read

		ds, err := rtc.OpenDS3231(cfg.I2C.Bus, uint16(cfg.I2C.Addr))
		if err != nil {
			return fmt.Errorf("open rtc: %w", err)
		}
		defer ds.Close()
		dev = ds
		thermo = ds
	}

	eng := engine.New(dev, log)
	if err := eng.Load(); err != nil {
		return fmt.Errorf("load clock state: %w", err)
	}
	eng.SetIs12Hour(cfg.Use12Hour)

	if chip != nil {
		tick, err := chip.WatchTick(cfg.GPIO.TickPin, eng.OnTick)
		if err != nil {
			return fmt.Errorf("watch tick line %d: %w", cfg.GPIO.TickPin, err)
		}
		defer tick.Close()
	}

	decBtn := button.New("S1", wiring, decRead, shared)
	saveBtn := button.New("S2", wiring, saveRead, shared)
	incBtn := button.New("S3", wiring, incRead, shared)

	disp := display.NewLogDisplay(log)
	melodies := melody.NewRegistry()
	player := melody.NewLogPlayer(log)

	machine := settings.New(eng, disp, decBtn, saveBtn, incBtn, settings.Dwells{
		OK:      cfg.Dwell.OK.Std(),
		Rainbow: cfg.Dwell.Rainbow.Std(),
		Confirm: cfg.Dwell.Confirm.Std(),
	})

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Poll.Std().Milliseconds(),
		DebounceMs:  cfg.Debounce.Std().Milliseconds(),
		HeartbeatMs: cfg.Heartbeat.Std().Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		HTTPAddr:    cfg.Web.Addr,
		I2CBus:      cfg.I2C.Bus,
		Sim:         cfg.Sim,
	})

	var (
		pub  mqtt.Publisher
		conn mqtt.ConnectionStatus
	)
	if cfg.MQTT.Broker != "" {
		real, err := mqtt.NewRealPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, log)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}
		defer real.Close()
		pub = real
		conn = real
	} else {
		log.Infow("mqtt publishing disabled, no broker configured")
	}

	daemon, err := clockd.New(clockd.Params{
		Engine:      eng,
		Settings:    machine,
		Display:     disp,
		Player:      player,
		Melodies:    melodies,
		Publisher:   pub,
		ConnStatus:  conn,
		Tracker:     tracker,
		Thermometer: thermo,
		Buttons:     []*button.Button{decBtn, saveBtn, incBtn},
		Clock:       clk,
		Log:         log,
		Poll:        cfg.Poll.Std(),
		Heartbeat:   cfg.Heartbeat.Std(),
	})
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return daemon.Run(ctx)
	})

	if cfg.Web.Addr != "" {
		srv := web.New(cfg.Web.Addr, tracker)
		g.Go(func() error {
			log.Infow("web status page listening", "addr", cfg.Web.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("web server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.Sim {
		// The simulation has no INT/SQW line; synthesize the once-per-
		// second tick.
		g.Go(func() error {
			t := clk.Ticker(time.Second)
			defer t.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-t.C:
					eng.OnTick()
				}
			}
		})
	}

	return g.Wait()
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.AddCommand(runCmd)
}
