// Package config loads, validates, and persists the daemon configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/button"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/gpio"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/logger"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/settings"
)

// Duration wraps time.Duration so YAML carries "75ms" style strings.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// GPIOConfig selects the chip and the button and tick lines (BCM numbering).
type GPIOConfig struct {
	Chip    string `yaml:"chip"`
	DecPin  int    `yaml:"dec_pin"`
	SavePin int    `yaml:"save_pin"`
	IncPin  int    `yaml:"inc_pin"`
	TickPin int    `yaml:"tick_pin"`
	Wiring  string `yaml:"wiring"`
}

// I2CConfig selects the RTC bus and address.
type I2CConfig struct {
	Bus  string `yaml:"bus"`
	Addr int    `yaml:"addr"`
}

// MQTTConfig selects the broker. An empty broker disables publishing.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

// WebConfig selects the HTTP listen address. Empty disables the server.
type WebConfig struct {
	Addr string `yaml:"addr"`
}

// DwellConfig holds the settings UI screen hold times.
type DwellConfig struct {
	OK      Duration `yaml:"ok"`
	Rainbow Duration `yaml:"rainbow"`
	Confirm Duration `yaml:"confirm"`
}

// Config holds the daemon configuration.
type Config struct {
	LogLevel  string      `yaml:"log_level"`
	Sim       bool        `yaml:"sim"`
	Use12Hour bool        `yaml:"use_12_hour"`
	Poll      Duration    `yaml:"poll"`
	Debounce  Duration    `yaml:"debounce"`
	Heartbeat Duration    `yaml:"heartbeat"`
	GPIO      GPIOConfig  `yaml:"gpio"`
	I2C       I2CConfig   `yaml:"i2c"`
	MQTT      MQTTConfig  `yaml:"mqtt"`
	Web       WebConfig   `yaml:"web"`
	Dwell     DwellConfig `yaml:"dwell"`
}

const (
	// DefaultConfigFilename is where the daemon looks for its settings
	// when no path is given.
	DefaultConfigFilename = "binclock.yaml"

	// DefaultLogLevel is the log level used when none is configured.
	DefaultLogLevel = "info"

	// DefaultPoll is the button and tick poll interval.
	DefaultPoll = 10 * time.Millisecond

	// DefaultDebounce is the button debounce interval.
	DefaultDebounce = 75 * time.Millisecond

	// DefaultHeartbeat is the interval between MQTT status heartbeats.
	DefaultHeartbeat = 15 * time.Minute

	// DefaultI2CBus is the I2C bus carrying the DS3231 (bus 1 on a Pi).
	DefaultI2CBus = "1"

	// DefaultI2CAddr is the fixed DS3231 slave address.
	DefaultI2CAddr = 0x68

	// DefaultWiring matches buttons wired to read high when pressed.
	DefaultWiring = "common-cathode"

	// DefaultMQTTClientID identifies the daemon to the broker.
	DefaultMQTTClientID = "binclock"

	// DefaultHTTPAddr is the status page listen address.
	DefaultHTTPAddr = ":8080"

	// DefaultFilePermissions is the file mode for saved config files.
	DefaultFilePermissions = 0o600
)

var (
	// ErrBadPoll is returned when the poll interval is not positive.
	ErrBadPoll = errors.New("poll interval must be positive")
	// ErrBadDebounce is returned when the debounce interval is not positive.
	ErrBadDebounce = errors.New("debounce interval must be positive")

	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel:  DefaultLogLevel,
		Poll:      Duration(DefaultPoll),
		Debounce:  Duration(DefaultDebounce),
		Heartbeat: Duration(DefaultHeartbeat),
		GPIO: GPIOConfig{
			Chip:    gpio.DefaultChip,
			DecPin:  gpio.DefaultDecPin,
			SavePin: gpio.DefaultSavePin,
			IncPin:  gpio.DefaultIncPin,
			TickPin: gpio.DefaultTickPin,
			Wiring:  DefaultWiring,
		},
		I2C:  I2CConfig{Bus: DefaultI2CBus, Addr: DefaultI2CAddr},
		MQTT: MQTTConfig{ClientID: DefaultMQTTClientID},
		Web:  WebConfig{Addr: DefaultHTTPAddr},
		Dwell: DwellConfig{
			OK:      Duration(settings.DefaultDwells.OK),
			Rainbow: Duration(settings.DefaultDwells.Rainbow),
			Confirm: Duration(settings.DefaultDwells.Confirm),
		},
	}
}

// Load reads configuration from the provided path, layered over Default,
// and validates the result.
func Load(path string) (*Config, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write config: %w", err)
	}

	return nil
}

// Validate checks the configuration for usable values.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}
	if cfg.Poll.Std() <= 0 {
		return ErrBadPoll
	}
	if cfg.Debounce.Std() <= 0 {
		return ErrBadDebounce
	}
	if cfg.Heartbeat.Std() < 0 {
		return errors.New("heartbeat must be zero or positive")
	}
	if _, ok := logger.ParseLevel(cfg.LogLevel); !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	if _, err := button.ParseWiring(cfg.GPIO.Wiring); err != nil {
		return err
	}
	if cfg.I2C.Addr < 0x03 || cfg.I2C.Addr > 0x77 {
		return fmt.Errorf("i2c address %#x out of range", cfg.I2C.Addr)
	}

	if cfg.Sim {
		return nil
	}

	// Hardware mode drives four distinct lines.
	seen := make(map[int]string, 4)
	for _, p := range []struct {
		name string
		line int
	}{
		{"dec", cfg.GPIO.DecPin},
		{"save", cfg.GPIO.SavePin},
		{"inc", cfg.GPIO.IncPin},
		{"tick", cfg.GPIO.TickPin},
	} {
		if other, dup := seen[p.line]; dup {
			return fmt.Errorf("%s and %s share gpio line %d", other, p.name, p.line)
		}
		seen[p.line] = p.name
	}

	return nil
}
