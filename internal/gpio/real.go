//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"
)

// Chip owns the GPIO character device and hands out input lines.
type Chip struct {
	chip *gpiocdev.Chip
}

// OpenChip opens a GPIO chip by name, e.g. "gpiochip0".
func OpenChip(name string) (*Chip, error) {
	chip, err := gpiocdev.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip %s: %w", name, err)
	}
	return &Chip{chip: chip}, nil
}

// RequestPin requests a line as input with the given bias.
func (c *Chip) RequestPin(offset int, pull Pull) (*RealPin, error) {
	opts := []gpiocdev.LineReqOption{gpiocdev.AsInput}
	switch pull {
	case PullUp:
		opts = append(opts, gpiocdev.WithPullUp)
	case PullDown:
		opts = append(opts, gpiocdev.WithPullDown)
	}

	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request pin %d: %w", offset, err)
	}
	return &RealPin{line: line}, nil
}

// WatchTick requests a line as input with pull-up and invokes fn on every
// falling edge. The DS3231 INT/SQW output is open drain, so the line idles
// high and each 1 Hz pulse arrives as a falling edge.
func (c *Chip) WatchTick(offset int, fn func()) (*TickLine, error) {
	line, err := c.chip.RequestLine(offset,
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithFallingEdge,
		gpiocdev.WithEventHandler(func(gpiocdev.LineEvent) { fn() }))
	if err != nil {
		return nil, fmt.Errorf("watch pin %d: %w", offset, err)
	}
	return &TickLine{line: line}, nil
}

// Close releases the chip. Lines requested from it must be closed first.
func (c *Chip) Close() error {
	if err := c.chip.Close(); err != nil {
		return fmt.Errorf("close chip: %w", err)
	}
	return nil
}

// RealPin is a requested input line on actual hardware.
type RealPin struct {
	line *gpiocdev.Line
}

// Read returns the electrical level of the line.
func (p *RealPin) Read() (bool, error) {
	v, err := p.line.Value()
	if err != nil {
		return false, fmt.Errorf("read pin: %w", err)
	}
	return v != 0, nil
}

// Close reconfigures the line back to a plain input before releasing it,
// so attached hardware sees boot-default behavior across a restart.
func (p *RealPin) Close() error {
	var errs error
	if err := p.line.Reconfigure(gpiocdev.AsInput); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("reconfigure pin: %w", err))
	}
	if err := p.line.Close(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("close pin: %w", err))
	}
	return errs
}

// TickLine is an edge-watched line delivering RTC tick callbacks.
type TickLine struct {
	line *gpiocdev.Line
}

// Close stops edge delivery and releases the line.
func (t *TickLine) Close() error {
	if err := t.line.Close(); err != nil {
		return fmt.Errorf("close tick line: %w", err)
	}
	return nil
}
