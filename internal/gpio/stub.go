//go:build !linux

package gpio

import "errors"

var errNotSupported = errors.New("gpio: not supported on this platform (requires Linux)")

// Chip is not available on non-Linux platforms.
type Chip struct{}

// OpenChip returns an error on non-Linux platforms.
func OpenChip(string) (*Chip, error) {
	return nil, errNotSupported
}

// RequestPin is not implemented on non-Linux platforms.
func (c *Chip) RequestPin(int, Pull) (*RealPin, error) {
	return nil, errNotSupported
}

// WatchTick is not implemented on non-Linux platforms.
func (c *Chip) WatchTick(int, func()) (*TickLine, error) {
	return nil, errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (c *Chip) Close() error {
	return nil
}

// RealPin is not available on non-Linux platforms.
type RealPin struct{}

// Read is not implemented on non-Linux platforms.
func (p *RealPin) Read() (bool, error) {
	return false, errNotSupported
}

// Close is not implemented on non-Linux platforms.
func (p *RealPin) Close() error {
	return nil
}

// TickLine is not available on non-Linux platforms.
type TickLine struct{}

// Close is not implemented on non-Linux platforms.
func (t *TickLine) Close() error {
	return nil
}
