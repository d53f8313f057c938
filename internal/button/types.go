// Package button turns raw switch levels into debounced logical levels and
// press edges. This package has NO hardware or OS dependencies and never
// sleeps; time is always injected through Poll.
package button

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/atomic"
)

// DefaultDebounce is the debounce interval buttons start with.
const DefaultDebounce = 75 * time.Millisecond

// Wiring selects which raw line level counts as pressed.
type Wiring int

const (
	// CommonCathode switches pull the line high when pressed.
	CommonCathode Wiring = iota
	// CommonAnode switches pull the line low when pressed.
	CommonAnode
)

// Pressed converts a raw line level into the logical pressed state.
func (w Wiring) Pressed(level bool) bool {
	if w == CommonAnode {
		return !level
	}
	return level
}

func (w Wiring) String() string {
	if w == CommonAnode {
		return "common-anode"
	}
	return "common-cathode"
}

// ParseWiring converts a configuration string into a Wiring.
func ParseWiring(s string) (Wiring, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "common-cathode", "cc":
		return CommonCathode, nil
	case "common-anode", "ca":
		return CommonAnode, nil
	}
	return CommonCathode, fmt.Errorf("unknown wiring %q", s)
}

// RawFunc reads the raw electrical level of a line (true = high).
type RawFunc func() (bool, error)

// Result is the outcome of a single Poll.
type Result struct {
	// Pressed is the debounced logical level.
	Pressed bool
	// Edge is true when this poll committed a transition to pressed.
	Edge bool
}

// Debounce is the debounce interval shared by every button on the board.
// It can be changed at runtime; all buttons see the new value on their
// next poll.
type Debounce struct {
	d atomic.Duration
}

// NewDebounce creates a shared debounce interval. Non-positive values fall
// back to DefaultDebounce.
func NewDebounce(d time.Duration) *Debounce {
	if d <= 0 {
		d = DefaultDebounce
	}
	b := &Debounce{}
	b.d.Store(d)
	return b
}

// Interval returns the current debounce interval.
func (b *Debounce) Interval() time.Duration {
	return b.d.Load()
}

// SetInterval changes the debounce interval. Non-positive values are
// ignored.
func (b *Debounce) SetInterval(d time.Duration) {
	if d > 0 {
		b.d.Store(d)
	}
}
