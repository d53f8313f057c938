package button

import "time"

// Button debounces one physical switch. A raw level must hold longer than
// the shared debounce interval before it becomes the reported level, and
// only the transition to pressed is reported as an edge.
type Button struct {
	name   string
	wiring Wiring
	read   RawFunc
	shared *Debounce

	polled       bool
	lastRaw      bool // last raw sample, in pressed terms
	stable       bool // debounced level, in pressed terms
	debounceFrom time.Time
	changedAt    time.Time
	readErr      error
}

// New creates a Button reading its raw level from read. A nil shared
// interval gets a private one at the default.
func New(name string, wiring Wiring, read RawFunc, shared *Debounce) *Button {
	if shared == nil {
		shared = NewDebounce(DefaultDebounce)
	}
	return &Button{name: name, wiring: wiring, read: read, shared: shared}
}

// Name returns the button's name.
func (b *Button) Name() string {
	return b.name
}

// Pressed returns the current debounced level without reading the line.
func (b *Button) Pressed() bool {
	return b.stable
}

// LastChange returns when the debounced level last changed.
func (b *Button) LastChange() time.Time {
	return b.changedAt
}

// Poll samples the line and reports the debounced level plus any press
// edge. A switch that already reads pressed on the very first poll still
// produces exactly one edge.
func (b *Button) Poll(now time.Time) Result {
	level, err := b.read()
	if err != nil {
		b.readErr = err
		return Result{Pressed: b.stable}
	}
	raw := b.wiring.Pressed(level)

	if !b.polled {
		b.polled = true
		b.lastRaw = raw
		b.debounceFrom = now
		if raw {
			// Backdate the debounce start so the commit below fires on
			// this first poll.
			b.debounceFrom = now.Add(-b.shared.Interval() - time.Nanosecond)
		}
	} else if raw != b.lastRaw {
		b.lastRaw = raw
		b.debounceFrom = now
	}

	res := Result{Pressed: b.stable}
	if raw != b.stable && now.Sub(b.debounceFrom) > b.shared.Interval() {
		b.stable = raw
		b.changedAt = now
		res.Pressed = raw
		res.Edge = raw
	}
	return res
}

// Err returns the most recent read failure and clears it.
func (b *Button) Err() error {
	err := b.readErr
	b.readErr = nil
	return err
}

// Reset returns the button to its never-polled state.
func (b *Button) Reset() {
	b.polled = false
	b.lastRaw = false
	b.stable = false
	b.debounceFrom = time.Time{}
	b.changedAt = time.Time{}
	b.readErr = nil
}
