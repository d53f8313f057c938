package gpio

import "errors"

// FakePin is a test double that returns scripted line levels.
type FakePin struct {
	// Levels contains scripted electrical levels to return.
	// Each call to Read consumes the next one.
	Levels []bool

	// index tracks current position in Levels
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read
	ReadError error
}

// NewFakePin creates a FakePin with the given levels.
func NewFakePin(levels ...bool) *FakePin {
	return &FakePin{Levels: levels}
}

// Read returns the next scripted level.
// If levels are exhausted, the last one repeats.
func (f *FakePin) Read() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}

	if len(f.Levels) == 0 {
		return false, errors.New("no levels scripted")
	}

	level := f.Levels[f.index]
	if f.index < len(f.Levels)-1 {
		f.index++
	}

	return level, nil
}

// Set replaces the script with a single steady level.
func (f *FakePin) Set(level bool) {
	f.Levels = []bool{level}
	f.index = 0
}

// Close marks the pin as closed.
func (f *FakePin) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script and clears the closed flag.
func (f *FakePin) Reset() {
	f.index = 0
	f.Closed = false
}
