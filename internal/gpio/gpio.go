// Package gpio provides GPIO input access with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Pin reads a single GPIO input line.
type Pin interface {
	// Read returns the raw electrical level: true = high, false = low.
	// Wiring polarity is interpreted by the button layer, not here.
	Read() (bool, error)

	// Close releases the line.
	Close() error
}

// Pull selects the bias applied to a requested line.
type Pull int

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Line assignments (BCM numbering)
const (
	DefaultChip    = "gpiochip0"
	DefaultDecPin  = 17 // S1, decrement
	DefaultSavePin = 27 // S2, save
	DefaultIncPin  = 22 // S3, increment
	DefaultTickPin = 23 // DS3231 INT/SQW, 1 Hz
)
