// Package display is the LED panel boundary. The control core renders
// through the Display interface; machines without a panel use LogDisplay.
package display

// Pattern names one of the fixed full-panel patterns.
type Pattern string

const (
	// PatternRainbow is the attention sweep shown when an edit session
	// ends.
	PatternRainbow Pattern = "RAINBOW"
	// PatternOK is the green check confirming a save.
	PatternOK Pattern = "OK"
	// PatternAbort is the cross shown when an edit is discarded.
	PatternAbort Pattern = "ABORT"
	// PatternOn and PatternOff preview an alarm's enable state.
	PatternOn  Pattern = "ON"
	PatternOff Pattern = "OFF"
)

// Display renders the three binary rows and the named panel patterns.
// Rendering is fire-and-forget; a panel that cannot keep up drops frames
// rather than stalling the control loop.
type Display interface {
	// ShowBinaryTime lights the hour, minute and second rows. In
	// 12-hour mode the hour row shows 1..12.
	ShowBinaryTime(hour, minute, second int, use12Hour bool)

	// ShowPattern replaces the whole panel with a named pattern.
	ShowPattern(p Pattern)
}
