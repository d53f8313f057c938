// Package rtc models the battery-backed clock peripheral: the
// authoritative source of time and the two hardware alarm slots. The real
// implementation drives a DS3231 over I2C; Sim is a software clock for
// machines without one.
package rtc

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Alarm slot identifiers.
const (
	Alarm1 = 1
	Alarm2 = 2
)

// ErrBadAlarmID is returned for alarm slot ids other than 1 and 2.
var ErrBadAlarmID = errors.New("rtc: alarm id must be 1 or 2")

// Repeat is how often an alarm recurs.
type Repeat string

const (
	// Never fires once; the dispatch engine disables the slot afterwards.
	Never Repeat = "NEVER"
	// Hourly fires whenever the minute (and second) match.
	Hourly Repeat = "HOURLY"
	// Daily fires when the full time of day matches.
	Daily Repeat = "DAILY"
)

// ParseRepeat converts a configuration string into a Repeat.
func ParseRepeat(s string) (Repeat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return Never, nil
	case "hourly":
		return Hourly, nil
	case "daily", "":
		return Daily, nil
	}
	return Daily, fmt.Errorf("unknown repeat %q", s)
}

// Sample is one reading of the clock.
type Sample struct {
	Year   int
	Month  time.Month
	Day    int
	Hour   int
	Minute int
	Second int
	// Valid is false when the peripheral reports that its oscillator
	// stopped and the time cannot be trusted.
	Valid bool
}

// SampleAt converts a time.Time into a valid Sample.
func SampleAt(t time.Time) Sample {
	return Sample{
		Year:   t.Year(),
		Month:  t.Month(),
		Day:    t.Day(),
		Hour:   t.Hour(),
		Minute: t.Minute(),
		Second: t.Second(),
		Valid:  true,
	}
}

// Time converts the sample to a time.Time in loc.
func (s Sample) Time(loc *time.Location) time.Time {
	return time.Date(s.Year, s.Month, s.Day, s.Hour, s.Minute, s.Second, 0, loc)
}

// DaySeconds returns the seconds elapsed since midnight.
func (s Sample) DaySeconds() int {
	return s.Hour*3600 + s.Minute*60 + s.Second
}

// InRange reports whether every field is inside its calendar range. The
// year window matches what the chip can store.
func (s Sample) InRange() bool {
	return s.Year >= 2000 && s.Year <= 2199 &&
		s.Month >= time.January && s.Month <= time.December &&
		s.Day >= 1 && s.Day <= 31 &&
		s.Hour >= 0 && s.Hour <= 23 &&
		s.Minute >= 0 && s.Minute <= 59 &&
		s.Second >= 0 && s.Second <= 59
}

func (s Sample) String() string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d",
		s.Year, int(s.Month), s.Day, s.Hour, s.Minute, s.Second)
}

// Alarm is one of the two alarm slots. Slot 1 matches down to the second;
// slot 2 has no seconds register and fires at second zero.
type Alarm struct {
	ID     int
	Hour   int
	Minute int
	Second int
	// Enabled mirrors the slot's match interrupt on the peripheral.
	Enabled bool
	Repeat  Repeat
	// Melody selects the alarm melody; 0 is the built-in one.
	Melody int
	// Fired means the alarm rang and has not been acknowledged yet.
	Fired bool
}

// DaySeconds returns the scheduled time of day in seconds since midnight.
func (a Alarm) DaySeconds() int {
	return a.Hour*3600 + a.Minute*60 + a.Second
}

// Clear resets the schedule but keeps the slot identity.
func (a *Alarm) Clear() {
	*a = Alarm{ID: a.ID, Repeat: Daily}
}

func (a Alarm) String() string {
	state := "off"
	if a.Enabled {
		state = "on"
	}
	return fmt.Sprintf("alarm %d %02d:%02d:%02d %s %s",
		a.ID, a.Hour, a.Minute, a.Second, strings.ToLower(string(a.Repeat)), state)
}

// Device is the clock peripheral as the rest of the system sees it.
// Implementations: DS3231 (hardware), Sim (software), Fake (tests).
type Device interface {
	// ReadTime returns the current time. Valid is false when the
	// oscillator stopped since the time was last set.
	ReadTime() (Sample, error)

	// WriteTime sets the clock. use12Hour selects the peripheral's hour
	// register format; the sample itself is always 24-hour.
	WriteTime(s Sample, use12Hour bool) error

	// ReadAlarm returns the stored schedule and enable state of a slot.
	// The Never repeat is software state and reads back as Daily.
	ReadAlarm(id int) (Alarm, error)

	// WriteAlarm programs a slot's schedule and enable state, clearing
	// any pending match flag for the slot.
	WriteAlarm(a Alarm) error

	// SetAlarmEnabled flips only the slot's match interrupt, leaving the
	// stored schedule intact for later re-enabling.
	SetAlarmEnabled(id int, enabled bool) error

	// AlarmFired reports the slot's match flag.
	AlarmFired(id int) (bool, error)

	// SilenceAlarm clears the slot's match flag.
	SilenceAlarm(id int) error

	// Close releases the underlying bus.
	Close() error
}
