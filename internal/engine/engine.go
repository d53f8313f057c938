// Package engine owns the authoritative time and the two alarm slots. A
// hardware interrupt marks that a new second arrived; Poll, on the
// ordinary execution context, reads the peripheral and decides whether an
// alarm fires. The interrupt side touches nothing but a single atomic
// flag, so the handler can never block or race the rest of the state.
package engine

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

// MaxAlarmLateness bounds how long past its scheduled time an alarm may
// still fire. A match flag that survived a power loss must not ring hours
// late on the next boot.
const MaxAlarmLateness = 5 * time.Minute

const daySeconds = 24 * 60 * 60

// TickFunc receives every accepted time sample.
type TickFunc func(rtc.Sample)

// AlarmFunc receives an alarm at the moment it fires.
type AlarmFunc func(rtc.Alarm)

// Engine dispatches time updates and alarm firings. OnTick is safe to
// call from another goroutine; everything else belongs to the polling
// context.
type Engine struct {
	dev rtc.Device
	log *zap.SugaredLogger

	pending atomic.Bool
	use12   bool
	current rtc.Sample
	alarms  [2]rtc.Alarm

	onTick  TickFunc
	onAlarm AlarmFunc
}

// New creates an Engine over the given peripheral. A nil logger is
// replaced with a no-op one.
func New(dev rtc.Device, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	e := &Engine{dev: dev, log: log}
	e.alarms[0] = rtc.Alarm{ID: rtc.Alarm1, Repeat: rtc.Daily}
	e.alarms[1] = rtc.Alarm{ID: rtc.Alarm2, Repeat: rtc.Daily}
	return e
}

// Load primes the cached time and alarm records from the peripheral. A
// stored time that is invalid or out of range is reported and left
// unadopted; the cache then stays at its zero value until a time set.
func (e *Engine) Load() error {
	s, err := e.dev.ReadTime()
	if err != nil {
		return fmt.Errorf("read time: %w", err)
	}
	if s.Valid && s.InRange() {
		e.current = s
	} else {
		e.log.Warnw("stored time is not trustworthy, waiting for a time set", "sample", s.String())
	}

	for id := rtc.Alarm1; id <= rtc.Alarm2; id++ {
		a, err := e.dev.ReadAlarm(id)
		if err != nil {
			return fmt.Errorf("read alarm %d: %w", id, err)
		}
		a.Fired = false
		e.alarms[id-1] = a
	}
	return nil
}

// OnTick marks that a new second arrived. It is called from the tick
// interrupt handler and does nothing but set a flag.
func (e *Engine) OnTick() {
	e.pending.Store(true)
}

// Poll consumes a pending tick: it clears the flag, reads the peripheral,
// updates the cached time and evaluates the alarms. It reports whether a
// new sample was accepted. Without a pending tick it returns immediately.
func (e *Engine) Poll() bool {
	if !e.pending.Swap(false) {
		return false
	}

	s, err := e.dev.ReadTime()
	if err != nil {
		e.log.Warnw("time read failed", "error", err)
		return false
	}
	if !s.Valid || !s.InRange() {
		e.log.Warnw("time sample rejected", "sample", s.String(), "valid", s.Valid)
		return false
	}
	e.current = s

	e.evaluateAlarms(s)

	if e.onTick != nil {
		e.onTick(s)
	}
	return true
}

// evaluateAlarms checks the match flags against the sample just read. A
// flag only rings when the sample is within MaxAlarmLateness of the
// scheduled time; anything older is silenced and discarded.
func (e *Engine) evaluateAlarms(s rtc.Sample) {
	maxLate := int(MaxAlarmLateness / time.Second)

	for i := range e.alarms {
		a := &e.alarms[i]
		if !a.Enabled {
			continue
		}
		fired, err := e.dev.AlarmFired(a.ID)
		if err != nil {
			e.log.Warnw("match flag read failed", "alarm", a.ID, "error", err)
			continue
		}
		if !fired {
			continue
		}

		ring := daySeconds
		if a.Repeat == rtc.Hourly {
			ring = 3600
		}
		late := (s.DaySeconds() - a.DaySeconds()) % ring
		if late < 0 {
			late += ring
		}

		if late == 0 {
			// Matched on this very second; judge it on the next tick.
			continue
		}
		if err := e.dev.SilenceAlarm(a.ID); err != nil {
			e.log.Warnw("silence failed", "alarm", a.ID, "error", err)
		}
		if late >= maxLate {
			e.log.Infow("stale match flag discarded", "alarm", a.ID, "late_s", late)
			continue
		}

		a.Fired = true
		e.log.Infow("alarm fired", "alarm", a.ID, "scheduled", fmt.Sprintf("%02d:%02d:%02d", a.Hour, a.Minute, a.Second))
		if e.onAlarm != nil {
			e.onAlarm(*a)
		}

		if a.Repeat == rtc.Never {
			a.Enabled = false
			if err := e.dev.SetAlarmEnabled(a.ID, false); err != nil {
				e.log.Warnw("one-shot disable failed", "alarm", a.ID, "error", err)
			}
		}
	}
}

// Time returns the cached current time sample.
func (e *Engine) Time() rtc.Sample {
	return e.current
}

// SetTime writes the sample through to the peripheral and adopts it as
// the cached time only when the write succeeds.
func (e *Engine) SetTime(s rtc.Sample) error {
	s.Valid = true
	if !s.InRange() {
		return fmt.Errorf("set time: sample out of range: %v", s)
	}
	if err := e.dev.WriteTime(s, e.use12); err != nil {
		return fmt.Errorf("set time: %w", err)
	}
	e.current = s
	return nil
}

// Is12Hour reports the display format flag.
func (e *Engine) Is12Hour() bool {
	return e.use12
}

// SetIs12Hour sets the display format flag. The peripheral's stored hour
// format follows on the next time write.
func (e *Engine) SetIs12Hour(v bool) {
	e.use12 = v
}

// Alarm returns a copy of the record for slot 1 or 2. Unknown ids return
// a zero Alarm.
func (e *Engine) Alarm(id int) rtc.Alarm {
	if id < rtc.Alarm1 || id > rtc.Alarm2 {
		return rtc.Alarm{}
	}
	return e.alarms[id-1]
}

// SetAlarm writes the record through to the peripheral and updates the
// in-memory slot only on success. Disabling touches just the match
// interrupt so the stored schedule survives for re-enabling.
func (e *Engine) SetAlarm(a rtc.Alarm) error {
	if a.ID < rtc.Alarm1 || a.ID > rtc.Alarm2 {
		return rtc.ErrBadAlarmID
	}
	if a.Enabled {
		if err := e.dev.WriteAlarm(a); err != nil {
			return fmt.Errorf("set alarm %d: %w", a.ID, err)
		}
	} else {
		if err := e.dev.SetAlarmEnabled(a.ID, false); err != nil {
			return fmt.Errorf("set alarm %d: %w", a.ID, err)
		}
	}
	a.Fired = false
	e.alarms[a.ID-1] = a
	return nil
}

// Acknowledge clears the ringing flag on the given slot, reporting
// whether it was ringing.
func (e *Engine) Acknowledge(id int) bool {
	if id < rtc.Alarm1 || id > rtc.Alarm2 {
		return false
	}
	if !e.alarms[id-1].Fired {
		return false
	}
	e.alarms[id-1].Fired = false
	return true
}

// RegisterTickListener installs fn as the sole tick listener. It reports
// false when a listener is already installed or fn is nil.
func (e *Engine) RegisterTickListener(fn TickFunc) bool {
	if fn == nil || e.onTick != nil {
		return false
	}
	e.onTick = fn
	return true
}

// UnregisterTickListener removes the tick listener, reporting whether one
// was installed.
func (e *Engine) UnregisterTickListener() bool {
	if e.onTick == nil {
		return false
	}
	e.onTick = nil
	return true
}

// RegisterAlarmListener installs fn as the sole alarm listener. It
// reports false when a listener is already installed or fn is nil.
func (e *Engine) RegisterAlarmListener(fn AlarmFunc) bool {
	if fn == nil || e.onAlarm != nil {
		return false
	}
	e.onAlarm = fn
	return true
}

// UnregisterAlarmListener removes the alarm listener, reporting whether
// one was installed.
func (e *Engine) UnregisterAlarmListener() bool {
	if e.onAlarm == nil {
		return false
	}
	e.onAlarm = nil
	return true
}
