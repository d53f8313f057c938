package rtc

import (
	"fmt"
	"time"
)

// Sim is a software stand-in for the clock chip, for machines that lack
// one. Time advances with the injected wall clock; WriteTime re-bases it.
// The match flags behave like the hardware: they set when the scheduled
// time of day passes, whether or not the slot is enabled, and stay set
// until silenced.
type Sim struct {
	now    func() time.Time
	offset time.Duration
	valid  bool

	alarms   [2]Alarm
	fired    [2]bool
	lastRead time.Time
	haveRead bool
}

// NewSim creates a Sim reading the wall clock from now (nil means
// time.Now). The clock starts valid at the injected time.
func NewSim(now func() time.Time) *Sim {
	if now == nil {
		now = time.Now
	}
	s := &Sim{now: now, valid: true}
	s.alarms[0] = Alarm{ID: Alarm1, Repeat: Daily}
	s.alarms[1] = Alarm{ID: Alarm2, Repeat: Daily}
	return s
}

// Invalidate marks the stored time untrustworthy, mimicking an
// oscillator stop.
func (s *Sim) Invalidate() {
	s.valid = false
}

// ReadTime returns the current simulated time and advances the alarm
// match evaluation across the window since the previous read.
func (s *Sim) ReadTime() (Sample, error) {
	t := s.now().Add(s.offset)
	s.evaluate(s.lastRead, t)
	s.lastRead = t
	s.haveRead = true

	sample := SampleAt(t)
	sample.Valid = s.valid
	return sample, nil
}

// WriteTime re-bases the simulated clock on the given sample and marks it
// valid. The format flag has no stored form here.
func (s *Sim) WriteTime(sample Sample, use12Hour bool) error {
	_ = use12Hour
	if !sample.InRange() {
		return fmt.Errorf("write time: sample out of range: %v", sample)
	}
	t := sample.Time(time.Local)
	s.offset = t.Sub(s.now())
	s.valid = true
	s.lastRead = t
	s.haveRead = true
	return nil
}

// ReadAlarm returns the stored slot.
func (s *Sim) ReadAlarm(id int) (Alarm, error) {
	if err := checkID(id); err != nil {
		return Alarm{}, err
	}
	return s.alarms[id-1], nil
}

// WriteAlarm stores the slot and clears its pending match flag.
func (s *Sim) WriteAlarm(a Alarm) error {
	if err := checkID(a.ID); err != nil {
		return err
	}
	a.Fired = false
	s.alarms[a.ID-1] = a
	s.fired[a.ID-1] = false
	return nil
}

// SetAlarmEnabled flips only the enable state of the stored slot.
func (s *Sim) SetAlarmEnabled(id int, enabled bool) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.alarms[id-1].Enabled = enabled
	return nil
}

// AlarmFired reports the slot's match flag.
func (s *Sim) AlarmFired(id int) (bool, error) {
	if err := checkID(id); err != nil {
		return false, err
	}
	return s.fired[id-1], nil
}

// SilenceAlarm clears the slot's match flag.
func (s *Sim) SilenceAlarm(id int) error {
	if err := checkID(id); err != nil {
		return err
	}
	s.fired[id-1] = false
	return nil
}

// Close is a no-op; there is no bus to release.
func (s *Sim) Close() error {
	return nil
}

// evaluate sets match flags for alarms whose scheduled time lies in the
// half-open window (prev, cur].
func (s *Sim) evaluate(prev, cur time.Time) {
	if !s.haveRead || !cur.After(prev) {
		return
	}
	window := cur.Sub(prev)
	p := prev.Hour()*3600 + prev.Minute()*60 + prev.Second()
	c := cur.Hour()*3600 + cur.Minute()*60 + cur.Second()

	for i := range s.alarms {
		target := s.alarms[i].DaySeconds()
		if s.alarms[i].Repeat == Hourly {
			if window >= time.Hour || crossed(p%3600, c%3600, target%3600) {
				s.fired[i] = true
			}
			continue
		}
		if window >= 24*time.Hour || crossed(p, c, target) {
			s.fired[i] = true
		}
	}
}

// crossed reports whether target lies in the ring window (from, to].
func crossed(from, to, target int) bool {
	if from == to {
		return false
	}
	if from < to {
		return target > from && target <= to
	}
	// The window wraps past zero.
	return target > from || target <= to
}

func checkID(id int) error {
	if id < Alarm1 || id > Alarm2 {
		return ErrBadAlarmID
	}
	return nil
}
