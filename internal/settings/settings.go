// Package settings is the three-button editor for the current time and
// the alarm. It is a resumable state machine driven entirely by Poll:
// button edges move it forward, recorded deadlines pace the transient
// screens, and it never sleeps or blocks. All state is owned by the
// polling context.
package settings

import (
	"time"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/button"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/display"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

// UIState is what Poll reports to the orchestrator.
type UIState string

const (
	// Inactive: no edit session; the normal time display is
	// authoritative.
	Inactive UIState = "INACTIVE"
	// EditingTime: the time workflow owns the panel.
	EditingTime UIState = "EDITING_TIME"
	// EditingAlarm: the alarm workflow owns the panel.
	EditingAlarm UIState = "EDITING_ALARM"
	// Exiting: a session ended and the exit screens are playing out.
	Exiting UIState = "EXITING"
)

// Clock is the slice of the dispatch engine the editor needs.
type Clock interface {
	Time() rtc.Sample
	SetTime(rtc.Sample) error
	Is12Hour() bool
	SetIs12Hour(bool)
	Alarm(id int) rtc.Alarm
	SetAlarm(rtc.Alarm) error
}

// Dwells are the minimum on-screen times of the transient screens. They
// pace the UI only; correctness does not depend on their values.
type Dwells struct {
	// OK paces the save glyph after the time-format step.
	OK time.Duration
	// Rainbow opens the exit sequence.
	Rainbow time.Duration
	// Confirm holds the final ok or abort glyph.
	Confirm time.Duration
}

// DefaultDwells is the standard screen cadence.
var DefaultDwells = Dwells{
	OK:      500 * time.Millisecond,
	Rainbow: 750 * time.Millisecond,
	Confirm: 1250 * time.Millisecond,
}

type option int

const (
	optNone option = iota
	optTime
	optAlarm
)

// field is what the counter means at the current level.
type field int

const (
	fieldNone field = iota
	fieldMode // three-way selector: format or on/off, plus cancel
	fieldHours
	fieldMinutes
	fieldSeconds
)

const (
	maxTimeLevel  = 4
	maxAlarmLevel = 3
	// discardLevel marks a cancelled session; a level this high walks
	// straight off the end of the workflow without committing.
	discardLevel = 99
)

// Machine is the settings editor. It owns the working copies and every
// transient UI flag; nothing here is touched from interrupt context.
type Machine struct {
	clock Clock
	disp  display.Display
	dec   *button.Button // S1
	save  *button.Button // S2
	inc   *button.Button // S3
	dwell Dwells

	opt   option
	level int
	count int

	tempTime  rtc.Sample
	tempAlarm rtc.Alarm
	tempUse12 bool

	exiting   bool
	abort     bool
	exitStage int
	resumeAt  time.Time
	deferred  bool // a save overlay is on screen; finish that save next
}

// New creates a Machine. dec decrements the counter, save commits the
// field, inc increments. Zero dwell fields take the defaults.
func New(clk Clock, disp display.Display, dec, save, inc *button.Button, dwell Dwells) *Machine {
	if dwell.OK <= 0 {
		dwell.OK = DefaultDwells.OK
	}
	if dwell.Rainbow <= 0 {
		dwell.Rainbow = DefaultDwells.Rainbow
	}
	if dwell.Confirm <= 0 {
		dwell.Confirm = DefaultDwells.Confirm
	}
	return &Machine{clock: clk, disp: disp, dec: dec, save: save, inc: inc, dwell: dwell}
}

// Poll advances the editor by one step and reports who owns the display.
func (m *Machine) Poll(now time.Time) UIState {
	switch {
	case m.opt == optNone && m.level == 0:
		m.pollIdle(now)
	case m.exiting:
		m.pollExit(now)
	default:
		m.pollLevel(now)
	}
	return m.state()
}

// ForceExit abandons any session immediately, skipping the exit screens.
func (m *Machine) ForceExit() {
	m.reset()
}

// Aborted reports whether the session now exiting was discarded rather
// than committed. Meaningful only while Poll reports Exiting.
func (m *Machine) Aborted() bool {
	return m.abort
}

// pollIdle watches for a session opener. The save button has no idle
// meaning and is not polled here. When both openers commit on the same
// poll the alarm workflow wins.
func (m *Machine) pollIdle(now time.Time) {
	if m.dec.Poll(now).Edge {
		m.opt = optTime
		m.level = 1
		m.tempTime = m.clock.Time()
		m.tempUse12 = m.clock.Is12Hour()
		m.loadCount()
		m.showCount()
	}
	if m.inc.Poll(now).Edge {
		m.opt = optAlarm
		m.level = 1
		m.tempAlarm = m.clock.Alarm(rtc.Alarm2)
		m.tempUse12 = m.clock.Is12Hour()
		m.loadCount()
		m.showCount()
	}
}

// pollLevel runs one editing step. All three buttons are polled every
// pass so their debouncers stay current; edges that arrive while the
// resume gate is closed are consumed and discarded. A press during an
// overlay does nothing, now or later.
func (m *Machine) pollLevel(now time.Time) {
	open := now.After(m.resumeAt)
	decEdge := m.dec.Poll(now).Edge
	incEdge := m.inc.Poll(now).Edge
	saveEdge := m.save.Poll(now).Edge

	if decEdge && open {
		m.count--
		m.clampCount()
		m.showCount()
	}
	if incEdge && open {
		m.count++
		m.clampCount()
		m.showCount()
	}
	if open && (m.deferred || saveEdge) {
		m.saveStep(now)
	}
}

// saveStep commits the current field and advances the workflow. The
// time-format step parks on an overlay instead of advancing right away;
// the parked advance finishes on the first gate-open poll, marked by the
// deferred flag.
func (m *Machine) saveStep(now time.Time) {
	resumed := m.deferred
	if !resumed {
		m.commitCount()
	}

	// Only the time workflow's format step gets its own confirmation
	// screen: the format and hour screens render alike, so the
	// transition needs a visible cue.
	overlay := m.opt == optTime && m.level == 1

	if !resumed {
		m.level++
	}

	switch {
	case m.opt == optAlarm && m.level > maxAlarmLevel:
		m.exiting = true
		if m.level < discardLevel {
			if err := m.clock.SetAlarm(m.tempAlarm); err != nil {
				m.abort = true
			}
		} else {
			m.abort = true
		}
	case m.opt == optTime && m.level > maxTimeLevel:
		m.exiting = true
		if m.level < discardLevel {
			m.clock.SetIs12Hour(m.tempUse12)
			if err := m.clock.SetTime(m.tempTime); err != nil {
				m.abort = true
			}
		} else {
			m.abort = true
		}
	case overlay:
		m.disp.ShowPattern(display.PatternOK)
		m.resumeAt = now.Add(m.dwell.OK)
		m.deferred = true
	default:
		m.deferred = false
		m.loadCount()
		m.showCount()
	}
}

// commitCount folds the counter into the working copy for the level that
// is ending. Selecting the third mode cancels the whole session.
func (m *Machine) commitCount() {
	switch m.opt {
	case optTime:
		switch m.level {
		case 1:
			if m.count == 3 {
				m.level = discardLevel
				return
			}
			m.tempUse12 = m.count == 2
			// The chosen format applies right away so the remaining
			// screens preview hours the way they will render.
			m.clock.SetIs12Hour(m.tempUse12)
		case 2:
			m.tempTime.Hour = m.count
		case 3:
			m.tempTime.Minute = m.count
		case 4:
			m.tempTime.Second = m.count
		}
	case optAlarm:
		switch m.level {
		case 1:
			if m.count == 3 {
				m.tempAlarm = m.clock.Alarm(rtc.Alarm2)
				m.level = discardLevel
				return
			}
			m.tempAlarm.Enabled = m.count == 2
		case 2:
			m.tempAlarm.Hour = m.count
		case 3:
			m.tempAlarm.Minute = m.count
		}
	}
}

// loadCount seeds the counter from the working copy for the level that
// is starting.
func (m *Machine) loadCount() {
	switch m.fieldAt(m.level) {
	case fieldMode:
		enabled := m.tempUse12
		if m.opt == optAlarm {
			enabled = m.tempAlarm.Enabled
		}
		m.count = 1
		if enabled {
			m.count = 2
		}
	case fieldHours:
		if m.opt == optTime {
			m.count = m.tempTime.Hour
		} else {
			m.count = m.tempAlarm.Hour
		}
	case fieldMinutes:
		if m.opt == optTime {
			m.count = m.tempTime.Minute
		} else {
			m.count = m.tempAlarm.Minute
		}
	case fieldSeconds:
		m.count = m.tempTime.Second
	}
}

// clampCount wraps the counter around its field's range.
func (m *Machine) clampCount() {
	switch m.fieldAt(m.level) {
	case fieldMode:
		if m.count < 1 {
			m.count = 3
		}
		if m.count > 3 {
			m.count = 1
		}
	case fieldHours:
		if m.count < 0 {
			m.count = 23
		}
		if m.count > 23 {
			m.count = 0
		}
	case fieldMinutes, fieldSeconds:
		if m.count < 0 {
			m.count = 59
		}
		if m.count > 59 {
			m.count = 0
		}
	}
}

// showCount renders the counter for the current field.
func (m *Machine) showCount() {
	switch m.fieldAt(m.level) {
	case fieldHours:
		m.disp.ShowBinaryTime(m.count, 0, 0, m.tempUse12)
	case fieldMinutes:
		m.disp.ShowBinaryTime(0, m.count, 0, false)
	case fieldSeconds:
		m.disp.ShowBinaryTime(0, 0, m.count, false)
	case fieldMode:
		if m.opt == optTime {
			switch m.count {
			case 1:
				m.disp.ShowBinaryTime(24, 0, 0, false)
			case 2:
				m.disp.ShowBinaryTime(12, 0, 0, true)
			default:
				m.disp.ShowPattern(display.PatternAbort)
			}
			return
		}
		switch m.count {
		case 1:
			m.disp.ShowPattern(display.PatternOff)
		case 2:
			m.disp.ShowPattern(display.PatternOn)
		default:
			m.disp.ShowPattern(display.PatternAbort)
		}
	}
}

// fieldAt maps a workflow level to the field the counter edits there.
func (m *Machine) fieldAt(level int) field {
	switch m.opt {
	case optTime:
		switch level {
		case 1:
			return fieldMode
		case 2:
			return fieldHours
		case 3:
			return fieldMinutes
		case 4:
			return fieldSeconds
		}
	case optAlarm:
		switch level {
		case 1:
			return fieldMode
		case 2:
			return fieldHours
		case 3:
			return fieldMinutes
		}
	}
	return fieldNone
}

// pollExit plays the exit screens: rainbow, then ok or abort, then back
// to idle. Each stage holds until its deadline passes.
func (m *Machine) pollExit(now time.Time) {
	switch m.exitStage {
	case 0:
		m.disp.ShowPattern(display.PatternRainbow)
		m.resumeAt = now.Add(m.dwell.Rainbow)
		m.exitStage = 1
	case 1:
		if !now.After(m.resumeAt) {
			return
		}
		if m.abort {
			m.disp.ShowPattern(display.PatternAbort)
		} else {
			m.disp.ShowPattern(display.PatternOK)
		}
		m.resumeAt = now.Add(m.dwell.Confirm)
		m.exitStage = 2
	case 2:
		if !now.After(m.resumeAt) {
			return
		}
		m.reset()
	}
}

// reset returns to idle. The working copies keep their last values; every
// session entry re-snapshots them.
func (m *Machine) reset() {
	m.opt = optNone
	m.level = 0
	m.count = 0
	m.exiting = false
	m.abort = false
	m.exitStage = 0
	m.deferred = false
}

func (m *Machine) state() UIState {
	switch {
	case m.exiting:
		return Exiting
	case m.level == 0:
		return Inactive
	case m.opt == optTime:
		return EditingTime
	case m.opt == optAlarm:
		return EditingAlarm
	}
	return Inactive
}
