// Package status provides a thread-safe status tracker for the binclock daemon.
// It is designed to be read by HTTP handlers and MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	DebounceMs  int64
	HeartbeatMs int64
	Broker      string
	HTTPAddr    string
	I2CBus      string
	Sim         bool
}

// Counts tracks how busy the daemon has been since startup.
type Counts struct {
	Ticks       int
	Edits       int
	AlarmsFired int
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Time          rtc.Sample
	Use12Hour     bool
	UIState       string
	Alarms        [2]rtc.Alarm
	Counts        Counts
	Temperature   *float64
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			UIState:   "INACTIVE",
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update sets clock state, UI state, alarm slots, and counters.
// Called from the daemon loop on every pass.
func (t *Tracker) Update(sample rtc.Sample, use12Hour bool, uiState string, alarms [2]rtc.Alarm, counts Counts) {
	t.mu.Lock()
	t.snap.Time = sample
	t.snap.Use12Hour = use12Hour
	t.snap.UIState = uiState
	t.snap.Alarms = alarms
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetTemperature records the latest RTC die temperature in Celsius.
func (t *Tracker) SetTemperature(celsius float64) {
	t.mu.Lock()
	t.snap.Temperature = &celsius
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
