package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string      `json:"event,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Time          string      `json:"time"`
	TimeValid     bool        `json:"time_valid"`
	Format        string      `json:"format"`
	UIState       string      `json:"ui_state"`
	Alarms        []AlarmJSON `json:"alarms"`
	UptimeSeconds int64       `json:"uptime_seconds"`
	StartTime     string      `json:"start_time"`
	Timestamp     string      `json:"timestamp"`
	TemperatureC  *float64    `json:"temperature_c,omitempty"`
	MQTT          MQTTStatus  `json:"mqtt"`
	Counts        CountsJSON  `json:"counts"`
	Config        ConfigJSON  `json:"config"`
}

// AlarmJSON is the JSON representation of one alarm slot.
type AlarmJSON struct {
	ID      int    `json:"id"`
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
	Repeat  string `json:"repeat"`
	Ringing bool   `json:"ringing"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of daemon counters.
type CountsJSON struct {
	Ticks       int `json:"ticks"`
	Edits       int `json:"edits"`
	AlarmsFired int `json:"alarms_fired"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
	I2CBus      string `json:"i2c_bus"`
	Sim         bool   `json:"sim"`
}

func buildInner(snap Snapshot) StatusInner {
	format := "24h"
	if snap.Use12Hour {
		format = "12h"
	}
	ui := snap.UIState
	if ui == "" {
		ui = "INACTIVE"
	}

	return StatusInner{
		Time:          snap.Time.String(),
		TimeValid:     snap.Time.Valid,
		Format:        format,
		UIState:       ui,
		Alarms:        buildAlarms(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		TemperatureC:  snap.Temperature,
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Ticks:       snap.Counts.Ticks,
			Edits:       snap.Counts.Edits,
			AlarmsFired: snap.Counts.AlarmsFired,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
			I2CBus:      snap.Config.I2CBus,
			Sim:         snap.Config.Sim,
		},
	}
}

// buildAlarms skips slots that were never loaded (zero ID).
func buildAlarms(snap Snapshot) []AlarmJSON {
	alarms := make([]AlarmJSON, 0, len(snap.Alarms))
	for _, a := range snap.Alarms {
		if a.ID == 0 {
			continue
		}
		alarms = append(alarms, AlarmJSON{
			ID:      a.ID,
			Time:    fmt.Sprintf("%02d:%02d:%02d", a.Hour, a.Minute, a.Second),
			Enabled: a.Enabled,
			Repeat:  string(a.Repeat),
			Ringing: a.Fired,
		})
	}
	return alarms
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
