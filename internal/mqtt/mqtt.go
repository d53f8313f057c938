// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

// Topic is the MQTT topic for clock events.
const Topic = "home/binclock/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "home/binclock/system"

// EventType identifies what the clock just did.
type EventType string

const (
	EventAlarmFired  EventType = "ALARM_FIRED"
	EventTimeSet     EventType = "TIME_SET"
	EventAlarmSet    EventType = "ALARM_SET"
	EventEditAborted EventType = "EDIT_ABORTED"
)

// Event represents one clock event.
type Event struct {
	Timestamp time.Time
	Type      EventType
	Time      rtc.Sample
	Use12Hour bool
	Alarm     *rtc.Alarm // set for alarm events, nil otherwise
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a clock event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGNAL" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Clock ClockPayload `json:"clock"`
}

// ClockPayload contains the clock event details.
type ClockPayload struct {
	Timestamp string        `json:"timestamp"`
	Event     string        `json:"event"`
	Time      string        `json:"time"`
	Format    string        `json:"format"`
	Alarm     *AlarmPayload `json:"alarm,omitempty"`
}

// AlarmPayload contains the alarm slot involved in an alarm event.
type AlarmPayload struct {
	ID      int    `json:"id"`
	Time    string `json:"time"`
	Enabled bool   `json:"enabled"`
	Repeat  string `json:"repeat"`
}

// FormatPayload creates the JSON payload for a clock event.
func FormatPayload(event Event) ([]byte, error) {
	format := "24h"
	if event.Use12Hour {
		format = "12h"
	}

	payload := Payload{
		Clock: ClockPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     string(event.Type),
			Time:      event.Time.String(),
			Format:    format,
		},
	}
	if event.Alarm != nil {
		payload.Clock.Alarm = &AlarmPayload{
			ID:      event.Alarm.ID,
			Time:    fmt.Sprintf("%02d:%02d:%02d", event.Alarm.Hour, event.Alarm.Minute, event.Alarm.Second),
			Enabled: event.Alarm.Enabled,
			Repeat:  string(event.Alarm.Repeat),
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
