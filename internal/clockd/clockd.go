// Package clockd is the composition point: one cooperative loop polls
// the dispatch engine and the settings editor back to back, renders the
// panel when a new second arrives, rings due alarms and reports state
// over MQTT and the status tracker. No pass ever blocks; all pacing
// lives in the collaborators as deadlines.
package clockd

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/button"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/display"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/engine"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/melody"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/mqtt"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/settings"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/status"
)

// DefaultPoll is the loop interval when Params leaves Poll unset.
const DefaultPoll = 10 * time.Millisecond

// Thermometer reads the ambient temperature in celsius. The clock
// peripheral's die sensor satisfies it.
type Thermometer interface {
	Temperature() (float64, error)
}

// Params collects the daemon's collaborators. Engine, Settings, Display,
// Player and Melodies are required; everything else degrades to a no-op
// when left nil.
type Params struct {
	Engine   *engine.Engine
	Settings *settings.Machine
	Display  display.Display
	Player   melody.Player
	Melodies *melody.Registry

	Publisher   mqtt.Publisher        // nil: publishing disabled
	ConnStatus  mqtt.ConnectionStatus // nil: reported as disconnected
	Tracker     *status.Tracker       // nil: status reporting disabled
	Thermometer Thermometer           // nil: no temperature on heartbeats
	Buttons     []*button.Button      // drained for read errors each pass

	Clock     clock.Clock        // nil: wall clock
	Log       *zap.SugaredLogger // nil: no-op
	Poll      time.Duration      // <=0: DefaultPoll
	Heartbeat time.Duration      // 0: heartbeats disabled
}

// Daemon drives the control loop. Every field is confined to the loop's
// context; the engine's tick interrupt stays on its own side of the
// pending flag and never reaches in here.
type Daemon struct {
	engine   *engine.Engine
	settings *settings.Machine
	display  display.Display
	player   melody.Player
	melodies *melody.Registry

	pub     mqtt.Publisher
	conn    mqtt.ConnectionStatus
	tracker *status.Tracker
	thermo  Thermometer
	buttons []*button.Button

	clk       clock.Clock
	log       *zap.SugaredLogger
	poll      time.Duration
	heartbeat time.Duration

	prevUI        settings.UIState
	ringing       []rtc.Alarm
	counts        status.Counts
	nextHeartbeat time.Time
}

// New wires a Daemon into the engine's listener slots. It fails when a
// required collaborator is missing or a slot is already taken.
func New(p Params) (*Daemon, error) {
	if p.Engine == nil || p.Settings == nil || p.Display == nil || p.Player == nil || p.Melodies == nil {
		return nil, errors.New("engine, settings, display, player and melodies are all required")
	}
	if p.Clock == nil {
		p.Clock = clock.New()
	}
	if p.Log == nil {
		p.Log = zap.NewNop().Sugar()
	}
	if p.Poll <= 0 {
		p.Poll = DefaultPoll
	}

	d := &Daemon{
		engine:    p.Engine,
		settings:  p.Settings,
		display:   p.Display,
		player:    p.Player,
		melodies:  p.Melodies,
		pub:       p.Publisher,
		conn:      p.ConnStatus,
		tracker:   p.Tracker,
		thermo:    p.Thermometer,
		buttons:   p.Buttons,
		clk:       p.Clock,
		log:       p.Log,
		poll:      p.Poll,
		heartbeat: p.Heartbeat,
		prevUI:    settings.Inactive,
	}

	if !p.Engine.RegisterTickListener(d.onTick) {
		return nil, errors.New("tick listener slot already taken")
	}
	if !p.Engine.RegisterAlarmListener(d.onAlarm) {
		p.Engine.UnregisterTickListener()
		return nil, errors.New("alarm listener slot already taken")
	}
	return d, nil
}

// onTick and onAlarm run inside engine.Poll, on the loop's own context.
func (d *Daemon) onTick(rtc.Sample) {
	d.counts.Ticks++
}

func (d *Daemon) onAlarm(a rtc.Alarm) {
	d.ringing = append(d.ringing, a)
	d.counts.AlarmsFired++
}

// Run drives Step at the poll interval until ctx is cancelled. STARTUP
// and SHUTDOWN system events bracket the loop on the retained topic so
// the broker always holds the latest lifecycle state.
func (d *Daemon) Run(ctx context.Context) error {
	d.track(d.prevUI)
	d.publishSystem(d.clk.Now(), "STARTUP", "", true)
	d.log.Infow("control loop started",
		"poll", d.poll.String(),
		"heartbeat", d.heartbeat.String())

	t := d.clk.Ticker(d.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			// Abandon any open edit before the final snapshot.
			d.settings.ForceExit()
			d.track(settings.Inactive)
			d.publishSystem(d.clk.Now(), "SHUTDOWN", "SIGNAL", true)
			d.log.Infow("control loop stopped")
			return nil
		case now := <-t.C:
			d.Step(now)
			d.maybeHeartbeat(now)
		}
	}
}

// Step runs one loop pass: engine first, then the editor, then the
// consequences. Exported so tests and harnesses can drive the daemon
// without the ticker.
func (d *Daemon) Step(now time.Time) {
	newSecond := d.engine.Poll()
	ui := d.settings.Poll(now)

	if newSecond && ui == settings.Inactive {
		s := d.engine.Time()
		d.display.ShowBinaryTime(s.Hour, s.Minute, s.Second, d.engine.Is12Hour())
	}

	for _, a := range d.ringing {
		d.ring(now, a)
	}
	d.ringing = d.ringing[:0]

	d.watchUI(now, ui)
	d.drainButtonErrors()
	d.track(ui)
}

// ring services one fired alarm: melody, event, acknowledge. An unknown
// melody id falls back to the built-in one.
func (d *Daemon) ring(now time.Time, a rtc.Alarm) {
	d.log.Infow("alarm ringing", "alarm", a.String(), "melody", a.Melody)

	notes, ok := d.melodies.ByID(a.Melody)
	if !ok {
		notes, _ = d.melodies.ByID(melody.DefaultID)
	}
	if err := d.player.Play(notes); err != nil {
		d.log.Warnw("melody playback failed", "alarm", a.ID, "error", err)
	}

	cp := a
	d.publish(mqtt.Event{
		Timestamp: now,
		Type:      mqtt.EventAlarmFired,
		Time:      d.engine.Time(),
		Use12Hour: d.engine.Is12Hour(),
		Alarm:     &cp,
	})
	d.engine.Acknowledge(a.ID)
}

// watchUI notices editor transitions. Opening a session bumps the edit
// counter; leaving one publishes the session's outcome.
func (d *Daemon) watchUI(now time.Time, ui settings.UIState) {
	prev := d.prevUI
	d.prevUI = ui
	if ui == prev {
		return
	}

	editing := func(s settings.UIState) bool {
		return s == settings.EditingTime || s == settings.EditingAlarm
	}
	switch {
	case prev == settings.Inactive && editing(ui):
		d.counts.Edits++
		d.log.Infow("edit session opened", "mode", string(ui))
	case editing(prev) && ui == settings.Exiting:
		d.closeEdit(now, prev)
	}
}

// closeEdit reports how a session ended. Aborted is only meaningful at
// this exact transition; the editor clears it when the exit screens end.
func (d *Daemon) closeEdit(now time.Time, prev settings.UIState) {
	if d.settings.Aborted() {
		d.log.Infow("edit session discarded", "mode", string(prev))
		d.publish(mqtt.Event{
			Timestamp: now,
			Type:      mqtt.EventEditAborted,
			Time:      d.engine.Time(),
			Use12Hour: d.engine.Is12Hour(),
		})
		return
	}

	switch prev {
	case settings.EditingTime:
		d.log.Infow("time committed",
			"time", d.engine.Time().String(),
			"use_12_hour", d.engine.Is12Hour())
		d.publish(mqtt.Event{
			Timestamp: now,
			Type:      mqtt.EventTimeSet,
			Time:      d.engine.Time(),
			Use12Hour: d.engine.Is12Hour(),
		})
	case settings.EditingAlarm:
		a := d.engine.Alarm(rtc.Alarm2)
		d.log.Infow("alarm committed", "alarm", a.String())
		d.publish(mqtt.Event{
			Timestamp: now,
			Type:      mqtt.EventAlarmSet,
			Time:      d.engine.Time(),
			Use12Hour: d.engine.Is12Hour(),
			Alarm:     &a,
		})
	}
}

// drainButtonErrors surfaces read failures collected during the pass.
// A flaky line is logged and the loop keeps going.
func (d *Daemon) drainButtonErrors() {
	for _, b := range d.buttons {
		if err := b.Err(); err != nil {
			d.log.Warnw("button read failed", "button", b.Name(), "error", err)
		}
	}
}

// track refreshes the status tracker from the engine's view of the world.
func (d *Daemon) track(ui settings.UIState) {
	if d.tracker == nil {
		return
	}
	alarms := [2]rtc.Alarm{d.engine.Alarm(rtc.Alarm1), d.engine.Alarm(rtc.Alarm2)}
	d.tracker.Update(d.engine.Time(), d.engine.Is12Hour(), string(ui), alarms, d.counts)
	d.tracker.SetMQTTConnected(d.conn != nil && d.conn.IsConnected())
}

// maybeHeartbeat publishes the periodic HEARTBEAT event. The first
// interval is measured from the first pass; STARTUP covers boot itself.
func (d *Daemon) maybeHeartbeat(now time.Time) {
	if d.heartbeat <= 0 {
		return
	}
	if d.nextHeartbeat.IsZero() {
		d.nextHeartbeat = now.Add(d.heartbeat)
		return
	}
	if now.Before(d.nextHeartbeat) {
		return
	}
	d.nextHeartbeat = now.Add(d.heartbeat)

	if d.thermo != nil && d.tracker != nil {
		if celsius, err := d.thermo.Temperature(); err != nil {
			d.log.Warnw("temperature read failed", "error", err)
		} else {
			d.tracker.SetTemperature(celsius)
		}
	}
	d.publishSystem(now, "HEARTBEAT", "", false)
}

// publish sends a clock event. Publish failures are logged, never fatal;
// the appliance keeps time whether or not the broker is reachable.
func (d *Daemon) publish(ev mqtt.Event) {
	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(ev); err != nil {
		d.log.Warnw("event publish failed", "type", string(ev.Type), "error", err)
	}
}

// publishSystem sends a lifecycle event, carrying the full status
// snapshot as payload when a tracker is attached.
func (d *Daemon) publishSystem(now time.Time, event, reason string, retained bool) {
	if d.pub == nil {
		return
	}
	ev := mqtt.SystemEvent{
		Timestamp: now,
		Event:     event,
		Reason:    reason,
		Retained:  retained,
	}
	if d.tracker != nil {
		ev.RawPayload = status.FormatStatusEvent(d.tracker.Snapshot(), event, reason)
	}
	if err := d.pub.PublishSystem(ev); err != nil {
		d.log.Warnw("system event publish failed", "event", event, "error", err)
	}
}
