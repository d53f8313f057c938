package internal

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/button"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/clockd"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/display"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/engine"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/melody"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/mqtt"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/settings"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/status"
	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/web"
)

// wall is the adjustable time source. It drives both the simulated clock
// chip and the control loop, so the whole rig moves in lockstep.
type wall struct {
	t time.Time
}

func (w *wall) now() time.Time { return w.t }

// line is a settable button input.
type line struct {
	level bool
}

func (l *line) read() (bool, error) { return l.level, nil }

// rig wires the full pipeline on fakes: Sim chip, real engine, real
// buttons and settings machine, the daemon loop, and a fake panel,
// player and publisher on the output side.
type rig struct {
	t *testing.T

	wall    *wall
	sim     *rtc.Sim
	eng     *engine.Engine
	disp    *display.Fake
	player  *melody.FakePlayer
	pub     *mqtt.FakePublisher
	tracker *status.Tracker
	daemon  *clockd.Daemon

	dec, save, inc *line
}

func newRig(t *testing.T, debounce time.Duration) *rig {
	t.Helper()

	// Local, not UTC: Sim.WriteTime re-bases in local time, and the
	// set-time scenario must round-trip whatever zone the host runs in.
	w := &wall{t: time.Date(2026, 8, 25, 7, 30, 0, 0, time.Local)}
	sim := rtc.NewSim(w.now)

	eng := engine.New(sim, nil)
	if err := eng.Load(); err != nil {
		t.Fatalf("load: %v", err)
	}

	disp := display.NewFake()
	shared := button.NewDebounce(debounce)
	dec, save, inc := &line{}, &line{}, &line{}
	decBtn := button.New("S1", button.CommonCathode, dec.read, shared)
	saveBtn := button.New("S2", button.CommonCathode, save.read, shared)
	incBtn := button.New("S3", button.CommonCathode, inc.read, shared)

	machine := settings.New(eng, disp, decBtn, saveBtn, incBtn, settings.Dwells{
		OK:      time.Millisecond,
		Rainbow: time.Millisecond,
		Confirm: time.Millisecond,
	})

	player := &melody.FakePlayer{}
	pub := mqtt.NewFakePublisher()
	tracker := status.NewTracker(w.t, status.Config{
		PollMs:     10,
		DebounceMs: debounce.Milliseconds(),
		Sim:        true,
	})

	d, err := clockd.New(clockd.Params{
		Engine:     eng,
		Settings:   machine,
		Display:    disp,
		Player:     player,
		Melodies:   melody.NewRegistry(),
		Publisher:  pub,
		ConnStatus: pub,
		Tracker:    tracker,
		Buttons:    []*button.Button{decBtn, saveBtn, incBtn},
	})
	if err != nil {
		t.Fatalf("clockd.New: %v", err)
	}

	r := &rig{
		t:       t,
		wall:    w,
		sim:     sim,
		eng:     eng,
		disp:    disp,
		player:  player,
		pub:     pub,
		tracker: tracker,
		daemon:  d,
		dec:     dec,
		save:    save,
		inc:     inc,
	}

	// One quiet pass so every button has seen its released baseline.
	r.step()
	disp.Reset()
	return r
}

// step advances the wall by one poll interval and runs one daemon pass.
func (r *rig) step() {
	r.wall.t = r.wall.t.Add(10 * time.Millisecond)
	r.daemon.Step(r.wall.t)
}

// second advances the wall to the next whole second and delivers the
// tick, the way the GPIO edge would.
func (r *rig) second() {
	r.wall.t = r.wall.t.Truncate(time.Second).Add(time.Second)
	r.eng.OnTick()
	r.daemon.Step(r.wall.t)
}

// press pushes and releases a button across four polls. With the short
// test debounce the press edge lands on the second poll.
func (r *rig) press(l *line) {
	l.level = true
	r.step()
	r.step()
	l.level = false
	r.step()
	r.step()
}

// settle runs idle passes until the exit screens finish.
func (r *rig) settle() {
	r.t.Helper()
	for i := 0; i < 20; i++ {
		if r.tracker.Snapshot().UIState == "INACTIVE" {
			return
		}
		r.step()
	}
	r.t.Fatalf("settings still active after settle")
}

// TestIntegrationClockTicksAndServesStatus walks three seconds through the
// whole pipeline and then reads the result back over HTTP.
func TestIntegrationClockTicksAndServesStatus(t *testing.T) {
	r := newRig(t, time.Millisecond)

	for i := 0; i < 3; i++ {
		r.second()
	}

	if len(r.disp.Times) != 3 {
		t.Fatalf("expected 3 renders, got %d", len(r.disp.Times))
	}
	last, ok := r.disp.LastTime()
	if !ok {
		t.Fatal("no time rendered")
	}
	if last.Hour != 7 || last.Minute != 30 || last.Second != 3 {
		t.Errorf("expected 07:30:03 on the panel, got %02d:%02d:%02d", last.Hour, last.Minute, last.Second)
	}
	if last.Use12Hour {
		t.Error("expected 24-hour rendering")
	}

	srv := web.New("127.0.0.1:0", r.tracker)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/index.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var parsed status.StatusJSON
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if parsed.Status.Time != "2026-08-25 07:30:03" {
		t.Errorf("status time: expected 2026-08-25 07:30:03, got %q", parsed.Status.Time)
	}
	if !parsed.Status.TimeValid {
		t.Error("status time should be valid")
	}
	if parsed.Status.UIState != "INACTIVE" {
		t.Errorf("ui state: expected INACTIVE, got %q", parsed.Status.UIState)
	}
	if parsed.Status.Counts.Ticks != 3 {
		t.Errorf("ticks: expected 3, got %d", parsed.Status.Counts.Ticks)
	}
	if len(parsed.Status.Alarms) != 2 {
		t.Errorf("expected both alarm slots in status, got %d", len(parsed.Status.Alarms))
	}
	if !parsed.Status.Config.Sim {
		t.Error("config should report the simulated clock")
	}

	if err := srv.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if err := <-done; err != nil && !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("serve: %v", err)
	}
}

// TestIntegrationAlarmRingsThroughTheStack schedules slot 1 a few seconds
// out and checks the ring reaches the player, the publisher and the chip.
func TestIntegrationAlarmRingsThroughTheStack(t *testing.T) {
	r := newRig(t, time.Millisecond)

	a := rtc.Alarm{ID: rtc.Alarm1, Hour: 7, Minute: 30, Second: 5, Enabled: true, Repeat: rtc.Daily}
	if err := r.eng.SetAlarm(a); err != nil {
		t.Fatalf("set alarm: %v", err)
	}

	// Tick to 07:30:05. The match flag sets on this second but the ring
	// is judged on the next tick.
	for i := 0; i < 5; i++ {
		r.second()
	}
	if len(r.player.Played) != 0 {
		t.Fatal("rang before the deferred judgment")
	}
	if len(r.pub.Events) != 0 {
		t.Fatalf("expected no events yet, got %d", len(r.pub.Events))
	}

	// 07:30:06: one second late, inside the window.
	r.second()

	if len(r.player.Played) != 1 {
		t.Fatalf("expected 1 melody, got %d", len(r.player.Played))
	}
	if len(r.player.Played[0]) == 0 {
		t.Error("melody should have notes")
	}
	if len(r.pub.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(r.pub.Events))
	}
	ev := r.pub.Events[0]
	if ev.Type != mqtt.EventAlarmFired {
		t.Errorf("expected ALARM_FIRED, got %s", ev.Type)
	}
	if ev.Alarm == nil || ev.Alarm.ID != rtc.Alarm1 {
		t.Errorf("expected alarm 1 on the event, got %+v", ev.Alarm)
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[0], &parsed); err != nil {
		t.Fatalf("payload: invalid JSON: %v", err)
	}
	if parsed.Clock.Event != "ALARM_FIRED" {
		t.Errorf("payload event: expected ALARM_FIRED, got %q", parsed.Clock.Event)
	}
	if parsed.Clock.Time != "2026-08-25 07:30:06" {
		t.Errorf("payload time: expected 2026-08-25 07:30:06, got %q", parsed.Clock.Time)
	}
	if parsed.Clock.Timestamp == "" {
		t.Error("payload missing timestamp")
	}
	if parsed.Clock.Alarm == nil {
		t.Fatal("payload missing alarm")
	}
	if parsed.Clock.Alarm.Time != "07:30:05" {
		t.Errorf("payload alarm time: expected 07:30:05, got %q", parsed.Clock.Alarm.Time)
	}

	// The ring was acknowledged and the chip flag silenced.
	if r.eng.Alarm(rtc.Alarm1).Fired {
		t.Error("ring was not acknowledged")
	}
	if fired, _ := r.sim.AlarmFired(rtc.Alarm1); fired {
		t.Error("match flag still set on the chip")
	}
	if got := r.tracker.Snapshot().Counts.AlarmsFired; got != 1 {
		t.Errorf("alarms fired: expected 1, got %d", got)
	}
}

// TestIntegrationHourlyAlarm checks the hourly repeat rings at the same
// minute past any hour.
func TestIntegrationHourlyAlarm(t *testing.T) {
	r := newRig(t, time.Millisecond)

	a := rtc.Alarm{ID: rtc.Alarm1, Minute: 30, Second: 10, Enabled: true, Repeat: rtc.Hourly}
	if err := r.eng.SetAlarm(a); err != nil {
		t.Fatalf("set alarm: %v", err)
	}

	// The schedule says 00:30:10 but at 07:30:10 the hourly repeat is due.
	for i := 0; i < 11; i++ {
		r.second()
	}

	if len(r.player.Played) != 1 {
		t.Fatalf("expected 1 melody, got %d", len(r.player.Played))
	}
	if len(r.pub.Events) != 1 || r.pub.Events[0].Type != mqtt.EventAlarmFired {
		t.Fatalf("expected one ALARM_FIRED, got %+v", r.pub.Events)
	}
}

// TestIntegrationButtonsSetTime runs the time workflow on real buttons:
// open, keep 24-hour, bump the hour, save through, and watch the chip
// re-base.
func TestIntegrationButtonsSetTime(t *testing.T) {
	r := newRig(t, time.Millisecond)

	r.press(r.dec)  // open the time editor on the format step
	r.press(r.save) // keep 24h; the save glyph shows, then hours resume
	r.press(r.inc)  // hours: 7 -> 8
	r.press(r.save) // commit hours
	r.press(r.save) // commit minutes
	r.press(r.save) // commit seconds, session closes
	r.settle()

	if len(r.pub.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(r.pub.Events))
	}
	if r.pub.Events[0].Type != mqtt.EventTimeSet {
		t.Fatalf("expected TIME_SET, got %s", r.pub.Events[0].Type)
	}

	var parsed mqtt.Payload
	if err := json.Unmarshal(r.pub.Payloads[0], &parsed); err != nil {
		t.Fatalf("payload: invalid JSON: %v", err)
	}
	if parsed.Clock.Event != "TIME_SET" {
		t.Errorf("payload event: expected TIME_SET, got %q", parsed.Clock.Event)
	}
	if parsed.Clock.Time != "2026-08-25 08:30:00" {
		t.Errorf("payload time: expected 2026-08-25 08:30:00, got %q", parsed.Clock.Time)
	}
	if parsed.Clock.Format != "24h" {
		t.Errorf("payload format: expected 24h, got %q", parsed.Clock.Format)
	}

	// The simulated chip was re-based; the next tick renders the new time.
	r.disp.Reset()
	r.second()
	last, ok := r.disp.LastTime()
	if !ok {
		t.Fatal("no render after the edit")
	}
	if last.Hour != 8 || last.Minute != 30 {
		t.Errorf("expected 08:30 on the panel, got %02d:%02d", last.Hour, last.Minute)
	}

	if got := r.tracker.Snapshot().Counts.Edits; got != 1 {
		t.Errorf("edits: expected 1, got %d", got)
	}
}

// TestIntegrationCancelKeepsAlarm opens the alarm editor, walks the
// selector to Cancel, and checks nothing was written anywhere.
func TestIntegrationCancelKeepsAlarm(t *testing.T) {
	r := newRig(t, time.Millisecond)

	before := rtc.Alarm{ID: rtc.Alarm2, Hour: 6, Minute: 15, Enabled: true, Repeat: rtc.Daily}
	if err := r.eng.SetAlarm(before); err != nil {
		t.Fatalf("set alarm: %v", err)
	}

	r.press(r.inc)  // open the alarm editor; the slot is on
	r.press(r.dec)  // On -> Off
	r.press(r.dec)  // Off -> Cancel
	r.press(r.save) // discard the session
	r.settle()

	if len(r.pub.Events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(r.pub.Events))
	}
	if r.pub.Events[0].Type != mqtt.EventEditAborted {
		t.Errorf("expected EDIT_ABORTED, got %s", r.pub.Events[0].Type)
	}

	if got := r.eng.Alarm(rtc.Alarm2); got != before {
		t.Errorf("engine alarm changed: expected %v, got %v", before, got)
	}
	stored, err := r.sim.ReadAlarm(rtc.Alarm2)
	if err != nil {
		t.Fatalf("read alarm: %v", err)
	}
	if stored != before {
		t.Errorf("chip alarm changed: expected %v, got %v", before, stored)
	}
}

// TestIntegrationBounceRejected checks a contact bounce shorter than the
// debounce window opens nothing, and a held press still does.
func TestIntegrationBounceRejected(t *testing.T) {
	r := newRig(t, 75*time.Millisecond)

	// A 10ms blip on the increment line.
	r.inc.level = true
	r.step()
	r.inc.level = false
	for i := 0; i < 4; i++ {
		r.step()
	}

	if got := r.tracker.Snapshot().UIState; got != "INACTIVE" {
		t.Errorf("bounce opened the editor: ui state %q", got)
	}
	if len(r.pub.Events) != 0 {
		t.Errorf("expected no events after a bounce, got %d", len(r.pub.Events))
	}
	if len(r.disp.Patterns) != 0 {
		t.Errorf("expected no editor screens after a bounce, got %d", len(r.disp.Patterns))
	}

	// A held press outlasts the window and opens the editor.
	r.inc.level = true
	for i := 0; i < 9; i++ {
		r.step()
	}
	r.inc.level = false
	r.step()
	r.step()

	if got := r.tracker.Snapshot().UIState; got != "EDITING_ALARM" {
		t.Errorf("held press: expected EDITING_ALARM, got %q", got)
	}
	if got := r.tracker.Snapshot().Counts.Edits; got != 1 {
		t.Errorf("edits: expected 1, got %d", got)
	}
}

// TestIntegrationInvalidTimeHoldsDisplay stops the oscillator mid-run and
// checks the panel freezes until the time is written back.
func TestIntegrationInvalidTimeHoldsDisplay(t *testing.T) {
	r := newRig(t, time.Millisecond)

	r.second()
	if len(r.disp.Times) != 1 {
		t.Fatalf("expected 1 render, got %d", len(r.disp.Times))
	}

	r.sim.Invalidate()
	r.second()
	if len(r.disp.Times) != 1 {
		t.Errorf("invalid sample still rendered: %d renders", len(r.disp.Times))
	}

	// Setting the time, as the CLI would, recovers the clock.
	sample := rtc.SampleAt(time.Date(2026, 8, 25, 9, 0, 0, 0, time.Local))
	if err := r.sim.WriteTime(sample, false); err != nil {
		t.Fatalf("write time: %v", err)
	}
	r.second()
	last, ok := r.disp.LastTime()
	if !ok {
		t.Fatal("no render after recovery")
	}
	if last.Hour != 9 || last.Minute != 0 || last.Second != 1 {
		t.Errorf("expected 09:00:01 on the panel, got %02d:%02d:%02d", last.Hour, last.Minute, last.Second)
	}
}
