package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Chris-70/WiFiBinaryClock-sub000/internal/rtc"
)

func noon() time.Time {
	return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T, samples ...rtc.Sample) (*Engine, *rtc.Fake) {
	t.Helper()
	if len(samples) == 0 {
		samples = []rtc.Sample{rtc.SampleAt(noon())}
	}
	dev := rtc.NewFake(samples...)
	e := New(dev, zap.NewNop().Sugar())
	require.NoError(t, e.Load())
	return e, dev
}

func TestPollWithoutTickDoesNothing(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	reads := dev.ReadTimeCalls

	require.False(t, e.Poll())
	require.Equal(t, reads, dev.ReadTimeCalls, "no tick means no bus traffic")
}

func TestPollConsumesOneTick(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	e.OnTick()

	require.True(t, e.Poll())
	require.Equal(t, rtc.SampleAt(noon()), e.Time())
	require.False(t, e.Poll(), "the tick flag clears on the first poll")
}

func TestCoalescedTicksReadOnce(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	e.OnTick()
	e.OnTick()
	e.OnTick()
	reads := dev.ReadTimeCalls

	require.True(t, e.Poll())
	require.False(t, e.Poll())
	require.Equal(t, reads+1, dev.ReadTimeCalls)
}

func TestInvalidSampleKeepsLastGoodTime(t *testing.T) {
	t.Parallel()

	stopped := rtc.SampleAt(noon().Add(time.Second))
	stopped.Valid = false
	e, _ := newTestEngine(t, rtc.SampleAt(noon()), stopped)

	e.OnTick()
	require.True(t, e.Poll())

	e.OnTick()
	require.False(t, e.Poll())
	require.Equal(t, rtc.SampleAt(noon()), e.Time())
}

func TestOutOfRangeSampleRejected(t *testing.T) {
	t.Parallel()

	garbage := rtc.Sample{Year: 2026, Month: 1, Day: 1, Hour: 77, Valid: true}
	e, _ := newTestEngine(t, rtc.SampleAt(noon()), garbage)

	e.OnTick()
	require.True(t, e.Poll())
	e.OnTick()
	require.False(t, e.Poll())
	require.Equal(t, 12, e.Time().Hour)
}

func TestReadErrorReportedAndCacheKept(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	e.OnTick()
	require.True(t, e.Poll())

	dev.ReadTimeErr = errors.New("i2c: bus stuck")
	e.OnTick()
	require.False(t, e.Poll())
	require.Equal(t, rtc.SampleAt(noon()), e.Time())
}

func TestTickListenerReceivesSamples(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	var got []rtc.Sample
	require.True(t, e.RegisterTickListener(func(s rtc.Sample) { got = append(got, s) }))

	e.OnTick()
	require.True(t, e.Poll())
	require.Len(t, got, 1)
	require.Equal(t, rtc.SampleAt(noon()), got[0])
}

func TestListenerSlotsAreSingle(t *testing.T) {
	t.Parallel()

	e, _ := newTestEngine(t)
	require.False(t, e.RegisterTickListener(nil))
	require.True(t, e.RegisterTickListener(func(rtc.Sample) {}))
	require.False(t, e.RegisterTickListener(func(rtc.Sample) {}), "the slot holds one listener")

	require.True(t, e.UnregisterTickListener())
	require.False(t, e.UnregisterTickListener())
	require.True(t, e.RegisterTickListener(func(rtc.Sample) {}))

	require.True(t, e.RegisterAlarmListener(func(rtc.Alarm) {}))
	require.False(t, e.RegisterAlarmListener(func(rtc.Alarm) {}))
	require.True(t, e.UnregisterAlarmListener())
}

func TestAlarmFiresWithinLatenessWindow(t *testing.T) {
	t.Parallel()

	// 12:00:01, one second past the schedule.
	e, dev := newTestEngine(t, rtc.SampleAt(noon().Add(time.Second)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 12, Minute: 0, Enabled: true, Repeat: rtc.Daily}))

	var fired []rtc.Alarm
	require.True(t, e.RegisterAlarmListener(func(a rtc.Alarm) { fired = append(fired, a) }))

	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())

	require.Len(t, fired, 1)
	require.Equal(t, rtc.Alarm2, fired[0].ID)
	require.True(t, fired[0].Fired)
	require.True(t, e.Alarm(rtc.Alarm2).Fired)
	require.Contains(t, dev.Silenced, rtc.Alarm2)
	require.True(t, e.Alarm(rtc.Alarm2).Enabled, "a daily alarm stays armed")
}

func TestStaleMatchFlagSilencedWithoutRinging(t *testing.T) {
	t.Parallel()

	// Two hours past the schedule, as after a long power loss.
	e, dev := newTestEngine(t, rtc.SampleAt(noon().Add(2*time.Hour)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 12, Minute: 0, Enabled: true, Repeat: rtc.Daily}))

	rang := false
	require.True(t, e.RegisterAlarmListener(func(rtc.Alarm) { rang = true }))

	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())

	require.False(t, rang)
	require.False(t, e.Alarm(rtc.Alarm2).Fired)
	require.Contains(t, dev.Silenced, rtc.Alarm2, "the stale flag is still cleared")
}

func TestMatchOnExactSecondRingsNextTick(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, rtc.SampleAt(noon()), rtc.SampleAt(noon().Add(time.Second)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 12, Minute: 0, Enabled: true, Repeat: rtc.Daily}))

	rang := 0
	require.True(t, e.RegisterAlarmListener(func(rtc.Alarm) { rang++ }))

	// The flag is visible on the matching second itself: hold it for one
	// more tick instead of consuming it at lateness zero.
	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())
	require.Equal(t, 0, rang)
	require.Empty(t, dev.Silenced)

	e.OnTick()
	require.True(t, e.Poll())
	require.Equal(t, 1, rang)
	require.Contains(t, dev.Silenced, rtc.Alarm2)
}

func TestDisabledAlarmFlagIgnored(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, rtc.SampleAt(noon().Add(time.Second)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 12, Minute: 0, Enabled: false, Repeat: rtc.Daily}))

	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())

	require.False(t, e.Alarm(rtc.Alarm2).Fired)
	require.Empty(t, dev.Silenced)
}

func TestOneShotAlarmDisablesItself(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, rtc.SampleAt(noon().Add(time.Second)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm1, Hour: 12, Minute: 0, Enabled: true, Repeat: rtc.Never}))

	dev.Flags[rtc.Alarm1] = true
	e.OnTick()
	require.True(t, e.Poll())

	require.False(t, e.Alarm(rtc.Alarm1).Enabled)
	require.Contains(t, dev.EnableCalls, rtc.EnableCall{ID: rtc.Alarm1, Enabled: false})
}

func TestHourlyAlarmLatenessUsesHourRing(t *testing.T) {
	t.Parallel()

	// Stored hour 0, but an hourly alarm at :15:00 observed 13:15:30 is
	// only 30 seconds late.
	e, dev := newTestEngine(t, rtc.SampleAt(time.Date(2026, 1, 1, 13, 15, 30, 0, time.UTC)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 0, Minute: 15, Enabled: true, Repeat: rtc.Hourly}))

	rang := false
	require.True(t, e.RegisterAlarmListener(func(rtc.Alarm) { rang = true }))

	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())
	require.True(t, rang)
}

func TestAcknowledgeClearsRinging(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t, rtc.SampleAt(noon().Add(time.Second)))
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 12, Minute: 0, Enabled: true, Repeat: rtc.Daily}))
	dev.Flags[rtc.Alarm2] = true
	e.OnTick()
	require.True(t, e.Poll())
	require.True(t, e.Alarm(rtc.Alarm2).Fired)

	require.True(t, e.Acknowledge(rtc.Alarm2))
	require.False(t, e.Alarm(rtc.Alarm2).Fired)
	require.False(t, e.Acknowledge(rtc.Alarm2))
	require.False(t, e.Acknowledge(9))
}

func TestSetTimeWritesThroughAndCaches(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	e.SetIs12Hour(true)

	s := rtc.SampleAt(time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC))
	require.NoError(t, e.SetTime(s))
	require.Equal(t, s, e.Time())
	require.Len(t, dev.TimeWrites, 1)
	require.True(t, dev.TimeWrites[0].Use12Hour)
}

func TestSetTimeFailureKeepsCache(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	e.OnTick()
	require.True(t, e.Poll())

	dev.WriteTimeErr = errors.New("i2c: nak")
	err := e.SetTime(rtc.SampleAt(time.Date(2026, 5, 1, 8, 15, 0, 0, time.UTC)))
	require.Error(t, err)
	require.Equal(t, rtc.SampleAt(noon()), e.Time())
}

func TestSetTimeRejectsOutOfRange(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	err := e.SetTime(rtc.Sample{Year: 1970, Month: 1, Day: 1})
	require.Error(t, err)
	require.Empty(t, dev.TimeWrites)
}

func TestDisableKeepsStoredSchedule(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 7, Minute: 30, Enabled: true, Repeat: rtc.Daily}))
	require.Len(t, dev.AlarmWrites, 1)

	off := e.Alarm(rtc.Alarm2)
	off.Enabled = false
	require.NoError(t, e.SetAlarm(off))

	require.Len(t, dev.AlarmWrites, 1, "disabling must not rewrite the schedule")
	require.Contains(t, dev.EnableCalls, rtc.EnableCall{ID: rtc.Alarm2, Enabled: false})
	require.Equal(t, 7, e.Alarm(rtc.Alarm2).Hour)
}

func TestSetAlarmFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	e, dev := newTestEngine(t)
	require.NoError(t, e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 7, Minute: 30, Enabled: true, Repeat: rtc.Daily}))

	dev.WriteAlarmErr = errors.New("i2c: nak")
	err := e.SetAlarm(rtc.Alarm{ID: rtc.Alarm2, Hour: 9, Minute: 0, Enabled: true, Repeat: rtc.Daily})
	require.Error(t, err)
	require.Equal(t, 7, e.Alarm(rtc.Alarm2).Hour)
}

func TestLoadSeedsAlarmsFromPeripheral(t *testing.T) {
	t.Parallel()

	dev := rtc.NewFake(rtc.SampleAt(noon()))
	dev.Alarms[rtc.Alarm2] = rtc.Alarm{ID: rtc.Alarm2, Hour: 6, Minute: 45, Enabled: true, Repeat: rtc.Daily}

	e := New(dev, zap.NewNop().Sugar())
	require.NoError(t, e.Load())
	got := e.Alarm(rtc.Alarm2)
	require.Equal(t, 6, got.Hour)
	require.Equal(t, 45, got.Minute)
	require.True(t, got.Enabled)
}

func TestLoadKeepsZeroTimeWhenStoredTimeInvalid(t *testing.T) {
	t.Parallel()

	stopped := rtc.SampleAt(noon())
	stopped.Valid = false
	dev := rtc.NewFake(stopped)

	e := New(dev, zap.NewNop().Sugar())
	require.NoError(t, e.Load())
	require.False(t, e.Time().Valid)
	require.Zero(t, e.Time().Year)
}
