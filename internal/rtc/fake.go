package rtc

import "errors"

// TimeWrite records one WriteTime call.
type TimeWrite struct {
	Sample    Sample
	Use12Hour bool
}

// EnableCall records one SetAlarmEnabled call.
type EnableCall struct {
	ID      int
	Enabled bool
}

// Fake is a scripted Device for tests.
type Fake struct {
	// Samples are returned by ReadTime in order; the last one repeats.
	Samples []Sample
	index   int

	// Alarms and Flags are the stored slots and their match flags,
	// mutated by writes the way the chip would be.
	Alarms map[int]Alarm
	Flags  map[int]bool

	// Call records.
	ReadTimeCalls int
	TimeWrites    []TimeWrite
	AlarmWrites   []Alarm
	EnableCalls   []EnableCall
	Silenced      []int
	Closed        bool

	// Error injection.
	ReadTimeErr   error
	WriteTimeErr  error
	ReadAlarmErr  error
	WriteAlarmErr error
	EnableErr     error
	FiredErr      error
	SilenceErr    error
}

// NewFake creates a Fake that will return the given samples in order.
func NewFake(samples ...Sample) *Fake {
	return &Fake{
		Samples: samples,
		Alarms: map[int]Alarm{
			Alarm1: {ID: Alarm1, Repeat: Daily},
			Alarm2: {ID: Alarm2, Repeat: Daily},
		},
		Flags: map[int]bool{},
	}
}

// ReadTime returns the next scripted sample; the last one repeats.
func (f *Fake) ReadTime() (Sample, error) {
	f.ReadTimeCalls++
	if f.ReadTimeErr != nil {
		return Sample{}, f.ReadTimeErr
	}
	if len(f.Samples) == 0 {
		return Sample{}, errors.New("no samples scripted")
	}
	s := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return s, nil
}

// WriteTime records the call.
func (f *Fake) WriteTime(s Sample, use12Hour bool) error {
	if f.WriteTimeErr != nil {
		return f.WriteTimeErr
	}
	f.TimeWrites = append(f.TimeWrites, TimeWrite{Sample: s, Use12Hour: use12Hour})
	return nil
}

// ReadAlarm returns the stored slot.
func (f *Fake) ReadAlarm(id int) (Alarm, error) {
	if f.ReadAlarmErr != nil {
		return Alarm{}, f.ReadAlarmErr
	}
	if err := checkID(id); err != nil {
		return Alarm{}, err
	}
	return f.Alarms[id], nil
}

// WriteAlarm records the call, stores the slot and clears its flag.
func (f *Fake) WriteAlarm(a Alarm) error {
	if f.WriteAlarmErr != nil {
		return f.WriteAlarmErr
	}
	if err := checkID(a.ID); err != nil {
		return err
	}
	f.AlarmWrites = append(f.AlarmWrites, a)
	f.Alarms[a.ID] = a
	f.Flags[a.ID] = false
	return nil
}

// SetAlarmEnabled records the call and flips the stored enable state.
func (f *Fake) SetAlarmEnabled(id int, enabled bool) error {
	if f.EnableErr != nil {
		return f.EnableErr
	}
	if err := checkID(id); err != nil {
		return err
	}
	f.EnableCalls = append(f.EnableCalls, EnableCall{ID: id, Enabled: enabled})
	a := f.Alarms[id]
	a.Enabled = enabled
	f.Alarms[id] = a
	return nil
}

// AlarmFired reports the scripted match flag.
func (f *Fake) AlarmFired(id int) (bool, error) {
	if f.FiredErr != nil {
		return false, f.FiredErr
	}
	if err := checkID(id); err != nil {
		return false, err
	}
	return f.Flags[id], nil
}

// SilenceAlarm records the call and clears the flag.
func (f *Fake) SilenceAlarm(id int) error {
	if f.SilenceErr != nil {
		return f.SilenceErr
	}
	if err := checkID(id); err != nil {
		return err
	}
	f.Silenced = append(f.Silenced, id)
	f.Flags[id] = false
	return nil
}

// Close marks the device closed.
func (f *Fake) Close() error {
	f.Closed = true
	return nil
}
