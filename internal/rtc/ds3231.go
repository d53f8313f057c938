package rtc

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// DefaultI2CAddr is the fixed bus address of the DS3231.
const DefaultI2CAddr = 0x68

// Register map.
const (
	regSeconds = 0x00
	regAlarm1  = 0x07
	regAlarm2  = 0x0B
	regControl = 0x0E
	regStatus  = 0x0F
	regTemp    = 0x11
)

// Control register bits.
const (
	ctlA1IE  = 1 << 0
	ctlA2IE  = 1 << 1
	ctlINTCN = 1 << 2
	ctlRS1   = 1 << 3
	ctlRS2   = 1 << 4
	ctlEOSC  = 1 << 7
)

// Status register bits.
const (
	stA1F = 1 << 0
	stA2F = 1 << 1
	stOSF = 1 << 7
)

// Hour register bits.
const (
	hr12Mode = 1 << 6
	hrPM     = 1 << 5
)

// alarmMask is the match-mask bit carried in the top bit of every alarm
// register. A set bit means the field is ignored during matching.
const alarmMask = 1 << 7

// DS3231 drives the clock chip over I2C.
type DS3231 struct {
	dev i2c.Dev
	bus i2c.BusCloser
}

// OpenDS3231 opens the I2C bus and prepares the chip: oscillator running,
// 1Hz square wave on the INT/SQW pin as the once-per-second tick source.
// An empty busName selects the first available bus.
func OpenDS3231(busName string, addr uint16) (*DS3231, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init host: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("open i2c bus %q: %w", busName, err)
	}
	d := NewDS3231(i2c.Dev{Addr: addr, Bus: bus})
	d.bus = bus
	if err := d.Configure(); err != nil {
		bus.Close()
		return nil, err
	}
	return d, nil
}

// NewDS3231 wraps an already-opened I2C device. Used by tests and by
// callers that manage the bus themselves.
func NewDS3231(dev i2c.Dev) *DS3231 {
	return &DS3231{dev: dev}
}

// Configure starts the oscillator and routes the 1Hz square wave to the
// INT/SQW pin. Alarm match flags are left untouched: a flag that predates
// a power loss is the dispatch engine's to judge.
func (d *DS3231) Configure() error {
	ctl, err := d.readReg(regControl)
	if err != nil {
		return fmt.Errorf("read control: %w", err)
	}
	ctl &^= ctlEOSC | ctlINTCN | ctlRS1 | ctlRS2
	if err := d.writeReg(regControl, ctl); err != nil {
		return fmt.Errorf("write control: %w", err)
	}
	return nil
}

// ReadTime returns the chip time. Valid is false while the oscillator-stop
// flag is set, meaning the chip lost power since the time was written.
func (d *DS3231) ReadTime() (Sample, error) {
	var raw [7]byte
	if err := d.readRegs(regSeconds, raw[:]); err != nil {
		return Sample{}, fmt.Errorf("read time registers: %w", err)
	}
	st, err := d.readReg(regStatus)
	if err != nil {
		return Sample{}, fmt.Errorf("read status: %w", err)
	}

	s := Sample{
		Second: bcdToInt(raw[0] & 0x7F),
		Minute: bcdToInt(raw[1] & 0x7F),
		Hour:   hourFromReg(raw[2]),
		Day:    bcdToInt(raw[4] & 0x3F),
		Month:  time.Month(bcdToInt(raw[5] & 0x1F)),
		Year:   2000 + bcdToInt(raw[6]),
		Valid:  st&stOSF == 0,
	}
	if raw[5]&0x80 != 0 {
		s.Year += 100
	}
	return s, nil
}

// WriteTime sets the chip time and clears the oscillator-stop flag, which
// marks the stored time trustworthy again.
func (d *DS3231) WriteTime(s Sample, use12Hour bool) error {
	year := s.Year
	var century byte
	switch {
	case year >= 2100 && year <= 2199:
		year -= 2100
		century = 0x80
	case year >= 2000 && year <= 2099:
		year -= 2000
	default:
		return fmt.Errorf("year %d out of range", s.Year)
	}

	weekday := byte(s.Time(time.UTC).Weekday()) + 1 // chip counts 1..7

	regs := []byte{
		intToBCD(s.Second),
		intToBCD(s.Minute),
		hourToReg(s.Hour, use12Hour),
		weekday,
		intToBCD(s.Day),
		intToBCD(int(s.Month)) | century,
		intToBCD(year),
	}
	if err := d.writeReg(regSeconds, regs...); err != nil {
		return fmt.Errorf("write time registers: %w", err)
	}

	st, err := d.readReg(regStatus)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if err := d.writeReg(regStatus, st&^byte(stOSF)); err != nil {
		return fmt.Errorf("clear oscillator flag: %w", err)
	}
	return nil
}

// ReadAlarm returns a slot's stored schedule and enable state. Hourly
// repeats are recovered from the match masks; Never is software state and
// reads back as Daily.
func (d *DS3231) ReadAlarm(id int) (Alarm, error) {
	a := Alarm{ID: id}
	switch id {
	case Alarm1:
		var raw [4]byte
		if err := d.readRegs(regAlarm1, raw[:]); err != nil {
			return a, fmt.Errorf("read alarm 1 registers: %w", err)
		}
		a.Second = bcdToInt(raw[0] & 0x7F)
		a.Minute = bcdToInt(raw[1] & 0x7F)
		a.Hour = hourFromReg(raw[2] & 0x7F)
		a.Repeat = repeatFromHourMask(raw[2]&alarmMask != 0)
	case Alarm2:
		var raw [3]byte
		if err := d.readRegs(regAlarm2, raw[:]); err != nil {
			return a, fmt.Errorf("read alarm 2 registers: %w", err)
		}
		a.Minute = bcdToInt(raw[0] & 0x7F)
		a.Hour = hourFromReg(raw[1] & 0x7F)
		a.Repeat = repeatFromHourMask(raw[1]&alarmMask != 0)
	default:
		return a, ErrBadAlarmID
	}

	ctl, err := d.readReg(regControl)
	if err != nil {
		return a, fmt.Errorf("read control: %w", err)
	}
	bit, _ := aieBit(id)
	a.Enabled = ctl&bit != 0
	return a, nil
}

// WriteAlarm programs a slot. The day-of-month match is always masked, so
// Daily (and Never, which the chip cannot express) matches the time of day
// and Hourly additionally masks the hour. Any pending match flag for the
// slot is cleared so a stale match cannot ring right after programming.
func (d *DS3231) WriteAlarm(a Alarm) error {
	day := byte(alarmMask | intToBCD(1))
	switch a.ID {
	case Alarm1:
		hr := intToBCD(a.Hour)
		if a.Repeat == Hourly {
			hr |= alarmMask
		}
		regs := []byte{intToBCD(a.Second), intToBCD(a.Minute), hr, day}
		if err := d.writeReg(regAlarm1, regs...); err != nil {
			return fmt.Errorf("write alarm 1 registers: %w", err)
		}
	case Alarm2:
		hr := intToBCD(a.Hour)
		if a.Repeat == Hourly {
			hr |= alarmMask
		}
		regs := []byte{intToBCD(a.Minute), hr, day}
		if err := d.writeReg(regAlarm2, regs...); err != nil {
			return fmt.Errorf("write alarm 2 registers: %w", err)
		}
	default:
		return ErrBadAlarmID
	}

	if err := d.SilenceAlarm(a.ID); err != nil {
		return err
	}
	return d.SetAlarmEnabled(a.ID, a.Enabled)
}

// SetAlarmEnabled flips a slot's match interrupt in the control register.
func (d *DS3231) SetAlarmEnabled(id int, enabled bool) error {
	bit, err := aieBit(id)
	if err != nil {
		return err
	}
	ctl, err := d.readReg(regControl)
	if err != nil {
		return fmt.Errorf("read control: %w", err)
	}
	if enabled {
		ctl |= bit
	} else {
		ctl &^= bit
	}
	if err := d.writeReg(regControl, ctl); err != nil {
		return fmt.Errorf("write control: %w", err)
	}
	return nil
}

// AlarmFired reports a slot's match flag. The flag sets whenever the time
// matches, enabled or not, and stays set until silenced.
func (d *DS3231) AlarmFired(id int) (bool, error) {
	bit, err := afBit(id)
	if err != nil {
		return false, err
	}
	st, err := d.readReg(regStatus)
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return st&bit != 0, nil
}

// SilenceAlarm clears a slot's match flag.
func (d *DS3231) SilenceAlarm(id int) error {
	bit, err := afBit(id)
	if err != nil {
		return err
	}
	st, err := d.readReg(regStatus)
	if err != nil {
		return fmt.Errorf("read status: %w", err)
	}
	if err := d.writeReg(regStatus, st&^bit); err != nil {
		return fmt.Errorf("clear match flag: %w", err)
	}
	return nil
}

// Temperature returns the die temperature in degrees Celsius, resolution
// 0.25.
func (d *DS3231) Temperature() (float64, error) {
	var raw [2]byte
	if err := d.readRegs(regTemp, raw[:]); err != nil {
		return 0, fmt.Errorf("read temperature: %w", err)
	}
	return float64(int8(raw[0])) + float64(raw[1]>>6)*0.25, nil
}

// Close releases the I2C bus if this driver opened it.
func (d *DS3231) Close() error {
	if d.bus == nil {
		return nil
	}
	if err := d.bus.Close(); err != nil {
		return fmt.Errorf("close i2c bus: %w", err)
	}
	return nil
}

func (d *DS3231) readReg(reg byte) (byte, error) {
	var buf [1]byte
	if err := d.dev.Tx([]byte{reg}, buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (d *DS3231) readRegs(reg byte, buf []byte) error {
	return d.dev.Tx([]byte{reg}, buf)
}

func (d *DS3231) writeReg(reg byte, vals ...byte) error {
	return d.dev.Tx(append([]byte{reg}, vals...), nil)
}

func aieBit(id int) (byte, error) {
	switch id {
	case Alarm1:
		return ctlA1IE, nil
	case Alarm2:
		return ctlA2IE, nil
	}
	return 0, ErrBadAlarmID
}

func afBit(id int) (byte, error) {
	switch id {
	case Alarm1:
		return stA1F, nil
	case Alarm2:
		return stA2F, nil
	}
	return 0, ErrBadAlarmID
}

func repeatFromHourMask(hourMasked bool) Repeat {
	if hourMasked {
		return Hourly
	}
	return Daily
}

// hourFromReg decodes the hour register in either format.
func hourFromReg(reg byte) int {
	if reg&hr12Mode != 0 {
		h := bcdToInt(reg & 0x1F)
		if h == 12 {
			h = 0
		}
		if reg&hrPM != 0 {
			h += 12
		}
		return h
	}
	return bcdToInt(reg & 0x3F)
}

// hourToReg encodes a 24-hour value in the requested register format.
func hourToReg(hour int, use12 bool) byte {
	if !use12 {
		return intToBCD(hour)
	}
	reg := byte(hr12Mode)
	if hour >= 12 {
		reg |= hrPM
	}
	h := hour % 12
	if h == 0 {
		h = 12
	}
	return reg | intToBCD(h)
}

func intToBCD(v int) byte {
	return byte(v/10<<4 | v%10)
}

func bcdToInt(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}
