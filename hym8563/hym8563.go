// Package hym8563 implements a driver for the HYM8563 Real-Time Clock (RTC), a PCF8563-compatible part. It covers
// reading and setting the time, a wake-up alarm that uses either the countdown timer (short delays) or the calendar
// alarm (everything else), the interrupt flag handling that goes with it, and the CLKOUT pin.
//
// All register access on a Device is serialised by a single mutex, so one Device may be shared between the goroutine
// servicing wake events and any number of callers.
//
// Datasheet: https://www.nxp.com/docs/en/data-sheet/PCF8563.pdf
package hym8563

import (
	"sync"
	"time"

	"tinygo.org/x/drivers"
)

// RTC is the clock surface a host framework needs from the chip.
type RTC interface {
	ReadTime() (WallClock, error)
	SetTime(WallClock) error
	ReadAlarm() (AlarmRequest, error)
	SetAlarm(AlarmRequest) (AlarmMode, error)
	EnableAlarmIRQ(on bool) error
}

var _ RTC = (*Device)(nil)

// Logger receives diagnostic messages. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Plausible years for a clock that has kept time. Anything outside is treated
// as garbage left behind by a power loss.
const (
	minValidYear = 1970
	maxValidYear = 2037
)

// DefaultFallbackTime is written by Configure when the chip holds an implausible time.
var DefaultFallbackTime = WallClock{
	Year:    2011,
	Month:   time.January,
	Day:     1,
	Weekday: time.Saturday,
	Hour:    12,
}

type Device struct {
	bus     drivers.I2C
	Address uint16
	// Log is optional.
	Log Logger

	mu sync.Mutex
	// last accepted alarm, reported back by ReadAlarm
	alarm AlarmRequest

	w [1 + timeLen]byte
}

type Config struct {
	Address uint16
	// FallbackTime replaces an implausible time during Configure. Zero means DefaultFallbackTime.
	FallbackTime WallClock
	Log          Logger
}

// New creates a new driver on the specified preconfigured I2C bus. The chip is not touched until Configure is called.
func New(bus drivers.I2C) *Device {
	return &Device{
		bus:     bus,
		Address: Address,
	}
}

// Configure runs the attach-time bring-up: control registers are reset, clock output is disabled, both interrupt
// enables are set, latched flags are cleared and the countdown timer is stopped. If the chip lost its time (the
// oscillator stopped, or the stored date is outside 1970..2037 or not a valid date) the fallback time is written.
func (d *Device) Configure(c Config) error {
	if c.Address != 0 {
		d.Address = c.Address
	}
	if c.Log != nil {
		d.Log = c.Log
	}
	fallback := c.FallbackTime
	if fallback == (WallClock{}) {
		fallback = DefaultFallbackTime
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.write8(Control1, 0); err != nil {
		return err
	}
	if err := d.write8(ClkOut, 0); err != nil {
		return err
	}
	if err := d.write8(Control2, uint8(AIE|TIE)); err != nil {
		return err
	}
	if err := d.clearLatched(); err != nil {
		return err
	}
	// stop the counter and drop TIE until an alarm asks for it
	if err := d.setTimerEnabled(false); err != nil {
		return err
	}

	sec, err := d.read8(Time)
	if err != nil {
		return err
	}
	if sec&integrityBit != 0 {
		d.logf("hym8563: clock/calendar information is no longer guaranteed, setting %s", fallback)
		if err := d.setTime(fallback); err != nil {
			return err
		}
	}

	now, err := d.readTime()
	if err != nil {
		return err
	}
	if now.Year < minValidYear || now.Year > maxValidYear || !now.Valid() {
		d.logf("hym8563: implausible time %s, setting %s", now, fallback)
		return d.setTime(fallback)
	}
	return nil
}

// LostPower reports whether the oscillator stopped since the time was last set.
func (d *Device) LostPower() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.read8(Time)
	if err != nil {
		return false, err
	}
	return v&integrityBit != 0, nil
}

// ReadTime reads the time registers.
func (d *Device) ReadTime() (WallClock, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readTime()
}

// SetTime writes w to the time registers, clamping fields the chip cannot hold (see EncodeTime).
func (d *Device) SetTime(w WallClock) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.setTime(w)
}

// Now returns the current time as a UTC time.Time.
func (d *Device) Now() (time.Time, error) {
	w, err := d.ReadTime()
	if err != nil {
		return time.Time{}, err
	}
	return w.Time(), nil
}

// Set sets the clock to t, converted to UTC.
func (d *Device) Set(t time.Time) error {
	return d.SetTime(FromTime(t))
}

func (d *Device) readTime() (WallClock, error) {
	var buf [timeLen]byte
	if err := d.readRegister(Time, buf[:]); err != nil {
		return WallClock{}, err
	}
	return DecodeTime(buf), nil
}

func (d *Device) setTime(w WallClock) error {
	d.logf("hym8563: set time %s", w)
	regs := EncodeTime(w)
	return d.writeRegister(Time, regs[:]...)
}

func (d *Device) logf(format string, args ...any) {
	if d.Log != nil {
		d.Log.Printf(format, args...)
	}
}

// Register access. Callers hold d.mu; the scratch buffer is shared.

func (d *Device) readRegister(reg uint8, buf []byte) error {
	d.w[0] = reg
	if err := d.bus.Tx(d.Address, d.w[:1], buf); err != nil {
		return &TransportError{Op: "read", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) writeRegister(reg uint8, data ...byte) error {
	d.w[0] = reg
	n := copy(d.w[1:], data)
	if err := d.bus.Tx(d.Address, d.w[:1+n], nil); err != nil {
		return &TransportError{Op: "write", Reg: reg, Err: err}
	}
	return nil
}

func (d *Device) read8(reg uint8) (uint8, error) {
	buf := [1]byte{}
	err := d.readRegister(reg, buf[:])
	return buf[0], err
}

func (d *Device) write8(reg, val uint8) error {
	return d.writeRegister(reg, val)
}

// modify is a read-modify-write of a single register: bits in clear are
// dropped, then bits in set are added. It returns the value written.
func (d *Device) modify(reg, set, clear uint8) (uint8, error) {
	current, err := d.read8(reg)
	if err != nil {
		return 0, err
	}
	v := current&^clear | set
	return v, d.write8(reg, v)
}
