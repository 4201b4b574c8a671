package hym8563

import "time"

// CountdownLimit is the first delay, in seconds, that no longer fits the 8-bit
// countdown timer. Shorter delays use the timer, everything else the calendar alarm.
const CountdownLimit = 256

// AlarmRequest asks for a wake-up at Target. A request with Enabled unset still
// programs the calendar alarm registers but leaves the interrupt off.
type AlarmRequest struct {
	Target  WallClock
	Enabled bool
}

// ModeKind tells which wake mechanism an AlarmMode uses.
type ModeKind uint8

const (
	ModeDisabled ModeKind = iota
	ModeCountdown
	ModeCalendar
)

func (k ModeKind) String() string {
	switch k {
	case ModeCountdown:
		return "countdown"
	case ModeCalendar:
		return "calendar"
	default:
		return "disabled"
	}
}

// AlarmField is one calendar alarm register. A field with Match unset is
// "don't care": the chip ignores it when comparing against the clock.
type AlarmField struct {
	Value uint8
	Match bool
}

func (f AlarmField) reg() byte {
	v := decToBcd(int(f.Value)) & 0x7F
	if !f.Match {
		v |= alarmDisable
	}
	return v
}

func decodeAlarmField(b byte) AlarmField {
	return AlarmField{
		Value: uint8(bcdToDec(b & 0x7F)),
		Match: b&alarmDisable == 0,
	}
}

// CalendarAlarm is the content of the four alarm registers.
type CalendarAlarm struct {
	Minute  AlarmField
	Hour    AlarmField
	Day     AlarmField
	Weekday AlarmField
}

// Registers encodes c in register order: minute, hour, day, weekday.
func (c CalendarAlarm) Registers() [alarmLen]byte {
	return [alarmLen]byte{c.Minute.reg(), c.Hour.reg(), c.Day.reg(), c.Weekday.reg()}
}

// DecodeAlarm is the inverse of CalendarAlarm.Registers.
func DecodeAlarm(regs [alarmLen]byte) CalendarAlarm {
	return CalendarAlarm{
		Minute:  decodeAlarmField(regs[0]),
		Hour:    decodeAlarmField(regs[1]),
		Day:     decodeAlarmField(regs[2]),
		Weekday: decodeAlarmField(regs[3]),
	}
}

// AlarmMode is what the chip gets programmed with for a request. Only the
// fields belonging to Kind are meaningful.
type AlarmMode struct {
	Kind ModeKind
	// Seconds is the countdown length, 1..255.
	Seconds  uint8
	Calendar CalendarAlarm
	// Armed is set when the interrupt for the selected mechanism is enabled.
	Armed bool
}

// Schedule picks the wake mechanism for req given the current chip time.
//
// A target 1..255 seconds ahead uses the countdown timer. Anything else,
// including a target that is already due or in the past, uses the calendar
// alarm. The calendar alarm has no seconds register, so the target is reduced
// to its minute; a past-due target therefore fires on the next time the
// minute, hour, day and weekday match, not immediately.
func Schedule(req AlarmRequest, now WallClock) AlarmMode {
	diff := req.Target.Unix() - now.Unix()
	if diff > 0 && diff < CountdownLimit {
		if !req.Enabled {
			return AlarmMode{Kind: ModeDisabled}
		}
		return AlarmMode{
			Kind:    ModeCountdown,
			Seconds: countdownSeconds(diff),
			Armed:   true,
		}
	}
	return AlarmMode{
		Kind:     ModeCalendar,
		Calendar: calendarFor(calendarTarget(req.Target)),
		Armed:    req.Enabled,
	}
}

func countdownSeconds(diff int64) uint8 {
	if diff >= CountdownLimit-1 {
		return CountdownLimit - 1
	}
	if diff <= 1 {
		return 1
	}
	return uint8(diff)
}

// calendarTarget normalises t through an epoch round-trip when it carries
// seconds, then drops them.
func calendarTarget(t WallClock) WallClock {
	if t.Second != 0 {
		t = FromUnix(t.Unix())
	}
	t.Second = 0
	return t
}

// calendarFor matches all four fields. Minute and hour outside their range
// become 0 and the day is clamped to the month, as for the time registers.
func calendarFor(t WallClock) CalendarAlarm {
	return CalendarAlarm{
		Minute:  AlarmField{Value: uint8(zeroUnder(t.Minute, 60)), Match: true},
		Hour:    AlarmField{Value: uint8(zeroUnder(t.Hour, 24)), Match: true},
		Day:     AlarmField{Value: uint8(clampDay(t.Day, t.Month, t.Year)), Match: true},
		Weekday: AlarmField{Value: uint8(t.Weekday), Match: true},
	}
}

// SetAlarm reads the chip time, picks a mechanism with Schedule and programs
// it. Whatever was armed before is disarmed first. On error the request is
// not recorded and the chip state should be considered unknown.
func (d *Device) SetAlarm(req AlarmRequest) (AlarmMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now, err := d.readTime()
	if err != nil {
		return AlarmMode{}, err
	}
	diff := req.Target.Unix() - now.Unix()
	mode := Schedule(req, now)
	d.logf("hym8563: alarm %s enabled=%t, %d s from now, using %s", req.Target, req.Enabled, diff, mode.Kind)

	if err := d.program(mode); err != nil {
		return AlarmMode{}, err
	}

	if mode.Kind == ModeCalendar {
		req.Target = calendarTarget(req.Target)
		if diff <= 0 {
			d.logf("hym8563: alarm %s is not in the future, it fires on the next match", req.Target)
		}
	}
	d.alarm = req
	return mode, nil
}

// SetAlarmUnix arms an enabled alarm for an absolute time in seconds since the Unix epoch.
func (d *Device) SetAlarmUnix(sec int64) (AlarmMode, error) {
	return d.SetAlarm(AlarmRequest{Target: FromUnix(sec), Enabled: true})
}

// SetAlarmAt arms an enabled alarm for t.
func (d *Device) SetAlarmAt(t time.Time) (AlarmMode, error) {
	return d.SetAlarmUnix(t.Unix())
}

// program disarms both mechanisms and then writes mode.
func (d *Device) program(mode AlarmMode) error {
	if err := d.setTimerEnabled(false); err != nil {
		return err
	}
	if err := d.clearAllFlagsAndEnables(); err != nil {
		return err
	}

	switch mode.Kind {
	case ModeCountdown:
		if err := d.write8(TimerCount, mode.Seconds); err != nil {
			return err
		}
		return d.setTimerEnabled(true)
	case ModeCalendar:
		regs := mode.Calendar.Registers()
		if err := d.writeRegister(Alarm, regs[:]...); err != nil {
			return err
		}
		if mode.Armed {
			_, err := d.modify(Control2, uint8(AIE), 0)
			return err
		}
	}
	return nil
}

// CancelAlarm stops the countdown timer, clears both flags and both interrupt
// enables. The calendar alarm registers keep their last value.
func (d *Device) CancelAlarm() (AlarmMode, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.logf("hym8563: cancel alarm")
	if err := d.setTimerEnabled(false); err != nil {
		return AlarmMode{}, err
	}
	if err := d.clearAllFlagsAndEnables(); err != nil {
		return AlarmMode{}, err
	}
	d.alarm.Enabled = false
	return AlarmMode{Kind: ModeDisabled}, nil
}

// ReadAlarm returns the last request accepted by SetAlarm, with the target as
// it was programmed. It does not touch the bus.
func (d *Device) ReadAlarm() (AlarmRequest, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alarm, nil
}

// ReadCalendarAlarm reads back the alarm registers.
func (d *Device) ReadCalendarAlarm() (CalendarAlarm, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var buf [alarmLen]byte
	if err := d.readRegister(Alarm, buf[:]); err != nil {
		return CalendarAlarm{}, err
	}
	return DecodeAlarm(buf), nil
}

// EnableAlarmIRQ sets or clears the calendar alarm interrupt enable.
func (d *Device) EnableAlarmIRQ(on bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if on {
		_, err = d.modify(Control2, uint8(AIE), 0)
	} else {
		_, err = d.modify(Control2, 0, uint8(AIE))
	}
	if err != nil {
		return err
	}
	d.alarm.Enabled = on
	return nil
}

// Shutdown leaves both interrupt enables set when an alarm is pending, so the
// chip can wake the system after power-off.
func (d *Device) Shutdown() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.alarm.Enabled {
		return nil
	}
	d.logf("hym8563: shutdown with alarm %s armed", d.alarm.Target)
	_, err := d.modify(Control2, uint8(AIE|TIE), 0)
	return err
}
