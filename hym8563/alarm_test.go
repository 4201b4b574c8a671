package hym8563

import (
	"errors"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/ajanata/hym8563/hym8563/hym8563test"
)

var errBus = errors.New("nack")

var newYear2024 = FromTime(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

// newTestDevice returns a device whose clock reads now.
func newTestDevice(now WallClock) (*Device, *hym8563test.Bus) {
	bus := hym8563test.NewBus()
	regs := EncodeTime(now)
	bus.SetReg(Time, regs[:]...)
	return New(bus), bus
}

func after(w WallClock, seconds int64) WallClock {
	return FromUnix(w.Unix() + seconds)
}

func matchAll(minute, hour, day uint8, weekday time.Weekday) CalendarAlarm {
	return CalendarAlarm{
		Minute:  AlarmField{Value: minute, Match: true},
		Hour:    AlarmField{Value: hour, Match: true},
		Day:     AlarmField{Value: day, Match: true},
		Weekday: AlarmField{Value: uint8(weekday), Match: true},
	}
}

func TestScheduleModeSelection(t *testing.T) {
	now := newYear2024
	tests := []struct {
		name string
		diff int64
		want AlarmMode
	}{
		{"due now", 0, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(0, 0, 1, time.Monday), Armed: true}},
		{"one second", 1, AlarmMode{Kind: ModeCountdown, Seconds: 1, Armed: true}},
		{"ten seconds", 10, AlarmMode{Kind: ModeCountdown, Seconds: 10, Armed: true}},
		{"two minutes", 120, AlarmMode{Kind: ModeCountdown, Seconds: 120, Armed: true}},
		{"timer limit", 255, AlarmMode{Kind: ModeCountdown, Seconds: 255, Armed: true}},
		{"past timer limit", 256, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(4, 0, 1, time.Monday), Armed: true}},
		{"five minutes", 300, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(5, 0, 1, time.Monday), Armed: true}},
		// past due is still a calendar alarm; it fires when all four fields next match
		{"five seconds ago", -5, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(59, 23, 31, time.Sunday), Armed: true}},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := qt.New(t)
			got := Schedule(AlarmRequest{Target: after(now, test.diff), Enabled: true}, now)
			c.Assert(got, qt.Equals, test.want)
		})
	}
}

func TestScheduleDisabledRequest(t *testing.T) {
	c := qt.New(t)
	now := newYear2024

	got := Schedule(AlarmRequest{Target: after(now, 30)}, now)
	c.Assert(got, qt.Equals, AlarmMode{Kind: ModeDisabled})

	got = Schedule(AlarmRequest{Target: after(now, 3600)}, now)
	c.Assert(got, qt.Equals, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(0, 1, 1, time.Monday)})
}

func TestScheduleEndToEnd(t *testing.T) {
	c := qt.New(t)
	now := newYear2024

	got := Schedule(AlarmRequest{Target: FromTime(time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)), Enabled: true}, now)
	c.Assert(got, qt.Equals, AlarmMode{Kind: ModeCountdown, Seconds: 10, Armed: true})

	got = Schedule(AlarmRequest{Target: FromTime(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC)), Enabled: true}, now)
	c.Assert(got, qt.Equals, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(30, 8, 1, time.Sunday), Armed: true})
}

func TestScheduleNormalisesTargetWithSeconds(t *testing.T) {
	c := qt.New(t)
	// 10:59:90 with a bogus weekday is 11:00:30 on a Monday
	target := WallClock{Year: 2024, Month: time.March, Day: 4, Weekday: time.Friday, Hour: 10, Minute: 59, Second: 90}
	got := Schedule(AlarmRequest{Target: target, Enabled: true}, newYear2024)
	c.Assert(got.Calendar, qt.Equals, matchAll(0, 11, 4, time.Monday))

	// without seconds the fields are taken as given and clamped
	target = WallClock{Year: 2024, Month: time.April, Day: 31, Weekday: time.Tuesday, Hour: 24, Minute: 75}
	got = Schedule(AlarmRequest{Target: target, Enabled: true}, newYear2024)
	c.Assert(got.Calendar, qt.Equals, matchAll(0, 0, 30, time.Tuesday))
}

func TestCalendarAlarmRegisters(t *testing.T) {
	c := qt.New(t)

	cal := matchAll(30, 8, 1, time.Sunday)
	c.Assert(cal.Registers(), qt.Equals, [alarmLen]byte{0x30, 0x08, 0x01, 0x00})

	cal.Weekday.Match = false
	cal.Day = AlarmField{Value: 31}
	regs := cal.Registers()
	c.Assert(regs, qt.Equals, [alarmLen]byte{0x30, 0x08, 0x80 | 0x31, 0x80})
	c.Assert(DecodeAlarm(regs), qt.Equals, cal)
}

func TestSetAlarmCountdown(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	// a calendar alarm was armed before
	bus.SetReg(Control2, uint8(AIE))

	mode, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 10), Enabled: true})
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, AlarmMode{Kind: ModeCountdown, Seconds: 10, Armed: true})

	c.Assert(bus.Reg(TimerCount), qt.Equals, uint8(10))
	c.Assert(bus.Reg(TimerControl), qt.Equals, uint8(timerOn))
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, TIE)

	// both mechanisms are disarmed before the countdown is written
	c.Assert(bus.Writes(), qt.DeepEquals, []hym8563test.Write{
		{Reg: Control2, Data: []byte{uint8(AIE)}},
		{Reg: TimerControl, Data: []byte{timerOff}},
		{Reg: Control2, Data: []byte{0}},
		{Reg: TimerCount, Data: []byte{10}},
		{Reg: Control2, Data: []byte{uint8(TIE)}},
		{Reg: TimerControl, Data: []byte{timerOn}},
	})

	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, AlarmRequest{Target: after(newYear2024, 10), Enabled: true})
}

func TestSetAlarmCalendar(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	// a countdown was running before
	bus.SetReg(Control2, uint8(TIE))
	bus.SetReg(TimerControl, timerOn)

	target := FromTime(time.Date(2025, 6, 1, 8, 30, 0, 0, time.UTC))
	mode, err := d.SetAlarm(AlarmRequest{Target: target, Enabled: true})
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, AlarmMode{Kind: ModeCalendar, Calendar: matchAll(30, 8, 1, time.Sunday), Armed: true})

	var alarm [alarmLen]byte
	for i := range alarm {
		alarm[i] = bus.Reg(Alarm + uint8(i))
	}
	c.Assert(alarm, qt.Equals, [alarmLen]byte{0x30, 0x08, 0x01, 0x00})
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, AIE)
	c.Assert(bus.Reg(TimerControl), qt.Equals, uint8(timerOff))

	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, AlarmRequest{Target: target, Enabled: true})

	cal, err := d.ReadCalendarAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(cal, qt.Equals, mode.Calendar)
}

func TestSetAlarmCalendarDropsSeconds(t *testing.T) {
	c := qt.New(t)
	d, _ := newTestDevice(newYear2024)

	target := FromTime(time.Date(2024, 2, 10, 6, 15, 45, 0, time.UTC))
	_, err := d.SetAlarm(AlarmRequest{Target: target, Enabled: true})
	c.Assert(err, qt.IsNil)

	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Target, qt.Equals, FromTime(time.Date(2024, 2, 10, 6, 15, 0, 0, time.UTC)))
}

func TestSetAlarmCalendarDisabledLeavesInterruptOff(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	bus.SetReg(Control2, uint8(AIE))

	mode, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 86400)})
	c.Assert(err, qt.IsNil)
	c.Assert(mode.Kind, qt.Equals, ModeCalendar)
	c.Assert(mode.Armed, qt.IsFalse)
	c.Assert(bus.Reg(Control2), qt.Equals, uint8(0))
	c.Assert(bus.Reg(Alarm+2), qt.Equals, uint8(0x02))
}

func TestSetAlarmCountdownDisabledStopsTimer(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	bus.SetReg(Control2, uint8(TIE))
	bus.SetReg(TimerControl, timerOn)

	mode, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 100)})
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, AlarmMode{Kind: ModeDisabled})
	c.Assert(bus.Reg(Control2), qt.Equals, uint8(0))
	c.Assert(bus.Reg(TimerControl), qt.Equals, uint8(timerOff))
	c.Assert(bus.WritesTo(TimerCount), qt.HasLen, 0)
}

// A target in the past is armed as a calendar alarm instead of being rejected
// or fired at once; it goes off the next time the fields match.
func TestSetAlarmPastDueArmsCalendarAlarm(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)

	mode, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, -5), Enabled: true})
	c.Assert(err, qt.IsNil)
	c.Assert(mode.Kind, qt.Equals, ModeCalendar)
	c.Assert(mode.Armed, qt.IsTrue)
	c.Assert(mode.Calendar, qt.Equals, matchAll(59, 23, 31, time.Sunday))
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, AIE)

	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Target, qt.Equals, FromTime(time.Date(2023, 12, 31, 23, 59, 0, 0, time.UTC)))
}

func TestSetAlarmModeExclusivity(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)

	for i := 0; i < 3; i++ {
		_, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 20), Enabled: true})
		c.Assert(err, qt.IsNil)
		ctl := Control2Bits(bus.Reg(Control2))
		c.Assert(ctl.Has(TIE), qt.IsTrue)
		c.Assert(ctl.Has(AIE), qt.IsFalse)

		_, err = d.SetAlarm(AlarmRequest{Target: after(newYear2024, 7200), Enabled: true})
		c.Assert(err, qt.IsNil)
		ctl = Control2Bits(bus.Reg(Control2))
		c.Assert(ctl.Has(TIE), qt.IsFalse)
		c.Assert(ctl.Has(AIE), qt.IsTrue)
		c.Assert(bus.Reg(TimerControl)&timerEnable, qt.Equals, uint8(0))
	}
}

func TestSetAlarmTransportFailure(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	first := AlarmRequest{Target: after(newYear2024, 3600), Enabled: true}
	_, err := d.SetAlarm(first)
	c.Assert(err, qt.IsNil)

	bus.FailWrite(Alarm, errBus)
	_, err = d.SetAlarm(AlarmRequest{Target: after(newYear2024, 7200), Enabled: true})
	c.Assert(err, qt.ErrorIs, ErrTransport)
	c.Assert(err, qt.ErrorIs, errBus)

	var te *TransportError
	c.Assert(errors.As(err, &te), qt.IsTrue)
	c.Assert(te.Op, qt.Equals, "write")
	c.Assert(te.Reg, qt.Equals, uint8(Alarm))

	// the failed request was not recorded
	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, AlarmRequest{Target: first.Target, Enabled: true})
}

func TestSetAlarmTimeReadFailure(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	bus.FailRead(Time, errBus)

	_, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 10), Enabled: true})
	c.Assert(err, qt.ErrorIs, errBus)
	c.Assert(bus.Writes(), qt.HasLen, 0)
}

func TestSetAlarmUnix(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)

	mode, err := d.SetAlarmUnix(newYear2024.Unix() + 42)
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, AlarmMode{Kind: ModeCountdown, Seconds: 42, Armed: true})
	c.Assert(bus.Reg(TimerCount), qt.Equals, uint8(42))

	mode, err = d.SetAlarmAt(time.Date(2024, 1, 2, 6, 0, 0, 0, time.UTC))
	c.Assert(err, qt.IsNil)
	c.Assert(mode.Calendar, qt.Equals, matchAll(0, 6, 2, time.Tuesday))
}

func TestCancelAlarm(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	_, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 30), Enabled: true})
	c.Assert(err, qt.IsNil)
	bus.Latch(uint8(AF | TF))

	mode, err := d.CancelAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(mode, qt.Equals, AlarmMode{Kind: ModeDisabled})
	c.Assert(bus.Reg(Control2), qt.Equals, uint8(0))
	c.Assert(bus.Reg(TimerControl), qt.Equals, uint8(timerOff))

	got, err := d.ReadAlarm()
	c.Assert(err, qt.IsNil)
	c.Assert(got.Enabled, qt.IsFalse)
	c.Assert(got.Target, qt.Equals, after(newYear2024, 30))
}

func TestCancelAlarmTransportFailure(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	bus.Fail(errBus)

	_, err := d.CancelAlarm()
	c.Assert(err, qt.ErrorIs, ErrTransport)
}

func TestEnableAlarmIRQ(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)
	bus.SetReg(Control2, uint8(TIE))

	c.Assert(d.EnableAlarmIRQ(true), qt.IsNil)
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, TIE|AIE)
	got, _ := d.ReadAlarm()
	c.Assert(got.Enabled, qt.IsTrue)

	c.Assert(d.EnableAlarmIRQ(false), qt.IsNil)
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, TIE)
	got, _ = d.ReadAlarm()
	c.Assert(got.Enabled, qt.IsFalse)
}

func TestShutdown(t *testing.T) {
	c := qt.New(t)
	d, bus := newTestDevice(newYear2024)

	// nothing armed, nothing written
	c.Assert(d.Shutdown(), qt.IsNil)
	c.Assert(bus.Writes(), qt.HasLen, 0)

	_, err := d.SetAlarm(AlarmRequest{Target: after(newYear2024, 86400), Enabled: true})
	c.Assert(err, qt.IsNil)
	c.Assert(d.Shutdown(), qt.IsNil)
	c.Assert(Control2Bits(bus.Reg(Control2)), qt.Equals, AIE|TIE)
}

func TestModeKindString(t *testing.T) {
	c := qt.New(t)
	c.Assert(ModeDisabled.String(), qt.Equals, "disabled")
	c.Assert(ModeCountdown.String(), qt.Equals, "countdown")
	c.Assert(ModeCalendar.String(), qt.Equals, "calendar")
}
