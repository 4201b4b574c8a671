package hym8563

import "strings"

// Control2Bits is the content of the Control2 register: interrupt enables and
// the latched alarm/timer flags. Flags stay set until written back as 0.
type Control2Bits uint8

func (b Control2Bits) Has(flag Control2Bits) bool { return b&flag != 0 }

func (b Control2Bits) String() string {
	if b == 0 {
		return "0"
	}
	names := [...]string{"TIE", "AIE", "TF", "AF", "TI_TP"}
	var parts []string
	for i, n := range names {
		if b&(1<<i) != 0 {
			parts = append(parts, n)
		}
	}
	return strings.Join(parts, "|")
}

// Status reads Control2.
func (d *Device) Status() (Control2Bits, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.read8(Control2)
	return Control2Bits(v), err
}

// Acknowledge clears the alarm and timer flags, leaving the enable bits alone.
// It returns Control2 as it was before the flags were cleared. Calling it with
// no flags latched is harmless.
func (d *Device) Acknowledge() (Control2Bits, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acknowledge()
}

func (d *Device) acknowledge() (Control2Bits, error) {
	v, err := d.read8(Control2)
	if err != nil {
		return 0, err
	}
	return Control2Bits(v), d.write8(Control2, v&^uint8(AF|TF))
}

// clearLatched clears AF and TF only when one of them is set.
func (d *Device) clearLatched() error {
	v, err := d.read8(Control2)
	if err != nil {
		return err
	}
	if Control2Bits(v).Has(AF | TF) {
		d.logf("hym8563: clearing latched flags %s", Control2Bits(v))
		return d.write8(Control2, v&^uint8(AF|TF))
	}
	return nil
}

// clearAllFlagsAndEnables zeroes Control2, dropping both interrupt enables
// and both flags.
func (d *Device) clearAllFlagsAndEnables() error {
	return d.write8(Control2, 0)
}

// setTimerEnabled switches the countdown timer together with its interrupt
// enable. The timer always counts at 1 Hz; when stopped the 1/60 Hz source is
// selected to save power.
func (d *Device) setTimerEnabled(on bool) error {
	if on {
		if _, err := d.modify(Control2, uint8(TIE), 0); err != nil {
			return err
		}
		return d.write8(TimerControl, timerOn)
	}
	if _, err := d.modify(Control2, 0, uint8(TIE)); err != nil {
		return err
	}
	return d.write8(TimerControl, timerOff)
}
