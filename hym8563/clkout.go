package hym8563

// Frequencies selectable on the CLKOUT pin, indexed by FD1:FD0.
var clkOutRates = [4]uint32{32768, 1024, 32, 1}

// RoundClockOutRate returns the highest supported CLKOUT frequency that does
// not exceed hz, or 0 if hz is below 1 Hz.
func RoundClockOutRate(hz uint32) uint32 {
	for _, r := range clkOutRates {
		if r <= hz {
			return r
		}
	}
	return 0
}

// ClockOutRate returns the selected CLKOUT frequency in Hz, whether or not the output is enabled.
func (d *Device) ClockOutRate() (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.read8(ClkOut)
	if err != nil {
		return 0, err
	}
	return clkOutRates[v&clkOutMask], nil
}

// SetClockOutRate selects the frequency RoundClockOutRate picks for hz and
// returns it. The enable bit is left alone.
func (d *Device) SetClockOutRate(hz uint32) (uint32, error) {
	rate := RoundClockOutRate(hz)
	if rate == 0 {
		return 0, ErrInvalidRate
	}
	var sel uint8
	for i, r := range clkOutRates {
		if r == rate {
			sel = uint8(i)
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.modify(ClkOut, sel, clkOutMask); err != nil {
		return 0, err
	}
	return rate, nil
}

// PrepareClockOut enables the CLKOUT pin.
func (d *Device) PrepareClockOut() error {
	return d.clockOutControl(true)
}

// UnprepareClockOut disables the CLKOUT pin.
func (d *Device) UnprepareClockOut() error {
	return d.clockOutControl(false)
}

// ClockOutPrepared reports whether the CLKOUT pin is enabled.
func (d *Device) ClockOutPrepared() (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	v, err := d.read8(ClkOut)
	return v&clkOutEnable != 0, err
}

func (d *Device) clockOutControl(enable bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var err error
	if enable {
		_, err = d.modify(ClkOut, clkOutEnable, 0)
	} else {
		_, err = d.modify(ClkOut, 0, clkOutEnable)
	}
	return err
}
