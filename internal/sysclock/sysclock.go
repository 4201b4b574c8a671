// Package sysclock copies time between the RTC and the system clock.
package sysclock

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupported is returned where the system clock cannot be set.
var ErrUnsupported = errors.New("sysclock: setting the system clock is not supported on this platform")

// Clock is the part of the RTC driver needed here.
type Clock interface {
	Now() (time.Time, error)
	Set(time.Time) error
}

// overridden in tests
var (
	setSystemTime = settimeofday
	now           = time.Now
)

// HCToSys sets the system clock from the RTC and returns the time set.
func HCToSys(c Clock) (time.Time, error) {
	t, err := c.Now()
	if err != nil {
		return time.Time{}, fmt.Errorf("read rtc: %w", err)
	}
	if err := setSystemTime(t); err != nil {
		return time.Time{}, fmt.Errorf("set system time: %w", err)
	}
	return t, nil
}

// SysToHC sets the RTC from the system clock, truncated to the second the
// chip can hold, and returns the time written.
func SysToHC(c Clock) (time.Time, error) {
	t := now().UTC().Truncate(time.Second)
	if err := c.Set(t); err != nil {
		return time.Time{}, fmt.Errorf("set rtc: %w", err)
	}
	return t, nil
}
