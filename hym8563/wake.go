package hym8563

import (
	"context"
	"fmt"
	"time"
)

// WakeEvent is the result of servicing one wake notification.
type WakeEvent struct {
	// Flags is Control2 as found before the flags were cleared.
	Flags Control2Bits
	Err   error
}

// Alarm reports whether the calendar alarm fired.
func (e WakeEvent) Alarm() bool { return e.Flags.Has(AF) }

// Timer reports whether the countdown timer fired.
func (e WakeEvent) Timer() bool { return e.Flags.Has(TF) }

// HandleWake is the acknowledge path for the INT pin: the countdown timer is
// stopped (it is one-shot here) and AF/TF are cleared. A wake that latched
// either flag consumes the pending alarm, so ReadAlarm reports it disabled
// and Shutdown no longer re-arms the enables.
func (d *Device) HandleWake() (Control2Bits, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setTimerEnabled(false); err != nil {
		return 0, err
	}
	flags, err := d.acknowledge()
	if err != nil {
		return 0, err
	}
	if flags.Has(AF | TF) {
		d.alarm.Enabled = false
	}
	return flags, nil
}

// ServeWake calls HandleWake for every notification received on events and
// passes the outcome to fn, which may be nil. It returns when ctx is done or
// events is closed. Run it on its own goroutine; it competes for the same
// lock as every other Device method, so a wake racing with SetAlarm sees
// either the old or the new alarm, never a mix.
func (d *Device) ServeWake(ctx context.Context, events <-chan struct{}, fn func(WakeEvent)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			flags, err := d.HandleWake()
			if err != nil {
				d.logf("hym8563: wake: %v", err)
			}
			if fn != nil {
				fn(WakeEvent{Flags: flags, Err: err})
			}
		}
	}
}

// Notify queues a wake notification without blocking, so it is safe to call
// from an interrupt handler. Notifications arriving while one is queued are
// merged; a single acknowledge clears every latched flag anyway.
func Notify(events chan<- struct{}) {
	select {
	case events <- struct{}{}:
	default:
	}
}

// PollWake reads Control2 every interval and queues a notification on events
// whenever AF or TF is latched. It stands in for the INT pin on hosts where
// the pin is not wired to a GPIO. Read errors are logged and polling goes on.
// It returns ctx.Err() once ctx is done, or an error at once when interval is
// not positive.
func (d *Device) PollWake(ctx context.Context, interval time.Duration, events chan<- struct{}) error {
	if interval <= 0 {
		return fmt.Errorf("hym8563: poll interval %s must be positive", interval)
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			st, err := d.Status()
			if err != nil {
				d.logf("hym8563: poll: %v", err)
				continue
			}
			if st.Has(AF | TF) {
				Notify(events)
			}
		}
	}
}
