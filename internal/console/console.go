// Package console runs line-oriented text commands against an RTC. The same
// command set serves the interactive console and the MQTT command topic.
package console

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/shlex"

	"github.com/ajanata/hym8563/hym8563"
)

// ErrQuit is returned by Exec for "quit" and "exit".
var ErrQuit = errors.New("console: quit")

// Driver is the RTC surface the console drives. *hym8563.Device implements it.
type Driver interface {
	hym8563.RTC
	CancelAlarm() (hym8563.AlarmMode, error)
	ReadCalendarAlarm() (hym8563.CalendarAlarm, error)
	Status() (hym8563.Control2Bits, error)
	Acknowledge() (hym8563.Control2Bits, error)
	ClockOutRate() (uint32, error)
	SetClockOutRate(hz uint32) (uint32, error)
	PrepareClockOut() error
	UnprepareClockOut() error
	ClockOutPrepared() (bool, error)
}

var _ Driver = (*hym8563.Device)(nil)

type Console struct {
	dev Driver
	out io.Writer
	// Now supplies the time for "now" arguments.
	Now func() time.Time
}

func New(dev Driver, out io.Writer) *Console {
	return &Console{dev: dev, out: out, Now: time.Now}
}

// Run reads commands from r until EOF or quit. Command errors are printed and
// do not stop the loop.
func (c *Console) Run(r io.Reader, prompt string) error {
	scanner := bufio.NewScanner(r)
	for {
		if prompt != "" {
			fmt.Fprint(c.out, prompt)
		}
		if !scanner.Scan() {
			return scanner.Err()
		}
		err := c.Exec(scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(c.out, "error: %v\n", err)
		}
	}
}

// Exec runs a single command line. Blank lines and comments are ignored.
func (c *Console) Exec(line string) error {
	args, err := shlex.Split(line)
	if err != nil {
		return fmt.Errorf("%q: %w", line, err)
	}
	if len(args) == 0 {
		return nil
	}

	switch cmd, args := args[0], args[1:]; cmd {
	case "quit", "exit":
		return ErrQuit
	case "help", "?":
		fmt.Fprint(c.out, usage)
		return nil
	case "time":
		return c.time(args)
	case "alarm":
		return c.alarm(args)
	case "status":
		st, err := c.dev.Status()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "control2 %s\n", st)
		return nil
	case "ack":
		st, err := c.dev.Acknowledge()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "acknowledged %s\n", st)
		return nil
	case "clkout":
		return c.clkout(args)
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

const usage = `commands:
  time                       read the clock
  time set <rfc3339|unix|now>
  alarm                      show the last alarm request
  alarm regs                 read back the calendar alarm registers
  alarm set <rfc3339|unix|+seconds>
  alarm cancel
  alarm irq on|off
  status                     show control2
  ack                        clear the alarm and timer flags
  clkout                     show the clock output
  clkout rate <hz>
  clkout on|off
  quit
`

func (c *Console) time(args []string) error {
	switch {
	case len(args) == 0:
		w, err := c.dev.ReadTime()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "%s (unix %d)\n", w, w.Unix())
		return nil
	case args[0] == "set" && len(args) == 2:
		w, err := ParseTime(args[1], c.Now())
		if err != nil {
			return err
		}
		if err := c.dev.SetTime(w); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "time set to %s\n", w)
		return nil
	}
	return fmt.Errorf("usage: time [set <rfc3339|unix|now>]")
}

func (c *Console) alarm(args []string) error {
	if len(args) == 0 {
		req, err := c.dev.ReadAlarm()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "alarm %s enabled=%t\n", req.Target, req.Enabled)
		return nil
	}

	switch args[0] {
	case "regs":
		cal, err := c.dev.ReadCalendarAlarm()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "minute %s hour %s day %s weekday %s\n",
			field(cal.Minute), field(cal.Hour), field(cal.Day), field(cal.Weekday))
		return nil
	case "set":
		if len(args) != 2 {
			break
		}
		now, err := c.dev.ReadTime()
		if err != nil {
			return err
		}
		target, err := parseAlarmTarget(args[1], now)
		if err != nil {
			return err
		}
		mode, err := c.dev.SetAlarm(hym8563.AlarmRequest{Target: target, Enabled: true})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "alarm %s: %s\n", target, Describe(mode))
		return nil
	case "cancel":
		if _, err := c.dev.CancelAlarm(); err != nil {
			return err
		}
		fmt.Fprintln(c.out, "alarm cancelled")
		return nil
	case "irq":
		if len(args) != 2 {
			break
		}
		on, err := parseOnOff(args[1])
		if err != nil {
			return err
		}
		if err := c.dev.EnableAlarmIRQ(on); err != nil {
			return err
		}
		fmt.Fprintf(c.out, "alarm irq %s\n", args[1])
		return nil
	}
	return fmt.Errorf("usage: alarm [regs|set <time>|cancel|irq on|off]")
}

func (c *Console) clkout(args []string) error {
	switch {
	case len(args) == 0:
		rate, err := c.dev.ClockOutRate()
		if err != nil {
			return err
		}
		on, err := c.dev.ClockOutPrepared()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "clkout %d Hz enabled=%t\n", rate, on)
		return nil
	case args[0] == "rate":
		if len(args) != 2 {
			break
		}
		hz, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return fmt.Errorf("rate %q: %w", args[1], hym8563.ErrInvalidEncoding)
		}
		rate, err := c.dev.SetClockOutRate(uint32(hz))
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "clkout rate %d Hz\n", rate)
		return nil
	case len(args) == 1:
		on, err := parseOnOff(args[0])
		if err != nil {
			return err
		}
		if on {
			err = c.dev.PrepareClockOut()
		} else {
			err = c.dev.UnprepareClockOut()
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(c.out, "clkout %s\n", args[0])
		return nil
	}
	return fmt.Errorf("usage: clkout [rate <hz>|on|off]")
}

// Describe renders what an alarm request was programmed as.
func Describe(m hym8563.AlarmMode) string {
	switch m.Kind {
	case hym8563.ModeCountdown:
		return fmt.Sprintf("countdown %ds", m.Seconds)
	case hym8563.ModeCalendar:
		cal := m.Calendar
		return fmt.Sprintf("calendar %02d:%02d day %d weekday %d armed=%t",
			cal.Hour.Value, cal.Minute.Value, cal.Day.Value, cal.Weekday.Value, m.Armed)
	default:
		return "disabled"
	}
}

func field(f hym8563.AlarmField) string {
	if !f.Match {
		return "*"
	}
	return strconv.Itoa(int(f.Value))
}

// ParseTime accepts RFC 3339, seconds since the Unix epoch, or "now".
func ParseTime(s string, now time.Time) (hym8563.WallClock, error) {
	if s == "now" {
		return hym8563.FromTime(now), nil
	}
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return hym8563.FromUnix(sec), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return hym8563.WallClock{}, fmt.Errorf("time %q: %w", s, hym8563.ErrInvalidEncoding)
	}
	return hym8563.FromTime(t), nil
}

// parseAlarmTarget also accepts "+N", N seconds after the chip's time.
func parseAlarmTarget(s string, chip hym8563.WallClock) (hym8563.WallClock, error) {
	if rel, ok := strings.CutPrefix(s, "+"); ok {
		sec, err := strconv.ParseUint(rel, 10, 32)
		if err != nil {
			return hym8563.WallClock{}, fmt.Errorf("offset %q: %w", s, hym8563.ErrInvalidEncoding)
		}
		return hym8563.FromUnix(chip.Unix() + int64(sec)), nil
	}
	return ParseTime(s, chip.Time())
}

func parseOnOff(s string) (bool, error) {
	switch s {
	case "on":
		return true, nil
	case "off":
		return false, nil
	}
	return false, fmt.Errorf("%q: want on or off: %w", s, hym8563.ErrInvalidEncoding)
}
