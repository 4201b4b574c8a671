package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajanata/hym8563/internal/console"
	"github.com/ajanata/hym8563/internal/sysclock"
)

// consoleCmd builds a subcommand that runs one console command line built
// from prefix and the positional arguments.
func consoleCmd(use, short, prefix string, args cobra.PositionalArgs) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			line := strings.TrimSpace(prefix + " " + strings.Join(args, " "))
			return console.New(s.dev, os.Stdout).Exec(line)
		},
	}
}

var (
	timeCmd    = consoleCmd("time", "Read the clock", "time", cobra.NoArgs)
	timeSetCmd = consoleCmd("set <rfc3339|unix|now>", "Set the clock", "time set", cobra.ExactArgs(1))

	// A fresh process has no record of the last request, so "alarm" shows the registers.
	alarmCmd       = consoleCmd("alarm", "Read back the calendar alarm registers", "alarm regs", cobra.NoArgs)
	alarmSetCmd    = consoleCmd("set <rfc3339|unix|+seconds>", "Arm the wake-up alarm", "alarm set", cobra.ExactArgs(1))
	alarmCancelCmd = consoleCmd("cancel", "Disarm the timer and the calendar alarm", "alarm cancel", cobra.NoArgs)
	alarmIRQCmd    = consoleCmd("irq on|off", "Switch the alarm interrupt", "alarm irq", cobra.ExactArgs(1))

	statusCmd = consoleCmd("status", "Show the Control2 register", "status", cobra.NoArgs)
	ackCmd    = consoleCmd("ack", "Clear latched alarm and timer flags", "ack", cobra.NoArgs)
	clkoutCmd = consoleCmd("clkout [rate <hz>|on|off]", "Show or change the CLKOUT pin", "clkout", cobra.MaximumNArgs(2))

	hctosysCmd = &cobra.Command{
		Use:   "hctosys",
		Short: "Set the system clock from the RTC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := sysclock.HCToSys(s.dev)
			if err != nil {
				return err
			}
			fmt.Printf("system clock set to %s\n", t.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	systohcCmd = &cobra.Command{
		Use:   "systohc",
		Short: "Set the RTC from the system clock",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			t, err := sysclock.SysToHC(s.dev)
			if err != nil {
				return err
			}
			fmt.Printf("rtc set to %s\n", t.Format("2006-01-02 15:04:05 MST"))
			return nil
		},
	}

	consoleLoopCmd = &cobra.Command{
		Use:   "console",
		Short: "Run commands read from standard input",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := open(cmd, false)
			if err != nil {
				return err
			}
			defer s.Close()

			prompt := ""
			if fi, err := os.Stdin.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
				prompt = "> "
			}
			return console.New(s.dev, os.Stdout).Run(os.Stdin, prompt)
		},
	}
)

func init() {
	timeCmd.AddCommand(timeSetCmd)
	alarmCmd.AddCommand(alarmSetCmd, alarmCancelCmd, alarmIRQCmd)
	rootCmd.AddCommand(
		timeCmd,
		alarmCmd,
		statusCmd,
		ackCmd,
		clkoutCmd,
		hctosysCmd,
		systohcCmd,
		consoleLoopCmd,
		daemonCmd,
	)
}
