// Command hym8563ctl reads and programs a HYM8563 RTC on a Linux I2C bus.
package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajanata/hym8563/hym8563"
	"github.com/ajanata/hym8563/internal/config"
	"github.com/ajanata/hym8563/internal/i2cdev"
)

var (
	globalOpts = struct {
		config  string
		bus     string
		addr    uint16
		init    bool
		verbose bool
	}{}

	rootCmd = &cobra.Command{
		Use:           "hym8563ctl",
		Short:         "Control a HYM8563 real-time clock",
		Long:          "Read and set the time, program the wake-up alarm and the clock output of a HYM8563 (PCF8563 compatible) RTC.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	log.SetFlags(0)
	log.SetPrefix("hym8563ctl: ")

	f := rootCmd.PersistentFlags()
	f.StringVarP(&globalOpts.config, "config", "c", "", "YAML configuration file")
	f.StringVar(&globalOpts.bus, "bus", "", "I2C bus name, e.g. /dev/i2c-1 (default: from config, else the first bus)")
	f.Uint16Var(&globalOpts.addr, "addr", hym8563.Address, "7-bit I2C address of the chip")
	f.BoolVar(&globalOpts.init, "init", false, "run the attach-time bring-up before the command")
	f.BoolVarP(&globalOpts.verbose, "verbose", "v", false, "log driver activity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

// session is an opened device together with the configuration it came from.
type session struct {
	cfg *config.Config
	bus *i2cdev.Bus
	dev *hym8563.Device
}

func (s *session) Close() {
	if err := s.bus.Close(); err != nil {
		log.Printf("close bus: %v", err)
	}
}

// open loads the configuration, applies flag overrides and opens the device.
// With --init, or when configure is set, the bring-up sequence runs first.
func open(cmd *cobra.Command, configure bool) (*session, error) {
	cfg := config.Default()
	if globalOpts.config != "" {
		var err error
		if cfg, err = config.Load(globalOpts.config); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	if flags.Changed("bus") {
		cfg.Bus = globalOpts.bus
	}
	if flags.Changed("addr") {
		cfg.Address = globalOpts.addr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	fallback, err := cfg.Fallback()
	if err != nil {
		return nil, err
	}

	bus, err := i2cdev.Open(cfg.Bus, cfg.BusSpeedHz)
	if err != nil {
		return nil, err
	}
	s := &session{cfg: cfg, bus: bus, dev: hym8563.New(bus)}

	c := hym8563.Config{Address: cfg.Address, FallbackTime: fallback}
	if globalOpts.verbose || configure {
		c.Log = log.Default()
	}
	s.dev.Address = c.Address
	s.dev.Log = c.Log
	if configure || globalOpts.init {
		if err := s.dev.Configure(c); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}
