// Package i2cdev opens a Linux I2C bus through periph.io and exposes it as a
// tinygo drivers.I2C, so the hym8563 driver runs unchanged on a host.
package i2cdev

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"
)

// Bus is an open host I2C bus.
type Bus struct {
	bc i2c.BusCloser
}

var _ drivers.I2C = (*Bus)(nil)

// Open initialises the host drivers and opens the named bus ("" for the
// first one). A non-zero speedHz is applied best effort: some adapters cannot
// change speed at runtime and only a log line is left behind.
func Open(name string, speedHz int64) (*Bus, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("i2cdev: host init: %w", err)
	}
	bc, err := i2creg.Open(name)
	if err != nil {
		return nil, fmt.Errorf("i2cdev: open %q: %w", name, err)
	}
	if speedHz > 0 {
		if err := bc.SetSpeed(physic.Frequency(speedHz) * physic.Hertz); err != nil {
			log.Printf("i2cdev: %s: set speed %d Hz: %v", bc, speedHz, err)
		}
	}
	return &Bus{bc: bc}, nil
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	return b.bc.Tx(addr, w, r)
}

func (b *Bus) String() string {
	return b.bc.String()
}

func (b *Bus) Close() error {
	return b.bc.Close()
}
