// Package hym8563test provides an in-memory HYM8563 register file that
// satisfies drivers.I2C, for tests of code built on the hym8563 driver.
package hym8563test

import (
	"errors"
	"sync"

	"tinygo.org/x/drivers"
)

// ErrNoDevice is returned for transactions addressed to anything but Bus.Addr.
var ErrNoDevice = errors.New("hym8563test: no device at address")

const (
	numRegs  = 16
	control2 = 0x01
	flags    = 0x0C // AF | TF
)

var _ drivers.I2C = (*Bus)(nil)

// Write records one register write as seen on the bus.
type Write struct {
	Reg  uint8
	Data []byte
}

// Bus models the chip's sixteen registers. Reads and writes auto-increment
// and wrap like the real part. AF and TF in Control2 can only be cleared by
// the bus, never set; use Latch to raise them.
type Bus struct {
	Addr uint16

	mu       sync.Mutex
	regs     [numRegs]byte
	writes   []Write
	err      error
	readErr  map[uint8]error
	writeErr map[uint8]error
	txs      int
}

// NewBus returns a register file answering at the default address 0x51 with
// all registers zero.
func NewBus() *Bus {
	return &Bus{
		Addr:     0x51,
		readErr:  map[uint8]error{},
		writeErr: map[uint8]error{},
	}
}

func (b *Bus) Tx(addr uint16, w, r []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.txs++
	if addr != b.Addr {
		return ErrNoDevice
	}
	if b.err != nil {
		return b.err
	}
	if len(w) == 0 {
		return errors.New("hym8563test: transaction without register address")
	}
	reg := w[0] % numRegs

	if len(w) > 1 {
		if err := b.writeErr[reg]; err != nil {
			return err
		}
		data := append([]byte(nil), w[1:]...)
		b.writes = append(b.writes, Write{Reg: reg, Data: data})
		for i, v := range data {
			at := (int(reg) + i) % numRegs
			if at == control2 {
				// flags: writing 0 clears, writing 1 leaves as is
				v = v&^flags | v&b.regs[at]&flags
			}
			b.regs[at] = v
		}
	}
	if len(r) > 0 {
		if err := b.readErr[reg]; err != nil {
			return err
		}
		for i := range r {
			r[i] = b.regs[(int(reg)+i)%numRegs]
		}
	}
	return nil
}

// Reg returns the current value of a register.
func (b *Bus) Reg(reg uint8) byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.regs[reg%numRegs]
}

// SetReg stores values starting at reg, bypassing the flag rules. It does not
// count as a bus write.
func (b *Bus) SetReg(reg uint8, v ...byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, x := range v {
		b.regs[(int(reg)+i)%numRegs] = x
	}
}

// Latch sets bits in Control2 the way the chip does when an event fires.
func (b *Bus) Latch(bits byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.regs[control2] |= bits
}

// Writes returns the register writes seen since the last ResetWrites.
func (b *Bus) Writes() []Write {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Write(nil), b.writes...)
}

// WritesTo returns the data of every write that started at reg.
func (b *Bus) WritesTo(reg uint8) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out [][]byte
	for _, w := range b.writes {
		if w.Reg == reg {
			out = append(out, w.Data)
		}
	}
	return out
}

func (b *Bus) ResetWrites() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writes = nil
}

// Transactions returns the number of Tx calls so far, failed ones included.
func (b *Bus) Transactions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.txs
}

// Fail makes every following transaction return err. Pass nil to recover.
func (b *Bus) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}

// FailRead makes reads starting at reg return err. Pass nil to recover.
func (b *Bus) FailRead(reg uint8, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.readErr[reg] = err
}

// FailWrite makes writes starting at reg return err. Pass nil to recover.
func (b *Bus) FailWrite(reg uint8, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writeErr[reg] = err
}
