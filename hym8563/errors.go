package hym8563

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport matches every *TransportError via errors.Is.
	ErrTransport = errors.New("hym8563: transport failure")
	// ErrInvalidEncoding is returned for malformed external input such as an
	// unparseable timestamp. The register codec itself never fails.
	ErrInvalidEncoding = errors.New("hym8563: invalid encoding")
	// ErrInvalidRate is returned when no supported CLKOUT frequency fits the request.
	ErrInvalidRate = errors.New("hym8563: unsupported clock output rate")
)

// TransportError reports a bus transaction that did not complete. The chip
// state after a failed write is undefined and should be treated as stale.
type TransportError struct {
	Op  string // "read" or "write"
	Reg uint8
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("hym8563: %s register 0x%02X: %v", e.Op, e.Reg, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }
