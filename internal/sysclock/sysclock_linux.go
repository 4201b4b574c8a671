//go:build linux

package sysclock

import (
	"time"

	"golang.org/x/sys/unix"
)

func settimeofday(t time.Time) error {
	v := unix.NsecToTimeval(t.UnixNano())
	return unix.Settimeofday(&v)
}
