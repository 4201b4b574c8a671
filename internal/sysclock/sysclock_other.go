//go:build !linux

package sysclock

import "time"

func settimeofday(time.Time) error {
	return ErrUnsupported
}
