package hym8563

import (
	"fmt"
	"time"
)

// WallClock is a broken-down calendar time as the chip sees it. Fields are
// kept separate from time.Time so out-of-range values survive until EncodeTime
// applies its clamping rules.
type WallClock struct {
	Year    int // absolute, e.g. 2024
	Month   time.Month
	Day     int
	Weekday time.Weekday
	Hour    int
	Minute  int
	Second  int
	// YearDay is the 0-based day of the year. DecodeTime and FromTime fill it in;
	// EncodeTime ignores it.
	YearDay int
}

// FromTime breaks t down in UTC.
func FromTime(t time.Time) WallClock {
	t = t.UTC()
	return WallClock{
		Year:    t.Year(),
		Month:   t.Month(),
		Day:     t.Day(),
		Weekday: t.Weekday(),
		Hour:    t.Hour(),
		Minute:  t.Minute(),
		Second:  t.Second(),
		YearDay: t.YearDay() - 1,
	}
}

// FromUnix breaks down seconds since the Unix epoch in UTC.
func FromUnix(sec int64) WallClock {
	return FromTime(time.Unix(sec, 0))
}

// Time returns w as a UTC time.Time. Out-of-range fields are normalised.
func (w WallClock) Time() time.Time {
	return time.Date(w.Year, w.Month, w.Day, w.Hour, w.Minute, w.Second, 0, time.UTC)
}

// Unix returns w as seconds since the Unix epoch. Weekday and YearDay are ignored.
func (w WallClock) Unix() int64 {
	return w.Time().Unix()
}

// Valid reports whether every field is within its calendar range.
func (w WallClock) Valid() bool {
	return w.Month >= time.January && w.Month <= time.December &&
		w.Day >= 1 && w.Day <= daysIn(w.Month, w.Year) &&
		w.Hour >= 0 && w.Hour < 24 &&
		w.Minute >= 0 && w.Minute < 60 &&
		w.Second >= 0 && w.Second < 60
}

func (w WallClock) String() string {
	return fmt.Sprintf("%04d-%02d-%02d(%d) %02d:%02d:%02d",
		w.Year, int(w.Month), w.Day, int(w.Weekday), w.Hour, w.Minute, w.Second)
}

// DecodeTime converts the seven time registers, seconds first, into a WallClock.
// Each field is masked to its significant bits and converted from BCD without
// any range checks.
func DecodeTime(regs [timeLen]byte) WallClock {
	w := WallClock{
		Second:  bcdToDec(regs[0] & 0x7F),
		Minute:  bcdToDec(regs[1] & 0x7F),
		Hour:    bcdToDec(regs[2] & 0x3F),
		Day:     bcdToDec(regs[3] & 0x3F),
		Weekday: time.Weekday(bcdToDec(regs[4] & 0x07)),
		Month:   time.Month(bcdToDec(regs[5] & 0x1F)),
		Year:    bcdToDec(regs[6]),
	}
	if regs[5]&centuryBit != 0 {
		w.Year += 1900
	} else {
		w.Year += 2000
	}
	w.YearDay = yearDay(w.Day, w.Month, w.Year)
	return w
}

// EncodeTime converts w into the seven time registers. Values the chip cannot
// hold are corrected rather than rejected:
//   - seconds, minutes and hours outside their range become 0
//   - the day is clamped to [1, days in month]
//   - years from 2100 on are stored as 2099, years before 1900 as 1900
//
// The weekday is written as given.
func EncodeTime(w WallClock) [timeLen]byte {
	var regs [timeLen]byte
	regs[0] = decToBcd(zeroUnder(w.Second, 60))
	regs[1] = decToBcd(zeroUnder(w.Minute, 60))
	regs[2] = decToBcd(zeroUnder(w.Hour, 24))
	regs[3] = decToBcd(clampDay(w.Day, w.Month, w.Year))
	regs[4] = decToBcd(int(w.Weekday))

	var century byte
	year := 0
	switch {
	case w.Year >= 2100:
		year = 99
	case w.Year >= 2000:
		year = w.Year - 2000
	case w.Year >= 1900:
		year = w.Year - 1900
		century = centuryBit
	default:
		century = centuryBit
	}
	regs[5] = century | decToBcd(int(w.Month))&0x7F
	regs[6] = decToBcd(year)
	return regs
}

// zeroUnder returns v when 0 <= v < limit and 0 otherwise.
func zeroUnder(v, limit int) int {
	if v < 0 || v >= limit {
		return 0
	}
	return v
}

func clampDay(day int, month time.Month, year int) int {
	if last := daysIn(month, year); day > last {
		return last
	}
	if day <= 0 {
		return 1
	}
	return day
}

// daysIn returns the number of days in month. Months outside 1..12 roll over
// into the neighbouring year the same way time.Date does.
func daysIn(month time.Month, year int) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

var daysBefore = [12]int{0, 31, 59, 90, 120, 151, 181, 212, 243, 273, 304, 334}

func yearDay(day int, month time.Month, year int) int {
	if month < time.January || month > time.December {
		return day - 1
	}
	d := daysBefore[month-1] + day - 1
	if month > time.February && isLeap(year) {
		d++
	}
	return d
}

func isLeap(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

// decToBcd converts int to BCD
func decToBcd(dec int) uint8 {
	return uint8(dec + 6*(dec/10))
}

// bcdToDec converts BCD to int
func bcdToDec(bcd uint8) int {
	return int(bcd - 6*(bcd>>4))
}
