package dates

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the only serialization format a date crosses the API boundary in.
const Layout = "2006-01-02"

// ErrInvalidDate signals a malformed or out-of-range calendar date.
var ErrInvalidDate = errors.New("invalid_date")

// Date is a plain calendar date. It carries no time-of-day and no timezone,
// so converting it between machines can never shift it by a day.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// Parse reads a strict YYYY-MM-DD string into a Date. Parsing goes through the
// individual components rather than a generic timestamp parser; values like
// "2024-02-30" or an empty string fail with ErrInvalidDate.
func Parse(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 3 || len(parts[0]) != 4 || len(parts[1]) != 2 || len(parts[2]) != 2 {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	y, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	d, err3 := strconv.Atoi(parts[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	date := Date{Year: y, Month: time.Month(m), Day: d}
	// time.Date normalizes overflow (Feb 30 -> Mar 1); reject anything that moved.
	norm := date.Time()
	if norm.Year() != y || norm.Month() != time.Month(m) || norm.Day() != d {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return date, nil
}

// String formats the date as YYYY-MM-DD. Parse(d.String()) always round-trips.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Time anchors the date at midnight UTC. Only used internally for arithmetic;
// the instant never leaves this package.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// FromTime extracts the calendar components of t in t's own location.
func FromTime(t time.Time) Date {
	y, m, day := t.Date()
	return Date{Year: y, Month: m, Day: day}
}

// Today is the current calendar date in local time, time-of-day truncated.
func Today() Date {
	return FromTime(time.Now())
}

func (d Date) IsZero() bool { return d == Date{} }

// AddDays returns the date n days later (earlier when n is negative).
func (d Date) AddDays(n int) Date {
	return FromTime(d.Time().AddDate(0, 0, n))
}

// AddMonths shifts the date by whole months. Day overflow normalizes the way
// time.AddDate does; callers doing month iteration should anchor on day 1.
func (d Date) AddMonths(n int) Date {
	return FromTime(d.Time().AddDate(0, n, 0))
}

// DaysBetween returns the signed day count from b to a: positive when a is in
// the future relative to b. Both anchors are UTC midnights, so the division
// is exact.
func DaysBetween(a, b Date) int {
	return int((a.Time().Unix() - b.Time().Unix()) / 86400)
}

func (d Date) Before(o Date) bool { return d.Compare(o) < 0 }
func (d Date) After(o Date) bool  { return d.Compare(o) > 0 }
func (d Date) Equal(o Date) bool  { return d == o }

// Compare orders two dates chronologically: -1, 0 or 1.
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return sign(d.Year - o.Year)
	case d.Month != o.Month:
		return sign(int(d.Month) - int(o.Month))
	default:
		return sign(d.Day - o.Day)
	}
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	}
	return 0
}

// MonthStart returns the first day of the date's month.
func (d Date) MonthStart() Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// MonthEnd returns the last day of the date's month.
func (d Date) MonthEnd() Date {
	// day 0 of the next month normalizes to the last day of this one
	return FromTime(time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC))
}

// MonthKey is the short bucket label used by the analytics views, e.g. "Mar/24".
func (d Date) MonthKey() string {
	return d.Time().Format("Jan/06")
}
