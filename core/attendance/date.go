package attendance

import (
	"fmt"
	"time"
)

// Date is a calendar day with no time-of-day or timezone attached. Signature
// timestamps are instants; they only map to a Date through a *time.Location,
// which is why DateOf takes one explicitly.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time, loc *time.Location) Date {
	y, m, d := t.In(loc).Date()
	return Date{Year: y, Month: m, Day: d}
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// midnight anchors the civil date for weekday/week math; the choice of UTC
// here is arbitrary since only the calendar fields matter.
func (d Date) midnight() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) Before(other Date) bool {
	return d.midnight().Before(other.midnight())
}

func (d Date) After(other Date) bool {
	return d.midnight().After(other.midnight())
}

func (d Date) Next() Date {
	return DateOf(d.midnight().AddDate(0, 0, 1), time.UTC)
}

func (d Date) Weekday() time.Weekday {
	return d.midnight().Weekday()
}

// IsWeekend reports Saturday/Sunday; attendance is only tracked Monday-Friday.
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// ISOWeek returns the ISO 8601 year and week number the date falls in.
func (d Date) ISOWeek() (year, week int) {
	return d.midnight().ISOWeek()
}
