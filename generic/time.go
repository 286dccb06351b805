package generic

import (
	"time"
)

// =============================================================================
// TIME POINT - Calendar date abstraction (leave is counted in whole days)
// =============================================================================

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

type TimePoint struct {
	Time time.Time
}

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// FromTime drops the clock part of t, keeping its calendar date.
func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return FromTime(time.Now())
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (TimePoint, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return TimePoint{}, err
	}
	return FromTime(t), nil
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }
func (tp TimePoint) AfterOrEqual(other TimePoint) bool  { return !tp.Before(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint  { return FromTime(tp.normalize().AddDate(0, 0, n)) }
func (tp TimePoint) AddYears(n int) TimePoint { return SafeDate(tp.Year()+n, tp.Month(), tp.Day()) }

// Properties
func (tp TimePoint) Year() int           { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month   { return tp.Time.Month() }
func (tp TimePoint) Day() int            { return tp.Time.Day() }
func (tp TimePoint) YearDay() int        { return tp.Time.YearDay() }
func (tp TimePoint) IsZero() bool        { return tp.Time.IsZero() }
func (tp TimePoint) String() string      { return tp.Time.Format(DateLayout) }
func (tp TimePoint) Midnight() time.Time { return tp.normalize() }

// Max returns the later of the two dates.
func Max(a, b TimePoint) TimePoint {
	if a.After(b) {
		return a
	}
	return b
}

// =============================================================================
// CALENDAR UTILITIES
// =============================================================================

// IsLeapYear follows the Gregorian rule: divisible by 4, except centuries
// not divisible by 400.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}

func DaysInYear(year int) int {
	if IsLeapYear(year) {
		return 366
	}
	return 365
}

// DaysInMonth returns the number of days in month of year. Months outside
// January..December are clamped into range.
func DaysInMonth(year int, month time.Month) int {
	switch clampMonth(month) {
	case time.February:
		if IsLeapYear(year) {
			return 29
		}
		return 28
	case time.April, time.June, time.September, time.November:
		return 30
	default:
		return 31
	}
}

// SafeDate builds a date without overflowing into the next month: the day is
// clamped to the last valid day (Feb 29 in a common year becomes Feb 28,
// April 31 becomes April 30). Out-of-range months and days below 1 are clamped
// as well, so malformed configuration never panics.
func SafeDate(year int, month time.Month, day int) TimePoint {
	month = clampMonth(month)
	if last := DaysInMonth(year, month); day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return NewTimePoint(year, month, day)
}

func clampMonth(month time.Month) time.Month {
	if month < time.January {
		return time.January
	}
	if month > time.December {
		return time.December
	}
	return month
}

// DaysBetween returns the whole number of days from one date to another.
// Negative when to is before from.
func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfYear(year int) TimePoint { return NewTimePoint(year, time.January, 1) }
func EndOfYear(year int) TimePoint   { return NewTimePoint(year, time.December, 31) }
