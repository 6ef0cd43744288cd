package generic

import (
	"fmt"
	"strings"
	"time"
)

// =============================================================================
// TIME POINT - Calendar date abstraction (recovery works on whole days)
// =============================================================================

// TimePoint is a calendar day. The time-of-day part is always midnight UTC.
type TimePoint struct {
	Time time.Time
}

// Layouts accepted by ParseDate. ISO is the wire format, the Finnish display
// form is what handlers type into the handling form.
const (
	LayoutISO     = "2006-01-02"
	LayoutDisplay = "2.1.2006"
)

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func FromTime(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

func Today() TimePoint {
	return FromTime(time.Now())
}

// ParseDate parses a date in ISO (2024-02-01) or Finnish display (1.2.2024) form.
func ParseDate(s string) (TimePoint, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return TimePoint{}, ErrMissingDate
	}
	for _, layout := range []string{LayoutISO, LayoutDisplay} {
		if t, err := time.Parse(layout, s); err == nil {
			return FromTime(t), nil
		}
	}
	return TimePoint{}, fmt.Errorf("%w: %q", ErrMalformedDate, s)
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
func (tp TimePoint) AddDays(n int) TimePoint   { return TimePoint{Time: tp.Time.AddDate(0, 0, n)} }
func (tp TimePoint) AddMonths(n int) TimePoint { return TimePoint{Time: tp.Time.AddDate(0, n, 0)} }

// Properties
func (tp TimePoint) Year() int         { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month { return tp.Time.Month() }
func (tp TimePoint) Day() int          { return tp.Time.Day() }
func (tp TimePoint) IsZero() bool      { return tp.Time.IsZero() }

func (tp TimePoint) String() string { return tp.Time.Format(LayoutISO) }

// Display formats the date the way the handling form shows it (d.M.yyyy).
func (tp TimePoint) Display() string { return tp.Time.Format(LayoutDisplay) }

// Earlier returns whichever of the two days comes first.
func Earlier(a, b TimePoint) TimePoint {
	if b.Before(a) {
		return b
	}
	return a
}

// Later returns whichever of the two days comes last.
func Later(a, b TimePoint) TimePoint {
	if b.After(a) {
		return b
	}
	return a
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int { return int(to.normalize().Sub(from.normalize()).Hours() / 24) }

// MonthsSpanned counts the calendar months touched by [from, to], both
// boundary months included. The day of month is ignored: 31 Jan - 1 Feb
// spans two months, 1 Feb - 28 Feb spans one. Returns 0 when to is before from.
func MonthsSpanned(from, to TimePoint) int {
	if to.Before(from) {
		return 0
	}
	return (to.Year()-from.Year())*12 + int(to.Month()) - int(from.Month()) + 1
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }
func EndOfMonth(year int, month time.Month) TimePoint {
	return FromTime(time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1))
}
