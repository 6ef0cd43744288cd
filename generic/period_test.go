package generic_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func period(start, end generic.TimePoint) generic.Period {
	return generic.Period{Start: start, End: end}
}

// =============================================================================
// OVERLAP
// =============================================================================

func TestPeriod_Overlaps_IsSymmetric(t *testing.T) {
	cases := []struct {
		name string
		a, b generic.Period
		want bool
	}{
		{"disjoint", period(date(2024, 1, 1), date(2024, 1, 31)), period(date(2024, 2, 1), date(2024, 2, 29)), false},
		{"shared single day", period(date(2024, 1, 1), date(2024, 2, 1)), period(date(2024, 2, 1), date(2024, 2, 29)), true},
		{"contained", period(date(2024, 1, 1), date(2024, 12, 31)), period(date(2024, 3, 1), date(2024, 3, 31)), true},
		{"partial", period(date(2024, 3, 15), date(2024, 4, 20)), period(date(2024, 3, 1), date(2024, 3, 31)), true},
		{"identical", period(date(2024, 5, 1), date(2024, 5, 1)), period(date(2024, 5, 1), date(2024, 5, 1)), true},
		{"day apart", period(date(2024, 1, 1), date(2024, 1, 31)), period(date(2024, 2, 2), date(2024, 2, 3)), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.a.Overlaps(tc.b))
			assert.Equal(t, tc.a.Overlaps(tc.b), tc.b.Overlaps(tc.a), "overlap must be symmetric")
		})
	}
}

func TestPeriod_Intersect(t *testing.T) {
	// GIVEN: A quarter and a range crossing into the next quarter
	row := period(date(2024, 1, 1), date(2024, 3, 31))
	candidate := period(date(2024, 3, 15), date(2024, 4, 20))

	// WHEN: Intersecting
	got, ok := row.Intersect(candidate)

	// THEN: The overlap is clipped to both ends
	require.True(t, ok)
	assert.True(t, got.Start.Equal(date(2024, 3, 15)))
	assert.True(t, got.End.Equal(date(2024, 3, 31)))

	_, ok = row.Intersect(period(date(2024, 4, 1), date(2024, 4, 30)))
	assert.False(t, ok)
}

func TestPeriod_Validate(t *testing.T) {
	_, err := generic.NewPeriod(date(2024, 2, 1), date(2024, 1, 1))
	assert.True(t, errors.Is(err, generic.ErrInvalidPeriod))

	p, err := generic.NewPeriod(date(2024, 1, 1), date(2024, 1, 1))
	require.NoError(t, err)
	assert.Len(t, p.Days(), 1)
}

func TestPeriod_ContainsPeriod(t *testing.T) {
	benefit := period(date(2024, 1, 1), date(2024, 6, 30))

	assert.True(t, benefit.ContainsPeriod(period(date(2024, 1, 1), date(2024, 6, 30))))
	assert.True(t, benefit.ContainsPeriod(period(date(2024, 2, 1), date(2024, 2, 29))))
	assert.False(t, benefit.ContainsPeriod(period(date(2024, 6, 1), date(2024, 7, 1))))
}

// =============================================================================
// MONTH ARITHMETIC
// =============================================================================

func TestMonthsSpanned_CountsCalendarMonths(t *testing.T) {
	cases := []struct {
		name     string
		from, to generic.TimePoint
		want     int
	}{
		{"single full month", date(2024, 2, 1), date(2024, 2, 29), 1},
		{"quarter", date(2024, 1, 1), date(2024, 3, 31), 3},
		{"day apart across boundary", date(2024, 1, 31), date(2024, 2, 1), 2},
		{"same day", date(2024, 5, 10), date(2024, 5, 10), 1},
		{"across year", date(2023, 11, 15), date(2024, 2, 14), 4},
		{"reversed", date(2024, 3, 1), date(2024, 2, 1), 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, generic.MonthsSpanned(tc.from, tc.to))
		})
	}
}

func TestEndOfMonth_LeapYear(t *testing.T) {
	assert.True(t, generic.EndOfMonth(2024, time.February).Equal(date(2024, 2, 29)))
	assert.True(t, generic.EndOfMonth(2023, time.February).Equal(date(2023, 2, 28)))
	assert.True(t, generic.EndOfMonth(2024, time.December).Equal(date(2024, 12, 31)))
}

// =============================================================================
// PARSING
// =============================================================================

func TestParseDate(t *testing.T) {
	iso, err := generic.ParseDate("2024-02-01")
	require.NoError(t, err)
	assert.True(t, iso.Equal(date(2024, 2, 1)))

	display, err := generic.ParseDate(" 1.2.2024 ")
	require.NoError(t, err)
	assert.True(t, display.Equal(date(2024, 2, 1)))
	assert.Equal(t, "1.2.2024", display.Display())

	_, err = generic.ParseDate("")
	assert.ErrorIs(t, err, generic.ErrMissingDate)

	_, err = generic.ParseDate("31.2.2024")
	assert.ErrorIs(t, err, generic.ErrMalformedDate)
	assert.True(t, generic.IsClientError(err))
}
