package recovery_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func datePtr(year int, month time.Month, day int) *generic.TimePoint {
	d := date(year, month, day)
	return &d
}

func row(start, end generic.TimePoint, amount string, duration int) generic.CalculationRow {
	return generic.CalculationRow{
		StartDate: &start,
		EndDate:   &end,
		Amount:    generic.MustParseMoney(amount),
		Duration:  duration,
	}
}

func handled(id string, start, end generic.TimePoint) generic.Alteration {
	return generic.Alteration{
		ID:                generic.AlterationID(id),
		ApplicationID:     "app-1",
		Type:              generic.AlterationTermination,
		State:             generic.AlterationHandled,
		RecoveryStartDate: &start,
		RecoveryEndDate:   &end,
	}
}

func automatic(start, end string) recovery.ProposedRecoveryRange {
	return recovery.ProposedRecoveryRange{RecoveryStartDate: start, RecoveryEndDate: end}
}

// firstQuarter is a row spanning 1.1.-31.3.2023 worth 300 over 3 months.
func firstQuarter() generic.CalculationRow {
	return row(date(2023, time.January, 1), date(2023, time.March, 31), "300", 3)
}

// =============================================================================
// AUTOMATIC MODE
// =============================================================================

func TestCalculate_FullContainment(t *testing.T) {
	// GIVEN: A row spanning exactly the candidate range
	rows := []generic.CalculationRow{firstQuarter()}

	// WHEN: Calculating over the same three months
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-01-01", "2023-03-31"), rows, nil)

	// THEN: The full row amount is recovered once
	require.NoError(t, err)
	assert.True(t, res.RangeValid)
	assert.Equal(t, "300.00", res.Total.String())
	assert.Equal(t, 3, res.Months)
	assert.Equal(t, "3 months, 1.1.2023 - 31.3.2023", res.Description)
}

func TestCalculate_PartialOverlapProrates(t *testing.T) {
	// GIVEN: A 300 / 3 month row and a one-month candidate inside it
	rows := []generic.CalculationRow{firstQuarter()}

	// WHEN: Calculating over February
	res, err := recovery.CalculateRecoveryAmount(automatic("1.2.2023", "28.2.2023"), rows, nil)

	// THEN: One third of the row is recovered
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Total.String())
	assert.Equal(t, "1 month, 1.2.2023 - 28.2.2023", res.Description)
}

func TestCalculate_MultiRowAccumulation(t *testing.T) {
	// GIVEN: Two consecutive quarters, the candidate touching one month of each
	rows := []generic.CalculationRow{
		row(date(2023, time.January, 1), date(2023, time.March, 31), "150", 3),
		row(date(2023, time.April, 1), date(2023, time.June, 30), "225.75", 3),
	}

	// WHEN: Calculating over March and April
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-03-01", "2023-04-30"), rows, nil)

	// THEN: 50.00 + 75.25
	require.NoError(t, err)
	assert.Equal(t, "125.25", res.Total.String())
	assert.Equal(t, 2, res.Months)
}

func TestCalculate_CountsCalendarMonthsNotDays(t *testing.T) {
	// GIVEN: A candidate of two days straddling a month boundary
	rows := []generic.CalculationRow{firstQuarter()}

	// WHEN: Calculating 31.1. - 1.2.
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-01-31", "2023-02-01"), rows, nil)

	// THEN: Both touched months count in full
	require.NoError(t, err)
	assert.Equal(t, "200.00", res.Total.String())
	assert.Equal(t, 2, res.Months)
}

func TestCalculate_EmptyRowsYieldZero(t *testing.T) {
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-01-01", "2023-01-31"), nil, nil)

	require.NoError(t, err)
	assert.True(t, res.RangeValid)
	assert.True(t, res.Total.IsZero())
	assert.NotEmpty(t, res.Description)
}

func TestCalculate_SkipsRowsWithoutDates(t *testing.T) {
	undated := generic.CalculationRow{Amount: generic.MustParseMoney("999"), Duration: 1}
	halfDated := generic.CalculationRow{StartDate: datePtr(2023, time.January, 1), Amount: generic.MustParseMoney("999"), Duration: 1}
	rows := []generic.CalculationRow{undated, halfDated, firstQuarter()}

	res, err := recovery.CalculateRecoveryAmount(automatic("2023-01-01", "2023-01-31"), rows, nil)

	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Total.String())
}

func TestCalculate_RoundsHalfUp(t *testing.T) {
	// 1.015 sits exactly on the half-cent boundary
	rows := []generic.CalculationRow{row(date(2023, time.January, 1), date(2023, time.January, 31), "1.015", 1)}

	res, err := recovery.CalculateRecoveryAmount(automatic("2023-01-01", "2023-01-31"), rows, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.02", res.Total.String())

	manual := recovery.ProposedRecoveryRange{
		RecoveryStartDate:    "2023-01-01",
		RecoveryEndDate:      "2023-01-31",
		IsManual:             true,
		ManualRecoveryAmount: "1.005",
	}
	res, err = recovery.CalculateRecoveryAmount(manual, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "1.01", res.Total.String())
}

func TestCalculate_ZeroDurationOverlappingRowFails(t *testing.T) {
	// GIVEN: A zero-duration row that overlaps and one that does not
	rows := []generic.CalculationRow{
		row(date(2022, time.January, 1), date(2022, time.December, 31), "100", 0),
		row(date(2023, time.January, 1), date(2023, time.March, 31), "300", 0),
	}

	// WHEN: Calculating over January 2023
	_, err := recovery.CalculateRecoveryAmount(automatic("2023-01-01", "2023-01-31"), rows, nil)

	// THEN: The overlapping row is reported by index
	require.Error(t, err)
	assert.ErrorIs(t, err, generic.ErrInvalidRowDuration)
	var rowErr *generic.RowError
	require.True(t, errors.As(err, &rowErr))
	assert.Equal(t, 1, rowErr.Index)

	// A range clear of the broken rows still calculates
	_, err = recovery.CalculateRecoveryAmount(automatic("2024-01-01", "2024-01-31"), rows, nil)
	assert.NoError(t, err)
}

// =============================================================================
// MANUAL MODE
// =============================================================================

func TestCalculate_ManualModeBypassesRows(t *testing.T) {
	r := recovery.ProposedRecoveryRange{
		RecoveryStartDate:    "2023-01-01",
		RecoveryEndDate:      "2023-03-31",
		IsManual:             true,
		ManualRecoveryAmount: "1234.5",
	}

	res, err := recovery.CalculateRecoveryAmount(r, []generic.CalculationRow{firstQuarter()}, nil)

	require.NoError(t, err)
	assert.Equal(t, "1234.50", res.Total.String())
	assert.Equal(t, "3 months, 1.1.2023 - 31.3.2023", res.Description)
}

func TestCalculate_ManualModeBadAmountIsZero(t *testing.T) {
	for _, input := range []string{"", "   ", "abc", "-5"} {
		r := recovery.ProposedRecoveryRange{
			RecoveryStartDate:    "2023-01-01",
			RecoveryEndDate:      "2023-01-31",
			IsManual:             true,
			ManualRecoveryAmount: input,
		}
		res, err := recovery.CalculateRecoveryAmount(r, []generic.CalculationRow{firstQuarter()}, nil)
		require.NoError(t, err, input)
		assert.Equal(t, "0.00", res.Total.String(), input)
	}
}

// =============================================================================
// DEGENERATE AND CONFLICTING RANGES
// =============================================================================

func TestCalculate_ReversedRangeZeroes(t *testing.T) {
	// GIVEN: Rows that would contribute and a handled range the dates overlap
	rows := []generic.CalculationRow{firstQuarter()}
	alts := []generic.Alteration{handled("alt-1", date(2023, time.January, 1), date(2023, time.March, 31))}

	// WHEN: The end date is before the start date
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-03-01", "2023-02-01"), rows, alts)

	// THEN: Zero, no description, and not reported as a conflict
	require.NoError(t, err)
	assert.True(t, res.Total.IsZero())
	assert.Empty(t, res.Description)
	assert.True(t, res.RangeValid)
	assert.Nil(t, res.Conflict)
}

func TestCalculate_ConflictRejection(t *testing.T) {
	// GIVEN: March already recovered by a handled alteration
	alts := []generic.Alteration{handled("alt-1", date(2023, time.March, 1), date(2023, time.March, 31))}
	rows := []generic.CalculationRow{firstQuarter()}

	// WHEN: Proposing 15.3. - 20.4.
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-03-15", "2023-04-20"), rows, alts)

	// THEN: Blocked, nothing recovered
	require.NoError(t, err)
	assert.False(t, res.RangeValid)
	assert.True(t, res.Total.IsZero())
	assert.Empty(t, res.Description)
	require.NotNil(t, res.Conflict)
	assert.Equal(t, generic.AlterationID("alt-1"), res.Conflict.AlterationID)
	assert.ErrorIs(t, res.Conflict, generic.ErrRangeOccupied)
}

func TestCalculateExcept_IgnoresOwnRange(t *testing.T) {
	alts := []generic.Alteration{handled("alt-1", date(2023, time.March, 1), date(2023, time.March, 31))}
	rows := []generic.CalculationRow{firstQuarter()}

	res, err := recovery.CalculateRecoveryAmountExcept(automatic("2023-03-01", "2023-03-31"), rows, alts, "alt-1")

	require.NoError(t, err)
	assert.True(t, res.RangeValid)
	assert.Equal(t, "100.00", res.Total.String())
}

func TestCalculate_IncompleteRange(t *testing.T) {
	cases := []recovery.ProposedRecoveryRange{
		automatic("", "2023-01-31"),
		automatic("2023-01-01", ""),
		automatic("2023-02-30", "2023-03-31"),
	}
	for _, r := range cases {
		_, err := recovery.CalculateRecoveryAmount(r, nil, nil)
		assert.ErrorIs(t, err, generic.ErrIncompleteRange)
		assert.True(t, generic.IsClientError(err))
	}
}

func TestCalculationResult_Apply(t *testing.T) {
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-02-01", "2023-02-28"), []generic.CalculationRow{firstQuarter()}, nil)
	require.NoError(t, err)

	r := res.Apply(automatic("2023-02-01", "2023-02-28"))
	assert.Equal(t, "100.00", r.RecoveryAmount)
}
