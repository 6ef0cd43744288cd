package recovery

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// RECOVERY AMOUNT CALCULATOR
// =============================================================================

// CalculateRecoveryAmount computes the amount to recover over r's range.
//
// Outcomes, in the order they are checked:
//   - start or end date missing/malformed: ErrIncompleteRange, no result
//   - start after end: total 0, empty description, RangeValid true
//   - range overlaps a handled alteration: total 0, empty description,
//     RangeValid false
//   - manual mode: the manual amount, 0 if blank or unparseable
//   - automatic mode: each row overlapping the range contributes
//     amount * months(overlap) / duration
//
// The total is rounded to cents half away from zero.
func CalculateRecoveryAmount(r ProposedRecoveryRange, rows []generic.CalculationRow, alterations []generic.Alteration) (CalculationResult, error) {
	return calculate(r, rows, alterations, "")
}

// CalculateRecoveryAmountExcept ignores the handled range of alteration self,
// for re-handling an alteration that already occupies a range.
func CalculateRecoveryAmountExcept(r ProposedRecoveryRange, rows []generic.CalculationRow, alterations []generic.Alteration, self generic.AlterationID) (CalculationResult, error) {
	return calculate(r, rows, alterations, self)
}

func calculate(r ProposedRecoveryRange, rows []generic.CalculationRow, alterations []generic.Alteration, self generic.AlterationID) (CalculationResult, error) {
	candidate, err := r.Period()
	if err != nil {
		return CalculationResult{}, err
	}

	if candidate.IsReversed() {
		return CalculationResult{Total: generic.ZeroMoney(), RangeValid: true}, nil
	}

	if conflict := FindConflict(candidate, alterations, self); conflict != nil {
		return CalculationResult{Total: generic.ZeroMoney(), RangeValid: false, Conflict: conflict}, nil
	}

	var total generic.Money
	if r.IsManual {
		total = manualAmount(r.ManualRecoveryAmount)
	} else {
		total, err = prorate(candidate, rows)
		if err != nil {
			return CalculationResult{}, err
		}
	}

	months := candidate.Months()
	return CalculationResult{
		Total:       total.Round(),
		Description: describe(candidate, months),
		Months:      months,
		RangeValid:  true,
	}, nil
}

// manualAmount is the one place a bad manual amount turns into zero.
func manualAmount(input string) generic.Money {
	amount, err := ParseMonetaryAmount(input)
	if err != nil {
		return generic.ZeroMoney()
	}
	return amount
}

// prorate sums the share of every row that overlaps candidate. Rows missing a
// date are skipped. An overlapping row without a positive duration cannot be
// prorated and fails the calculation.
func prorate(candidate generic.Period, rows []generic.CalculationRow) (generic.Money, error) {
	total := generic.ZeroMoney()
	for i, row := range rows {
		rowPeriod, ok := row.Period()
		if !ok {
			continue
		}
		overlap, ok := candidate.Intersect(rowPeriod)
		if !ok {
			continue
		}
		if row.Duration <= 0 {
			return generic.Money{}, &generic.RowError{Index: i, Err: generic.ErrInvalidRowDuration}
		}
		share := row.Amount.
			Mul(decimal.NewFromInt(int64(overlap.Months()))).
			Div(decimal.NewFromInt(int64(row.Duration)))
		total = total.Add(share)
	}
	return total, nil
}

func describe(p generic.Period, months int) string {
	unit := "months"
	if months == 1 {
		unit = "month"
	}
	return fmt.Sprintf("%d %s, %s - %s", months, unit, p.Start.Display(), p.End.Display())
}
