/*
Package recovery computes how much of a paid benefit is reclaimed when the
benefit is terminated or suspended.

PURPOSE:
  A handler picks a recovery range for an alteration. This package checks the
  range against ranges already claimed by handled alterations, prorates the
  benefit calculation rows over it (or takes a manually entered amount), and
  tracks whether the computed amount still matches what the form holds.

COMPONENTS:
  occupancy.go:  Range overlap validator and date-picker disabled days
  amount.go:     Monetary input parsing
  calculator.go: Recovery amount calculation
  staleness.go:  Fresh / stale / invalid tracking of the last calculation
  session.go:    One handler's editing session over an alteration
  service.go:    Store-backed handling (open, calculate, submit, cancel)

PURITY:
  Everything except service.go and the session registry is a pure function of
  its inputs. Nothing here reaches into shared state.
*/
package recovery

import (
	"fmt"

	"github.com/citybenefits/recovery-engine/generic"
)

// ProposedRecoveryRange holds the handling form's recovery inputs as typed.
// Dates and amounts stay strings so half-typed values survive edits;
// they are parsed only when a calculation runs.
type ProposedRecoveryRange struct {
	RecoveryStartDate     string
	RecoveryEndDate       string
	IsManual              bool
	ManualRecoveryAmount  string
	RecoveryAmount        string
	RecoveryJustification string
}

// Period parses the range dates. Either date missing or malformed yields an
// error wrapping ErrIncompleteRange. A reversed range is returned as is.
func (r ProposedRecoveryRange) Period() (generic.Period, error) {
	start, err := generic.ParseDate(r.RecoveryStartDate)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: start date: %w", generic.ErrIncompleteRange, err)
	}
	end, err := generic.ParseDate(r.RecoveryEndDate)
	if err != nil {
		return generic.Period{}, fmt.Errorf("%w: end date: %w", generic.ErrIncompleteRange, err)
	}
	return generic.Period{Start: start, End: end}, nil
}

// CalculationResult is produced fresh by every calculation run.
type CalculationResult struct {
	Total       generic.Money
	Description string
	Months      int

	// RangeValid is false when the range overlapped a handled alteration.
	// Conflict then names the alteration.
	RangeValid bool
	Conflict   *generic.OccupiedRangeError
}

// Apply writes the computed total into the range, as the form does after
// pressing "calculate".
func (res CalculationResult) Apply(r ProposedRecoveryRange) ProposedRecoveryRange {
	r.RecoveryAmount = res.Total.String()
	return r
}
