/*
errors.go - Centralized error types for the recovery engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The recovery package wraps these errors with additional context.

ERROR CATEGORIES:
  1. Input errors - Dates or amounts the handler typed in that cannot be used
  2. Conflict errors - Recovery ranges clashing with handled alterations,
     submissions of stale calculations
  3. Store errors - Missing records, persistence failures

USAGE:
  Callers classify with errors.Is:

    if errors.Is(err, generic.ErrRangeOccupied) {
        // render "date range unavailable"
    }

SEE ALSO:
  - store.go: Uses these errors
  - recovery/calculator.go: Wraps input errors with row context
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingDate is returned when a required date field is blank.
	ErrMissingDate = errors.New("date is missing")

	// ErrMalformedDate is returned when a date cannot be parsed.
	ErrMalformedDate = errors.New("malformed date")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrEmptyAmount is returned when an amount field is blank.
	ErrEmptyAmount = errors.New("amount is empty")

	// ErrInvalidAmount is returned when an amount is not a decimal number.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrIncompleteRange is returned when a recovery range lacks a usable
	// start or end date. Calculation must not run on such a range.
	ErrIncompleteRange = errors.New("recovery range is incomplete")

	// ErrInvalidRowDuration is returned when a calculation row that has to
	// be prorated has no positive duration.
	ErrInvalidRowDuration = errors.New("calculation row duration must be positive")

	// ErrRangeOccupied is returned when a recovery range overlaps the range
	// of an already handled alteration.
	ErrRangeOccupied = errors.New("recovery range overlaps a handled alteration")

	// ErrStaleCalculation is returned when a submission is attempted while
	// the recovery amount no longer reflects the current inputs.
	ErrStaleCalculation = errors.New("recovery amount is out of date")

	// ErrOutsideBenefitPeriod is returned when a recovery range reaches
	// outside the benefit period of the application.
	ErrOutsideBenefitPeriod = errors.New("recovery range is outside the benefit period")

	// ErrInvalidStateTransition is returned when an alteration cannot move
	// to the requested state.
	ErrInvalidStateTransition = errors.New("invalid alteration state transition")

	// ErrUnknownField is returned when an edit names a field the handling
	// form does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrInvalidFieldValue is returned when an edit carries a value the
	// field cannot hold (e.g. a non-boolean for is_manual).
	ErrInvalidFieldValue = errors.New("invalid field value")

	// ErrDuplicateApplicationNumber is returned when another application
	// already carries the same application number.
	ErrDuplicateApplicationNumber = errors.New("application number already in use")

	// ErrApplicationNotFound is returned when a referenced application doesn't exist.
	ErrApplicationNotFound = errors.New("application not found")

	// ErrAlterationNotFound is returned when a referenced alteration doesn't exist.
	ErrAlterationNotFound = errors.New("alteration not found")

	// ErrSessionNotFound is returned when a handling session doesn't exist or expired.
	ErrSessionNotFound = errors.New("handling session not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RowError points at the calculation row that broke a calculation.
type RowError struct {
	Index int
	Err   error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("calculation row %d: %v", e.Index, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// OccupiedRangeError provides details about a recovery range conflict.
type OccupiedRangeError struct {
	Requested    Period
	AlterationID AlterationID
	Occupied     Period
}

func (e *OccupiedRangeError) Error() string {
	return fmt.Sprintf("recovery range %s overlaps %s of alteration %s",
		e.Requested, e.Occupied, e.AlterationID)
}

func (e *OccupiedRangeError) Unwrap() error {
	return ErrRangeOccupied
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingDate) ||
		errors.Is(err, ErrMalformedDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrEmptyAmount) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrIncompleteRange) ||
		errors.Is(err, ErrInvalidRowDuration) ||
		errors.Is(err, ErrOutsideBenefitPeriod) ||
		errors.Is(err, ErrUnknownField) ||
		errors.Is(err, ErrInvalidFieldValue)
}

// IsConflict returns true if the request is valid but clashes with current state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrRangeOccupied) ||
		errors.Is(err, ErrStaleCalculation) ||
		errors.Is(err, ErrDuplicateApplicationNumber) ||
		errors.Is(err, ErrInvalidStateTransition)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrApplicationNotFound) ||
		errors.Is(err, ErrAlterationNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}
