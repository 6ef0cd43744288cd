package recovery

import (
	"fmt"
	"strconv"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// STALENESS - Does the last calculation still match the form?
// =============================================================================

// Staleness tracks one editing session's last calculation.
//
// TRANSITIONS:
//
//	any edit to a calculation input  -> stale   (from any state)
//	calculation with RangeValid      -> fresh
//	calculation without RangeValid   -> invalid
//
// Only fresh allows submitting the recovery amount.
type Staleness string

const (
	StalenessStale   Staleness = "stale"
	StalenessFresh   Staleness = "fresh"
	StalenessInvalid Staleness = "invalid"
)

// InitialStaleness is the state of a session nothing was calculated in yet.
const InitialStaleness = StalenessStale

// Observe returns the state after a calculation produced result.
func (s Staleness) Observe(result CalculationResult) Staleness {
	if result.RangeValid {
		return StalenessFresh
	}
	return StalenessInvalid
}

// CheckSubmittable returns nil only when the recovery amount can be trusted.
func (s Staleness) CheckSubmittable() error {
	switch s {
	case StalenessFresh:
		return nil
	case StalenessInvalid:
		return generic.ErrRangeOccupied
	default:
		return generic.ErrStaleCalculation
	}
}

// Field names an editable input of the handling form.
type Field string

const (
	FieldRecoveryStartDate     Field = "recovery_start_date"
	FieldRecoveryEndDate       Field = "recovery_end_date"
	FieldManualRecoveryAmount  Field = "manual_recovery_amount"
	FieldIsManual              Field = "is_manual"
	FieldRecoveryJustification Field = "recovery_justification"
)

// AffectsCalculation reports whether editing f invalidates the last result.
func (f Field) AffectsCalculation() bool {
	switch f {
	case FieldRecoveryStartDate, FieldRecoveryEndDate, FieldManualRecoveryAmount, FieldIsManual:
		return true
	default:
		return false
	}
}

// RecordEdit applies one field edit and returns the new range and state.
// Edits to calculation inputs always leave the state stale, even when the
// value did not change. On error the inputs are returned untouched.
func RecordEdit(r ProposedRecoveryRange, s Staleness, field Field, value string) (ProposedRecoveryRange, Staleness, error) {
	next := r
	switch field {
	case FieldRecoveryStartDate:
		next.RecoveryStartDate = value
	case FieldRecoveryEndDate:
		next.RecoveryEndDate = value
	case FieldManualRecoveryAmount:
		next.ManualRecoveryAmount = value
	case FieldIsManual:
		manual, err := strconv.ParseBool(value)
		if err != nil {
			return r, s, fmt.Errorf("%w: %s=%q", generic.ErrInvalidFieldValue, field, value)
		}
		next.IsManual = manual
	case FieldRecoveryJustification:
		next.RecoveryJustification = value
	default:
		return r, s, fmt.Errorf("%w: %q", generic.ErrUnknownField, field)
	}

	if field.AffectsCalculation() {
		return next, StalenessStale, nil
	}
	return next, s, nil
}
