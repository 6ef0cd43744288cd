package generic

import "time"

// =============================================================================
// APPLICATION - Accepted benefit the alterations apply to
// =============================================================================

type Application struct {
	ID                ApplicationID
	ApplicationNumber int
	CompanyName       string
	EmployeeName      string
	BenefitStart      TimePoint
	BenefitEnd        TimePoint
	CreatedAt         time.Time
}

// BenefitPeriod is the granted benefit period. Recovery ranges must lie inside it.
func (a Application) BenefitPeriod() Period {
	return Period{Start: a.BenefitStart, End: a.BenefitEnd}
}

// =============================================================================
// CALCULATION ROW - One billing sub-period of the benefit calculation
// =============================================================================

// CalculationRow is produced by the upstream calculation table builder and is
// read-only here. Amount is spread evenly over Duration months.
type CalculationRow struct {
	StartDate   *TimePoint
	EndDate     *TimePoint
	Amount      Money
	Duration    int
	Description string
}

// Period returns the row's interval; false if either date is missing.
func (r CalculationRow) Period() (Period, bool) {
	if r.StartDate == nil || r.EndDate == nil {
		return Period{}, false
	}
	return Period{Start: *r.StartDate, End: *r.EndDate}, true
}

// =============================================================================
// ALTERATION - Termination or suspension of an accepted benefit
// =============================================================================

type AlterationType string

const (
	AlterationTermination AlterationType = "termination"
	AlterationSuspension  AlterationType = "suspension"
)

func (t AlterationType) Valid() bool {
	return t == AlterationTermination || t == AlterationSuspension
}

type AlterationState string

const (
	AlterationReceived  AlterationState = "received"
	AlterationOpened    AlterationState = "opened"
	AlterationHandled   AlterationState = "handled"
	AlterationCancelled AlterationState = "cancelled"
)

// CanTransitionTo reports whether the lifecycle allows moving to next.
//
//	received -> opened | handled | cancelled
//	opened   -> handled | cancelled
//	handled  -> handled (correction) | cancelled
//	cancelled is terminal
func (s AlterationState) CanTransitionTo(next AlterationState) bool {
	switch s {
	case AlterationReceived:
		return next == AlterationOpened || next == AlterationHandled || next == AlterationCancelled
	case AlterationOpened:
		return next == AlterationHandled || next == AlterationCancelled
	case AlterationHandled:
		return next == AlterationHandled || next == AlterationCancelled
	default:
		return false
	}
}

type Alteration struct {
	ID            AlterationID
	ApplicationID ApplicationID
	Type          AlterationType
	State         AlterationState
	EndDate       TimePoint
	ResumeDate    *TimePoint // suspensions only
	Reason        string

	RecoveryStartDate     *TimePoint
	RecoveryEndDate       *TimePoint
	RecoveryAmount        Money
	RecoveryJustification string
	IsManualAmount        bool

	HandledAt *time.Time
	HandledBy string
	CreatedAt time.Time
}

// RecoveryPeriod returns the range this alteration occupies. Only handled
// alterations with both recovery dates occupy a range.
func (a Alteration) RecoveryPeriod() (Period, bool) {
	if a.State != AlterationHandled || a.RecoveryStartDate == nil || a.RecoveryEndDate == nil {
		return Period{}, false
	}
	return Period{Start: *a.RecoveryStartDate, End: *a.RecoveryEndDate}, true
}
