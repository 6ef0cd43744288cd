package generic

// =============================================================================
// PERIOD - Closed date interval
// =============================================================================

// Period is the closed interval [Start, End]. Both benefit calculation rows
// and recovery ranges are periods.
//
// Examples:
//   - Benefit period: 1.1.2024 - 31.12.2024
//   - Recovery range: 1.3.2024 - 31.3.2024
type Period struct {
	Start TimePoint
	End   TimePoint
}

// NewPeriod builds a period and rejects one that ends before it starts.
func NewPeriod(start, end TimePoint) (Period, error) {
	p := Period{Start: start, End: end}
	if err := p.Validate(); err != nil {
		return Period{}, err
	}
	return p, nil
}

// Validate returns ErrInvalidPeriod if End is before Start.
func (p Period) Validate() error {
	if p.IsReversed() {
		return ErrInvalidPeriod
	}
	return nil
}

// IsReversed reports whether End is before Start.
func (p Period) IsReversed() bool {
	return p.End.Before(p.Start)
}

// Contains returns true if the time point is within the period [Start, End]
func (p Period) Contains(t TimePoint) bool {
	return t.AfterOrEqual(p.Start) && t.BeforeOrEqual(p.End)
}

// ContainsPeriod returns true if other lies entirely inside p.
func (p Period) ContainsPeriod(other Period) bool {
	return p.Contains(other.Start) && p.Contains(other.End)
}

// Overlaps uses closed-interval semantics: periods sharing a single day overlap.
// The relation is symmetric.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && p.End.AfterOrEqual(other.Start)
}

// Intersect returns the overlapping part of two periods. The boolean is false
// when they do not overlap.
func (p Period) Intersect(other Period) (Period, bool) {
	if !p.Overlaps(other) {
		return Period{}, false
	}
	return Period{
		Start: Later(p.Start, other.Start),
		End:   Earlier(p.End, other.End),
	}, true
}

// Months returns the number of calendar months the period spans.
func (p Period) Months() int {
	return MonthsSpanned(p.Start, p.End)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
