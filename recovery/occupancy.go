package recovery

import "github.com/citybenefits/recovery-engine/generic"

// IsRangeOccupied reports whether candidate overlaps the recovery range of any
// handled alteration. Alterations in other states, or handled ones missing a
// recovery date, occupy nothing.
func IsRangeOccupied(candidate generic.Period, alterations []generic.Alteration) bool {
	return FindConflict(candidate, alterations, "") != nil
}

// IsRangeOccupiedExcept is IsRangeOccupied ignoring the alteration with the
// given ID, so re-handling an alteration does not collide with itself.
func IsRangeOccupiedExcept(candidate generic.Period, alterations []generic.Alteration, self generic.AlterationID) bool {
	return FindConflict(candidate, alterations, self) != nil
}

// FindConflict returns the first handled range candidate overlaps, or nil.
// An empty self excludes nothing.
func FindConflict(candidate generic.Period, alterations []generic.Alteration, self generic.AlterationID) *generic.OccupiedRangeError {
	for _, alt := range alterations {
		if self != "" && alt.ID == self {
			continue
		}
		occupied, ok := alt.RecoveryPeriod()
		if !ok {
			continue
		}
		if candidate.Overlaps(occupied) {
			return &generic.OccupiedRangeError{
				Requested:    candidate,
				AlterationID: alt.ID,
				Occupied:     occupied,
			}
		}
	}
	return nil
}

// DisabledDays lists the days of window a date picker must disable: each day
// is checked on its own as a one-day range.
func DisabledDays(window generic.Period, alterations []generic.Alteration, self generic.AlterationID) []generic.TimePoint {
	var disabled []generic.TimePoint
	for _, day := range window.Days() {
		if IsRangeOccupiedExcept(generic.Period{Start: day, End: day}, alterations, self) {
			disabled = append(disabled, day)
		}
	}
	return disabled
}
