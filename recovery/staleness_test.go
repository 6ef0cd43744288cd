package recovery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

func TestStaleness_Transitions(t *testing.T) {
	// GIVEN: A new session state
	state := recovery.InitialStaleness
	r := automatic("2023-02-01", "2023-02-28")
	assert.Equal(t, recovery.StalenessStale, state)
	assert.ErrorIs(t, state.CheckSubmittable(), generic.ErrStaleCalculation)

	// WHEN: A non-conflicting calculation runs
	res, err := recovery.CalculateRecoveryAmount(r, []generic.CalculationRow{firstQuarter()}, nil)
	require.NoError(t, err)
	state = state.Observe(res)

	// THEN: Fresh
	assert.Equal(t, recovery.StalenessFresh, state)
	assert.NoError(t, state.CheckSubmittable())

	// WHEN: A date is edited
	r, state, err = recovery.RecordEdit(r, state, recovery.FieldRecoveryEndDate, "2023-03-31")

	// THEN: Stale again without another calculation
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessStale, state)
	assert.Equal(t, "2023-03-31", r.RecoveryEndDate)
}

func TestStaleness_InvalidAfterConflict(t *testing.T) {
	alts := []generic.Alteration{handled("alt-1", date(2023, time.February, 1), date(2023, time.February, 28))}
	res, err := recovery.CalculateRecoveryAmount(automatic("2023-02-01", "2023-02-28"), nil, alts)
	require.NoError(t, err)

	state := recovery.StalenessFresh.Observe(res)

	assert.Equal(t, recovery.StalenessInvalid, state)
	assert.ErrorIs(t, state.CheckSubmittable(), generic.ErrRangeOccupied)

	_, state, err = recovery.RecordEdit(automatic("", ""), state, recovery.FieldRecoveryStartDate, "2023-03-01")
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessStale, state)
}

func TestRecordEdit_EveryCalculationInputStales(t *testing.T) {
	edits := []struct {
		field recovery.Field
		value string
	}{
		{recovery.FieldRecoveryStartDate, "2023-01-01"},
		{recovery.FieldRecoveryEndDate, "2023-01-31"},
		{recovery.FieldManualRecoveryAmount, "10"},
		{recovery.FieldIsManual, "true"},
	}
	for _, e := range edits {
		t.Run(string(e.field), func(t *testing.T) {
			_, state, err := recovery.RecordEdit(recovery.ProposedRecoveryRange{}, recovery.StalenessFresh, e.field, e.value)
			require.NoError(t, err)
			assert.Equal(t, recovery.StalenessStale, state)
		})
	}
}

func TestRecordEdit_SameValueStillStales(t *testing.T) {
	r := automatic("2023-01-01", "2023-01-31")
	_, state, err := recovery.RecordEdit(r, recovery.StalenessFresh, recovery.FieldRecoveryStartDate, "2023-01-01")
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessStale, state)
}

func TestRecordEdit_JustificationKeepsState(t *testing.T) {
	r, state, err := recovery.RecordEdit(recovery.ProposedRecoveryRange{}, recovery.StalenessFresh, recovery.FieldRecoveryJustification, "Employment ended early")
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessFresh, state)
	assert.Equal(t, "Employment ended early", r.RecoveryJustification)
}

func TestRecordEdit_RejectsBadInput(t *testing.T) {
	original := automatic("2023-01-01", "2023-01-31")

	r, state, err := recovery.RecordEdit(original, recovery.StalenessFresh, recovery.FieldIsManual, "maybe")
	assert.ErrorIs(t, err, generic.ErrInvalidFieldValue)
	assert.Equal(t, original, r)
	assert.Equal(t, recovery.StalenessFresh, state)

	_, state, err = recovery.RecordEdit(original, recovery.StalenessFresh, "recovery_amount", "1")
	assert.ErrorIs(t, err, generic.ErrUnknownField)
	assert.Equal(t, recovery.StalenessFresh, state)
}
