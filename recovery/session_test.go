package recovery_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

func TestNewSession_PrepopulatesFromHandledAlteration(t *testing.T) {
	alt := handled("alt-1", date(2023, time.March, 1), date(2023, time.March, 31))
	alt.RecoveryAmount = generic.MustParseMoney("450")
	alt.IsManualAmount = true

	s := recovery.NewSession("s-1", alt, time.Now())

	assert.Equal(t, "2023-03-01", s.Range.RecoveryStartDate)
	assert.Equal(t, "2023-03-31", s.Range.RecoveryEndDate)
	assert.Equal(t, "450.00", s.Range.ManualRecoveryAmount)
	assert.True(t, s.Range.IsManual)
	assert.Equal(t, recovery.StalenessStale, s.State)
}

func TestSession_EditCalculateEdit(t *testing.T) {
	// GIVEN: A session over a received alteration
	alt := generic.Alteration{ID: "alt-1", ApplicationID: "app-1", State: generic.AlterationReceived}
	s := recovery.NewSession("s-1", alt, time.Now())
	rows := []generic.CalculationRow{firstQuarter()}

	// WHEN: Dates are entered and calculated
	require.NoError(t, s.Edit(recovery.FieldRecoveryStartDate, "1.2.2023"))
	require.NoError(t, s.Edit(recovery.FieldRecoveryEndDate, "28.2.2023"))
	res, err := s.Calculate(rows, nil)

	// THEN: The amount is written back and the session is fresh
	require.NoError(t, err)
	assert.Equal(t, "100.00", res.Total.String())
	assert.Equal(t, "100.00", s.Range.RecoveryAmount)
	assert.Equal(t, recovery.StalenessFresh, s.State)
	assert.NoError(t, s.CheckSubmittable())

	// WHEN: Switching to manual mode
	require.NoError(t, s.Edit(recovery.FieldIsManual, "true"))

	// THEN: Out of date until recalculated
	assert.ErrorIs(t, s.CheckSubmittable(), generic.ErrStaleCalculation)
}

func TestSession_FailedCalculationKeepsState(t *testing.T) {
	s := recovery.NewSession("s-1", generic.Alteration{ID: "alt-1"}, time.Now())
	require.NoError(t, s.Edit(recovery.FieldRecoveryStartDate, "2023-01-01"))

	_, err := s.Calculate(nil, nil)

	assert.ErrorIs(t, err, generic.ErrIncompleteRange)
	assert.Equal(t, recovery.StalenessStale, s.State)
	assert.Nil(t, s.Result)
}

func TestSessionRegistry_ExpireIdle(t *testing.T) {
	// GIVEN: Two sessions, one touched later
	reg := recovery.NewSessionRegistry()
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	reg.SetClock(func() time.Time { return now })

	old := reg.Open(generic.Alteration{ID: "alt-1"})
	now = now.Add(20 * time.Minute)
	recent := reg.Open(generic.Alteration{ID: "alt-2"})
	now = now.Add(15 * time.Minute)

	// WHEN: Sweeping with a 30 minute TTL
	expired := reg.ExpireIdle(30 * time.Minute)

	// THEN: Only the idle one is gone
	assert.Equal(t, 1, expired)
	_, err := reg.Get(old.ID)
	assert.ErrorIs(t, err, generic.ErrSessionNotFound)
	_, err = reg.Get(recent.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestSessionRegistry_UpdateAndDiscard(t *testing.T) {
	reg := recovery.NewSessionRegistry()
	s := reg.Open(generic.Alteration{ID: "alt-1"})

	updated, err := reg.Update(s.ID, func(s *recovery.Session) error {
		return s.Edit(recovery.FieldRecoveryStartDate, "2023-01-01")
	})
	require.NoError(t, err)
	assert.Equal(t, "2023-01-01", updated.Range.RecoveryStartDate)

	assert.True(t, reg.Discard(s.ID))
	assert.False(t, reg.Discard(s.ID))

	_, err = reg.Update(s.ID, func(*recovery.Session) error { return nil })
	assert.ErrorIs(t, err, generic.ErrSessionNotFound)
}

func TestSessionRegistry_Clear(t *testing.T) {
	reg := recovery.NewSessionRegistry()
	reg.Open(generic.Alteration{ID: "alt-1"})
	reg.Open(generic.Alteration{ID: "alt-2"})

	assert.Equal(t, 2, reg.Clear())
	assert.Zero(t, reg.Len())
}

func TestSessionRegistry_MarkStale(t *testing.T) {
	// GIVEN: Fresh sessions on two applications
	reg := recovery.NewSessionRegistry()
	rows := []generic.CalculationRow{firstQuarter()}
	calculate := func(s *recovery.Session) error {
		if err := s.Edit(recovery.FieldRecoveryStartDate, "2023-02-01"); err != nil {
			return err
		}
		if err := s.Edit(recovery.FieldRecoveryEndDate, "2023-02-28"); err != nil {
			return err
		}
		_, err := s.Calculate(rows, nil)
		return err
	}

	a := reg.Open(generic.Alteration{ID: "alt-1", ApplicationID: "app-1"})
	reg.Open(generic.Alteration{ID: "alt-2", ApplicationID: "app-1"})
	b := reg.Open(generic.Alteration{ID: "alt-3", ApplicationID: "app-2"})
	_, err := reg.Update(a.ID, calculate)
	require.NoError(t, err)
	_, err = reg.Update(b.ID, calculate)
	require.NoError(t, err)

	// WHEN: The first application's table changes
	marked := reg.MarkStale("app-1")

	// THEN: Only its fresh session changed state
	assert.Equal(t, 1, marked)
	got, err := reg.Get(a.ID)
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessStale, got.State)
	assert.ErrorIs(t, got.CheckSubmittable(), generic.ErrStaleCalculation)

	other, err := reg.Get(b.ID)
	require.NoError(t, err)
	assert.Equal(t, recovery.StalenessFresh, other.State)
}
