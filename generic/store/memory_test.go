package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/generic/store"
)

func seedApplication(t *testing.T, s generic.Store) generic.Application {
	t.Helper()
	app := generic.Application{
		ID:                "app-1",
		ApplicationNumber: 1001,
		CompanyName:       "Oy Testi Ab",
		BenefitStart:      generic.NewTimePoint(2024, time.January, 1),
		BenefitEnd:        generic.NewTimePoint(2024, time.December, 31),
	}
	require.NoError(t, s.SaveApplication(context.Background(), app))
	return app
}

func TestMemory_AlterationsScopedToApplication(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	app := seedApplication(t, m)

	alt := generic.Alteration{
		ID:            "alt-1",
		ApplicationID: app.ID,
		Type:          generic.AlterationTermination,
		State:         generic.AlterationReceived,
		EndDate:       generic.NewTimePoint(2024, time.June, 30),
	}
	require.NoError(t, m.SaveAlteration(ctx, alt))

	got, err := m.AlterationsByApplication(ctx, app.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	other, err := m.AlterationsByApplication(ctx, "app-other")
	require.NoError(t, err)
	assert.Empty(t, other)

	_, err = m.GetAlteration(ctx, "missing")
	assert.True(t, generic.IsNotFound(err))

	orphan := alt
	orphan.ID, orphan.ApplicationID = "alt-2", "app-other"
	assert.ErrorIs(t, m.SaveAlteration(ctx, orphan), generic.ErrApplicationNotFound)
}

func TestTxMemory_RollsBackOnError(t *testing.T) {
	// GIVEN: A transactional store with one application
	ctx := context.Background()
	m := store.NewTxMemory()
	app := seedApplication(t, m)
	boom := errors.New("boom")

	// WHEN: A transaction writes an alteration and then fails
	err := m.WithTx(ctx, func(tx generic.Store) error {
		if err := tx.SaveAlteration(ctx, generic.Alteration{ID: "alt-1", ApplicationID: app.ID}); err != nil {
			return err
		}
		return boom
	})

	// THEN: The write is gone
	assert.ErrorIs(t, err, boom)
	_, err = m.GetAlteration(ctx, "alt-1")
	assert.ErrorIs(t, err, generic.ErrAlterationNotFound)
}

func TestTxMemory_CommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()
	app := seedApplication(t, m)

	rows := []generic.CalculationRow{{Amount: generic.NewMoneyFromInt(300), Duration: 3}}
	err := m.WithTx(ctx, func(tx generic.Store) error {
		return tx.ReplaceCalculationRows(ctx, app.ID, rows)
	})
	require.NoError(t, err)

	got, err := m.CalculationRows(ctx, app.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "300.00", got[0].Amount.String())
}

func TestMemory_DuplicateApplicationNumber(t *testing.T) {
	ctx := context.Background()
	m := store.NewTxMemory()
	app := seedApplication(t, m)

	other := app
	other.ID = "app-2"
	assert.ErrorIs(t, m.SaveApplication(ctx, other), generic.ErrDuplicateApplicationNumber)

	err := m.WithTx(ctx, func(tx generic.Store) error {
		return tx.SaveApplication(ctx, other)
	})
	assert.ErrorIs(t, err, generic.ErrDuplicateApplicationNumber)

	app.CompanyName = "Oy Uusi Nimi Ab"
	require.NoError(t, m.SaveApplication(ctx, app))
}
