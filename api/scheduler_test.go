package api

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/citybenefits/recovery-engine/generic"
	"github.com/citybenefits/recovery-engine/recovery"
)

func TestSessionSweeper_DropsIdleSessions(t *testing.T) {
	// GIVEN: Two sessions, one touched recently
	now := time.Date(2024, time.May, 2, 9, 0, 0, 0, time.UTC)
	registry := recovery.NewSessionRegistry()
	registry.SetClock(func() time.Time { return now })

	idle := registry.Open(generic.Alteration{ID: "alt-idle", ApplicationID: "app-1"})
	active := registry.Open(generic.Alteration{ID: "alt-active", ApplicationID: "app-1"})

	now = now.Add(20 * time.Minute)
	_, err := registry.Update(active.ID, func(s *recovery.Session) error { return nil })
	require.NoError(t, err)

	sweeper, err := NewSessionSweeper(registry, "@every 1m", 30*time.Minute, zerolog.Nop())
	require.NoError(t, err)

	// WHEN: Sweeping after the first session has been idle past the TTL
	now = now.Add(15 * time.Minute)
	expired := sweeper.Sweep()

	// THEN: Only the idle session is dropped
	assert.Equal(t, 1, expired)
	_, err = registry.Get(idle.ID)
	assert.ErrorIs(t, err, generic.ErrSessionNotFound)
	_, err = registry.Get(active.ID)
	assert.NoError(t, err)
}

func TestSessionSweeper_InvalidSchedule(t *testing.T) {
	_, err := NewSessionSweeper(recovery.NewSessionRegistry(), "every minute please", time.Minute, zerolog.Nop())

	assert.Error(t, err)
}

func TestSessionSweeper_StartStop(t *testing.T) {
	sweeper, err := NewSessionSweeper(recovery.NewSessionRegistry(), "*/1 * * * * *", time.Minute, zerolog.Nop())
	require.NoError(t, err)

	sweeper.Start()
	sweeper.Stop()
}
