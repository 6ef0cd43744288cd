/*
scheduler.go - Idle handling session sweeper

PURPOSE:
  Handling sessions live in memory while a handler edits an alteration.
  A handler who closes the browser never discards theirs, so a cron job
  periodically drops sessions idle longer than the configured TTL.

DESIGN:
  - robfig/cron scheduler with seconds precision
  - One job, ExpireIdle on the session registry
  - Stop waits for a running sweep to finish

CONFIGURATION:
  - Schedule: cron spec or descriptor (default: "@every 1m")
  - TTL: idle time before a session is dropped (default: 30m)

USAGE:
  sweeper, err := NewSessionSweeper(registry, "@every 1m", 30*time.Minute, log)
  sweeper.Start()
  // ... later
  sweeper.Stop()

SEE ALSO:
  - recovery/session.go: SessionRegistry.ExpireIdle
  - config/config.go: SESSION_TTL, SWEEP_SCHEDULE
*/
package api

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/citybenefits/recovery-engine/recovery"
)

// SessionSweeper discards idle handling sessions on a schedule.
type SessionSweeper struct {
	Sessions *recovery.SessionRegistry
	TTL      time.Duration

	cron *cron.Cron
	log  zerolog.Logger
}

// NewSessionSweeper registers the sweep job. The scheduler is not started.
func NewSessionSweeper(sessions *recovery.SessionRegistry, schedule string, ttl time.Duration, log zerolog.Logger) (*SessionSweeper, error) {
	ss := &SessionSweeper{
		Sessions: sessions,
		TTL:      ttl,
		cron:     cron.New(cron.WithSeconds()),
		log:      log.With().Str("component", "session_sweeper").Logger(),
	}

	if _, err := ss.cron.AddFunc(schedule, func() { ss.Sweep() }); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}

	ss.log.Info().
		Str("schedule", schedule).
		Dur("ttl", ttl).
		Msg("Session sweep registered")
	return ss, nil
}

// Start begins the scheduler.
func (ss *SessionSweeper) Start() {
	ss.cron.Start()
	ss.log.Info().Msg("Session sweeper started")
}

// Stop stops the scheduler and waits for a running sweep.
func (ss *SessionSweeper) Stop() {
	ctx := ss.cron.Stop()
	<-ctx.Done()
	ss.log.Info().Msg("Session sweeper stopped")
}

// Sweep drops idle sessions once and returns how many were dropped.
func (ss *SessionSweeper) Sweep() int {
	expired := ss.Sessions.ExpireIdle(ss.TTL)
	if expired > 0 {
		ss.log.Info().
			Int("expired", expired).
			Int("open", ss.Sessions.Len()).
			Msg("Idle handling sessions discarded")
	} else {
		ss.log.Debug().Int("open", ss.Sessions.Len()).Msg("No idle handling sessions")
	}
	return expired
}
