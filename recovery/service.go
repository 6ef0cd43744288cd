package recovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// HANDLING SERVICE - Alteration lifecycle with transactional guarantees
// =============================================================================

type HandlingService struct {
	Store    generic.TxStore
	Sessions *SessionRegistry
	Log      zerolog.Logger
	Now      func() time.Time
}

func NewHandlingService(store generic.TxStore, sessions *SessionRegistry, log zerolog.Logger) *HandlingService {
	return &HandlingService{
		Store:    store,
		Sessions: sessions,
		Log:      log.With().Str("component", "handling").Logger(),
		Now:      time.Now,
	}
}

// NewAlteration describes an alteration reported for an application.
type NewAlteration struct {
	Type       generic.AlterationType
	EndDate    generic.TimePoint
	ResumeDate *generic.TimePoint
	Reason     string
}

// CreateAlteration records a received alteration.
func (hs *HandlingService) CreateAlteration(ctx context.Context, appID generic.ApplicationID, in NewAlteration) (*generic.Alteration, error) {
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: alteration type %q", generic.ErrInvalidFieldValue, in.Type)
	}
	if in.ResumeDate != nil && in.ResumeDate.Before(in.EndDate) {
		return nil, fmt.Errorf("%w: resume date before end date", generic.ErrInvalidPeriod)
	}
	if _, err := hs.Store.GetApplication(ctx, appID); err != nil {
		return nil, err
	}

	alt := generic.Alteration{
		ID:             generic.AlterationID(uuid.New().String()),
		ApplicationID:  appID,
		Type:           in.Type,
		State:          generic.AlterationReceived,
		EndDate:        in.EndDate,
		ResumeDate:     in.ResumeDate,
		Reason:         in.Reason,
		RecoveryAmount: generic.ZeroMoney(),
		CreatedAt:      hs.Now(),
	}
	if err := hs.Store.SaveAlteration(ctx, alt); err != nil {
		return nil, fmt.Errorf("failed to save alteration: %w", err)
	}

	hs.Log.Info().
		Str("application_id", string(appID)).
		Str("alteration_id", string(alt.ID)).
		Str("type", string(alt.Type)).
		Msg("Alteration received")
	return &alt, nil
}

// OpenSession starts handling an alteration. A received alteration moves to
// opened; a handled one can be reopened for correction.
func (hs *HandlingService) OpenSession(ctx context.Context, id generic.AlterationID) (Session, error) {
	var opened generic.Alteration
	err := hs.Store.WithTx(ctx, func(tx generic.Store) error {
		alt, err := tx.GetAlteration(ctx, id)
		if err != nil {
			return err
		}
		if alt.State == generic.AlterationCancelled {
			return fmt.Errorf("%w: alteration %s is cancelled", generic.ErrInvalidStateTransition, id)
		}
		if alt.State == generic.AlterationReceived {
			alt.State = generic.AlterationOpened
			if err := tx.SaveAlteration(ctx, *alt); err != nil {
				return fmt.Errorf("failed to open alteration: %w", err)
			}
		}
		opened = *alt
		return nil
	})
	if err != nil {
		return Session{}, err
	}

	s := hs.Sessions.Open(opened)
	hs.Log.Debug().
		Str("session_id", string(s.ID)).
		Str("alteration_id", string(id)).
		Msg("Handling session opened")
	return s, nil
}

// ReplaceCalculation swaps an application's calculation table. Open sessions
// of the application computed their amount from the old rows, so they turn
// stale and must be recalculated before submitting.
func (hs *HandlingService) ReplaceCalculation(ctx context.Context, appID generic.ApplicationID, rows []generic.CalculationRow) error {
	if err := hs.Store.ReplaceCalculationRows(ctx, appID, rows); err != nil {
		return err
	}

	marked := hs.Sessions.MarkStale(appID)
	hs.Log.Info().
		Str("application_id", string(appID)).
		Int("rows", len(rows)).
		Int("sessions_staled", marked).
		Msg("Calculation table replaced")
	return nil
}

// Edit applies one form edit to an open session.
func (hs *HandlingService) Edit(id generic.SessionID, field Field, value string) (Session, error) {
	return hs.Sessions.Update(id, func(s *Session) error {
		return s.Edit(field, value)
	})
}

// Calculate loads the application's calculation rows and alterations and
// runs the calculator for the session.
func (hs *HandlingService) Calculate(ctx context.Context, id generic.SessionID) (Session, CalculationResult, error) {
	snapshot, err := hs.Sessions.Get(id)
	if err != nil {
		return Session{}, CalculationResult{}, err
	}
	rows, err := hs.Store.CalculationRows(ctx, snapshot.ApplicationID)
	if err != nil {
		return Session{}, CalculationResult{}, fmt.Errorf("failed to load calculation rows: %w", err)
	}
	alterations, err := hs.Store.AlterationsByApplication(ctx, snapshot.ApplicationID)
	if err != nil {
		return Session{}, CalculationResult{}, fmt.Errorf("failed to load alterations: %w", err)
	}

	var result CalculationResult
	s, err := hs.Sessions.Update(id, func(s *Session) error {
		var calcErr error
		result, calcErr = s.Calculate(rows, alterations)
		return calcErr
	})
	if err != nil {
		return s, CalculationResult{}, err
	}

	ev := hs.Log.Debug().
		Str("session_id", string(id)).
		Str("total", result.Total.String()).
		Str("state", string(s.State))
	if result.Conflict != nil {
		ev = ev.Str("conflicts_with", string(result.Conflict.AlterationID))
	}
	ev.Msg("Recovery amount calculated")
	return s, result, nil
}

// =============================================================================
// SUBMIT - The critical transactional operation
// =============================================================================

// Submit marks the session's alteration handled with the calculated recovery.
// This is TRANSACTIONAL:
//   - Refuses stale or invalid sessions
//   - Re-checks the range against handled alterations inside the transaction
//   - Checks the range lies within the benefit period
//   - Writes the handled alteration
//
// A conflict found at submit time flips the session to invalid. The session
// is discarded after a successful submit.
func (hs *HandlingService) Submit(ctx context.Context, id generic.SessionID, handlerID string) (*generic.Alteration, error) {
	var handled generic.Alteration
	_, err := hs.Sessions.Update(id, func(s *Session) error {
		if err := s.CheckSubmittable(); err != nil {
			return err
		}
		candidate, err := s.Range.Period()
		if err != nil {
			return err
		}
		if err := candidate.Validate(); err != nil {
			return err
		}
		amount, err := ParseMonetaryAmount(s.Range.RecoveryAmount)
		if err != nil {
			return fmt.Errorf("recovery amount: %w", err)
		}

		err = hs.Store.WithTx(ctx, func(tx generic.Store) error {
			alt, err := tx.GetAlteration(ctx, s.AlterationID)
			if err != nil {
				return err
			}
			if !alt.State.CanTransitionTo(generic.AlterationHandled) {
				return fmt.Errorf("%w: %s -> %s", generic.ErrInvalidStateTransition, alt.State, generic.AlterationHandled)
			}

			app, err := tx.GetApplication(ctx, alt.ApplicationID)
			if err != nil {
				return err
			}
			if !app.BenefitPeriod().ContainsPeriod(candidate) {
				return fmt.Errorf("%w: %s not within %s", generic.ErrOutsideBenefitPeriod, candidate, app.BenefitPeriod())
			}

			others, err := tx.AlterationsByApplication(ctx, alt.ApplicationID)
			if err != nil {
				return fmt.Errorf("failed to load alterations: %w", err)
			}
			if conflict := FindConflict(candidate, others, alt.ID); conflict != nil {
				return conflict
			}

			now := hs.Now()
			start, end := candidate.Start, candidate.End
			alt.State = generic.AlterationHandled
			alt.RecoveryStartDate = &start
			alt.RecoveryEndDate = &end
			alt.RecoveryAmount = amount
			alt.IsManualAmount = s.Range.IsManual
			alt.RecoveryJustification = s.Range.RecoveryJustification
			alt.HandledAt = &now
			alt.HandledBy = handlerID

			if err := tx.SaveAlteration(ctx, *alt); err != nil {
				return fmt.Errorf("failed to save alteration: %w", err)
			}
			handled = *alt
			return nil
		})
		if errors.Is(err, generic.ErrRangeOccupied) {
			s.State = StalenessInvalid
		}
		return err
	})
	if err != nil {
		hs.Log.Warn().Err(err).Str("session_id", string(id)).Msg("Submit refused")
		return nil, err
	}

	hs.Sessions.Discard(id)
	hs.Log.Info().
		Str("alteration_id", string(handled.ID)).
		Str("handler", handlerID).
		Str("recovery_amount", handled.RecoveryAmount.String()).
		Str("recovery_start", handled.RecoveryStartDate.String()).
		Str("recovery_end", handled.RecoveryEndDate.String()).
		Msg("Alteration handled")
	return &handled, nil
}

// Cancel moves an alteration to cancelled. A cancelled handled alteration no
// longer occupies its recovery range.
func (hs *HandlingService) Cancel(ctx context.Context, id generic.AlterationID, actorID string) (*generic.Alteration, error) {
	var cancelled generic.Alteration
	err := hs.Store.WithTx(ctx, func(tx generic.Store) error {
		alt, err := tx.GetAlteration(ctx, id)
		if err != nil {
			return err
		}
		if !alt.State.CanTransitionTo(generic.AlterationCancelled) {
			return fmt.Errorf("%w: %s -> %s", generic.ErrInvalidStateTransition, alt.State, generic.AlterationCancelled)
		}
		alt.State = generic.AlterationCancelled
		if err := tx.SaveAlteration(ctx, *alt); err != nil {
			return fmt.Errorf("failed to save alteration: %w", err)
		}
		cancelled = *alt
		return nil
	})
	if err != nil {
		return nil, err
	}

	hs.Log.Info().
		Str("alteration_id", string(id)).
		Str("actor", actorID).
		Msg("Alteration cancelled")
	return &cancelled, nil
}
