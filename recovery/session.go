package recovery

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// SESSION - One handler editing one alteration
// =============================================================================

// Session is the explicit form state of an alteration being handled. It is
// not persisted: closing the form or submitting discards it.
type Session struct {
	ID            generic.SessionID
	AlterationID  generic.AlterationID
	ApplicationID generic.ApplicationID
	Range         ProposedRecoveryRange
	State         Staleness
	Result        *CalculationResult
	OpenedAt      time.Time
	LastActivity  time.Time
}

// NewSession starts a session pre-populated from the alteration's current
// recovery fields. Nothing is calculated yet, so the state is stale.
func NewSession(id generic.SessionID, alt generic.Alteration, now time.Time) *Session {
	r := ProposedRecoveryRange{
		IsManual:              alt.IsManualAmount,
		RecoveryJustification: alt.RecoveryJustification,
	}
	if alt.RecoveryStartDate != nil {
		r.RecoveryStartDate = alt.RecoveryStartDate.String()
	}
	if alt.RecoveryEndDate != nil {
		r.RecoveryEndDate = alt.RecoveryEndDate.String()
	}
	if !alt.RecoveryAmount.IsZero() {
		r.RecoveryAmount = alt.RecoveryAmount.String()
		if alt.IsManualAmount {
			r.ManualRecoveryAmount = r.RecoveryAmount
		}
	}
	return &Session{
		ID:            id,
		AlterationID:  alt.ID,
		ApplicationID: alt.ApplicationID,
		Range:         r,
		State:         InitialStaleness,
		OpenedAt:      now,
		LastActivity:  now,
	}
}

// Edit applies a field edit through RecordEdit.
func (s *Session) Edit(field Field, value string) error {
	r, state, err := RecordEdit(s.Range, s.State, field, value)
	if err != nil {
		return err
	}
	s.Range, s.State = r, state
	return nil
}

// Calculate runs the calculator on the session's range, excluding the
// session's own alteration from the occupied ranges, and records the outcome.
// A failed calculation leaves the session unchanged.
func (s *Session) Calculate(rows []generic.CalculationRow, alterations []generic.Alteration) (CalculationResult, error) {
	result, err := CalculateRecoveryAmountExcept(s.Range, rows, alterations, s.AlterationID)
	if err != nil {
		return CalculationResult{}, err
	}
	s.Range = result.Apply(s.Range)
	s.State = s.State.Observe(result)
	s.Result = &result
	return result, nil
}

// CheckSubmittable returns nil when the recovery amount matches the inputs.
func (s *Session) CheckSubmittable() error {
	return s.State.CheckSubmittable()
}

// =============================================================================
// SESSION REGISTRY - Process-local open sessions
// =============================================================================

// SessionRegistry keeps open sessions in memory. All access to a session goes
// through the registry lock.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[generic.SessionID]*Session
	now      func() time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[generic.SessionID]*Session),
		now:      time.Now,
	}
}

// SetClock replaces the registry's time source.
func (sr *SessionRegistry) SetClock(now func() time.Time) {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	sr.now = now
}

// Open creates a session for alt and returns a snapshot of it.
func (sr *SessionRegistry) Open(alt generic.Alteration) Session {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s := NewSession(generic.SessionID(uuid.New().String()), alt, sr.now())
	sr.sessions[s.ID] = s
	return *s
}

// Get returns a snapshot of the session.
func (sr *SessionRegistry) Get(id generic.SessionID) (Session, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s, ok := sr.sessions[id]
	if !ok {
		return Session{}, generic.ErrSessionNotFound
	}
	return *s, nil
}

// Update runs fn on the live session under the registry lock and returns a
// snapshot afterwards. Whatever fn changed is kept, even if it returns an error.
func (sr *SessionRegistry) Update(id generic.SessionID, fn func(*Session) error) (Session, error) {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	s, ok := sr.sessions[id]
	if !ok {
		return Session{}, generic.ErrSessionNotFound
	}
	s.LastActivity = sr.now()
	err := fn(s)
	return *s, err
}

// Discard drops a session. Reports whether it existed.
func (sr *SessionRegistry) Discard(id generic.SessionID) bool {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	_, ok := sr.sessions[id]
	delete(sr.sessions, id)
	return ok
}

// ExpireIdle drops sessions idle for longer than ttl and returns how many.
func (sr *SessionRegistry) ExpireIdle(ttl time.Duration) int {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	cutoff := sr.now().Add(-ttl)
	expired := 0
	for id, s := range sr.sessions {
		if s.LastActivity.Before(cutoff) {
			delete(sr.sessions, id)
			expired++
		}
	}
	return expired
}

// MarkStale makes every session of an application stale, for when its
// calculation table changed underneath. Returns how many changed state.
func (sr *SessionRegistry) MarkStale(appID generic.ApplicationID) int {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	marked := 0
	for _, s := range sr.sessions {
		if s.ApplicationID == appID && s.State != StalenessStale {
			s.State = StalenessStale
			marked++
		}
	}
	return marked
}

// Clear drops every session and returns how many were open.
func (sr *SessionRegistry) Clear() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	n := len(sr.sessions)
	sr.sessions = make(map[generic.SessionID]*Session)
	return n
}

// Len returns the number of open sessions.
func (sr *SessionRegistry) Len() int {
	sr.mu.Lock()
	defer sr.mu.Unlock()
	return len(sr.sessions)
}
