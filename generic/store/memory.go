// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/citybenefits/recovery-engine/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu           sync.RWMutex
	applications map[generic.ApplicationID]generic.Application
	rows         map[generic.ApplicationID][]generic.CalculationRow
	alterations  map[generic.AlterationID]generic.Alteration
}

func NewMemory() *Memory {
	return &Memory{
		applications: make(map[generic.ApplicationID]generic.Application),
		rows:         make(map[generic.ApplicationID][]generic.CalculationRow),
		alterations:  make(map[generic.AlterationID]generic.Alteration),
	}
}

func (m *Memory) SaveApplication(_ context.Context, app generic.Application) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveApplicationLocked(app)
}

func (m *Memory) saveApplicationLocked(app generic.Application) error {
	for id, other := range m.applications {
		if id != app.ID && other.ApplicationNumber == app.ApplicationNumber {
			return fmt.Errorf("%w: %d", generic.ErrDuplicateApplicationNumber, app.ApplicationNumber)
		}
	}
	m.applications[app.ID] = app
	return nil
}

func (m *Memory) GetApplication(_ context.Context, id generic.ApplicationID) (*generic.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getApplicationLocked(id)
}

func (m *Memory) getApplicationLocked(id generic.ApplicationID) (*generic.Application, error) {
	app, ok := m.applications[id]
	if !ok {
		return nil, generic.ErrApplicationNotFound
	}
	return &app, nil
}

func (m *Memory) ListApplications(_ context.Context) ([]generic.Application, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]generic.Application, 0, len(m.applications))
	for _, app := range m.applications {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ApplicationNumber < result[j].ApplicationNumber })
	return result, nil
}

func (m *Memory) ReplaceCalculationRows(_ context.Context, id generic.ApplicationID, rows []generic.CalculationRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceRowsLocked(id, rows)
}

func (m *Memory) replaceRowsLocked(id generic.ApplicationID, rows []generic.CalculationRow) error {
	if _, ok := m.applications[id]; !ok {
		return generic.ErrApplicationNotFound
	}
	m.rows[id] = append([]generic.CalculationRow(nil), rows...)
	return nil
}

func (m *Memory) CalculationRows(_ context.Context, id generic.ApplicationID) ([]generic.CalculationRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rowsLocked(id), nil
}

func (m *Memory) rowsLocked(id generic.ApplicationID) []generic.CalculationRow {
	result := make([]generic.CalculationRow, len(m.rows[id]))
	copy(result, m.rows[id])
	return result
}

func (m *Memory) SaveAlteration(_ context.Context, alt generic.Alteration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveAlterationLocked(alt)
}

func (m *Memory) saveAlterationLocked(alt generic.Alteration) error {
	if _, ok := m.applications[alt.ApplicationID]; !ok {
		return generic.ErrApplicationNotFound
	}
	m.alterations[alt.ID] = alt
	return nil
}

func (m *Memory) GetAlteration(_ context.Context, id generic.AlterationID) (*generic.Alteration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getAlterationLocked(id)
}

func (m *Memory) getAlterationLocked(id generic.AlterationID) (*generic.Alteration, error) {
	alt, ok := m.alterations[id]
	if !ok {
		return nil, generic.ErrAlterationNotFound
	}
	return &alt, nil
}

func (m *Memory) AlterationsByApplication(_ context.Context, id generic.ApplicationID) ([]generic.Alteration, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.alterationsLocked(id), nil
}

func (m *Memory) alterationsLocked(id generic.ApplicationID) []generic.Alteration {
	var result []generic.Alteration
	for _, alt := range m.alterations {
		if alt.ApplicationID == id {
			result = append(result, alt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For memory store, this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(generic.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()
	view := &txMemoryView{parent: tm.Memory}

	if err := fn(view); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	applications map[generic.ApplicationID]generic.Application
	rows         map[generic.ApplicationID][]generic.CalculationRow
	alterations  map[generic.AlterationID]generic.Alteration
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		applications: make(map[generic.ApplicationID]generic.Application, len(tm.applications)),
		rows:         make(map[generic.ApplicationID][]generic.CalculationRow, len(tm.rows)),
		alterations:  make(map[generic.AlterationID]generic.Alteration, len(tm.alterations)),
	}
	for k, v := range tm.applications {
		s.applications[k] = v
	}
	for k, v := range tm.rows {
		s.rows[k] = append([]generic.CalculationRow(nil), v...)
	}
	for k, v := range tm.alterations {
		s.alterations[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.applications = s.applications
	tm.rows = s.rows
	tm.alterations = s.alterations
}

// txMemoryView runs with the parent lock already held.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SaveApplication(_ context.Context, app generic.Application) error {
	return tv.parent.saveApplicationLocked(app)
}

func (tv *txMemoryView) GetApplication(_ context.Context, id generic.ApplicationID) (*generic.Application, error) {
	return tv.parent.getApplicationLocked(id)
}

func (tv *txMemoryView) ListApplications(_ context.Context) ([]generic.Application, error) {
	result := make([]generic.Application, 0, len(tv.parent.applications))
	for _, app := range tv.parent.applications {
		result = append(result, app)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ApplicationNumber < result[j].ApplicationNumber })
	return result, nil
}

func (tv *txMemoryView) ReplaceCalculationRows(_ context.Context, id generic.ApplicationID, rows []generic.CalculationRow) error {
	return tv.parent.replaceRowsLocked(id, rows)
}

func (tv *txMemoryView) CalculationRows(_ context.Context, id generic.ApplicationID) ([]generic.CalculationRow, error) {
	return tv.parent.rowsLocked(id), nil
}

func (tv *txMemoryView) SaveAlteration(_ context.Context, alt generic.Alteration) error {
	return tv.parent.saveAlterationLocked(alt)
}

func (tv *txMemoryView) GetAlteration(_ context.Context, id generic.AlterationID) (*generic.Alteration, error) {
	return tv.parent.getAlterationLocked(id)
}

func (tv *txMemoryView) AlterationsByApplication(_ context.Context, id generic.ApplicationID) ([]generic.Alteration, error) {
	return tv.parent.alterationsLocked(id), nil
}

// Reset clears all data (for testing/demo).
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.applications = make(map[generic.ApplicationID]generic.Application)
	m.rows = make(map[generic.ApplicationID][]generic.CalculationRow)
	m.alterations = make(map[generic.AlterationID]generic.Alteration)
	return nil
}
