/*
store.go - Persistence interface for applications, calculation rows and alterations

PURPOSE:
  Defines the interface between the recovery logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  ApplicationStore: Applications and their calculation tables
  AlterationStore:  Alterations and their handling outcome
  TxStore:          Transactional operations (atomic read-check-write)

ATOMIC HANDLING:
  Marking an alteration handled must re-check the occupied ranges and write
  the new state in one step, otherwise two handlers could claim overlapping
  ranges. HandlingService does this inside WithTx.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: Production SQLite
  - generic/store/memory.go: In-memory for testing

SEE ALSO:
  - recovery/service.go: Uses TxStore
  - store/sqlite/sqlite.go: Concrete implementation
*/
package generic

import "context"

// ApplicationStore persists applications and their calculation tables.
type ApplicationStore interface {
	// SaveApplication inserts or replaces an application. Application numbers
	// are unique; reusing one returns ErrDuplicateApplicationNumber.
	SaveApplication(ctx context.Context, app Application) error

	// GetApplication returns ErrApplicationNotFound when the ID is unknown.
	GetApplication(ctx context.Context, id ApplicationID) (*Application, error)

	ListApplications(ctx context.Context) ([]Application, error)

	// ReplaceCalculationRows swaps the whole calculation table of an application.
	ReplaceCalculationRows(ctx context.Context, id ApplicationID, rows []CalculationRow) error

	// CalculationRows returns rows in table order.
	CalculationRows(ctx context.Context, id ApplicationID) ([]CalculationRow, error)
}

// AlterationStore persists alterations.
type AlterationStore interface {
	// SaveAlteration inserts or replaces an alteration.
	SaveAlteration(ctx context.Context, alt Alteration) error

	// GetAlteration returns ErrAlterationNotFound when the ID is unknown.
	GetAlteration(ctx context.Context, id AlterationID) (*Alteration, error)

	// AlterationsByApplication returns every alteration of an application, any state.
	AlterationsByApplication(ctx context.Context, id ApplicationID) ([]Alteration, error)
}

// Store is everything the recovery engine reads and writes.
type Store interface {
	ApplicationStore
	AlterationStore
}

// TxStore wraps Store with transaction support.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, transaction is rolled back.
	// If fn returns nil, transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}
