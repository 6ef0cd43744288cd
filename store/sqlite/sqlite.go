/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements generic.TxStore using SQLite. Applications, their calculation
  tables and their alterations live in three tables. Money is stored as
  decimal TEXT so no float rounding creeps into recovery amounts.

INTERFACES IMPLEMENTED:
  generic.ApplicationStore: Applications and calculation rows
  generic.AlterationStore:  Alterations and their handling outcome
  generic.TxStore:          Atomic read-check-write for handling

KEY TABLES:
  applications:     Accepted benefits (benefit period, company, employee)
  calculation_rows: Upstream calculation table, ordered by position
  alterations:      Terminations/suspensions and the recovery range decided

INDEXES:
  - idx_alterations_application: Occupancy lookups per application (hot path)
  - idx_applications_number:     Unique human-facing application number

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction and routes every read through the sql.Tx, so the
  occupancy check and the state write see the same snapshot.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

  ":memory:" databases are pinned to one connection; every pooled
  connection would otherwise get its own empty database.

USAGE:
  store, err := sqlite.New("./data/recovery.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := recovery.NewHandlingService(store, recovery.NewSessionRegistry(), log)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - generic/store.go: Interface definitions
  - generic/store/memory.go: In-memory implementation for testing
  - recovery/service.go: Runs handling inside WithTx
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/citybenefits/recovery-engine/generic"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Store implements generic.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// dbtx is satisfied by both *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS applications (
		id TEXT PRIMARY KEY,
		application_number INTEGER NOT NULL,
		company_name TEXT NOT NULL DEFAULT '',
		employee_name TEXT NOT NULL DEFAULT '',
		benefit_start TEXT NOT NULL,
		benefit_end TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_applications_number
		ON applications(application_number);

	-- Calculation table rows, replaced as a whole
	CREATE TABLE IF NOT EXISTS calculation_rows (
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		start_date TEXT,
		end_date TEXT,
		amount TEXT NOT NULL,
		duration INTEGER NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (application_id, position)
	);

	CREATE TABLE IF NOT EXISTS alterations (
		id TEXT PRIMARY KEY,
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		alteration_type TEXT NOT NULL,
		state TEXT NOT NULL DEFAULT 'received',
		end_date TEXT NOT NULL,
		resume_date TEXT,
		reason TEXT NOT NULL DEFAULT '',
		recovery_start_date TEXT,
		recovery_end_date TEXT,
		recovery_amount TEXT NOT NULL DEFAULT '0',
		recovery_justification TEXT NOT NULL DEFAULT '',
		is_manual_amount BOOLEAN NOT NULL DEFAULT FALSE,
		handled_at TEXT,
		handled_by TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Occupancy checks load every alteration of one application
	CREATE INDEX IF NOT EXISTS idx_alterations_application
		ON alterations(application_id, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// APPLICATION STORE (generic.ApplicationStore interface)
// =============================================================================

// SaveApplication inserts or updates an application.
func (s *Store) SaveApplication(ctx context.Context, app generic.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveApplication(ctx, s.db, app)
}

// GetApplication retrieves an application by ID.
func (s *Store) GetApplication(ctx context.Context, id generic.ApplicationID) (*generic.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getApplication(ctx, s.db, id)
}

// ListApplications returns all applications ordered by application number.
func (s *Store) ListApplications(ctx context.Context) ([]generic.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listApplications(ctx, s.db)
}

// ReplaceCalculationRows swaps an application's calculation table atomically.
func (s *Store) ReplaceCalculationRows(ctx context.Context, id generic.ApplicationID, rows []generic.CalculationRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := replaceCalculationRows(ctx, sqlTx, id, rows); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// CalculationRows returns an application's rows in table order.
func (s *Store) CalculationRows(ctx context.Context, id generic.ApplicationID) ([]generic.CalculationRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return calculationRows(ctx, s.db, id)
}

func saveApplication(ctx context.Context, db dbtx, app generic.Application) error {
	createdAt := app.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
		INSERT INTO applications
		(id, application_number, company_name, employee_name, benefit_start, benefit_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			application_number = excluded.application_number,
			company_name = excluded.company_name,
			employee_name = excluded.employee_name,
			benefit_start = excluded.benefit_start,
			benefit_end = excluded.benefit_end
	`

	_, err := db.ExecContext(ctx, query,
		app.ID,
		app.ApplicationNumber,
		app.CompanyName,
		app.EmployeeName,
		app.BenefitStart.String(),
		app.BenefitEnd.String(),
		formatTime(createdAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %d", generic.ErrDuplicateApplicationNumber, app.ApplicationNumber)
	}
	if err != nil {
		return fmt.Errorf("failed to save application: %w", err)
	}
	return nil
}

// isUniqueViolation reports a UNIQUE index violation. The primary key is
// upserted, so on applications this is always the application number.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

const applicationColumns = `id, application_number, company_name, employee_name, benefit_start, benefit_end, created_at`

func getApplication(ctx context.Context, db dbtx, id generic.ApplicationID) (*generic.Application, error) {
	row := db.QueryRowContext(ctx, "SELECT "+applicationColumns+" FROM applications WHERE id = ?", id)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrApplicationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &app, nil
}

func listApplications(ctx context.Context, db dbtx) ([]generic.Application, error) {
	rows, err := db.QueryContext(ctx, "SELECT "+applicationColumns+" FROM applications ORDER BY application_number")
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []generic.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

func scanApplication(sc scanner) (generic.Application, error) {
	var (
		app                      generic.Application
		benefitStart, benefitEnd string
		createdAt                string
	)
	if err := sc.Scan(&app.ID, &app.ApplicationNumber, &app.CompanyName, &app.EmployeeName,
		&benefitStart, &benefitEnd, &createdAt); err != nil {
		return app, err
	}

	var err error
	if app.BenefitStart, err = generic.ParseDate(benefitStart); err != nil {
		return app, fmt.Errorf("application %s benefit_start: %w", app.ID, err)
	}
	if app.BenefitEnd, err = generic.ParseDate(benefitEnd); err != nil {
		return app, fmt.Errorf("application %s benefit_end: %w", app.ID, err)
	}
	app.CreatedAt = parseTime(createdAt)
	return app, nil
}

func applicationExists(ctx context.Context, db dbtx, id generic.ApplicationID) error {
	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM applications WHERE id = ?", id).Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		return generic.ErrApplicationNotFound
	}
	return nil
}

func replaceCalculationRows(ctx context.Context, db dbtx, id generic.ApplicationID, rows []generic.CalculationRow) error {
	if err := applicationExists(ctx, db, id); err != nil {
		return err
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM calculation_rows WHERE application_id = ?", id); err != nil {
		return fmt.Errorf("failed to clear calculation rows: %w", err)
	}

	query := `
		INSERT INTO calculation_rows
		(application_id, position, start_date, end_date, amount, duration, description)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	for i, r := range rows {
		_, err := db.ExecContext(ctx, query,
			id, i,
			nullDate(r.StartDate),
			nullDate(r.EndDate),
			r.Amount.Value.String(),
			r.Duration,
			r.Description,
		)
		if err != nil {
			return fmt.Errorf("failed to insert calculation row %d: %w", i, err)
		}
	}
	return nil
}

func calculationRows(ctx context.Context, db dbtx, id generic.ApplicationID) ([]generic.CalculationRow, error) {
	query := `
		SELECT start_date, end_date, amount, duration, description
		FROM calculation_rows
		WHERE application_id = ?
		ORDER BY position ASC
	`
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query calculation rows: %w", err)
	}
	defer rows.Close()

	var result []generic.CalculationRow
	for rows.Next() {
		var (
			r                  generic.CalculationRow
			startDate, endDate sql.NullString
			amount             string
		)
		if err := rows.Scan(&startDate, &endDate, &amount, &r.Duration, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan calculation row: %w", err)
		}
		if r.StartDate, err = parseNullDate(startDate); err != nil {
			return nil, err
		}
		if r.EndDate, err = parseNullDate(endDate); err != nil {
			return nil, err
		}
		if r.Amount, err = parseMoney(amount); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

// =============================================================================
// ALTERATION STORE (generic.AlterationStore interface)
// =============================================================================

// SaveAlteration inserts or replaces an alteration.
func (s *Store) SaveAlteration(ctx context.Context, alt generic.Alteration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveAlteration(ctx, s.db, alt)
}

// GetAlteration retrieves an alteration by ID.
func (s *Store) GetAlteration(ctx context.Context, id generic.AlterationID) (*generic.Alteration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAlteration(ctx, s.db, id)
}

// AlterationsByApplication returns every alteration of an application in creation order.
func (s *Store) AlterationsByApplication(ctx context.Context, id generic.ApplicationID) ([]generic.Alteration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return alterationsByApplication(ctx, s.db, id)
}

func saveAlteration(ctx context.Context, db dbtx, alt generic.Alteration) error {
	if err := applicationExists(ctx, db, alt.ApplicationID); err != nil {
		return err
	}

	createdAt := alt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	var handledAt *string
	if alt.HandledAt != nil {
		t := formatTime(*alt.HandledAt)
		handledAt = &t
	}

	query := `
		INSERT INTO alterations
		(id, application_id, alteration_type, state, end_date, resume_date, reason,
		 recovery_start_date, recovery_end_date, recovery_amount, recovery_justification,
		 is_manual_amount, handled_at, handled_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			alteration_type = excluded.alteration_type,
			state = excluded.state,
			end_date = excluded.end_date,
			resume_date = excluded.resume_date,
			reason = excluded.reason,
			recovery_start_date = excluded.recovery_start_date,
			recovery_end_date = excluded.recovery_end_date,
			recovery_amount = excluded.recovery_amount,
			recovery_justification = excluded.recovery_justification,
			is_manual_amount = excluded.is_manual_amount,
			handled_at = excluded.handled_at,
			handled_by = excluded.handled_by
	`

	_, err := db.ExecContext(ctx, query,
		alt.ID,
		alt.ApplicationID,
		string(alt.Type),
		string(alt.State),
		alt.EndDate.String(),
		nullDate(alt.ResumeDate),
		alt.Reason,
		nullDate(alt.RecoveryStartDate),
		nullDate(alt.RecoveryEndDate),
		alt.RecoveryAmount.Value.String(),
		alt.RecoveryJustification,
		alt.IsManualAmount,
		handledAt,
		alt.HandledBy,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save alteration: %w", err)
	}
	return nil
}

const alterationColumns = `id, application_id, alteration_type, state, end_date, resume_date, reason,
	recovery_start_date, recovery_end_date, recovery_amount, recovery_justification,
	is_manual_amount, handled_at, handled_by, created_at`

func getAlteration(ctx context.Context, db dbtx, id generic.AlterationID) (*generic.Alteration, error) {
	row := db.QueryRowContext(ctx, "SELECT "+alterationColumns+" FROM alterations WHERE id = ?", id)
	alt, err := scanAlteration(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, generic.ErrAlterationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &alt, nil
}

func alterationsByApplication(ctx context.Context, db dbtx, id generic.ApplicationID) ([]generic.Alteration, error) {
	query := "SELECT " + alterationColumns + " FROM alterations WHERE application_id = ? ORDER BY created_at ASC, id ASC"
	rows, err := db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query alterations: %w", err)
	}
	defer rows.Close()

	var alts []generic.Alteration
	for rows.Next() {
		alt, err := scanAlteration(rows)
		if err != nil {
			return nil, err
		}
		alts = append(alts, alt)
	}
	return alts, rows.Err()
}

func scanAlteration(sc scanner) (generic.Alteration, error) {
	var (
		alt                        generic.Alteration
		altType, state             string
		endDate                    string
		resumeDate                 sql.NullString
		recoveryStart, recoveryEnd sql.NullString
		recoveryAmount             string
		handledAt                  sql.NullString
		createdAt                  string
	)

	err := sc.Scan(
		&alt.ID, &alt.ApplicationID, &altType, &state, &endDate, &resumeDate, &alt.Reason,
		&recoveryStart, &recoveryEnd, &recoveryAmount, &alt.RecoveryJustification,
		&alt.IsManualAmount, &handledAt, &alt.HandledBy, &createdAt,
	)
	if err != nil {
		return alt, err
	}

	alt.Type = generic.AlterationType(altType)
	alt.State = generic.AlterationState(state)
	if alt.EndDate, err = generic.ParseDate(endDate); err != nil {
		return alt, fmt.Errorf("alteration %s end_date: %w", alt.ID, err)
	}
	if alt.ResumeDate, err = parseNullDate(resumeDate); err != nil {
		return alt, err
	}
	if alt.RecoveryStartDate, err = parseNullDate(recoveryStart); err != nil {
		return alt, err
	}
	if alt.RecoveryEndDate, err = parseNullDate(recoveryEnd); err != nil {
		return alt, err
	}
	if alt.RecoveryAmount, err = parseMoney(recoveryAmount); err != nil {
		return alt, err
	}
	if handledAt.Valid {
		t := parseTime(handledAt.String)
		alt.HandledAt = &t
	}
	alt.CreatedAt = parseTime(createdAt)
	return alt, nil
}

// =============================================================================
// TRANSACTIONAL STORE (generic.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store generic.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore routes every call through the open sql.Tx. The parent lock is
// already held, so it never locks.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveApplication(ctx context.Context, app generic.Application) error {
	return saveApplication(ctx, ts.tx, app)
}

func (ts *txStore) GetApplication(ctx context.Context, id generic.ApplicationID) (*generic.Application, error) {
	return getApplication(ctx, ts.tx, id)
}

func (ts *txStore) ListApplications(ctx context.Context) ([]generic.Application, error) {
	return listApplications(ctx, ts.tx)
}

func (ts *txStore) ReplaceCalculationRows(ctx context.Context, id generic.ApplicationID, rows []generic.CalculationRow) error {
	return replaceCalculationRows(ctx, ts.tx, id, rows)
}

func (ts *txStore) CalculationRows(ctx context.Context, id generic.ApplicationID) ([]generic.CalculationRow, error) {
	return calculationRows(ctx, ts.tx, id)
}

func (ts *txStore) SaveAlteration(ctx context.Context, alt generic.Alteration) error {
	return saveAlteration(ctx, ts.tx, alt)
}

func (ts *txStore) GetAlteration(ctx context.Context, id generic.AlterationID) (*generic.Alteration, error) {
	return getAlteration(ctx, ts.tx, id)
}

func (ts *txStore) AlterationsByApplication(ctx context.Context, id generic.ApplicationID) ([]generic.Alteration, error) {
	return alterationsByApplication(ctx, ts.tx, id)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"alterations", "calculation_rows", "applications"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

type scanner interface {
	Scan(dest ...any) error
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func nullDate(tp *generic.TimePoint) sql.NullString {
	if tp == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: tp.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.TimePoint, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	tp, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &tp, nil
}

func parseMoney(s string) (generic.Money, error) {
	m, err := generic.ParseMoney(s)
	if err != nil {
		return generic.Money{}, fmt.Errorf("stored amount %q: %w", s, err)
	}
	return m, nil
}
