/*
Package sqlite provides a SQLite-backed implementation of leave.Store.

PURPOSE:
  Persists policies, overrides, employees, leaves and carryover snapshots,
  and answers the engine's read contract (default policy, override, day
  sums). The same schema runs on PostgreSQL (store/postgres) with minor
  dialect differences.

KEY TABLES:
  policies:             Policy rows, full definition in config_json
  policy_overrides:     0..1 per employee, override JSON
  employees:            Hire date and optional manual carryover
  leaves:               Requested/recorded leave with status
  carryover_snapshots:  Year-start carryover per employee (reporting)

INDEXES:
  - idx_policies_single_default: at most one active default policy;
    violations map to generic.ErrDuplicateDefaultPolicy
  - idx_leaves_employee_start: day sums by employee and year (hot path)
  - carryover_snapshots UNIQUE(employee_id, year)

DATES & DAYS:
  Dates are stored as YYYY-MM-DD text so range filters compare
  lexicographically. Day counts are decimal strings and summed in Go,
  keeping half-days exact.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/leave.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := leave.NewEngine(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - leave/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
  - store/postgres: PostgreSQL implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// Store implements leave.Store using SQLite.
type Store struct {
	db      *sql.DB
	mu      sync.RWMutex
	factory *factory.PolicyFactory
}

var _ leave.Store = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// An in-memory database lives in a single connection.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db, factory: factory.NewPolicyFactory()}
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

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Policies
	CREATE TABLE IF NOT EXISTS policies (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		is_default BOOLEAN NOT NULL DEFAULT FALSE,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- At most one active default policy
	CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_single_default
		ON policies(is_default) WHERE is_default AND is_active;

	-- Employees
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		hire_date TEXT NOT NULL,
		manual_carryover_days TEXT,
		created_at TEXT NOT NULL
	);

	-- Per-employee overrides
	CREATE TABLE IF NOT EXISTS policy_overrides (
		employee_id TEXT PRIMARY KEY REFERENCES employees(id) ON DELETE CASCADE,
		config_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Leaves
	CREATE TABLE IF NOT EXISTS leaves (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL REFERENCES employees(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		days TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		is_company_shutdown BOOLEAN NOT NULL DEFAULT FALSE,
		reason TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_leaves_employee_start
		ON leaves(employee_id, start_date);
	CREATE INDEX IF NOT EXISTS idx_leaves_status
		ON leaves(status);

	-- Year-start carryover (reporting only)
	CREATE TABLE IF NOT EXISTS carryover_snapshots (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		carried_over TEXT NOT NULL,
		created_at TEXT NOT NULL,
		UNIQUE(employee_id, year)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// REPOSITORY (leave.Repository interface)
// =============================================================================

// FindDefaultActivePolicy returns the active default policy, or nil.
func (s *Store) FindDefaultActivePolicy(ctx context.Context) (*leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policies WHERE is_default AND is_active LIMIT 1",
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query default policy: %w", err)
	}
	return s.decodePolicy(configJSON)
}

// FindPolicyOverride returns the employee's override, or nil.
func (s *Store) FindPolicyOverride(ctx context.Context, employeeID generic.EmployeeID) (*leave.PolicyOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policy_overrides WHERE employee_id = ?",
		employeeID,
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query override: %w", err)
	}

	var oj factory.OverrideJSON
	if err := json.Unmarshal([]byte(configJSON), &oj); err != nil {
		return nil, fmt.Errorf("failed to decode override for %s: %w", employeeID, err)
	}
	return s.factory.OverrideFromJSON(oj)
}

// SumTakenDays sums APPROVED/COMPLETED leaves starting in period.
func (s *Store) SumTakenDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (leave.TakenDays, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT days, is_company_shutdown
		FROM leaves
		WHERE employee_id = ? AND status IN (?, ?)
		  AND start_date >= ? AND start_date <= ?
	`, employeeID, leave.StatusApproved, leave.StatusCompleted,
		period.Start.String(), period.End.String())
	if err != nil {
		return leave.TakenDays{}, fmt.Errorf("failed to query taken days: %w", err)
	}
	defer rows.Close()

	taken := leave.TakenDays{CompanyShutdown: decimal.Zero, Voluntary: decimal.Zero}
	for rows.Next() {
		var days decimal.Decimal
		var shutdown bool
		if err := rows.Scan(&days, &shutdown); err != nil {
			return leave.TakenDays{}, err
		}
		if shutdown {
			taken.CompanyShutdown = taken.CompanyShutdown.Add(days)
		} else {
			taken.Voluntary = taken.Voluntary.Add(days)
		}
	}
	return taken, rows.Err()
}

// SumPendingDays sums PENDING leaves starting in period.
func (s *Store) SumPendingDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT days FROM leaves
		WHERE employee_id = ? AND status = ?
		  AND start_date >= ? AND start_date <= ?
	`, employeeID, leave.StatusPending, period.Start.String(), period.End.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to query pending days: %w", err)
	}
	defer rows.Close()

	sum := decimal.Zero
	for rows.Next() {
		var days decimal.Decimal
		if err := rows.Scan(&days); err != nil {
			return decimal.Zero, err
		}
		sum = sum.Add(days)
	}
	return sum, rows.Err()
}

// =============================================================================
// POLICY STORE
// =============================================================================

// SavePolicy upserts a policy, bumping its version on update.
func (s *Store) SavePolicy(ctx context.Context, p leave.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(s.factory.ToJSON(&p))
	if err != nil {
		return fmt.Errorf("failed to encode policy: %w", err)
	}

	query := `
		INSERT INTO policies (id, name, is_default, is_active, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			is_default = excluded.is_default,
			is_active = excluded.is_active,
			config_json = excluded.config_json,
			version = policies.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.IsDefault, p.IsActive, string(configJSON), now, now,
	)
	if isDefaultPolicyConflict(err) {
		return generic.ErrDuplicateDefaultPolicy
	}
	if err != nil {
		return fmt.Errorf("failed to save policy: %w", err)
	}
	return nil
}

// GetPolicy retrieves a policy by ID.
func (s *Store) GetPolicy(ctx context.Context, id generic.PolicyID) (*leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT config_json FROM policies WHERE id = ?", id,
	).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.decodePolicy(configJSON)
}

// ListPolicies returns all policies.
func (s *Store) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT config_json FROM policies ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var policies []leave.Policy
	for rows.Next() {
		var configJSON string
		if err := rows.Scan(&configJSON); err != nil {
			return nil, err
		}
		p, err := s.decodePolicy(configJSON)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (s *Store) decodePolicy(configJSON string) (*leave.Policy, error) {
	var pj factory.PolicyJSON
	if err := json.Unmarshal([]byte(configJSON), &pj); err != nil {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}
	return s.factory.FromJSON(pj)
}

// =============================================================================
// OVERRIDE STORE
// =============================================================================

func (s *Store) SaveOverride(ctx context.Context, o leave.PolicyOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(s.factory.OverrideToJSON(&o))
	if err != nil {
		return fmt.Errorf("failed to encode override: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO policy_overrides (employee_id, config_json, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(employee_id) DO UPDATE SET
			config_json = excluded.config_json,
			updated_at = excluded.updated_at
	`, o.EmployeeID, string(configJSON), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save override: %w", err)
	}
	return nil
}

func (s *Store) DeleteOverride(ctx context.Context, employeeID generic.EmployeeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, "DELETE FROM policy_overrides WHERE employee_id = ?", employeeID)
	return err
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee saves an employee.
func (s *Store) SaveEmployee(ctx context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO employees (id, name, email, hire_date, manual_carryover_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			hire_date = excluded.hire_date,
			manual_carryover_days = excluded.manual_carryover_days
	`

	_, err := s.db.ExecContext(ctx, query,
		emp.ID, emp.Name, emp.Email,
		emp.HiredAt.String(),
		nullDecimal(emp.ManualCarryOverDays),
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, hire_date, manual_carryover_days FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, hire_date, manual_carryover_days FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var employees []leave.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEmployee(row scanner) (leave.Employee, error) {
	var emp leave.Employee
	var email sql.NullString
	var hireDate string
	var manual decimal.NullDecimal

	if err := row.Scan(&emp.ID, &emp.Name, &email, &hireDate, &manual); err != nil {
		return leave.Employee{}, err
	}

	hiredAt, err := generic.ParseDate(hireDate)
	if err != nil {
		return leave.Employee{}, fmt.Errorf("employee %s: %w", emp.ID, err)
	}
	emp.Email = email.String
	emp.HiredAt = hiredAt
	if manual.Valid {
		emp.ManualCarryOverDays = generic.Some(manual.Decimal)
	}
	return emp, nil
}

// =============================================================================
// LEAVE STORE
// =============================================================================

const leaveColumns = `id, employee_id, start_date, end_date, days, status, is_company_shutdown, reason, created_at, updated_at`

func (s *Store) SaveLeave(ctx context.Context, l leave.Leave) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO leaves (` + leaveColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			start_date = excluded.start_date,
			end_date = excluded.end_date,
			days = excluded.days,
			status = excluded.status,
			is_company_shutdown = excluded.is_company_shutdown,
			reason = excluded.reason,
			updated_at = excluded.updated_at
	`

	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.EmployeeID,
		l.StartDate.String(), l.EndDate.String(),
		l.Days.String(), l.Status, l.IsCompanyShutdown,
		nullString(l.Reason),
		l.CreatedAt.UTC().Format(time.RFC3339),
		l.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save leave: %w", err)
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id generic.LeaveID) (*leave.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+leaveColumns+" FROM leaves WHERE id = ?", id)
	l, err := scanLeave(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// ListLeaves returns the employee's leaves ordered by start date.
func (s *Store) ListLeaves(ctx context.Context, employeeID generic.EmployeeID) ([]leave.Leave, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+leaveColumns+" FROM leaves WHERE employee_id = ? ORDER BY start_date, created_at",
		employeeID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaves: %w", err)
	}
	defer rows.Close()

	var leaves []leave.Leave
	for rows.Next() {
		l, err := scanLeave(rows)
		if err != nil {
			return nil, err
		}
		leaves = append(leaves, l)
	}
	return leaves, rows.Err()
}

func (s *Store) UpdateLeaveStatus(ctx context.Context, id generic.LeaveID, status leave.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE leaves SET status = ?, updated_at = ? WHERE id = ?",
		status, time.Now().UTC().Format(time.RFC3339), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update leave: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &generic.NotFoundError{Kind: generic.ErrLeaveNotFound, ID: string(id)}
	}
	return nil
}

func scanLeave(row scanner) (leave.Leave, error) {
	var l leave.Leave
	var start, end, createdAt, updatedAt string
	var reason sql.NullString

	err := row.Scan(&l.ID, &l.EmployeeID, &start, &end, &l.Days, &l.Status,
		&l.IsCompanyShutdown, &reason, &createdAt, &updatedAt)
	if err != nil {
		return leave.Leave{}, err
	}

	if l.StartDate, err = generic.ParseDate(start); err != nil {
		return leave.Leave{}, err
	}
	if l.EndDate, err = generic.ParseDate(end); err != nil {
		return leave.Leave{}, err
	}
	l.Reason = reason.String
	l.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	l.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return l, nil
}

// =============================================================================
// CARRYOVER SNAPSHOTS
// =============================================================================

// SaveCarryoverSnapshot records a snapshot. A second snapshot for the same
// employee and year is ignored.
func (s *Store) SaveCarryoverSnapshot(ctx context.Context, snap leave.CarryoverSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO carryover_snapshots (id, employee_id, year, carried_over, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, year) DO NOTHING
	`, snap.ID, snap.EmployeeID, snap.Year, snap.CarriedOver.String(),
		snap.CreatedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save carryover snapshot: %w", err)
	}
	return nil
}

func (s *Store) HasCarryoverSnapshot(ctx context.Context, employeeID generic.EmployeeID, year int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM carryover_snapshots WHERE employee_id = ? AND year = ?",
		employeeID, year,
	).Scan(&count)
	return count > 0, err
}

func (s *Store) ListCarryoverSnapshots(ctx context.Context, year int) ([]leave.CarryoverSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, employee_id, year, carried_over, created_at
		FROM carryover_snapshots WHERE year = ? ORDER BY employee_id
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []leave.CarryoverSnapshot
	for rows.Next() {
		var snap leave.CarryoverSnapshot
		var createdAt string
		if err := rows.Scan(&snap.ID, &snap.EmployeeID, &snap.Year, &snap.CarriedOver, &createdAt); err != nil {
			return nil, err
		}
		snap.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"carryover_snapshots", "leaves", "policy_overrides", "employees", "policies"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDecimal(o generic.Optional[decimal.Decimal]) decimal.NullDecimal {
	d, ok := o.Get()
	return decimal.NullDecimal{Decimal: d, Valid: ok}
}

// isDefaultPolicyConflict reports a violation of idx_policies_single_default,
// the only unique constraint an upsert on policies can hit.
func isDefaultPolicyConflict(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
