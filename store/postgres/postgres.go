/*
Package postgres provides a PostgreSQL implementation of leave.Store on
a pgx connection pool.

PURPOSE:
  Production storage. Same tables as store/sqlite, with native DATE,
  NUMERIC and BOOLEAN columns and database-level concurrency instead of
  an in-process mutex.

DEFAULT POLICY:
  A partial unique index allows one row with is_default AND is_active.
  Violations (SQLSTATE 23505) map to generic.ErrDuplicateDefaultPolicy.

DAYS:
  NUMERIC(6,2) in the database, read back as text into decimal.Decimal so
  half-days stay exact.

USAGE:
  pool, err := postgres.Connect(ctx, "postgres://...", 10)
  store := postgres.New(pool)
  if err := store.Migrate(ctx); err != nil { ... }
*/
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const uniqueViolation = "23505"

// Connect opens a pool. maxConns <= 0 keeps the pgx default.
func Connect(ctx context.Context, databaseURL string, maxConns int32) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolCfg.MaxConnLifetime = time.Hour
	if maxConns > 0 {
		poolCfg.MaxConns = maxConns
	}
	return pgxpool.NewWithConfig(ctx, poolCfg)
}

type Store struct {
	pool    *pgxpool.Pool
	factory *factory.PolicyFactory
}

var _ leave.Store = (*Store)(nil)

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, factory: factory.NewPolicyFactory()}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const schema = `
CREATE TABLE IF NOT EXISTS policies (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	is_default BOOLEAN NOT NULL DEFAULT FALSE,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	config_json JSONB NOT NULL,
	version INTEGER NOT NULL DEFAULT 1,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_policies_single_default
	ON policies(is_default) WHERE is_default AND is_active;

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	hire_date DATE NOT NULL,
	manual_carryover_days NUMERIC(6,2),
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS policy_overrides (
	employee_id TEXT PRIMARY KEY REFERENCES employees(id) ON DELETE CASCADE,
	config_json JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS leaves (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL REFERENCES employees(id),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	days NUMERIC(6,2) NOT NULL,
	status TEXT NOT NULL DEFAULT 'PENDING',
	is_company_shutdown BOOLEAN NOT NULL DEFAULT FALSE,
	reason TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_leaves_employee_start ON leaves(employee_id, start_date);

CREATE TABLE IF NOT EXISTS carryover_snapshots (
	id TEXT PRIMARY KEY,
	employee_id TEXT NOT NULL,
	year INTEGER NOT NULL,
	carried_over NUMERIC(6,2) NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	UNIQUE(employee_id, year)
);
`

// Migrate creates the schema in a single transaction.
func (s *Store) Migrate(ctx context.Context) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, schema); err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("migrate: %w", err)
	}
	return tx.Commit(ctx)
}

// =============================================================================
// REPOSITORY
// =============================================================================

func (s *Store) FindDefaultActivePolicy(ctx context.Context) (*leave.Policy, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config_json FROM policies WHERE is_default AND is_active LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query default policy: %w", err)
	}
	return s.decodePolicy(raw)
}

func (s *Store) FindPolicyOverride(ctx context.Context, employeeID generic.EmployeeID) (*leave.PolicyOverride, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT config_json FROM policy_overrides WHERE employee_id = $1`, string(employeeID),
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query override: %w", err)
	}
	var oj factory.OverrideJSON
	if err := json.Unmarshal(raw, &oj); err != nil {
		return nil, fmt.Errorf("decode override for %s: %w", employeeID, err)
	}
	return s.factory.OverrideFromJSON(oj)
}

func (s *Store) SumTakenDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (leave.TakenDays, error) {
	var shutdown, voluntary string
	err := s.pool.QueryRow(ctx, `
		SELECT
			COALESCE(SUM(days) FILTER (WHERE is_company_shutdown), 0)::text,
			COALESCE(SUM(days) FILTER (WHERE NOT is_company_shutdown), 0)::text
		FROM leaves
		WHERE employee_id = $1 AND status IN ($2, $3)
		  AND start_date BETWEEN $4 AND $5
	`, string(employeeID), string(leave.StatusApproved), string(leave.StatusCompleted),
		period.Start.Midnight(), period.End.Midnight(),
	).Scan(&shutdown, &voluntary)
	if err != nil {
		return leave.TakenDays{}, fmt.Errorf("query taken days: %w", err)
	}

	var taken leave.TakenDays
	if taken.CompanyShutdown, err = decimal.NewFromString(shutdown); err != nil {
		return leave.TakenDays{}, err
	}
	if taken.Voluntary, err = decimal.NewFromString(voluntary); err != nil {
		return leave.TakenDays{}, err
	}
	return taken, nil
}

func (s *Store) SumPendingDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (decimal.Decimal, error) {
	var sum string
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(days), 0)::text
		FROM leaves
		WHERE employee_id = $1 AND status = $2
		  AND start_date BETWEEN $3 AND $4
	`, string(employeeID), string(leave.StatusPending),
		period.Start.Midnight(), period.End.Midnight(),
	).Scan(&sum)
	if err != nil {
		return decimal.Zero, fmt.Errorf("query pending days: %w", err)
	}
	return decimal.NewFromString(sum)
}

// =============================================================================
// POLICIES & OVERRIDES
// =============================================================================

func (s *Store) SavePolicy(ctx context.Context, p leave.Policy) error {
	raw, err := json.Marshal(s.factory.ToJSON(&p))
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO policies (id, name, is_default, is_active, config_json)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			is_default = EXCLUDED.is_default,
			is_active = EXCLUDED.is_active,
			config_json = EXCLUDED.config_json,
			version = policies.version + 1,
			updated_at = now()
	`, string(p.ID), p.Name, p.IsDefault, p.IsActive, raw)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return generic.ErrDuplicateDefaultPolicy
	}
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

func (s *Store) GetPolicy(ctx context.Context, id generic.PolicyID) (*leave.Policy, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT config_json FROM policies WHERE id = $1`, string(id)).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.decodePolicy(raw)
}

func (s *Store) ListPolicies(ctx context.Context) ([]leave.Policy, error) {
	rows, err := s.pool.Query(ctx, `SELECT config_json FROM policies ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	policies := make([]leave.Policy, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		p, err := s.decodePolicy(raw)
		if err != nil {
			return nil, err
		}
		policies = append(policies, *p)
	}
	return policies, rows.Err()
}

func (s *Store) decodePolicy(raw []byte) (*leave.Policy, error) {
	var pj factory.PolicyJSON
	if err := json.Unmarshal(raw, &pj); err != nil {
		return nil, fmt.Errorf("decode policy: %w", err)
	}
	return s.factory.FromJSON(pj)
}

func (s *Store) SaveOverride(ctx context.Context, o leave.PolicyOverride) error {
	raw, err := json.Marshal(s.factory.OverrideToJSON(&o))
	if err != nil {
		return fmt.Errorf("encode override: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO policy_overrides (employee_id, config_json)
		VALUES ($1, $2)
		ON CONFLICT (employee_id) DO UPDATE SET config_json = EXCLUDED.config_json, updated_at = now()
	`, string(o.EmployeeID), raw)
	return err
}

func (s *Store) DeleteOverride(ctx context.Context, employeeID generic.EmployeeID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM policy_overrides WHERE employee_id = $1`, string(employeeID))
	return err
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (s *Store) SaveEmployee(ctx context.Context, e leave.Employee) error {
	var manual *string
	if d, ok := e.ManualCarryOverDays.Get(); ok {
		v := d.String()
		manual = &v
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO employees (id, name, email, hire_date, manual_carryover_days)
		VALUES ($1, $2, $3, $4, $5::numeric)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			hire_date = EXCLUDED.hire_date,
			manual_carryover_days = EXCLUDED.manual_carryover_days
	`, string(e.ID), e.Name, e.Email, e.HiredAt.Midnight(), manual)
	return err
}

const employeeColumns = `id, name, COALESCE(email, ''), hire_date, manual_carryover_days::text`

func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*leave.Employee, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, string(id))
	e, err := scanEmployee(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]leave.Employee, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]leave.Employee, 0)
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

func scanEmployee(row pgx.Row) (leave.Employee, error) {
	var e leave.Employee
	var id string
	var hired time.Time
	var manual *string
	if err := row.Scan(&id, &e.Name, &e.Email, &hired, &manual); err != nil {
		return leave.Employee{}, err
	}
	e.ID = generic.EmployeeID(id)
	e.HiredAt = generic.FromTime(hired)
	if manual != nil {
		d, err := decimal.NewFromString(*manual)
		if err != nil {
			return leave.Employee{}, err
		}
		e.ManualCarryOverDays = generic.Some(d)
	}
	return e, nil
}

// =============================================================================
// LEAVES
// =============================================================================

const leaveColumns = `id, employee_id, start_date, end_date, days::text, status, is_company_shutdown, COALESCE(reason, ''), created_at, updated_at`

func (s *Store) SaveLeave(ctx context.Context, l leave.Leave) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO leaves (id, employee_id, start_date, end_date, days, status, is_company_shutdown, reason, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, NULLIF($8, ''), $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			days = EXCLUDED.days,
			status = EXCLUDED.status,
			is_company_shutdown = EXCLUDED.is_company_shutdown,
			reason = EXCLUDED.reason,
			updated_at = EXCLUDED.updated_at
	`, string(l.ID), string(l.EmployeeID), l.StartDate.Midnight(), l.EndDate.Midnight(),
		l.Days.String(), string(l.Status), l.IsCompanyShutdown, l.Reason, l.CreatedAt, l.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save leave: %w", err)
	}
	return nil
}

func (s *Store) GetLeave(ctx context.Context, id generic.LeaveID) (*leave.Leave, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+leaveColumns+` FROM leaves WHERE id = $1`, string(id))
	l, err := scanLeave(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (s *Store) ListLeaves(ctx context.Context, employeeID generic.EmployeeID) ([]leave.Leave, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+leaveColumns+` FROM leaves WHERE employee_id = $1 ORDER BY start_date, created_at`,
		string(employeeID))
	if err != nil {
		return nil, fmt.Errorf("query leaves: %w", err)
	}
	defer rows.Close()

	leaves := make([]leave.Leave, 0)
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
	tag, err := s.pool.Exec(ctx,
		`UPDATE leaves SET status = $1, updated_at = now() WHERE id = $2`,
		string(status), string(id))
	if err != nil {
		return fmt.Errorf("update leave: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return &generic.NotFoundError{Kind: generic.ErrLeaveNotFound, ID: string(id)}
	}
	return nil
}

func scanLeave(row pgx.Row) (leave.Leave, error) {
	var l leave.Leave
	var id, employeeID, days, status string
	var start, end time.Time
	err := row.Scan(&id, &employeeID, &start, &end, &days, &status,
		&l.IsCompanyShutdown, &l.Reason, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return leave.Leave{}, err
	}
	if l.Days, err = decimal.NewFromString(days); err != nil {
		return leave.Leave{}, err
	}
	l.ID = generic.LeaveID(id)
	l.EmployeeID = generic.EmployeeID(employeeID)
	l.StartDate = generic.FromTime(start)
	l.EndDate = generic.FromTime(end)
	l.Status = leave.Status(status)
	return l, nil
}

// =============================================================================
// CARRYOVER SNAPSHOTS
// =============================================================================

func (s *Store) SaveCarryoverSnapshot(ctx context.Context, snap leave.CarryoverSnapshot) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO carryover_snapshots (id, employee_id, year, carried_over, created_at)
		VALUES ($1, $2, $3, $4::numeric, $5)
		ON CONFLICT (employee_id, year) DO NOTHING
	`, snap.ID, string(snap.EmployeeID), snap.Year, snap.CarriedOver.String(), snap.CreatedAt)
	if err != nil {
		return fmt.Errorf("save carryover snapshot: %w", err)
	}
	return nil
}

func (s *Store) HasCarryoverSnapshot(ctx context.Context, employeeID generic.EmployeeID, year int) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM carryover_snapshots WHERE employee_id = $1 AND year = $2)`,
		string(employeeID), year,
	).Scan(&exists)
	return exists, err
}

func (s *Store) ListCarryoverSnapshots(ctx context.Context, year int) ([]leave.CarryoverSnapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, employee_id, year, carried_over::text, created_at
		FROM carryover_snapshots WHERE year = $1 ORDER BY employee_id
	`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snaps := make([]leave.CarryoverSnapshot, 0)
	for rows.Next() {
		var snap leave.CarryoverSnapshot
		var employeeID, carried string
		if err := rows.Scan(&snap.ID, &employeeID, &snap.Year, &carried, &snap.CreatedAt); err != nil {
			return nil, err
		}
		snap.EmployeeID = generic.EmployeeID(employeeID)
		if snap.CarriedOver, err = decimal.NewFromString(carried); err != nil {
			return nil, err
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// Reset clears all data (for demo scenarios).
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx,
		`TRUNCATE carryover_snapshots, leaves, policy_overrides, employees, policies`)
	return err
}
