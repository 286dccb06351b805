/*
store.go - Data-access contract for the leave engine

PURPOSE:
  The engine never talks to a database directly. It reads policies,
  overrides and usage history through the interfaces below, which are
  injected into the Engine. The company default policy is resolved per
  call through PolicyRepository, never from package-level state.

KEY INTERFACES:
  PolicyRepository: Default active policy + per-employee override
  LeaveHistory:     Day sums over a period, split by status/origin
  Repository:       What the Engine needs (both of the above)
  Store:            Full persistence used by the request service and API

CONVENTIONS:
  - Lookups return (nil, nil) when the record does not exist
  - Sums cover leaves whose StartDate falls inside the period
  - Only APPROVED/COMPLETED count as taken; PENDING is summed separately

IMPLEMENTATIONS:
  - store/memory:   In-memory for tests
  - store/sqlite:   SQLite (default)
  - store/postgres: PostgreSQL via pgx

SEE ALSO:
  - engine.go: Consumes Repository
  - request.go: Consumes Store
*/
package leave

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// PolicyRepository resolves policies.
type PolicyRepository interface {
	// FindDefaultActivePolicy returns the active default policy including its
	// blackout periods and shutdowns, or nil when none exists.
	FindDefaultActivePolicy(ctx context.Context) (*Policy, error)

	// FindPolicyOverride returns the employee's override, or nil.
	FindPolicyOverride(ctx context.Context, employeeID generic.EmployeeID) (*PolicyOverride, error)
}

// LeaveHistory sums recorded leave.
type LeaveHistory interface {
	// SumTakenDays sums APPROVED and COMPLETED leaves starting in period,
	// split by the company shutdown flag.
	SumTakenDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (TakenDays, error)

	// SumPendingDays sums PENDING leaves starting in period.
	SumPendingDays(ctx context.Context, employeeID generic.EmployeeID, period generic.Period) (decimal.Decimal, error)
}

// Repository is the read contract of the Engine.
type Repository interface {
	PolicyRepository
	LeaveHistory
}

// Store extends Repository with the writes used by the request lifecycle
// and the admin API.
type Store interface {
	Repository

	SavePolicy(ctx context.Context, p Policy) error
	GetPolicy(ctx context.Context, id generic.PolicyID) (*Policy, error)
	ListPolicies(ctx context.Context) ([]Policy, error)

	SaveOverride(ctx context.Context, o PolicyOverride) error
	DeleteOverride(ctx context.Context, employeeID generic.EmployeeID) error

	SaveEmployee(ctx context.Context, e Employee) error
	GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)

	SaveLeave(ctx context.Context, l Leave) error
	GetLeave(ctx context.Context, id generic.LeaveID) (*Leave, error)
	ListLeaves(ctx context.Context, employeeID generic.EmployeeID) ([]Leave, error)
	UpdateLeaveStatus(ctx context.Context, id generic.LeaveID, status Status) error

	SaveCarryoverSnapshot(ctx context.Context, s CarryoverSnapshot) error
	HasCarryoverSnapshot(ctx context.Context, employeeID generic.EmployeeID, year int) (bool, error)
	ListCarryoverSnapshots(ctx context.Context, year int) ([]CarryoverSnapshot, error)
}
