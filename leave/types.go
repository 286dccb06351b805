// Package leave implements the leave entitlement and balance engine.
// It resolves the effective policy for an employee, computes entitlement,
// accrual, carryover and balance, and validates leave requests against
// blackout windows, shutdowns, caps, notice and balance.
package leave

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

// AccrualMethod selects the formula used for accrued-to-date.
type AccrualMethod string

const (
	AccrualDaily       AccrualMethod = "DAILY"
	AccrualMonthly     AccrualMethod = "MONTHLY"
	AccrualAtYearStart AccrualMethod = "AT_YEAR_START"
	AccrualProRata     AccrualMethod = "PRO_RATA"
)

// RoundingMethod turns a fractional accrual into whole days.
type RoundingMethod string

const (
	RoundFloor RoundingMethod = "FLOOR"
	RoundCeil  RoundingMethod = "CEIL"
	RoundRound RoundingMethod = "ROUND"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusCompleted Status = "COMPLETED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// CountsAsTaken is true for statuses that consume balance.
func (s Status) CountsAsTaken() bool {
	return s == StatusApproved || s == StatusCompleted
}

// =============================================================================
// POLICY
// =============================================================================

// Policy is a company-wide leave policy. At most one active policy is the
// company default; stores enforce that with a unique index.
type Policy struct {
	ID        generic.PolicyID
	Name      string
	IsDefault bool
	IsActive  bool

	BaseAnnualDays     int
	SeniorityStepYears int
	BonusPerStep       int

	AccrualMethod  AccrualMethod
	RoundingMethod RoundingMethod

	AllowCarryover       bool
	MaxCarryoverDays     *int // nil = unbounded
	CarryoverExpiryMonth *int // 1-12
	CarryoverExpiryDay   *int

	MaxNegativeBalance int
	MaxConsecutiveDays *int
	MinNoticeDays      *int

	BlackoutPeriods  []BlackoutPeriod
	CompanyShutdowns []CompanyShutdown
}

// BlackoutPeriod is a window where leave is blocked, or only discouraged when
// AllowExceptions is set.
type BlackoutPeriod struct {
	ID              string
	Period          generic.Period
	Reason          string
	AllowExceptions bool
}

// CompanyShutdown is a forced closure. DeductFromAllowance marks shutdowns
// recorded against the employees' balance.
type CompanyShutdown struct {
	ID                  string
	Period              generic.Period
	Name                string
	DeductFromAllowance bool
}

// PolicyOverride carries per-employee replacements. A nil field falls
// through to the policy.
type PolicyOverride struct {
	EmployeeID generic.EmployeeID

	BaseAnnualDays     *int
	SeniorityStepYears *int
	BonusPerStep       *int
	AccrualMethod      *AccrualMethod
	RoundingMethod     *RoundingMethod
	AllowCarryover     *bool
	MaxCarryoverDays   *int
	MaxNegativeBalance *int
	MaxConsecutiveDays *int
}

// =============================================================================
// EMPLOYEE & LEAVE
// =============================================================================

type Employee struct {
	ID      generic.EmployeeID
	Name    string
	Email   string
	HiredAt generic.TimePoint

	// ManualCarryOverDays, when set (zero included), replaces the computed
	// carryover instead of adding to it.
	ManualCarryOverDays generic.Optional[decimal.Decimal]
}

type Leave struct {
	ID                generic.LeaveID
	EmployeeID        generic.EmployeeID
	StartDate         generic.TimePoint
	EndDate           generic.TimePoint
	Days              decimal.Decimal
	Status            Status
	IsCompanyShutdown bool
	Reason            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// TakenDays is the approved/completed usage of a period split by origin.
type TakenDays struct {
	CompanyShutdown decimal.Decimal
	Voluntary       decimal.Decimal
}

func (t TakenDays) Total() decimal.Decimal {
	return t.CompanyShutdown.Add(t.Voluntary)
}

// CarryoverSnapshot records the carryover computed for an employee at the
// start of a year. Reporting only, balances never read it.
type CarryoverSnapshot struct {
	ID          string
	EmployeeID  generic.EmployeeID
	Year        int
	CarriedOver decimal.Decimal
	CreatedAt   time.Time
}
