/*
balance.go - Current leave balance

PURPOSE:
  Combines accrued + carryover - taken into the figure an employee can
  spend, including how far the policy lets the balance go negative.

BALANCE COMPONENTS:
  AnnualEntitlement: Full-year entitlement with seniority bonus
  Accrued:           Rounded accrued-to-date for the year of asOf
  CarriedOver:       Manual override when set, else computed carryover
  Taken:             APPROVED + COMPLETED leaves starting this year
                     (split into CompanyShutdownDays / VoluntaryDays)
  PendingDays:       PENDING leaves, reported only, never subtracted

AVAILABILITY:
  Available        = Accrued + CarriedOver - Taken
  CanBorrow        = Available < 0 and |Available| <= MaxNegativeBalance
  EffectiveBalance = max(Available, -MaxNegativeBalance)

  EffectiveBalance is the authoritative spendable figure.

MANUAL CARRYOVER:
  An admin-set carryover replaces the computed one. Explicit zero is a
  value: Some(0) yields 0 even when the computed carryover would be 5.

EXPIRY:
  CarriedOverExpiry is computed from the policy's month/day for the
  current year. It is informational; carried-over days are not zeroed
  after the date passes.

SEE ALSO:
  - accrual.go: Entitlement and accrual
  - carryover.go: Computed carryover
  - validator.go: Uses EffectiveBalance and CanBorrow
*/
package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"go.uber.org/zap"
)

// LeaveBalance is the computed balance of an employee for asOf's year.
type LeaveBalance struct {
	EmployeeID generic.EmployeeID
	AsOf       generic.TimePoint
	Year       int
	Tenure     generic.Tenure

	AnnualEntitlement   decimal.Decimal
	Accrued             decimal.Decimal
	CarriedOver         decimal.Decimal
	CarriedOverIsManual bool
	CarriedOverExpiry   *generic.TimePoint

	Taken               decimal.Decimal
	CompanyShutdownDays decimal.Decimal
	VoluntaryDays       decimal.Decimal
	PendingDays         decimal.Decimal

	Available          decimal.Decimal
	CanBorrow          bool
	EffectiveBalance   decimal.Decimal
	MaxNegativeBalance int

	Policy EffectivePolicy
}

// CalculateLeaveBalance computes the balance of an employee as of asOf
// (today when asOf is zero). manualCarryOver, when set, replaces the
// computed carryover. Fails with ErrNoActivePolicy when no default policy
// is active.
func (e *Engine) CalculateLeaveBalance(ctx context.Context, employeeID generic.EmployeeID, hiredAt generic.TimePoint, manualCarryOver generic.Optional[decimal.Decimal], asOf generic.TimePoint) (LeaveBalance, error) {
	if asOf.IsZero() {
		asOf = e.today()
	}

	policy, err := e.ResolvePolicy(ctx, employeeID)
	if err != nil {
		return LeaveBalance{}, err
	}

	entitlement, accrued := accruedRounded(hiredAt, policy, asOf)

	carried, manual := manualCarryOver.Get()
	if !manual {
		carried, err = e.CalculateCarryover(ctx, employeeID, hiredAt, asOf.Year(), policy)
		if err != nil {
			return LeaveBalance{}, err
		}
	}

	year := generic.CalendarYear(asOf.Year())
	taken, err := e.Repo.SumTakenDays(ctx, employeeID, year)
	if err != nil {
		return LeaveBalance{}, fmt.Errorf("sum taken days: %w", err)
	}
	pending, err := e.Repo.SumPendingDays(ctx, employeeID, year)
	if err != nil {
		return LeaveBalance{}, fmt.Errorf("sum pending days: %w", err)
	}

	available := accrued.Add(carried).Sub(taken.Total())
	floor := generic.DaysInt(policy.MaxNegativeBalance).Neg()

	b := LeaveBalance{
		EmployeeID:          employeeID,
		AsOf:                asOf,
		Year:                asOf.Year(),
		Tenure:              generic.CalculateTenure(hiredAt, asOf),
		AnnualEntitlement:   entitlement,
		Accrued:             accrued,
		CarriedOver:         carried,
		CarriedOverIsManual: manual,
		CarriedOverExpiry:   policy.CarryoverExpiry(asOf.Year()),
		Taken:               taken.Total(),
		CompanyShutdownDays: taken.CompanyShutdown,
		VoluntaryDays:       taken.Voluntary,
		PendingDays:         pending,
		Available:           available,
		CanBorrow:           canBorrow(available, policy.MaxNegativeBalance),
		EffectiveBalance:    decimal.Max(available, floor),
		MaxNegativeBalance:  policy.MaxNegativeBalance,
		Policy:              policy,
	}

	e.logger.Debug("leave balance computed",
		zap.String("employee_id", string(employeeID)),
		zap.String("as_of", asOf.String()),
		zap.String("accrued", accrued.String()),
		zap.String("carried_over", carried.String()),
		zap.String("taken", b.Taken.String()),
		zap.String("available", available.String()))

	return b, nil
}

// canBorrow reports whether a negative balance is within the borrowing limit.
func canBorrow(balance decimal.Decimal, maxNegative int) bool {
	return balance.IsNegative() && balance.Abs().LessThanOrEqual(generic.DaysInt(maxNegative))
}
