package leave

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"go.uber.org/zap"
)

// CalculateCarryover returns the unused days of currentYear-1 that roll into
// currentYear: the prior year's rounded accrual as of Dec 31 minus what was
// taken that year, never below zero. Employees hired after that Dec 31
// carry nothing.
//
// MaxCarryoverDays is not applied unless the engine was built with
// WithCarryoverCap(true); a value above the cap is logged.
func (e *Engine) CalculateCarryover(ctx context.Context, employeeID generic.EmployeeID, hiredAt generic.TimePoint, currentYear int, policy EffectivePolicy) (decimal.Decimal, error) {
	if !policy.AllowCarryover {
		return decimal.Zero, nil
	}

	priorYear := currentYear - 1
	yearEnd := generic.EndOfYear(priorYear)
	if hiredAt.After(yearEnd) {
		return decimal.Zero, nil
	}

	_, accrued := accruedRounded(hiredAt, policy, yearEnd)
	taken, err := e.Repo.SumTakenDays(ctx, employeeID, generic.CalendarYear(priorYear))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum taken days for %d: %w", priorYear, err)
	}

	remaining := accrued.Sub(taken.Total())
	if remaining.IsNegative() {
		return decimal.Zero, nil
	}

	if policy.MaxCarryoverDays != nil {
		limit := generic.DaysInt(*policy.MaxCarryoverDays)
		if remaining.GreaterThan(limit) {
			if e.enforceCarryoverCap {
				return limit, nil
			}
			e.logger.Warn("computed carryover exceeds policy cap",
				zap.String("employee_id", string(employeeID)),
				zap.Int("year", currentYear),
				zap.String("carryover", remaining.String()),
				zap.Int("max_carryover_days", *policy.MaxCarryoverDays))
		}
	}
	return remaining, nil
}
