package leave

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// VALIDATION RESULT
// =============================================================================

// Issue codes.
const (
	CodeNoActivePolicy      = "no_active_policy"
	CodeInvalidRange        = "invalid_range"
	CodeBlackout            = "blackout"
	CodeBlackoutException   = "blackout_exception"
	CodeCompanyShutdown     = "company_shutdown"
	CodeMaxConsecutiveDays  = "max_consecutive_days"
	CodeNoticePeriod        = "notice_period"
	CodeInsufficientBalance = "insufficient_balance"
	CodeBorrowing           = "borrowing"
)

type Issue struct {
	Code    string
	Message string
}

// ValidationResult collects every problem with a request. Warnings never
// make it invalid.
type ValidationResult struct {
	Valid    bool
	Errors   []Issue
	Warnings []Issue
}

func (r *ValidationResult) fail(code, format string, args ...any) {
	r.Errors = append(r.Errors, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

func (r *ValidationResult) warn(code, format string, args ...any) {
	r.Warnings = append(r.Warnings, Issue{Code: code, Message: fmt.Sprintf(format, args...)})
}

// =============================================================================
// VALIDATE REQUEST - No side effects
// =============================================================================

// ValidateLeaveRequest checks a proposed absence against the effective
// policy and the employee's balance. Rule failures accumulate in the
// result; only data-access failures are returned as errors.
//
// With no active policy the result is invalid with a single error and no
// other rule runs.
func (e *Engine) ValidateLeaveRequest(ctx context.Context, employeeID generic.EmployeeID, hiredAt, startDate, endDate generic.TimePoint, requestedDays decimal.Decimal) (ValidationResult, error) {
	return e.validate(ctx, employeeID, hiredAt, generic.None[decimal.Decimal](), startDate, endDate, requestedDays)
}

// validate runs the rules with the balance computed from manualCarryOver,
// so stored employees are checked against the same figure they are shown.
func (e *Engine) validate(ctx context.Context, employeeID generic.EmployeeID, hiredAt generic.TimePoint, manualCarryOver generic.Optional[decimal.Decimal], startDate, endDate generic.TimePoint, requestedDays decimal.Decimal) (ValidationResult, error) {
	var result ValidationResult

	policy, err := e.ResolvePolicy(ctx, employeeID)
	if errors.Is(err, ErrNoActivePolicy) {
		result.fail(CodeNoActivePolicy, "no active leave policy is configured")
		return result, nil
	}
	if err != nil {
		return result, err
	}

	requested, err := generic.NewPeriod(startDate, endDate)
	if err != nil {
		result.fail(CodeInvalidRange, "end date %s is before start date %s", endDate, startDate)
		return result, nil
	}

	checkBlackouts(&result, policy.BlackoutPeriods, requested)

	for _, s := range policy.CompanyShutdowns {
		if s.Period.Overlaps(requested) {
			result.warn(CodeCompanyShutdown, "request overlaps company shutdown %q %s", s.Name, s.Period)
		}
	}

	if max := policy.MaxConsecutiveDays; max != nil && requestedDays.GreaterThan(generic.DaysInt(*max)) {
		result.fail(CodeMaxConsecutiveDays, "request of %s days exceeds the maximum of %d consecutive days",
			requestedDays, *max)
	}

	if min := policy.MinNoticeDays; min != nil {
		notice := int(math.Floor(startDate.Midnight().Sub(e.now()).Hours() / 24))
		if notice < *min {
			result.fail(CodeNoticePeriod, "at least %d days notice required, got %d", *min, notice)
		}
	}

	balance, err := e.CalculateLeaveBalance(ctx, employeeID, hiredAt, manualCarryOver, generic.TimePoint{})
	if err != nil {
		return result, err
	}
	checkBalance(&result, balance, requestedDays)

	result.Valid = len(result.Errors) == 0
	return result, nil
}

// checkBalance accepts a request beyond the effective balance only as a
// borrowing warning, and only when the balance already sits within the
// borrowing limit.
func checkBalance(result *ValidationResult, balance LeaveBalance, requestedDays decimal.Decimal) {
	if !requestedDays.GreaterThan(balance.EffectiveBalance) {
		return
	}
	if balance.CanBorrow {
		result.warn(CodeBorrowing, "request borrows against future accrual, balance after request: %s days",
			balance.Available.Sub(requestedDays))
		return
	}
	result.fail(CodeInsufficientBalance, "insufficient balance: requested %s days, available %s days",
		requestedDays, balance.EffectiveBalance)
}

// checkBlackouts surfaces the first blocking blackout as an error. Only when
// none blocks is the first warn-only blackout reported.
func checkBlackouts(result *ValidationResult, blackouts []BlackoutPeriod, requested generic.Period) {
	var warnOnly *BlackoutPeriod
	for i := range blackouts {
		b := &blackouts[i]
		if !b.Period.Overlaps(requested) {
			continue
		}
		if !b.AllowExceptions {
			result.fail(CodeBlackout, "request overlaps blackout period %s: %s", b.Period, b.Reason)
			return
		}
		if warnOnly == nil {
			warnOnly = b
		}
	}
	if warnOnly != nil {
		result.warn(CodeBlackoutException, "request overlaps blackout period %s (exceptions allowed): %s",
			warnOnly.Period, warnOnly.Reason)
	}
}
