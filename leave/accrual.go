/*
accrual.go - Annual entitlement and accrued-to-date

PURPOSE:
  Answers two questions for a calendar year:
    1. How many days is the employee entitled to this year? (seniority bonus)
    2. How many of those have been earned by a given date?

ENTITLEMENT:
  base + floor(tenureYears / seniorityStepYears) * bonusPerStep
  Tenure years come from the calendar-aware tenure, not a day count.

ACCRUAL METHODS (evaluated inside asOf's calendar year):
  effectiveStart = max(hiredAt, Jan 1)
  daysElapsed    = days(effectiveStart, asOf) + 1   (both ends inclusive)

  DAILY / PRO_RATA:
    entitlement * daysElapsed / daysInYear(year)
    A leap year divides by 366, so its per-day rate is slightly lower;
    a full year still yields exactly the entitlement.

  MONTHLY:
    entitlement / 12 * calendar months from effectiveStart's month through
    asOf's month, inclusive (hired and evaluated in the same month = 1)

  AT_YEAR_START:
    full entitlement if hired before Jan 1, else 0 (new hires wait for the
    next Jan 1)

ROUNDING:
  The accrual is a real number; callers round with ApplyRounding.
  FLOOR, CEIL, ROUND (half away from zero). Unknown methods floor.

EXAMPLE:
  hired 2020-01-01, asOf 2025-07-01, base 21, +1 per 5 years, PRO_RATA
  entitlement = 21 + floor(5/5)*1 = 22
  accrued     = 22 * 182 / 365 = 10.97 -> FLOOR -> 10

SEE ALSO:
  - generic/tenure.go: Tenure years
  - carryover.go: Re-evaluates these at Dec 31 of the prior year
*/
package leave

import (
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// ENTITLEMENT
// =============================================================================

// CalculateAnnualEntitlement returns the full-year entitlement including the
// seniority bonus earned by asOf. A step of zero years disables the bonus.
func CalculateAnnualEntitlement(hiredAt generic.TimePoint, policy EffectivePolicy, asOf generic.TimePoint) decimal.Decimal {
	days := policy.BaseAnnualDays
	if policy.SeniorityStepYears > 0 {
		years := generic.CalculateTenure(hiredAt, asOf).Years
		days += years / policy.SeniorityStepYears * policy.BonusPerStep
	}
	return generic.DaysInt(days)
}

// =============================================================================
// ACCRUAL
// =============================================================================

type accrualWindow struct {
	hiredAt        generic.TimePoint
	yearStart      generic.TimePoint
	effectiveStart generic.TimePoint
	asOf           generic.TimePoint
}

type accrualFormula func(entitlement decimal.Decimal, w accrualWindow) decimal.Decimal

var accrualFormulas = map[AccrualMethod]accrualFormula{
	AccrualDaily:       accrueProRata,
	AccrualProRata:     accrueProRata,
	AccrualMonthly:     accrueMonthly,
	AccrualAtYearStart: accrueAtYearStart,
}

// CalculateAccrued returns the unrounded accrued-to-date amount of
// entitlement within asOf's calendar year. Unknown methods accrue pro rata.
func CalculateAccrued(hiredAt generic.TimePoint, entitlement decimal.Decimal, method AccrualMethod, asOf generic.TimePoint) decimal.Decimal {
	yearStart := generic.StartOfYear(asOf.Year())
	w := accrualWindow{
		hiredAt:        hiredAt,
		yearStart:      yearStart,
		effectiveStart: generic.Max(hiredAt, yearStart),
		asOf:           asOf,
	}

	formula, ok := accrualFormulas[method]
	if !ok {
		formula = accrueProRata
	}
	return formula(entitlement, w)
}

func accrueProRata(entitlement decimal.Decimal, w accrualWindow) decimal.Decimal {
	if w.asOf.Before(w.effectiveStart) {
		return decimal.Zero
	}
	elapsed := generic.DaysBetween(w.effectiveStart, w.asOf) + 1
	perYear := generic.DaysInt(generic.DaysInYear(w.asOf.Year()))
	return entitlement.Mul(generic.DaysInt(elapsed)).Div(perYear)
}

func accrueMonthly(entitlement decimal.Decimal, w accrualWindow) decimal.Decimal {
	if w.asOf.Before(w.effectiveStart) {
		return decimal.Zero
	}
	months := int(w.asOf.Month()) - int(w.effectiveStart.Month()) + 1
	return entitlement.Mul(generic.DaysInt(months)).Div(twelve)
}

func accrueAtYearStart(entitlement decimal.Decimal, w accrualWindow) decimal.Decimal {
	if w.hiredAt.Before(w.yearStart) {
		return entitlement
	}
	return decimal.Zero
}

// =============================================================================
// ROUNDING
// =============================================================================

var roundingFuncs = map[RoundingMethod]func(decimal.Decimal) decimal.Decimal{
	RoundFloor: decimal.Decimal.Floor,
	RoundCeil:  decimal.Decimal.Ceil,
	RoundRound: func(d decimal.Decimal) decimal.Decimal { return d.Round(0) },
}

// ApplyRounding rounds value to whole days. Unknown methods floor.
func ApplyRounding(value decimal.Decimal, method RoundingMethod) decimal.Decimal {
	round, ok := roundingFuncs[method]
	if !ok {
		round = decimal.Decimal.Floor
	}
	return round(value)
}

// accruedRounded is the accrued amount the balance and carryover use.
func accruedRounded(hiredAt generic.TimePoint, policy EffectivePolicy, asOf generic.TimePoint) (entitlement, accrued decimal.Decimal) {
	entitlement = CalculateAnnualEntitlement(hiredAt, policy, asOf)
	accrued = ApplyRounding(CalculateAccrued(hiredAt, entitlement, policy.AccrualMethod, asOf), policy.RoundingMethod)
	return entitlement, accrued
}

var twelve = decimal.NewFromInt(12)
