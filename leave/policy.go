package leave

import (
	"time"

	"github.com/warp/leave-engine/generic"
)

// =============================================================================
// EFFECTIVE POLICY - Default policy merged with an employee override
// =============================================================================

// EffectivePolicy is the single rule set the calculators read.
type EffectivePolicy struct {
	PolicyID generic.PolicyID

	BaseAnnualDays     int
	SeniorityStepYears int
	BonusPerStep       int
	AccrualMethod      AccrualMethod
	RoundingMethod     RoundingMethod
	AllowCarryover     bool
	MaxCarryoverDays   *int
	MaxNegativeBalance int
	MaxConsecutiveDays *int

	// Policy-only fields, never overridden.
	CarryoverExpiryMonth *int
	CarryoverExpiryDay   *int
	MinNoticeDays        *int
	BlackoutPeriods      []BlackoutPeriod
	CompanyShutdowns     []CompanyShutdown
}

// MergePolicy returns override.field when present, else policy.field.
// A nil override yields the policy unchanged.
func MergePolicy(policy Policy, override *PolicyOverride) EffectivePolicy {
	ep := EffectivePolicy{
		PolicyID:             policy.ID,
		BaseAnnualDays:       policy.BaseAnnualDays,
		SeniorityStepYears:   policy.SeniorityStepYears,
		BonusPerStep:         policy.BonusPerStep,
		AccrualMethod:        policy.AccrualMethod,
		RoundingMethod:       policy.RoundingMethod,
		AllowCarryover:       policy.AllowCarryover,
		MaxCarryoverDays:     policy.MaxCarryoverDays,
		MaxNegativeBalance:   policy.MaxNegativeBalance,
		MaxConsecutiveDays:   policy.MaxConsecutiveDays,
		CarryoverExpiryMonth: policy.CarryoverExpiryMonth,
		CarryoverExpiryDay:   policy.CarryoverExpiryDay,
		MinNoticeDays:        policy.MinNoticeDays,
		BlackoutPeriods:      policy.BlackoutPeriods,
		CompanyShutdowns:     policy.CompanyShutdowns,
	}
	if override == nil {
		return ep
	}

	ep.BaseAnnualDays = pick(override.BaseAnnualDays, ep.BaseAnnualDays)
	ep.SeniorityStepYears = pick(override.SeniorityStepYears, ep.SeniorityStepYears)
	ep.BonusPerStep = pick(override.BonusPerStep, ep.BonusPerStep)
	ep.AccrualMethod = pick(override.AccrualMethod, ep.AccrualMethod)
	ep.RoundingMethod = pick(override.RoundingMethod, ep.RoundingMethod)
	ep.AllowCarryover = pick(override.AllowCarryover, ep.AllowCarryover)
	ep.MaxNegativeBalance = pick(override.MaxNegativeBalance, ep.MaxNegativeBalance)
	if override.MaxCarryoverDays != nil {
		ep.MaxCarryoverDays = override.MaxCarryoverDays
	}
	if override.MaxConsecutiveDays != nil {
		ep.MaxConsecutiveDays = override.MaxConsecutiveDays
	}
	return ep
}

func pick[T any](override *T, fallback T) T {
	if override != nil {
		return *override
	}
	return fallback
}

// CarryoverExpiry returns the expiry date of carried-over days for year, or
// nil when the policy sets no cutoff. Invalid month/day values are clamped.
func (ep EffectivePolicy) CarryoverExpiry(year int) *generic.TimePoint {
	if ep.CarryoverExpiryMonth == nil || ep.CarryoverExpiryDay == nil {
		return nil
	}
	d := generic.SafeDate(year, time.Month(*ep.CarryoverExpiryMonth), *ep.CarryoverExpiryDay)
	return &d
}
