/*
Package generic provides the calendar and value primitives of the leave engine.

PURPOSE:
  This package contains domain-agnostic building blocks that the leave
  package composes: calendar dates, inclusive periods, tenure arithmetic,
  day amounts and optional values. Nothing here knows about policies,
  accruals or leave records.

KEY CONCEPTS IN THIS FILE (types.go):
  - Identifiers: Type-safe IDs so employee and policy IDs cannot be mixed
  - Days: Decimal day counts (half days are valid, floats are not)
  - Optional: Tri-state value distinguishing "unset" from "set to zero"

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point drift
  2. Total functions: Calendar helpers clamp instead of failing
  3. Type Safety: Strong typing for IDs

USAGE:
  hired := generic.NewTimePoint(2020, time.January, 1)
  t := generic.CalculateTenure(hired, generic.Today())
  manual := generic.Some(generic.Days(0)) // explicitly zero, not unset

SEE ALSO:
  - time.go: TimePoint and calendar utilities
  - period.go: Inclusive date ranges
  - tenure.go: Years/months/days of service
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type PolicyID string
type LeaveID string

// =============================================================================
// DAYS - Decimal day counts
// =============================================================================

// Days converts a day count to a decimal. Half days are exact.
func Days(n float64) decimal.Decimal {
	return decimal.NewFromFloat(n)
}

// DaysInt converts a whole day count to a decimal.
func DaysInt(n int) decimal.Decimal {
	return decimal.NewFromInt(int64(n))
}

// =============================================================================
// OPTIONAL - Explicit presence flag
// =============================================================================

// Optional holds a value together with whether it was set. The zero value is
// "unset", which differs from Some(zero).
type Optional[T any] struct {
	value T
	set   bool
}

func Some[T any](v T) Optional[T] { return Optional[T]{value: v, set: true} }
func None[T any]() Optional[T]    { return Optional[T]{} }

// FromPtr maps nil to None and any non-nil pointer to Some.
func FromPtr[T any](p *T) Optional[T] {
	if p == nil {
		return None[T]()
	}
	return Some(*p)
}

func (o Optional[T]) IsSet() bool    { return o.set }
func (o Optional[T]) Get() (T, bool) { return o.value, o.set }

// OrElse returns the held value, or fallback when unset.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

// Ptr returns nil when unset.
func (o Optional[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.value
	return &v
}
