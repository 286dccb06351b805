/*
policies.go - Pre-built leave policy configurations

PURPOSE:
  Ready-to-use policies for common setups. Used to seed a fresh database
  and as fixtures in tests.

AVAILABLE POLICIES:
  StandardPolicy:  21 days, +1 day every 5 years, pro rata, floor,
                   carryover allowed, no borrowing
  BorrowingPolicy: StandardPolicy that lets the balance go 5 days negative
  MonthlyPolicy:   StandardPolicy accruing per calendar month

CUSTOMIZATION:
  The returned Policy is a value; change fields before saving it.

EXAMPLE:
  p := leave.StandardPolicy("default")
  p.MinNoticeDays = leave.IntPtr(14)
  store.SavePolicy(ctx, p)
*/
package leave

import "github.com/warp/leave-engine/generic"

// StandardPolicy returns the active company default policy.
func StandardPolicy(id generic.PolicyID) Policy {
	return Policy{
		ID:                 id,
		Name:               "Standard Leave",
		IsDefault:          true,
		IsActive:           true,
		BaseAnnualDays:     21,
		SeniorityStepYears: 5,
		BonusPerStep:       1,
		AccrualMethod:      AccrualProRata,
		RoundingMethod:     RoundFloor,
		AllowCarryover:     true,
	}
}

// BorrowingPolicy allows up to maxNegative days of advance leave.
func BorrowingPolicy(id generic.PolicyID, maxNegative int) Policy {
	p := StandardPolicy(id)
	p.Name = "Standard Leave with Borrowing"
	p.MaxNegativeBalance = maxNegative
	return p
}

func MonthlyPolicy(id generic.PolicyID) Policy {
	p := StandardPolicy(id)
	p.Name = "Monthly Accrual Leave"
	p.AccrualMethod = AccrualMonthly
	return p
}

// IntPtr is a helper for the optional integer fields.
func IntPtr(v int) *int { return &v }
