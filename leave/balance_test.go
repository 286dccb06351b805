package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func unset() generic.Optional[decimal.Decimal] { return generic.None[decimal.Decimal]() }

func TestCalculateLeaveBalance_NoActivePolicy(t *testing.T) {
	engine, _ := newTestEngine(t, clockAt(2025, time.July, 1))

	_, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2020, time.January, 1), unset(), date(2025, time.July, 1))
	require.ErrorIs(t, err, leave.ErrNoActivePolicy)
}

func TestCalculateLeaveBalance_FiveYearEmployee(t *testing.T) {
	// GIVEN: 21 base days, +1 per 5 years, pro rata, floor, no borrowing
	//        Employee hired 2020-01-01 with 3 days taken in 2025
	// WHEN: Balance as of 2025-07-01
	// THEN: Entitlement 22, accrued floor(22*182/365) = 10, available 7

	engine, store := newTestEngine(t, clockAt(2025, time.July, 1))
	p := leave.StandardPolicy("std")
	p.AllowCarryover = false
	savePolicy(t, store, p)
	saveLeave(t, store, "emp-1", date(2025, time.March, 3), 3, leave.StatusApproved)

	b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2020, time.January, 1), unset(), date(2025, time.July, 1))
	require.NoError(t, err)

	assert.Equal(t, 5, b.Tenure.Years)
	assertDays(t, 22, b.AnnualEntitlement)
	assertDays(t, 10, b.Accrued)
	assertDays(t, 0, b.CarriedOver)
	assertDays(t, 3, b.Taken)
	assertDays(t, 7, b.Available)
	assertDays(t, 7, b.EffectiveBalance)
	assert.False(t, b.CanBorrow)
	assert.Equal(t, 2025, b.Year)
	assert.Equal(t, generic.PolicyID("std"), b.Policy.PolicyID)
}

func TestCalculateLeaveBalance_ManualZeroCarryoverWins(t *testing.T) {
	// GIVEN: 6 days would carry from 2024
	engine, store := newTestEngine(t, clockAt(2025, time.July, 1))
	savePolicy(t, store, leave.StandardPolicy("std"))
	saveLeave(t, store, "emp-1", date(2024, time.May, 5), 15, leave.StatusCompleted)
	hired := date(2020, time.January, 1)
	asOf := date(2025, time.July, 1)

	// WHEN: No manual value is given
	computed, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", hired, unset(), asOf)
	require.NoError(t, err)
	// THEN: The computed carryover is used
	assertDays(t, 6, computed.CarriedOver)
	assert.False(t, computed.CarriedOverIsManual)

	// WHEN: An explicit zero is given
	manual, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", hired, generic.Some(decimal.Zero), asOf)
	require.NoError(t, err)
	// THEN: Zero is used, not the computed value
	assertDays(t, 0, manual.CarriedOver)
	assert.True(t, manual.CarriedOverIsManual)
	assert.True(t, computed.Available.Sub(manual.Available).Equal(generic.DaysInt(6)))

	// Manual values replace, they do not add
	half, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", hired, generic.Some(generic.Days(2.5)), asOf)
	require.NoError(t, err)
	assertDays(t, 2.5, half.CarriedOver)
}

func TestCalculateLeaveBalance_TakenSplitAndPending(t *testing.T) {
	engine, store := newTestEngine(t, clockAt(2025, time.September, 1))
	p := leave.StandardPolicy("std")
	p.AllowCarryover = false
	savePolicy(t, store, p)

	saveShutdownLeave(t, store, "emp-1", date(2025, time.August, 11), 5)
	saveLeave(t, store, "emp-1", date(2025, time.February, 3), 2, leave.StatusCompleted)
	saveLeave(t, store, "emp-1", date(2025, time.October, 6), 4, leave.StatusPending)
	saveLeave(t, store, "emp-1", date(2025, time.June, 2), 3, leave.StatusRejected)

	b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2018, time.January, 1), unset(), date(2025, time.December, 31))
	require.NoError(t, err)

	assertDays(t, 5, b.CompanyShutdownDays)
	assertDays(t, 2, b.VoluntaryDays)
	assertDays(t, 7, b.Taken)
	assertDays(t, 4, b.PendingDays)
	// Pending is reported, not subtracted
	assertDays(t, 22-7, b.Available)
}

func TestCalculateLeaveBalance_Borrowing(t *testing.T) {
	tests := []struct {
		name          string
		taken         float64
		wantAvailable float64
		wantEffective float64
		wantCanBorrow bool
	}{
		{"positive", 1, 0, 0, false},
		{"within limit", 4, -3, -3, true},
		{"at limit", 6, -5, -5, true},
		{"beyond limit", 8, -7, -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Hired 2025-01-01, Jan 31: floor(21*31/365) = 1 accrued
			engine, store := newTestEngine(t, clockAt(2025, time.January, 31))
			savePolicy(t, store, leave.BorrowingPolicy("std", 5))
			saveLeave(t, store, "emp-1", date(2025, time.January, 20), tt.taken, leave.StatusApproved)

			b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2025, time.January, 1), unset(), generic.TimePoint{})
			require.NoError(t, err)

			assertDays(t, 1, b.Accrued)
			assertDays(t, tt.wantAvailable, b.Available)
			assertDays(t, tt.wantEffective, b.EffectiveBalance)
			assert.Equal(t, tt.wantCanBorrow, b.CanBorrow)
			assert.Equal(t, 5, b.MaxNegativeBalance)
		})
	}
}

func TestCalculateLeaveBalance_ZeroAsOfUsesClock(t *testing.T) {
	engine, store := newTestEngine(t, clockAt(2025, time.March, 15))
	savePolicy(t, store, leave.StandardPolicy("std"))

	b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2020, time.January, 1), unset(), generic.TimePoint{})
	require.NoError(t, err)
	assert.Equal(t, date(2025, time.March, 15), b.AsOf)
}

func TestCalculateLeaveBalance_OverrideAndExpiry(t *testing.T) {
	engine, store := newTestEngine(t, clockAt(2025, time.December, 31))
	p := leave.StandardPolicy("std")
	p.AllowCarryover = false
	p.CarryoverExpiryMonth = leave.IntPtr(3)
	p.CarryoverExpiryDay = leave.IntPtr(31)
	savePolicy(t, store, p)
	require.NoError(t, store.SaveOverride(context.Background(), leave.PolicyOverride{
		EmployeeID:     "emp-1",
		BaseAnnualDays: leave.IntPtr(25),
	}))

	b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2024, time.January, 1), unset(), date(2025, time.December, 31))
	require.NoError(t, err)

	assertDays(t, 25, b.AnnualEntitlement)
	assertDays(t, 25, b.Accrued)
	require.NotNil(t, b.CarriedOverExpiry)
	assert.Equal(t, date(2025, time.March, 31), *b.CarriedOverExpiry)
}

func TestCalculateLeaveBalance_MonthlyPolicy(t *testing.T) {
	// Seven months of 22/12 days, floored
	engine, store := newTestEngine(t, clockAt(2025, time.July, 1))
	p := leave.MonthlyPolicy("monthly")
	p.AllowCarryover = false
	savePolicy(t, store, p)

	b, err := engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2020, time.January, 1), unset(), date(2025, time.July, 1))
	require.NoError(t, err)

	assert.Equal(t, leave.AccrualMonthly, b.Policy.AccrualMethod)
	assertDays(t, 12, b.Accrued)
	assertDays(t, 12, b.Available)
}
