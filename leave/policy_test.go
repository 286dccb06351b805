package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

func TestMergePolicy_SingleFieldOverride(t *testing.T) {
	// GIVEN: An override setting only BaseAnnualDays
	// WHEN: Merged with the policy
	// THEN: Only BaseAnnualDays differs from the unmerged policy

	policy := leave.StandardPolicy("std")
	policy.MaxCarryoverDays = leave.IntPtr(5)
	policy.MinNoticeDays = leave.IntPtr(7)

	override := &leave.PolicyOverride{EmployeeID: "emp-1", BaseAnnualDays: leave.IntPtr(25)}

	want := leave.MergePolicy(policy, nil)
	want.BaseAnnualDays = 25
	assert.Equal(t, want, leave.MergePolicy(policy, override))
}

func TestMergePolicy_OverrideZeroIsAValue(t *testing.T) {
	policy := leave.BorrowingPolicy("std", 5)
	noCarry := false
	monthly := leave.AccrualMonthly

	ep := leave.MergePolicy(policy, &leave.PolicyOverride{
		MaxNegativeBalance: leave.IntPtr(0),
		AllowCarryover:     &noCarry,
		AccrualMethod:      &monthly,
		MaxConsecutiveDays: leave.IntPtr(10),
	})

	assert.Equal(t, 0, ep.MaxNegativeBalance)
	assert.False(t, ep.AllowCarryover)
	assert.Equal(t, leave.AccrualMonthly, ep.AccrualMethod)
	require.NotNil(t, ep.MaxConsecutiveDays)
	assert.Equal(t, 10, *ep.MaxConsecutiveDays)
	assert.Equal(t, policy.BaseAnnualDays, ep.BaseAnnualDays)
}

func TestCarryoverExpiry(t *testing.T) {
	p := leave.StandardPolicy("std")
	assert.Nil(t, leave.MergePolicy(p, nil).CarryoverExpiry(2025))

	// Only one of the two fields set: no expiry
	p.CarryoverExpiryMonth = leave.IntPtr(3)
	assert.Nil(t, leave.MergePolicy(p, nil).CarryoverExpiry(2025))

	p.CarryoverExpiryDay = leave.IntPtr(31)
	got := leave.MergePolicy(p, nil).CarryoverExpiry(2025)
	require.NotNil(t, got)
	assert.Equal(t, date(2025, time.March, 31), *got)

	// Feb 30 clamps instead of failing
	p.CarryoverExpiryMonth = leave.IntPtr(2)
	p.CarryoverExpiryDay = leave.IntPtr(30)
	assert.Equal(t, date(2025, time.February, 28), *leave.MergePolicy(p, nil).CarryoverExpiry(2025))
	assert.Equal(t, date(2024, time.February, 29), *leave.MergePolicy(p, nil).CarryoverExpiry(2024))
}

func TestResolvePolicy(t *testing.T) {
	engine, store := newTestEngine(t, clockAt(2025, time.June, 2))
	ctx := context.Background()

	// No default policy
	_, err := engine.ResolvePolicy(ctx, "emp-1")
	require.ErrorIs(t, err, leave.ErrNoActivePolicy)

	// Inactive default is ignored
	inactive := leave.StandardPolicy("old")
	inactive.IsActive = false
	savePolicy(t, store, inactive)
	_, err = engine.ResolvePolicy(ctx, "emp-1")
	require.ErrorIs(t, err, leave.ErrNoActivePolicy)

	savePolicy(t, store, leave.StandardPolicy("std"))
	require.NoError(t, store.SaveOverride(ctx, leave.PolicyOverride{EmployeeID: "emp-1", BaseAnnualDays: leave.IntPtr(30)}))

	ep, err := engine.ResolvePolicy(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, generic.PolicyID("std"), ep.PolicyID)
	assert.Equal(t, 30, ep.BaseAnnualDays)

	ep, err = engine.ResolvePolicy(ctx, "emp-2")
	require.NoError(t, err)
	assert.Equal(t, 21, ep.BaseAnnualDays)
}

func TestSavePolicy_SecondActiveDefaultRejected(t *testing.T) {
	_, store := newTestEngine(t, clockAt(2025, time.June, 2))
	savePolicy(t, store, leave.StandardPolicy("a"))

	err := store.SavePolicy(context.Background(), leave.StandardPolicy("b"))
	require.ErrorIs(t, err, generic.ErrDuplicateDefaultPolicy)

	// Updating the existing default is fine
	p := leave.StandardPolicy("a")
	p.BaseAnnualDays = 22
	require.NoError(t, store.SavePolicy(context.Background(), p))
}
