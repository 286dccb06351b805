package leave_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// newTestRequestService has emp-1 hired 2024-01-01 with a manual carryover
// of 0 (computed would be 21) and floor(21*153/365) = 8 accrued by 2025-06-02.
func newTestRequestService(t *testing.T, p leave.Policy) (*leave.RequestService, *memory.Memory) {
	t.Helper()
	engine, store := newTestEngine(t, clockAt(2025, time.June, 2))
	savePolicy(t, store, p)
	emp := saveEmployee(t, store, "emp-1", date(2024, time.January, 1))
	emp.ManualCarryOverDays = generic.Some(generic.DaysInt(0))
	require.NoError(t, store.SaveEmployee(context.Background(), emp))
	return leave.NewRequestService(engine, store), store
}

func submit(rs *leave.RequestService, start generic.TimePoint, days float64) (*leave.Leave, leave.ValidationResult, error) {
	return rs.Submit(context.Background(), leave.SubmitRequest{
		EmployeeID: "emp-1",
		StartDate:  start,
		EndDate:    start.AddDays(int(days) - 1),
		Days:       generic.Days(days),
		Reason:     "holiday",
	})
}

// =============================================================================
// TRANSITION TABLE
// =============================================================================

func TestCanTransition(t *testing.T) {
	allowed := map[[2]leave.Status]bool{
		{leave.StatusPending, leave.StatusApproved}:   true,
		{leave.StatusPending, leave.StatusRejected}:   true,
		{leave.StatusPending, leave.StatusCancelled}:  true,
		{leave.StatusApproved, leave.StatusCompleted}: true,
		{leave.StatusApproved, leave.StatusCancelled}: true,
	}
	all := []leave.Status{leave.StatusPending, leave.StatusApproved, leave.StatusCompleted, leave.StatusRejected, leave.StatusCancelled}

	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]leave.Status{from, to}], leave.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestSubmit_StoresPending(t *testing.T) {
	rs, store := newTestRequestService(t, leave.StandardPolicy("std"))

	l, result, err := submit(rs, date(2025, time.July, 7), 3)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, leave.StatusPending, l.Status)
	assert.NotEmpty(t, l.ID)

	stored, err := store.GetLeave(context.Background(), l.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, leave.StatusPending, stored.Status)

	b, err := rs.Engine.CalculateLeaveBalance(context.Background(), "emp-1", date(2024, time.January, 1), generic.Some(generic.DaysInt(0)), generic.TimePoint{})
	require.NoError(t, err)
	assertDays(t, 3, b.PendingDays)
	assertDays(t, 8, b.Available)
}

func TestSubmit_UsesEmployeeManualCarryover(t *testing.T) {
	// GIVEN: The computed carryover would be 21, the manual value is 0
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))

	// WHEN: 10 days are requested against 8 accrued
	_, result, err := submit(rs, date(2025, time.July, 7), 10)

	// THEN: Rejected, the manual carryover is what counts
	var rejected *leave.RequestRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.ErrorIs(t, err, leave.ErrRequestRejected)
	assert.False(t, result.Valid)
	assert.Equal(t, []string{leave.CodeInsufficientBalance}, issueCodes(rejected.Result.Errors))
}

func TestSubmit_RejectedIsNotStored(t *testing.T) {
	p := leave.StandardPolicy("std")
	p.BlackoutPeriods = []leave.BlackoutPeriod{{
		Period: generic.Period{Start: date(2025, time.July, 1), End: date(2025, time.July, 31)},
		Reason: "Peak season",
	}}
	rs, store := newTestRequestService(t, p)

	l, _, err := submit(rs, date(2025, time.July, 7), 1)
	require.Error(t, err)
	assert.Nil(t, l)

	leaves, err := store.ListLeaves(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestSubmit_WarningsDoNotBlock(t *testing.T) {
	// GIVEN: 9 of 8 accrued days taken, borrowing up to 5
	rs, store := newTestRequestService(t, leave.BorrowingPolicy("std", 5))
	saveLeave(t, store, "emp-1", date(2025, time.March, 3), 9, leave.StatusApproved)

	// WHEN: 10 more days are requested
	l, result, err := submit(rs, date(2025, time.July, 7), 10)

	// THEN: Stored as pending with a borrowing warning
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, leave.StatusPending, l.Status)
	assert.Equal(t, []string{leave.CodeBorrowing}, issueCodes(result.Warnings))
	assert.Contains(t, result.Warnings[0].Message, "-11")

	// WHEN: It is approved while the balance is still within the limit
	approved, err := rs.Approve(context.Background(), l.ID)

	// THEN: Approval follows the same borrowing rule
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)
}

func TestSubmit_PositiveBalanceCannotBorrow(t *testing.T) {
	// GIVEN: 8 days available, borrowing up to 5
	rs, store := newTestRequestService(t, leave.BorrowingPolicy("std", 5))

	// WHEN: 10 days are requested
	l, result, err := submit(rs, date(2025, time.July, 7), 10)

	// THEN: Rejected, borrowing only applies once the balance is negative
	var rejected *leave.RequestRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Nil(t, l)
	assert.Equal(t, []string{leave.CodeInsufficientBalance}, issueCodes(result.Errors))

	leaves, err := store.ListLeaves(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestValidate_UsesEmployeeManualCarryover(t *testing.T) {
	// GIVEN: A manual carryover of 10 on top of 8 accrued
	rs, store := newTestRequestService(t, leave.StandardPolicy("std"))
	emp, err := store.GetEmployee(context.Background(), "emp-1")
	require.NoError(t, err)
	emp.ManualCarryOverDays = generic.Some(generic.DaysInt(10))
	require.NoError(t, store.SaveEmployee(context.Background(), *emp))

	// WHEN: 12 days are validated
	result, err := rs.Validate(context.Background(), leave.SubmitRequest{
		EmployeeID: "emp-1",
		StartDate:  date(2025, time.July, 7),
		EndDate:    date(2025, time.July, 22),
		Days:       generic.DaysInt(12),
	})

	// THEN: Valid, and nothing is stored
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Errors)

	leaves, err := store.ListLeaves(context.Background(), "emp-1")
	require.NoError(t, err)
	assert.Empty(t, leaves)
}

func TestValidate_InvalidInput(t *testing.T) {
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))

	_, err := rs.Validate(context.Background(), leave.SubmitRequest{
		EmployeeID: "emp-1",
		StartDate:  date(2025, time.July, 7),
		EndDate:    date(2025, time.July, 7),
	})
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	_, err = rs.Validate(context.Background(), leave.SubmitRequest{
		EmployeeID: "ghost",
		StartDate:  date(2025, time.July, 7),
		EndDate:    date(2025, time.July, 7),
		Days:       generic.Days(1),
	})
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

func TestSubmit_InvalidInput(t *testing.T) {
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))

	_, _, err := submit(rs, date(2025, time.July, 7), 0)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)

	_, _, err = rs.Submit(context.Background(), leave.SubmitRequest{
		EmployeeID: "ghost",
		StartDate:  date(2025, time.July, 7),
		EndDate:    date(2025, time.July, 7),
		Days:       generic.Days(1),
	})
	assert.True(t, generic.IsNotFound(err))
	assert.ErrorIs(t, err, generic.ErrEntityNotFound)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestLifecycle_ApproveComplete(t *testing.T) {
	rs, store := newTestRequestService(t, leave.StandardPolicy("std"))
	ctx := context.Background()

	l, _, err := submit(rs, date(2025, time.July, 7), 3)
	require.NoError(t, err)

	approved, err := rs.Approve(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusApproved, approved.Status)

	_, err = rs.Approve(ctx, l.ID)
	var invalid *leave.InvalidTransitionError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, leave.StatusApproved, invalid.From)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	completed, err := rs.Complete(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCompleted, completed.Status)

	_, err = rs.Cancel(ctx, l.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	stored, err := store.GetLeave(ctx, l.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCompleted, stored.Status)
}

func TestLifecycle_RejectAndCancel(t *testing.T) {
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))
	ctx := context.Background()

	first, _, err := submit(rs, date(2025, time.July, 7), 1)
	require.NoError(t, err)
	rejected, err := rs.Reject(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusRejected, rejected.Status)
	_, err = rs.Approve(ctx, first.ID)
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)

	second, _, err := submit(rs, date(2025, time.July, 14), 1)
	require.NoError(t, err)
	_, err = rs.Approve(ctx, second.ID)
	require.NoError(t, err)
	cancelled, err := rs.Cancel(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, leave.StatusCancelled, cancelled.Status)
}

func TestLifecycle_UnknownLeave(t *testing.T) {
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))

	_, err := rs.Approve(context.Background(), "nope")
	assert.ErrorIs(t, err, generic.ErrLeaveNotFound)
}

func TestApprove_RechecksBalance(t *testing.T) {
	// GIVEN: Two pending requests of 5 days against 8 available
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))
	ctx := context.Background()

	a, _, err := submit(rs, date(2025, time.July, 7), 5)
	require.NoError(t, err)
	b, _, err := submit(rs, date(2025, time.August, 4), 5)
	require.NoError(t, err)

	// WHEN: Both are approved
	_, err = rs.Approve(ctx, a.ID)
	require.NoError(t, err)
	_, err = rs.Approve(ctx, b.ID)

	// THEN: The second no longer fits
	var rejected *leave.RequestRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, []string{leave.CodeInsufficientBalance}, issueCodes(rejected.Result.Errors))
}

func TestApprove_ConcurrentSingleWinner(t *testing.T) {
	// GIVEN: Four pending requests of 5 days against 8 available
	rs, store := newTestRequestService(t, leave.StandardPolicy("std"))
	ctx := context.Background()

	var ids []generic.LeaveID
	for i := 0; i < 4; i++ {
		l, _, err := submit(rs, date(2025, time.July, 7+7*i), 5)
		require.NoError(t, err)
		ids = append(ids, l.ID)
	}

	// WHEN: All are approved at once
	var wg sync.WaitGroup
	errs := make([]error, len(ids))
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id generic.LeaveID) {
			defer wg.Done()
			_, errs[i] = rs.Approve(ctx, id)
		}(i, id)
	}
	wg.Wait()

	// THEN: Exactly one is approved
	approved := 0
	for _, err := range errs {
		if err == nil {
			approved++
			continue
		}
		assert.True(t, errors.Is(err, leave.ErrRequestRejected), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, approved)

	taken, err := store.SumTakenDays(ctx, "emp-1", generic.CalendarYear(2025))
	require.NoError(t, err)
	assertDays(t, 5, taken.Total())
}

// =============================================================================
// SHUTDOWNS
// =============================================================================

func TestRecordShutdown(t *testing.T) {
	rs, _ := newTestRequestService(t, leave.StandardPolicy("std"))
	ctx := context.Background()

	summer := leave.CompanyShutdown{
		ID:                  "summer",
		Period:              generic.Period{Start: date(2025, time.August, 11), End: date(2025, time.August, 15)},
		Name:                "Summer closure",
		DeductFromAllowance: true,
	}
	l, err := rs.RecordShutdown(ctx, "emp-1", summer)
	require.NoError(t, err)
	require.NotNil(t, l)
	assert.Equal(t, leave.StatusApproved, l.Status)
	assert.True(t, l.IsCompanyShutdown)
	assertDays(t, 5, l.Days)

	free := summer
	free.DeductFromAllowance = false
	l, err = rs.RecordShutdown(ctx, "emp-1", free)
	require.NoError(t, err)
	assert.Nil(t, l)

	b, err := rs.Engine.CalculateLeaveBalance(ctx, "emp-1", date(2024, time.January, 1), generic.Some(generic.DaysInt(0)), date(2025, time.December, 31))
	require.NoError(t, err)
	assertDays(t, 5, b.CompanyShutdownDays)
	assertDays(t, 0, b.VoluntaryDays)

	_, err = rs.RecordShutdown(ctx, "ghost", summer)
	assert.True(t, generic.IsNotFound(err))
}
