package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/postgres"
)

// newStore connects to LEAVE_TEST_POSTGRES_URL and starts from an empty schema.
func newStore(t *testing.T) *postgres.Store {
	t.Helper()
	url := os.Getenv("LEAVE_TEST_POSTGRES_URL")
	if url == "" {
		t.Skip("LEAVE_TEST_POSTGRES_URL not set")
	}
	ctx := context.Background()

	pool, err := postgres.Connect(ctx, url, 4)
	require.NoError(t, err)
	s := postgres.New(pool)
	t.Cleanup(func() { s.Close() })

	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Reset(ctx))
	return s
}

func TestPostgres_PolicyAndDefault(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SavePolicy(ctx, leave.StandardPolicy("std")))
	err := s.SavePolicy(ctx, leave.StandardPolicy("other"))
	assert.ErrorIs(t, err, generic.ErrDuplicateDefaultPolicy)

	p, err := s.FindDefaultActivePolicy(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, generic.PolicyID("std"), p.ID)
}

func TestPostgres_EmployeeAndDaySums(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveEmployee(ctx, leave.Employee{
		ID: "emp-1", Name: "Alice", HiredAt: generic.NewTimePoint(2020, time.January, 1),
		ManualCarryOverDays: generic.Some(generic.DaysInt(0)),
	}))
	emp, err := s.GetEmployee(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, emp.ManualCarryOverDays.IsSet())

	now := time.Now()
	for _, l := range []leave.Leave{
		{ID: "a", EmployeeID: "emp-1", StartDate: generic.NewTimePoint(2025, time.March, 3), EndDate: generic.NewTimePoint(2025, time.March, 3), Days: generic.Days(0.5), Status: leave.StatusApproved, CreatedAt: now, UpdatedAt: now},
		{ID: "b", EmployeeID: "emp-1", StartDate: generic.NewTimePoint(2025, time.August, 11), EndDate: generic.NewTimePoint(2025, time.August, 15), Days: generic.DaysInt(5), Status: leave.StatusApproved, IsCompanyShutdown: true, CreatedAt: now, UpdatedAt: now},
		{ID: "c", EmployeeID: "emp-1", StartDate: generic.NewTimePoint(2025, time.October, 6), EndDate: generic.NewTimePoint(2025, time.October, 7), Days: generic.DaysInt(2), Status: leave.StatusPending, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, s.SaveLeave(ctx, l))
	}

	taken, err := s.SumTakenDays(ctx, "emp-1", generic.CalendarYear(2025))
	require.NoError(t, err)
	assert.True(t, taken.Voluntary.Equal(generic.Days(0.5)))
	assert.True(t, taken.CompanyShutdown.Equal(generic.DaysInt(5)))

	pending, err := s.SumPendingDays(ctx, "emp-1", generic.CalendarYear(2025))
	require.NoError(t, err)
	assert.True(t, pending.Equal(generic.DaysInt(2)))

	assert.ErrorIs(t, s.UpdateLeaveStatus(ctx, "missing", leave.StatusApproved), generic.ErrLeaveNotFound)
}
