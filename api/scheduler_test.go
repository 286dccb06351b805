package api

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
	"go.uber.org/zap"
)

func newTestScheduler(t *testing.T, withPolicy bool) (*CarryoverScheduler, *memory.Memory) {
	t.Helper()
	ctx := context.Background()
	now := func() time.Time { return time.Date(2025, time.January, 2, 8, 0, 0, 0, time.UTC) }
	store := memory.New()

	if withPolicy {
		require.NoError(t, store.SavePolicy(ctx, leave.StandardPolicy("std")))
	}
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "emp-computed", Name: "Computed", HiredAt: generic.NewTimePoint(2020, time.January, 1),
	}))
	require.NoError(t, store.SaveEmployee(ctx, leave.Employee{
		ID: "emp-manual", Name: "Manual", HiredAt: generic.NewTimePoint(2020, time.January, 1),
		ManualCarryOverDays: generic.Some(generic.Days(3.5)),
	}))
	// 15 of 21 days used in 2024
	require.NoError(t, store.SaveLeave(ctx, leave.Leave{
		ID: "l1", EmployeeID: "emp-computed",
		StartDate: generic.NewTimePoint(2024, time.May, 6),
		EndDate:   generic.NewTimePoint(2024, time.May, 24),
		Days:      generic.DaysInt(15),
		Status:    leave.StatusCompleted,
	}))

	engine := leave.NewEngine(store, leave.WithClock(now))
	cs := NewCarryoverScheduler(engine, store, zap.NewNop())
	cs.now = now
	return cs, store
}

func TestRunNow_RecordsOncePerYear(t *testing.T) {
	// GIVEN: Two employees, one with a manual carryover
	cs, store := newTestScheduler(t, true)
	ctx := context.Background()

	// WHEN: The first run happens
	first := cs.RunNow(ctx)

	// THEN: Both are recorded for 2025
	assert.Equal(t, SnapshotRunDTO{Year: 2025, Recorded: 2}, first)

	snaps, err := store.ListCarryoverSnapshots(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	byEmployee := map[generic.EmployeeID]string{}
	for _, s := range snaps {
		byEmployee[s.EmployeeID] = s.CarriedOver.String()
	}
	assert.Equal(t, "6", byEmployee["emp-computed"])
	assert.Equal(t, "3.5", byEmployee["emp-manual"])

	// WHEN: It runs again
	second := cs.RunNow(ctx)

	// THEN: Nothing new is recorded
	assert.Equal(t, SnapshotRunDTO{Year: 2025, Skipped: 2}, second)
}

func TestRunNow_NoPolicy(t *testing.T) {
	cs, store := newTestScheduler(t, false)

	result := cs.RunNow(context.Background())

	// The manual value needs no policy
	assert.Equal(t, SnapshotRunDTO{Year: 2025, Recorded: 1, Failed: 1}, result)
	has, err := store.HasCarryoverSnapshot(context.Background(), "emp-computed", 2025)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestScheduler_StartStop(t *testing.T) {
	cs, store := newTestScheduler(t, true)
	cs.CheckInterval = time.Hour

	cs.Start(context.Background())
	// Start is idempotent
	cs.Start(context.Background())

	require.Eventually(t, func() bool {
		snaps, _ := store.ListCarryoverSnapshots(context.Background(), 2025)
		return len(snaps) == 2
	}, 2*time.Second, 10*time.Millisecond)

	cs.Stop()
	cs.Stop()

	assert.Equal(t, time.Date(2025, time.January, 2, 9, 0, 0, 0, time.UTC), cs.GetNextRunTime())
}

func TestScheduler_Disabled(t *testing.T) {
	cs, store := newTestScheduler(t, true)
	cs.Enabled = false

	cs.Start(context.Background())
	cs.Stop()

	snaps, err := store.ListCarryoverSnapshots(context.Background(), 2025)
	require.NoError(t, err)
	assert.Empty(t, snaps)
}
