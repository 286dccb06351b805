package leave_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// clockAt is 10:00 UTC on the given date, so notice periods floor.
func clockAt(year int, month time.Month, day int) func() time.Time {
	return func() time.Time { return time.Date(year, month, day, 10, 0, 0, 0, time.UTC) }
}

func newTestEngine(t *testing.T, now func() time.Time, opts ...leave.Option) (*leave.Engine, *memory.Memory) {
	t.Helper()
	store := memory.New()
	opts = append([]leave.Option{leave.WithClock(now)}, opts...)
	return leave.NewEngine(store, opts...), store
}

func savePolicy(t *testing.T, store leave.Store, p leave.Policy) {
	t.Helper()
	require.NoError(t, store.SavePolicy(context.Background(), p))
}

func saveEmployee(t *testing.T, store leave.Store, id string, hiredAt generic.TimePoint) leave.Employee {
	t.Helper()
	emp := leave.Employee{ID: generic.EmployeeID(id), Name: id, HiredAt: hiredAt}
	require.NoError(t, store.SaveEmployee(context.Background(), emp))
	return emp
}

var leaveSeq int

func saveLeave(t *testing.T, store leave.Store, employeeID string, start generic.TimePoint, days float64, status leave.Status) leave.Leave {
	t.Helper()
	leaveSeq++
	l := leave.Leave{
		ID:         generic.LeaveID(fmt.Sprintf("leave-%d", leaveSeq)),
		EmployeeID: generic.EmployeeID(employeeID),
		StartDate:  start,
		EndDate:    start.AddDays(int(days) - 1),
		Days:       generic.Days(days),
		Status:     status,
	}
	require.NoError(t, store.SaveLeave(context.Background(), l))
	return l
}

func saveShutdownLeave(t *testing.T, store leave.Store, employeeID string, start generic.TimePoint, days float64) {
	t.Helper()
	l := saveLeave(t, store, employeeID, start, days, leave.StatusApproved)
	l.IsCompanyShutdown = true
	require.NoError(t, store.SaveLeave(context.Background(), l))
}

func assertDays(t *testing.T, want float64, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	msg := fmt.Sprintf("want %v days, got %s", want, got)
	if len(msgAndArgs) > 0 {
		if format, ok := msgAndArgs[0].(string); ok {
			msg += ": " + fmt.Sprintf(format, msgAndArgs[1:]...)
		}
	}
	assert.True(t, generic.Days(want).Equal(got), msg)
}

func issueCodes(issues []leave.Issue) []string {
	codes := make([]string, len(issues))
	for i, is := range issues {
		codes[i] = is.Code
	}
	return codes
}

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}
