package factory_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

const fullPolicyJSON = `{
	"id": "default",
	"name": "Standard Leave",
	"is_default": true,
	"is_active": true,
	"base_annual_days": 21,
	"seniority": {"step_years": 5, "bonus_per_step": 1},
	"accrual_method": "MONTHLY",
	"rounding_method": "CEIL",
	"carryover": {"allowed": true, "max_days": 5, "expiry": {"month": 3, "day": 31}},
	"max_negative_balance": 2,
	"max_consecutive_days": 15,
	"min_notice_days": 7,
	"blackout_periods": [
		{"id": "close", "start": "2025-12-15", "end": "2025-12-31", "reason": "Year-end close", "allow_exceptions": false}
	],
	"company_shutdowns": [
		{"start": "2025-08-11", "end": "2025-08-15", "name": "Summer", "deduct_from_allowance": true}
	]
}`

func TestParsePolicy_FullSchema(t *testing.T) {
	f := factory.NewPolicyFactory()

	p, err := f.ParsePolicy(fullPolicyJSON)
	require.NoError(t, err)

	assert.Equal(t, generic.PolicyID("default"), p.ID)
	assert.True(t, p.IsDefault)
	assert.True(t, p.IsActive)
	assert.Equal(t, 21, p.BaseAnnualDays)
	assert.Equal(t, 5, p.SeniorityStepYears)
	assert.Equal(t, 1, p.BonusPerStep)
	assert.Equal(t, leave.AccrualMonthly, p.AccrualMethod)
	assert.Equal(t, leave.RoundCeil, p.RoundingMethod)
	assert.True(t, p.AllowCarryover)
	require.NotNil(t, p.MaxCarryoverDays)
	assert.Equal(t, 5, *p.MaxCarryoverDays)
	assert.Equal(t, 3, *p.CarryoverExpiryMonth)
	assert.Equal(t, 31, *p.CarryoverExpiryDay)
	assert.Equal(t, 2, p.MaxNegativeBalance)
	assert.Equal(t, 15, *p.MaxConsecutiveDays)
	assert.Equal(t, 7, *p.MinNoticeDays)

	require.Len(t, p.BlackoutPeriods, 1)
	assert.Equal(t, "close", p.BlackoutPeriods[0].ID)
	assert.Equal(t, generic.NewTimePoint(2025, time.December, 15), p.BlackoutPeriods[0].Period.Start)
	assert.False(t, p.BlackoutPeriods[0].AllowExceptions)

	require.Len(t, p.CompanyShutdowns, 1)
	assert.NotEmpty(t, p.CompanyShutdowns[0].ID, "missing ids are generated")
	assert.Equal(t, 5, p.CompanyShutdowns[0].Period.Days())
	assert.True(t, p.CompanyShutdowns[0].DeductFromAllowance)
}

func TestParsePolicy_Defaults(t *testing.T) {
	p, err := factory.NewPolicyFactory().ParsePolicy(`{"id": "minimal", "base_annual_days": 20}`)
	require.NoError(t, err)

	assert.Equal(t, leave.AccrualProRata, p.AccrualMethod)
	assert.Equal(t, leave.RoundFloor, p.RoundingMethod)
	assert.False(t, p.AllowCarryover)
	assert.Nil(t, p.MaxCarryoverDays)
	assert.Nil(t, p.MinNoticeDays)
}

func TestParsePolicy_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"id": `},
		{"missing id", `{"base_annual_days": 20}`},
		{"negative days", `{"id": "p", "base_annual_days": -1}`},
		{"unknown accrual", `{"id": "p", "accrual_method": "WEEKLY"}`},
		{"unknown rounding", `{"id": "p", "rounding_method": "BANKERS"}`},
		{"reversed blackout", `{"id": "p", "blackout_periods": [{"start": "2025-12-31", "end": "2025-12-01"}]}`},
		{"bad shutdown date", `{"id": "p", "company_shutdowns": [{"start": "2025-13-01", "end": "2025-12-01"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParsePolicy(tt.json)
			assert.Error(t, err)
		})
	}

	_, err := f.ParsePolicy(`{"id": "p", "max_negative_balance": -2}`)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)
	_, err = f.ParsePolicy(`{"id": "p", "blackout_periods": [{"start": "2025-12-31", "end": "2025-12-01"}]}`)
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)
}

func TestToJSON_RoundTrip(t *testing.T) {
	f := factory.NewPolicyFactory()
	p, err := f.ParsePolicy(fullPolicyJSON)
	require.NoError(t, err)

	back, err := f.FromJSON(f.ToJSON(p))
	require.NoError(t, err)
	assert.Equal(t, p, back)
}

func TestToJSON_OmitsEmptySections(t *testing.T) {
	p := leave.StandardPolicy("std")
	p.AllowCarryover = false
	p.SeniorityStepYears = 0
	p.BonusPerStep = 0

	pj := factory.NewPolicyFactory().ToJSON(&p)
	assert.Nil(t, pj.Carryover)
	assert.Nil(t, pj.Seniority)
	assert.Equal(t, "PRO_RATA", pj.AccrualMethod)
}

func TestParseOverride(t *testing.T) {
	f := factory.NewPolicyFactory()

	o, err := f.ParseOverride(`{"employee_id": "emp-1", "base_annual_days": 25, "accrual_method": "DAILY", "allow_carryover": false}`)
	require.NoError(t, err)

	assert.Equal(t, generic.EmployeeID("emp-1"), o.EmployeeID)
	assert.Equal(t, 25, *o.BaseAnnualDays)
	assert.Equal(t, leave.AccrualDaily, *o.AccrualMethod)
	require.NotNil(t, o.AllowCarryover)
	assert.False(t, *o.AllowCarryover)
	assert.Nil(t, o.MaxNegativeBalance)
	assert.Nil(t, o.RoundingMethod)

	oj := f.OverrideToJSON(o)
	back, err := f.OverrideFromJSON(oj)
	require.NoError(t, err)
	assert.Equal(t, o, back)
}

func TestParseOverride_Invalid(t *testing.T) {
	f := factory.NewPolicyFactory()

	_, err := f.ParseOverride(`{"base_annual_days": 25}`)
	assert.Error(t, err)
	_, err = f.ParseOverride(`{"employee_id": "emp-1", "max_negative_balance": -1}`)
	assert.ErrorIs(t, err, generic.ErrInvalidAmount)
	_, err = f.ParseOverride(`{"employee_id": "emp-1", "rounding_method": "UP"}`)
	assert.Error(t, err)
}
