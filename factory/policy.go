/*
Package factory provides JSON to Go policy conversion.

PURPOSE:
  Converts JSON policy and override definitions into leave.Policy and
  leave.PolicyOverride. HR defines policies in JSON through the admin API;
  the SQL stores keep the same JSON in a config_json column.

JSON SCHEMA (policy):
  {
    "id": "default",
    "name": "Standard Leave",
    "is_default": true,
    "is_active": true,
    "base_annual_days": 21,
    "seniority": {"step_years": 5, "bonus_per_step": 1},
    "accrual_method": "PRO_RATA",
    "rounding_method": "FLOOR",
    "carryover": {
      "allowed": true,
      "max_days": 5,
      "expiry": {"month": 3, "day": 31}
    },
    "max_negative_balance": 0,
    "max_consecutive_days": 15,
    "min_notice_days": 7,
    "blackout_periods": [
      {"start": "2025-12-15", "end": "2025-12-31", "reason": "Year-end close", "allow_exceptions": false}
    ],
    "company_shutdowns": [
      {"start": "2025-08-11", "end": "2025-08-15", "name": "Summer", "deduct_from_allowance": true}
    ]
  }

JSON SCHEMA (override):
  Every field optional; absent fields fall through to the policy.
  {"employee_id": "emp-1", "base_annual_days": 25, "max_negative_balance": 3}

VALIDATION:
  - Methods must be one of the known enum values
  - Day counts must be non-negative
  - Date ranges must parse as YYYY-MM-DD with end >= start
  Missing methods default to PRO_RATA / FLOOR.

USAGE:
  f := factory.NewPolicyFactory()
  policy, err := f.ParsePolicy(jsonString)
  pj := f.ToJSON(policy)

SEE ALSO:
  - leave/types.go: Policy and PolicyOverride
  - leave/policies.go: Go-based presets
*/
package factory

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PolicyJSON is the JSON representation of a policy.
type PolicyJSON struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	IsDefault          bool            `json:"is_default"`
	IsActive           bool            `json:"is_active"`
	BaseAnnualDays     int             `json:"base_annual_days"`
	Seniority          *SeniorityJSON  `json:"seniority,omitempty"`
	AccrualMethod      string          `json:"accrual_method,omitempty"`
	RoundingMethod     string          `json:"rounding_method,omitempty"`
	Carryover          *CarryoverJSON  `json:"carryover,omitempty"`
	MaxNegativeBalance int             `json:"max_negative_balance,omitempty"`
	MaxConsecutiveDays *int            `json:"max_consecutive_days,omitempty"`
	MinNoticeDays      *int            `json:"min_notice_days,omitempty"`
	BlackoutPeriods    []BlackoutJSON  `json:"blackout_periods,omitempty"`
	CompanyShutdowns   []ShutdownJSON  `json:"company_shutdowns,omitempty"`
}

type SeniorityJSON struct {
	StepYears    int `json:"step_years"`
	BonusPerStep int `json:"bonus_per_step"`
}

type CarryoverJSON struct {
	Allowed bool        `json:"allowed"`
	MaxDays *int        `json:"max_days,omitempty"` // absent = unbounded
	Expiry  *ExpiryJSON `json:"expiry,omitempty"`
}

type ExpiryJSON struct {
	Month int `json:"month"`
	Day   int `json:"day"`
}

type BlackoutJSON struct {
	ID              string `json:"id,omitempty"`
	Start           string `json:"start"`
	End             string `json:"end"`
	Reason          string `json:"reason"`
	AllowExceptions bool   `json:"allow_exceptions"`
}

type ShutdownJSON struct {
	ID                  string `json:"id,omitempty"`
	Start               string `json:"start"`
	End                 string `json:"end"`
	Name                string `json:"name"`
	DeductFromAllowance bool   `json:"deduct_from_allowance"`
}

// OverrideJSON is the JSON representation of a per-employee override.
type OverrideJSON struct {
	EmployeeID         string  `json:"employee_id"`
	BaseAnnualDays     *int    `json:"base_annual_days,omitempty"`
	SeniorityStepYears *int    `json:"seniority_step_years,omitempty"`
	BonusPerStep       *int    `json:"bonus_per_step,omitempty"`
	AccrualMethod      *string `json:"accrual_method,omitempty"`
	RoundingMethod     *string `json:"rounding_method,omitempty"`
	AllowCarryover     *bool   `json:"allow_carryover,omitempty"`
	MaxCarryoverDays   *int    `json:"max_carryover_days,omitempty"`
	MaxNegativeBalance *int    `json:"max_negative_balance,omitempty"`
	MaxConsecutiveDays *int    `json:"max_consecutive_days,omitempty"`
}

// =============================================================================
// POLICY FACTORY
// =============================================================================

// PolicyFactory converts JSON policies to Go structs.
type PolicyFactory struct{}

func NewPolicyFactory() *PolicyFactory {
	return &PolicyFactory{}
}

// ParsePolicy parses a JSON string into a Policy.
func (f *PolicyFactory) ParsePolicy(jsonStr string) (*leave.Policy, error) {
	var pj PolicyJSON
	if err := json.Unmarshal([]byte(jsonStr), &pj); err != nil {
		return nil, fmt.Errorf("failed to parse policy JSON: %w", err)
	}
	return f.FromJSON(pj)
}

// FromJSON converts PolicyJSON to leave.Policy.
func (f *PolicyFactory) FromJSON(pj PolicyJSON) (*leave.Policy, error) {
	if pj.ID == "" {
		return nil, fmt.Errorf("policy id is required")
	}
	if pj.BaseAnnualDays < 0 || pj.MaxNegativeBalance < 0 {
		return nil, fmt.Errorf("%w: policy %s has negative day counts", generic.ErrInvalidAmount, pj.ID)
	}

	accrual, err := parseAccrualMethod(pj.AccrualMethod)
	if err != nil {
		return nil, err
	}
	rounding, err := parseRoundingMethod(pj.RoundingMethod)
	if err != nil {
		return nil, err
	}

	policy := &leave.Policy{
		ID:                 generic.PolicyID(pj.ID),
		Name:               pj.Name,
		IsDefault:          pj.IsDefault,
		IsActive:           pj.IsActive,
		BaseAnnualDays:     pj.BaseAnnualDays,
		AccrualMethod:      accrual,
		RoundingMethod:     rounding,
		MaxNegativeBalance: pj.MaxNegativeBalance,
		MaxConsecutiveDays: pj.MaxConsecutiveDays,
		MinNoticeDays:      pj.MinNoticeDays,
	}

	if pj.Seniority != nil {
		policy.SeniorityStepYears = pj.Seniority.StepYears
		policy.BonusPerStep = pj.Seniority.BonusPerStep
	}

	if c := pj.Carryover; c != nil {
		policy.AllowCarryover = c.Allowed
		policy.MaxCarryoverDays = c.MaxDays
		if c.Expiry != nil {
			month, day := c.Expiry.Month, c.Expiry.Day
			policy.CarryoverExpiryMonth = &month
			policy.CarryoverExpiryDay = &day
		}
	}

	for _, bj := range pj.BlackoutPeriods {
		period, err := parsePeriod(bj.Start, bj.End)
		if err != nil {
			return nil, fmt.Errorf("blackout %q: %w", bj.Reason, err)
		}
		policy.BlackoutPeriods = append(policy.BlackoutPeriods, leave.BlackoutPeriod{
			ID:              idOrNew(bj.ID),
			Period:          period,
			Reason:          bj.Reason,
			AllowExceptions: bj.AllowExceptions,
		})
	}

	for _, sj := range pj.CompanyShutdowns {
		period, err := parsePeriod(sj.Start, sj.End)
		if err != nil {
			return nil, fmt.Errorf("shutdown %q: %w", sj.Name, err)
		}
		policy.CompanyShutdowns = append(policy.CompanyShutdowns, leave.CompanyShutdown{
			ID:                  idOrNew(sj.ID),
			Period:              period,
			Name:                sj.Name,
			DeductFromAllowance: sj.DeductFromAllowance,
		})
	}

	return policy, nil
}

// ToJSON converts a Policy to PolicyJSON.
func (f *PolicyFactory) ToJSON(policy *leave.Policy) PolicyJSON {
	pj := PolicyJSON{
		ID:                 string(policy.ID),
		Name:               policy.Name,
		IsDefault:          policy.IsDefault,
		IsActive:           policy.IsActive,
		BaseAnnualDays:     policy.BaseAnnualDays,
		AccrualMethod:      string(policy.AccrualMethod),
		RoundingMethod:     string(policy.RoundingMethod),
		MaxNegativeBalance: policy.MaxNegativeBalance,
		MaxConsecutiveDays: policy.MaxConsecutiveDays,
		MinNoticeDays:      policy.MinNoticeDays,
	}

	if policy.SeniorityStepYears > 0 || policy.BonusPerStep > 0 {
		pj.Seniority = &SeniorityJSON{
			StepYears:    policy.SeniorityStepYears,
			BonusPerStep: policy.BonusPerStep,
		}
	}

	if policy.AllowCarryover || policy.MaxCarryoverDays != nil || policy.CarryoverExpiryMonth != nil {
		pj.Carryover = &CarryoverJSON{
			Allowed: policy.AllowCarryover,
			MaxDays: policy.MaxCarryoverDays,
		}
		if policy.CarryoverExpiryMonth != nil && policy.CarryoverExpiryDay != nil {
			pj.Carryover.Expiry = &ExpiryJSON{
				Month: *policy.CarryoverExpiryMonth,
				Day:   *policy.CarryoverExpiryDay,
			}
		}
	}

	for _, b := range policy.BlackoutPeriods {
		pj.BlackoutPeriods = append(pj.BlackoutPeriods, BlackoutJSON{
			ID:              b.ID,
			Start:           b.Period.Start.String(),
			End:             b.Period.End.String(),
			Reason:          b.Reason,
			AllowExceptions: b.AllowExceptions,
		})
	}
	for _, s := range policy.CompanyShutdowns {
		pj.CompanyShutdowns = append(pj.CompanyShutdowns, ShutdownJSON{
			ID:                  s.ID,
			Start:               s.Period.Start.String(),
			End:                 s.Period.End.String(),
			Name:                s.Name,
			DeductFromAllowance: s.DeductFromAllowance,
		})
	}

	return pj
}

// =============================================================================
// OVERRIDES
// =============================================================================

// ParseOverride parses a JSON string into a PolicyOverride.
func (f *PolicyFactory) ParseOverride(jsonStr string) (*leave.PolicyOverride, error) {
	var oj OverrideJSON
	if err := json.Unmarshal([]byte(jsonStr), &oj); err != nil {
		return nil, fmt.Errorf("failed to parse override JSON: %w", err)
	}
	return f.OverrideFromJSON(oj)
}

func (f *PolicyFactory) OverrideFromJSON(oj OverrideJSON) (*leave.PolicyOverride, error) {
	if oj.EmployeeID == "" {
		return nil, fmt.Errorf("override employee_id is required")
	}
	for _, v := range []*int{oj.BaseAnnualDays, oj.MaxNegativeBalance, oj.MaxCarryoverDays} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: override for %s has negative day counts", generic.ErrInvalidAmount, oj.EmployeeID)
		}
	}

	o := &leave.PolicyOverride{
		EmployeeID:         generic.EmployeeID(oj.EmployeeID),
		BaseAnnualDays:     oj.BaseAnnualDays,
		SeniorityStepYears: oj.SeniorityStepYears,
		BonusPerStep:       oj.BonusPerStep,
		AllowCarryover:     oj.AllowCarryover,
		MaxCarryoverDays:   oj.MaxCarryoverDays,
		MaxNegativeBalance: oj.MaxNegativeBalance,
		MaxConsecutiveDays: oj.MaxConsecutiveDays,
	}
	if oj.AccrualMethod != nil {
		m, err := parseAccrualMethod(*oj.AccrualMethod)
		if err != nil {
			return nil, err
		}
		o.AccrualMethod = &m
	}
	if oj.RoundingMethod != nil {
		m, err := parseRoundingMethod(*oj.RoundingMethod)
		if err != nil {
			return nil, err
		}
		o.RoundingMethod = &m
	}
	return o, nil
}

func (f *PolicyFactory) OverrideToJSON(o *leave.PolicyOverride) OverrideJSON {
	oj := OverrideJSON{
		EmployeeID:         string(o.EmployeeID),
		BaseAnnualDays:     o.BaseAnnualDays,
		SeniorityStepYears: o.SeniorityStepYears,
		BonusPerStep:       o.BonusPerStep,
		AllowCarryover:     o.AllowCarryover,
		MaxCarryoverDays:   o.MaxCarryoverDays,
		MaxNegativeBalance: o.MaxNegativeBalance,
		MaxConsecutiveDays: o.MaxConsecutiveDays,
	}
	if o.AccrualMethod != nil {
		s := string(*o.AccrualMethod)
		oj.AccrualMethod = &s
	}
	if o.RoundingMethod != nil {
		s := string(*o.RoundingMethod)
		oj.RoundingMethod = &s
	}
	return oj
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseAccrualMethod(s string) (leave.AccrualMethod, error) {
	switch m := leave.AccrualMethod(s); m {
	case "":
		return leave.AccrualProRata, nil
	case leave.AccrualDaily, leave.AccrualMonthly, leave.AccrualAtYearStart, leave.AccrualProRata:
		return m, nil
	default:
		return "", fmt.Errorf("unknown accrual method %q", s)
	}
}

func parseRoundingMethod(s string) (leave.RoundingMethod, error) {
	switch m := leave.RoundingMethod(s); m {
	case "":
		return leave.RoundFloor, nil
	case leave.RoundFloor, leave.RoundCeil, leave.RoundRound:
		return m, nil
	default:
		return "", fmt.Errorf("unknown rounding method %q", s)
	}
}

func parsePeriod(start, end string) (generic.Period, error) {
	s, err := generic.ParseDate(start)
	if err != nil {
		return generic.Period{}, err
	}
	e, err := generic.ParseDate(end)
	if err != nil {
		return generic.Period{}, err
	}
	return generic.NewPeriod(s, e)
}

func idOrNew(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}
