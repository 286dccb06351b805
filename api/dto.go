/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal leave model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DAYS:
  Day counts are JSON numbers. They are converted to decimal.Decimal at
  the edge and back with InexactFloat64 for responses.

TYPES:
  Employee:   EmployeeDTO, CreateEmployeeRequest
  Balance:    BalanceDTO, TenureDTO
  Validation: ValidateRequest, ValidationDTO
  Leave:      LeaveDTO, SubmitLeaveResponse (submit reuses ValidateRequest)
  Policy:     factory.PolicyJSON / factory.OverrideJSON used directly
  Scenarios:  ScenarioDTO, LoadScenarioRequest

SEE ALSO:
  - handlers.go: Uses these types
  - factory/policy.go: PolicyJSON type
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// EMPLOYEES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email,omitempty"`
	HireDate            string   `json:"hire_date"`
	ManualCarryOverDays *float64 `json:"manual_carryover_days,omitempty"`
}

// CreateEmployeeRequest is the request to create or update an employee.
// A null or absent manual_carryover_days clears the manual value.
type CreateEmployeeRequest struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Email               string   `json:"email"`
	HireDate            string   `json:"hire_date"`
	ManualCarryOverDays *float64 `json:"manual_carryover_days"`
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:       string(e.ID),
		Name:     e.Name,
		Email:    e.Email,
		HireDate: e.HiredAt.String(),
	}
	if d, ok := e.ManualCarryOverDays.Get(); ok {
		f := d.InexactFloat64()
		dto.ManualCarryOverDays = &f
	}
	return dto
}

// =============================================================================
// BALANCE & TENURE
// =============================================================================

type TenureDTO struct {
	Years     int    `json:"years"`
	Months    int    `json:"months"`
	Days      int    `json:"days"`
	TotalDays int    `json:"total_days"`
	Display   string `json:"display"`
}

func toTenureDTO(t generic.Tenure) TenureDTO {
	return TenureDTO{Years: t.Years, Months: t.Months, Days: t.Days, TotalDays: t.TotalDays, Display: t.String()}
}

// BalanceDTO is the leave balance of one employee.
type BalanceDTO struct {
	EmployeeID          string    `json:"employee_id"`
	AsOf                string    `json:"as_of"`
	Year                int       `json:"year"`
	PolicyID            string    `json:"policy_id"`
	Tenure              TenureDTO `json:"tenure"`
	AnnualEntitlement   float64   `json:"annual_entitlement"`
	Accrued             float64   `json:"accrued"`
	CarriedOver         float64   `json:"carried_over"`
	CarriedOverIsManual bool      `json:"carried_over_is_manual"`
	CarriedOverExpiry   string    `json:"carried_over_expiry,omitempty"`
	Taken               float64   `json:"taken"`
	CompanyShutdownDays float64   `json:"company_shutdown_days"`
	VoluntaryDays       float64   `json:"voluntary_days"`
	PendingDays         float64   `json:"pending_days"`
	Available           float64   `json:"available"`
	EffectiveBalance    float64   `json:"effective_balance"`
	CanBorrow           bool      `json:"can_borrow"`
	MaxNegativeBalance  int       `json:"max_negative_balance"`
}

func toBalanceDTO(b leave.LeaveBalance) BalanceDTO {
	dto := BalanceDTO{
		EmployeeID:          string(b.EmployeeID),
		AsOf:                b.AsOf.String(),
		Year:                b.Year,
		PolicyID:            string(b.Policy.PolicyID),
		Tenure:              toTenureDTO(b.Tenure),
		AnnualEntitlement:   b.AnnualEntitlement.InexactFloat64(),
		Accrued:             b.Accrued.InexactFloat64(),
		CarriedOver:         b.CarriedOver.InexactFloat64(),
		CarriedOverIsManual: b.CarriedOverIsManual,
		Taken:               b.Taken.InexactFloat64(),
		CompanyShutdownDays: b.CompanyShutdownDays.InexactFloat64(),
		VoluntaryDays:       b.VoluntaryDays.InexactFloat64(),
		PendingDays:         b.PendingDays.InexactFloat64(),
		Available:           b.Available.InexactFloat64(),
		EffectiveBalance:    b.EffectiveBalance.InexactFloat64(),
		CanBorrow:           b.CanBorrow,
		MaxNegativeBalance:  b.MaxNegativeBalance,
	}
	if b.CarriedOverExpiry != nil {
		dto.CarriedOverExpiry = b.CarriedOverExpiry.String()
	}
	return dto
}

// =============================================================================
// VALIDATION & LEAVES
// =============================================================================

// ValidateRequest is the body of validate and submit calls.
type ValidateRequest struct {
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
	Days      float64 `json:"days"`
	Reason    string  `json:"reason,omitempty"`
}

type IssueDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationDTO struct {
	Valid    bool       `json:"valid"`
	Errors   []IssueDTO `json:"errors"`
	Warnings []IssueDTO `json:"warnings"`
}

func toValidationDTO(r leave.ValidationResult) ValidationDTO {
	return ValidationDTO{
		Valid:    r.Valid,
		Errors:   toIssueDTOs(r.Errors),
		Warnings: toIssueDTOs(r.Warnings),
	}
}

func toIssueDTOs(issues []leave.Issue) []IssueDTO {
	dtos := make([]IssueDTO, len(issues))
	for i, is := range issues {
		dtos[i] = IssueDTO{Code: is.Code, Message: is.Message}
	}
	return dtos
}

type LeaveDTO struct {
	ID                string  `json:"id"`
	EmployeeID        string  `json:"employee_id"`
	StartDate         string  `json:"start_date"`
	EndDate           string  `json:"end_date"`
	Days              float64 `json:"days"`
	Status            string  `json:"status"`
	IsCompanyShutdown bool    `json:"is_company_shutdown"`
	Reason            string  `json:"reason,omitempty"`
	CreatedAt         string  `json:"created_at"`
	UpdatedAt         string  `json:"updated_at"`
}

func toLeaveDTO(l leave.Leave) LeaveDTO {
	return LeaveDTO{
		ID:                string(l.ID),
		EmployeeID:        string(l.EmployeeID),
		StartDate:         l.StartDate.String(),
		EndDate:           l.EndDate.String(),
		Days:              l.Days.InexactFloat64(),
		Status:            string(l.Status),
		IsCompanyShutdown: l.IsCompanyShutdown,
		Reason:            l.Reason,
		CreatedAt:         l.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         l.UpdatedAt.Format(time.RFC3339),
	}
}

type SubmitLeaveResponse struct {
	Leave    LeaveDTO   `json:"leave"`
	Warnings []IssueDTO `json:"warnings"`
}

// RecordShutdownRequest books a policy shutdown for the listed employees
// (all employees when empty).
type RecordShutdownRequest struct {
	ShutdownID  string   `json:"shutdown_id"`
	EmployeeIDs []string `json:"employee_ids,omitempty"`
}

// =============================================================================
// SCENARIOS & ADMIN
// =============================================================================

// ScenarioDTO describes a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

type SnapshotRunDTO struct {
	Year     int `json:"year"`
	Recorded int `json:"recorded"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

// ErrorResponse is returned for all errors.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func daysFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
