/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes balance calculation, request validation and the leave lifecycle
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the leave package.

ENDPOINTS:
  Employees:
    GET    /api/employees                  List all employees
    POST   /api/employees                  Create or update employee
    GET    /api/employees/{id}             Get employee details
    GET    /api/employees/{id}/balance     Balance (?as_of=YYYY-MM-DD)
    GET    /api/employees/{id}/tenure      Tenure (?as_of=YYYY-MM-DD)
    POST   /api/employees/{id}/validate    Dry-run a request
    GET    /api/employees/{id}/leaves      Leave history
    POST   /api/employees/{id}/leaves      Submit a request
    GET    /api/employees/{id}/override    Policy override
    PUT    /api/employees/{id}/override    Set policy override
    DELETE /api/employees/{id}/override    Remove policy override

  Leaves:
    POST   /api/leaves/{id}/approve|reject|cancel|complete

  Policies:
    GET    /api/policies                   List all policies
    POST   /api/policies                   Create/update policy from JSON
    GET    /api/policies/{id}              Get policy
    POST   /api/policies/{id}/shutdowns    Book a shutdown for employees

  Admin & reports:
    POST   /api/admin/carryover-snapshots  Record snapshots now
    GET    /api/reports/balances.xlsx      XLSX balance report

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid input
  - 404: Resource not found
  - 409: Invalid status transition, duplicate default, no active policy
  - 422: Request rejected by validation (body carries the issues)
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/warp/leave-engine/factory"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/report"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store         leave.Store
	Engine        *leave.Engine
	Requests      *leave.RequestService
	PolicyFactory *factory.PolicyFactory
	Reports       *report.Generator
	Scheduler     *CarryoverScheduler

	logger *zap.Logger

	// Track currently loaded scenario. scenarioMu also serializes
	// scenario loads and resets.
	scenarioMu      sync.RWMutex
	currentScenario string
}

// NewHandler wires handlers over a store and engine.
func NewHandler(store leave.Store, engine *leave.Engine, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Store:         store,
		Engine:        engine,
		Requests:      leave.NewRequestService(engine, store),
		PolicyFactory: factory.NewPolicyFactory(),
		Reports:       report.NewGenerator(engine, store),
		Scheduler:     NewCarryoverScheduler(engine, store, logger),
		logger:        logger,
	}
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateEmployee creates or updates an employee.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.ID) == "" || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	hiredAt, err := generic.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date", err)
		return
	}

	emp := leave.Employee{
		ID:      generic.EmployeeID(req.ID),
		Name:    req.Name,
		Email:   req.Email,
		HiredAt: hiredAt,
	}
	if req.ManualCarryOverDays != nil {
		if *req.ManualCarryOverDays < 0 {
			writeError(w, http.StatusBadRequest, "manual_carryover_days must not be negative", nil)
			return
		}
		emp.ManualCarryOverDays = generic.Some(daysFromFloat(*req.ManualCarryOverDays))
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// GetBalance returns the employee's balance.
// GET /api/employees/{id}/balance?as_of=2025-07-01
func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}

	balance, err := h.Engine.CalculateLeaveBalance(r.Context(), emp.ID, emp.HiredAt, emp.ManualCarryOverDays, asOf)
	if err != nil {
		h.writeServiceError(w, "Failed to calculate balance", err)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceDTO(balance))
}

// GetTenure returns the employee's tenure.
func (h *Handler) GetTenure(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	if asOf.IsZero() {
		asOf = generic.Today()
	}
	writeJSON(w, http.StatusOK, toTenureDTO(generic.CalculateTenure(emp.HiredAt, asOf)))
}

// ValidateLeave checks a request without saving it.
// POST /api/employees/{id}/validate
func (h *Handler) ValidateLeave(w http.ResponseWriter, r *http.Request) {
	req, start, end, ok := decodeValidateRequest(w, r)
	if !ok {
		return
	}

	result, err := h.Requests.Validate(r.Context(), leave.SubmitRequest{
		EmployeeID: generic.EmployeeID(chi.URLParam(r, "id")),
		StartDate:  start,
		EndDate:    end,
		Days:       daysFromFloat(req.Days),
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to validate request", err)
		return
	}
	writeJSON(w, http.StatusOK, toValidationDTO(result))
}

// ListLeaves returns the employee's leave history.
func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}
	leaves, err := h.Store.ListLeaves(r.Context(), emp.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list leaves", err)
		return
	}
	dtos := make([]LeaveDTO, len(leaves))
	for i, l := range leaves {
		dtos[i] = toLeaveDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// SubmitLeave validates and stores a PENDING leave.
// POST /api/employees/{id}/leaves
func (h *Handler) SubmitLeave(w http.ResponseWriter, r *http.Request) {
	req, start, end, ok := decodeValidateRequest(w, r)
	if !ok {
		return
	}

	l, result, err := h.Requests.Submit(r.Context(), leave.SubmitRequest{
		EmployeeID: generic.EmployeeID(chi.URLParam(r, "id")),
		StartDate:  start,
		EndDate:    end,
		Days:       daysFromFloat(req.Days),
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeServiceError(w, "Failed to submit request", err)
		return
	}
	writeJSON(w, http.StatusCreated, SubmitLeaveResponse{
		Leave:    toLeaveDTO(*l),
		Warnings: toIssueDTOs(result.Warnings),
	})
}

// =============================================================================
// OVERRIDE HANDLERS
// =============================================================================

func (h *Handler) GetOverride(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	o, err := h.Store.FindPolicyOverride(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load override", err)
		return
	}
	if o == nil {
		writeError(w, http.StatusNotFound, "No override for employee", nil)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.OverrideToJSON(o))
}

// SetOverride replaces the employee's override.
// PUT /api/employees/{id}/override
func (h *Handler) SetOverride(w http.ResponseWriter, r *http.Request) {
	emp, ok := h.loadEmployee(w, r)
	if !ok {
		return
	}

	var oj factory.OverrideJSON
	if err := json.NewDecoder(r.Body).Decode(&oj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	oj.EmployeeID = string(emp.ID)

	o, err := h.PolicyFactory.OverrideFromJSON(oj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid override", err)
		return
	}
	if err := h.Store.SaveOverride(r.Context(), *o); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.OverrideToJSON(o))
}

func (h *Handler) DeleteOverride(w http.ResponseWriter, r *http.Request) {
	id := generic.EmployeeID(chi.URLParam(r, "id"))
	if err := h.Store.DeleteOverride(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete override", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// LEAVE LIFECYCLE HANDLERS
// =============================================================================

func (h *Handler) ApproveLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Requests.Approve)
}

func (h *Handler) RejectLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Requests.Reject)
}

func (h *Handler) CancelLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Requests.Cancel)
}

func (h *Handler) CompleteLeave(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Requests.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, generic.LeaveID) (*leave.Leave, error)) {
	l, err := fn(r.Context(), generic.LeaveID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeServiceError(w, "Failed to update leave", err)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*l))
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}
	dtos := make([]factory.PolicyJSON, len(policies))
	for i := range policies {
		dtos[i] = h.PolicyFactory.ToJSON(&policies[i])
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates or updates a policy from JSON.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var pj factory.PolicyJSON
	if err := json.NewDecoder(r.Body).Decode(&pj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	policy, err := h.PolicyFactory.FromJSON(pj)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid policy", err)
		return
	}
	if err := h.Store.SavePolicy(r.Context(), *policy); err != nil {
		h.writeServiceError(w, "Failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, h.PolicyFactory.ToJSON(policy))
}

// GetPolicy returns a single policy.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.PolicyFactory.ToJSON(policy))
}

// RecordShutdown books one of the policy's shutdowns as APPROVED leave.
// POST /api/policies/{id}/shutdowns
func (h *Handler) RecordShutdown(w http.ResponseWriter, r *http.Request) {
	policy, ok := h.loadPolicy(w, r)
	if !ok {
		return
	}

	var req RecordShutdownRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var shutdown *leave.CompanyShutdown
	for i := range policy.CompanyShutdowns {
		if policy.CompanyShutdowns[i].ID == req.ShutdownID {
			shutdown = &policy.CompanyShutdowns[i]
		}
	}
	if shutdown == nil {
		writeError(w, http.StatusNotFound, "Shutdown not found", nil)
		return
	}

	ids := req.EmployeeIDs
	if len(ids) == 0 {
		employees, err := h.Store.ListEmployees(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
			return
		}
		for _, e := range employees {
			ids = append(ids, string(e.ID))
		}
	}

	dtos := make([]LeaveDTO, 0, len(ids))
	for _, id := range ids {
		l, err := h.Requests.RecordShutdown(r.Context(), generic.EmployeeID(id), *shutdown)
		if err != nil {
			h.writeServiceError(w, fmt.Sprintf("Failed to record shutdown for %s", id), err)
			return
		}
		if l != nil {
			dtos = append(dtos, toLeaveDTO(*l))
		}
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// =============================================================================
// ADMIN & REPORT HANDLERS
// =============================================================================

// TriggerSnapshots records carryover snapshots immediately.
func (h *Handler) TriggerSnapshots(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Scheduler.RunNow(r.Context()))
}

// DownloadReport streams the XLSX balance report.
// GET /api/reports/balances.xlsx?as_of=2025-07-01
func (h *Handler) DownloadReport(w http.ResponseWriter, r *http.Request) {
	asOf, ok := parseAsOf(w, r)
	if !ok {
		return
	}
	if asOf.IsZero() {
		asOf = generic.Today()
	}

	f, err := h.Reports.Build(r.Context(), asOf)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to build report", err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="leave-balances-%s.xlsx"`, asOf))
	if err := f.Write(w); err != nil {
		h.logger.Error("write report", zap.Error(err))
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) loadEmployee(w http.ResponseWriter, r *http.Request) (*leave.Employee, bool) {
	id := chi.URLParam(r, "id")
	emp, err := h.Store.GetEmployee(r.Context(), generic.EmployeeID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load employee", err)
		return nil, false
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "Employee not found", nil)
		return nil, false
	}
	return emp, true
}

func (h *Handler) loadPolicy(w http.ResponseWriter, r *http.Request) (*leave.Policy, bool) {
	id := chi.URLParam(r, "id")
	policy, err := h.Store.GetPolicy(r.Context(), generic.PolicyID(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load policy", err)
		return nil, false
	}
	if policy == nil {
		writeError(w, http.StatusNotFound, "Policy not found", nil)
		return nil, false
	}
	return policy, true
}

// parseAsOf reads ?as_of=. A missing value yields the zero TimePoint.
func parseAsOf(w http.ResponseWriter, r *http.Request) (generic.TimePoint, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return generic.TimePoint{}, true
	}
	asOf, err := generic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of date", err)
		return generic.TimePoint{}, false
	}
	return asOf, true
}

func decodeValidateRequest(w http.ResponseWriter, r *http.Request) (ValidateRequest, generic.TimePoint, generic.TimePoint, bool) {
	var req ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return req, generic.TimePoint{}, generic.TimePoint{}, false
	}
	start, err := generic.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date", err)
		return req, generic.TimePoint{}, generic.TimePoint{}, false
	}
	end, err := generic.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date", err)
		return req, generic.TimePoint{}, generic.TimePoint{}, false
	}
	if req.Days <= 0 {
		writeError(w, http.StatusBadRequest, "days must be positive", nil)
		return req, generic.TimePoint{}, generic.TimePoint{}, false
	}
	return req, start, end, true
}

// writeServiceError maps leave and store errors to HTTP statuses.
func (h *Handler) writeServiceError(w http.ResponseWriter, message string, err error) {
	var rejected *leave.RequestRejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, toValidationDTO(rejected.Result))
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, leave.ErrInvalidTransition),
		errors.Is(err, leave.ErrNoActivePolicy),
		errors.Is(err, generic.ErrDuplicateDefaultPolicy):
		writeError(w, http.StatusConflict, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
