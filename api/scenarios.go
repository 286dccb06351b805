/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for demos. Each scenario creates a default policy, employees and
	leave history that exercise one part of the balance rules.

AVAILABLE SCENARIOS:

	standard:          Senior employee, last year's usage, carryover
	borrowing:         New hire taking advance leave on a borrowing policy
	shutdown:          Summer shutdown booked against the allowance + blackout
	manual-carryover:  HR-entered carryover replacing the computed one
	override:          Per-employee entitlement override

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create the default policy from JSON via the factory
 3. Create employees
 4. Add leave history through the request service

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "borrowing"}

NOTE:

	Scenarios reset the database. Only use in development/demo environments.
	Dates are relative to the current year.

SEE ALSO:
  - handlers.go: Handler type
  - factory/policy.go: Policy JSON definitions
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard",
		Name:        "Standard Employee",
		Description: "Six years of tenure, seniority bonus, carryover from last year",
	},
	{
		ID:          "borrowing",
		Name:        "Advance Leave",
		Description: "Recent hire on a policy allowing 5 days of negative balance",
	},
	{
		ID:          "shutdown",
		Name:        "Company Shutdown",
		Description: "Summer shutdown deducted from allowance, year-end blackout",
	},
	{
		ID:          "manual-carryover",
		Name:        "Manual Carryover",
		Description: "HR-entered carryover replaces the computed value",
	},
	{
		ID:          "override",
		Name:        "Policy Override",
		Description: "One employee with 25 base days and borrowing enabled",
	},
}

var scenarioLoaders = map[string]func(*Handler, context.Context) error{
	"standard":         (*Handler).loadStandardScenario,
	"borrowing":        (*Handler).loadBorrowingScenario,
	"shutdown":         (*Handler).loadShutdownScenario,
	"manual-carryover": (*Handler).loadManualCarryoverScenario,
	"override":         (*Handler).loadOverrideScenario,
}

// resetter is implemented by every bundled store.
type resetter interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.RLock()
	current := h.currentScenario
	h.scenarioMu.RUnlock()

	if current == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: current, Name: current})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	loader, ok := scenarioLoaders[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	ctx := r.Context()
	if err := h.reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	if err := loader(h, ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID
	h.logger.Info("scenario loaded", zap.String("scenario", req.ScenarioID))

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()

	if err := h.reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// reset clears the store and the current scenario. Callers hold scenarioMu.
func (h *Handler) reset(ctx context.Context) error {
	rs, ok := h.Store.(resetter)
	if !ok {
		return errors.New("store does not support reset")
	}
	if err := rs.Reset(ctx); err != nil {
		return err
	}
	h.currentScenario = ""
	return nil
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardScenario(ctx context.Context) error {
	year := time.Now().Year()
	if err := h.createPolicyFromJSON(ctx, fmt.Sprintf(`{
		"id": "standard",
		"name": "Standard Leave",
		"is_default": true,
		"is_active": true,
		"base_annual_days": 21,
		"seniority": {"step_years": 5, "bonus_per_step": 1},
		"accrual_method": "PRO_RATA",
		"rounding_method": "FLOOR",
		"carryover": {"allowed": true, "max_days": 5, "expiry": {"month": 3, "day": 31}},
		"max_consecutive_days": 15,
		"min_notice_days": 7,
		"blackout_periods": [
			{"id": "year-end", "start": "%d-12-22", "end": "%d-12-31", "reason": "Year-end close", "allow_exceptions": false}
		]
	}`, year, year)); err != nil {
		return err
	}

	emp := leave.Employee{
		ID:      "emp-001",
		Name:    "Alice Johnson",
		Email:   "alice@example.com",
		HiredAt: generic.NewTimePoint(year-6, time.March, 1),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	// 15 of 22 days used last year leaves 7 to carry.
	return h.seedLeaves(ctx, emp.ID, []seedLeave{
		{start: generic.NewTimePoint(year-1, time.July, 7), end: generic.NewTimePoint(year-1, time.July, 18), days: 10, status: leave.StatusCompleted},
		{start: generic.NewTimePoint(year-1, time.October, 13), end: generic.NewTimePoint(year-1, time.October, 17), days: 5, status: leave.StatusCompleted},
		{start: generic.NewTimePoint(year, time.February, 10), end: generic.NewTimePoint(year, time.February, 12), days: 3, status: leave.StatusApproved},
		{start: generic.NewTimePoint(year, time.November, 3), end: generic.NewTimePoint(year, time.November, 7), days: 5, status: leave.StatusPending},
	})
}

func (h *Handler) loadBorrowingScenario(ctx context.Context) error {
	year := time.Now().Year()
	if err := h.createPolicyFromJSON(ctx, `{
		"id": "borrowing",
		"name": "Leave with Advance",
		"is_default": true,
		"is_active": true,
		"base_annual_days": 21,
		"accrual_method": "MONTHLY",
		"rounding_method": "FLOOR",
		"carryover": {"allowed": true},
		"max_negative_balance": 5
	}`); err != nil {
		return err
	}

	emp := leave.Employee{
		ID:      "emp-002",
		Name:    "Bob Martin",
		Email:   "bob@example.com",
		HiredAt: generic.NewTimePoint(year, time.January, 6),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	return h.seedLeaves(ctx, emp.ID, []seedLeave{
		{start: generic.NewTimePoint(year, time.February, 2), end: generic.NewTimePoint(year, time.February, 13), days: 10, status: leave.StatusApproved},
	})
}

func (h *Handler) loadShutdownScenario(ctx context.Context) error {
	year := time.Now().Year()
	if err := h.createPolicyFromJSON(ctx, fmt.Sprintf(`{
		"id": "shutdown",
		"name": "Leave with Shutdowns",
		"is_default": true,
		"is_active": true,
		"base_annual_days": 25,
		"accrual_method": "AT_YEAR_START",
		"carryover": {"allowed": false},
		"blackout_periods": [
			{"id": "inventory", "start": "%d-06-01", "end": "%d-06-07", "reason": "Inventory week", "allow_exceptions": true}
		],
		"company_shutdowns": [
			{"id": "summer", "start": "%d-08-11", "end": "%d-08-15", "name": "Summer closure", "deduct_from_allowance": true},
			{"id": "holiday", "start": "%d-12-24", "end": "%d-12-26", "name": "Holiday closure", "deduct_from_allowance": false}
		]
	}`, year, year, year, year, year, year)); err != nil {
		return err
	}

	employees := []leave.Employee{
		{ID: "emp-003", Name: "Carol White", Email: "carol@example.com", HiredAt: generic.NewTimePoint(year-3, time.September, 15)},
		{ID: "emp-004", Name: "Dan Brown", Email: "dan@example.com", HiredAt: generic.NewTimePoint(year-1, time.May, 2)},
	}

	policy, err := h.Store.GetPolicy(ctx, "shutdown")
	if err != nil {
		return err
	}
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		for _, sd := range policy.CompanyShutdowns {
			if _, err := h.Requests.RecordShutdown(ctx, emp.ID, sd); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadManualCarryoverScenario(ctx context.Context) error {
	year := time.Now().Year()
	p := leave.StandardPolicy("standard")
	p.MaxCarryoverDays = leave.IntPtr(5)
	if err := h.Store.SavePolicy(ctx, p); err != nil {
		return err
	}

	emp := leave.Employee{
		ID:                  "emp-005",
		Name:                "Erin Green",
		Email:               "erin@example.com",
		HiredAt:             generic.NewTimePoint(year-2, time.January, 10),
		ManualCarryOverDays: generic.Some(generic.Days(3.5)),
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	// The computed carryover (21 - 4) is ignored in favour of 3.5.
	return h.seedLeaves(ctx, emp.ID, []seedLeave{
		{start: generic.NewTimePoint(year-1, time.April, 14), end: generic.NewTimePoint(year-1, time.April, 17), days: 4, status: leave.StatusCompleted},
	})
}

func (h *Handler) loadOverrideScenario(ctx context.Context) error {
	year := time.Now().Year()
	if err := h.Store.SavePolicy(ctx, leave.StandardPolicy("standard")); err != nil {
		return err
	}

	employees := []leave.Employee{
		{ID: "emp-006", Name: "Frank Lee", Email: "frank@example.com", HiredAt: generic.NewTimePoint(year-4, time.June, 1)},
		{ID: "emp-007", Name: "Grace Kim", Email: "grace@example.com", HiredAt: generic.NewTimePoint(year-4, time.June, 1)},
	}
	for _, emp := range employees {
		if err := h.Store.SaveEmployee(ctx, emp); err != nil {
			return err
		}
	}

	o, err := h.PolicyFactory.ParseOverride(`{
		"employee_id": "emp-007",
		"base_annual_days": 25,
		"max_negative_balance": 3
	}`)
	if err != nil {
		return err
	}
	return h.Store.SaveOverride(ctx, *o)
}

// =============================================================================
// HELPERS
// =============================================================================

type seedLeave struct {
	start, end generic.TimePoint
	days       float64
	status     leave.Status
}

// seedLeaves writes historical leaves directly, bypassing validation so
// past dates and final statuses can be set.
func (h *Handler) seedLeaves(ctx context.Context, employeeID generic.EmployeeID, seeds []seedLeave) error {
	now := time.Now()
	for i, s := range seeds {
		l := leave.Leave{
			ID:         generic.LeaveID(fmt.Sprintf("%s-leave-%d", employeeID, i+1)),
			EmployeeID: employeeID,
			StartDate:  s.start,
			EndDate:    s.end,
			Days:       generic.Days(s.days),
			Status:     s.status,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := h.Store.SaveLeave(ctx, l); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) createPolicyFromJSON(ctx context.Context, jsonStr string) error {
	policy, err := h.PolicyFactory.ParsePolicy(jsonStr)
	if err != nil {
		return err
	}
	return h.Store.SavePolicy(ctx, *policy)
}
