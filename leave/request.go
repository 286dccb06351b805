/*
request.go - Leave request lifecycle

PURPOSE:
  Turns a validated request into a stored leave and moves it through its
  statuses. Validation itself is side-effect free (validator.go); this is
  the only place that writes leaves.

STATUS FLOW:
  ┌─────────┐  Approve   ┌──────────┐  Complete  ┌───────────┐
  │ PENDING │──────────▶│ APPROVED │──────────▶│ COMPLETED │
  └─────────┘            └──────────┘            └───────────┘
    │     │                   │
    │     │ Reject            │ Cancel
    │     ▼                   ▼
    │  ┌──────────┐     ┌───────────┐
    │  │ REJECTED │     │ CANCELLED │
    │  └──────────┘     └───────────┘
    │ Cancel                  ▲
    └─────────────────────────┘

  Every other move fails with InvalidTransitionError.

BALANCE IMPACT:
  PENDING:              reported as PendingDays, not subtracted
  APPROVED / COMPLETED: subtracted as Taken
  REJECTED / CANCELLED: ignored

CONCURRENCY:
  Submit validates then inserts. Two submits for the same employee could
  both pass validation against the same balance, so Submit and Approve
  hold a per-employee lock for the whole read-check-write.

SHUTDOWNS:
  RecordShutdown books a company shutdown as an APPROVED leave flagged
  IsCompanyShutdown, so it is split out as CompanyShutdownDays in the
  balance. It skips validation: a closure is not a request.

EXAMPLE:
  svc := leave.NewRequestService(engine, store)
  l, err := svc.Submit(ctx, leave.SubmitRequest{EmployeeID: "emp-1", ...})
  var rejected *leave.RequestRejectedError
  if errors.As(err, &rejected) { ... rejected.Result.Errors ... }
  l, err = svc.Approve(ctx, l.ID)
*/
package leave

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"go.uber.org/zap"
)

// transitions is the closed set of allowed status changes.
var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected, StatusCancelled},
	StatusApproved: {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a leave may move from one status to another.
func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SubmitRequest is an employee's request for leave.
type SubmitRequest struct {
	EmployeeID generic.EmployeeID
	StartDate  generic.TimePoint
	EndDate    generic.TimePoint
	Days       decimal.Decimal
	Reason     string
}

// RequestService orchestrates the request lifecycle on top of the Engine.
type RequestService struct {
	Engine *Engine
	Store  Store

	locks sync.Map // EmployeeID -> *sync.Mutex
}

func NewRequestService(engine *Engine, store Store) *RequestService {
	return &RequestService{Engine: engine, Store: store}
}

func (rs *RequestService) lock(id generic.EmployeeID) func() {
	v, _ := rs.locks.LoadOrStore(id, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func (rs *RequestService) employee(ctx context.Context, id generic.EmployeeID) (*Employee, error) {
	emp, err := rs.Store.GetEmployee(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load employee %s: %w", id, err)
	}
	if emp == nil {
		return nil, &generic.NotFoundError{Kind: generic.ErrEntityNotFound, ID: string(id)}
	}
	return emp, nil
}

// check validates the request against the stored employee, including the
// employee's manual carryover.
func (rs *RequestService) check(ctx context.Context, req SubmitRequest) (*Employee, ValidationResult, error) {
	if !req.Days.IsPositive() {
		return nil, ValidationResult{}, fmt.Errorf("%w: requested days must be positive, got %s", generic.ErrInvalidAmount, req.Days)
	}
	emp, err := rs.employee(ctx, req.EmployeeID)
	if err != nil {
		return nil, ValidationResult{}, err
	}
	result, err := rs.Engine.validate(ctx, emp.ID, emp.HiredAt, emp.ManualCarryOverDays, req.StartDate, req.EndDate, req.Days)
	return emp, result, err
}

// Validate runs the same checks as Submit without storing anything.
func (rs *RequestService) Validate(ctx context.Context, req SubmitRequest) (ValidationResult, error) {
	_, result, err := rs.check(ctx, req)
	return result, err
}

// Submit validates the request and stores it as PENDING. A request that
// fails validation is not stored; the error is a *RequestRejectedError.
// Warnings do not block and are returned alongside the leave.
func (rs *RequestService) Submit(ctx context.Context, req SubmitRequest) (*Leave, ValidationResult, error) {
	unlock := rs.lock(req.EmployeeID)
	defer unlock()

	emp, result, err := rs.check(ctx, req)
	if err != nil {
		return nil, result, err
	}
	if !result.Valid {
		rs.Engine.logger.Info("leave request rejected",
			zap.String("employee_id", string(emp.ID)),
			zap.String("start", req.StartDate.String()),
			zap.String("end", req.EndDate.String()),
			zap.Int("errors", len(result.Errors)))
		return nil, result, &RequestRejectedError{Result: result}
	}

	now := rs.Engine.now()
	l := Leave{
		ID:         generic.LeaveID(uuid.NewString()),
		EmployeeID: emp.ID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Days:       req.Days,
		Status:     StatusPending,
		Reason:     req.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := rs.Store.SaveLeave(ctx, l); err != nil {
		return nil, result, fmt.Errorf("save leave: %w", err)
	}

	rs.Engine.logger.Info("leave request submitted",
		zap.String("leave_id", string(l.ID)),
		zap.String("employee_id", string(emp.ID)),
		zap.String("days", l.Days.String()),
		zap.Int("warnings", len(result.Warnings)))
	return &l, result, nil
}

// Approve moves a PENDING leave to APPROVED. The balance is re-checked at
// approval time since other leaves may have been approved meanwhile.
func (rs *RequestService) Approve(ctx context.Context, id generic.LeaveID) (*Leave, error) {
	l, unlock, err := rs.lockLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !CanTransition(l.Status, StatusApproved) {
		return nil, &InvalidTransitionError{From: l.Status, To: StatusApproved}
	}

	emp, err := rs.employee(ctx, l.EmployeeID)
	if err != nil {
		return nil, err
	}
	balance, err := rs.Engine.CalculateLeaveBalance(ctx, emp.ID, emp.HiredAt, emp.ManualCarryOverDays, generic.TimePoint{})
	if err != nil {
		return nil, err
	}
	var result ValidationResult
	checkBalance(&result, balance, l.Days)
	if len(result.Errors) > 0 {
		return nil, &RequestRejectedError{Result: result}
	}

	return rs.transition(ctx, l, StatusApproved)
}

func (rs *RequestService) Reject(ctx context.Context, id generic.LeaveID) (*Leave, error) {
	return rs.move(ctx, id, StatusRejected)
}

func (rs *RequestService) Cancel(ctx context.Context, id generic.LeaveID) (*Leave, error) {
	return rs.move(ctx, id, StatusCancelled)
}

func (rs *RequestService) Complete(ctx context.Context, id generic.LeaveID) (*Leave, error) {
	return rs.move(ctx, id, StatusCompleted)
}

// RecordShutdown books the shutdown as an APPROVED company-shutdown leave
// for the employee. Shutdowns that do not deduct from allowance are
// ignored and return nil.
func (rs *RequestService) RecordShutdown(ctx context.Context, employeeID generic.EmployeeID, shutdown CompanyShutdown) (*Leave, error) {
	if !shutdown.DeductFromAllowance {
		return nil, nil
	}

	unlock := rs.lock(employeeID)
	defer unlock()

	if _, err := rs.employee(ctx, employeeID); err != nil {
		return nil, err
	}

	now := rs.Engine.now()
	l := Leave{
		ID:                generic.LeaveID(uuid.NewString()),
		EmployeeID:        employeeID,
		StartDate:         shutdown.Period.Start,
		EndDate:           shutdown.Period.End,
		Days:              generic.DaysInt(shutdown.Period.Days()),
		Status:            StatusApproved,
		IsCompanyShutdown: true,
		Reason:            shutdown.Name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := rs.Store.SaveLeave(ctx, l); err != nil {
		return nil, fmt.Errorf("save shutdown leave: %w", err)
	}
	return &l, nil
}

func (rs *RequestService) load(ctx context.Context, id generic.LeaveID) (*Leave, error) {
	l, err := rs.Store.GetLeave(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load leave %s: %w", id, err)
	}
	if l == nil {
		return nil, &generic.NotFoundError{Kind: generic.ErrLeaveNotFound, ID: string(id)}
	}
	return l, nil
}

// lockLeave takes the owner's lock and reloads the leave under it so the
// status checked is the one being replaced.
func (rs *RequestService) lockLeave(ctx context.Context, id generic.LeaveID) (*Leave, func(), error) {
	l, err := rs.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	unlock := rs.lock(l.EmployeeID)
	l, err = rs.load(ctx, id)
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return l, unlock, nil
}

func (rs *RequestService) move(ctx context.Context, id generic.LeaveID, to Status) (*Leave, error) {
	l, unlock, err := rs.lockLeave(ctx, id)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if !CanTransition(l.Status, to) {
		return nil, &InvalidTransitionError{From: l.Status, To: to}
	}
	return rs.transition(ctx, l, to)
}

func (rs *RequestService) transition(ctx context.Context, l *Leave, to Status) (*Leave, error) {
	if err := rs.Store.UpdateLeaveStatus(ctx, l.ID, to); err != nil {
		return nil, fmt.Errorf("update leave %s: %w", l.ID, err)
	}
	from := l.Status
	l.Status = to
	l.UpdatedAt = rs.Engine.now()

	rs.Engine.logger.Info("leave status changed",
		zap.String("leave_id", string(l.ID)),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return l, nil
}
