// Package memory provides an in-memory leave.Store for tests and local runs.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/warp/leave-engine/generic"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	policies  map[generic.PolicyID]leave.Policy
	overrides map[generic.EmployeeID]leave.PolicyOverride
	employees map[generic.EmployeeID]leave.Employee
	leaves    map[generic.LeaveID]leave.Leave
	snapshots map[snapshotKey]leave.CarryoverSnapshot
}

type snapshotKey struct {
	EmployeeID generic.EmployeeID
	Year       int
}

var _ leave.Store = (*Memory)(nil)

func New() *Memory {
	return &Memory{
		policies:  make(map[generic.PolicyID]leave.Policy),
		overrides: make(map[generic.EmployeeID]leave.PolicyOverride),
		employees: make(map[generic.EmployeeID]leave.Employee),
		leaves:    make(map[generic.LeaveID]leave.Leave),
		snapshots: make(map[snapshotKey]leave.CarryoverSnapshot),
	}
}

// =============================================================================
// REPOSITORY (engine reads)
// =============================================================================

func (m *Memory) FindDefaultActivePolicy(_ context.Context) (*leave.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, p := range m.policies {
		if p.IsDefault && p.IsActive {
			return &p, nil
		}
	}
	return nil, nil
}

func (m *Memory) FindPolicyOverride(_ context.Context, employeeID generic.EmployeeID) (*leave.PolicyOverride, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.overrides[employeeID]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *Memory) SumTakenDays(_ context.Context, employeeID generic.EmployeeID, period generic.Period) (leave.TakenDays, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	taken := leave.TakenDays{CompanyShutdown: decimal.Zero, Voluntary: decimal.Zero}
	for _, l := range m.leaves {
		if l.EmployeeID != employeeID || !l.Status.CountsAsTaken() || !period.Contains(l.StartDate) {
			continue
		}
		if l.IsCompanyShutdown {
			taken.CompanyShutdown = taken.CompanyShutdown.Add(l.Days)
		} else {
			taken.Voluntary = taken.Voluntary.Add(l.Days)
		}
	}
	return taken, nil
}

func (m *Memory) SumPendingDays(_ context.Context, employeeID generic.EmployeeID, period generic.Period) (decimal.Decimal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sum := decimal.Zero
	for _, l := range m.leaves {
		if l.EmployeeID == employeeID && l.Status == leave.StatusPending && period.Contains(l.StartDate) {
			sum = sum.Add(l.Days)
		}
	}
	return sum, nil
}

// =============================================================================
// POLICIES & OVERRIDES
// =============================================================================

// SavePolicy upserts a policy. A second active default is rejected the way
// the SQL stores' unique index rejects it.
func (m *Memory) SavePolicy(_ context.Context, p leave.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p.IsDefault && p.IsActive {
		for id, other := range m.policies {
			if id != p.ID && other.IsDefault && other.IsActive {
				return generic.ErrDuplicateDefaultPolicy
			}
		}
	}
	m.policies[p.ID] = p
	return nil
}

func (m *Memory) GetPolicy(_ context.Context, id generic.PolicyID) (*leave.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.policies[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPolicies(_ context.Context) ([]leave.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.Policy, 0, len(m.policies))
	for _, p := range m.policies {
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *Memory) SaveOverride(_ context.Context, o leave.PolicyOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.overrides[o.EmployeeID] = o
	return nil
}

func (m *Memory) DeleteOverride(_ context.Context, employeeID generic.EmployeeID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.overrides, employeeID)
	return nil
}

// =============================================================================
// EMPLOYEES
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, e leave.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.employees[e.ID] = e
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id generic.EmployeeID) (*leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]leave.Employee, 0, len(m.employees))
	for _, e := range m.employees {
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

// =============================================================================
// LEAVES
// =============================================================================

func (m *Memory) SaveLeave(_ context.Context, l leave.Leave) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leaves[l.ID] = l
	return nil
}

func (m *Memory) GetLeave(_ context.Context, id generic.LeaveID) (*leave.Leave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	l, ok := m.leaves[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

// ListLeaves returns the employee's leaves ordered by start date.
func (m *Memory) ListLeaves(_ context.Context, employeeID generic.EmployeeID) ([]leave.Leave, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.Leave
	for _, l := range m.leaves {
		if l.EmployeeID == employeeID {
			result = append(result, l)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StartDate.Equal(result[j].StartDate) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].StartDate.Before(result[j].StartDate)
	})
	return result, nil
}

func (m *Memory) UpdateLeaveStatus(_ context.Context, id generic.LeaveID, status leave.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.leaves[id]
	if !ok {
		return &generic.NotFoundError{Kind: generic.ErrLeaveNotFound, ID: string(id)}
	}
	l.Status = status
	m.leaves[id] = l
	return nil
}

// =============================================================================
// CARRYOVER SNAPSHOTS
// =============================================================================

func (m *Memory) SaveCarryoverSnapshot(_ context.Context, s leave.CarryoverSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snapshots[snapshotKey{EmployeeID: s.EmployeeID, Year: s.Year}] = s
	return nil
}

func (m *Memory) HasCarryoverSnapshot(_ context.Context, employeeID generic.EmployeeID, year int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.snapshots[snapshotKey{EmployeeID: employeeID, Year: year}]
	return ok, nil
}

// ListCarryoverSnapshots returns the snapshots recorded for year.
func (m *Memory) ListCarryoverSnapshots(_ context.Context, year int) ([]leave.CarryoverSnapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []leave.CarryoverSnapshot
	for k, s := range m.snapshots {
		if k.Year == year {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

// Reset clears all data.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.policies = make(map[generic.PolicyID]leave.Policy)
	m.overrides = make(map[generic.EmployeeID]leave.PolicyOverride)
	m.employees = make(map[generic.EmployeeID]leave.Employee)
	m.leaves = make(map[generic.LeaveID]leave.Leave)
	m.snapshots = make(map[snapshotKey]leave.CarryoverSnapshot)
	return nil
}
