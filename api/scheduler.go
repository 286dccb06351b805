/*
scheduler.go - Year-start carryover snapshot scheduler

PURPOSE:
  Periodically records, for every employee, the carryover computed into
  the current year. Snapshots are an audit trail for HR and feed the
  report's Carryover sheet. Balances never read them: carryover is always
  recomputed from the prior year's history.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Skips employees that already have a snapshot for the year
  - Employees with a manual carryover are snapshotted with that value
  - Stops cleanly on Stop() or when the start context is cancelled

CONFIGURATION:
  - CheckInterval: How often to check (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewCarryoverScheduler(engine, store, logger)
  scheduler.Start(ctx)
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerSnapshots endpoint (manual run)
  - leave/carryover.go: CalculateCarryover
*/
package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/leave-engine/leave"
	"go.uber.org/zap"
)

// CarryoverScheduler records year-start carryover snapshots.
type CarryoverScheduler struct {
	Engine        *leave.Engine
	Store         leave.Store
	CheckInterval time.Duration
	Enabled       bool

	logger *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	runMu  sync.Mutex
}

// NewCarryoverScheduler creates a new scheduler.
func NewCarryoverScheduler(engine *leave.Engine, store leave.Store, logger *zap.Logger) *CarryoverScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CarryoverScheduler{
		Engine:        engine,
		Store:         store,
		CheckInterval: time.Hour,
		Enabled:       true,
		logger:        logger.Named("scheduler"),
		now:           time.Now,
	}
}

// Start begins the scheduler.
func (cs *CarryoverScheduler) Start(ctx context.Context) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if !cs.Enabled {
		cs.logger.Info("disabled, not starting")
		return
	}
	if cs.cancel != nil {
		return
	}

	ctx, cs.cancel = context.WithCancel(ctx)
	cs.wg.Add(1)
	go cs.run(ctx)

	cs.logger.Info("started", zap.Duration("interval", cs.CheckInterval))
}

// Stop stops the scheduler and waits for an in-flight run to finish.
func (cs *CarryoverScheduler) Stop() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if cs.cancel == nil {
		return
	}
	cs.cancel()
	cs.wg.Wait()
	cs.cancel = nil
	cs.logger.Info("stopped")
}

func (cs *CarryoverScheduler) run(ctx context.Context) {
	defer cs.wg.Done()

	ticker := time.NewTicker(cs.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	cs.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			cs.RunNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow records missing snapshots for the current year.
func (cs *CarryoverScheduler) RunNow(ctx context.Context) SnapshotRunDTO {
	cs.runMu.Lock()
	defer cs.runMu.Unlock()

	now := cs.now()
	year := now.Year()
	result := SnapshotRunDTO{Year: year}

	employees, err := cs.Store.ListEmployees(ctx)
	if err != nil {
		cs.logger.Error("list employees", zap.Error(err))
		return result
	}

	for _, emp := range employees {
		if ctx.Err() != nil {
			break
		}

		done, err := cs.Store.HasCarryoverSnapshot(ctx, emp.ID, year)
		if err != nil {
			cs.logger.Error("check snapshot", zap.String("employee_id", string(emp.ID)), zap.Error(err))
			result.Failed++
			continue
		}
		if done {
			result.Skipped++
			continue
		}

		carried, manual := emp.ManualCarryOverDays.Get()
		if !manual {
			policy, err := cs.Engine.ResolvePolicy(ctx, emp.ID)
			if err != nil {
				cs.logger.Warn("resolve policy", zap.String("employee_id", string(emp.ID)), zap.Error(err))
				result.Failed++
				continue
			}
			carried, err = cs.Engine.CalculateCarryover(ctx, emp.ID, emp.HiredAt, year, policy)
			if err != nil {
				cs.logger.Error("calculate carryover", zap.String("employee_id", string(emp.ID)), zap.Error(err))
				result.Failed++
				continue
			}
		}

		snap := leave.CarryoverSnapshot{
			ID:          uuid.NewString(),
			EmployeeID:  emp.ID,
			Year:        year,
			CarriedOver: carried,
			CreatedAt:   now,
		}
		if err := cs.Store.SaveCarryoverSnapshot(ctx, snap); err != nil {
			cs.logger.Error("save snapshot", zap.String("employee_id", string(emp.ID)), zap.Error(err))
			result.Failed++
			continue
		}
		result.Recorded++
	}

	if result.Recorded > 0 || result.Failed > 0 {
		cs.logger.Info("carryover snapshots",
			zap.Int("year", year),
			zap.Int("recorded", result.Recorded),
			zap.Int("skipped", result.Skipped),
			zap.Int("failed", result.Failed))
	}
	return result
}

// GetNextRunTime returns when the next scheduled check will occur.
func (cs *CarryoverScheduler) GetNextRunTime() time.Time {
	return cs.now().Add(cs.CheckInterval)
}
