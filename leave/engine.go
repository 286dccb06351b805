package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/leave-engine/generic"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE - Entry points that need the data-access contract
// =============================================================================

// Engine computes balances and validates requests. It holds no mutable
// state and is safe for concurrent use; every call reads through Repo.
type Engine struct {
	Repo Repository

	now                 func() time.Time
	logger              *zap.Logger
	enforceCarryoverCap bool
}

type Option func(*Engine)

// WithClock replaces time.Now, used for "today" and the notice period.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithCarryoverCap applies MaxCarryoverDays as a ceiling on computed
// carryover. Off by default: the cap is informational and exceeding it is
// only logged.
func WithCarryoverCap(enforce bool) Option {
	return func(e *Engine) { e.enforceCarryoverCap = enforce }
}

func NewEngine(repo Repository, opts ...Option) *Engine {
	e := &Engine{
		Repo:   repo,
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() generic.TimePoint {
	return generic.FromTime(e.now())
}

// ResolvePolicy loads the default active policy and merges the employee's
// override into it.
func (e *Engine) ResolvePolicy(ctx context.Context, employeeID generic.EmployeeID) (EffectivePolicy, error) {
	policy, err := e.Repo.FindDefaultActivePolicy(ctx)
	if err != nil {
		return EffectivePolicy{}, fmt.Errorf("load default policy: %w", err)
	}
	if policy == nil {
		return EffectivePolicy{}, ErrNoActivePolicy
	}

	override, err := e.Repo.FindPolicyOverride(ctx, employeeID)
	if err != nil {
		return EffectivePolicy{}, fmt.Errorf("load policy override for %s: %w", employeeID, err)
	}
	return MergePolicy(*policy, override), nil
}
