package backtest

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/storage"
)

// Runner executes backtests and optionally persists their snapshots.
type Runner struct {
	snapshots storage.SnapshotStore // nil disables persistence
	logger    *zap.Logger
}

// NewRunner creates a new backtest runner. snapshots may be nil.
func NewRunner(snapshots storage.SnapshotStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		snapshots: snapshots,
		logger:    logger,
	}
}

// Run replays series (ordered by date) through strategy starting with capital.
// Snapshots are stored under name.
func (r *Runner) Run(ctx context.Context, name string, series []Event, capital decimal.Decimal, strategy Strategy, opts ...EngineOption) (*Results, error) {
	engine := NewEngine(strategy, name, capital, opts...)

	for i := range series {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && !series[i].Date.After(series[i-1].Date) {
			return nil, fmt.Errorf("series not strictly ordered at %s", series[i].Date)
		}
		if err := engine.OnEvent(ctx, &series[i]); err != nil {
			return nil, fmt.Errorf("backtest %s: %w", name, err)
		}
	}

	results := engine.Results()
	if r.snapshots != nil && len(results.Snapshots) > 0 {
		if err := r.snapshots.InsertBulk(ctx, results.Snapshots); err != nil {
			return nil, fmt.Errorf("persist snapshots of %s: %w", name, err)
		}
	}

	r.logger.Info("backtest completed",
		zap.String("strategy", name),
		zap.String("policy", strategy.Name()),
		zap.Int("days", results.EventCount),
		zap.Int("trades", results.SignalCount),
		zap.String("fees", results.Fees.StringFixed(2)))
	return results, nil
}
