// Package compare reduces per-strategy daily snapshots to compare records.
package compare

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/observability"
	"fund-strategy-lab/internal/storage"
)

// Service builds compare records from a SnapshotStore.
type Service struct {
	snapshots storage.SnapshotStore
	logger    *zap.Logger
}

// NewService creates a compare service. A nil logger disables logging.
func NewService(snapshots storage.SnapshotStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{snapshots: snapshots, logger: logger}
}

// Compare returns one record per selected strategy, in selection order.
// Strategies without snapshots in the range yield an all-zero record.
func (s *Service) Compare(ctx context.Context, q domain.CompareQuery) ([]domain.CompareRecord, error) {
	started := time.Now()

	start, end := domain.Day(q.Start()), domain.Day(q.End())
	records := make([]domain.CompareRecord, 0, len(q.StrategyChecked))
	for _, name := range q.StrategyChecked {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		snaps, err := s.snapshots.GetByStrategyRange(ctx, name, start, end)
		if err != nil {
			return nil, fmt.Errorf("load snapshots for %q: %w", name, err)
		}
		if len(snaps) == 0 {
			s.logger.Debug("no snapshots in range",
				zap.String("strategy", name),
				zap.Time("start", start),
				zap.Time("end", end))
		}
		records = append(records, Reduce(name, snaps))
	}

	elapsed := time.Since(started)
	observability.RecordCompare(len(records), elapsed.Seconds())
	s.logger.Info("compare completed",
		zap.Int("strategies", len(records)),
		zap.Strings("metrics", q.ChartChecked),
		zap.Duration("elapsed", elapsed))

	return records, nil
}

// Reduce summarizes snapshots of one strategy. Snapshots must be ordered by date.
func Reduce(name string, snaps []*domain.DailySnapshot) domain.CompareRecord {
	rec := domain.CompareRecord{Name: name}
	if len(snaps) == 0 {
		return rec
	}

	positions := make([]float64, len(snaps))
	buys := 0
	for i, s := range snaps {
		positions[i] = s.Position
		buys += s.BuyCount
	}
	rec.MaxPos = floats.Max(positions)
	rec.AvgPos = stat.Mean(positions, nil)

	profit := snaps[len(snaps)-1].Profit
	if buys > 0 {
		rec.ProfitPerInvest = profit.Div(decimal.NewFromInt(int64(buys))).InexactFloat64()
	}
	if rec.AvgPos != 0 {
		rec.ProfitAmountPerPos = profit.InexactFloat64() / rec.AvgPos
	}
	return rec
}
