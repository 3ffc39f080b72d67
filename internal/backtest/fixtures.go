package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/storage"
)

// Fixture is one demo saved condition.
type Fixture struct {
	Name   string
	Params Params
}

// demoFund is the synthetic fund shared by all fixtures.
var demoFund = NAVModel{Start: decimal.NewFromInt(1), Drift: 0.06, Vol: 0.22, Seed: 20240101}

// Fixtures returns the demo saved conditions.
func Fixtures() []Fixture {
	return []Fixture{
		{"buy and hold", Params{Policy: PolicyBuyAndHold, Capital: DefaultCapital}},
		{"weekly 1000", Params{Policy: PolicyScheduled, Capital: DefaultCapital, Amount: decimal.NewFromInt(1000), Period: Weekly}},
		{"monthly 4000", Params{Policy: PolicyScheduled, Capital: DefaultCapital, Amount: decimal.NewFromInt(4000), Period: Monthly}},
		{"weekly tuned", Params{
			Policy:  PolicyScheduledTune,
			Capital: DefaultCapital,
			Amount:  decimal.NewFromInt(1000),
			Period:  Weekly,
			Pieces: []PieceParams{
				{MaxNAV: decimal.RequireFromString("0.9"), Multiple: decimal.NewFromInt(2)},
				{MaxNAV: decimal.RequireFromString("1.2"), Multiple: decimal.NewFromInt(1)},
				{MaxNAV: decimal.RequireFromString("1.5"), Multiple: decimal.RequireFromString("0.5")},
			},
		}},
		{"grid 5x4", Params{
			Policy:      PolicyGrid,
			Capital:     DefaultCapital,
			BuyPercent:  []float64{0, 5, 5, 5},
			SellPercent: []float64{8, 8, 8, 8},
		}},
		{"weekly window", Params{
			Policy:       PolicyWindow,
			Capital:      DefaultCapital,
			Amount:       decimal.NewFromInt(1000),
			Period:       Weekly,
			Window:       7,
			WindowDist:   1,
			WindowMethod: WindowAvg,
			WindowPieces: []WindowPieceParams{
				{MaxChange: decimal.NewFromInt(-3), Multiple: decimal.NewFromInt(2)},
				{MaxChange: decimal.Zero, Multiple: decimal.NewFromInt(1)},
				{MaxChange: decimal.NewFromInt(3), Multiple: decimal.RequireFromString("0.5")},
			},
		}},
		{"sma 5/20", Params{
			Policy:     PolicyCrossover,
			Capital:    DefaultCapital,
			Commission: decimal.RequireFromString("0.001"),
			Indicator:  IndicatorSMA,
			FastPeriod: 5,
			SlowPeriod: 20,
		}},
	}
}

// LoadFixtures stores the demo saved conditions and backtests each of them over the
// four years ending at now.
func LoadFixtures(ctx context.Context, conditions storage.SavedConditionStore, snapshots storage.SnapshotStore, now time.Time, logger *zap.Logger) error {
	from := now.AddDate(-4, 0, 0)
	series := demoFund.Series(from, now)
	runner := NewRunner(snapshots, logger)

	for _, f := range Fixtures() {
		def, err := f.Params.Definition()
		if err != nil {
			return fmt.Errorf("encode %s: %w", f.Name, err)
		}
		cond := &domain.SavedCondition{Name: f.Name, Definition: def, CreatedAt: now}
		if err := conditions.Insert(ctx, cond); err != nil {
			return fmt.Errorf("insert condition %s: %w", f.Name, err)
		}
		if _, err := runner.Run(ctx, f.Name, series, f.Params.Capital, f.Params.Strategy(), f.Params.EngineOptions()...); err != nil {
			return err
		}
	}
	return nil
}
