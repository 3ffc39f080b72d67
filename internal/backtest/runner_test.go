package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fund-strategy-lab/internal/storage"
	"fund-strategy-lab/internal/storage/memory"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func series(navs ...string) []Event {
	start := day("2024-01-01")
	out := make([]Event, len(navs))
	for i, n := range navs {
		out[i] = Event{Date: start.AddDate(0, 0, i), NAV: decimal.RequireFromString(n)}
	}
	return out
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// recorder never trades and keeps the days and cash it was shown.
type recorder struct {
	days []time.Time
	cash []decimal.Decimal
}

func (r *recorder) OnEvent(_ context.Context, event *Event, acct Account) (*Signal, error) {
	r.days = append(r.days, event.Date)
	r.cash = append(r.cash, acct.Cash)
	return nil, nil
}

func (r *recorder) Name() string { return "recorder" }

func TestRunner_CallsStrategyInOrder(t *testing.T) {
	runner := NewRunner(nil, nil)
	strategy := &recorder{}

	results, err := runner.Run(context.Background(), "s", series("1", "1.1", "1.2"), dec("1000"), strategy)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	days := strategy.days
	if len(days) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(days))
	}
	if !days[0].Before(days[1]) || !days[1].Before(days[2]) {
		t.Error("Strategy did not receive events in order")
	}
	for _, c := range strategy.cash {
		if !c.Equal(dec("1000")) {
			t.Errorf("Expected untouched cash 1000, got %s", c)
		}
	}
	if results.EventCount != 3 {
		t.Errorf("Expected EventCount 3, got %d", results.EventCount)
	}
	if results.SignalCount != 0 {
		t.Errorf("Expected SignalCount 0, got %d", results.SignalCount)
	}
	if len(results.Snapshots) != 3 {
		t.Errorf("Expected 3 snapshots, got %d", len(results.Snapshots))
	}
}

func TestRunner_RejectsUnorderedSeries(t *testing.T) {
	s := series("1", "1.1")
	s[0], s[1] = s[1], s[0]

	_, err := NewRunner(nil, nil).Run(context.Background(), "s", s, dec("1000"), &recorder{})
	if err == nil {
		t.Fatal("expected error for unordered series")
	}
}

func TestRunner_PersistsSnapshots(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSnapshotStore()

	_, err := NewRunner(store, nil).Run(ctx, "hold", series("1", "2"), dec("1000"), &BuyAndHold{})
	require.NoError(t, err)

	snaps, err := store.GetByStrategyRange(ctx, "hold", day("2024-01-01"), day("2024-01-31"))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.True(t, snaps[1].Profit.Equal(dec("1000")))

	// Same days again is a duplicate batch
	_, err = NewRunner(store, nil).Run(ctx, "hold", series("1", "2"), dec("1000"), &BuyAndHold{})
	assert.True(t, errors.Is(err, storage.ErrDuplicateKey))
}

func TestEngine_BuyAndHold(t *testing.T) {
	results, err := NewRunner(nil, nil).Run(context.Background(), "hold", series("1", "1.5", "0.5"), dec("1000"), &BuyAndHold{})
	require.NoError(t, err)

	snaps := results.Snapshots
	assert.Equal(t, 1, results.SignalCount)
	assert.Equal(t, 1, snaps[0].BuyCount)
	assert.Equal(t, 0, snaps[1].BuyCount)
	assert.InDelta(t, 1.0, snaps[0].Position, 1e-9)
	assert.True(t, snaps[1].TotalAmount.Equal(dec("1500")))
	assert.True(t, snaps[2].Profit.Equal(dec("-500")))
	assert.True(t, snaps[2].Principal.Equal(dec("1000")))
	assert.Equal(t, "hold", snaps[0].Strategy)
}

func TestEngine_RejectsNonPositiveNAV(t *testing.T) {
	_, err := NewRunner(nil, nil).Run(context.Background(), "s", series("1", "0"), dec("1000"), &BuyAndHold{})
	assert.Error(t, err)
}

func TestEngine_ClampsToCash(t *testing.T) {
	s := &Scheduled{Amount: dec("600"), Period: Weekly}
	// 2024-01-01 is a Monday; days 8 and 15 open new weeks
	ev := series("1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "1", "1")

	results, err := NewRunner(nil, nil).Run(context.Background(), "w", ev, dec("1000"), s)
	require.NoError(t, err)

	assert.Equal(t, 2, results.SignalCount, "third purchase has no cash left")
	last := results.Snapshots[len(results.Snapshots)-1]
	assert.InDelta(t, 1.0, last.Position, 1e-9)
	assert.True(t, last.TotalAmount.Equal(dec("1000")))
}

func TestScheduled_Monthly(t *testing.T) {
	s := &Scheduled{Amount: dec("100"), Period: Monthly}
	ctx := context.Background()

	buys := 0
	for _, d := range []string{"2024-01-30", "2024-01-31", "2024-02-01", "2024-02-15", "2024-03-04"} {
		sig, err := s.OnEvent(ctx, &Event{Date: day(d), NAV: dec("1")}, Account{})
		require.NoError(t, err)
		if sig != nil {
			buys++
		}
	}
	assert.Equal(t, 3, buys)
}

func TestScheduledTune_Pieces(t *testing.T) {
	s := &ScheduledTune{
		Scheduled: Scheduled{Amount: dec("100"), Period: Monthly},
		Pieces: []Piece{
			{MaxNAV: dec("1"), Multiple: dec("2")},
			{MaxNAV: dec("2"), Multiple: dec("1")},
		},
	}
	ctx := context.Background()

	sig, err := s.OnEvent(ctx, &Event{Date: day("2024-01-02"), NAV: dec("0.8")}, Account{})
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.True(t, sig.Amount.Equal(dec("200")))

	sig, _ = s.OnEvent(ctx, &Event{Date: day("2024-02-01"), NAV: dec("1.5")}, Account{})
	require.NotNil(t, sig)
	assert.True(t, sig.Amount.Equal(dec("100")))

	sig, _ = s.OnEvent(ctx, &Event{Date: day("2024-03-01"), NAV: dec("2.5")}, Account{})
	assert.Nil(t, sig)
}

func TestGrid_BuysAndSells(t *testing.T) {
	g := &Grid{BuyPercent: []float64{0, 10}, SellPercent: []float64{20, 20}, Capital: dec("1000")}

	// lines: buy 1.00, 0.90; sell 1.20, 1.08
	results, err := NewRunner(nil, nil).Run(context.Background(), "grid",
		series("1", "0.95", "0.89", "1.0", "1.09", "1.21"), dec("1000"), g)
	require.NoError(t, err)

	require.Len(t, results.Signals, 4)
	assert.Equal(t, ActionBuy, results.Signals[0].Action)
	assert.True(t, results.Signals[0].Amount.Equal(dec("500")))
	assert.Equal(t, ActionBuy, results.Signals[1].Action)
	assert.Equal(t, ActionSell, results.Signals[2].Action)
	assert.Equal(t, ActionSell, results.Signals[3].Action)

	last := results.Snapshots[len(results.Snapshots)-1]
	assert.InDelta(t, 0.0, last.Position, 1e-9)
	assert.True(t, last.Profit.IsPositive())
}

func TestGrid_InvalidParams(t *testing.T) {
	g := &Grid{BuyPercent: []float64{5}, Capital: dec("1000")}
	_, err := g.OnEvent(context.Background(), &Event{Date: day("2024-01-01"), NAV: dec("1")}, Account{})
	assert.Error(t, err)
}

func TestEngine_SnapshotDatesAreUTCDays(t *testing.T) {
	ctx := context.Background()
	east := time.FixedZone("UTC+8", 8*3600)
	ev := []Event{
		{Date: time.Date(2024, 1, 1, 0, 0, 0, 0, east), NAV: dec("1")},
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, east), NAV: dec("1.1")},
	}
	store := memory.NewSnapshotStore()

	results, err := NewRunner(store, nil).Run(ctx, "east", ev, dec("1000"), &BuyAndHold{})
	require.NoError(t, err)
	assert.Equal(t, day("2024-01-01"), results.Snapshots[0].Date)
	assert.Equal(t, day("2024-01-02"), results.Snapshots[1].Date)

	snaps, err := store.GetByStrategyRange(ctx, "east", day("2024-01-01"), day("2024-01-02"))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	for _, s := range snaps {
		assert.Equal(t, time.UTC, s.Date.Location())
	}
}

func TestCrossover_SMACrossesUpThenDown(t *testing.T) {
	p, err := ParseParams(map[string]any{
		"policy":      "crossover",
		"capital":     1000,
		"commission":  "0.001",
		"fast_period": 2,
		"slow_period": 3,
	})
	require.NoError(t, err)

	// fast-slow: -0.05, -0.03, +0.05 (buy), +0.12, -0.03 (sell), -0.15
	results, err := NewRunner(nil, nil).Run(context.Background(), "sma",
		series("1.2", "1.1", "1.0", "1.0", "1.3", "1.4", "1.0", "0.9"),
		p.Capital, p.Strategy(), p.EngineOptions()...)
	require.NoError(t, err)

	require.Len(t, results.Signals, 2)
	assert.Equal(t, ActionBuy, results.Signals[0].Action)
	assert.True(t, results.Signals[0].Amount.Equal(dec("950")), "95%% of cash, got %s", results.Signals[0].Amount)
	assert.Equal(t, ActionSell, results.Signals[1].Action)

	snaps := results.Snapshots
	assert.Equal(t, 1, snaps[4].BuyCount)
	assert.True(t, snaps[4].Profit.Equal(dec("-0.95")), "buy fee, got %s", snaps[4].Profit)
	assert.InDelta(t, 0.0, snaps[6].Position, 1e-9)
	assert.True(t, snaps[7].TotalAmount.Equal(dec("779.3084")), "got %s", snaps[7].TotalAmount)
	assert.InDelta(t, 1.6800, results.Fees.InexactFloat64(), 1e-4)
}

func TestCrossover_MACD(t *testing.T) {
	navs := make([]string, 0, 30)
	for i := 0; i < 10; i++ {
		navs = append(navs, "1")
	}
	for k := 1; k <= 10; k++ {
		navs = append(navs, fmt.Sprintf("%.2f", 1+0.05*float64(k)))
	}
	for k := 1; k <= 10; k++ {
		navs = append(navs, fmt.Sprintf("%.2f", 1.5-0.05*float64(k)))
	}
	c := &Crossover{Indicator: IndicatorMACD, Fast: 3, Slow: 6, Signal: 3, CashFraction: dec("1")}

	results, err := NewRunner(nil, nil).Run(context.Background(), "macd", series(navs...), dec("1000"), c)
	require.NoError(t, err)

	require.Len(t, results.Signals, 2)
	assert.Equal(t, ActionBuy, results.Signals[0].Action)
	assert.Equal(t, ActionSell, results.Signals[1].Action)
	assert.Equal(t, 1, results.Snapshots[10].BuyCount, "first rising day")
	assert.InDelta(t, 1.0, results.Snapshots[19].Position, 1e-9)
	assert.InDelta(t, 0.0, results.Snapshots[20].Position, 1e-9, "first falling day")
	assert.True(t, results.Fees.IsZero())
}

func TestCrossover_InvalidPeriods(t *testing.T) {
	c := &Crossover{Indicator: IndicatorSMA, Fast: 5, Slow: 5, CashFraction: dec("1")}
	_, err := c.OnEvent(context.Background(), &Event{Date: day("2024-01-01"), NAV: dec("1")}, Account{})
	assert.Error(t, err)
}

func TestScheduledWindow_Pieces(t *testing.T) {
	s := &ScheduledWindow{
		Scheduled: Scheduled{Amount: dec("100"), Period: Monthly},
		Window:    3,
		Dist:      1,
		Method:    WindowAvg,
		Pieces: []WindowPiece{
			{MaxChange: dec("-3"), Multiple: dec("2")},
			{MaxChange: dec("0"), Multiple: dec("1")},
			{MaxChange: dec("3"), Multiple: dec("0.5")},
		},
	}
	ctx := context.Background()

	steps := []struct {
		date string
		nav  string
		want string // empty for no purchase
	}{
		{"2024-01-29", "1", ""}, // due, no history yet
		{"2024-01-30", "1", ""},
		{"2024-01-31", "1", ""},
		{"2024-02-01", "0.95", "200"}, // -5% against 1.00
		{"2024-02-02", "1", ""},
		{"2024-03-01", "1.2", ""},     // +22% against 0.9833
		{"2024-04-01", "1.05", "100"}, // 0% against 1.05
	}
	for _, st := range steps {
		sig, err := s.OnEvent(ctx, &Event{Date: day(st.date), NAV: dec(st.nav)}, Account{})
		require.NoError(t, err, st.date)
		if st.want == "" {
			assert.Nil(t, sig, st.date)
			continue
		}
		require.NotNil(t, sig, st.date)
		assert.True(t, sig.Amount.Equal(dec(st.want)), "%s: got %s", st.date, sig.Amount)
	}
}
