package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	p, err := ParseParams(map[string]any{
		"policy": "scheduled",
		"amount": 500.0,
		"period": "monthly",
	})
	require.NoError(t, err)
	assert.True(t, p.Capital.Equal(DefaultCapital))
	assert.True(t, p.Amount.Equal(dec("500")))

	s, ok := p.Strategy().(*Scheduled)
	require.True(t, ok)
	assert.Equal(t, Monthly, s.Period)
}

func TestParseParams_Invalid(t *testing.T) {
	tests := []struct {
		name string
		def  map[string]any
	}{
		{"missing policy", map[string]any{}},
		{"unknown policy", map[string]any{"policy": "martingale"}},
		{"scheduled without amount", map[string]any{"policy": "scheduled"}},
		{"bad period", map[string]any{"policy": "scheduled", "amount": 1, "period": "daily"}},
		{"tune without pieces", map[string]any{"policy": "scheduled_tune", "amount": 1}},
		{"grid mismatch", map[string]any{"policy": "grid", "buy_percent": []any{0, 5}, "sell_percent": []any{5}}},
		{"grid bad percent", map[string]any{"policy": "grid", "buy_percent": []any{120}, "sell_percent": []any{5}}},
		{"negative capital", map[string]any{"policy": "buyandhold", "capital": -5}},
		{"wrong type", map[string]any{"policy": 3}},
		{"window without pieces", map[string]any{"policy": "scheduled_window", "amount": 1}},
		{"bad window method", map[string]any{"policy": "scheduled_window", "amount": 1, "window_method": "median"}},
		{"crossover fast not below slow", map[string]any{"policy": "crossover", "fast_period": 20, "slow_period": 5}},
		{"crossover bad indicator", map[string]any{"policy": "crossover", "indicator": "rsi"}},
		{"crossover cash fraction above one", map[string]any{"policy": "crossover", "cash_fraction": 1.5}},
		{"commission of one", map[string]any{"policy": "buyandhold", "commission": 1}},
		{"negative commission", map[string]any{"policy": "buyandhold", "commission": -0.01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseParams(tt.def)
			assert.Error(t, err)
		})
	}
}

func TestParams_DefinitionRoundTrip(t *testing.T) {
	for _, f := range Fixtures() {
		def, err := f.Params.Definition()
		require.NoError(t, err, f.Name)

		back, err := ParseParams(def)
		require.NoError(t, err, f.Name)
		assert.Equal(t, f.Params.Policy, back.Policy, f.Name)
		assert.Equal(t, f.Params.Strategy().Name(), back.Strategy().Name(), f.Name)
	}
}

func TestParseParams_CrossoverDefaults(t *testing.T) {
	tests := []struct {
		indicator          string
		fast, slow, signal int
	}{
		{"", 5, 20, 0},
		{"sma", 5, 20, 0},
		{"macd", 12, 26, 9},
	}

	for _, tt := range tests {
		t.Run("indicator "+tt.indicator, func(t *testing.T) {
			def := map[string]any{"policy": "crossover"}
			if tt.indicator != "" {
				def["indicator"] = tt.indicator
			}
			p, err := ParseParams(def)
			require.NoError(t, err)

			c, ok := p.Strategy().(*Crossover)
			require.True(t, ok)
			assert.Equal(t, tt.fast, c.Fast)
			assert.Equal(t, tt.slow, c.Slow)
			assert.Equal(t, tt.signal, c.Signal)
			assert.True(t, c.CashFraction.Equal(DefaultCashFraction))
			assert.Empty(t, p.EngineOptions())
		})
	}
}

func TestParams_EngineOptions(t *testing.T) {
	p, err := ParseParams(map[string]any{"policy": "buyandhold", "commission": "0.002"})
	require.NoError(t, err)
	require.Len(t, p.EngineOptions(), 1)

	e := NewEngine(&BuyAndHold{}, "fee", dec("1000"), p.EngineOptions()...)
	assert.True(t, e.commission.Equal(dec("0.002")))
}

func TestParseParams_ScheduledWindow(t *testing.T) {
	p, err := ParseParams(map[string]any{
		"policy": "scheduled_window",
		"amount": 100,
		"window_pieces": []any{
			map[string]any{"max_change": -3, "multiple": 2},
		},
	})
	require.NoError(t, err)

	w, ok := p.Strategy().(*ScheduledWindow)
	require.True(t, ok)
	assert.Equal(t, 7, w.Window)
	assert.Equal(t, 1, w.Dist)
	assert.Equal(t, WindowAvg, w.Method)
	assert.Equal(t, Weekly, w.Period)
	require.Len(t, w.Pieces, 1)
	assert.True(t, w.Pieces[0].MaxChange.Equal(dec("-3")))
}
