package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fund-strategy-lab/internal/domain"
)

// Action represents a trade action.
type Action string

// Action constants.
const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
)

// Event is one trading day of a fund.
type Event struct {
	Date time.Time
	NAV  decimal.Decimal // net asset value per unit
}

// Signal represents a trade signal from a strategy.
// Amount is cash to spend for a buy and holding value to redeem for a sell.
type Signal struct {
	Action Action
	Amount decimal.Decimal
	Reason string
}

// Strategy defines hooks for backtest execution.
type Strategy interface {
	// OnEvent is called for each trading day in order with the account state before trading.
	// Returns a trade signal or nil if no action.
	OnEvent(ctx context.Context, event *Event, acct Account) (*Signal, error)

	// Name returns the strategy identifier.
	Name() string
}

// Account is the cash and fund holding of one backtest.
type Account struct {
	Cash      decimal.Decimal
	Units     decimal.Decimal
	Principal decimal.Decimal
}

// Value returns the holding value at nav.
func (a Account) Value(nav decimal.Decimal) decimal.Decimal {
	return a.Units.Mul(nav)
}

// Total returns cash plus holding value at nav.
func (a Account) Total(nav decimal.Decimal) decimal.Decimal {
	return a.Cash.Add(a.Value(nav))
}

// Results holds backtest output.
type Results struct {
	StrategyName string
	EventCount   int
	SignalCount  int
	Signals      []*Signal
	Snapshots    []*domain.DailySnapshot
	Fees         decimal.Decimal // commission paid over the run
}

// Engine applies strategy signals to an account and records one snapshot per day.
type Engine struct {
	strategy   Strategy
	account    Account
	results    *Results
	commission decimal.Decimal
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCommission charges rate (0.001 is 0.1%) of every traded amount.
// The fee comes out of the cash spent on a buy and out of the proceeds of a sell.
func WithCommission(rate decimal.Decimal) EngineOption {
	return func(e *Engine) {
		e.commission = rate
	}
}

// NewEngine creates a new backtest engine funded with capital.
// snapshotName is stored as DailySnapshot.Strategy.
func NewEngine(strategy Strategy, snapshotName string, capital decimal.Decimal, opts ...EngineOption) *Engine {
	e := &Engine{
		strategy: strategy,
		account:  Account{Cash: capital, Principal: capital},
		results: &Results{
			StrategyName: snapshotName,
			Signals:      make([]*Signal, 0),
		},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// OnEvent processes a trading day through the strategy.
func (e *Engine) OnEvent(ctx context.Context, event *Event) error {
	if !event.NAV.IsPositive() {
		return fmt.Errorf("non-positive nav %s on %s", event.NAV, event.Date.Format(time.DateOnly))
	}
	e.results.EventCount++

	signal, err := e.strategy.OnEvent(ctx, event, e.account)
	if err != nil {
		return err
	}

	buys := 0
	if signal != nil && e.apply(signal, event.NAV) {
		e.results.SignalCount++
		e.results.Signals = append(e.results.Signals, signal)
		if signal.Action == ActionBuy {
			buys++
		}
	}

	e.results.Snapshots = append(e.results.Snapshots, e.snapshot(event, buys))
	return nil
}

// apply executes signal, clamped to available cash or holding. Reports whether anything traded.
func (e *Engine) apply(s *Signal, nav decimal.Decimal) bool {
	switch s.Action {
	case ActionBuy:
		amount := decimal.Min(s.Amount, e.account.Cash)
		if !amount.IsPositive() {
			return false
		}
		fee := amount.Mul(e.commission)
		e.account.Cash = e.account.Cash.Sub(amount)
		e.account.Units = e.account.Units.Add(amount.Sub(fee).Div(nav))
		e.results.Fees = e.results.Fees.Add(fee)
	case ActionSell:
		value := decimal.Min(s.Amount, e.account.Value(nav))
		if !value.IsPositive() {
			return false
		}
		fee := value.Mul(e.commission)
		e.account.Units = e.account.Units.Sub(value.Div(nav))
		e.account.Cash = e.account.Cash.Add(value.Sub(fee))
		e.results.Fees = e.results.Fees.Add(fee)
	default:
		return false
	}
	return true
}

func (e *Engine) snapshot(event *Event, buys int) *domain.DailySnapshot {
	total := e.account.Total(event.NAV)
	position := 0.0
	if total.IsPositive() {
		position = e.account.Value(event.NAV).Div(total).InexactFloat64()
	}
	return &domain.DailySnapshot{
		Strategy:    e.results.StrategyName,
		Date:        domain.Day(event.Date),
		Position:    position,
		TotalAmount: total.Round(4),
		Principal:   e.account.Principal.Round(4),
		Profit:      total.Sub(e.account.Principal).Round(4),
		BuyCount:    buys,
	}
}

// Results returns the backtest results.
func (e *Engine) Results() *Results {
	return e.results
}
