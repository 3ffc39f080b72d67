package backtest

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// DefaultCapital is the starting cash when a definition names none.
var DefaultCapital = decimal.NewFromInt(100000)

// Crossover defaults: 5/20 day moving averages, 12/26/9 MACD, 95% of cash per entry.
var (
	DefaultCashFraction = decimal.RequireFromString("0.95")
	defaultSMA          = [2]int{5, 20}
	defaultMACD         = [3]int{12, 26, 9}
)

// Params are the backtest parameters stored in a saved condition definition.
type Params struct {
	Policy       string              `json:"policy" validate:"required,oneof=buyandhold scheduled scheduled_tune scheduled_window grid crossover"`
	Fund         string              `json:"fund,omitempty"`
	Capital      decimal.Decimal     `json:"capital"`
	Commission   decimal.Decimal     `json:"commission,omitempty"`
	Amount       decimal.Decimal     `json:"amount,omitempty"`
	Period       Period              `json:"period,omitempty" validate:"omitempty,oneof=weekly monthly"`
	Pieces       []PieceParams       `json:"pieces,omitempty" validate:"dive"`
	Window       int                 `json:"window,omitempty" validate:"gte=0"`
	WindowDist   int                 `json:"window_dist,omitempty" validate:"gte=0"`
	WindowMethod WindowMethod        `json:"window_method,omitempty" validate:"omitempty,oneof=max min avg"`
	WindowPieces []WindowPieceParams `json:"window_pieces,omitempty" validate:"dive"`
	BuyPercent   []float64           `json:"buy_percent,omitempty" validate:"dive,gte=0,lt=100"`
	SellPercent  []float64           `json:"sell_percent,omitempty" validate:"dive,gt=0"`
	Indicator    Indicator           `json:"indicator,omitempty" validate:"omitempty,oneof=sma macd"`
	FastPeriod   int                 `json:"fast_period,omitempty" validate:"gte=0"`
	SlowPeriod   int                 `json:"slow_period,omitempty" validate:"gte=0"`
	SignalPeriod int                 `json:"signal_period,omitempty" validate:"gte=0"`
	CashFraction decimal.Decimal     `json:"cash_fraction,omitempty"`
}

// PieceParams is the definition form of a Piece.
type PieceParams struct {
	MaxNAV   decimal.Decimal `json:"max_nav"`
	Multiple decimal.Decimal `json:"multiple"`
}

// WindowPieceParams is the definition form of a WindowPiece.
type WindowPieceParams struct {
	MaxChange decimal.Decimal `json:"max_change"`
	Multiple  decimal.Decimal `json:"multiple"`
}

var validate = validator.New()

// ParseParams decodes a saved condition definition.
func ParseParams(def map[string]any) (Params, error) {
	raw, err := json.Marshal(def)
	if err != nil {
		return Params{}, fmt.Errorf("encode definition: %w", err)
	}
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("decode definition: %w", err)
	}
	if p.Capital.IsZero() {
		p.Capital = DefaultCapital
	}
	if err := p.Validate(); err != nil {
		return Params{}, err
	}
	return p, nil
}

// Validate checks the parameters of the selected policy.
func (p Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("invalid backtest params: %w", err)
	}
	if !p.Capital.IsPositive() {
		return fmt.Errorf("invalid backtest params: capital must be positive")
	}
	if p.Commission.IsNegative() || p.Commission.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return fmt.Errorf("invalid backtest params: commission must be in [0, 1)")
	}
	switch p.Policy {
	case PolicyScheduled, PolicyScheduledTune, PolicyWindow:
		if !p.Amount.IsPositive() {
			return fmt.Errorf("invalid backtest params: %s needs a positive amount", p.Policy)
		}
		if p.Policy == PolicyScheduledTune && len(p.Pieces) == 0 {
			return fmt.Errorf("invalid backtest params: %s needs pieces", p.Policy)
		}
		if p.Policy == PolicyWindow && len(p.WindowPieces) == 0 {
			return fmt.Errorf("invalid backtest params: %s needs window_pieces", p.Policy)
		}
	case PolicyCrossover:
		if err := p.crossover().validate(); err != nil {
			return fmt.Errorf("invalid backtest params: %w", err)
		}
	case PolicyGrid:
		if len(p.BuyPercent) == 0 || len(p.BuyPercent) != len(p.SellPercent) {
			return fmt.Errorf("invalid backtest params: grid needs equally long buy_percent and sell_percent")
		}
	}
	return nil
}

// Strategy builds a fresh strategy instance for one run.
func (p Params) Strategy() Strategy {
	period := p.Period
	if period == "" {
		period = Weekly
	}
	switch p.Policy {
	case PolicyScheduled:
		return &Scheduled{Amount: p.Amount, Period: period}
	case PolicyScheduledTune:
		pieces := make([]Piece, len(p.Pieces))
		for i, pp := range p.Pieces {
			pieces[i] = Piece(pp)
		}
		return &ScheduledTune{Scheduled: Scheduled{Amount: p.Amount, Period: period}, Pieces: pieces}
	case PolicyWindow:
		return p.window(period)
	case PolicyGrid:
		return &Grid{BuyPercent: p.BuyPercent, SellPercent: p.SellPercent, Capital: p.Capital}
	case PolicyCrossover:
		return p.crossover()
	default:
		return &BuyAndHold{}
	}
}

// EngineOptions returns the engine settings carried by p.
func (p Params) EngineOptions() []EngineOption {
	if !p.Commission.IsPositive() {
		return nil
	}
	return []EngineOption{WithCommission(p.Commission)}
}

func (p Params) window(period Period) *ScheduledWindow {
	w := &ScheduledWindow{
		Scheduled: Scheduled{Amount: p.Amount, Period: period},
		Window:    p.Window,
		Dist:      p.WindowDist,
		Method:    p.WindowMethod,
		Pieces:    make([]WindowPiece, len(p.WindowPieces)),
	}
	if w.Window == 0 {
		w.Window = 7
	}
	if w.Dist == 0 {
		w.Dist = 1
	}
	if w.Method == "" {
		w.Method = WindowAvg
	}
	for i, wp := range p.WindowPieces {
		w.Pieces[i] = WindowPiece(wp)
	}
	return w
}

// crossover fills unset periods with the defaults of the chosen indicator.
func (p Params) crossover() *Crossover {
	c := &Crossover{
		Indicator:    p.Indicator,
		Fast:         p.FastPeriod,
		Slow:         p.SlowPeriod,
		Signal:       p.SignalPeriod,
		CashFraction: p.CashFraction,
	}
	if c.Indicator == "" {
		c.Indicator = IndicatorSMA
	}
	if c.Indicator == IndicatorMACD {
		if c.Fast == 0 {
			c.Fast = defaultMACD[0]
		}
		if c.Slow == 0 {
			c.Slow = defaultMACD[1]
		}
		if c.Signal == 0 {
			c.Signal = defaultMACD[2]
		}
	} else {
		if c.Fast == 0 {
			c.Fast = defaultSMA[0]
		}
		if c.Slow == 0 {
			c.Slow = defaultSMA[1]
		}
	}
	if c.CashFraction.IsZero() {
		c.CashFraction = DefaultCashFraction
	}
	return c
}

// Definition encodes p for storage in a saved condition.
func (p Params) Definition() (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	var def map[string]any
	if err := json.Unmarshal(raw, &def); err != nil {
		return nil, err
	}
	return def, nil
}
