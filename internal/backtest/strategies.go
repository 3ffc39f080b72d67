package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// Policy names accepted in a saved condition definition.
const (
	PolicyBuyAndHold    = "buyandhold"
	PolicyScheduled     = "scheduled"
	PolicyScheduledTune = "scheduled_tune"
	PolicyGrid          = "grid"
	PolicyWindow        = "scheduled_window"
	PolicyCrossover     = "crossover"
)

// BuyAndHold invests all cash on the first day and never trades again.
type BuyAndHold struct {
	started bool
}

// OnEvent buys with all cash on the first day.
func (s *BuyAndHold) OnEvent(_ context.Context, _ *Event, acct Account) (*Signal, error) {
	if s.started {
		return nil, nil
	}
	s.started = true
	return &Signal{Action: ActionBuy, Amount: acct.Cash, Reason: "initial purchase"}, nil
}

// Name returns the strategy identifier.
func (s *BuyAndHold) Name() string { return PolicyBuyAndHold }

// Period is how often a scheduled strategy buys.
type Period string

// Period constants.
const (
	Weekly  Period = "weekly"  // first trading day of each ISO week
	Monthly Period = "monthly" // first trading day of each month
)

// Scheduled buys a fixed amount at the start of every period.
type Scheduled struct {
	Amount decimal.Decimal
	Period Period

	last time.Time
}

// due reports whether date opens a new period.
func (s *Scheduled) due(date time.Time) bool {
	if s.last.IsZero() {
		s.last = date
		return true
	}
	var same bool
	switch s.Period {
	case Monthly:
		same = date.Year() == s.last.Year() && date.Month() == s.last.Month()
	default:
		y1, w1 := date.ISOWeek()
		y2, w2 := s.last.ISOWeek()
		same = y1 == y2 && w1 == w2
	}
	s.last = date
	return !same
}

// OnEvent buys Amount on the first trading day of each period.
func (s *Scheduled) OnEvent(_ context.Context, event *Event, _ Account) (*Signal, error) {
	if !s.due(event.Date) {
		return nil, nil
	}
	return &Signal{Action: ActionBuy, Amount: s.Amount, Reason: "scheduled " + string(s.Period)}, nil
}

// Name returns the strategy identifier.
func (s *Scheduled) Name() string { return PolicyScheduled }

// Piece scales a scheduled purchase while the NAV is at or below MaxNAV.
type Piece struct {
	MaxNAV   decimal.Decimal
	Multiple decimal.Decimal
}

// ScheduledTune is Scheduled with the amount scaled by the first matching piece.
// Pieces are checked in order; no piece matching means no purchase.
type ScheduledTune struct {
	Scheduled
	Pieces []Piece
}

// OnEvent buys a multiple of Amount depending on the NAV.
func (s *ScheduledTune) OnEvent(_ context.Context, event *Event, _ Account) (*Signal, error) {
	if !s.due(event.Date) {
		return nil, nil
	}
	for _, p := range s.Pieces {
		if event.NAV.LessThanOrEqual(p.MaxNAV) {
			return &Signal{
				Action: ActionBuy,
				Amount: s.Amount.Mul(p.Multiple),
				Reason: fmt.Sprintf("scheduled x%s at nav %s", p.Multiple, event.NAV),
			}, nil
		}
	}
	return nil, nil
}

// Name returns the strategy identifier.
func (s *ScheduledTune) Name() string { return PolicyScheduledTune }

// Grid splits capital into equal lots bought as the NAV falls through grid
// lines below the first day's NAV and sold as it climbs back.
// BuyPercent[i] is the drop from line i-1 to line i; SellPercent[i] the rise
// above buy line i at which that lot is sold.
type Grid struct {
	BuyPercent  []float64
	SellPercent []float64
	Capital     decimal.Decimal

	buyLines  []decimal.Decimal
	sellLines []decimal.Decimal
	prev      decimal.Decimal
	lots      int
}

func (g *Grid) init(nav decimal.Decimal) {
	line := nav
	for i, bp := range g.BuyPercent {
		line = line.Mul(decimal.NewFromFloat(1 - bp/100))
		g.buyLines = append(g.buyLines, line)
		g.sellLines = append(g.sellLines, line.Mul(decimal.NewFromFloat(1+g.SellPercent[i]/100)))
	}
}

func (g *Grid) lot() decimal.Decimal {
	return g.Capital.Div(decimal.NewFromInt(int64(len(g.BuyPercent)))).Round(2)
}

// OnEvent buys one lot per buy line crossed downward and sells 1/lots of the
// holding per sell line crossed upward.
func (g *Grid) OnEvent(_ context.Context, event *Event, acct Account) (*Signal, error) {
	if len(g.BuyPercent) == 0 || len(g.BuyPercent) != len(g.SellPercent) {
		return nil, errors.New("grid needs equally long, non-empty buy and sell percent lists")
	}

	nav := event.NAV
	if g.buyLines == nil {
		g.init(nav)
		g.prev = nav
		if g.BuyPercent[0] == 0 {
			g.lots++
			return &Signal{Action: ActionBuy, Amount: g.lot(), Reason: "grid line 0 at start"}, nil
		}
		return nil, nil
	}
	prev := g.prev
	g.prev = nav

	buy := decimal.Zero
	for i, line := range g.buyLines {
		if nav.LessThanOrEqual(line) && prev.GreaterThan(line) && g.lots <= i {
			g.lots++
			buy = buy.Add(g.lot())
		}
	}
	if buy.IsPositive() {
		return &Signal{Action: ActionBuy, Amount: buy, Reason: "grid buy"}, nil
	}

	sell := decimal.Zero
	holding := acct.Value(nav)
	for j, line := range g.sellLines {
		if nav.GreaterThanOrEqual(line) && prev.LessThan(line) && g.lots > j {
			part := holding.Div(decimal.NewFromInt(int64(g.lots)))
			sell = sell.Add(part)
			holding = holding.Sub(part)
			g.lots--
		}
	}
	if sell.IsPositive() {
		return &Signal{Action: ActionSell, Amount: sell, Reason: "grid sell"}, nil
	}
	return nil, nil
}

// Name returns the strategy identifier.
func (g *Grid) Name() string { return PolicyGrid }

// WindowMethod reduces the look-back window to a base NAV.
type WindowMethod string

// WindowMethod constants.
const (
	WindowMax WindowMethod = "max"
	WindowMin WindowMethod = "min"
	WindowAvg WindowMethod = "avg"
)

// WindowPiece scales a scheduled purchase while today's NAV change against the
// window base is at or below MaxChange percent.
type WindowPiece struct {
	MaxChange decimal.Decimal
	Multiple  decimal.Decimal
}

// ScheduledWindow is Scheduled with the amount scaled by how far the NAV moved
// from a window of earlier days. The window holds Window trading days ending
// Dist days before today. Pieces are checked in order; no piece matching, or
// too little history, means no purchase.
type ScheduledWindow struct {
	Scheduled
	Window int
	Dist   int
	Method WindowMethod
	Pieces []WindowPiece

	history []decimal.Decimal
}

func (s *ScheduledWindow) base() (decimal.Decimal, bool) {
	n := len(s.history)
	if s.Window < 1 || s.Dist < 1 || n < s.Window+s.Dist-1 {
		return decimal.Zero, false
	}
	values := s.history[n-s.Window-s.Dist+1 : n-s.Dist+1]
	switch s.Method {
	case WindowMax:
		return decimal.Max(values[0], values[1:]...), true
	case WindowMin:
		return decimal.Min(values[0], values[1:]...), true
	default:
		return decimal.Avg(values[0], values[1:]...), true
	}
}

// OnEvent buys a multiple of Amount on the first trading day of each period,
// picked by the percent change of the NAV against the window base.
func (s *ScheduledWindow) OnEvent(_ context.Context, event *Event, _ Account) (*Signal, error) {
	due := s.due(event.Date)
	base, ok := s.base()

	s.history = append(s.history, event.NAV)
	if keep := s.Window + s.Dist; len(s.history) > keep {
		s.history = s.history[len(s.history)-keep:]
	}

	if !due || !ok || !base.IsPositive() {
		return nil, nil
	}
	change := event.NAV.Sub(base).Div(base).Mul(decimal.NewFromInt(100))
	for _, p := range s.Pieces {
		if change.LessThanOrEqual(p.MaxChange) {
			return &Signal{
				Action: ActionBuy,
				Amount: s.Amount.Mul(p.Multiple),
				Reason: fmt.Sprintf("scheduled x%s at %s%% vs window %s", p.Multiple, change.StringFixed(2), s.Method),
			}, nil
		}
	}
	return nil, nil
}

// Name returns the strategy identifier.
func (s *ScheduledWindow) Name() string { return PolicyWindow }

// Indicator selects the pair of lines a Crossover watches.
type Indicator string

// Indicator constants.
const (
	IndicatorSMA  Indicator = "sma"  // fast moving average against slow moving average
	IndicatorMACD Indicator = "macd" // MACD line against its signal line
)

// Crossover trades on the crossings of a fast line over a slow one. With no
// holding it buys CashFraction of the cash when the fast line crosses above;
// with a holding it sells everything when the fast line crosses below.
type Crossover struct {
	Indicator    Indicator
	Fast         int
	Slow         int
	Signal       int // MACD signal line period
	CashFraction decimal.Decimal

	navs     []float64
	seen     int
	emaFast  float64
	emaSlow  float64
	emaMACD  float64
	prev     float64
	havePrev bool
}

func (c *Crossover) validate() error {
	if c.Fast < 1 || c.Slow <= c.Fast {
		return fmt.Errorf("crossover needs 0 < fast < slow, got %d and %d", c.Fast, c.Slow)
	}
	if c.Indicator == IndicatorMACD && c.Signal < 1 {
		return fmt.Errorf("crossover needs a positive signal period, got %d", c.Signal)
	}
	if !c.CashFraction.IsPositive() || c.CashFraction.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("crossover cash fraction must be in (0, 1], got %s", c.CashFraction)
	}
	return nil
}

// spread returns fast minus slow once enough days have been seen.
func (c *Crossover) spread(nav float64) (float64, bool) {
	c.seen++
	if c.Indicator == IndicatorMACD {
		return c.macd(nav)
	}
	c.navs = append(c.navs, nav)
	if len(c.navs) > c.Slow {
		c.navs = c.navs[1:]
	}
	if len(c.navs) < c.Slow {
		return 0, false
	}
	return stat.Mean(c.navs[c.Slow-c.Fast:], nil) - stat.Mean(c.navs, nil), true
}

// macd updates the exponential averages; the signal line is the average of MACD.
func (c *Crossover) macd(nav float64) (float64, bool) {
	if c.seen == 1 {
		c.emaFast, c.emaSlow, c.emaMACD = nav, nav, 0
		return 0, false
	}
	c.emaFast += emaWeight(c.Fast) * (nav - c.emaFast)
	c.emaSlow += emaWeight(c.Slow) * (nav - c.emaSlow)
	line := c.emaFast - c.emaSlow
	c.emaMACD += emaWeight(c.Signal) * (line - c.emaMACD)
	return line - c.emaMACD, c.seen >= c.Slow+c.Signal-1
}

func emaWeight(period int) float64 {
	return 2 / float64(period+1)
}

// OnEvent buys on an upward crossing and sells on a downward one. A day on
// which the lines touch is not a crossing; the next day that separates them is.
func (c *Crossover) OnEvent(_ context.Context, event *Event, acct Account) (*Signal, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	diff, ok := c.spread(event.NAV.InexactFloat64())
	if !ok {
		return nil, nil
	}
	prev, crossed := c.prev, c.havePrev
	c.prev, c.havePrev = diff, true
	if !crossed || diff == 0 || prev*diff > 0 {
		return nil, nil
	}

	switch {
	case diff > 0 && !acct.Units.IsPositive():
		return &Signal{
			Action: ActionBuy,
			Amount: acct.Cash.Mul(c.CashFraction).Round(2),
			Reason: string(c.Indicator) + " cross up",
		}, nil
	case diff < 0 && acct.Units.IsPositive():
		return &Signal{
			Action: ActionSell,
			Amount: acct.Value(event.NAV),
			Reason: string(c.Indicator) + " cross down",
		}, nil
	}
	return nil, nil
}

// Name returns the strategy identifier.
func (c *Crossover) Name() string { return PolicyCrossover }
