// Package main backtests one investment policy over a synthetic NAV series and
// optionally stores the daily snapshots as a saved condition for comparison.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"fund-strategy-lab/internal/backtest"
	"fund-strategy-lab/internal/config"
	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/logging"
	"fund-strategy-lab/internal/storage"
	"fund-strategy-lab/internal/stores"
)

var (
	name   string
	policy string
	params struct {
		capital      string
		commission   string
		amount       string
		period       string
		pieces       []string
		window       int
		windowDist   int
		windowMethod string
		windowPieces []string
		buyPercent   []float64
		sellPercent  []float64
		indicator    string
		fast         int
		slow         int
		signal       int
		cashFraction string
	}
	nav struct {
		start string
		drift float64
		vol   float64
		seed  uint64
		years int
	}

	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	persist       bool
	outputJSON    bool
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest an investment policy on a synthetic fund",
	Long: `Backtest an investment policy on a synthetic fund.

With --policy the parameters come from flags. Without it the parameters of
the saved condition --name are loaded from storage.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	f := rootCmd.Flags()
	f.StringVar(&name, "name", "", "Saved condition name (required)")
	f.StringVar(&policy, "policy", "", "Policy: buyandhold, scheduled, scheduled_tune, scheduled_window, grid, crossover")
	f.StringVar(&params.capital, "capital", backtest.DefaultCapital.String(), "Starting cash")
	f.StringVar(&params.commission, "commission", "0", "Commission rate charged on every trade")
	f.StringVar(&params.amount, "amount", "1000", "Amount per scheduled buy")
	f.StringVar(&params.period, "period", string(backtest.Weekly), "Scheduled period: weekly, monthly")
	f.StringSliceVar(&params.pieces, "piece", []string{"0.9:2", "1.2:1", "1.5:0.5"}, "Tuned buy multiple as MAX_NAV:MULTIPLE (repeatable)")
	f.IntVar(&params.window, "window", 7, "Window width in trading days")
	f.IntVar(&params.windowDist, "window-dist", 1, "Trading days between the window end and today")
	f.StringVar(&params.windowMethod, "window-method", string(backtest.WindowAvg), "Window base: max, min, avg")
	f.StringSliceVar(&params.windowPieces, "window-piece", []string{"-3:2", "0:1", "3:0.5"}, "Window buy multiple as MAX_CHANGE_PERCENT:MULTIPLE (repeatable)")
	f.Float64SliceVar(&params.buyPercent, "buy-percent", []float64{0, 5, 5, 5}, "Grid buy drops in percent")
	f.Float64SliceVar(&params.sellPercent, "sell-percent", []float64{8, 8, 8, 8}, "Grid sell rises in percent")
	f.StringVar(&params.indicator, "indicator", string(backtest.IndicatorSMA), "Crossover lines: sma, macd")
	f.IntVar(&params.fast, "fast", 0, "Crossover fast period (0 for the indicator default)")
	f.IntVar(&params.slow, "slow", 0, "Crossover slow period (0 for the indicator default)")
	f.IntVar(&params.signal, "signal", 0, "MACD signal period (0 for the default)")
	f.StringVar(&params.cashFraction, "cash-fraction", backtest.DefaultCashFraction.String(), "Share of cash spent on a crossover entry")

	f.StringVar(&nav.start, "nav-start", "1", "NAV on the first day")
	f.Float64Var(&nav.drift, "drift", 0.06, "Expected annual log return")
	f.Float64Var(&nav.vol, "vol", 0.22, "Annual volatility")
	f.Uint64Var(&nav.seed, "seed", 20240101, "Random seed of the NAV series")
	f.IntVar(&nav.years, "years", 4, "Years of history ending today")

	f.StringVar(&postgresDSN, "postgres-dsn", config.EnvOr("POSTGRES_DSN", ""), "PostgreSQL connection string")
	f.StringVar(&clickhouseDSN, "clickhouse-dsn", config.EnvOr("CLICKHOUSE_DSN", ""), "ClickHouse connection string")
	f.BoolVar(&useMemory, "use-memory", false, "Use in-memory storage")
	f.BoolVar(&persist, "persist", false, "Store the condition and its snapshots")
	f.BoolVar(&outputJSON, "json", false, "Output as JSON")
	f.StringVar(&logLevel, "log-level", config.EnvOr("LOG_LEVEL", "info"), "Log level")

	_ = rootCmd.MarkFlagRequired("name")
}

// summary is the printed result of one backtest.
type summary struct {
	Name      string          `json:"name"`
	Policy    string          `json:"policy"`
	Days      int             `json:"days"`
	Trades    int             `json:"trades"`
	Buys      int             `json:"buys"`
	Principal decimal.Decimal `json:"principal"`
	Total     decimal.Decimal `json:"total_amount"`
	Profit    decimal.Decimal `json:"profit"`
	Fees      decimal.Decimal `json:"fees"`
	Position  float64         `json:"position"`
	Persisted bool            `json:"persisted"`
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logging.New(logLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	needStore := persist || policy == ""
	var st *stores.Stores
	if needStore {
		st, err = stores.Open(ctx, stores.Options{
			UseMemory:     useMemory,
			PostgresDSN:   postgresDSN,
			ClickhouseDSN: clickhouseDSN,
		}, logger)
		if err != nil {
			return err
		}
		defer st.Close()
	}

	var p backtest.Params
	if policy != "" {
		p, err = paramsFromFlags()
	} else {
		p, err = paramsFromCondition(ctx, st.Conditions)
	}
	if err != nil {
		return err
	}

	start, err := decimal.NewFromString(nav.start)
	if err != nil {
		return fmt.Errorf("invalid --nav-start: %w", err)
	}
	now := time.Now()
	model := backtest.NAVModel{Start: start, Drift: nav.drift, Vol: nav.vol, Seed: nav.seed}
	series := model.Series(now.AddDate(-nav.years, 0, 0), now)

	var snapshots storage.SnapshotStore
	if persist {
		snapshots = st.Snapshots
		if policy != "" {
			if err := insertCondition(ctx, st.Conditions, p, now); err != nil {
				return err
			}
		}
	}

	results, err := backtest.NewRunner(snapshots, logger).Run(ctx, name, series, p.Capital, p.Strategy(), p.EngineOptions()...)
	if err != nil {
		return err
	}
	return printSummary(summarize(p, results))
}

func paramsFromFlags() (backtest.Params, error) {
	capital, err := decimal.NewFromString(params.capital)
	if err != nil {
		return backtest.Params{}, fmt.Errorf("invalid --capital: %w", err)
	}
	amount, err := decimal.NewFromString(params.amount)
	if err != nil {
		return backtest.Params{}, fmt.Errorf("invalid --amount: %w", err)
	}
	commission, err := decimal.NewFromString(params.commission)
	if err != nil {
		return backtest.Params{}, fmt.Errorf("invalid --commission: %w", err)
	}
	p := backtest.Params{
		Policy:     policy,
		Capital:    capital,
		Commission: commission,
	}
	switch policy {
	case backtest.PolicyScheduled, backtest.PolicyScheduledTune, backtest.PolicyWindow:
		p.Amount = amount
		p.Period = backtest.Period(params.period)
		switch policy {
		case backtest.PolicyScheduledTune:
			if p.Pieces, err = parsePieces(params.pieces); err != nil {
				return backtest.Params{}, err
			}
		case backtest.PolicyWindow:
			p.Window = params.window
			p.WindowDist = params.windowDist
			p.WindowMethod = backtest.WindowMethod(params.windowMethod)
			if p.WindowPieces, err = parseWindowPieces(params.windowPieces); err != nil {
				return backtest.Params{}, err
			}
		}
	case backtest.PolicyCrossover:
		p.Indicator = backtest.Indicator(params.indicator)
		p.FastPeriod = params.fast
		p.SlowPeriod = params.slow
		p.SignalPeriod = params.signal
		if p.CashFraction, err = decimal.NewFromString(params.cashFraction); err != nil {
			return backtest.Params{}, fmt.Errorf("invalid --cash-fraction: %w", err)
		}
	case backtest.PolicyGrid:
		p.BuyPercent = params.buyPercent
		p.SellPercent = params.sellPercent
	}
	return p, p.Validate()
}

// parsePieces reads MAX_NAV:MULTIPLE pairs.
func parsePieces(raw []string) ([]backtest.PieceParams, error) {
	pieces := make([]backtest.PieceParams, 0, len(raw))
	for _, r := range raw {
		maxNAV, multiple, ok := strings.Cut(r, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --piece %q: want MAX_NAV:MULTIPLE", r)
		}
		m, err := decimal.NewFromString(maxNAV)
		if err != nil {
			return nil, fmt.Errorf("invalid --piece %q: %w", r, err)
		}
		x, err := decimal.NewFromString(multiple)
		if err != nil {
			return nil, fmt.Errorf("invalid --piece %q: %w", r, err)
		}
		pieces = append(pieces, backtest.PieceParams{MaxNAV: m, Multiple: x})
	}
	return pieces, nil
}

// parseWindowPieces reads MAX_CHANGE:MULTIPLE pairs.
func parseWindowPieces(raw []string) ([]backtest.WindowPieceParams, error) {
	pieces := make([]backtest.WindowPieceParams, 0, len(raw))
	for _, r := range raw {
		maxChange, multiple, ok := strings.Cut(r, ":")
		if !ok {
			return nil, fmt.Errorf("invalid --window-piece %q: want MAX_CHANGE:MULTIPLE", r)
		}
		c, err := decimal.NewFromString(maxChange)
		if err != nil {
			return nil, fmt.Errorf("invalid --window-piece %q: %w", r, err)
		}
		x, err := decimal.NewFromString(multiple)
		if err != nil {
			return nil, fmt.Errorf("invalid --window-piece %q: %w", r, err)
		}
		pieces = append(pieces, backtest.WindowPieceParams{MaxChange: c, Multiple: x})
	}
	return pieces, nil
}

func paramsFromCondition(ctx context.Context, conditions storage.SavedConditionStore) (backtest.Params, error) {
	c, err := conditions.GetByName(ctx, name)
	if errors.Is(err, storage.ErrNotFound) {
		return backtest.Params{}, fmt.Errorf("saved condition %q not found; pass --policy to define it", name)
	}
	if err != nil {
		return backtest.Params{}, err
	}
	return backtest.ParseParams(c.Definition)
}

func insertCondition(ctx context.Context, conditions storage.SavedConditionStore, p backtest.Params, now time.Time) error {
	def, err := p.Definition()
	if err != nil {
		return err
	}
	err = conditions.Insert(ctx, &domain.SavedCondition{Name: name, Definition: def, CreatedAt: now})
	if errors.Is(err, storage.ErrDuplicateKey) {
		return fmt.Errorf("saved condition %q already exists", name)
	}
	return err
}

func summarize(p backtest.Params, r *backtest.Results) summary {
	s := summary{
		Name:      name,
		Policy:    p.Policy,
		Days:      r.EventCount,
		Trades:    r.SignalCount,
		Fees:      r.Fees,
		Persisted: persist,
	}
	if n := len(r.Snapshots); n > 0 {
		last := r.Snapshots[n-1]
		s.Buys = last.BuyCount
		s.Principal = last.Principal
		s.Total = last.TotalAmount
		s.Profit = last.Profit
		s.Position = last.Position
	}
	return s
}

func printSummary(s summary) error {
	if outputJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	fmt.Printf("Backtest %q (%s)\n", s.Name, s.Policy)
	fmt.Printf("  days:      %d\n", s.Days)
	fmt.Printf("  trades:    %d (%d buys)\n", s.Trades, s.Buys)
	fmt.Printf("  principal: %s\n", s.Principal.StringFixed(2))
	fmt.Printf("  total:     %s\n", s.Total.StringFixed(2))
	fmt.Printf("  profit:    %s\n", s.Profit.StringFixed(2))
	fmt.Printf("  fees:      %s\n", s.Fees.StringFixed(2))
	fmt.Printf("  position:  %.2f%%\n", s.Position*100)
	if s.Persisted {
		fmt.Println("  snapshots stored")
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
