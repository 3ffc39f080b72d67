// Package main writes a compare report (compare.md, compare.csv) for a set of
// saved conditions without starting the web service.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/backtest"
	"fund-strategy-lab/internal/compare"
	"fund-strategy-lab/internal/config"
	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/form"
	"fund-strategy-lab/internal/logging"
	"fund-strategy-lab/internal/reporting"
	"fund-strategy-lab/internal/stores"
)

var (
	configPath    string
	outputDir     string
	postgresDSN   string
	clickhouseDSN string
	useFixtures   bool
	strategies    []string
	metrics       []string
	start, end    string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a strategy compare report",
	Long: `Generate compare.md and compare.csv for the selected saved conditions.

Without --strategy every offered condition is compared. Without --start/--end
the default range of the compare page (recent four years) is used.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.EnvOr("CONFIG_FILE", ""), "YAML config file")
	f.StringVar(&outputDir, "output-dir", "docs", "Output directory for generated files")
	f.StringVar(&postgresDSN, "postgres-dsn", config.EnvOr("POSTGRES_DSN", ""), "PostgreSQL connection string")
	f.StringVar(&clickhouseDSN, "clickhouse-dsn", config.EnvOr("CLICKHOUSE_DSN", ""), "ClickHouse connection string")
	f.BoolVar(&useFixtures, "use-fixtures", false, "Use in-memory demo data instead of the databases")
	f.StringSliceVar(&strategies, "strategy", nil, "Saved condition to compare (repeatable)")
	f.StringSliceVar(&metrics, "metric", nil, "Metric key to include (repeatable)")
	f.StringVar(&start, "start", "", "First day, YYYY-MM-DD")
	f.StringVar(&end, "end", "", "Last day, YYYY-MM-DD")
	f.StringVar(&logLevel, "log-level", config.EnvOr("LOG_LEVEL", "warn"), "Log level")
}

func run(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logLevel, false)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if !useFixtures && (postgresDSN == "" || clickhouseDSN == "") {
		postgresDSN, clickhouseDSN = cfg.PostgresDSN, cfg.ClickhouseDSN
	}
	st, err := stores.Open(ctx, stores.Options{
		UseMemory:     useFixtures,
		PostgresDSN:   postgresDSN,
		ClickhouseDSN: clickhouseDSN,
	}, logger)
	if err != nil {
		if errors.Is(err, stores.ErrMissingDSN) {
			return fmt.Errorf("%w; use --use-fixtures to run with demo data instead", err)
		}
		return err
	}
	defer st.Close()

	now := time.Now()
	if useFixtures {
		if err := backtest.LoadFixtures(ctx, st.Conditions, st.Snapshots, now, logger); err != nil {
			return err
		}
	}

	q, err := buildQuery(ctx, st, cfg, now)
	if err != nil {
		return err
	}

	gen := reporting.NewGenerator(compare.NewService(st.Snapshots, logger), cfg.Labels)
	report, err := gen.Generate(ctx, q)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	files := map[string]string{
		"compare.md":  reporting.RenderMarkdown(report),
		"compare.csv": reporting.RenderCSV(report.Records),
	}
	for name, content := range files {
		path := filepath.Join(outputDir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		logger.Info("wrote report file", zap.String("path", path))
	}

	fmt.Printf("Compared %d strategies from %s to %s, output in %s\n",
		len(report.Records), q.Start().Format(time.DateOnly), q.End().Format(time.DateOnly), outputDir)
	for _, name := range report.MissingData {
		fmt.Printf("  no snapshots for %q in range\n", name)
	}
	return nil
}

// buildQuery validates the flags through the compare form, filling unset fields
// with the form defaults.
func buildQuery(ctx context.Context, st *stores.Stores, cfg config.Config, now time.Time) (domain.CompareQuery, error) {
	conditions, err := st.Conditions.GetAll(ctx)
	if err != nil {
		return domain.CompareQuery{}, fmt.Errorf("load saved conditions: %w", err)
	}
	formCfg, err := cfg.FormConfig()
	if err != nil {
		return domain.CompareQuery{}, err
	}
	f := form.New(conditions, now, formCfg)
	defaults := f.Defaults()

	v := form.Values{StrategyChecked: strategies, ChartChecked: metrics}
	if len(v.StrategyChecked) == 0 {
		for _, o := range f.StrategyOptions() {
			v.StrategyChecked = append(v.StrategyChecked, o.Value)
		}
	}
	if len(v.ChartChecked) == 0 {
		v.ChartChecked = defaults.ChartChecked
	}
	r := defaults.DateRange.Strings()
	if start != "" {
		r[0] = start
	}
	if end != "" {
		r[1] = end
	}
	v.DateRange = r[:]

	var q domain.CompareQuery
	err = f.Submit(v, func(cq domain.CompareQuery) error {
		q = cq
		return nil
	})
	return q, err
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
