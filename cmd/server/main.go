// Package main runs the compare web service: the HTML compare page, the JSON
// and websocket compare API, health/status and Prometheus metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/api"
	"fund-strategy-lab/internal/backtest"
	"fund-strategy-lab/internal/compare"
	"fund-strategy-lab/internal/config"
	"fund-strategy-lab/internal/logging"
	"fund-strategy-lab/internal/stores"
)

const shutdownTimeout = 30 * time.Second

var (
	configPath    string
	addr          string
	postgresDSN   string
	clickhouseDSN string
	useMemory     bool
	seed          bool
	migrate       bool
	logLevel      string
	development   bool

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve the strategy compare page and API",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		applyFlags()

		logger, err = logging.New(cfg.LogLevel, cfg.Development)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: run,
}

func init() {
	if err := config.LoadEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}

	f := rootCmd.Flags()
	f.StringVar(&configPath, "config", config.EnvOr("CONFIG_FILE", ""), "YAML config file")
	f.StringVar(&addr, "addr", config.EnvOr("ADDR", ""), "HTTP listen address (default from config, :8080)")
	f.StringVar(&postgresDSN, "postgres-dsn", config.EnvOr("POSTGRES_DSN", ""), "PostgreSQL connection string")
	f.StringVar(&clickhouseDSN, "clickhouse-dsn", config.EnvOr("CLICKHOUSE_DSN", ""), "ClickHouse connection string")
	f.BoolVar(&useMemory, "use-memory", config.EnvBool("USE_MEMORY", false), "Use in-memory storage")
	f.BoolVar(&seed, "seed", config.EnvBool("SEED", false), "Load demo saved conditions and their backtests on start")
	f.BoolVar(&migrate, "migrate", config.EnvBool("MIGRATE", true), "Apply database migrations on start")
	f.StringVar(&logLevel, "log-level", config.EnvOr("LOG_LEVEL", ""), "Log level: debug, info, warn, error")
	f.BoolVar(&development, "development", config.EnvBool("DEVELOPMENT", false), "Human-readable development logging")
}

// applyFlags lets explicitly set flags and non-empty environment defaults override the file.
func applyFlags() {
	if addr != "" {
		cfg.Addr = addr
	}
	if postgresDSN != "" {
		cfg.PostgresDSN = postgresDSN
	}
	if clickhouseDSN != "" {
		cfg.ClickhouseDSN = clickhouseDSN
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	cfg.UseMemory = cfg.UseMemory || useMemory
	cfg.Seed = cfg.Seed || seed
	cfg.Development = cfg.Development || development
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := stores.Open(ctx, stores.Options{
		UseMemory:     cfg.UseMemory,
		PostgresDSN:   cfg.PostgresDSN,
		ClickhouseDSN: cfg.ClickhouseDSN,
		Migrate:       migrate,
	}, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Seed {
		if err := backtest.LoadFixtures(ctx, st.Conditions, st.Snapshots, time.Now(), logger); err != nil {
			return fmt.Errorf("seed demo data: %w", err)
		}
		logger.Info("demo data loaded", zap.Int("conditions", len(backtest.Fixtures())))
	}

	formCfg, err := cfg.FormConfig()
	if err != nil {
		return err
	}

	server := api.New(api.Options{
		Conditions:  st.Conditions,
		Comparer:    compare.NewService(st.Snapshots, logger),
		FormConfig:  formCfg,
		ChartConfig: cfg.ChartConfig(),
		Logger:      logger,
	})
	defer server.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening",
			zap.String("addr", cfg.Addr),
			zap.String("storage", st.Backend))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	stop()
	logger.Info("shutdown signal received, draining connections")

	// A second signal while draining exits immediately.
	force := make(chan os.Signal, 1)
	signal.Notify(force, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-force
		logger.Warn("second signal received, forcing exit", zap.Stringer("signal", sig))
		os.Exit(1)
	}()

	server.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	logger.Info("shutdown complete")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
