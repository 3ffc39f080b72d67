// Package stores opens the storage backends selected by configuration.
package stores

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"fund-strategy-lab/internal/storage"
	chstore "fund-strategy-lab/internal/storage/clickhouse"
	"fund-strategy-lab/internal/storage/memory"
	pgstore "fund-strategy-lab/internal/storage/postgres"
)

// ErrMissingDSN is returned when database storage is selected without both DSNs.
var ErrMissingDSN = errors.New("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")

// Options selects the storage backends.
type Options struct {
	UseMemory     bool
	PostgresDSN   string
	ClickhouseDSN string
	Migrate       bool // apply embedded migrations before use
	Pool          pgstore.PoolOptions
}

// Stores holds all storage implementations.
type Stores struct {
	Conditions storage.SavedConditionStore
	Snapshots  storage.SnapshotStore
	Backend    string // memory | database

	cleanup func()
}

// Open creates the stores. Close must be called when done.
func Open(ctx context.Context, opts Options, logger *zap.Logger) (*Stores, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.UseMemory {
		logger.Info("using in-memory storage")
		return &Stores{
			Conditions: memory.NewSavedConditionStore(),
			Snapshots:  memory.NewSnapshotStore(),
			Backend:    "memory",
			cleanup:    func() {},
		}, nil
	}
	if opts.PostgresDSN == "" || opts.ClickhouseDSN == "" {
		return nil, ErrMissingDSN
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, opts.PostgresDSN, opts.Pool)
	if err != nil {
		return nil, err
	}
	if opts.Migrate {
		if err := pool.Migrate(ctx, logger); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	// ClickHouse
	var conn *chstore.Conn
	if opts.Migrate {
		conn, err = chstore.Migrate(ctx, opts.ClickhouseDSN, logger)
	} else {
		conn, err = chstore.NewConn(ctx, opts.ClickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	logger.Info("using database storage")
	return &Stores{
		Conditions: pgstore.NewSavedConditionStore(pool),
		Snapshots:  chstore.NewSnapshotStore(conn),
		Backend:    "database",
		cleanup: func() {
			if err := conn.Close(); err != nil {
				logger.Warn("close clickhouse", zap.Error(err))
			}
			pool.Close()
		},
	}, nil
}

// Close releases database connections.
func (s *Stores) Close() {
	s.cleanup()
}
