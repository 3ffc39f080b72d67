// Package postgres stores saved conditions in PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"fund-strategy-lab/internal/storage"
	"fund-strategy-lab/internal/storage/migrations"
)

// applicationName identifies the service in pg_stat_activity.
const applicationName = "fund-strategy-lab"

// Pool is a pgx connection pool.
type Pool struct {
	*pgxpool.Pool
}

// PoolOptions tunes the connection pool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns        int32
	MaxConnLifetime time.Duration
}

// NewPool connects to dsn and pings the server before returning.
func NewPool(ctx context.Context, dsn string, opts PoolOptions) (*Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if opts.MaxConns > 0 {
		config.MaxConns = opts.MaxConns
	}
	if opts.MaxConnLifetime > 0 {
		config.MaxConnLifetime = opts.MaxConnLifetime
	}
	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = applicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Migrate applies the embedded PostgreSQL schema.
func (p *Pool) Migrate(ctx context.Context, logger *zap.Logger) error {
	ms, err := migrations.Load(migrations.Postgres)
	if err != nil {
		return err
	}
	return migrations.Apply(ctx, "postgres", ms, func(ctx context.Context, stmt string) error {
		_, err := p.Exec(ctx, stmt)
		return err
	}, logger)
}

// unique_violation
const pgErrUniqueViolation = "23505"

// translateError maps driver errors onto the storage sentinels. Other errors are
// wrapped with op.
func translateError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return storage.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
		return storage.ErrDuplicateKey
	}
	return fmt.Errorf("%s: %w", op, err)
}
