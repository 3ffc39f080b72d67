package storage

import (
	"context"
	"time"

	"fund-strategy-lab/internal/domain"
)

// SavedConditionStore provides access to saved_conditions storage.
type SavedConditionStore interface {
	// Insert adds a new condition. Returns ErrDuplicateKey if the name exists.
	Insert(ctx context.Context, c *domain.SavedCondition) error

	// GetByName retrieves a condition by its name. Returns ErrNotFound if not exists.
	GetByName(ctx context.Context, name string) (*domain.SavedCondition, error)

	// GetAll retrieves all conditions, ordered by name ASC.
	GetAll(ctx context.Context) ([]*domain.SavedCondition, error)
}

// SnapshotStore provides access to daily_snapshots storage.
type SnapshotStore interface {
	// InsertBulk adds multiple snapshots atomically. Fails entire batch on duplicate (strategy, date).
	InsertBulk(ctx context.Context, snapshots []*domain.DailySnapshot) error

	// GetByStrategyRange retrieves snapshots of a strategy with date in [start, end] (inclusive),
	// ordered by date ASC.
	GetByStrategyRange(ctx context.Context, strategy string, start, end time.Time) ([]*domain.DailySnapshot, error)
}
