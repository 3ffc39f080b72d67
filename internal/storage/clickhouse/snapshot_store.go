package clickhouse

import (
	"context"
	"fmt"
	"time"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/observability"
	"fund-strategy-lab/internal/storage"
)

// SnapshotStore implements storage.SnapshotStore using ClickHouse.
type SnapshotStore struct {
	conn *Conn
}

// NewSnapshotStore creates a new SnapshotStore.
func NewSnapshotStore(conn *Conn) *SnapshotStore {
	return &SnapshotStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SnapshotStore = (*SnapshotStore)(nil)

// InsertBulk adds multiple snapshots. Fails entire batch on any duplicate.
// ReplacingMergeTree would silently replace rows, so duplicates are checked before the batch is sent.
func (s *SnapshotStore) InsertBulk(ctx context.Context, snapshots []*domain.DailySnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}
	defer observeQuery("insert_snapshots", time.Now(), &err)

	seen := make(map[string]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Strategy == "" || snap.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := snap.Strategy + "|" + snap.Date.Format(time.DateOnly)
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
	}

	for _, snap := range snapshots {
		exists, err := s.exists(ctx, snap.Strategy, snap.Date)
		if err != nil {
			return fmt.Errorf("check exists: %w", err)
		}
		if exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_snapshots (
			strategy, date, position, total_amount, principal, profit, buy_count
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, snap := range snapshots {
		err = batch.Append(
			snap.Strategy, snap.Date, snap.Position,
			snap.TotalAmount, snap.Principal, snap.Profit,
			int64(snap.BuyCount),
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByStrategyRange retrieves snapshots with date in [start, end], ordered by date ASC.
func (s *SnapshotStore) GetByStrategyRange(ctx context.Context, strategy string, start, end time.Time) (_ []*domain.DailySnapshot, err error) {
	if start.After(end) {
		return nil, storage.ErrInvalidRange
	}
	defer observeQuery("range_snapshots", time.Now(), &err)

	query := `
		SELECT strategy, date, position, total_amount, principal, profit, buy_count
		FROM daily_snapshots FINAL
		WHERE strategy = ? AND date >= toDate(?) AND date <= toDate(?)
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, strategy, start.Format(time.DateOnly), end.Format(time.DateOnly))
	if err != nil {
		return nil, fmt.Errorf("query snapshots by range: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailySnapshot
	for rows.Next() {
		var (
			snap     domain.DailySnapshot
			buyCount int64
		)
		err := rows.Scan(
			&snap.Strategy, &snap.Date, &snap.Position,
			&snap.TotalAmount, &snap.Principal, &snap.Profit,
			&buyCount,
		)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}
		snap.BuyCount = int(buyCount)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}
	return result, nil
}

// exists checks if a snapshot for (strategy, date) is already stored.
func (s *SnapshotStore) exists(ctx context.Context, strategy string, date time.Time) (bool, error) {
	query := `
		SELECT count() FROM daily_snapshots FINAL
		WHERE strategy = ? AND date = toDate(?)
	`

	var count uint64
	if err := s.conn.QueryRow(ctx, query, strategy, date.Format(time.DateOnly)).Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// observeQuery records duration and outcome of one query.
func observeQuery(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("clickhouse", operation, time.Since(start).Seconds(), *err)
}
