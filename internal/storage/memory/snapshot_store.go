package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/storage"
)

// SnapshotStore is an in-memory implementation of storage.SnapshotStore.
type SnapshotStore struct {
	mu    sync.RWMutex
	data  map[string][]*domain.DailySnapshot // keyed by strategy, sorted by date
	index map[snapshotKey]struct{}
}

// NewSnapshotStore creates a new in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{
		data:  make(map[string][]*domain.DailySnapshot),
		index: make(map[snapshotKey]struct{}),
	}
}

// snapshotKey identifies a snapshot inside one batch.
type snapshotKey struct {
	strategy string
	day      string
}

func keyOf(s *domain.DailySnapshot) snapshotKey {
	return snapshotKey{strategy: s.Strategy, day: s.Date.Format(time.DateOnly)}
}

// InsertBulk adds multiple snapshots atomically. Fails entire batch on any duplicate.
func (s *SnapshotStore) InsertBulk(_ context.Context, snapshots []*domain.DailySnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: validate and check duplicates (existing + intra-batch)
	batchKeys := make(map[snapshotKey]struct{}, len(snapshots))
	for _, snap := range snapshots {
		if snap == nil || snap.Strategy == "" || snap.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := keyOf(snap)
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}

		if _, exists := s.index[key]; exists {
			return storage.ErrDuplicateKey
		}
	}

	// Second pass: insert all
	touched := make(map[string]struct{})
	for _, snap := range snapshots {
		cp := *snap
		s.data[snap.Strategy] = append(s.data[snap.Strategy], &cp)
		s.index[keyOf(snap)] = struct{}{}
		touched[snap.Strategy] = struct{}{}
	}
	for strategy := range touched {
		list := s.data[strategy]
		sort.Slice(list, func(i, j int) bool {
			return list[i].Date.Before(list[j].Date)
		})
	}

	return nil
}

// GetByStrategyRange retrieves snapshots with date in [start, end], ordered by date ASC.
func (s *SnapshotStore) GetByStrategyRange(_ context.Context, strategy string, start, end time.Time) ([]*domain.DailySnapshot, error) {
	if start.After(end) {
		return nil, storage.ErrInvalidRange
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.DailySnapshot
	for _, snap := range s.data[strategy] {
		if snap.Date.Before(start) || snap.Date.After(end) {
			continue
		}
		cp := *snap
		result = append(result, &cp)
	}
	return result, nil
}

var _ storage.SnapshotStore = (*SnapshotStore)(nil)
