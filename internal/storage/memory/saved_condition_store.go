package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/storage"
)

// SavedConditionStore is an in-memory implementation of storage.SavedConditionStore.
type SavedConditionStore struct {
	mu   sync.RWMutex
	data map[string]*domain.SavedCondition // keyed by name
}

// NewSavedConditionStore creates a new in-memory saved condition store.
func NewSavedConditionStore() *SavedConditionStore {
	return &SavedConditionStore{
		data: make(map[string]*domain.SavedCondition),
	}
}

// Insert adds a new condition. Returns ErrDuplicateKey if the name exists.
func (s *SavedConditionStore) Insert(_ context.Context, c *domain.SavedCondition) error {
	if c == nil || c.Name == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[c.Name]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[c.Name] = copyCondition(c)
	return nil
}

// GetByName retrieves a condition by name. Returns ErrNotFound if not exists.
func (s *SavedConditionStore) GetByName(_ context.Context, name string) (*domain.SavedCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, exists := s.data[name]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyCondition(c), nil
}

// GetAll retrieves all conditions ordered by name.
func (s *SavedConditionStore) GetAll(_ context.Context) ([]*domain.SavedCondition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.SavedCondition, 0, len(s.data))
	for _, c := range s.data {
		result = append(result, copyCondition(c))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// copyCondition copies c including its definition map, so callers cannot mutate stored state.
func copyCondition(c *domain.SavedCondition) *domain.SavedCondition {
	cp := *c
	if c.Definition != nil {
		cp.Definition = maps.Clone(c.Definition)
	}
	return &cp
}

var _ storage.SavedConditionStore = (*SavedConditionStore)(nil)
