package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/storage"
)

func TestSavedConditionStore_InsertAndGetByName(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewSavedConditionStore(pool)

	created := time.Date(2023, 5, 1, 8, 0, 0, 0, time.UTC)
	cond := &domain.SavedCondition{
		Name:       "value-average",
		Definition: map[string]any{"fundId": "000300", "amount": 500.0},
		CreatedAt:  created,
	}
	require.NoError(t, store.Insert(ctx, cond))

	got, err := store.GetByName(ctx, "value-average")
	require.NoError(t, err)
	assert.Equal(t, "value-average", got.Name)
	assert.Equal(t, "000300", got.Definition["fundId"])
	assert.InDelta(t, 500.0, got.Definition["amount"], 0.0001)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestSavedConditionStore_Duplicate(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewSavedConditionStore(pool)

	require.NoError(t, store.Insert(ctx, &domain.SavedCondition{Name: "dup"}))
	err := store.Insert(ctx, &domain.SavedCondition{Name: "dup"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSavedConditionStore_NotFound(t *testing.T) {
	pool := newTestPool(t)

	_, err := NewSavedConditionStore(pool).GetByName(context.Background(), "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSavedConditionStore_GetAllOrdered(t *testing.T) {
	pool := newTestPool(t)

	ctx := context.Background()
	store := NewSavedConditionStore(pool)

	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, store.Insert(ctx, &domain.SavedCondition{Name: name}))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"a", "b", "c"}, []string{all[0].Name, all[1].Name, all[2].Name})
}

func TestMigrate_Idempotent(t *testing.T) {
	pool := newTestPool(t)
	require.NoError(t, pool.Migrate(context.Background(), nil))
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, translateError("get", pgx.ErrNoRows), storage.ErrNotFound)
	assert.ErrorIs(t, translateError("insert", &pgconn.PgError{Code: "23505"}), storage.ErrDuplicateKey)

	other := errors.New("connection reset")
	err := translateError("insert saved condition", other)
	assert.ErrorIs(t, err, other)
	assert.EqualError(t, err, "insert saved condition: connection reset")
}
