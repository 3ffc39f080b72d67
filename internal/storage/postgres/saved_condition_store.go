package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fund-strategy-lab/internal/domain"
	"fund-strategy-lab/internal/observability"
	"fund-strategy-lab/internal/storage"
)

// SavedConditionStore implements storage.SavedConditionStore using PostgreSQL.
type SavedConditionStore struct {
	pool *Pool
}

// NewSavedConditionStore creates a new SavedConditionStore.
func NewSavedConditionStore(pool *Pool) *SavedConditionStore {
	return &SavedConditionStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SavedConditionStore = (*SavedConditionStore)(nil)

// Insert adds a new condition. Returns ErrDuplicateKey if the name exists.
func (s *SavedConditionStore) Insert(ctx context.Context, c *domain.SavedCondition) (err error) {
	if c == nil || c.Name == "" {
		return storage.ErrInvalidInput
	}
	defer observeQuery("insert_saved_condition", time.Now(), &err)

	createdAt := c.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	definition := c.Definition
	if definition == nil {
		definition = map[string]any{}
	}

	query := `
		INSERT INTO saved_conditions (name, definition, created_at)
		VALUES ($1, $2, $3)
	`

	if _, err = s.pool.Exec(ctx, query, c.Name, definition, createdAt); err != nil {
		return translateError("insert saved condition", err)
	}
	return nil
}

// GetByName retrieves a condition by its name. Returns ErrNotFound if not exists.
func (s *SavedConditionStore) GetByName(ctx context.Context, name string) (_ *domain.SavedCondition, err error) {
	defer observeQuery("get_saved_condition", time.Now(), &err)

	query := `
		SELECT name, definition, created_at
		FROM saved_conditions
		WHERE name = $1
	`

	c, err := scanSavedCondition(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		return nil, translateError("get saved condition by name", err)
	}
	return c, nil
}

// GetAll retrieves all conditions ordered by name.
func (s *SavedConditionStore) GetAll(ctx context.Context) (_ []*domain.SavedCondition, err error) {
	defer observeQuery("list_saved_conditions", time.Now(), &err)

	query := `
		SELECT name, definition, created_at
		FROM saved_conditions
		ORDER BY name ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list saved conditions: %w", err)
	}
	defer rows.Close()

	var result []*domain.SavedCondition
	for rows.Next() {
		c, err := scanSavedCondition(rows)
		if err != nil {
			return nil, fmt.Errorf("scan saved condition: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate saved conditions: %w", err)
	}
	return result, nil
}

func scanSavedCondition(row pgx.Row) (*domain.SavedCondition, error) {
	var c domain.SavedCondition
	if err := row.Scan(&c.Name, &c.Definition, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// observeQuery records duration and outcome of one query.
func observeQuery(operation string, start time.Time, err *error) {
	observability.RecordDBQuery("postgres", operation, time.Since(start).Seconds(), *err)
}
