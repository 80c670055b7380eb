package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/opentrusty/storegate/internal/tenant"
)

// StoreRepository implements tenant.StoreRepository
type StoreRepository struct {
	db *DB
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// GetBySlug retrieves a store by its public slug (case-insensitive)
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Store, error) {
	return r.getOne(ctx, `
		SELECT id, tenant_id, slug, is_demo
		FROM stores
		WHERE lower(slug) = lower($1)
	`, slug)
}

// GetByID retrieves a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*tenant.Store, error) {
	return r.getOne(ctx, `
		SELECT id, tenant_id, slug, is_demo
		FROM stores
		WHERE id = $1
	`, id)
}

func (r *StoreRepository) getOne(ctx context.Context, query string, arg string) (*tenant.Store, error) {
	var s tenant.Store
	err := r.db.pool.QueryRow(ctx, query, arg).Scan(&s.ID, &s.TenantID, &s.Slug, &s.IsDemo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tenant.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &s, nil
}

// SetDemo toggles the demo flag
func (r *StoreRepository) SetDemo(ctx context.Context, storeID string, isDemo bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE stores SET is_demo = $2, updated_at = now()
		WHERE id = $1
	`, storeID, isDemo)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrStoreNotFound
	}
	return nil
}
