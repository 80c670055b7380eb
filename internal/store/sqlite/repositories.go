package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/opentrusty/storegate/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetByID retrieves a tenant's billing record
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant
	var status sql.NullString
	var trialEndsAt, pastDueSince sql.NullInt64

	err := r.db.db.QueryRowContext(ctx,
		`SELECT id, billing_status, trial_ends_at, past_due_since FROM tenants WHERE id = ?`, id,
	).Scan(&t.ID, &status, &trialEndsAt, &pastDueSince)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	t.BillingStatus = status.String
	t.TrialEndsAt = unixTime(trialEndsAt)
	t.PastDueSince = unixTime(pastDueSince)
	return &t, nil
}

func unixTime(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}

// StoreRepository implements tenant.StoreRepository
type StoreRepository struct {
	db *DB
}

// NewStoreRepository creates a new store repository
func NewStoreRepository(db *DB) *StoreRepository {
	return &StoreRepository{db: db}
}

// GetBySlug retrieves a store by slug. The column collates NOCASE.
func (r *StoreRepository) GetBySlug(ctx context.Context, slug string) (*tenant.Store, error) {
	return r.getOne(ctx, `SELECT id, tenant_id, slug, is_demo FROM stores WHERE slug = ?`, slug)
}

// GetByID retrieves a store by ID
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*tenant.Store, error) {
	return r.getOne(ctx, `SELECT id, tenant_id, slug, is_demo FROM stores WHERE id = ?`, id)
}

func (r *StoreRepository) getOne(ctx context.Context, query, arg string) (*tenant.Store, error) {
	var s tenant.Store
	err := r.db.db.QueryRowContext(ctx, query, arg).Scan(&s.ID, &s.TenantID, &s.Slug, &s.IsDemo)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, tenant.ErrStoreNotFound
		}
		return nil, fmt.Errorf("failed to get store: %w", err)
	}
	return &s, nil
}

// SetDemo toggles the demo flag
func (r *StoreRepository) SetDemo(ctx context.Context, storeID string, isDemo bool) error {
	result, err := r.db.db.ExecContext(ctx,
		`UPDATE stores SET is_demo = ?, updated_at = strftime('%s', 'now') WHERE id = ?`, isDemo, storeID)
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update store: %w", err)
	}
	if n == 0 {
		return tenant.ErrStoreNotFound
	}
	return nil
}

// MembershipRepository implements authz.MembershipRepository
type MembershipRepository struct {
	db *DB
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(db *DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// HasAccess reports whether userID holds an active grant on exactly storeID.
func (r *MembershipRepository) HasAccess(ctx context.Context, storeID, userID string) (bool, error) {
	var ok bool
	err := r.db.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM store_members WHERE store_id = ? AND user_id = ? AND has_access = 1)`,
		storeID, userID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}
