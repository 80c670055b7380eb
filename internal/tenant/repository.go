package tenant

import (
	"context"
	"errors"
)

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrStoreNotFound  = errors.New("store not found")

	// ErrResourceNotFound is returned by the resolver when the addressed
	// store, or the tenant that owns it, does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// Repository defines read access to tenant billing records
type Repository interface {
	GetByID(ctx context.Context, id string) (*Tenant, error)
}

// StoreRepository defines the interface for store storage
type StoreRepository interface {
	GetBySlug(ctx context.Context, slug string) (*Store, error)
	GetByID(ctx context.Context, id string) (*Store, error)

	// SetDemo toggles the demo bypass flag. Reserved for platform
	// administration.
	SetDemo(ctx context.Context, storeID string, isDemo bool) error
}
