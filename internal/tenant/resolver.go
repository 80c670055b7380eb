// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tenant

import (
	"context"
	"errors"
	"fmt"
)

// Resolved is a store together with the tenant that owns it.
// Tenant is nil for demo stores: their billing state is never loaded.
type Resolved struct {
	Store  *Store
	Tenant *Tenant
}

// Resolver loads the store addressed by a request and its owning tenant.
type Resolver struct {
	stores  StoreRepository
	tenants Repository
}

// NewResolver creates a new resolver
func NewResolver(stores StoreRepository, tenants Repository) *Resolver {
	return &Resolver{
		stores:  stores,
		tenants: tenants,
	}
}

// Resolve loads the store for slug.
// Missing stores and orphaned stores both yield ErrResourceNotFound so the
// caller cannot tell them apart; other storage errors are wrapped as-is.
func (r *Resolver) Resolve(ctx context.Context, slug string) (*Resolved, error) {
	slug = NormalizeSlug(slug)
	if slug == "" {
		return nil, ErrResourceNotFound
	}

	store, err := r.stores.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load store %q: %w", slug, err)
	}
	return r.withOwner(ctx, store)
}

// ResolveByID is Resolve keyed by store ID. Used by write paths that carry
// the store ID rather than the public slug.
func (r *Resolver) ResolveByID(ctx context.Context, storeID string) (*Resolved, error) {
	if storeID == "" {
		return nil, ErrResourceNotFound
	}

	store, err := r.stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, ErrStoreNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load store %s: %w", storeID, err)
	}
	return r.withOwner(ctx, store)
}

func (r *Resolver) withOwner(ctx context.Context, store *Store) (*Resolved, error) {
	if store == nil {
		return nil, ErrResourceNotFound
	}
	if store.IsDemo {
		return &Resolved{Store: store}, nil
	}
	if store.TenantID == "" {
		return nil, ErrResourceNotFound
	}

	owner, err := r.tenants.GetByID(ctx, store.TenantID)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			return nil, ErrResourceNotFound
		}
		return nil, fmt.Errorf("failed to load tenant %s: %w", store.TenantID, err)
	}
	if owner == nil || owner.ID != store.TenantID {
		return nil, ErrResourceNotFound
	}
	return &Resolved{Store: store, Tenant: owner}, nil
}
