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
	"fmt"

	"github.com/opentrusty/storegate/internal/audit"
)

// Service provides store administration that sits next to the gateway.
// Callers are responsible for checking platform admin privileges first.
type Service struct {
	stores      StoreRepository
	tenants     Repository
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(stores StoreRepository, tenants Repository, auditLogger audit.Logger) *Service {
	return &Service{
		stores:      stores,
		tenants:     tenants,
		auditLogger: auditLogger,
	}
}

// GetStore retrieves a store by ID
func (s *Service) GetStore(ctx context.Context, storeID string) (*Store, error) {
	return s.stores.GetByID(ctx, storeID)
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// SetStoreDemo toggles the demo bypass flag of a store.
func (s *Service) SetStoreDemo(ctx context.Context, actorID, storeID string, isDemo bool) (*Store, error) {
	if storeID == "" {
		return nil, fmt.Errorf("store id is required")
	}
	if actorID == "" {
		return nil, fmt.Errorf("actor id is required")
	}

	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		return nil, err
	}
	if store.IsDemo == isDemo {
		return store, nil
	}

	if err := s.stores.SetDemo(ctx, storeID, isDemo); err != nil {
		return nil, fmt.Errorf("failed to update demo flag: %w", err)
	}
	store.IsDemo = isDemo

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeStoreDemoChanged,
		TenantID: store.TenantID,
		ActorID:  actorID,
		Resource: store.ID,
		Metadata: map[string]any{
			"slug":    store.Slug,
			"is_demo": isDemo,
		},
	})

	return store, nil
}
