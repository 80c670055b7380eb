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

//go:build integration
// +build integration

package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	password := os.Getenv("DB_PASSWORD")
	if password == "" {
		password = "storegate_dev_password"
	}
	db, err := New(context.Background(), Config{
		Host:         "localhost",
		Port:         "5432",
		User:         "storegate",
		Password:     password,
		Database:     "storegate",
		SSLMode:      "disable",
		MaxOpenConns: 5,
		MaxIdleConns: 1,
	})
	if err != nil {
		t.Skipf("Skipping integration test: failed to connect to database: %v", err)
	}
	t.Cleanup(db.Close)

	require.NoError(t, db.Migrate(context.Background(), InitialSchema))
	return db
}

// TestPurpose: Validates that membership lookups are scoped to the exact store, never to the tenant.
// Scope: Database Integration Test
// Security: Multi-tenant Data Separation (CWE-284)
// Expected: A member of store A has no access to store B of the same tenant, nor to a revoked grant.
// Test Case ID: ISO-01
// Metadata:
//   - Category: Tenant
//   - Priority: High
//   - Tags: multi-tenancy, security, data-isolation
func TestMembershipRepository_PerStoreIsolation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tenantID := uuid.NewString()
	storeA, storeB := uuid.NewString(), uuid.NewString()
	userID := uuid.NewString()
	revoked := uuid.NewString()

	_, err := db.pool.Exec(ctx, `INSERT INTO tenants (id, billing_status) VALUES ($1, 'active')`, tenantID)
	require.NoError(t, err)
	_, err = db.pool.Exec(ctx, `INSERT INTO stores (id, tenant_id, slug) VALUES ($1, $3, $4), ($2, $3, $5)`,
		storeA, storeB, tenantID, "a-"+storeA[:8], "b-"+storeB[:8])
	require.NoError(t, err)
	_, err = db.pool.Exec(ctx, `INSERT INTO store_members (store_id, user_id, has_access) VALUES ($1, $2, TRUE), ($1, $3, FALSE)`,
		storeA, userID, revoked)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.pool.Exec(ctx, `DELETE FROM stores WHERE tenant_id = $1`, tenantID)
		_, _ = db.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	})

	var repo authz.MembershipRepository = NewMembershipRepository(db)

	ok, err := repo.HasAccess(ctx, storeA, userID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.HasAccess(ctx, storeB, userID)
	require.NoError(t, err)
	assert.False(t, ok, "grant on a sibling store must not leak")

	ok, err = repo.HasAccess(ctx, storeA, revoked)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStoreAndTenantRepositories(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tenantID := uuid.NewString()
	storeID := uuid.NewString()
	slug := "Acme-" + storeID[:8]
	pastDue := time.Now().Add(-48 * time.Hour).UTC().Truncate(time.Second)

	_, err := db.pool.Exec(ctx, `INSERT INTO tenants (id, billing_status, past_due_since) VALUES ($1, 'past_due', $2)`, tenantID, pastDue)
	require.NoError(t, err)
	_, err = db.pool.Exec(ctx, `INSERT INTO stores (id, tenant_id, slug) VALUES ($1, $2, $3)`, storeID, tenantID, slug)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = db.pool.Exec(ctx, `DELETE FROM stores WHERE id = $1`, storeID)
		_, _ = db.pool.Exec(ctx, `DELETE FROM tenants WHERE id = $1`, tenantID)
	})

	stores := NewStoreRepository(db)
	tenants := NewTenantRepository(db)

	s, err := stores.GetBySlug(ctx, tenant.NormalizeSlug(slug))
	require.NoError(t, err)
	assert.Equal(t, storeID, s.ID)
	assert.False(t, s.IsDemo)

	require.NoError(t, stores.SetDemo(ctx, storeID, true))
	s, err = stores.GetByID(ctx, storeID)
	require.NoError(t, err)
	assert.True(t, s.IsDemo)

	assert.ErrorIs(t, stores.SetDemo(ctx, uuid.NewString(), true), tenant.ErrStoreNotFound)
	_, err = stores.GetBySlug(ctx, "no-such-store-"+storeID)
	assert.ErrorIs(t, err, tenant.ErrStoreNotFound)

	tn, err := tenants.GetByID(ctx, tenantID)
	require.NoError(t, err)
	assert.Equal(t, "past_due", tn.BillingStatus)
	require.NotNil(t, tn.PastDueSince)
	assert.True(t, pastDue.Equal(*tn.PastDueSince))
	assert.Nil(t, tn.TrialEndsAt)

	_, err = tenants.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)
}
