package gateway

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func ago(d time.Duration) *time.Time {
	t := fixedNow.Add(-d)
	return &t
}

func ahead(d time.Duration) *time.Time {
	t := fixedNow.Add(d)
	return &t
}

const day = 24 * time.Hour

// memStores is an in-memory tenant.StoreRepository and tenant.Repository.
type memStores struct {
	stores  map[string]*tenant.Store
	tenants map[string]*tenant.Tenant

	delay   time.Duration
	failErr error
	lookups atomic.Int64
}

func (m *memStores) wait(ctx context.Context) error {
	m.lookups.Add(1)
	if m.failErr != nil {
		return m.failErr
	}
	if m.delay == 0 {
		return nil
	}
	select {
	case <-time.After(m.delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *memStores) GetBySlug(ctx context.Context, slug string) (*tenant.Store, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	for _, s := range m.stores {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, tenant.ErrStoreNotFound
}

func (m *memStores) GetByID(ctx context.Context, id string) (*tenant.Store, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	s, ok := m.stores[id]
	if !ok {
		return nil, tenant.ErrStoreNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memStores) SetDemo(ctx context.Context, storeID string, isDemo bool) error {
	s, ok := m.stores[storeID]
	if !ok {
		return tenant.ErrStoreNotFound
	}
	s.IsDemo = isDemo
	return nil
}

type memTenants struct {
	*memStores
}

func (m memTenants) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

// memberships grants (store, user) pairs.
type memberships map[[2]string]bool

func (m memberships) HasAccess(_ context.Context, storeID, userID string) (bool, error) {
	return m[[2]string{storeID, userID}], nil
}

// recordingAudit keeps every event it receives.
type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

var (
	alice = identity.Principal{ID: "8a4f5c1e-0000-4000-8000-00000000a11c", Email: "alice@example.com", Authenticated: true}
	bob   = identity.Principal{ID: "8a4f5c1e-0000-4000-8000-000000000b0b", Email: "bob@example.com", Authenticated: true}
)

var errStorage = errors.New("connection refused")

// newFixture builds one store per billing situation, all owned by distinct
// tenants. Alice is a member of every store; Bob of none.
func newFixture() *memStores {
	tenants := map[string]*tenant.Tenant{
		"t-active":    {ID: "t-active", BillingStatus: "active"},
		"t-trial":     {ID: "t-trial", BillingStatus: "trialing", TrialEndsAt: ahead(day)},
		"t-trial-end": {ID: "t-trial-end", BillingStatus: "trialing", TrialEndsAt: ago(time.Hour)},
		"t-grace":     {ID: "t-grace", BillingStatus: "past_due", PastDueSince: ago(2 * day)},
		"t-overdue":   {ID: "t-overdue", BillingStatus: "past_due", PastDueSince: ago(10 * day)},
		"t-suspended": {ID: "t-suspended", BillingStatus: "suspended"},
		"t-archived":  {ID: "t-archived", BillingStatus: "archived"},
	}
	stores := map[string]*tenant.Store{
		"s-active":    {ID: "s-active", TenantID: "t-active", Slug: "active"},
		"s-trial":     {ID: "s-trial", TenantID: "t-trial", Slug: "trial"},
		"s-trial-end": {ID: "s-trial-end", TenantID: "t-trial-end", Slug: "trial-end"},
		"s-grace":     {ID: "s-grace", TenantID: "t-grace", Slug: "grace"},
		"s-overdue":   {ID: "s-overdue", TenantID: "t-overdue", Slug: "overdue"},
		"s-suspended": {ID: "s-suspended", TenantID: "t-suspended", Slug: "suspended"},
		"s-archived":  {ID: "s-archived", TenantID: "t-archived", Slug: "archived"},
		"s-demo":      {ID: "s-demo", TenantID: "t-suspended", Slug: "demo", IsDemo: true},
		"s-orphan":    {ID: "s-orphan", TenantID: "t-gone", Slug: "orphan"},
	}
	return &memStores{stores: stores, tenants: tenants}
}

func (m *memStores) resolver() *tenant.Resolver {
	return tenant.NewResolver(m, memTenants{m})
}

func aliceEverywhere(m *memStores) memberships {
	out := memberships{}
	for id := range m.stores {
		out[[2]string{id, alice.ID}] = true
	}
	return out
}

func newTestGateway(m *memStores, opts ...Option) *Gateway {
	opts = append([]Option{WithClock(func() time.Time { return fixedNow })}, opts...)
	return New(
		tenant.NewRouteMatcher(tenant.DefaultRoutePrefix, []string{"storegate.test"}),
		m.resolver(),
		authz.NewAuthorizer(aliceEverywhere(m)),
		opts...,
	)
}
