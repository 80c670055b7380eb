package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
	"github.com/stretchr/testify/require"
)

var (
	testSecret = []byte("transport-test-secret-0123456789")
	fixedNow   = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
)

const (
	memberID   = "2f1f4f0a-1111-4111-8111-000000000001"
	outsiderID = "2f1f4f0a-1111-4111-8111-000000000002"
	adminID    = "2f1f4f0a-1111-4111-8111-000000000003"
	adminEmail = "ops@storegate.test"
)

func ptr(t time.Time) *time.Time { return &t }

type memRepo struct {
	mu      sync.Mutex
	stores  map[string]*tenant.Store
	tenants map[string]*tenant.Tenant
	members map[[2]string]bool
}

func (m *memRepo) GetBySlug(_ context.Context, slug string) (*tenant.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.stores {
		if s.Slug == slug {
			cp := *s
			return &cp, nil
		}
	}
	return nil, tenant.ErrStoreNotFound
}

func (m *memRepo) GetByID(_ context.Context, id string) (*tenant.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return nil, tenant.ErrStoreNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memRepo) SetDemo(_ context.Context, id string, isDemo bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stores[id]
	if !ok {
		return tenant.ErrStoreNotFound
	}
	s.IsDemo = isDemo
	return nil
}

func (m *memRepo) HasAccess(_ context.Context, storeID, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.members[[2]string{storeID, userID}], nil
}

type memTenantRepo struct{ *memRepo }

func (m memTenantRepo) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingAudit) last() audit.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return audit.Event{}
	}
	return r.events[len(r.events)-1]
}

type testServer struct {
	router http.Handler
	repo   *memRepo
	audit  *recordingAudit
}

func newRepo() *memRepo {
	repo := &memRepo{
		tenants: map[string]*tenant.Tenant{
			"t-active":    {ID: "t-active", BillingStatus: "active"},
			"t-grace":     {ID: "t-grace", BillingStatus: "past_due", PastDueSince: ptr(fixedNow.Add(-48 * time.Hour))},
			"t-overdue":   {ID: "t-overdue", BillingStatus: "past_due", PastDueSince: ptr(fixedNow.Add(-240 * time.Hour))},
			"t-trial-end": {ID: "t-trial-end", BillingStatus: "trialing", TrialEndsAt: ptr(fixedNow.Add(-time.Hour))},
		},
		stores: map[string]*tenant.Store{
			"s-active":    {ID: "s-active", TenantID: "t-active", Slug: "active"},
			"s-grace":     {ID: "s-grace", TenantID: "t-grace", Slug: "grace"},
			"s-overdue":   {ID: "s-overdue", TenantID: "t-overdue", Slug: "overdue"},
			"s-trial-end": {ID: "s-trial-end", TenantID: "t-trial-end", Slug: "trial-end"},
			"s-demo":      {ID: "s-demo", TenantID: "t-overdue", Slug: "demo", IsDemo: true},
		},
		members: map[[2]string]bool{},
	}
	for id := range repo.stores {
		repo.members[[2]string{id, memberID}] = true
	}
	return repo
}

func newTestServer(t *testing.T, mutations http.Handler) *testServer {
	t.Helper()

	repo := newRepo()
	rec := &recordingAudit{}
	clock := gateway.WithClock(func() time.Time { return fixedNow })

	resolver := tenant.NewResolver(repo, memTenantRepo{repo})
	authorizer := authz.NewAuthorizer(repo)
	matcher := tenant.NewRouteMatcher(tenant.DefaultRoutePrefix, []string{"storegate.test"})

	verifier, err := identity.NewVerifier(identity.VerifierConfig{Secret: testSecret, CookieName: "sb-access-token"})
	require.NoError(t, err)

	h := NewHandler(Dependencies{
		Gateway:       gateway.New(matcher, resolver, authorizer, clock, gateway.WithAudit(rec)),
		Guard:         gateway.NewGuard(resolver, nil, clock, gateway.WithAudit(rec)),
		Resolver:      resolver,
		Authorizer:    authorizer,
		TenantService: tenant.NewService(repo, memTenantRepo{repo}, rec),
		Admins:        authz.NewAdminList([]string{adminEmail}),
		Verifier:      verifier,
		AuditLogger:   rec,
		Mutations:     mutations,
	})

	return &testServer{
		router: NewRouter(h, nil, RouterConfig{}),
		repo:   repo,
		audit:  rec,
	}
}

func token(t *testing.T, sub, email string) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path, bearer string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}
