package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/billing"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func enforce(g *Gateway, path string, p identity.Principal) Effect {
	return g.Enforce(context.Background(), Request{Path: path, Principal: p})
}

// TestPurpose: Validates that a past-due tenant inside the grace window is served in degraded mode.
// Scope: Unit Test
// Security: Billing enforcement
// Expected: ContinueDegraded with one grace day remaining two days after the payment failed.
// Test Case ID: GW-A
func TestEnforce_ScenarioA_PastDueInGrace(t *testing.T) {
	g := newTestGateway(newFixture())

	e := enforce(g, "/dashboard/grace/orders", alice)
	assert.Equal(t, ContinueDegraded, e.Kind)
	assert.Equal(t, 1, e.GraceDaysRemaining)
	assert.Equal(t, CauseBillingGrace, e.Cause)
	assert.Equal(t, billing.ReasonPastDueGrace, e.Reason)
	assert.Empty(t, e.Target)
}

// TestPurpose: Validates that a past-due tenant beyond the grace window is redirected to the overdue page.
// Scope: Unit Test
// Security: Billing enforcement
// Expected: Redirect to /billing/overdue.
// Test Case ID: GW-B
func TestEnforce_ScenarioB_PastDueExpired(t *testing.T) {
	g := newTestGateway(newFixture())

	e := enforce(g, "/dashboard/overdue", alice)
	assert.Equal(t, Redirect, e.Kind)
	assert.Equal(t, billing.TargetOverdue, e.Target)
	assert.Equal(t, CauseBillingBlocked, e.Cause)
}

// TestPurpose: Validates that a member of a trialing store with time left is let through.
// Scope: Unit Test
// Security: Billing enforcement
// Expected: Continue.
// Test Case ID: GW-C
func TestEnforce_ScenarioC_TrialingMember(t *testing.T) {
	g := newTestGateway(newFixture())

	e := enforce(g, "/dashboard/trial", alice)
	assert.Equal(t, Continue, e.Kind)
	assert.Equal(t, CauseBillingAllow, e.Cause)
	assert.Equal(t, "s-trial", e.StoreID)
	assert.Equal(t, "t-trial", e.TenantID)
}

// TestPurpose: Validates that an unknown store key redirects to the unauthorized page for every principal.
// Scope: Unit Test
// Security: Resource enumeration (CWE-204)
// Expected: Redirect to /unauthorized for anonymous, member, and non-member principals alike.
// Test Case ID: GW-D
func TestEnforce_ScenarioD_StoreNotFound(t *testing.T) {
	g := newTestGateway(newFixture())

	for _, p := range []identity.Principal{identity.Anonymous(), alice, bob} {
		e := enforce(g, "/dashboard/no-such-store", p)
		assert.Equal(t, Redirect, e.Kind)
		assert.Equal(t, billing.UnauthorizedTarget, e.Target)
		assert.Equal(t, CauseNotFound, e.Cause)
	}

	// A store whose owner is gone looks exactly like a missing store.
	e := enforce(g, "/dashboard/orphan", alice)
	assert.Equal(t, billing.UnauthorizedTarget, e.Target)
	assert.Equal(t, CauseNotFound, e.Cause)
}

func TestEnforce_BlockingTargets(t *testing.T) {
	g := newTestGateway(newFixture())

	tests := []struct {
		path   string
		target string
	}{
		{"/dashboard/trial-end", billing.TargetTrialExpired},
		{"/dashboard/suspended/settings", billing.TargetSuspended},
		{"/dashboard/archived", billing.TargetOverdue},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			e := enforce(g, tt.path, alice)
			assert.Equal(t, Redirect, e.Kind)
			assert.Equal(t, tt.target, e.Target)
			assert.NotEqual(t, billing.UnauthorizedTarget, e.Target)
		})
	}
}

// TestPurpose: Validates that routes outside the tenant prefix are passed through without touching storage.
// Scope: Unit Test
// Security: Availability of public surfaces
// Expected: Continue with no repository lookups.
// Test Case ID: GW-01
func TestEnforce_NonTenantRoute(t *testing.T) {
	fx := newFixture()
	g := newTestGateway(fx)

	for _, path := range []string{"/", "/api/ping", "/billing/overdue", "/dashboardx/acme", "/dashboard", "/dashboard/"} {
		e := enforce(g, path, identity.Anonymous())
		assert.Equal(t, Continue, e.Kind, path)
		assert.Equal(t, CauseNoTenantResource, e.Cause, path)
	}
	assert.Zero(t, fx.lookups.Load())
}

// TestPurpose: Validates the demo bypass: demo stores skip authorization and billing even for a suspended owner.
// Scope: Unit Test
// Security: Billing enforcement
// Expected: Continue for an anonymous principal; the owning tenant is never loaded.
// Test Case ID: GW-02
func TestEnforce_DemoBypass(t *testing.T) {
	fx := newFixture()
	g := newTestGateway(fx)

	e := enforce(g, "/dashboard/demo", identity.Anonymous())
	assert.Equal(t, Continue, e.Kind)
	assert.Equal(t, CauseDemo, e.Cause)
	assert.Equal(t, int64(1), fx.lookups.Load(), "only the store lookup runs")
}

// TestPurpose: Validates that access is checked before billing so a non-member never learns a store's billing state.
// Scope: Unit Test
// Security: Information disclosure (CWE-200), cross-tenant isolation (CWE-639)
// Expected: Non-members and anonymous principals are sent to /unauthorized, never to a billing page; an access_denied audit event is written and no billing event is.
// Test Case ID: GW-03
func TestEnforce_AuthorizationPrecedesBilling(t *testing.T) {
	rec := &recordingAudit{}
	g := newTestGateway(newFixture(), WithAudit(rec))

	e := enforce(g, "/dashboard/suspended", bob)
	assert.Equal(t, Redirect, e.Kind)
	assert.Equal(t, billing.UnauthorizedTarget, e.Target)
	assert.Equal(t, CauseUnauthorized, e.Cause)
	assert.Empty(t, e.Reason)

	e = enforce(g, "/dashboard/overdue", identity.Anonymous())
	assert.Equal(t, billing.UnauthorizedTarget, e.Target)
	assert.Equal(t, CauseUnauthenticated, e.Cause)

	assert.Equal(t, []string{audit.TypeAccessDenied, audit.TypeAccessDenied}, rec.types())
}

// TestPurpose: Validates fail-closed behaviour when lookups exceed the timeout, fail, or the request is cancelled.
// Scope: Unit Test
// Security: Fail-closed enforcement
// Expected: Redirect to /unauthorized with the matching cause in every case.
// Test Case ID: GW-04
func TestEnforce_FailsClosed(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		fx := newFixture()
		fx.delay = 200 * time.Millisecond
		g := newTestGateway(fx, WithLookupTimeout(10*time.Millisecond))

		start := time.Now()
		e := enforce(g, "/dashboard/active", alice)
		assert.Equal(t, Redirect, e.Kind)
		assert.Equal(t, billing.UnauthorizedTarget, e.Target)
		assert.Equal(t, CauseTimeout, e.Cause)
		assert.Less(t, time.Since(start), fx.delay)
	})

	t.Run("storage error", func(t *testing.T) {
		fx := newFixture()
		fx.failErr = errStorage
		g := newTestGateway(fx)

		e := enforce(g, "/dashboard/active", alice)
		assert.Equal(t, Redirect, e.Kind)
		assert.Equal(t, billing.UnauthorizedTarget, e.Target)
		assert.Equal(t, CauseLookupFailed, e.Cause)
	})

	t.Run("cancelled", func(t *testing.T) {
		fx := newFixture()
		g := newTestGateway(fx)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		e := g.Enforce(ctx, Request{Path: "/dashboard/active", Principal: alice})
		assert.Equal(t, Redirect, e.Kind)
		assert.Equal(t, billing.UnauthorizedTarget, e.Target)
		assert.Equal(t, CauseCanceled, e.Cause)
		assert.Zero(t, fx.lookups.Load())
	})
}

func TestEnforce_UnrecognizedStatusIsAudited(t *testing.T) {
	rec := &recordingAudit{}
	g := newTestGateway(newFixture(), WithAudit(rec))

	e := enforce(g, "/dashboard/archived", alice)
	assert.Equal(t, Redirect, e.Kind)
	assert.Equal(t, billing.ReasonUnpaid, e.Reason)
	assert.Equal(t, []string{audit.TypeBillingAnomaly, audit.TypeBillingBlocked}, rec.types())
}

func TestEnforce_HostAddressedStore(t *testing.T) {
	g := newTestGateway(newFixture())

	e := g.Enforce(context.Background(), Request{Host: "grace.storegate.test", Path: "/dashboard/orders", Principal: alice})
	assert.Equal(t, ContinueDegraded, e.Kind)
	assert.Equal(t, "s-grace", e.StoreID)
}

func TestEnforce_IsStateless(t *testing.T) {
	fx := newFixture()
	g := newTestGateway(fx)

	assert.Equal(t, Continue, enforce(g, "/dashboard/active", alice).Kind)

	// Billing changes are seen on the very next request.
	fx.tenants["t-active"].BillingStatus = "suspended"
	e := enforce(g, "/dashboard/active", alice)
	assert.Equal(t, Redirect, e.Kind)
	assert.Equal(t, billing.TargetSuspended, e.Target)
}

func TestEnforce_RecordsSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	defer func() { _ = tp.Shutdown(context.Background()) }()

	g := newTestGateway(newFixture(), WithTracer(tp.Tracer("test")))
	enforce(g, "/dashboard/grace", alice)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "gateway.Enforce", spans[0].Name())

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "continue_degraded", attrs["gateway.effect"])
	assert.Equal(t, "billing_grace", attrs["gateway.cause"])
}

func TestEvaluate_ReturnsDecisionForMembers(t *testing.T) {
	g := newTestGateway(newFixture())

	eval, err := g.Evaluate(context.Background(), "grace", alice)
	require.NoError(t, err)
	assert.True(t, eval.Decision.IsReadOnly())
	assert.False(t, eval.Demo())

	_, err = g.Evaluate(context.Background(), "grace", bob)
	assert.Error(t, err)

	_, err = g.Evaluate(context.Background(), "missing", alice)
	assert.ErrorIs(t, err, tenant.ErrResourceNotFound)
}

func TestEffectKind_ZeroValueRedirects(t *testing.T) {
	var e Effect
	assert.Equal(t, Redirect, e.Kind)
	assert.Equal(t, "redirect", e.Kind.String())
}
