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

package gateway

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/billing"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/observability/logger"
	"github.com/opentrusty/storegate/internal/tenant"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// StoreResolver loads a store and its owning tenant.
type StoreResolver interface {
	Resolve(ctx context.Context, slug string) (*tenant.Resolved, error)
	ResolveByID(ctx context.Context, storeID string) (*tenant.Resolved, error)
}

// StoreAuthorizer decides whether a principal may act on a store.
type StoreAuthorizer interface {
	Authorize(ctx context.Context, p identity.Principal, store *tenant.Store) (authz.Result, error)
}

// EffectKind is what the transport must do with a request.
// The zero value is Redirect so an unset Effect never lets a request through.
type EffectKind int

const (
	Redirect EffectKind = iota
	Continue
	ContinueDegraded
)

func (k EffectKind) String() string {
	switch k {
	case Continue:
		return "continue"
	case ContinueDegraded:
		return "continue_degraded"
	default:
		return "redirect"
	}
}

// Cause names why an Effect was chosen. It is logged and counted, never
// shown to the client.
type Cause string

const (
	CauseNoTenantResource Cause = "no_tenant_resource"
	CauseDemo             Cause = "demo"
	CauseNotFound         Cause = "not_found"
	CauseLookupFailed     Cause = "lookup_failed"
	CauseTimeout          Cause = "timeout"
	CauseCanceled         Cause = "canceled"
	CauseUnauthenticated  Cause = "unauthenticated"
	CauseUnauthorized     Cause = "unauthorized"
	CauseBillingAllow     Cause = "billing_allow"
	CauseBillingGrace     Cause = "billing_grace"
	CauseBillingBlocked   Cause = "billing_blocked"
)

// Request is the part of an inbound request the gateway evaluates.
type Request struct {
	Path      string
	Host      string
	Principal identity.Principal
}

// Effect is the gateway's verdict for one request.
type Effect struct {
	Kind               EffectKind
	Target             string
	GraceDaysRemaining int
	Cause              Cause

	// Set once the store has been resolved.
	StoreID  string
	TenantID string
	// Reason carries the billing reason for degraded and blocked outcomes.
	Reason billing.Reason
}

func redirectUnauthorized(cause Cause) Effect {
	return Effect{Kind: Redirect, Target: billing.UnauthorizedTarget, Cause: cause}
}

// Evaluation is a resolved, authorized store with its fresh billing decision.
type Evaluation struct {
	Store    *tenant.Store
	Tenant   *tenant.Tenant
	Decision billing.Decision
}

// Demo reports whether billing was bypassed.
func (e *Evaluation) Demo() bool {
	return e.Store != nil && e.Store.IsDemo
}

// Gateway is the single choke point between an inbound request for a
// tenant-owned resource and the handler that serves it.
//
// It holds no per-request state and never caches decisions.
type Gateway struct {
	matcher    *tenant.RouteMatcher
	resolver   StoreResolver
	authorizer StoreAuthorizer
	opts       options
}

// New creates a new enforcement gateway
func New(matcher *tenant.RouteMatcher, resolver StoreResolver, authorizer StoreAuthorizer, opts ...Option) *Gateway {
	return &Gateway{
		matcher:    matcher,
		resolver:   resolver,
		authorizer: authorizer,
		opts:       buildOptions(opts),
	}
}

// Matcher returns the route matcher the gateway enforces.
func (g *Gateway) Matcher() *tenant.RouteMatcher {
	return g.matcher
}

// Enforce evaluates req and returns the effect to apply.
//
// The steps run in a fixed order: route match, resolve, demo bypass,
// authorize, then billing. Billing state is never evaluated for a resource the
// principal cannot access. Every failure before the billing step redirects to
// the unauthorized page.
func (g *Gateway) Enforce(ctx context.Context, req Request) Effect {
	start := time.Now()
	ctx, span := g.opts.tracer.Start(ctx, "gateway.Enforce",
		trace.WithAttributes(attribute.String("http.path", req.Path)))
	defer span.End()

	effect := g.enforce(ctx, req)

	span.SetAttributes(
		attribute.String("gateway.effect", effect.Kind.String()),
		attribute.String("gateway.cause", string(effect.Cause)),
	)
	if effect.Kind == Redirect {
		span.SetStatus(codes.Error, string(effect.Cause))
	}
	g.opts.metrics.Decision(ctx, effect.Kind.String(), string(effect.Cause), time.Since(start))
	g.logEffect(ctx, req, effect, time.Since(start))
	return effect
}

func (g *Gateway) enforce(ctx context.Context, req Request) Effect {
	if err := ctx.Err(); err != nil {
		return redirectUnauthorized(contextCause(err))
	}

	slug, ok := g.matcher.Match(req.Host, req.Path)
	if !ok {
		return Effect{Kind: Continue, Cause: CauseNoTenantResource}
	}

	eval, err := g.Evaluate(ctx, slug, req.Principal)
	if err != nil {
		effect := redirectUnauthorized(g.causeOf(ctx, err))
		if eval != nil && eval.Store != nil {
			effect.StoreID = eval.Store.ID
			effect.TenantID = eval.Store.TenantID
		}
		return effect
	}

	effect := Effect{StoreID: eval.Store.ID, TenantID: eval.Store.TenantID}
	if eval.Demo() {
		effect.Kind = Continue
		effect.Cause = CauseDemo
		return effect
	}

	d := eval.Decision
	effect.Reason = d.Reason
	switch d.Kind {
	case billing.KindAllow:
		effect.Kind = Continue
		effect.Cause = CauseBillingAllow
	case billing.KindReadOnly:
		effect.Kind = ContinueDegraded
		effect.Cause = CauseBillingGrace
		effect.GraceDaysRemaining = d.GraceDaysRemaining
	default:
		effect.Kind = Redirect
		effect.Cause = CauseBillingBlocked
		effect.Target = d.RedirectTarget
		if effect.Target == "" {
			effect.Target = d.Reason.RedirectTarget()
		}
	}
	return effect
}

// Evaluate resolves slug, authorizes p on it, and decides billing for the
// owning tenant. It returns tenant.ErrResourceNotFound, an authz error, a
// context error, or a wrapped storage error; on an authorization failure the
// returned Evaluation carries the store but no decision.
//
// The whole lookup is bounded by the configured lookup timeout.
func (g *Gateway) Evaluate(ctx context.Context, slug string, p identity.Principal) (*Evaluation, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, g.opts.lookupTimeout)
	defer cancel()
	defer g.opts.metrics.Begin(ctx)()

	resolved, err := g.resolver.Resolve(lookupCtx, slug)
	if err != nil {
		return nil, err
	}
	if err := lookupCtx.Err(); err != nil {
		return nil, err
	}
	if resolved == nil || resolved.Store == nil {
		return nil, tenant.ErrResourceNotFound
	}
	store := resolved.Store

	// Demo stores are public: no principal check, no billing.
	if store.IsDemo {
		return &Evaluation{Store: store, Decision: billing.Allow()}, nil
	}
	if resolved.Tenant == nil {
		return nil, tenant.ErrResourceNotFound
	}

	res, err := g.authorizer.Authorize(lookupCtx, p, store)
	if err == nil {
		err = lookupCtx.Err()
	}
	if err != nil || res != authz.Granted {
		if err == nil {
			err = authz.ErrUnauthorized
		}
		g.opts.audit.Log(ctx, audit.Event{
			Type:     audit.TypeAccessDenied,
			TenantID: store.TenantID,
			StoreID:  store.ID,
			ActorID:  p.ID,
			Resource: store.Slug,
			Metadata: map[string]any{"cause": err.Error()},
		})
		return &Evaluation{Store: store}, err
	}

	eval := &Evaluation{Store: store, Tenant: resolved.Tenant}
	eval.Decision = billing.Decide(resolved.Tenant.BillingRecord(), g.opts.now())
	g.recordDecision(ctx, eval)
	return eval, nil
}

func (g *Gateway) recordDecision(ctx context.Context, eval *Evaluation) {
	d := eval.Decision
	if d.Anomaly {
		g.opts.metrics.Anomaly(ctx)
		g.opts.logger.WarnContext(ctx, "unrecognized billing status",
			logger.TenantID(eval.Tenant.ID),
			logger.BillingStatus(eval.Tenant.BillingStatus),
		)
		g.opts.audit.Log(ctx, audit.Event{
			Type:     audit.TypeBillingAnomaly,
			TenantID: eval.Tenant.ID,
			StoreID:  eval.Store.ID,
			Resource: eval.Store.Slug,
			Metadata: map[string]any{"billing_status": eval.Tenant.BillingStatus},
		})
	}

	switch d.Kind {
	case billing.KindBlock:
		g.opts.audit.Log(ctx, audit.Event{
			Type:     audit.TypeBillingBlocked,
			TenantID: eval.Tenant.ID,
			StoreID:  eval.Store.ID,
			Resource: eval.Store.Slug,
			Metadata: map[string]any{"reason": string(d.Reason)},
		})
	case billing.KindReadOnly:
		g.opts.audit.Log(ctx, audit.Event{
			Type:     audit.TypeBillingDegraded,
			TenantID: eval.Tenant.ID,
			StoreID:  eval.Store.ID,
			Resource: eval.Store.Slug,
			Metadata: map[string]any{"grace_days_remaining": d.GraceDaysRemaining},
		})
	}
}

func (g *Gateway) causeOf(ctx context.Context, err error) Cause {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return CauseCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, tenant.ErrResourceNotFound):
		return CauseNotFound
	case errors.Is(err, authz.ErrUnauthenticated):
		return CauseUnauthenticated
	case errors.Is(err, authz.ErrUnauthorized):
		return CauseUnauthorized
	default:
		return CauseLookupFailed
	}
}

func contextCause(err error) Cause {
	if errors.Is(err, context.DeadlineExceeded) {
		return CauseTimeout
	}
	return CauseCanceled
}

func (g *Gateway) logEffect(ctx context.Context, req Request, effect Effect, elapsed time.Duration) {
	level := slog.LevelInfo
	switch {
	case effect.Cause == CauseNoTenantResource:
		level = slog.LevelDebug
	case effect.Cause == CauseLookupFailed:
		level = slog.LevelError
	case effect.Kind == Redirect:
		level = slog.LevelWarn
	}

	g.opts.logger.LogAttrs(ctx, level, "gateway decision",
		logger.Component("gateway"),
		logger.Path(req.Path),
		logger.StoreID(effect.StoreID),
		logger.TenantID(effect.TenantID),
		logger.UserID(req.Principal.ID),
		logger.Effect(effect.Kind.String()),
		logger.Reason(string(effect.Cause)),
		logger.Duration(elapsed.Milliseconds()),
	)
}
