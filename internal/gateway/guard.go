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
	"fmt"
	"strings"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/billing"
	"github.com/opentrusty/storegate/internal/observability/logger"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Guard rejects state-changing operations on stores whose owning tenant is
// blocked or in the read-only grace window.
//
// It decides from storage on every call and never reads request headers, so
// a client cannot bypass it by stripping the degraded-mode signals.
type Guard struct {
	resolver    StoreResolver
	readOnlyOps  map[string]struct{}
	opts        options
}

// NewGuard creates a mutation guard. readOnlyOps lists operations still
// permitted during the grace window; it is empty by default.
func NewGuard(resolver StoreResolver, readOnlyOps []string, opts ...Option) *Guard {
	allowed := make(map[string]struct{}, len(readOnlyOps))
	for _, op := range readOnlyOps {
		if op = strings.TrimSpace(op); op != "" {
			allowed[op] = struct{}{}
		}
	}
	return &Guard{
		resolver:    resolver,
		readOnlyOps: allowed,
		opts:        buildOptions(opts),
	}
}

// Check returns nil when operation may run against storeID.
// A blocked tenant yields *BillingBlockedError, the grace window yields
// *BillingDegradedError, and any lookup failure is returned as an error.
func (g *Guard) Check(ctx context.Context, storeID, operation string) error {
	ctx, span := g.opts.tracer.Start(ctx, "gateway.Guard.Check", trace.WithAttributes(
		attribute.String("store.id", storeID),
		attribute.String("operation", operation),
	))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return err
	}

	lookupCtx, cancel := context.WithTimeout(ctx, g.opts.lookupTimeout)
	defer cancel()

	resolved, err := g.resolver.ResolveByID(lookupCtx, storeID)
	if err == nil {
		err = lookupCtx.Err()
	}
	if err != nil {
		return fmt.Errorf("failed to resolve store for mutation: %w", err)
	}
	if resolved == nil || resolved.Store == nil {
		return fmt.Errorf("failed to resolve store for mutation: store %s missing", storeID)
	}
	if resolved.Store.IsDemo {
		return nil
	}
	if resolved.Tenant == nil {
		return fmt.Errorf("failed to resolve owner of store %s", storeID)
	}

	d := billing.Decide(resolved.Tenant.BillingRecord(), g.opts.now())
	if d.Anomaly {
		g.opts.metrics.Anomaly(ctx)
	}

	var rejection error
	switch d.Kind {
	case billing.KindAllow:
		return nil
	case billing.KindReadOnly:
		if _, ok := g.readOnlyOps[operation]; ok {
			return nil
		}
		rejection = &BillingDegradedError{GraceDaysRemaining: d.GraceDaysRemaining}
	default:
		rejection = &BillingBlockedError{Reason: d.Reason}
	}

	span.SetAttributes(attribute.String("guard.rejection", string(d.Reason)))
	g.opts.metrics.Rejection(ctx, d.Kind.String())
	g.opts.logger.InfoContext(ctx, "mutation rejected",
		logger.Component("guard"),
		logger.StoreID(resolved.Store.ID),
		logger.TenantID(resolved.Tenant.ID),
		logger.Operation(operation),
		logger.Decision(d.Kind.String()),
		logger.Reason(string(d.Reason)),
	)
	g.opts.audit.Log(ctx, audit.Event{
		Type:     audit.TypeMutationRejected,
		TenantID: resolved.Tenant.ID,
		StoreID:  resolved.Store.ID,
		Resource: operation,
		Metadata: map[string]any{
			"decision":             d.Kind.String(),
			"reason":               string(d.Reason),
			"grace_days_remaining": d.GraceDaysRemaining,
		},
	})
	return rejection
}
