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

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/observability/logger"
	"github.com/opentrusty/storegate/internal/tenant"
	"github.com/opentrusty/storegate/internal/validation"
)

// Dashboard answers for an enforced tenant page. Rendering belongs to the
// frontend; this reports the mode the page must be served in.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	effect, ok := GetEffect(r.Context())
	if !ok || effect.StoreID == "" {
		respondError(w, http.StatusNotFound, "no store addressed")
		return
	}

	mode := "full"
	switch {
	case effect.Cause == gateway.CauseDemo:
		mode = "demo"
	case effect.Kind == gateway.ContinueDegraded:
		mode = "read_only"
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"store_id":             effect.StoreID,
		"mode":                 mode,
		"grace_days_remaining": effect.GraceDaysRemaining,
	})
}

// BillingSummary returns the billing decision for a store the caller is a
// member of. Missing stores and foreign stores get the same 403.
func (h *Handler) BillingSummary(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	eval, err := h.gateway.Evaluate(r.Context(), slug, GetPrincipal(r.Context()))
	if err != nil {
		if isAccessError(err) {
			respondError(w, http.StatusForbidden, "forbidden")
			return
		}
		slog.ErrorContext(r.Context(), "billing summary lookup failed", logger.Slug(slug), logger.Error(err))
		respondError(w, http.StatusServiceUnavailable, "billing state unavailable")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	respondJSON(w, http.StatusOK, eval.Decision)
}

// GuardMutation authorizes the caller on the addressed store and runs the
// mutation guard before any state-changing handler.
func (h *Handler) GuardMutation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		slug := chi.URLParam(r, "slug")
		p := GetPrincipal(ctx)

		resolved, err := h.resolver.Resolve(ctx, slug)
		if err != nil {
			switch {
			case errors.Is(err, tenant.ErrResourceNotFound) && !p.IsAuthenticated():
				respondError(w, http.StatusUnauthorized, "not authenticated")
			case errors.Is(err, tenant.ErrResourceNotFound):
				respondError(w, http.StatusForbidden, "forbidden")
			default:
				slog.ErrorContext(ctx, "store lookup failed", logger.Slug(slug), logger.Error(err))
				respondError(w, http.StatusServiceUnavailable, "store unavailable")
			}
			return
		}
		store := resolved.Store

		res, err := h.authorizer.Authorize(ctx, p, store)
		if err == nil && res != authz.Granted {
			err = authz.ErrUnauthorized
		}
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrUnauthenticated):
				respondError(w, http.StatusUnauthorized, "not authenticated")
			case errors.Is(err, authz.ErrUnauthorized):
				respondError(w, http.StatusForbidden, "forbidden")
			default:
				slog.ErrorContext(ctx, "membership lookup failed", logger.StoreID(store.ID), logger.Error(err))
				respondError(w, http.StatusServiceUnavailable, "store unavailable")
			}
			return
		}

		operation := r.Method + " /" + chi.URLParam(r, "*")
		if err := h.guard.Check(ctx, store.ID, operation); err != nil {
			var blocked *gateway.BillingBlockedError
			var degraded *gateway.BillingDegradedError
			switch {
			case errors.As(err, &blocked):
				respondJSON(w, http.StatusPaymentRequired, map[string]any{
					"error":  "billing_blocked",
					"reason": blocked.Reason,
				})
			case errors.As(err, &degraded):
				respondJSON(w, http.StatusLocked, map[string]any{
					"error":                "read_only",
					"grace_days_remaining": degraded.GraceDaysRemaining,
				})
			case isAccessError(err):
				respondError(w, http.StatusForbidden, "forbidden")
			default:
				slog.ErrorContext(ctx, "mutation guard failed", logger.StoreID(store.ID), logger.Error(err))
				respondError(w, http.StatusServiceUnavailable, "store unavailable")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(ctx, storeKey, store)))
	})
}

// Mutate hands an admitted mutation to the downstream handler.
func (h *Handler) Mutate(w http.ResponseWriter, r *http.Request) {
	h.mutations.ServeHTTP(w, r)
}

type setDemoRequest struct {
	IsDemo *bool `json:"is_demo" validate:"required"`
}

// SetStoreDemo toggles the demo bypass flag of a store. Admin only.
func (h *Handler) SetStoreDemo(w http.ResponseWriter, r *http.Request) {
	storeID := chi.URLParam(r, "storeID")

	var req setDemoRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validation.Struct(req); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "invalid request body",
				"fields": verr.Fields,
			})
			return
		}
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	store, err := h.tenantService.SetStoreDemo(r.Context(), GetUserID(r.Context()), storeID, *req.IsDemo)
	if err != nil {
		if errors.Is(err, tenant.ErrStoreNotFound) {
			respondError(w, http.StatusNotFound, "store not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to set demo flag", logger.StoreID(storeID), logger.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to update store")
		return
	}

	respondJSON(w, http.StatusOK, store)
}

func isAccessError(err error) bool {
	return errors.Is(err, tenant.ErrResourceNotFound) ||
		errors.Is(err, authz.ErrUnauthenticated) ||
		errors.Is(err, authz.ErrUnauthorized)
}
