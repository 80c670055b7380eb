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

	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
)

type contextKey string

const (
	principalKey contextKey = "principal"
	effectKey    contextKey = "gateway_effect"
	storeKey     contextKey = "store"
)

// GetPrincipal retrieves the request principal. Anonymous when unset.
func GetPrincipal(ctx context.Context) identity.Principal {
	if val, ok := ctx.Value(principalKey).(identity.Principal); ok {
		return val
	}
	return identity.Anonymous()
}

// GetUserID retrieves the authenticated User ID from context.
func GetUserID(ctx context.Context) string {
	p := GetPrincipal(ctx)
	if !p.IsAuthenticated() {
		return ""
	}
	return p.ID
}

// GetEffect retrieves the gateway effect applied to this request.
func GetEffect(ctx context.Context) (gateway.Effect, bool) {
	val, ok := ctx.Value(effectKey).(gateway.Effect)
	return val, ok
}

// IsReadOnly reports whether the request is being served in degraded mode.
func IsReadOnly(ctx context.Context) bool {
	e, ok := GetEffect(ctx)
	return ok && e.Kind == gateway.ContinueDegraded
}

// GetStore retrieves the store a guarded mutation targets.
func GetStore(ctx context.Context) *tenant.Store {
	if val, ok := ctx.Value(storeKey).(*tenant.Store); ok {
		return val
	}
	return nil
}

func withPrincipal(ctx context.Context, p identity.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}
