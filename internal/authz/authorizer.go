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

package authz

import (
	"context"
	"fmt"

	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
)

// Authorizer decides whether a principal may act on a store.
//
// Access is evaluated per store: a grant on one store never satisfies a check
// on another, even when both belong to the same tenant.
type Authorizer struct {
	memberships MembershipRepository
}

// NewAuthorizer creates a new authorizer
func NewAuthorizer(memberships MembershipRepository) *Authorizer {
	return &Authorizer{memberships: memberships}
}

// Authorize returns Granted or Denied. On Denied the error names the cause
// (ErrUnauthenticated, ErrUnauthorized, or a wrapped storage error).
func (a *Authorizer) Authorize(ctx context.Context, p identity.Principal, store *tenant.Store) (Result, error) {
	if store == nil {
		return Denied, ErrUnauthorized
	}

	// Demo stores are public sales instances.
	if store.IsDemo {
		return Granted, nil
	}

	if !p.IsAuthenticated() {
		return Denied, ErrUnauthenticated
	}

	ok, err := a.memberships.HasAccess(ctx, store.ID, p.ID)
	if err != nil {
		return Denied, fmt.Errorf("failed to check membership: %w", err)
	}
	if !ok {
		return Denied, ErrUnauthorized
	}
	return Granted, nil
}
