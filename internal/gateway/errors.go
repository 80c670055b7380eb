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
	"errors"
	"fmt"

	"github.com/opentrusty/storegate/internal/billing"
)

// Domain errors
var (
	ErrBillingBlocked = errors.New("billing blocked")
	ErrReadOnly       = errors.New("store is read-only during the billing grace period")
)

// BillingBlockedError is returned by the guard when the owning tenant is
// blocked. It matches ErrBillingBlocked.
type BillingBlockedError struct {
	Reason billing.Reason
}

func (e *BillingBlockedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrBillingBlocked, e.Reason)
}

func (e *BillingBlockedError) Is(target error) bool {
	return target == ErrBillingBlocked
}

// BillingDegradedError is returned by the guard for a mutation attempted
// inside the grace window. It matches ErrReadOnly.
type BillingDegradedError struct {
	GraceDaysRemaining int
}

func (e *BillingDegradedError) Error() string {
	return fmt.Sprintf("%s (%d days remaining)", ErrReadOnly, e.GraceDaysRemaining)
}

func (e *BillingDegradedError) Is(target error) bool {
	return target == ErrReadOnly
}
