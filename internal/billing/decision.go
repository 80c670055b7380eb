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

package billing

import "encoding/json"

// GraceDays is the number of whole days a past-due tenant keeps read access.
// UI copy describing the grace window must read this value.
const GraceDays = 3

// Redirect targets for blocked and unauthorized requests.
const (
	TargetTrialExpired = "/billing/trial-expired"
	TargetOverdue      = "/billing/overdue"
	TargetSuspended    = "/billing/suspended"

	// UnauthorizedTarget is used for resolver and authorization failures.
	// It is deliberately distinct from every billing target.
	UnauthorizedTarget = "/unauthorized"
)

// Kind discriminates the Decision variants.
type Kind int

const (
	KindBlock Kind = iota
	KindAllow
	KindReadOnly
)

func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindReadOnly:
		return "read_only"
	default:
		return "block"
	}
}

// Reason explains a ReadOnly or Block decision.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonPastDueGrace Reason = "past_due_grace"
	ReasonTrialExpired Reason = "trial_expired"
	ReasonSuspended    Reason = "suspended"
	ReasonUnpaid       Reason = "unpaid"
)

// RedirectTarget returns the fixed page for a blocking reason.
// Unknown reasons map to the overdue page.
func (r Reason) RedirectTarget() string {
	switch r {
	case ReasonTrialExpired:
		return TargetTrialExpired
	case ReasonSuspended:
		return TargetSuspended
	default:
		return TargetOverdue
	}
}

// Decision is the outcome of evaluating a tenant's billing record.
// The zero value is a Block, so an uninitialised Decision never grants access.
type Decision struct {
	Kind               Kind
	Reason             Reason
	GraceDaysRemaining int
	RedirectTarget     string

	// Anomaly is set when the status could not be decoded. Callers log it as
	// a data-quality problem; it does not change the outcome.
	Anomaly bool
}

// Allow grants full access.
func Allow() Decision {
	return Decision{Kind: KindAllow}
}

// ReadOnly grants read access during the past-due grace window.
func ReadOnly(graceDaysRemaining int) Decision {
	return Decision{
		Kind:               KindReadOnly,
		Reason:             ReasonPastDueGrace,
		GraceDaysRemaining: graceDaysRemaining,
	}
}

// Block denies access and carries the page the user is sent to.
func Block(reason Reason) Decision {
	return Decision{
		Kind:           KindBlock,
		Reason:         reason,
		RedirectTarget: reason.RedirectTarget(),
	}
}

func (d Decision) IsAllow() bool    { return d.Kind == KindAllow }
func (d Decision) IsReadOnly() bool { return d.Kind == KindReadOnly }
func (d Decision) IsBlock() bool    { return d.Kind == KindBlock }

// MarshalJSON renders the decision for the presentation layer.
func (d Decision) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Decision           string `json:"decision"`
		Reason             string `json:"reason,omitempty"`
		GraceDaysRemaining int    `json:"grace_days_remaining"`
		GraceDays          int    `json:"grace_days"`
		RedirectTarget     string `json:"redirect_target,omitempty"`
	}{
		Decision:           d.Kind.String(),
		Reason:             string(d.Reason),
		GraceDaysRemaining: d.GraceDaysRemaining,
		GraceDays:          GraceDays,
		RedirectTarget:     d.RedirectTarget,
	})
}
