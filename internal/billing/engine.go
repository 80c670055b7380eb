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

import "time"

// Record is the subset of a tenant's billing state the engine consumes.
type Record struct {
	Status       Status
	RawStatus    string
	TrialEndsAt  *time.Time
	PastDueSince *time.Time
}

// NewRecord decodes a raw status string into a Record.
func NewRecord(rawStatus string, trialEndsAt, pastDueSince *time.Time) Record {
	return Record{
		Status:       ParseStatus(rawStatus),
		RawStatus:    rawStatus,
		TrialEndsAt:  trialEndsAt,
		PastDueSince: pastDueSince,
	}
}

// Decide maps a billing record to a Decision at the instant now.
// It is pure and total: every record, including malformed ones, yields a
// Decision, and anything ambiguous resolves to Block.
func Decide(rec Record, now time.Time) Decision {
	switch rec.Status {
	case StatusActive:
		return Allow()

	case StatusTrialing:
		if rec.TrialEndsAt == nil {
			return Block(ReasonTrialExpired)
		}
		// The boundary instant itself is still inside the trial.
		if now.After(*rec.TrialEndsAt) {
			return Block(ReasonTrialExpired)
		}
		return Allow()

	case StatusPastDue:
		// Missing grace start is treated as an exhausted grace window.
		if rec.PastDueSince == nil {
			return Block(ReasonUnpaid)
		}
		days := DaysSince(*rec.PastDueSince, now)
		if days <= GraceDays {
			return ReadOnly(GraceDays - days)
		}
		return Block(ReasonUnpaid)

	case StatusUnpaid:
		return Block(ReasonUnpaid)

	case StatusSuspended:
		return Block(ReasonSuspended)

	case StatusUnrecognized:
		d := Block(ReasonUnpaid)
		d.Anomaly = true
		return d
	}

	d := Block(ReasonUnpaid)
	d.Anomaly = true
	return d
}

// DaysSince returns the number of whole 24h periods elapsed from t to now.
// Partial days are truncated, never rounded up. A t in the future yields 0.
func DaysSince(t, now time.Time) int {
	elapsed := now.Sub(t)
	if elapsed <= 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}
