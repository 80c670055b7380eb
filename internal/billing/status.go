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

import "strings"

// Status is the decoded billing status of a tenant.
//
// The raw column is free text written by external billing processors. It is
// decoded once, at the storage boundary, into this closed set. Anything that
// is not one of the known values becomes StatusUnrecognized, which the
// engine treats as the most restrictive state.
type Status int

const (
	StatusUnrecognized Status = iota
	StatusActive
	StatusTrialing
	StatusPastDue
	StatusUnpaid
	StatusSuspended
)

// Raw status values as written by the billing collaborators.
const (
	RawActive    = "active"
	RawTrialing  = "trialing"
	RawTrial     = "trial"
	RawPastDue   = "past_due"
	RawUnpaid    = "unpaid"
	RawSuspended = "suspended"
)

// ParseStatus decodes a raw billing status.
// Matching is case-insensitive but whitespace is significant: "ACTIVE " is
// not "active".
func ParseStatus(raw string) Status {
	switch strings.ToLower(raw) {
	case RawActive:
		return StatusActive
	case RawTrialing, RawTrial:
		return StatusTrialing
	case RawPastDue:
		return StatusPastDue
	case RawUnpaid:
		return StatusUnpaid
	case RawSuspended:
		return StatusSuspended
	default:
		return StatusUnrecognized
	}
}

func (s Status) String() string {
	switch s {
	case StatusActive:
		return RawActive
	case StatusTrialing:
		return RawTrialing
	case StatusPastDue:
		return RawPastDue
	case StatusUnpaid:
		return RawUnpaid
	case StatusSuspended:
		return RawSuspended
	default:
		return "unrecognized"
	}
}
