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
	"strings"

	"github.com/opentrusty/storegate/internal/identity"
)

// DefaultPlatformAdmins is the compiled-in platform administrator list.
// It applies only when no list is configured.
var DefaultPlatformAdmins = []string{
	"admin@pediufood.com",
}

// AdminList is the set of platform administrators, keyed by email.
//
// It is built once at process start and never mutated, so lookups need no
// locking. The list gates the administration surface (demo flags); it does
// not grant access to any store.
type AdminList struct {
	emails map[string]struct{}
}

// NewAdminList builds the list from configured entries, falling back to
// DefaultPlatformAdmins when configured is empty. Entries are trimmed and
// lower-cased; blanks are dropped.
func NewAdminList(configured []string) *AdminList {
	source := configured
	if len(nonBlank(configured)) == 0 {
		source = DefaultPlatformAdmins
	}

	emails := make(map[string]struct{}, len(source))
	for _, e := range nonBlank(source) {
		emails[normalizeEmail(e)] = struct{}{}
	}
	return &AdminList{emails: emails}
}

// IsAdmin reports whether an authenticated principal is a platform admin.
func (l *AdminList) IsAdmin(p identity.Principal) bool {
	if l == nil || !p.IsAuthenticated() || p.Email == "" {
		return false
	}
	_, ok := l.emails[normalizeEmail(p.Email)]
	return ok
}

// Len returns the number of configured administrators.
func (l *AdminList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.emails)
}

func nonBlank(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.TrimSpace(e) != "" {
			out = append(out, e)
		}
	}
	return out
}

func normalizeEmail(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
