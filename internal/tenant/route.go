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

package tenant

import (
	"net"
	"path"
	"strings"
)

// DefaultRoutePrefix is the tenant-scoped route prefix.
// The first segment below it is the store slug: /dashboard/{slug}/...
const DefaultRoutePrefix = "/dashboard"

// ReservedSubdomains never resolve to a store.
var ReservedSubdomains = []string{
	"www", "admin", "app", "api", "driver", "static", "assets", "cdn",
	"login", "signup", "billing", "status", "docs", "help",
}

// RouteMatcher extracts the store resource key from an inbound request.
// It is immutable after construction and safe for concurrent use.
type RouteMatcher struct {
	prefix      string
	baseDomains []string
	reserved    map[string]struct{}
}

// NewRouteMatcher creates a matcher for the given prefix. baseDomains enables
// {slug}.{base} host resolution; pass nil to match on path only.
func NewRouteMatcher(prefix string, baseDomains []string) *RouteMatcher {
	prefix = "/" + strings.Trim(prefix, "/")
	if prefix == "/" {
		prefix = DefaultRoutePrefix
	}

	domains := make([]string, 0, len(baseDomains))
	for _, d := range baseDomains {
		d = strings.ToLower(strings.Trim(strings.TrimSpace(d), "."))
		if d != "" {
			domains = append(domains, d)
		}
	}

	reserved := make(map[string]struct{}, len(ReservedSubdomains))
	for _, s := range ReservedSubdomains {
		reserved[s] = struct{}{}
	}

	return &RouteMatcher{
		prefix:      prefix,
		baseDomains: domains,
		reserved:    reserved,
	}
}

// Prefix returns the tenant-scoped route prefix.
func (m *RouteMatcher) Prefix() string {
	return m.prefix
}

// Match returns the store key addressed by the request, or false when the
// request does not target a tenant-owned resource.
func (m *RouteMatcher) Match(host, requestPath string) (string, bool) {
	if requestPath == "" {
		return "", false
	}
	cleaned := path.Clean("/" + requestPath)

	if cleaned != m.prefix && !strings.HasPrefix(cleaned, m.prefix+"/") {
		return "", false
	}

	// On a store subdomain the host is authoritative and the path below the
	// prefix is a sub-page.
	if slug := m.hostSlug(host); slug != "" {
		return slug, true
	}

	rest := strings.TrimPrefix(cleaned, m.prefix)
	rest = strings.TrimPrefix(rest, "/")
	if rest == "" {
		return "", false
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return NormalizeSlug(rest), true
}

func (m *RouteMatcher) hostSlug(host string) string {
	if host == "" || len(m.baseDomains) == 0 {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)

	for _, base := range m.baseDomains {
		if !strings.HasSuffix(host, "."+base) {
			continue
		}
		sub := strings.TrimSuffix(host, "."+base)
		if sub == "" || strings.Contains(sub, ".") {
			continue
		}
		if _, ok := m.reserved[sub]; ok {
			continue
		}
		return sub
	}
	return ""
}

// NormalizeSlug lower-cases a slug for lookup.
func NormalizeSlug(slug string) string {
	return strings.ToLower(strings.TrimSpace(slug))
}
