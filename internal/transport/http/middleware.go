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
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/observability/logger"
)

// Degraded-mode response headers. The presentation layer reads them to show
// the grace banner; nothing on the server trusts them.
const (
	HeaderReadOnly           = "X-Billing-Read-Only"
	HeaderGraceDaysRemaining = "X-Billing-Grace-Days-Remaining"
)

// LoggingMiddleware logs HTTP requests
func LoggingMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				slog.InfoContext(r.Context(), "http_request",
					logger.RequestID(middleware.GetReqID(r.Context())),
					logger.Method(r.Method),
					logger.Path(r.URL.Path),
					logger.RemoteAddr(r.RemoteAddr),
					logger.UserAgent(r.UserAgent()),
					logger.StatusCode(ww.Status()),
					logger.Duration(time.Since(start).Milliseconds()),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

// PrincipalMiddleware attaches the verified principal to the request
// context. Requests without valid credentials carry the anonymous principal;
// rejecting them is left to the gateway and the API handlers.
func PrincipalMiddleware(v *identity.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := identity.Anonymous()
			if v != nil {
				var err error
				p, err = v.FromRequest(r)
				if err != nil && !errors.Is(err, identity.ErrMissingToken) {
					slog.DebugContext(r.Context(), "rejected credentials", logger.Error(err))
				}
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

// EnforcementMiddleware runs the gateway on every request it wraps and
// applies the returned effect.
func EnforcementMiddleware(g *gateway.Gateway) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			effect := g.Enforce(r.Context(), gateway.Request{
				Path:      r.URL.Path,
				Host:      r.Host,
				Principal: GetPrincipal(r.Context()),
			})

			switch effect.Kind {
			case gateway.Continue:
			case gateway.ContinueDegraded:
				w.Header().Set(HeaderReadOnly, "true")
				w.Header().Set(HeaderGraceDaysRemaining, strconv.Itoa(effect.GraceDaysRemaining))
			default:
				redirect(w, r, effect.Target)
				return
			}

			ctx := context.WithValue(r.Context(), effectKey, effect)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// redirect uses 302 for safe methods and 303 otherwise so the browser
// follows with a GET.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	code := http.StatusFound
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		code = http.StatusSeeOther
	}
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, target, code)
}

// RequireAdmin restricts a route to platform administrators.
func RequireAdmin(admins *authz.AdminList, auditLogger audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetPrincipal(r.Context())
			if !admins.IsAdmin(p) {
				auditLogger.Log(r.Context(), audit.Event{
					Type:      audit.TypeAdminAccessRejected,
					ActorID:   p.ID,
					Resource:  r.URL.Path,
					IPAddress: getClientIP(r),
					UserAgent: r.UserAgent(),
				})
				respondError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CORSConfig holds cross-origin settings for the API surface
type CORSConfig struct {
	AllowedOrigins   []string
	AllowCredentials bool
	MaxAge           int
}

// CORSMiddleware returns nil when no origins are configured; cross-origin
// requests are then left to the browser's same-origin policy.
func CORSMiddleware(cfg CORSConfig) func(http.Handler) http.Handler {
	if len(cfg.AllowedOrigins) == 0 {
		return nil
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{HeaderReadOnly, HeaderGraceDaysRemaining},
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}
