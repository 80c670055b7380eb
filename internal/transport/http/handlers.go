package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/tenant"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Pinger reports storage reachability for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	gateway       *gateway.Gateway
	guard         *gateway.Guard
	resolver      gateway.StoreResolver
	authorizer    gateway.StoreAuthorizer
	tenantService *tenant.Service
	admins        *authz.AdminList
	verifier      *identity.Verifier
	auditLogger   audit.Logger
	storage       Pinger

	// mutations receives guarded store mutations once every check passed.
	mutations http.Handler
}

// Dependencies groups what NewHandler needs. Mutations and Storage are optional.
type Dependencies struct {
	Gateway       *gateway.Gateway
	Guard         *gateway.Guard
	Resolver      gateway.StoreResolver
	Authorizer    gateway.StoreAuthorizer
	TenantService *tenant.Service
	Admins        *authz.AdminList
	Verifier      *identity.Verifier
	AuditLogger   audit.Logger
	Storage       Pinger
	Mutations     http.Handler
}

// NewHandler creates a new HTTP handler
func NewHandler(deps Dependencies) *Handler {
	h := &Handler{
		gateway:       deps.Gateway,
		guard:         deps.Guard,
		resolver:      deps.Resolver,
		authorizer:    deps.Authorizer,
		tenantService: deps.TenantService,
		admins:        deps.Admins,
		verifier:      deps.Verifier,
		auditLogger:   deps.AuditLogger,
		storage:       deps.Storage,
		mutations:     deps.Mutations,
	}
	if h.auditLogger == nil {
		h.auditLogger = audit.Nop{}
	}
	if h.mutations == nil {
		h.mutations = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})
	}
	return h
}

// RouterConfig holds transport settings
type RouterConfig struct {
	RequestTimeout time.Duration
	MutationPrefix string
	CORS           CORSConfig
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, rateLimiter *RateLimiter, cfg RouterConfig) *chi.Mux {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MutationPrefix == "" {
		cfg.MutationPrefix = "/api/v1/stores"
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	if rateLimiter != nil {
		r.Use(RateLimitMiddleware(rateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware())
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	if c := CORSMiddleware(cfg.CORS); c != nil {
		r.Use(c)
	}
	r.Use(PrincipalMiddleware(h.verifier))

	r.Get("/health", h.HealthCheck)
	r.Get("/api/ping", h.Ping)

	// Tenant-scoped pages. The gateway decides every request below the prefix.
	if h.gateway != nil {
		r.Route(h.gateway.Matcher().Prefix(), func(r chi.Router) {
			r.Use(EnforcementMiddleware(h.gateway))
			r.Get("/", h.Dashboard)
			r.Get("/*", h.Dashboard)
		})
	}

	r.Route(cfg.MutationPrefix+"/{slug}", func(r chi.Router) {
		r.Get("/billing", h.BillingSummary)

		r.Group(func(r chi.Router) {
			r.Use(h.GuardMutation)
			r.Post("/*", h.Mutate)
			r.Put("/*", h.Mutate)
			r.Patch("/*", h.Mutate)
			r.Delete("/*", h.Mutate)
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(RequireAdmin(h.admins, h.auditLogger))
		r.Put("/stores/{storeID}/demo", h.SetStoreDemo)
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.storage != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.storage.Ping(ctx); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "storegate",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "storegate",
	})
}

// Ping is a liveness probe that never touches storage
func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
