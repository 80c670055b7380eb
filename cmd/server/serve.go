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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/config"
	"github.com/opentrusty/storegate/internal/gateway"
	"github.com/opentrusty/storegate/internal/identity"
	"github.com/opentrusty/storegate/internal/observability/logger"
	"github.com/opentrusty/storegate/internal/observability/metrics"
	"github.com/opentrusty/storegate/internal/observability/tracing"
	"github.com/opentrusty/storegate/internal/tenant"
	transportHTTP "github.com/opentrusty/storegate/internal/transport/http"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting storegate", slog.String("version", Version))

	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   cfg.Observability.SamplingRate,
		Endpoint:       cfg.Observability.OTELEndpoint,
		Insecure:       cfg.Observability.OTELInsecure,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer func() {
		if err := tracer.Shutdown(context.Background()); err != nil {
			slog.Error("failed to shut down tracer", logger.Error(err))
		}
	}()

	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	gatewayMetrics, err := metrics.NewGateway(meter)
	if err != nil {
		return fmt.Errorf("failed to register gateway metrics: %w", err)
	}

	store, err := openBackend(ctx, cfg, tracer.GetTracer())
	if err != nil {
		return err
	}
	defer store.close()

	server, cleanup, err := newServer(cfg, store, tracer.GetTracer(), gatewayMetrics)
	if err != nil {
		return err
	}
	defer cleanup()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}

// newServer wires the policy layer and the HTTP transport on top of store.
func newServer(cfg *config.Config, store *backend, tracer trace.Tracer, gatewayMetrics *metrics.Gateway) (*http.Server, func(), error) {
	auditLogger := audit.NewSlogLogger()

	verifier, err := identity.NewVerifier(identity.VerifierConfig{
		Secret:     []byte(cfg.Auth.JWTSecret),
		Issuer:     cfg.Auth.JWTIssuer,
		CookieName: cfg.Auth.CookieName,
		Leeway:     cfg.Auth.Leeway,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize token verifier: %w", err)
	}

	admins := authz.NewAdminList(cfg.Admin.SuperAdminEmails)
	slog.Info("platform admin list loaded", slog.Int("count", admins.Len()))

	resolver := tenant.NewResolver(store.stores, store.tenants)
	authorizer := authz.NewAuthorizer(store.members)
	matcher := tenant.NewRouteMatcher(cfg.Gateway.RoutePrefix, cfg.Gateway.BaseDomains)

	policyOpts := []gateway.Option{
		gateway.WithLookupTimeout(cfg.Gateway.LookupTimeout),
		gateway.WithAudit(auditLogger),
		gateway.WithMetrics(gatewayMetrics),
		gateway.WithTracer(tracer),
	}

	handler := transportHTTP.NewHandler(transportHTTP.Dependencies{
		Gateway:       gateway.New(matcher, resolver, authorizer, policyOpts...),
		Guard:         gateway.NewGuard(resolver, cfg.Gateway.ReadOnlyOperations, policyOpts...),
		Resolver:      resolver,
		Authorizer:    authorizer,
		TenantService: tenant.NewService(store.stores, store.tenants, auditLogger),
		Admins:        admins,
		Verifier:      verifier,
		AuditLogger:   auditLogger,
		Storage:       store,
	})

	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)

	router := transportHTTP.NewRouter(handler, rateLimiter, transportHTTP.RouterConfig{
		RequestTimeout: cfg.Server.RequestTimeout,
		MutationPrefix: cfg.Gateway.MutationPrefix,
		CORS: transportHTTP.CORSConfig{
			AllowedOrigins:   cfg.CORS.AllowedOrigins,
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           cfg.CORS.MaxAge,
		},
	})

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return server, rateLimiter.Stop, nil
}
