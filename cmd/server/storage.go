package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/opentrusty/storegate/internal/authz"
	"github.com/opentrusty/storegate/internal/config"
	"github.com/opentrusty/storegate/internal/observability/logger"
	"github.com/opentrusty/storegate/internal/store/postgres"
	"github.com/opentrusty/storegate/internal/store/sqlite"
	"github.com/opentrusty/storegate/internal/tenant"
	"go.opentelemetry.io/otel/trace"
)

// backend is the storage selected by Store.Driver.
type backend struct {
	stores  tenant.StoreRepository
	tenants tenant.Repository
	members authz.MembershipRepository

	ping    func(ctx context.Context) error
	migrate func(ctx context.Context) error
	close   func()
}

func (b *backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// openBackend connects the configured driver. tracer may be nil.
func openBackend(ctx context.Context, cfg *config.Config, tracer trace.Tracer) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.Store.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite database: %w", err)
		}
		slog.Info("opened database", logger.Driver(config.DriverSQLite))
		return &backend{
			stores:  sqlite.NewStoreRepository(db),
			tenants: sqlite.NewTenantRepository(db),
			members: sqlite.NewMembershipRepository(db),
			ping:    db.Ping,
			migrate: db.Migrate,
			close: func() {
				if err := db.Close(); err != nil {
					slog.Error("failed to close database", logger.Error(err))
				}
			},
		}, nil

	default:
		db, err := postgres.New(ctx, postgres.Config{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			Database:        cfg.Database.Database,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			Tracer:          tracer,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		slog.Info("connected to database", logger.Driver(config.DriverPostgres))
		return &backend{
			stores:  postgres.NewStoreRepository(db),
			tenants: postgres.NewTenantRepository(db),
			members: postgres.NewMembershipRepository(db),
			ping:    db.Ping,
			migrate: func(ctx context.Context) error {
				return db.Migrate(ctx, postgres.InitialSchema)
			},
			close: db.Close,
		}, nil
	}
}
