package postgres

import (
	"context"
	"errors"
	"net/url"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestConfig_ConnString(t *testing.T) {
	cfg := Config{
		Host:         "db.internal",
		Port:         "5432",
		User:         "storegate",
		Password:     "p@ss word/with?chars",
		Database:     "storegate",
		SSLMode:      "require",
		MaxOpenConns: 10,
		MaxIdleConns: 2,
	}

	u, err := url.Parse(cfg.connString())
	require.NoError(t, err)
	assert.Equal(t, "db.internal:5432", u.Host)
	pw, _ := u.User.Password()
	assert.Equal(t, cfg.Password, pw)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.Equal(t, "10", u.Query().Get("pool_max_conns"))
	assert.Equal(t, "2", u.Query().Get("pool_min_conns"))
}

func TestQueryTracer(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	qt := &queryTracer{tracer: tp.Tracer("test")}
	ctx := context.Background()

	done := qt.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 1", Args: []any{"secret-user"}})
	qt.TraceQueryEnd(done, nil, pgx.TraceQueryEndData{CommandTag: pgconn.NewCommandTag("SELECT 1")})

	failed := qt.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "UPDATE stores"})
	qt.TraceQueryEnd(failed, nil, pgx.TraceQueryEndData{Err: errors.New("conn reset")})

	missing := qt.TraceQueryStart(ctx, nil, pgx.TraceQueryStartData{SQL: "SELECT 2"})
	qt.TraceQueryEnd(missing, nil, pgx.TraceQueryEndData{Err: pgx.ErrNoRows})

	spans := rec.Ended()
	require.Len(t, spans, 3)
	assert.Equal(t, "postgres.query", spans[0].Name())
	for _, kv := range spans[0].Attributes() {
		assert.NotContains(t, kv.Value.Emit(), "secret-user")
	}
	assert.Equal(t, codes.Error, spans[1].Status().Code)
	assert.NotEqual(t, codes.Error, spans[2].Status().Code, "no rows is not a failure")
}
