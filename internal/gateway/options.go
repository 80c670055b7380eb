package gateway

import (
	"log/slog"
	"time"

	"github.com/opentrusty/storegate/internal/audit"
	"github.com/opentrusty/storegate/internal/observability/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// DefaultLookupTimeout bounds store, tenant and membership lookups for one
// enforcement.
const DefaultLookupTimeout = 3 * time.Second

const instrumentationName = "github.com/opentrusty/storegate/internal/gateway"

// Option configures a Gateway or a Guard.
type Option func(*options)

type options struct {
	lookupTimeout time.Duration
	now           func() time.Time
	logger        *slog.Logger
	audit         audit.Logger
	metrics       *metrics.Gateway
	tracer        trace.Tracer
}

func defaultOptions() options {
	return options{
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
		logger:        slog.Default(),
		audit:         audit.Nop{},
		tracer:        otel.Tracer(instrumentationName),
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLookupTimeout overrides DefaultLookupTimeout. Non-positive values are ignored.
func WithLookupTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.lookupTimeout = d
		}
	}
}

// WithClock sets the time source used for billing decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithAudit(a audit.Logger) Option {
	return func(o *options) {
		if a != nil {
			o.audit = a
		}
	}
}

func WithMetrics(m *metrics.Gateway) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}
