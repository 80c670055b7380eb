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

package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Instrument names
const (
	GatewayDecisions = "storegate.gateway.decisions"
	GatewayDuration  = "storegate.gateway.duration"
	GatewayInFlight  = "storegate.gateway.inflight"
	GuardRejections  = "storegate.guard.rejections"
	BillingAnomalies = "storegate.billing.anomalies"
)

// Gateway holds the instruments recorded by the enforcement gateway and the
// mutation guard. A nil *Gateway records nothing.
type Gateway struct {
	decisions  metric.Int64Counter
	duration   metric.Float64Histogram
	inflight   metric.Int64UpDownCounter
	rejections metric.Int64Counter
	anomalies  metric.Int64Counter
}

// NewGateway registers the gateway instruments on m.
func NewGateway(m *Meter) (*Gateway, error) {
	decisions, err := m.CreateCounter(GatewayDecisions, "Enforcement decisions by effect and cause")
	if err != nil {
		return nil, err
	}
	duration, err := m.CreateHistogram(GatewayDuration, "Enforcement latency including lookups", "ms")
	if err != nil {
		return nil, err
	}
	inflight, err := m.CreateUpDownCounter(GatewayInFlight, "Enforcements currently waiting on lookups")
	if err != nil {
		return nil, err
	}
	rejections, err := m.CreateCounter(GuardRejections, "Mutations rejected by billing state")
	if err != nil {
		return nil, err
	}
	anomalies, err := m.CreateCounter(BillingAnomalies, "Tenants with an unrecognized billing status")
	if err != nil {
		return nil, err
	}

	return &Gateway{
		decisions:  decisions,
		duration:   duration,
		inflight:   inflight,
		rejections: rejections,
		anomalies:  anomalies,
	}, nil
}

// Decision records one enforcement outcome.
func (g *Gateway) Decision(ctx context.Context, effect, cause string, elapsed time.Duration) {
	if g == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("effect", effect),
		attribute.String("cause", cause),
	)
	g.decisions.Add(ctx, 1, attrs)
	g.duration.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)
}

// Begin marks an enforcement in flight; call the returned func when done.
func (g *Gateway) Begin(ctx context.Context) func() {
	if g == nil {
		return func() {}
	}
	g.inflight.Add(ctx, 1)
	return func() { g.inflight.Add(ctx, -1) }
}

// Rejection records a mutation refused by the guard.
func (g *Gateway) Rejection(ctx context.Context, reason string) {
	if g == nil {
		return
	}
	g.rejections.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

// Anomaly records a tenant whose stored billing status is not recognized.
func (g *Gateway) Anomaly(ctx context.Context) {
	if g == nil {
		return
	}
	g.anomalies.Add(ctx, 1)
}
