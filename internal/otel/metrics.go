package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "muxherd"

// Metrics holds the muxherd metric instruments. All counters are monotonic
// and safe for concurrent use. A nil *Metrics disables recording, so
// components carry one without caring whether telemetry is configured.
type Metrics struct {
	// ServersDiscovered counts running servers found per discovery pass.
	ServersDiscovered metric.Int64Counter
	// SessionsListed counts sessions returned by enumeration, partitioned
	// by server.
	SessionsListed metric.Int64Counter
	// PanesCreated counts created panes, partitioned by mode
	// (respawn, split).
	PanesCreated metric.Int64Counter
	// LayoutFailures counts select-layout invocations that failed and were
	// ignored.
	LayoutFailures metric.Int64Counter
	// Attaches counts attach commands issued, partitioned by mode
	// (foreground, terminal, simulated).
	Attaches metric.Int64Counter
}

// NewMetrics creates all metric instruments. Returns no-op instruments when
// no MeterProvider is registered, so it is safe to call unconditionally.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.ServersDiscovered, err = meter.Int64Counter("servers.discovered",
		metric.WithDescription("Running tmux servers found per discovery pass"))
	if err != nil {
		return nil, err
	}

	m.SessionsListed, err = meter.Int64Counter("sessions.listed",
		metric.WithDescription("Sessions returned by list-sessions, partitioned by server"))
	if err != nil {
		return nil, err
	}

	m.PanesCreated, err = meter.Int64Counter("panes.created",
		metric.WithDescription("Panes created, partitioned by mode (respawn, split)"))
	if err != nil {
		return nil, err
	}

	m.LayoutFailures, err = meter.Int64Counter("layout.failures",
		metric.WithDescription("select-layout invocations that failed and were ignored"))
	if err != nil {
		return nil, err
	}

	m.Attaches, err = meter.Int64Counter("attaches.total",
		metric.WithDescription("Attach commands issued, partitioned by mode (foreground, terminal, simulated)"))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordDiscovery records how many servers a discovery pass found.
func (m *Metrics) RecordDiscovery(ctx context.Context, found int) {
	if m == nil {
		return
	}
	m.ServersDiscovered.Add(ctx, int64(found))
}

// RecordSessionsListed records sessions enumerated on one server.
func (m *Metrics) RecordSessionsListed(ctx context.Context, server string, n int) {
	if m == nil {
		return
	}
	m.SessionsListed.Add(ctx, int64(n), metric.WithAttributes(
		attribute.String("tmux.server", server),
	))
}

// RecordPane records one created pane with its creation mode.
func (m *Metrics) RecordPane(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.PanesCreated.Add(ctx, 1, metric.WithAttributes(
		attribute.String("pane.mode", mode),
	))
}

// RecordLayoutFailure records a swallowed select-layout failure.
func (m *Metrics) RecordLayoutFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.LayoutFailures.Add(ctx, 1)
}

// RecordAttach records one issued attach with its mode.
func (m *Metrics) RecordAttach(ctx context.Context, mode string) {
	if m == nil {
		return
	}
	m.Attaches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("attach.mode", mode),
	))
}
