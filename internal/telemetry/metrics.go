package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the session lifecycle counters. A nil *Metrics is valid and
// records nothing, so wiring telemetry stays optional for embedders.
type Metrics struct {
	issued    metric.Int64Counter
	validated metric.Int64Counter
	rotated   metric.Int64Counter
	revoked   metric.Int64Counter
	failures  metric.Int64Counter
}

// NewMetrics creates the lifecycle counters on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	issued, err := meter.Int64Counter("sessioncore.sessions.issued",
		metric.WithDescription("Session records issued and persisted."))
	if err != nil {
		return nil, err
	}
	validated, err := meter.Int64Counter("sessioncore.sessions.validated",
		metric.WithDescription("Bearer credentials successfully resolved to a subject."))
	if err != nil {
		return nil, err
	}
	rotated, err := meter.Int64Counter("sessioncore.sessions.rotated",
		metric.WithDescription("Access tokens rotated via a refresh token."))
	if err != nil {
		return nil, err
	}
	revoked, err := meter.Int64Counter("sessioncore.sessions.revoked",
		metric.WithDescription("Session records explicitly deleted."))
	if err != nil {
		return nil, err
	}
	failures, err := meter.Int64Counter("sessioncore.auth.failures",
		metric.WithDescription("Validation or rotation failures by reason."))
	if err != nil {
		return nil, err
	}
	return &Metrics{
		issued:    issued,
		validated: validated,
		rotated:   rotated,
		revoked:   revoked,
		failures:  failures,
	}, nil
}

func (m *Metrics) Issued(ctx context.Context) {
	if m == nil {
		return
	}
	m.issued.Add(ctx, 1)
}

func (m *Metrics) Validated(ctx context.Context) {
	if m == nil {
		return
	}
	m.validated.Add(ctx, 1)
}

func (m *Metrics) Rotated(ctx context.Context) {
	if m == nil {
		return
	}
	m.rotated.Add(ctx, 1)
}

func (m *Metrics) Revoked(ctx context.Context) {
	if m == nil {
		return
	}
	m.revoked.Add(ctx, 1)
}

// Failure records a failed validation or rotation with its reason (the
// sentinel error text, e.g. "invalid token").
func (m *Metrics) Failure(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	m.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}
