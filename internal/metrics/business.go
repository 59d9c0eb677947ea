package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Security event names recorded by the session engine.
const (
	EventLoginFailure   = "login_failure"
	EventLockout        = "lockout"
	EventReplayDetected = "replay_detected"
	EventTokenRevoked   = "token_revoked"
)

// BusinessMetrics records business operation and security event metrics.
// Domains are the engine's features ("credential", "session", "token",
// "field"), operations are their methods ("login", "refresh", "encrypt").
type BusinessMetrics interface {
	// RecordOperation counts one operation with a "success" or "error" status.
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration records the operation duration in seconds.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordSecurityEvent counts a security-relevant event such as a failed
	// login, a lockout opening or a detected refresh-token replay.
	RecordSecurityEvent(ctx context.Context, event string)
}

type businessMetrics struct {
	operationCounter metric.Int64Counter
	durationHisto    metric.Float64Histogram
	securityCounter  metric.Int64Counter
}

// NewBusinessMetrics builds the business instruments on the given meter
// provider. The namespace prefixes the metric names.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of business operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of business operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	securityCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_security_events_total", namespace),
		metric.WithDescription("Total number of security events"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create security event counter: %w", err)
	}

	return &businessMetrics{
		operationCounter: operationCounter,
		durationHisto:    durationHisto,
		securityCounter:  securityCounter,
	}, nil
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("domain", domain),
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

func (b *businessMetrics) RecordSecurityEvent(ctx context.Context, event string) {
	b.securityCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event", event)),
	)
}

// NoOpBusinessMetrics discards all recordings. Used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
}

func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
}

func (n *NoOpBusinessMetrics) RecordSecurityEvent(ctx context.Context, event string) {
}
