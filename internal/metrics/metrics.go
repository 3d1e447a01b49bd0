// Package metrics exposes the service's OpenTelemetry instruments.
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the counters the auth and dispatch paths report to.
// A nil *Metrics is valid and records nothing, which keeps tests free of
// meter provider setup.
type Metrics struct {
	logins        metric.Int64Counter
	executions    metric.Int64Counter
	tokensUsed    metric.Int64Counter
	auditFailures metric.Int64Counter
}

// New registers the service instruments on the global meter provider.
func New() (*Metrics, error) {
	meter := otel.Meter("codegate")

	logins, err := meter.Int64Counter("codegate.login_attempts",
		metric.WithDescription("Login attempts by outcome"))
	if err != nil {
		return nil, err
	}
	executions, err := meter.Int64Counter("codegate.executions",
		metric.WithDescription("Workflow executions by workflow and status"))
	if err != nil {
		return nil, err
	}
	tokensUsed, err := meter.Int64Counter("codegate.generation_tokens",
		metric.WithDescription("Generation API tokens consumed"))
	if err != nil {
		return nil, err
	}
	auditFailures, err := meter.Int64Counter("codegate.audit_write_failures",
		metric.WithDescription("Audit log writes that failed"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		logins:        logins,
		executions:    executions,
		tokensUsed:    tokensUsed,
		auditFailures: auditFailures,
	}, nil
}

// RecordLogin counts one login attempt.
func (m *Metrics) RecordLogin(ctx context.Context, success bool, reason string) {
	if m == nil {
		return
	}
	m.logins.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("success", success),
		attribute.String("reason", reason),
	))
}

// RecordExecution counts one workflow execution and its token usage.
func (m *Metrics) RecordExecution(ctx context.Context, workflow, status string, tokens int) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("workflow", workflow),
		attribute.String("status", status),
	)
	m.executions.Add(ctx, 1, attrs)
	if tokens > 0 {
		m.tokensUsed.Add(ctx, int64(tokens), attrs)
	}
}

// RecordAuditFailure counts one failed audit log write.
func (m *Metrics) RecordAuditFailure(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.auditFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
