package metrics

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// OTelSink records task events on an OpenTelemetry meter.
type OTelSink struct {
	statuses  metric.Int64Counter
	processed metric.Int64Counter
	failed    metric.Int64Counter
}

var _ event.Sink = (*OTelSink)(nil)

// NewOTelSink creates the instruments on meter.
func NewOTelSink(meter metric.Meter) (*OTelSink, error) {
	statuses, err := meter.Int64Counter("migrate.status",
		metric.WithDescription("Bulk operation status transitions."))
	if err != nil {
		return nil, err
	}
	processed, err := meter.Int64Counter("migrate.records.processed",
		metric.WithDescription("Records processed by finished operations."), metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}
	failed, err := meter.Int64Counter("migrate.records.failed",
		metric.WithDescription("Records rejected by finished operations."), metric.WithUnit("{record}"))
	if err != nil {
		return nil, err
	}
	return &OTelSink{statuses: statuses, processed: processed, failed: failed}, nil
}

// Emit implements event.Sink.
func (s *OTelSink) Emit(e event.Event) {
	ctx := context.Background()
	attrs := metric.WithAttributes(
		attribute.String("object", e.Object),
		attribute.String("operation", e.Operation.String()),
	)
	s.statuses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("object", e.Object),
		attribute.String("operation", e.Operation.String()),
		attribute.String("status", e.Status.String()),
	))
	if e.Status == model.APIStatusOperationFinished {
		s.processed.Add(ctx, int64(e.Processed), attrs)
		s.failed.Add(ctx, int64(e.Failed), attrs)
	}
}
