// Package tracing turns task events into OpenTelemetry spans: one span per object operation, from
// OperationStarted to OperationFinished, with the intermediate stages as span events.
package tracing

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Sink records operation spans on a tracer.
type Sink struct {
	tracer trace.Tracer

	mu     sync.Mutex
	parent context.Context
	spans  map[string]*openSpan
}

type openSpan struct {
	span   trace.Span
	failed bool
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates a tracing sink.
func NewSink(tracer trace.Tracer) *Sink {
	return &Sink{tracer: tracer, parent: context.Background(), spans: make(map[string]*openSpan)}
}

// SetParent makes later operation spans children of the span carried by ctx.
func (s *Sink) SetParent(ctx context.Context) {
	s.mu.Lock()
	s.parent = ctx
	s.mu.Unlock()
}

// Emit implements event.Sink.
func (s *Sink) Emit(e event.Event) {
	key := e.Object + "/" + e.Operation.String()
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, open := s.spans[key]
	if e.Status == model.APIStatusOperationStarted {
		if open {
			cur.span.End()
		}
		opts := []trace.SpanStartOption{trace.WithAttributes(
			attribute.String("migrate.object", e.Object),
			attribute.String("migrate.operation", e.Operation.String()),
		)}
		if !e.Time.IsZero() {
			opts = append(opts, trace.WithTimestamp(e.Time))
		}
		_, span := s.tracer.Start(s.parent, key, opts...)
		s.spans[key] = &openSpan{span: span}
		return
	}
	if !open {
		logger.Debugf("Tracing: no open span for %s; %s ignored.", key, e.Status)
		return
	}

	attrs := []attribute.KeyValue{attribute.String("migrate.status", e.Status.String())}
	if e.JobID != "" {
		attrs = append(attrs, attribute.String("migrate.job_id", e.JobID))
	}
	if e.BatchID != "" {
		attrs = append(attrs, attribute.String("migrate.batch_id", e.BatchID))
	}
	if e.Message != "" {
		attrs = append(attrs, attribute.String("migrate.message", e.Message))
	}
	eventOpts := []trace.EventOption{trace.WithAttributes(attrs...)}
	if !e.Time.IsZero() {
		eventOpts = append(eventOpts, trace.WithTimestamp(e.Time))
	}
	span := cur.span
	span.AddEvent(e.Status.String(), eventOpts...)

	switch e.Status {
	case model.APIStatusFailed, model.APIStatusProcessError:
		cur.failed = true
		span.SetStatus(codes.Error, e.Message)
	case model.APIStatusOperationFinished:
		span.SetAttributes(
			attribute.Int("migrate.records.processed", e.Processed),
			attribute.Int("migrate.records.failed", e.Failed),
		)
		if !cur.failed && e.Severity < event.SeverityError {
			span.SetStatus(codes.Ok, "")
		}
		var endOpts []trace.SpanEndOption
		if !e.Time.IsZero() {
			endOpts = append(endOpts, trace.WithTimestamp(e.Time))
		}
		span.End(endOpts...)
		delete(s.spans, key)
	}
}

// EndAll ends the spans of operations that never finished.
func (s *Sink) EndAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, cur := range s.spans {
		cur.span.SetStatus(codes.Error, "operation did not finish")
		cur.span.End()
		delete(s.spans, key)
	}
}
