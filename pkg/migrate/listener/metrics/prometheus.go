// Package metrics records task events as Prometheus and OpenTelemetry metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// PrometheusSink counts status transitions and records per object and operation.
type PrometheusSink struct {
	registry *prometheus.Registry

	statusTotal      *prometheus.CounterVec
	recordsProcessed *prometheus.CounterVec
	recordsFailed    *prometheus.CounterVec
	operationSeconds *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

var _ event.Sink = (*PrometheusSink)(nil)

// NewPrometheusSink creates a sink with its own registry. Go runtime and process collectors are
// registered alongside.
func NewPrometheusSink(namespace string) *PrometheusSink {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	s := &PrometheusSink{
		registry: registry,
		statusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "status_total",
			Help:      "Bulk operation status transitions by object, operation and status.",
		}, []string{"object", "operation", "status"}),
		recordsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_processed_total",
			Help:      "Records processed by finished operations.",
		}, []string{"object", "operation"}),
		recordsFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_failed_total",
			Help:      "Records rejected by finished operations.",
		}, []string{"object", "operation"}),
		operationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration from OperationStarted to OperationFinished.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"object", "operation"}),
		started: make(map[string]time.Time),
	}
	registry.MustRegister(s.statusTotal, s.recordsProcessed, s.recordsFailed, s.operationSeconds)
	return s
}

// Registry returns the Prometheus registry.
func (s *PrometheusSink) Registry() *prometheus.Registry {
	return s.registry
}

// Emit implements event.Sink.
func (s *PrometheusSink) Emit(e event.Event) {
	op := e.Operation.String()
	s.statusTotal.WithLabelValues(e.Object, op, e.Status.String()).Inc()

	key := e.Object + "/" + op
	switch e.Status {
	case model.APIStatusOperationStarted:
		s.mu.Lock()
		s.started[key] = e.Time
		s.mu.Unlock()
	case model.APIStatusOperationFinished:
		s.recordsProcessed.WithLabelValues(e.Object, op).Add(float64(e.Processed))
		s.recordsFailed.WithLabelValues(e.Object, op).Add(float64(e.Failed))
		s.mu.Lock()
		start, ok := s.started[key]
		delete(s.started, key)
		s.mu.Unlock()
		if ok && !start.IsZero() && !e.Time.IsZero() {
			s.operationSeconds.WithLabelValues(e.Object, op).Observe(e.Time.Sub(start).Seconds())
		}
	}
}

// WriteTextfile writes the registry in the text exposition format to path.
func (s *PrometheusSink) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, s.registry); err != nil {
		return err
	}
	logger.Infof("Metrics written to '%s'.", path)
	return nil
}
