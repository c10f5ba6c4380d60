package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// TracerName is the instrumentation name of the engine's spans.
const TracerName = "github.com/tigerroll/surfin-migrate"

// NewGlobalSink creates the sink on the global tracer provider and ends dangling spans on stop.
func NewGlobalSink(lc fx.Lifecycle) *Sink {
	s := NewSink(otel.Tracer(TracerName))
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			s.EndAll()
			return nil
		},
	})
	return s
}

// Module adds the tracing sink to the "event_sinks" group.
var Module = fx.Options(
	fx.Provide(NewGlobalSink),
	fx.Provide(fx.Annotate(
		func(s *Sink) event.Sink { return s },
		fx.ResultTags(`group:"event_sinks"`),
	)),
)
