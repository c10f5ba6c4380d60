package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// NewPrometheusSinkFromConfig builds the Prometheus sink from migrate.metrics and writes its
// textfile on stop when a path is configured.
func NewPrometheusSinkFromConfig(lc fx.Lifecycle, cfg *config.Config) *PrometheusSink {
	s := NewPrometheusSink(cfg.Migrate.Metrics.Namespace)
	if path := cfg.Migrate.Metrics.TextfilePath; path != "" {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return s.WriteTextfile(path)
			},
		})
	}
	return s
}

// NewGlobalOTelSink creates the OpenTelemetry sink on the global meter provider.
func NewGlobalOTelSink() (*OTelSink, error) {
	return NewOTelSink(otel.Meter("github.com/tigerroll/surfin-migrate"))
}

// Module adds the Prometheus and OpenTelemetry sinks to the "event_sinks" group.
var Module = fx.Options(
	fx.Provide(NewPrometheusSinkFromConfig),
	fx.Provide(fx.Annotate(
		func(s *PrometheusSink) event.Sink { return s },
		fx.ResultTags(`group:"event_sinks"`),
	)),
	fx.Provide(fx.Annotate(
		NewGlobalOTelSink,
		fx.As(new(event.Sink)),
		fx.ResultTags(`group:"event_sinks"`),
	)),
)
