package logging

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
)

// NewSinkFromConfig builds the logging sink from migrate.system.verbosity.
func NewSinkFromConfig(cfg *config.Config) *Sink {
	return NewSink(event.ParseVerbosity(cfg.Migrate.System.Verbosity))
}

// Module adds the logging sink to the "event_sinks" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewSinkFromConfig,
		fx.As(new(event.Sink)),
		fx.ResultTags(`group:"event_sinks"`),
	)),
)
