package telemetry

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
)

// Module installs the providers on start and flushes them on stop.
var Module = fx.Options(
	fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) {
		var providers *Providers
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				p, err := Setup(ctx, cfg.Migrate.Tracing)
				providers = p
				return err
			},
			OnStop: func(ctx context.Context) error {
				if providers == nil {
					return nil
				}
				return providers.Shutdown(ctx)
			},
		})
	}),
)
