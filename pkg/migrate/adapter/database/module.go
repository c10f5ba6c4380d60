package database

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the database Resolver and closes every connection on stop.
// Concrete providers join through the "db_providers" group.
var Module = fx.Options(
	fx.Provide(NewResolver),
	fx.Invoke(func(lc fx.Lifecycle, r *Resolver) {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return r.CloseAll()
			},
		})
	}),
)
