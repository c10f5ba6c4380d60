package storage

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the storage Resolver and closes every connection on stop.
// Concrete providers join through the "storage_providers" group.
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
