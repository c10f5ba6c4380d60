package local

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
)

// Module registers the local provider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewLocalProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
