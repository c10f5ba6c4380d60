package postgres

import (
	"go.uber.org/fx"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
)

// Module registers the PostgreSQL provider in the "db_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewProvider,
		fx.ResultTags(database.DBProviderGroup),
	)),
)
