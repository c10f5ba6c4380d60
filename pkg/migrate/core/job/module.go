package job

import "go.uber.org/fx"

// Module provides the Factory that assembles a run from the configuration.
var Module = fx.Options(
	fx.Provide(NewFactory),
)
