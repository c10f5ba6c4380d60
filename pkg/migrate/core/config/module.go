package config

import "go.uber.org/fx"

// NewLoggingConfigProvider extracts *LoggingConfig from *Config.
func NewLoggingConfigProvider(cfg *Config) *LoggingConfig {
	return &cfg.Migrate.System.Logging
}

// NewBatchConfigProvider extracts BatchConfig from *Config.
func NewBatchConfigProvider(cfg *Config) BatchConfig {
	return cfg.Migrate.Batch
}

// Module provides the configuration and its commonly injected parts.
var Module = fx.Options(
	fx.Provide(func() EnvironmentExpander {
		return NewOsEnvironmentExpander()
	}),
	fx.Provide(NewConfigProvider),
	fx.Provide(NewLoggingConfigProvider),
	fx.Provide(NewBatchConfigProvider),
)
