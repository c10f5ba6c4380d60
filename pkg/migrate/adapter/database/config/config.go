// Package config holds the database connection settings of live sides.
package config

import (
	"fmt"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/configbinder"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `yaml:"type"` // "postgres", "redshift", "mysql" or "sqlite".
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"` // Database name, or the file path for SQLite.
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Schema   string `yaml:"schema,omitempty"` // PostgreSQL/Redshift search path.
	Sslmode  string `yaml:"sslmode"`
	// LogLevel overrides the gorm log level ("silent", "error", "warn", "info").
	LogLevel string     `yaml:"log_level,omitempty"`
	Pool     PoolConfig `yaml:"pool"`
}

// Lookup binds the named entry of the raw "database" configuration map.
func Lookup(raw map[string]interface{}, name string) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	named, ok := raw[name]
	if !ok {
		return cfg, fmt.Errorf("database configuration '%s' not found", name)
	}
	if err := configbinder.BindProperties(named, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	return cfg, nil
}
