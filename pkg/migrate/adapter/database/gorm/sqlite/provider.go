// Package sqlite provides the gorm DBProvider for SQLite.
package sqlite

import (
	"errors"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
)

// ProviderType is the database type served by this package.
const ProviderType = "sqlite"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString returns the database file path, which is what the SQLite dialector expects.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *coreConfig.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}
