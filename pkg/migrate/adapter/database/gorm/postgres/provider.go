// Package postgres provides the gorm DBProvider for PostgreSQL and Redshift.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
)

// ProviderType is the database type served by this package.
const ProviderType = "postgres"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the key/value DSN expected by gorm.io/driver/postgres.
func ConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
	if c.Schema != "" {
		dsn += " search_path=" + c.Schema
	}
	return dsn
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *coreConfig.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}
