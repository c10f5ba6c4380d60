// Package mysql provides the gorm DBProvider for MySQL.
package mysql

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
)

// ProviderType is the database type served by this package.
const ProviderType = "mysql"

func init() {
	gormadapter.RegisterDialector(ProviderType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
}

// ConnectionString builds the DSN expected by gorm.io/driver/mysql:
// user:password@tcp(host:port)/dbname?charset=utf8mb4&parseTime=True&loc=Local
func ConnectionString(c dbconfig.DatabaseConfig) string {
	var auth string
	if c.User != "" {
		auth = c.User
		if c.Password != "" {
			auth = fmt.Sprintf("%s:%s", c.User, c.Password)
		}
		auth += "@"
	}
	return fmt.Sprintf("%stcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		auth, c.Host, c.Port, c.Database)
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *coreConfig.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, ProviderType)
}
