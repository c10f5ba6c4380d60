// Package database defines the connection contracts of the live-side database adapters.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
)

// DBConnection is a named, closable connection to a live store.
type DBConnection interface {
	Close() error
	Type() string
	Name() string
	Config() dbconfig.DatabaseConfig
	// GormDB returns the gorm handle used by the SQL API client.
	GormDB() *gorm.DB
	GetSQLDB() (*sql.DB, error)
	Ping(ctx context.Context) error
}

// DBProvider creates and caches the connections of one database type.
type DBProvider interface {
	GetConnection(name string) (DBConnection, error)
	ForceReconnect(name string) (DBConnection, error)
	CloseAll() error
	Type() string
}

// DBProviderGroup is the fx value group concrete providers join.
const DBProviderGroup = `group:"db_providers"`
