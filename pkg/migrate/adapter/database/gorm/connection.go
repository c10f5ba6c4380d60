package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Connection implements database.DBConnection over a gorm handle.
type Connection struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

var _ database.DBConnection = (*Connection)(nil)

// NewConnection wraps an open gorm handle.
func NewConnection(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) *Connection {
	return &Connection{db: db, cfg: cfg, name: name}
}

func (c *Connection) GormDB() *gorm.DB { return c.db }

func (c *Connection) Config() dbconfig.DatabaseConfig { return c.cfg }

func (c *Connection) Type() string { return c.cfg.Type }

func (c *Connection) Name() string { return c.name }

func (c *Connection) GetSQLDB() (*sql.DB, error) {
	return c.db.DB()
}

// Ping verifies the connection is still alive.
func (c *Connection) Ping(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB for '%s': %w", c.name, err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying pool.
func (c *Connection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB for '%s': %w", c.name, err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close DB connection '%s': %w", c.name, err)
	}
	logger.Debugf("Closed DB connection '%s'.", c.name)
	return nil
}
