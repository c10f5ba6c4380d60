package gorm_test

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/config"
	gormadapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database/gorm"
	coreConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
)

// registerMockDialector registers a dialector type backed by sqlmock and returns the mock.
func registerMockDialector(t *testing.T, dbType string) sqlmock.Sqlmock {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gormadapter.RegisterDialector(dbType, func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.New(mysql.Config{Conn: sqlDB, SkipInitializeWithVersion: true}), nil
	})
	return mock
}

func configWith(databases map[string]interface{}) *coreConfig.Config {
	cfg := coreConfig.NewConfig()
	cfg.Migrate.Databases = databases
	return cfg
}

func TestGetDialectorFactory_Unknown(t *testing.T) {
	_, err := gormadapter.GetDialectorFactory("no-such-db")
	assert.Error(t, err)
}

func TestBaseProvider_GetConnectionIsCached(t *testing.T) {
	mock := registerMockDialector(t, "mock_cached")
	cfg := configWith(map[string]interface{}{
		"target_db": map[string]interface{}{"type": "mock_cached", "pool": map[string]interface{}{"max_open_conns": 4}},
	})
	p := gormadapter.NewBaseProvider(cfg, "mock_cached")
	assert.Equal(t, "mock_cached", p.Type())

	first, err := p.GetConnection("target_db")
	require.NoError(t, err)
	second, err := p.GetConnection("target_db")
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, "target_db", first.Name())
	assert.Equal(t, 4, first.Config().Pool.MaxOpenConns)
	assert.NotNil(t, first.GormDB())

	mock.ExpectClose()
	assert.NoError(t, p.CloseAll())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBaseProvider_MissingConfig(t *testing.T) {
	p := gormadapter.NewBaseProvider(configWith(map[string]interface{}{}), "mysql")
	_, err := p.GetConnection("absent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "absent")
}

func TestBaseProvider_TypeMismatch(t *testing.T) {
	cfg := configWith(map[string]interface{}{
		"target_db": map[string]interface{}{"type": "sqlite", "database": "x.db"},
	})
	p := gormadapter.NewBaseProvider(cfg, "mysql")
	_, err := p.GetConnection("target_db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "type mismatch")
}

func TestBaseProvider_UnregisteredDialector(t *testing.T) {
	cfg := configWith(map[string]interface{}{
		"target_db": map[string]interface{}{"type": "unregistered"},
	})
	p := gormadapter.NewBaseProvider(cfg, "unregistered")
	_, err := p.GetConnection("target_db")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialector registered")
}
