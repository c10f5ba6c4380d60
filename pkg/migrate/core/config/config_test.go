package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

const sampleYAML = `
migrate:
  system:
    logging:
      level: DEBUG
    verbosity: verbose
  batch:
    bulk_threshold: 50
    abort_on_fatal: false
    poll_interval_millis: 250
  source:
    name: csv
    file_only: true
    storage_ref: local
    directory: ${MIGRATE_TEST_DIR}
  target:
    name: org
    db_ref: target
  report:
    storage_ref: local
    format: parquet
  database:
    target:
      type: sqlite
      database: ":memory:"
  storage:
    local:
      type: local
      base_dir: /tmp
  objects:
    - name: Account
      operation: Upsert
      external_id: Name
      fields:
        - name: Name
          write: true
    - name: Contact
      operation: insert
      delete_old_data: true
      fields:
        - name: Account__c
          reference_to: Account
          parent_external_id: Name
          write: "true"
`

func TestNewConfig_Defaults(t *testing.T) {
	cfg := config.NewConfig()

	assert.Equal(t, "INFO", cfg.Migrate.System.Logging.Level)
	assert.Equal(t, 200, cfg.Migrate.Batch.BulkThreshold)
	assert.True(t, cfg.Migrate.Batch.AbortOnFatal)
	assert.Equal(t, "csv", cfg.Migrate.Report.Format)
	assert.Equal(t, 5*time.Second, cfg.Migrate.Batch.PollInterval())
	assert.Equal(t, 10*time.Minute, cfg.Migrate.Batch.PollTimeout())
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("MIGRATE_TEST_DIR", "/data/in")
	t.Setenv("MIGRATE_BATCH_BULK_BATCH_SIZE", "500")
	t.Setenv("MIGRATE_TARGET_NAME", "prod")

	cfg, err := config.LoadConfig("", config.EmbeddedConfig(sampleYAML), nil)
	require.NoError(t, err)

	m := cfg.Migrate
	assert.Equal(t, "DEBUG", m.System.Logging.Level)
	assert.Equal(t, "verbose", m.System.Verbosity)
	assert.Equal(t, 50, m.Batch.BulkThreshold)
	assert.False(t, m.Batch.AbortOnFatal)
	assert.Equal(t, 250*time.Millisecond, m.Batch.PollInterval())
	assert.Equal(t, 200, m.Batch.SingleBatchSize)
	assert.Equal(t, 500, m.Batch.BulkBatchSize)
	assert.Equal(t, "/data/in", m.Source.Directory)
	assert.Equal(t, "prod", m.Target.Name)
	assert.Contains(t, m.Databases, "target")
	assert.Contains(t, m.Storages, "local")

	objects, err := cfg.ObjectDefinitions()
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, "Account", objects[0].Name)
	assert.Nil(t, objects[0].DeleteOldData)
	require.NotNil(t, objects[1].DeleteOldData)
	assert.True(t, *objects[1].DeleteOldData)
	assert.Equal(t, []model.FieldDescriptor{{Name: "Account__c", ReferenceTo: "Account", ParentExternalID: "Name", Write: true}}, objects[1].Fields)
}

func TestLoadConfig_Invalid(t *testing.T) {
	_, err := config.LoadConfig("", config.EmbeddedConfig("migrate:\n  source:\n    file_only: true\n  target:\n    db_ref: x\n"), nil)
	assert.ErrorContains(t, err, "storage_ref")

	_, err = config.LoadConfig("", config.EmbeddedConfig("migrate:\n  source:\n    db_ref: a\n  target:\n    db_ref: b\n  report:\n    format: xml\n"), nil)
	assert.ErrorContains(t, err, "xml")

	_, err = config.LoadConfig("", config.EmbeddedConfig("migrate:\n  source:\n    db_ref: a\n  target:\n    db_ref: b\n  tracing:\n    protocol: udp\n"), nil)
	assert.ErrorContains(t, err, "udp")

	_, err = config.LoadConfig("", config.EmbeddedConfig("migrate: ["), nil)
	assert.Error(t, err)
}

func TestObjectDefinitions_RequiresName(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Migrate.Objects = []interface{}{map[string]interface{}{"operation": "Insert"}}

	_, err := cfg.ObjectDefinitions()
	assert.ErrorContains(t, err, "no name")
}
