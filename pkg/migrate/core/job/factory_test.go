package job_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/database"
	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	storageConfig "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage/local"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/job"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/test"
)

type storages map[string]storageAdapter.StorageConnection

func (s storages) Resolve(_ context.Context, name string) (storageAdapter.StorageConnection, error) {
	conn, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("storage '%s' not configured", name)
	}
	return conn, nil
}

type noDatabases struct{}

func (noDatabases) Resolve(_ context.Context, name string) (database.DBConnection, error) {
	return nil, fmt.Errorf("database '%s' not configured", name)
}

func fileConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Migrate.Source = config.SideConfig{Name: "in", FileOnly: true, StorageRef: "files", Directory: "in"}
	cfg.Migrate.Target = config.SideConfig{Name: "out", FileOnly: true, StorageRef: "files", Directory: "out"}
	cfg.Migrate.Report = config.ReportConfig{StorageRef: "files", Directory: "reports", Format: "csv", FileName: "issues"}
	cfg.Migrate.Objects = []interface{}{
		map[string]interface{}{
			"name":        "Account",
			"operation":   "upsert",
			"external_id": "Name",
			"fields":      []interface{}{map[string]interface{}{"name": "Name", "write": true}},
		},
		map[string]interface{}{
			"name":      "Contact",
			"operation": "upsert",
			"fields": []interface{}{
				map[string]interface{}{"name": "LastName", "write": true},
				map[string]interface{}{"name": "AccountId", "reference_to": "Account", "parent_external_id": "Name"},
			},
		},
	}
	return cfg
}

func TestFactory_BuildsFileToFileRun(t *testing.T) {
	dir := t.TempDir()
	conn, err := local.NewLocalAdapter(storageConfig.StorageConfig{Type: "local", BaseDir: dir}, "files")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "in"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "in", "Account.csv"), []byte("Id,Name\na1,Acme\n"), 0644))

	sink := &test.CapturingSink{}
	f := job.NewFactoryWith(fileConfig(), storages{"files": conn}, noDatabases{}, sink)
	j, err := f.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, j.Tasks(), 2)

	summary, err := j.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Written["Account"])
	require.Len(t, summary.Issues, 1)
	assert.Equal(t, "Contact", summary.Issues[0].ChildObject)

	out, err := os.ReadFile(filepath.Join(dir, "out", "Account.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "a1,Acme")

	reportFile, err := os.ReadFile(filepath.Join(dir, "reports", "issues.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(reportFile), "Contact")
}

func TestFactory_UnknownOperation(t *testing.T) {
	cfg := fileConfig()
	cfg.Migrate.Objects = []interface{}{map[string]interface{}{"name": "Account", "operation": "merge"}}

	_, err := job.NewFactoryWith(cfg, storages{}, noDatabases{}).Build(context.Background())
	assert.ErrorContains(t, err, "merge")
}

func TestFactory_UnresolvableSides(t *testing.T) {
	cfg := fileConfig()
	_, err := job.NewFactoryWith(cfg, storages{}, noDatabases{}).Build(context.Background())
	assert.ErrorContains(t, err, "side 'in'")

	cfg.Migrate.Source = config.SideConfig{Name: "crm", DBRef: "crm"}
	_, err = job.NewFactoryWith(cfg, storages{}, noDatabases{}).Build(context.Background())
	assert.ErrorContains(t, err, "side 'crm'")
}
