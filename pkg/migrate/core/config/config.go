// Package config provides the configuration structures of the migration engine.
package config

import (
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/configbinder"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
)

// EmbeddedConfig holds the content of the configuration file, typically passed from main.go.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG").
	Level string `yaml:"level"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
	// Verbosity is the event output verbosity: "minimal", "normal" or "verbose".
	Verbosity string `yaml:"verbosity"`
}

// BatchConfig holds the execution settings shared by every object.
type BatchConfig struct {
	// BulkThreshold is the largest record count still served by single requests.
	BulkThreshold      int  `yaml:"bulk_threshold"`
	BulkBatchSize      int  `yaml:"bulk_batch_size"`
	SingleBatchSize    int  `yaml:"single_batch_size"`
	PollIntervalMillis int  `yaml:"poll_interval_millis"`
	PollTimeoutSeconds int  `yaml:"poll_timeout_seconds"`
	AbortOnFatal       bool `yaml:"abort_on_fatal"`
	// DeleteOldData is the default for objects that do not set delete_old_data.
	DeleteOldData bool `yaml:"delete_old_data"`
}

// PollInterval returns the bulk poll interval.
func (c BatchConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMillis) * time.Millisecond
}

// PollTimeout returns the bulk poll timeout. Zero means no timeout.
func (c BatchConfig) PollTimeout() time.Duration {
	return time.Duration(c.PollTimeoutSeconds) * time.Second
}

// SideConfig describes the source or the target of a migration.
type SideConfig struct {
	Name string `yaml:"name"`
	// FileOnly selects record files instead of a live store.
	FileOnly bool `yaml:"file_only"`
	// DBRef names the database connection of a live side.
	DBRef string `yaml:"db_ref"`
	// StorageRef names the storage connection of a file-only side.
	StorageRef string `yaml:"storage_ref"`
	// Directory is the path of the record files within the storage.
	Directory string `yaml:"directory"`
}

// ReportConfig describes where the issue report is written.
type ReportConfig struct {
	StorageRef string `yaml:"storage_ref"`
	Directory  string `yaml:"directory"`
	// Format is "csv" or "parquet".
	Format   string `yaml:"format"`
	FileName string `yaml:"file_name"`
}

// MetricsConfig holds Prometheus settings.
type MetricsConfig struct {
	Namespace string `yaml:"namespace"`
	// TextfilePath, when set, receives the registry in text format on shutdown
	// (for the node_exporter textfile collector).
	TextfilePath string `yaml:"textfile_path"`
}

// TracingConfig holds OpenTelemetry settings. An empty endpoint disables export.
type TracingConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint"`
	// Protocol is "grpc" or "http".
	Protocol    string `yaml:"protocol"`
	Insecure    bool   `yaml:"insecure"`
	ServiceName string `yaml:"service_name"`
}

// ObjectConfig is one migrated object as configured.
type ObjectConfig struct {
	Name          string                  `yaml:"name"`
	Operation     string                  `yaml:"operation"`
	ExternalID    string                  `yaml:"external_id"`
	Query         string                  `yaml:"query"`
	DeleteQuery   string                  `yaml:"delete_query"`
	DeleteOldData *bool                   `yaml:"delete_old_data"`
	Fields        []model.FieldDescriptor `yaml:"fields"`
}

// MigrateConfig holds all configuration under the "migrate" top-level key.
type MigrateConfig struct {
	System  SystemConfig  `yaml:"system"`
	Batch   BatchConfig   `yaml:"batch"`
	Source  SideConfig    `yaml:"source"`
	Target  SideConfig    `yaml:"target"`
	Report  ReportConfig  `yaml:"report"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
	// Databases holds the named database connection settings, bound by the database providers.
	Databases map[string]interface{} `yaml:"database"`
	// Storages holds the named storage connection settings, bound by the storage providers.
	Storages map[string]interface{} `yaml:"storage"`
	// Objects is the ordered object list, parents first.
	Objects []interface{} `yaml:"objects"`
}

// Config is the root structure of the application configuration.
type Config struct {
	Migrate MigrateConfig `yaml:"migrate"`
}

// NewConfig returns a Config holding the default values.
func NewConfig() *Config {
	return &Config{
		Migrate: MigrateConfig{
			System: SystemConfig{
				Logging:   LoggingConfig{Level: "INFO"},
				Verbosity: "normal",
			},
			Batch: BatchConfig{
				BulkThreshold:      200,
				BulkBatchSize:      10000,
				SingleBatchSize:    200,
				PollIntervalMillis: 5000,
				PollTimeoutSeconds: 600,
				AbortOnFatal:       true,
			},
			Source: SideConfig{Name: "source"},
			Target: SideConfig{Name: "target"},
			Report: ReportConfig{
				Format:   "csv",
				FileName: "CSVIssuesReport",
			},
			Metrics: MetricsConfig{Namespace: "migrate"},
			Tracing: TracingConfig{Protocol: "grpc", ServiceName: "surfin-migrate"},
		},
	}
}

// ObjectDefinitions binds the configured object list.
func (c *Config) ObjectDefinitions() ([]ObjectConfig, error) {
	out := make([]ObjectConfig, 0, len(c.Migrate.Objects))
	for i, raw := range c.Migrate.Objects {
		var oc ObjectConfig
		if err := configbinder.BindProperties(raw, &oc); err != nil {
			return nil, exception.NewMigrationErrorf(moduleName, "failed to bind object #%d", i, err)
		}
		if oc.Name == "" {
			return nil, exception.NewMigrationErrorf(moduleName, "object #%d has no name", i)
		}
		out = append(out, oc)
	}
	return out, nil
}
