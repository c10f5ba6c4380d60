// Package config holds the storage connection settings.
package config

import (
	"fmt"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	// Type is the storage type ("local" or "gcs").
	Type string `yaml:"type"`
	// BucketName is the default bucket.
	BucketName string `yaml:"bucket_name"`
	// CredentialsFile is the service account key of GCS connections. Empty uses default credentials.
	CredentialsFile string `yaml:"credentials_file"`
	// BaseDir is the root directory of local connections.
	BaseDir string `yaml:"base_dir"`
}

// Lookup binds the named entry of the raw "storage" configuration map.
func Lookup(raw map[string]interface{}, name string) (StorageConfig, error) {
	var cfg StorageConfig
	named, ok := raw[name]
	if !ok {
		return cfg, fmt.Errorf("storage configuration for name '%s' not found", name)
	}
	if err := configbinder.BindProperties(named, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	return cfg, nil
}
