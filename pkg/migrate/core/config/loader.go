package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const moduleName = "config"

// ConfigParams defines the dependencies for NewConfigProvider.
type ConfigParams struct {
	fx.In
	EmbeddedConfig EmbeddedConfig
	EnvFilePath    string              `name:"envFilePath" optional:"true"`
	Expander       EnvironmentExpander `optional:"true"`
}

// LoadConfig loads the configuration: defaults, then the YAML document with ${VAR} placeholders
// expanded, then environment variable overrides named after the yaml tags
// (e.g. MIGRATE_BATCH_BULK_THRESHOLD).
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig, expander EnvironmentExpander) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	} else {
		if err := godotenv.Load(); err != nil {
			logger.Debugf(".env file not found or could not be loaded: %v", err)
		}
	}
	if expander == nil {
		expander = NewOsEnvironmentExpander()
	}

	expanded, err := expander.Expand(embeddedConfig)
	if err != nil {
		return nil, exception.NewMigrationError(moduleName, "failed to expand environment placeholders", err, false)
	}

	// Decoding over the defaults keeps every key the document omits, including false booleans it sets.
	cfg := NewConfig()
	if err := yaml.Unmarshal(expanded, cfg); err != nil {
		return nil, exception.NewMigrationError(moduleName, "failed to unmarshal config", err, false)
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), ""); err != nil {
		return nil, exception.NewMigrationError(moduleName, "failed to load config from environment variables", err, false)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewConfigProvider is an Fx provider that loads *Config and applies its log level.
func NewConfigProvider(params ConfigParams) (*Config, error) {
	cfg, err := LoadConfig(params.EnvFilePath, params.EmbeddedConfig, params.Expander)
	if err != nil {
		return nil, err
	}
	logger.SetLogLevel(cfg.Migrate.System.Logging.Level)
	logger.Infof("Log level set to: %s", cfg.Migrate.System.Logging.Level)
	return cfg, nil
}

// Validate checks the cross-field constraints of the configuration.
func (c *Config) Validate() error {
	m := c.Migrate
	for _, side := range []SideConfig{m.Source, m.Target} {
		if side.FileOnly && side.StorageRef == "" {
			return exception.NewMigrationErrorf(moduleName, "file-only side '%s' requires storage_ref", side.Name)
		}
		if !side.FileOnly && side.DBRef == "" {
			return exception.NewMigrationErrorf(moduleName, "live side '%s' requires db_ref", side.Name)
		}
	}
	switch strings.ToLower(m.Report.Format) {
	case "csv", "parquet":
	default:
		return exception.NewMigrationErrorf(moduleName, "unsupported report format '%s'", m.Report.Format)
	}
	switch strings.ToLower(m.Tracing.Protocol) {
	case "grpc", "http":
	default:
		return exception.NewMigrationErrorf(moduleName, "unsupported tracing protocol '%s'", m.Tracing.Protocol)
	}
	if m.Batch.BulkThreshold < 0 {
		return exception.NewMigrationErrorf(moduleName, "bulk_threshold must not be negative")
	}
	return nil
}

// loadStructFromEnv recursively overrides struct fields from environment variables named after
// their yaml tags, joined by '_' and upper-cased.
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// setField sets a string, int, float or bool field from its textual value. Other kinds are left untouched.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	}
	return nil
}
