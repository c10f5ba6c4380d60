package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/configbinder"
)

type sampleConfig struct {
	Type      string `yaml:"type"`
	BaseDir   string `yaml:"base_dir"`
	Threshold int    `yaml:"threshold"`
	FileOnly  bool   `yaml:"file_only"`
}

func TestBindProperties(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{
		"type":      "local",
		"base_dir":  "/tmp/csv",
		"threshold": "250",
		"file_only": "true",
	}, &cfg)
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Type)
	assert.Equal(t, "/tmp/csv", cfg.BaseDir)
	assert.Equal(t, 250, cfg.Threshold)
	assert.True(t, cfg.FileOnly)
}

func TestBindProperties_NilIsNoOp(t *testing.T) {
	cfg := sampleConfig{Type: "keep"}
	require.NoError(t, configbinder.BindProperties(nil, &cfg))
	assert.Equal(t, "keep", cfg.Type)
}

func TestBindProperties_TypeError(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{"threshold": "not-a-number"}, &cfg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sampleConfig")
}
