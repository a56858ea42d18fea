package configbinder_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/configbinder"
)

type sampleConfig struct {
	Type    string `yaml:"type"`
	Port    int    `yaml:"port"`
	Enabled bool   `yaml:"enabled"`
}

func TestBindPropertiesWeaklyTyped(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{
		"type":    "postgres",
		"port":    "5432",
		"enabled": "true",
	}, &cfg)

	require.NoError(t, err)
	assert.Equal(t, sampleConfig{Type: "postgres", Port: 5432, Enabled: true}, cfg)
}

func TestBindPropertiesEmptyIsNoop(t *testing.T) {
	cfg := sampleConfig{Type: "sqlite"}
	require.NoError(t, configbinder.BindProperties(nil, &cfg))
	assert.Equal(t, "sqlite", cfg.Type)
}

func TestBindPropertiesTypeMismatch(t *testing.T) {
	var cfg sampleConfig
	err := configbinder.BindProperties(map[string]interface{}{"port": "not-a-number"}, &cfg)
	assert.ErrorContains(t, err, "sampleConfig")
}

func TestBindNamed(t *testing.T) {
	section := map[string]interface{}{
		"ledger": map[string]interface{}{"type": "sqlite", "port": 0},
		"broken": "text",
	}

	var cfg sampleConfig
	require.NoError(t, configbinder.BindNamed(section, "ledger", &cfg))
	assert.Equal(t, "sqlite", cfg.Type)

	assert.Error(t, configbinder.BindNamed(section, "missing", &cfg))
	assert.Error(t, configbinder.BindNamed(section, "broken", &cfg))
}
