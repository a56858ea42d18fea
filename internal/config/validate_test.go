package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

func validConfig() *Config {
	cfg := NewConfig()
	cfg.App.Request.Geometry = "POINT(-76.5 42.44)"
	cfg.App.Request.Years = []string{"2020"}
	cfg.App.Request.APIKey = "key"
	return cfg
}

func TestDefaultsValidate(t *testing.T) {
	require.NoError(t, NewConfig().Validate())
	require.NoError(t, validConfig().ValidateRequest())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"mode":             func(c *Config) { c.App.Provider.Mode = "ftp" },
		"csv group size":   func(c *Config) { c.App.Provider.GroupSize = 3 },
		"zero group size":  func(c *Config) { c.App.Provider.Mode = ModeJob; c.App.Provider.GroupSize = 0 },
		"alignment":        func(c *Config) { c.App.Transform.Alignment = "reindex" },
		"failure policy":   func(c *Config) { c.App.Job.FailurePolicy = "retry" },
		"concurrency":      func(c *Config) { c.App.Job.Concurrency = 0 },
		"metrics backend":  func(c *Config) { c.App.Metrics.Backend = "statsd" },
		"timeout":          func(c *Config) { c.App.Provider.TimeoutSeconds = 0 },
		"empty attributes": func(c *Config) { c.App.Provider.Attributes = nil },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrConfiguration))
		})
	}
}

func TestJobModeAllowsGroups(t *testing.T) {
	cfg := validConfig()
	cfg.App.Provider.Mode = ModeJob
	cfg.App.Provider.GroupSize = 10
	assert.NoError(t, cfg.Validate())
}

func TestValidateRequestRejects(t *testing.T) {
	cases := map[string]func(*Config){
		"geometry": func(c *Config) { c.App.Request.Geometry = "LINESTRING(0 0, 1 1)" },
		"dataset":  func(c *Config) { c.App.Request.Dataset = "europe" },
		"interval": func(c *Config) { c.App.Request.Interval = 20 },
		"years":    func(c *Config) { c.App.Request.Years = nil },
		"blank":    func(c *Config) { c.App.Request.Years = []string{" "} },
		"api key":  func(c *Config) { c.App.Request.APIKey = "" },
		"email":    func(c *Config) { c.App.Request.Email = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(cfg)
			assert.True(t, errors.Is(cfg.ValidateRequest(), exception.ErrConfiguration))
		})
	}
}

func TestStorageSectionSynthesizesResults(t *testing.T) {
	cfg := NewConfig()
	cfg.App.Output.Dir = "/tmp/epw"

	section := cfg.StorageSection()
	results, ok := section["results"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "local", results["type"])
	assert.Equal(t, "/tmp/epw", results["base_dir"])

	cfg.App.Storage["results"] = map[string]interface{}{"type": "gcs"}
	assert.Equal(t, "gcs", cfg.StorageSection()["results"].(map[string]interface{})["type"])
}
