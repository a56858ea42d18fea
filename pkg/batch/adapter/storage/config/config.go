// Package config holds the storage connection settings decoded from the
// "storage" section of application.yaml.
package config

import (
	"fmt"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/configbinder"
)

// StorageConfig holds configuration for a single storage connection.
type StorageConfig struct {
	Type            string `yaml:"type"`             // Type of storage ("local", "gcs").
	BucketName      string `yaml:"bucket_name"`      // Default bucket name for operations.
	CredentialsFile string `yaml:"credentials_file"` // Service account key for GCS; empty uses application default credentials.
	BaseDir         string `yaml:"base_dir"`         // Base directory for local file system operations.
}

// Sections is the raw map of named storage configurations.
type Sections map[string]interface{}

// Lookup decodes the named entry.
func (s Sections) Lookup(name string) (StorageConfig, error) {
	var cfg StorageConfig
	if err := configbinder.BindNamed(s, name, &cfg); err != nil {
		return StorageConfig{}, fmt.Errorf("storage connection '%s': %w", name, err)
	}
	if cfg.Type == "" {
		return StorageConfig{}, fmt.Errorf("storage connection '%s': type is required", name)
	}
	return cfg, nil
}
