// Package config holds the database connection settings decoded from the
// "database" section of application.yaml.
package config

import (
	"fmt"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/configbinder"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `yaml:"max_open_conns"`
	MaxIdleConns           int `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string     `yaml:"type"`             // Database type ("postgres", "mysql", "sqlite").
	Host     string     `yaml:"host"`             // Database host address.
	Port     int        `yaml:"port"`             // Database port number.
	Database string     `yaml:"database"`         // Database name, or the file path for sqlite.
	User     string     `yaml:"user"`             // Database user.
	Password string     `yaml:"password"`         // Database password.
	Schema   string     `yaml:"schema,omitempty"` // Schema name for PostgreSQL.
	Sslmode  string     `yaml:"sslmode"`          // SSL mode for the connection.
	Pool     PoolConfig `yaml:"pool"`             // Connection pool settings.
}

// Sections is the raw map of named database configurations.
type Sections map[string]interface{}

// Lookup decodes the named entry.
func (s Sections) Lookup(name string) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	if err := configbinder.BindNamed(s, name, &cfg); err != nil {
		return DatabaseConfig{}, fmt.Errorf("database connection '%s': %w", name, err)
	}
	if cfg.Type == "" {
		return DatabaseConfig{}, fmt.Errorf("database connection '%s': type is required", name)
	}
	return cfg, nil
}
