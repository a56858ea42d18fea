// Package database defines the connection abstraction used by the run ledger.
package database

import (
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
)

// DBConnection represents an open, named database connection.
type DBConnection interface {
	// Close releases the underlying pool.
	Close() error
	// Type returns the database type ("sqlite", "postgres", "mysql").
	Type() string
	// Name returns the connection name from configuration.
	Name() string
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// GormDB returns the GORM handle.
	GormDB() *gorm.DB
}

// DBProvider opens and caches database connections by name.
type DBProvider interface {
	// GetConnection retrieves a database connection with the specified name.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
}
