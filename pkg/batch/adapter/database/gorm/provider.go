// Package gorm opens database connections through GORM. Dialects register a
// DialectorFactory from their init function, so importing a dialect package
// is enough to make its type usable in configuration.
package gorm

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"gorm.io/gorm"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// DialectorFactory generates a gorm.Dialector from a dbconfig.DatabaseConfig.
type DialectorFactory func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error)

var (
	dialectorRegistry = make(map[string]DialectorFactory)
	dialectorMutex    sync.RWMutex
)

// RegisterDialector registers a DialectorFactory for the given database type.
func RegisterDialector(dbType string, factory DialectorFactory) {
	dialectorMutex.Lock()
	defer dialectorMutex.Unlock()
	if _, exists := dialectorRegistry[dbType]; exists {
		logger.Warnf("Dialector for type '%s' already registered. Overwriting.", dbType)
	}
	dialectorRegistry[dbType] = factory
}

// GetDialectorFactory retrieves the DialectorFactory corresponding to the specified DB type.
func GetDialectorFactory(dbType string) (DialectorFactory, error) {
	dialectorMutex.RLock()
	defer dialectorMutex.RUnlock()
	factory, ok := dialectorRegistry[dbType]
	if !ok {
		return nil, fmt.Errorf("no dialector registered for database type: %s", dbType)
	}
	return factory, nil
}

// gormConnection implements database.DBConnection.
type gormConnection struct {
	db   *gorm.DB
	cfg  dbconfig.DatabaseConfig
	name string
}

var _ database.DBConnection = (*gormConnection)(nil)

// NewGormDBConnection wraps an open *gorm.DB.
func NewGormDBConnection(db *gorm.DB, cfg dbconfig.DatabaseConfig, name string) database.DBConnection {
	return &gormConnection{db: db, cfg: cfg, name: name}
}

func (c *gormConnection) Type() string { return c.cfg.Type }
func (c *gormConnection) Name() string { return c.name }
func (c *gormConnection) Config() dbconfig.DatabaseConfig { return c.cfg }
func (c *gormConnection) GormDB() *gorm.DB { return c.db }

func (c *gormConnection) GetSQLDB() (*sql.DB, error) {
	return c.db.DB()
}

// Close closes the underlying pool.
func (c *gormConnection) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB for '%s': %w", c.name, err)
	}
	return sqlDB.Close()
}

// Provider opens connections for every registered dialect and caches them by name.
type Provider struct {
	sections    dbconfig.Sections
	logLevel    string
	connections map[string]database.DBConnection
	mu          sync.RWMutex
}

var _ database.DBProvider = (*Provider)(nil)

// NewProvider creates a Provider over the named database sections. logLevel
// is passed to NewGormLogger.
func NewProvider(sections dbconfig.Sections, logLevel string) *Provider {
	return &Provider{
		sections:    sections,
		logLevel:    logLevel,
		connections: make(map[string]database.DBConnection),
	}
}

// GetConnection retrieves an existing connection or establishes a new one.
func (p *Provider) GetConnection(name string) (database.DBConnection, error) {
	p.mu.RLock()
	conn, ok := p.connections[name]
	p.mu.RUnlock()
	if ok {
		return conn, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Double check (DCL)
	if conn, ok = p.connections[name]; ok {
		return conn, nil
	}

	dbConfig, err := p.sections.Lookup(name)
	if err != nil {
		return nil, err
	}
	db, err := Open(dbConfig, p.logLevel)
	if err != nil {
		return nil, fmt.Errorf("database connection '%s': %w", name, err)
	}

	conn = NewGormDBConnection(db, dbConfig, name)
	p.connections[name] = conn
	logger.Infof("Established new DB connection: %s (%s)", name, dbConfig.Type)
	return conn, nil
}

// CloseAll closes all connections managed by this provider.
func (p *Provider) CloseAll() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs *multierror.Error
	for name, conn := range p.connections {
		if err := conn.Close(); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("failed to close connection '%s': %w", name, err))
		}
		delete(p.connections, name)
	}
	return errs.ErrorOrNil()
}

// Open establishes a GORM connection based on DatabaseConfig and applies the
// pool settings.
func Open(dbConfig dbconfig.DatabaseConfig, logLevel string) (*gorm.DB, error) {
	dialectorFactory, err := GetDialectorFactory(dbConfig.Type)
	if err != nil {
		return nil, fmt.Errorf("failed to get dialector factory for %s: %w", dbConfig.Type, err)
	}
	dialector, err := dialectorFactory(dbConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create dialector for %s: %w", dbConfig.Type, err)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: NewGormLogger(logLevel)})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if dbConfig.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(dbConfig.Pool.MaxOpenConns)
	}
	if dbConfig.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(dbConfig.Pool.MaxIdleConns)
	}
	if dbConfig.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(dbConfig.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}
	return db, nil
}
