package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// MigrationsTable records the applied ledger schema version.
const MigrationsTable = "nsrdb2epw_schema_migrations"

//go:embed migrations
var migrationFS embed.FS

// Migrator applies the embedded ledger migrations for one connection.
type Migrator struct {
	conn database.DBConnection
}

// NewMigrator creates a Migrator.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn}
}

func (m *Migrator) databaseDriver(sqlDB *sql.DB) (migratedb.Driver, error) {
	switch m.conn.Type() {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: MigrationsTable})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: MigrationsTable})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: MigrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.conn.Type())
	}
}

func (m *Migrator) instance() (*migrate.Migrate, error) {
	sqlDB, err := m.conn.GetSQLDB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sub, err := fs.Sub(migrationFS, "migrations/"+m.conn.Type())
	if err != nil {
		return nil, fmt.Errorf("no migrations for database type %s: %w", m.conn.Type(), err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for %s: %w", m.conn.Type(), err)
	}
	dbDriver, err := m.databaseDriver(sqlDB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database driver: %w", err)
	}
	mInstance, err := migrate.NewWithInstance("iofs", sourceDriver, m.conn.Type(), dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return mInstance, nil
}

// Up applies all pending migrations. The migrate instance is not closed:
// closing it would close the shared *sql.DB owned by the connection.
func (m *Migrator) Up(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger.Debugf("Applying ledger migrations on '%s' (%s).", m.conn.Name(), m.conn.Type())

	mInstance, err := m.instance()
	if err != nil {
		return err
	}
	if err := mInstance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("ledger migration failed (DB: %s): %w", m.conn.Type(), err)
	}

	version, dirty, err := mInstance.Version()
	if err != nil {
		return fmt.Errorf("failed to read ledger schema version: %w", err)
	}
	if dirty {
		return fmt.Errorf("ledger schema version %d is dirty", version)
	}
	logger.Debugf("Ledger schema at version %d.", version)
	return nil
}
