package gorm_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/mysql"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/sqlite"
)

func TestProvider_GetConnectionCachesByName(t *testing.T) {
	sections := dbconfig.Sections{
		"ledger": map[string]interface{}{
			"type":     "sqlite",
			"database": filepath.Join(t.TempDir(), "ledger.db"),
			"pool":     map[string]interface{}{"max_open_conns": "1"},
		},
	}
	p := gormadapter.NewProvider(sections, "SILENT")
	t.Cleanup(func() { _ = p.CloseAll() })

	conn, err := p.GetConnection("ledger")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", conn.Type())
	assert.Equal(t, "ledger", conn.Name())
	assert.Equal(t, 1, conn.Config().Pool.MaxOpenConns)

	again, err := p.GetConnection("ledger")
	require.NoError(t, err)
	assert.Same(t, conn, again)

	sqlDB, err := conn.GetSQLDB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Ping())
	assert.Equal(t, 1, sqlDB.Stats().MaxOpenConnections)
}

func TestProvider_Errors(t *testing.T) {
	sections := dbconfig.Sections{
		"oracle": map[string]interface{}{"type": "oracle"},
		"empty":  map[string]interface{}{"type": "sqlite"},
	}
	p := gormadapter.NewProvider(sections, "")

	_, err := p.GetConnection("missing")
	assert.Error(t, err)

	_, err = p.GetConnection("oracle")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no dialector registered")

	_, err = p.GetConnection("empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "path cannot be empty")
	assert.NoError(t, p.CloseAll())
}

func TestConnectionStrings(t *testing.T) {
	cfg := dbconfig.DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p@ss", Database: "runs", Schema: "ledger"}
	assert.Equal(t, "host=db port=5432 user=u password=p@ss dbname=runs sslmode=disable search_path=ledger", postgres.ConnectionString(cfg))

	cfg.Port = 3306
	dsn := mysql.ConnectionString(cfg)
	assert.Contains(t, dsn, "u:p@ss@tcp(db:3306)/runs")
	assert.Contains(t, dsn, "multiStatements=true")
	assert.Contains(t, dsn, "parseTime=true")
}
