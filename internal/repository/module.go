package repository

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// NewLedger opens the configured ledger connection, or returns a NoOpLedger
// when the ledger is disabled.
func NewLedger(cfg *config.Config, provider database.DBProvider) (Ledger, error) {
	if !cfg.App.Ledger.Enabled {
		return NoOpLedger{}, nil
	}
	conn, err := provider.GetConnection(cfg.App.Ledger.DBRef)
	if err != nil {
		return nil, exception.Configuration(moduleName, "failed to open ledger database", err)
	}
	ledger, err := NewGormLedger(context.Background(), conn)
	if err != nil {
		return nil, err
	}
	logger.Infof("Run ledger enabled on '%s' (%s).", conn.Name(), conn.Type())
	return ledger, nil
}

// Module provides Ledger.
var Module = fx.Options(
	fx.Provide(NewLedger),
)
