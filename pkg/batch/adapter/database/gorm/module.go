package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database"
	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
)

// ProviderParams are the inputs of NewProviderWithLifecycle.
type ProviderParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Sections  dbconfig.Sections
	LogLevel  string `name:"gormLogLevel" optional:"true"`
}

// NewProviderWithLifecycle creates a Provider whose connections are closed on stop.
func NewProviderWithLifecycle(p ProviderParams) database.DBProvider {
	provider := NewProvider(p.Sections, p.LogLevel)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return provider.CloseAll()
		},
	})
	return provider
}

// Module provides database.DBProvider. Dialects are registered by importing
// the sqlite, postgres and mysql sub-packages.
var Module = fx.Options(
	fx.Provide(NewProviderWithLifecycle),
)
