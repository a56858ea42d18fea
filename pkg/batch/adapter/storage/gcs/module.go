package gcs

import (
	"go.uber.org/fx"

	storageAdapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
)

// Module provides the GCSProvider in the "storage_providers" group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		NewGCSProvider,
		fx.As(new(storageAdapter.StorageProvider)),
		fx.ResultTags(`group:"storage_providers"`),
	)),
)
