// Package app wires the conversion pipeline with Fx: configuration, logging,
// observability, storage, the run ledger, the provider client and the steps.
package app

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/job"
	"github.com/tigerroll/nsrdb2epw/internal/provider"
	"github.com/tigerroll/nsrdb2epw/internal/repository"
	"github.com/tigerroll/nsrdb2epw/internal/step/processor"
	"github.com/tigerroll/nsrdb2epw/internal/step/resolver"
	"github.com/tigerroll/nsrdb2epw/internal/step/retriever"
	"github.com/tigerroll/nsrdb2epw/internal/step/writer"
	dbconfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/mysql"
	_ "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/postgres"
	_ "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/database/gorm/sqlite"
	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	storageConfig "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/config"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage/local"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	metricsInfra "github.com/tigerroll/nsrdb2epw/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const moduleName = "app"

// NewObservabilitySettings maps the metrics and tracing configuration onto
// the backend settings.
func NewObservabilitySettings(cfg *config.Config) metricsInfra.Settings {
	m, t := cfg.App.Metrics, cfg.App.Tracing
	return metricsInfra.Settings{
		ServiceName:    t.ServiceName,
		Backend:        m.Backend,
		TextfilePath:   m.TextfilePath,
		MetricsOTLP:    metricsInfra.OTLPSettings{Protocol: m.OTLP.Protocol, Endpoint: m.OTLP.Endpoint, Insecure: m.OTLP.Insecure},
		TracingEnabled: t.Enabled,
		TracingOTLP:    metricsInfra.OTLPSettings{Protocol: t.OTLP.Protocol, Endpoint: t.OTLP.Endpoint, Insecure: t.OTLP.Insecure},
	}
}

// NewStorageSections exposes the named storage sections, including the
// synthesized local "results" connection.
func NewStorageSections(cfg *config.Config) storageConfig.Sections {
	return cfg.StorageSection()
}

// NewDatabaseSections exposes the named database sections.
func NewDatabaseSections(cfg *config.Config) dbconfig.Sections {
	return dbconfig.Sections(cfg.App.Database)
}

// StorageResolverParams are the inputs of NewStorageResolver.
type StorageResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Providers []storage.StorageProvider `group:"storage_providers"`
	Sections  storageConfig.Sections
}

// NewStorageResolver builds the connection resolver and closes every
// connection when the application stops.
func NewStorageResolver(p StorageResolverParams) *storage.ConnectionResolver {
	r := storage.NewConnectionResolver(p.Providers, p.Sections)
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return r.CloseAll()
		},
	})
	return r
}

// NewOutputConnection resolves the storage connection receiving outputs.
func NewOutputConnection(r *storage.ConnectionResolver, cfg *config.Config) (storage.StorageConnection, error) {
	conn, err := r.Resolve(cfg.App.Output.StorageRef)
	if err != nil {
		return nil, exception.Configuration(moduleName, "failed to resolve output storage", err)
	}
	logger.Debugf("Outputs go to %s.", conn.Location(cfg.App.Output.Bucket, ""))
	return conn, nil
}

// NewProviderClient builds the HTTP client of the data provider.
func NewProviderClient(cfg *config.Config, recorder metrics.MetricRecorder, tracer metrics.Tracer) *provider.Client {
	p := cfg.App.Provider
	return provider.NewClient(provider.Options{
		DiscoveryURL:    p.DiscoveryURL,
		DownloadBaseURL: p.DownloadBaseURL,
		RateInterval:    p.RateInterval(),
		Timeout:         p.Timeout(),
	}, recorder, tracer)
}

// NewPointResolver builds the resolver with the default marker extractor.
func NewPointResolver(client *provider.Client) *resolver.Resolver {
	return resolver.NewResolver(client, nil)
}

// NewRetriever stores raw downloads next to the EPW outputs.
func NewRetriever(client *provider.Client, conn storage.StorageConnection, cfg *config.Config, recorder metrics.MetricRecorder) *retriever.Retriever {
	return retriever.NewRetriever(client, conn, cfg.App.Output.Bucket, recorder)
}

// NewTransformer builds the transformer with the configured alignment policy.
func NewTransformer(cfg *config.Config) (*processor.Transformer, error) {
	return processor.NewTransformer(cfg.App.Transform.Alignment)
}

// NewEPWWriter builds the EPW emitter.
func NewEPWWriter(conn storage.StorageConnection, cfg *config.Config, recorder metrics.MetricRecorder) *writer.EPWWriter {
	return writer.NewEPWWriter(conn, cfg.App.Output.Bucket, recorder)
}

// NewTableExporter returns the Parquet writer when the export is enabled, nil otherwise.
func NewTableExporter(conn storage.StorageConnection, cfg *config.Config, recorder metrics.MetricRecorder) (job.TableExporter, error) {
	pq := cfg.App.Export.Parquet
	if !pq.Enabled {
		return nil, nil
	}
	w, err := writer.NewParquetWriter(writer.ParquetWriterConfig{
		ObjectPrefix:    pq.ObjectPrefix,
		CompressionType: pq.Compression,
	}, conn, cfg.App.Output.Bucket, recorder)
	if err != nil {
		return nil, err
	}
	return w, nil
}

// JobParams are the inputs of NewJob.
type JobParams struct {
	fx.In
	Config      *config.Config
	Resolver    *resolver.Resolver
	Retriever   *retriever.Retriever
	Transformer *processor.Transformer
	Emitter     *writer.EPWWriter
	Exporter    job.TableExporter
	Output      storage.StorageConnection
	Ledger      repository.Ledger
	Recorder    metrics.MetricRecorder
	Tracer      metrics.Tracer
}

// NewJob assembles the conversion job.
func NewJob(p JobParams) (*job.Job, error) {
	return job.New(job.Dependencies{
		Resolver:     p.Resolver,
		Retriever:    p.Retriever,
		Transformer:  p.Transformer,
		Emitter:      p.Emitter,
		Exporter:     p.Exporter,
		Source:       p.Output,
		SourceBucket: p.Config.App.Output.Bucket,
		Ledger:       p.Ledger,
		Recorder:     p.Recorder,
		Tracer:       p.Tracer,
	}, job.Options{
		Concurrency:   p.Config.App.Job.Concurrency,
		FailurePolicy: p.Config.App.Job.FailurePolicy,
	})
}

// Module provides everything below *config.Config.
var Module = fx.Options(
	fx.Provide(NewObservabilitySettings),
	metricsInfra.Module,

	fx.Provide(NewStorageSections),
	local.Module,
	gcs.Module,
	fx.Provide(NewStorageResolver),
	fx.Provide(NewOutputConnection),

	fx.Provide(NewDatabaseSections),
	fx.Provide(fx.Annotate(
		func(cfg *config.Config) string { return cfg.App.System.Logging.Level },
		fx.ResultTags(`name:"gormLogLevel"`),
	)),
	gormadapter.Module,
	repository.Module,

	fx.Provide(NewProviderClient),
	fx.Provide(NewPointResolver),
	fx.Provide(NewRetriever),
	fx.Provide(NewTransformer),
	fx.Provide(NewEPWWriter),
	fx.Provide(NewTableExporter),
	fx.Provide(NewJob),
)
