// Package config defines the nsrdb2epw configuration tree, its defaults, and
// the loader that layers embedded YAML, an optional user file, .env and
// environment variables on top of those defaults.
package config

import "time"

// EmbeddedConfig holds the content of the configuration file compiled into the binary.
type EmbeddedConfig []byte

// Retrieval modes.
const (
	ModeCSV = "csv"
	ModeJob = "job"
)

// Row alignment policies of the field transformer.
const (
	AlignmentPositional = "positional"
	AlignmentStrict     = "strict"
)

// Failure policies of the conversion job.
const (
	FailurePolicyAbort    = "abort"
	FailurePolicyContinue = "continue"
)

// Metrics backends.
const (
	MetricsBackendNone       = "none"
	MetricsBackendPrometheus = "prometheus"
	MetricsBackendOTel       = "otel"
)

// DefaultAttributes is the attribute list requested for every download.
var DefaultAttributes = []string{
	"dew_point", "ghi", "air_temperature", "wind_direction", "surface_albedo",
	"dhi", "dni", "surface_pressure", "wind_speed",
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (e.g., "INFO", "DEBUG", "TRACE").
	Level string `yaml:"level"`
}

// SystemConfig holds process-wide settings.
type SystemConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// RequestConfig describes what to download.
type RequestConfig struct {
	// Geometry is a WKT POINT, MULTIPOINT or POLYGON.
	Geometry string `yaml:"geometry"`
	// Dataset is one of the dataset tokens (CONUS, full-disc, TMY, aggregated).
	Dataset string `yaml:"dataset"`
	// Interval is the sampling interval in minutes.
	Interval int `yaml:"interval"`
	// Years are the names requested from the provider, one download per entry.
	Years  []string `yaml:"years"`
	APIKey string   `yaml:"api_key"`
	Email  string   `yaml:"email"`
}

// ProviderConfig holds the HTTP contract with the data provider.
type ProviderConfig struct {
	// Mode selects the retrieval endpoint: "csv" (synchronous) or "job" (submission).
	Mode            string   `yaml:"mode"`
	DiscoveryURL    string   `yaml:"discovery_url"`
	DownloadBaseURL string   `yaml:"download_base_url"`
	Attributes      []string `yaml:"attributes"`
	// GroupSize is the number of points bundled per request. CSV mode requires 1.
	GroupSize int `yaml:"group_size"`
	// RateIntervalMillis is the minimum spacing between two provider requests.
	RateIntervalMillis int `yaml:"rate_interval_millis"`
	// TimeoutSeconds bounds each HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// RateInterval returns RateIntervalMillis as a duration.
func (p ProviderConfig) RateInterval() time.Duration {
	return time.Duration(p.RateIntervalMillis) * time.Millisecond
}

// Timeout returns TimeoutSeconds as a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// OutputConfig holds where and how EPW files are written.
type OutputConfig struct {
	// Dir is the results directory; it backs the default "results" storage.
	Dir      string `yaml:"dir"`
	Location string `yaml:"location"`
	State    string `yaml:"state"`
	Country  string `yaml:"country"`
	// StorageRef names the storage connection (see Storage) receiving outputs.
	StorageRef string `yaml:"storage_ref"`
	// Bucket is passed to the storage connection; empty uses its default bucket.
	Bucket string `yaml:"bucket"`
}

// TransformConfig configures the field transformer.
type TransformConfig struct {
	// Alignment is "positional" (row i is hour i) or "strict" (timestamps must match).
	Alignment string `yaml:"alignment"`
}

// JobConfig configures the conversion job.
type JobConfig struct {
	Concurrency   int    `yaml:"concurrency"`
	FailurePolicy string `yaml:"failure_policy"`
}

// ParquetExportConfig configures the optional Parquet copy of every EPW table.
type ParquetExportConfig struct {
	Enabled bool `yaml:"enabled"`
	// Compression is a parquet-go codec name (SNAPPY, GZIP, ZSTD, UNCOMPRESSED).
	Compression  string `yaml:"compression"`
	ObjectPrefix string `yaml:"object_prefix"`
}

// ExportConfig groups secondary exports.
type ExportConfig struct {
	Parquet ParquetExportConfig `yaml:"parquet"`
}

// LedgerConfig configures the run ledger.
type LedgerConfig struct {
	Enabled bool `yaml:"enabled"`
	// DBRef names the database connection (see Database) holding the ledger.
	DBRef string `yaml:"db_ref"`
}

// OTLPConfig holds an OTLP exporter target.
type OTLPConfig struct {
	// Protocol is "http" or "grpc".
	Protocol string `yaml:"protocol"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// MetricsConfig selects the metric recorder.
type MetricsConfig struct {
	// Backend is "none", "prometheus" or "otel".
	Backend string `yaml:"backend"`
	// TextfilePath is where the Prometheus registry is dumped at shutdown
	// (node_exporter textfile collector format). Empty disables the dump.
	TextfilePath string     `yaml:"textfile_path"`
	OTLP         OTLPConfig `yaml:"otlp"`
}

// TracingConfig enables OpenTelemetry spans.
type TracingConfig struct {
	Enabled     bool       `yaml:"enabled"`
	ServiceName string     `yaml:"service_name"`
	OTLP        OTLPConfig `yaml:"otlp"`
}

// AppConfig holds all configuration under the "nsrdb2epw" top-level key.
type AppConfig struct {
	System    SystemConfig    `yaml:"system"`
	Request   RequestConfig   `yaml:"request"`
	Provider  ProviderConfig  `yaml:"provider"`
	Output    OutputConfig    `yaml:"output"`
	Transform TransformConfig `yaml:"transform"`
	Job       JobConfig       `yaml:"job"`
	Export    ExportConfig    `yaml:"export"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Tracing   TracingConfig   `yaml:"tracing"`
	// Storage holds named storage connections, decoded with configbinder.
	Storage map[string]interface{} `yaml:"storage"`
	// Database holds named database connections, decoded with configbinder.
	Database map[string]interface{} `yaml:"database"`
}

// Config is the root structure for the entire application configuration.
type Config struct {
	App AppConfig `yaml:"nsrdb2epw"`
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	attrs := make([]string, len(DefaultAttributes))
	copy(attrs, DefaultAttributes)

	return &Config{
		App: AppConfig{
			System: SystemConfig{Logging: LoggingConfig{Level: "INFO"}},
			Request: RequestConfig{
				Dataset:  "CONUS",
				Interval: 60,
				Email:    "example@mail.com",
			},
			Provider: ProviderConfig{
				Mode:               ModeCSV,
				DiscoveryURL:       "https://maps-api.nrel.gov/bigdata/v2/sample-code",
				DownloadBaseURL:    "https://developer.nrel.gov/api/nsrdb/v2/solar",
				Attributes:         attrs,
				GroupSize:          1,
				RateIntervalMillis: 1000,
				TimeoutSeconds:     120,
			},
			Output: OutputConfig{
				Dir:        "results",
				Location:   "Unknown",
				State:      "New York",
				Country:    "United States",
				StorageRef: "results",
			},
			Transform: TransformConfig{Alignment: AlignmentPositional},
			Job:       JobConfig{Concurrency: 1, FailurePolicy: FailurePolicyAbort},
			Export: ExportConfig{Parquet: ParquetExportConfig{
				Compression:  "SNAPPY",
				ObjectPrefix: "parquet",
			}},
			Ledger:  LedgerConfig{DBRef: "ledger"},
			Metrics: MetricsConfig{Backend: MetricsBackendNone, OTLP: OTLPConfig{Protocol: "http"}},
			Tracing: TracingConfig{ServiceName: "nsrdb2epw", OTLP: OTLPConfig{Protocol: "http"}},
			Storage:  map[string]interface{}{},
			Database: map[string]interface{}{},
		},
	}
}

// StorageSection returns the named storage section. When the output storage
// reference is not configured explicitly, a local connection rooted at
// Output.Dir is synthesized so the common case needs no storage block.
func (c *Config) StorageSection() map[string]interface{} {
	section := make(map[string]interface{}, len(c.App.Storage)+1)
	for k, v := range c.App.Storage {
		section[k] = v
	}
	if _, ok := section[c.App.Output.StorageRef]; !ok {
		section[c.App.Output.StorageRef] = map[string]interface{}{
			"type":     "local",
			"base_dir": c.App.Output.Dir,
		}
	}
	return section
}
