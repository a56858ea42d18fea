package config

import (
	"fmt"
	"strings"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

// supportedIntervals are the sampling intervals (minutes) the provider serves.
var supportedIntervals = map[int]bool{5: true, 10: true, 15: true, 30: true, 60: true}

// Validate checks the settings every command depends on. All failures are
// ConfigurationErrors.
func (c *Config) Validate() error {
	app := c.App
	switch app.Provider.Mode {
	case ModeCSV, ModeJob:
	default:
		return invalid("provider.mode must be %q or %q, got %q", ModeCSV, ModeJob, app.Provider.Mode)
	}
	if app.Provider.GroupSize < 1 {
		return invalid("provider.group_size must be at least 1, got %d", app.Provider.GroupSize)
	}
	if app.Provider.Mode == ModeCSV && app.Provider.GroupSize != 1 {
		return invalid("provider.group_size must be 1 in csv mode, got %d", app.Provider.GroupSize)
	}
	if app.Provider.RateIntervalMillis < 0 {
		return invalid("provider.rate_interval_millis must not be negative")
	}
	if app.Provider.TimeoutSeconds <= 0 {
		return invalid("provider.timeout_seconds must be positive")
	}
	if len(app.Provider.Attributes) == 0 {
		return invalid("provider.attributes must not be empty")
	}
	switch app.Transform.Alignment {
	case AlignmentPositional, AlignmentStrict:
	default:
		return invalid("transform.alignment must be %q or %q, got %q", AlignmentPositional, AlignmentStrict, app.Transform.Alignment)
	}
	switch app.Job.FailurePolicy {
	case FailurePolicyAbort, FailurePolicyContinue:
	default:
		return invalid("job.failure_policy must be %q or %q, got %q", FailurePolicyAbort, FailurePolicyContinue, app.Job.FailurePolicy)
	}
	if app.Job.Concurrency < 1 {
		return invalid("job.concurrency must be at least 1, got %d", app.Job.Concurrency)
	}
	switch app.Metrics.Backend {
	case MetricsBackendNone, MetricsBackendPrometheus, MetricsBackendOTel:
	default:
		return invalid("metrics.backend must be one of none, prometheus, otel, got %q", app.Metrics.Backend)
	}
	if app.Output.StorageRef == "" {
		return invalid("output.storage_ref must not be empty")
	}
	if app.Output.Location == "" {
		return invalid("output.location must not be empty")
	}
	return nil
}

// ValidateRequest checks the settings needed to contact the provider:
// geometry, dataset, interval, years and credentials.
func (c *Config) ValidateRequest() error {
	req := c.App.Request
	if _, err := model.ParseGeometry(req.Geometry); err != nil {
		return exception.Configuration(moduleName, "request.geometry is invalid", err)
	}
	if _, ok := model.LookupDataset(req.Dataset); !ok {
		return invalid("request.dataset %q is not one of %s", req.Dataset, datasetTokens())
	}
	if !supportedIntervals[req.Interval] {
		return invalid("request.interval must be one of 5, 10, 15, 30, 60 minutes, got %d", req.Interval)
	}
	if len(req.Years) == 0 {
		return invalid("request.years must not be empty")
	}
	for _, y := range req.Years {
		if strings.TrimSpace(y) == "" {
			return invalid("request.years contains an empty entry")
		}
	}
	if req.APIKey == "" {
		return invalid("request.api_key is required (set %sREQUEST_API_KEY)", EnvPrefix)
	}
	if req.Email == "" {
		return invalid("request.email is required")
	}
	return nil
}

func invalid(format string, a ...interface{}) error {
	return exception.Newf(exception.KindConfiguration, moduleName, format, a...)
}

func datasetTokens() string {
	var tokens []string
	for _, ds := range model.Datasets() {
		tokens = append(tokens, ds.Token)
	}
	return fmt.Sprintf("[%s]", strings.Join(tokens, ", "))
}
