// Package job runs a conversion end to end: resolve the geometry to points,
// retrieve every (year, point group) unit, and turn each retrieved series
// into an EPW file. Units run in parallel up to a configured limit while the
// provider client keeps its own request spacing.
package job

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/nsrdb2epw/internal/config"
	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/internal/repository"
	"github.com/tigerroll/nsrdb2epw/internal/step/resolver"
	"github.com/tigerroll/nsrdb2epw/internal/step/retriever"
	"github.com/tigerroll/nsrdb2epw/internal/step/writer"
	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

const moduleName = "job"

// Commands recorded in the ledger.
const (
	CommandRun     = "run"
	CommandConvert = "convert"
)

// PointResolver turns a geometry into point identifiers.
type PointResolver interface {
	Resolve(ctx context.Context, geometry, datasetToken string) ([]model.PointID, error)
}

// UnitRetriever retrieves units one at a time or as a lazy sequence.
type UnitRetriever interface {
	Retrieve(ctx context.Context, req retriever.Request) iter.Seq[model.Outcome]
	RetrieveUnit(ctx context.Context, req retriever.Request, unit model.Unit) model.Outcome
}

// TableTransformer maps a time series onto an EPW table.
type TableTransformer interface {
	Transform(series *model.TimeSeries) (*epw.Table, error)
}

// Emitter writes the EPW file and returns its location.
type Emitter interface {
	Emit(ctx context.Context, p writer.HeaderParams, table *epw.Table) (string, error)
}

// TableExporter writes a secondary copy of a table and returns its location.
type TableExporter interface {
	Write(ctx context.Context, p writer.HeaderParams, table *epw.Table) (string, error)
}

// Dependencies are the collaborators of a Job. Exporter, Source, Ledger,
// Recorder and Tracer are optional.
type Dependencies struct {
	Resolver    PointResolver
	Retriever   UnitRetriever
	Transformer TableTransformer
	Emitter     Emitter
	Exporter    TableExporter
	// Source holds previously downloaded CSV files read by Convert.
	Source       storage.StorageConnection
	SourceBucket string
	Ledger       repository.Ledger
	Recorder     metrics.MetricRecorder
	Tracer       metrics.Tracer
}

// Options control scheduling and failure handling.
type Options struct {
	// Concurrency bounds the number of units in flight. Values below 1 mean 1.
	Concurrency int
	// FailurePolicy is config.FailurePolicyAbort or config.FailurePolicyContinue.
	FailurePolicy string
}

// Site names the location written into headers and file names.
type Site struct {
	Location string
	State    string
	Country  string
}

func (s Site) header(meta model.SiteMetadata) writer.HeaderParams {
	return writer.HeaderParams{Location: s.Location, State: s.State, Country: s.Country, Site: meta}
}

// Params describe one retrieval run.
type Params struct {
	Geometry   string
	Dataset    string
	Years      []string
	Interval   int
	Attributes []string
	APIKey     string
	Email      string
	// Mode is retriever.ModeCSV or retriever.ModeJob.
	Mode      string
	GroupSize int
	Site      Site
}

// Job orchestrates the conversion steps.
type Job struct {
	deps Dependencies
	opts Options
}

// New creates a Job. Unknown failure policies are configuration errors.
func New(deps Dependencies, opts Options) (*Job, error) {
	switch opts.FailurePolicy {
	case "":
		opts.FailurePolicy = config.FailurePolicyAbort
	case config.FailurePolicyAbort, config.FailurePolicyContinue:
	default:
		return nil, exception.Newf(exception.KindConfiguration, moduleName, "unknown failure policy '%s'", opts.FailurePolicy)
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if deps.Ledger == nil {
		deps.Ledger = repository.NoOpLedger{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NewNoOpMetricRecorder()
	}
	if deps.Tracer == nil {
		deps.Tracer = metrics.NewNoOpTracer()
	}
	return &Job{deps: deps, opts: opts}, nil
}

// Run resolves p.Geometry and converts every unit. The returned Report is
// never nil; with the continue policy unit failures are listed in it and
// only fatal errors are returned.
func (j *Job) Run(ctx context.Context, p Params) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	ctx, end := j.deps.Tracer.StartRunSpan(ctx, report.RunID)
	defer end()
	start := time.Now()

	run := repository.RunRecord{ID: report.RunID, Command: CommandRun, Dataset: p.Dataset, Mode: p.Mode, Geometry: p.Geometry}
	if err := j.deps.Ledger.StartRun(ctx, run); err != nil {
		return report, j.finish(ctx, report, start, err)
	}
	logger.Infof("Run %s started (dataset %s, mode %s).", report.RunID, p.Dataset, p.Mode)

	points, err := j.deps.Resolver.Resolve(ctx, p.Geometry, p.Dataset)
	if err != nil {
		j.deps.Tracer.RecordError(ctx, moduleName, err)
		return report, j.finish(ctx, report, start, err)
	}
	if len(points) == 0 {
		return report, j.finish(ctx, report, start, exception.Precondition(moduleName, "no points found for geometry", nil))
	}
	report.Points = points
	logger.Infof("Resolved %d points.", len(points))

	req := retriever.Request{
		Mode:       p.Mode,
		Groups:     resolver.GroupPoints(points, p.GroupSize),
		Years:      p.Years,
		Dataset:    p.Dataset,
		Interval:   p.Interval,
		Attributes: p.Attributes,
		APIKey:     p.APIKey,
		Email:      p.Email,
	}
	units := req.Units()
	retrieve := func(ctx context.Context, unit model.Unit) model.Outcome {
		return j.deps.Retriever.RetrieveUnit(ctx, req, unit)
	}
	if j.opts.Concurrency == 1 {
		next, stop := iter.Pull(j.deps.Retriever.Retrieve(ctx, req))
		defer stop()
		retrieve = func(_ context.Context, unit model.Unit) model.Outcome {
			return pullOutcome(next, unit)
		}
	}
	err = j.runUnits(ctx, report, units, func(ctx context.Context, unit model.Unit) unitResult {
		return j.convertOutcome(ctx, p.Site, retrieve(ctx, unit))
	})
	return report, j.finish(ctx, report, start, err)
}

// pullOutcome takes the next outcome of a serial retrieval, which must
// belong to unit.
func pullOutcome(next func() (model.Outcome, bool), unit model.Unit) model.Outcome {
	outcome, ok := next()
	switch {
	case !ok:
		return model.Outcome{Unit: unit, Err: exception.Newf(exception.KindUpstreamProtocol, moduleName,
			"retrieval ended before unit %s", unit.Key())}
	case outcome.Err != nil:
		return outcome
	case outcome.Unit.Key() != unit.Key():
		return model.Outcome{Unit: unit, Err: exception.Newf(exception.KindUpstreamProtocol, moduleName,
			"retrieval returned unit %s, want %s", outcome.Unit.Key(), unit.Key())}
	}
	return outcome
}

// convertOutcome transforms and emits a retrieved artifact. Job submissions
// pass through untouched.
func (j *Job) convertOutcome(ctx context.Context, site Site, outcome model.Outcome) unitResult {
	res := unitResult{unit: outcome.Unit, job: outcome.Job, err: outcome.Err}
	if outcome.Artifact == nil || res.err != nil {
		return res
	}
	res.source = outcome.Artifact.Location
	res.pointIDs = outcome.Artifact.Point.String()
	return j.emit(ctx, site, outcome.Artifact.Series, res)
}

func (j *Job) emit(ctx context.Context, site Site, series *model.TimeSeries, res unitResult) unitResult {
	table, err := j.deps.Transformer.Transform(series)
	if err != nil {
		res.err = err
		return res
	}
	header := site.header(series.Site)
	path, err := j.deps.Emitter.Emit(ctx, header, table)
	if err != nil {
		res.err = err
		return res
	}
	res.output = path
	j.deps.Tracer.RecordEvent(ctx, "artifact.written", map[string]interface{}{"path": path, "rows": table.Len()})

	if j.deps.Exporter != nil {
		pq, err := j.deps.Exporter.Write(ctx, header, table)
		if err != nil {
			res.err = err
			return res
		}
		res.parquet = pq
	}
	return res
}

// unitResult is the outcome of one unit after conversion.
type unitResult struct {
	unit     model.Unit
	pointIDs string
	source   string
	output   string
	parquet  string
	job      *model.JobSubmission
	err      error
	// skipped marks units never started or cut short because another unit
	// aborted the run.
	skipped bool
}

type unitHandler func(ctx context.Context, unit model.Unit) unitResult

// runUnits executes handle for every unit with bounded parallelism and
// applies the failure policy. Results are added to report in unit order.
func (j *Job) runUnits(ctx context.Context, report *Report, units []model.Unit, handle unitHandler) error {
	results := make([]unitResult, len(units))
	for i, unit := range units {
		results[i] = unitResult{unit: unit, skipped: true}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(j.opts.Concurrency)
	for i, unit := range units {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if gctx.Err() != nil {
				return nil
			}
			res := j.runUnit(gctx, unit, handle)
			if res.err != nil && ctx.Err() == nil && gctx.Err() != nil && errors.Is(res.err, context.Canceled) {
				res.skipped = true
			}
			// Each goroutine owns its slot.
			results[i] = res
			if res.skipped {
				return nil
			}
			j.record(ctx, report.RunID, res)
			if res.err == nil {
				return nil
			}
			if j.opts.FailurePolicy == config.FailurePolicyAbort || exception.IsFatal(res.err) {
				return fmt.Errorf("%s: %w", describe(unit), res.err)
			}
			logger.Warnf("Unit %s failed, continuing: %v", describe(unit), res.err)
			return nil
		})
	}
	err := g.Wait()

	for _, res := range results {
		report.add(res)
	}
	if err == nil {
		err = ctx.Err()
	}
	return err
}

// runUnit runs handle inside a unit span.
func (j *Job) runUnit(ctx context.Context, unit model.Unit, handle unitHandler) unitResult {
	ctx, end := j.deps.Tracer.StartUnitSpan(ctx, describe(unit))
	defer end()
	start := time.Now()

	res := handle(ctx, unit)
	res.unit = unit
	if res.pointIDs == "" {
		res.pointIDs = unit.Group.String()
	}
	if res.err != nil {
		j.deps.Tracer.RecordError(ctx, moduleName, res.err)
	}
	j.deps.Recorder.RecordDuration(ctx, "unit", time.Since(start), map[string]string{"year": unit.Year})
	return res
}

// record counts the unit in metrics and writes its ledger row. Ledger
// failures are logged and do not fail the unit.
func (j *Job) record(ctx context.Context, runID string, res unitResult) {
	row := repository.UnitRecord{
		RunID:           runID,
		Year:            res.unit.Year,
		GroupIndex:      res.unit.Index,
		PointIDs:        res.pointIDs,
		SourceLocation:  res.source,
		OutputLocation:  res.output,
		ParquetLocation: res.parquet,
	}
	switch {
	case res.err != nil:
		row.Status = repository.UnitFailed
		row.ErrorKind = exception.KindOf(res.err).String()
		row.ErrorMessage = res.err.Error()
		j.deps.Recorder.RecordUnit(ctx, metrics.UnitFailed, row.ErrorKind)
	case res.job != nil:
		row.Status = repository.UnitSubmitted
		row.DownloadURL = res.job.DownloadURL
		j.deps.Recorder.RecordUnit(ctx, metrics.UnitSubmitted, "")
	default:
		row.Status = repository.UnitWritten
		j.deps.Recorder.RecordUnit(ctx, metrics.UnitConverted, "")
	}
	if err := j.deps.Ledger.RecordUnit(context.WithoutCancel(ctx), row); err != nil {
		logger.Warnf("Failed to record unit %s in the ledger: %v", describe(res.unit), err)
	}
}

// finish closes the run in the ledger and metrics and returns err.
func (j *Job) finish(ctx context.Context, report *Report, start time.Time, err error) error {
	summary := repository.RunSummary{
		Status:   repository.StatusCompleted,
		Points:   len(report.Points),
		Units:    report.Units,
		Written:  len(report.Written),
		Failures: len(report.Failures),
	}
	if err != nil {
		summary.Status = repository.StatusFailed
		summary.ErrorMessage = err.Error()
	} else if ferr := report.Err(); ferr != nil {
		summary.ErrorMessage = ferr.Error()
	}

	if lerr := j.deps.Ledger.FinishRun(context.WithoutCancel(ctx), report.RunID, summary); lerr != nil {
		logger.Warnf("Failed to finish run %s in the ledger: %v", report.RunID, lerr)
	}
	j.deps.Recorder.RecordRun(ctx, summary.Status, time.Since(start))

	if err != nil {
		logger.Errorf("Run %s failed: %v", report.RunID, err)
		return err
	}
	logger.Infof("Run %s finished: %d written, %d submitted, %d failed.",
		report.RunID, len(report.Written), len(report.Jobs), len(report.Failures))
	return nil
}

// describe renders a unit for logs and error messages.
func describe(u model.Unit) string {
	if u.Year == "" {
		return fmt.Sprintf("file %d of %d", u.Index+1, u.Total)
	}
	return u.Key()
}
