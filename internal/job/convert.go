package job

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/internal/repository"
	"github.com/tigerroll/nsrdb2epw/internal/step/reader"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// ConvertParams select previously downloaded CSV files, typically the
// results of job-mode submissions.
type ConvertParams struct {
	// Paths are local CSV files. When empty, every ".csv" object under Prefix
	// in the source storage is converted.
	Paths  []string
	Prefix string
	Site   Site
}

// Convert turns existing CSV files into EPW files without contacting the
// provider. Failure policy and parallelism are the same as Run.
func (j *Job) Convert(ctx context.Context, p ConvertParams) (*Report, error) {
	report := &Report{RunID: uuid.NewString()}
	ctx, end := j.deps.Tracer.StartRunSpan(ctx, report.RunID)
	defer end()
	start := time.Now()

	run := repository.RunRecord{ID: report.RunID, Command: CommandConvert, Mode: CommandConvert}
	if err := j.deps.Ledger.StartRun(ctx, run); err != nil {
		return report, j.finish(ctx, report, start, err)
	}

	files, err := j.sources(ctx, p)
	if err != nil {
		return report, j.finish(ctx, report, start, err)
	}
	if len(files) == 0 {
		return report, j.finish(ctx, report, start, exception.Precondition(moduleName, "no CSV files to convert", nil))
	}
	logger.Infof("Run %s converting %d files.", report.RunID, len(files))

	units := make([]model.Unit, len(files))
	for i := range files {
		units[i] = model.Unit{Index: i, Total: len(files)}
	}
	err = j.runUnits(ctx, report, units, func(ctx context.Context, unit model.Unit) unitResult {
		name := files[unit.Index]
		res := unitResult{source: name}
		series, err := j.load(ctx, p, name)
		if err != nil {
			res.err = err
			return res
		}
		res.pointIDs = series.Site.LocationID
		return j.emit(ctx, p.Site, series, res)
	})
	return report, j.finish(ctx, report, start, err)
}

func (j *Job) sources(ctx context.Context, p ConvertParams) ([]string, error) {
	if len(p.Paths) > 0 {
		return p.Paths, nil
	}
	if j.deps.Source == nil {
		return nil, exception.Configuration(moduleName, "no input files given and no source storage configured", nil)
	}
	var names []string
	err := j.deps.Source.ListObjects(ctx, j.deps.SourceBucket, p.Prefix, func(objectName string) error {
		if strings.HasSuffix(strings.ToLower(objectName), ".csv") {
			names = append(names, objectName)
		}
		return nil
	})
	if err != nil {
		return nil, exception.IO(moduleName, fmt.Sprintf("failed to list '%s'", p.Prefix), err)
	}
	sort.Strings(names)
	return names, nil
}

func (j *Job) load(ctx context.Context, p ConvertParams, name string) (*model.TimeSeries, error) {
	if len(p.Paths) > 0 {
		return reader.ReadFile(name)
	}
	rc, err := j.deps.Source.Download(ctx, j.deps.SourceBucket, name)
	if err != nil {
		return nil, exception.IO(moduleName, fmt.Sprintf("failed to open '%s'", name), err)
	}
	defer rc.Close()
	return reader.ReadAll(rc)
}
