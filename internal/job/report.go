package job

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

// Failure is a unit that did not produce its output.
type Failure struct {
	Unit model.Unit
	Err  error
}

// Kind returns the error category of the failure.
func (f Failure) Kind() exception.Kind { return exception.KindOf(f.Err) }

// Report summarizes a run.
type Report struct {
	RunID  string
	Points []model.PointID
	// Units is the number of units scheduled or skipped.
	Units int
	// Written lists the EPW locations in unit order.
	Written []string
	// Parquet lists the Parquet export locations in unit order.
	Parquet  []string
	Jobs     []model.JobSubmission
	Failures []Failure
	// Skipped counts units not run because the run stopped early.
	Skipped int
}

func (r *Report) add(res unitResult) {
	r.Units++
	switch {
	case res.skipped:
		r.Skipped++
	case res.err != nil:
		r.Failures = append(r.Failures, Failure{Unit: res.unit, Err: res.err})
	case res.job != nil:
		r.Jobs = append(r.Jobs, *res.job)
	default:
		if res.output != "" {
			r.Written = append(r.Written, res.output)
		}
		if res.parquet != "" {
			r.Parquet = append(r.Parquet, res.parquet)
		}
	}
}

// Err aggregates the unit failures, or returns nil.
func (r *Report) Err() error {
	var errs *multierror.Error
	for _, f := range r.Failures {
		errs = multierror.Append(errs, fmt.Errorf("%s: %w", describe(f.Unit), f.Err))
	}
	return errs.ErrorOrNil()
}
