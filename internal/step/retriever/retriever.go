// Package retriever issues one provider request per (year, point group) and
// persists direct-CSV downloads through the storage adapter.
package retriever

import (
	"bytes"
	"context"
	"fmt"
	"iter"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/internal/provider"
	"github.com/tigerroll/nsrdb2epw/internal/step/reader"
	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const moduleName = "retriever"

// Retrieval modes.
const (
	ModeCSV = "csv"
	ModeJob = "job"
)

// Client is the part of *provider.Client the retriever uses.
type Client interface {
	DownloadCSV(ctx context.Context, q provider.Query) ([]byte, error)
	SubmitJob(ctx context.Context, q provider.Query) (model.JobSubmission, error)
}

// Request describes a whole retrieval run.
type Request struct {
	// Mode is ModeCSV or ModeJob.
	Mode       string
	Groups     []model.PointGroup
	Years      []string
	Dataset    string
	Interval   int
	Attributes []string
	APIKey     string
	Email      string
}

// Units returns the (year, group) combinations of req, years outer.
func (req Request) Units() []model.Unit {
	units := make([]model.Unit, 0, len(req.Years)*len(req.Groups))
	for _, year := range req.Years {
		for i, group := range req.Groups {
			units = append(units, model.Unit{Year: year, Group: group, Index: i, Total: len(req.Groups)})
		}
	}
	return units
}

// Retriever retrieves units.
type Retriever struct {
	client   Client
	conn     storage.StorageConnection
	bucket   string
	recorder metrics.MetricRecorder
}

// NewRetriever creates a new Retriever writing CSV artifacts to bucket on conn.
func NewRetriever(client Client, conn storage.StorageConnection, bucket string, recorder metrics.MetricRecorder) *Retriever {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &Retriever{client: client, conn: conn, bucket: bucket, recorder: recorder}
}

// Retrieve lazily yields one Outcome per unit. Units are requested only as
// the caller pulls them, so breaking out of the loop stops retrieval.
func (r *Retriever) Retrieve(ctx context.Context, req Request) iter.Seq[model.Outcome] {
	return func(yield func(model.Outcome) bool) {
		if err := r.check(req); err != nil {
			yield(model.Outcome{Err: err})
			return
		}
		for _, unit := range req.Units() {
			if !yield(r.RetrieveUnit(ctx, req, unit)) {
				return
			}
		}
	}
}

// RetrieveAll retrieves every unit and stops at the first failure, returning
// the artifacts persisted so far with the error.
func (r *Retriever) RetrieveAll(ctx context.Context, req Request) ([]model.Artifact, error) {
	var artifacts []model.Artifact
	for outcome := range r.Retrieve(ctx, req) {
		if outcome.Failed() {
			return artifacts, outcome.Err
		}
		if outcome.Artifact != nil {
			artifacts = append(artifacts, *outcome.Artifact)
		}
	}
	return artifacts, nil
}

// RetrieveUnit issues the request of one unit. It is safe for concurrent use;
// the provider client serializes requests through its rate limiter.
func (r *Retriever) RetrieveUnit(ctx context.Context, req Request, unit model.Unit) model.Outcome {
	outcome := model.Outcome{Unit: unit}
	if err := ctx.Err(); err != nil {
		outcome.Err = err
		return outcome
	}
	dataset, ok := model.LookupDataset(req.Dataset)
	if !ok {
		outcome.Err = exception.Newf(exception.KindConfiguration, moduleName, "unknown dataset '%s'", req.Dataset)
		return outcome
	}

	if unit.Index == 0 {
		logger.Infof("Processing name: %s", unit.Year)
	}
	logger.Infof("Making request for point group %d of %d...", unit.Index+1, unit.Total)
	q := provider.Query{
		Dataset:     dataset.Name,
		Attributes:  req.Attributes,
		Interval:    req.Interval,
		APIKey:      req.APIKey,
		Email:       req.Email,
		Name:        unit.Year,
		LocationIDs: unit.Group,
	}

	switch req.Mode {
	case ModeJob:
		job, err := r.client.SubmitJob(ctx, q)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		logger.Infof("%s", job.Message)
		logger.Infof("Data can be downloaded from this url when ready: %s", job.DownloadURL)
		outcome.Job = &job
	default:
		artifact, err := r.download(ctx, q, unit)
		if err != nil {
			outcome.Err = err
			return outcome
		}
		outcome.Artifact = artifact
	}
	logger.Infof("Processed %s.", unit.Key())
	return outcome
}

func (r *Retriever) download(ctx context.Context, q provider.Query, unit model.Unit) (*model.Artifact, error) {
	if len(unit.Group) != 1 {
		return nil, exception.Newf(exception.KindConfiguration, moduleName,
			"CSV mode supports single-point requests only, group %s has %d points", unit.Group, len(unit.Group))
	}
	body, err := r.client.DownloadCSV(ctx, q)
	if err != nil {
		return nil, err
	}

	point := unit.Group[0]
	objectName := ObjectName(point, unit.Year)
	if err := r.conn.Upload(ctx, r.bucket, objectName, bytes.NewReader(body), "text/csv"); err != nil {
		return nil, exception.IO(moduleName, fmt.Sprintf("failed to persist '%s'", objectName), err)
	}
	r.recorder.RecordFileWritten(ctx, "csv", int64(len(body)))

	series, err := reader.Parse(body)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Response data for point %s: %d rows.", point, len(series.Rows))
	return &model.Artifact{Unit: unit, Point: point, Location: objectName, Series: series}, nil
}

func (r *Retriever) check(req Request) error {
	switch req.Mode {
	case ModeCSV, ModeJob:
	default:
		return exception.Newf(exception.KindConfiguration, moduleName, "unknown retrieval mode '%s'", req.Mode)
	}
	if _, ok := model.LookupDataset(req.Dataset); !ok {
		return exception.Newf(exception.KindConfiguration, moduleName, "unknown dataset '%s'", req.Dataset)
	}
	return nil
}

// ObjectName is the storage name of a raw CSV download.
func ObjectName(point model.PointID, year string) string {
	return point.String() + "_" + year + ".csv"
}
