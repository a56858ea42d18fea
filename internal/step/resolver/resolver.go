// Package resolver turns a geometry and dataset into the ordered list of
// sample points that cover it.
package resolver

import (
	"context"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

const moduleName = "resolver"

// Discoverer fetches the discovery script for a geometry. Implemented by
// *provider.Client.
type Discoverer interface {
	Discover(ctx context.Context, wkt, dataset string) (string, error)
}

// Resolver resolves sample points.
type Resolver struct {
	discoverer Discoverer
	extractor  PointListExtractor
}

// NewResolver creates a new Resolver. A nil extractor uses MarkerExtractor.
func NewResolver(discoverer Discoverer, extractor PointListExtractor) *Resolver {
	if extractor == nil {
		extractor = MarkerExtractor{}
	}
	return &Resolver{discoverer: discoverer, extractor: extractor}
}

// Resolve validates the inputs, queries the discovery endpoint once and
// returns the points in discovery order. An empty result is a
// PreconditionError.
func (r *Resolver) Resolve(ctx context.Context, geometry, datasetToken string) ([]model.PointID, error) {
	geom, err := model.ParseGeometry(geometry)
	if err != nil {
		return nil, exception.Configuration(moduleName, "invalid geometry", err)
	}
	dataset, ok := model.LookupDataset(datasetToken)
	if !ok {
		return nil, exception.Newf(exception.KindConfiguration, moduleName, "unknown dataset '%s'", datasetToken)
	}

	logger.Infof("Resolving sample points for %s in dataset %s.", geom, dataset.Name)
	script, err := r.discoverer.Discover(ctx, geom.String(), dataset.Name)
	if err != nil {
		return nil, err
	}
	points, err := r.extractor.Extract(script)
	if err != nil {
		return nil, err
	}
	if len(points) == 0 {
		return nil, exception.Newf(exception.KindPrecondition, moduleName, "no sample points cover %s", geom)
	}
	logger.Infof("Resolved %d sample point(s).", len(points))
	return points, nil
}

// GroupPoints splits points into consecutive groups of at most size
// identifiers. size < 1 is treated as 1.
func GroupPoints(points []model.PointID, size int) []model.PointGroup {
	if size < 1 {
		size = 1
	}
	groups := make([]model.PointGroup, 0, (len(points)+size-1)/size)
	for start := 0; start < len(points); start += size {
		end := start + size
		if end > len(points) {
			end = len(points)
		}
		group := make(model.PointGroup, end-start)
		copy(group, points[start:end])
		groups = append(groups, group)
	}
	return groups
}
