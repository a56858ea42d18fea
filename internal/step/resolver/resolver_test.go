package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

type stubDiscoverer struct {
	script  string
	err     error
	calls   int
	wkt     string
	dataset string
}

func (s *stubDiscoverer) Discover(ctx context.Context, wkt, dataset string) (string, error) {
	s.calls++
	s.wkt, s.dataset = wkt, dataset
	return s.script, s.err
}

func TestMarkerExtractor(t *testing.T) {
	script := "import h5pyd\n# generated\nPOINTS = [12, 34, 56]\nfor p in POINTS: pass"
	points, err := MarkerExtractor{}.Extract(script)
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{12, 34, 56}, points)
}

func TestMarkerExtractor_Multiline(t *testing.T) {
	script := "POINTS = [\n    1001,\n    1002\n]\nOTHER = [7]"
	points, err := NewMarkerExtractor().Extract(script)
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{1001, 1002}, points)
}

func TestMarkerExtractor_MissingMarker(t *testing.T) {
	_, err := MarkerExtractor{}.Extract("print('hello')")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol))
}

func TestMarkerExtractor_EmptyList(t *testing.T) {
	points, err := MarkerExtractor{}.Extract("POINTS = []")
	require.NoError(t, err)
	assert.Empty(t, points)
}

func TestResolve(t *testing.T) {
	d := &stubDiscoverer{script: "POINTS = [12, 34]"}
	points, err := NewResolver(d, nil).Resolve(context.Background(), "POINT(-76.5 42.44)", "CONUS")
	require.NoError(t, err)
	assert.Equal(t, []model.PointID{12, 34}, points)
	assert.Equal(t, "POINT(-76.5 42.44)", d.wkt)
	assert.Equal(t, "nsrdb-GOES-conus-v4-0-0", d.dataset)
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name      string
		geometry  string
		dataset   string
		script    string
		wantKind  error
		wantCalls int
	}{
		{"bad geometry", "CIRCLE(1 2)", "CONUS", "", exception.ErrConfiguration, 0},
		{"unknown dataset", "POINT(1 2)", "EUROPE", "", exception.ErrConfiguration, 0},
		{"missing marker", "POINT(1 2)", "TMY", "no points here", exception.ErrUpstreamProtocol, 1},
		{"empty points", "POINT(1 2)", "TMY", "POINTS = [ ]", exception.ErrPrecondition, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &stubDiscoverer{script: tt.script}
			_, err := NewResolver(d, nil).Resolve(context.Background(), tt.geometry, tt.dataset)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantKind), "got %v", err)
			assert.Equal(t, tt.wantCalls, d.calls)
		})
	}
}

func TestResolve_PropagatesDiscoveryError(t *testing.T) {
	cause := exception.Newf(exception.KindUpstreamProtocol, "provider", "discovery request returned 500")
	_, err := NewResolver(&stubDiscoverer{err: cause}, nil).Resolve(context.Background(), "POINT(1 2)", "CONUS")
	assert.Equal(t, cause, err)
}

func TestGroupPoints(t *testing.T) {
	points := []model.PointID{1, 2, 3, 4, 5}
	assert.Equal(t, []model.PointGroup{{1}, {2}, {3}, {4}, {5}}, GroupPoints(points, 1))
	assert.Equal(t, []model.PointGroup{{1, 2}, {3, 4}, {5}}, GroupPoints(points, 2))
	assert.Equal(t, []model.PointGroup{{1, 2, 3, 4, 5}}, GroupPoints(points, 10))
	assert.Equal(t, []model.PointGroup{{1}, {2}, {3}, {4}, {5}}, GroupPoints(points, 0))
	assert.Empty(t, GroupPoints(nil, 3))
}
