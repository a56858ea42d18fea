package resolver

import (
	"regexp"
	"strconv"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

// PointListExtractor turns the raw discovery text into point identifiers.
// It returns an UpstreamProtocol error when the text does not have the
// expected shape; an empty list is not an error at this level.
type PointListExtractor interface {
	Extract(script string) ([]model.PointID, error)
}

var (
	pointsBlock = regexp.MustCompile(`(?s)POINTS = \[(.*?)\]`)
	digits      = regexp.MustCompile(`\d+`)
)

// MarkerExtractor finds the first "POINTS = [ ... ]" list in the script and
// returns every integer inside it, in order.
type MarkerExtractor struct{}

// NewMarkerExtractor creates a new MarkerExtractor.
func NewMarkerExtractor() *MarkerExtractor { return &MarkerExtractor{} }

// Extract implements PointListExtractor.
func (MarkerExtractor) Extract(script string) ([]model.PointID, error) {
	m := pointsBlock.FindStringSubmatch(script)
	if m == nil {
		return nil, exception.Newf(exception.KindUpstreamProtocol, moduleName, "POINTS block not found in the discovery script")
	}
	found := digits.FindAllString(m[1], -1)
	points := make([]model.PointID, 0, len(found))
	for _, d := range found {
		id, err := strconv.ParseInt(d, 10, 64)
		if err != nil {
			return nil, exception.UpstreamProtocol(moduleName, "point identifier out of range", err)
		}
		points = append(points, model.PointID(id))
	}
	return points, nil
}

var _ PointListExtractor = MarkerExtractor{}
