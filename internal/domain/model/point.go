package model

import (
	"strconv"
	"strings"
)

// PointID is a provider-internal sample point (grid cell) identifier.
type PointID int64

// String returns the decimal form used in request parameters and file names.
func (p PointID) String() string { return strconv.FormatInt(int64(p), 10) }

// PointGroup is the set of points fetched by one retrieval request.
type PointGroup []PointID

// String joins the identifiers with commas, the provider's location_ids format.
func (g PointGroup) String() string {
	parts := make([]string, len(g))
	for i, p := range g {
		parts[i] = p.String()
	}
	return strings.Join(parts, ",")
}

// Unit identifies one (year, point group) retrieval.
type Unit struct {
	Year  string
	Group PointGroup
	// Index is the zero-based position of Group among all groups; Total is the group count.
	Index int
	Total int
}

// Key is a stable identifier used in logs and the run ledger.
func (u Unit) Key() string { return u.Year + "/" + u.Group.String() }
