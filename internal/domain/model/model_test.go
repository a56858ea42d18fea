package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
)

func TestLookupDataset(t *testing.T) {
	ds, ok := model.LookupDataset("CONUS")
	require.True(t, ok)
	assert.Equal(t, "nsrdb-GOES-conus-v4-0-0", ds.Name)

	ds, ok = model.LookupDataset("tmy")
	require.True(t, ok)
	assert.Equal(t, "TMY", ds.Token)
	assert.Equal(t, "nsrdb-GOES-tmy-v4-0-0", ds.Name)

	_, ok = model.LookupDataset("europe")
	assert.False(t, ok)
}

func TestDatasetsOrdered(t *testing.T) {
	var tokens []string
	for _, ds := range model.Datasets() {
		tokens = append(tokens, ds.Token)
	}
	assert.Equal(t, []string{"aggregated", "CONUS", "full-disc", "TMY"}, tokens)
}

func TestParseGeometry(t *testing.T) {
	valid := []string{
		"POINT(-76.5 42.44)",
		"point (-76.5 42.44)",
		"MULTIPOINT((-76.5 42.44), (-76.4 42.45))",
		"POLYGON((-76.6 42.4, -76.4 42.4, -76.4 42.5, -76.6 42.4))",
	}
	for _, wkt := range valid {
		_, err := model.ParseGeometry(wkt)
		assert.NoError(t, err, wkt)
	}

	invalid := []string{
		"",
		"LINESTRING(0 0, 1 1)",
		"POINT(-76.5)",
		"POINT(-76.5 42.44",
		"POINT(a b)",
		"POINT(1 2, 3 4)",
		"POLYGON((0 0, 1 1))",
	}
	for _, wkt := range invalid {
		_, err := model.ParseGeometry(wkt)
		assert.Error(t, err, wkt)
	}
}

func TestPointGroupString(t *testing.T) {
	g := model.PointGroup{12, 34, 56}
	assert.Equal(t, "12,34,56", g.String())

	u := model.Unit{Year: "2020", Group: g}
	assert.Equal(t, "2020/12,34,56", u.Key())
}
