package reader

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

const providerCSV = `Source,Location ID,City,State,Country,Latitude,Longitude,Time Zone,Elevation,Local Time Zone,Dew Point Units,Temperature Units
NSRDB,123456,-,-,-,42.44,-76.5,0,287,-5,c,c
Year,Month,Day,Hour,Minute,Temperature,Dew Point,Pressure,GHI,DNI,DHI,Wind Direction,Wind Speed,Surface Albedo,Cloud Type,,
2020,1,1,0,0,-3.5,-6.1,985,0,0,0,241.3,3.2,0.87,,,
2020,1,1,1,0,-3.9,-6.4,985,0,0,0,245.0,3.0,0.87,,,
`

func TestParse_ProviderLayout(t *testing.T) {
	series, err := Parse([]byte(providerCSV))
	require.NoError(t, err)

	assert.Equal(t, model.SiteMetadata{
		Source:     "NSRDB",
		LocationID: "123456",
		Latitude:   42.44,
		Longitude:  -76.5,
		TimeZone:   -5,
		Elevation:  287,
	}, series.Site)

	require.Len(t, series.Rows, 2)
	first := series.Rows[0]
	assert.Equal(t, 2020, first.Year)
	assert.Equal(t, 0, first.Hour)
	assert.Equal(t, 1, series.Rows[1].Hour)
	assert.Equal(t, -3.5, first.Temperature)
	assert.Equal(t, -6.1, first.DewPoint)
	assert.Equal(t, 985.0, first.Pressure)
	assert.Equal(t, 241.3, first.WindDirection)
	assert.Equal(t, 0.87, first.SurfaceAlbedo)
}

func TestParse_IndexedLayout(t *testing.T) {
	var b strings.Builder
	for i, line := range strings.Split(strings.TrimSpace(providerCSV), "\n") {
		if i == 0 {
			b.WriteString("," + line + "\n")
			continue
		}
		b.WriteString(strconv.Itoa(i-1) + "," + strings.ReplaceAll(line, "2020,", "2020.0,") + "\n")
	}

	series, err := Parse([]byte(b.String()))
	require.NoError(t, err)
	assert.Equal(t, "123456", series.Site.LocationID)
	require.Len(t, series.Rows, 2)
	assert.Equal(t, 2020, series.Rows[1].Year)
	assert.Equal(t, -3.9, series.Rows[1].Temperature)
}

func TestParse_MissingMeasurementIsNaN(t *testing.T) {
	body := "Source,Location ID,Latitude,Longitude,Local Time Zone,Elevation\n" +
		"NSRDB,1,40,-105,-7,1650\n" +
		"Year,Month,Day,Hour,Minute,Temperature,Dew Point\n" +
		"2019,1,1,0,30,1.5,\n"

	series, err := Parse([]byte(body))
	require.NoError(t, err)
	require.Len(t, series.Rows, 1)
	assert.Equal(t, 1.5, series.Rows[0].Temperature)
	assert.True(t, math.IsNaN(series.Rows[0].DewPoint))
	assert.True(t, math.IsNaN(series.Rows[0].GHI))
	assert.Equal(t, 30, series.Rows[0].Minute)
}

func TestParse_Malformed(t *testing.T) {
	tests := map[string]string{
		"too short":        "Source,Latitude\nNSRDB,1\n",
		"missing latitude": "Source,Longitude,Local Time Zone,Elevation\nN,1,1,1\nYear,Month,Day,Hour,Minute\n2020,1,1,0,0\n",
		"missing calendar": "Latitude,Longitude,Local Time Zone,Elevation\n1,1,1,1\nYear,Month,Day,Hour\n2020,1,1,0\n",
		"bad number":       "Latitude,Longitude,Local Time Zone,Elevation\n1,1,1,1\nYear,Month,Day,Hour,Minute,GHI\n2020,1,1,0,0,abc\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, exception.ErrUpstreamProtocol), "got %v", err)
		})
	}
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "123456_2020.csv")
	require.NoError(t, os.WriteFile(path, []byte(providerCSV), 0o644))

	series, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, series.Rows, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "absent.csv"))
	assert.True(t, errors.Is(err, exception.ErrIO))
}

func TestReadAll(t *testing.T) {
	series, err := ReadAll(strings.NewReader(providerCSV))
	require.NoError(t, err)
	assert.Equal(t, 42.44, series.Site.Latitude)
}
