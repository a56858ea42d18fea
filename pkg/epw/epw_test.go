package epw_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

func ithaca() epw.Location {
	return epw.Location{
		City:      "Ithaca",
		State:     "New York",
		Country:   "United States",
		Source:    "NSRDB",
		Latitude:  42.44,
		Longitude: -76.5,
		TimeZone:  -5,
		Elevation: 253,
	}
}

func TestFieldOrder(t *testing.T) {
	assert.Equal(t, 35, int(epw.NumFields))
	assert.Equal(t, "Year", epw.Year.String())
	assert.Equal(t, "Relative Humidity", epw.RelativeHumidity.String())
	assert.Equal(t, "Albedo", epw.Albedo.String())
	assert.Equal(t, "Liquid Precipitation Quantity", epw.LiquidPrecipitationQuantity.String())
	assert.Len(t, epw.Fields(), 35)
}

func TestNewTableFilledWithMissing(t *testing.T) {
	tbl := epw.NewTable(3)
	require.Equal(t, 3, tbl.Len())
	for _, v := range tbl.Column(epw.Visibility) {
		assert.Equal(t, float64(epw.Missing), v)
	}
}

func TestHeaderBlocksInOrder(t *testing.T) {
	h := epw.NewHeader(ithaca())
	var names []string
	for _, b := range h.Blocks {
		names = append(names, b.Name)
	}
	assert.Equal(t, epw.BlockOrder, names)

	loc, ok := h.Block(epw.BlockLocation)
	require.True(t, ok)
	assert.Equal(t, []string{"Ithaca", "New York", "United States", "NSRDB", "XXX", "42.44", "-76.5", "-5", "253"}, loc.Fields)

	c1, _ := h.Block(epw.BlockComments1)
	assert.Equal(t, []string{"NSRDB"}, c1.Fields)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tbl := epw.NewTable(2)
	tbl.Rows[0][epw.Year] = 2020
	tbl.Rows[0][epw.DryBulbTemperature] = -3.25
	tbl.Rows[1][epw.Year] = 2020
	tbl.Rows[1][epw.AtmosphericStationPressure] = 101300

	var buf bytes.Buffer
	require.NoError(t, epw.Encode(&buf, &epw.File{Header: epw.NewHeader(ithaca()), Table: tbl}))

	text := buf.String()
	assert.True(t, strings.HasPrefix(text, "LOCATION,Ithaca,New York,United States,NSRDB,XXX,42.44,-76.5,-5,253\r\n"))
	assert.Contains(t, text, "DATA PERIODS,1,1,Data,Sunday, 1/ 1,12/31\r\n")
	assert.Contains(t, text, "\r\n2020,999999,999999,999999,999999,999999,-3.25,")

	decoded, err := epw.Decode(&buf)
	require.NoError(t, err)
	require.Len(t, decoded.Header.Blocks, len(epw.BlockOrder))
	assert.Equal(t, tbl.Rows, decoded.Table.Rows)

	loc, err := decoded.Header.Location()
	require.NoError(t, err)
	assert.Equal(t, ithaca().City, loc.City)
	assert.Equal(t, ithaca().Country, loc.Country)
	assert.Equal(t, 42.44, loc.Latitude)
	assert.Equal(t, -76.5, loc.Longitude)
	assert.Equal(t, -5.0, loc.TimeZone)
	assert.Equal(t, 253.0, loc.Elevation)
}

func TestDecodeRejectsMalformed(t *testing.T) {
	_, err := epw.Decode(strings.NewReader("WEATHER,1,2\n"))
	assert.ErrorContains(t, err, "unknown header block")

	_, err = epw.Decode(strings.NewReader("LOCATION,a,b,c,d,e,1,2,3,4\n"))
	assert.ErrorContains(t, err, "missing DATA PERIODS")

	_, err = epw.Decode(strings.NewReader("DATA PERIODS,1,1,Data,Sunday, 1/ 1,12/31\n2020,1,1\n"))
	assert.ErrorContains(t, err, "want 35")
}

func TestFreeTextCommasAreReplaced(t *testing.T) {
	loc := ithaca()
	loc.Source = "NSRDB, GOES v4"
	h := epw.NewHeader(loc)
	b, _ := h.Block(epw.BlockComments1)
	assert.Equal(t, []string{"NSRDB; GOES v4"}, b.Fields)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "999999", epw.FormatValue(epw.Missing))
	assert.Equal(t, "0.17", epw.FormatValue(0.17))
	assert.Equal(t, "-12", epw.FormatValue(-12))
	assert.Equal(t, "42.44", epw.FormatCoordinate(42.44))
	assert.Equal(t, "-76.5", epw.FormatCoordinate(-76.5))
	assert.Equal(t, "40.0", epw.FormatCoordinate(40))
}
