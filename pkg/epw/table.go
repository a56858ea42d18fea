// Package epw reads and writes EnergyPlus Weather files: a fixed set of
// comma-separated header lines followed by hourly data rows of 35 fields.
package epw

import (
	"fmt"
	"math"
	"strconv"
)

// Missing is the EPW "value not available" sentinel.
const Missing = 999999

// HoursPerYear is the number of data rows in an annual EPW file.
const HoursPerYear = 8760

// Field is a column of the EPW data table, in file order.
type Field int

const (
	Year Field = iota
	Month
	Day
	Hour
	Minute
	DataSourceFlags
	DryBulbTemperature
	DewPointTemperature
	RelativeHumidity
	AtmosphericStationPressure
	ExtraterrestrialHorizontalRadiation
	ExtraterrestrialDirectNormalRadiation
	HorizontalInfraredRadiationIntensity
	GlobalHorizontalRadiation
	DirectNormalRadiation
	DiffuseHorizontalRadiation
	GlobalHorizontalIlluminance
	DirectNormalIlluminance
	DiffuseHorizontalIlluminance
	ZenithLuminance
	WindDirection
	WindSpeed
	TotalSkyCover
	OpaqueSkyCover
	Visibility
	CeilingHeight
	PresentWeatherObservation
	PresentWeatherCodes
	PrecipitableWater
	AerosolOpticalDepth
	SnowDepth
	DaysSinceLastSnowfall
	Albedo
	LiquidPrecipitationDepth
	LiquidPrecipitationQuantity

	// NumFields is the number of columns in a data row.
	NumFields
)

var fieldNames = [NumFields]string{
	"Year", "Month", "Day", "Hour", "Minute",
	"Data Source and Uncertainty Flags",
	"Dry Bulb Temperature", "Dew Point Temperature", "Relative Humidity",
	"Atmospheric Station Pressure",
	"Extraterrestrial Horizontal Radiation", "Extraterrestrial Direct Normal Radiation",
	"Horizontal Infrared Radiation Intensity",
	"Global Horizontal Radiation", "Direct Normal Radiation", "Diffuse Horizontal Radiation",
	"Global Horizontal Illuminance", "Direct Normal Illuminance", "Diffuse Horizontal Illuminance",
	"Zenith Luminance",
	"Wind Direction", "Wind Speed",
	"Total Sky Cover", "Opaque Sky Cover", "Visibility", "Ceiling Height",
	"Present Weather Observation", "Present Weather Codes",
	"Precipitable Water", "Aerosol Optical Depth",
	"Snow Depth", "Days Since Last Snowfall", "Albedo",
	"Liquid Precipitation Depth", "Liquid Precipitation Quantity",
}

// String returns the column title.
func (f Field) String() string {
	if f < 0 || f >= NumFields {
		return fmt.Sprintf("Field(%d)", int(f))
	}
	return fieldNames[f]
}

// Fields returns all columns in file order.
func Fields() []Field {
	out := make([]Field, NumFields)
	for i := range out {
		out[i] = Field(i)
	}
	return out
}

// Record is one data row.
type Record [NumFields]float64

// Table is the data section of an EPW file.
type Table struct {
	Rows []Record
}

// NewTable returns a table of n rows with every cell set to Missing.
func NewTable(n int) *Table {
	t := &Table{Rows: make([]Record, n)}
	for i := range t.Rows {
		for f := range t.Rows[i] {
			t.Rows[i][f] = Missing
		}
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.Rows) }

// Column copies one column out of the table.
func (t *Table) Column(f Field) []float64 {
	out := make([]float64, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Rows[i][f]
	}
	return out
}

// Year returns the year of the first row, or 0 for an empty table.
func (t *Table) Year() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return int(t.Rows[0][Year])
}

// FormatValue renders a cell: integral values without a decimal point,
// everything else in the shortest form that parses back to the same float.
func FormatValue(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatCoordinate renders a latitude or longitude the way it appears in
// output file names: shortest round-trip form, with ".0" kept on whole numbers
// ("42.44", "-76.5", "40.0").
func FormatCoordinate(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s
}
