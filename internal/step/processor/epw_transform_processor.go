// Package processor maps a retrieved NSRDB time series onto the 35-column,
// 8760-row EPW data table.
package processor

import (
	"fmt"
	"math"
	"time"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

const moduleName = "processor"

// Row alignment policies.
const (
	// AlignmentPositional maps source row i onto hour i of the synthetic year.
	// Missing rows become sentinel cells and extra rows are dropped.
	AlignmentPositional = "positional"
	// AlignmentStrict requires hourly rows whose timestamps match the
	// synthetic calendar one to one.
	AlignmentStrict = "strict"
)

// Magnus coefficients of the saturation vapour pressure approximation.
const (
	magnusB = 17.62
	magnusC = 243.12
)

// sentinelFields have no source attribute and hold epw.Missing on every row.
var sentinelFields = []epw.Field{
	epw.DataSourceFlags,
	epw.ExtraterrestrialHorizontalRadiation,
	epw.ExtraterrestrialDirectNormalRadiation,
	epw.HorizontalInfraredRadiationIntensity,
	epw.GlobalHorizontalIlluminance,
	epw.DirectNormalIlluminance,
	epw.DiffuseHorizontalIlluminance,
	epw.ZenithLuminance,
	epw.TotalSkyCover,
	epw.OpaqueSkyCover,
	epw.Visibility,
	epw.CeilingHeight,
	epw.PresentWeatherObservation,
	epw.PresentWeatherCodes,
	epw.PrecipitableWater,
	epw.AerosolOpticalDepth,
	epw.SnowDepth,
	epw.DaysSinceLastSnowfall,
	epw.LiquidPrecipitationDepth,
	epw.LiquidPrecipitationQuantity,
}

// SentinelFields returns the columns that are always epw.Missing.
func SentinelFields() []epw.Field {
	out := make([]epw.Field, len(sentinelFields))
	copy(out, sentinelFields)
	return out
}

// RelativeHumidity returns the relative humidity (0..1) for dry bulb
// temperature t and dew point dew, both in degrees Celsius.
func RelativeHumidity(t, dew float64) float64 {
	return math.Exp(magnusB*dew/(dew+magnusC) - magnusB*t/(t+magnusC))
}

// Transformer builds EPW tables.
type Transformer struct {
	alignment string
}

// NewTransformer creates a Transformer. An empty alignment means positional.
func NewTransformer(alignment string) (*Transformer, error) {
	switch alignment {
	case "":
		alignment = AlignmentPositional
	case AlignmentPositional, AlignmentStrict:
	default:
		return nil, exception.Newf(exception.KindConfiguration, moduleName, "unknown alignment policy '%s'", alignment)
	}
	return &Transformer{alignment: alignment}, nil
}

// Transform maps series onto a full EPW year. The calendar columns are
// regenerated from the declared year (row 0) and do not come from the source.
func (t *Transformer) Transform(series *model.TimeSeries) (*epw.Table, error) {
	if series == nil || len(series.Rows) == 0 {
		return nil, exception.Newf(exception.KindDataAlignment, moduleName, "time series has no rows")
	}
	rows := series.Rows
	year := rows[0].Year
	interval := SourceInterval(rows)
	calendar := SyntheticCalendar(year)

	if t.alignment == AlignmentStrict {
		if err := checkAlignment(rows, interval, calendar); err != nil {
			return nil, err
		}
	} else if interval != 60 || len(rows) != epw.HoursPerYear {
		logger.Warnf("Location %s, year %d: %d source rows at %d-minute interval are aligned by position onto %d hours.",
			series.Site.LocationID, year, len(rows), interval, epw.HoursPerYear)
	}

	table := epw.NewTable(epw.HoursPerYear)
	for i := range table.Rows {
		rec := &table.Rows[i]
		ts := calendar[i]
		rec[epw.Year] = float64(ts.Year())
		rec[epw.Month] = float64(ts.Month())
		rec[epw.Day] = float64(ts.Day())
		rec[epw.Hour] = float64(ts.Hour() + 1)
		rec[epw.Minute] = float64(ts.Minute())

		if i >= len(rows) {
			continue
		}
		copyObservation(rec, rows[i])
	}
	return table, nil
}

// copyObservation fills the measured and derived columns of rec from obs.
// NaN source values leave the sentinel in place.
func copyObservation(rec *epw.Record, obs model.Observation) {
	set := func(f epw.Field, v float64) {
		if !math.IsNaN(v) {
			rec[f] = v
		}
	}
	set(epw.DryBulbTemperature, obs.Temperature)
	set(epw.DewPointTemperature, obs.DewPoint)
	set(epw.RelativeHumidity, math.RoundToEven(RelativeHumidity(obs.Temperature, obs.DewPoint)*100))
	set(epw.AtmosphericStationPressure, obs.Pressure*100)
	set(epw.GlobalHorizontalRadiation, obs.GHI)
	set(epw.DirectNormalRadiation, obs.DNI)
	set(epw.DiffuseHorizontalRadiation, obs.DHI)
	set(epw.WindDirection, math.Trunc(obs.WindDirection))
	set(epw.WindSpeed, obs.WindSpeed)
	set(epw.Albedo, obs.SurfaceAlbedo)
}

// SourceInterval is the sampling interval in minutes derived from the first
// two rows, or 0 when there are fewer than two.
func SourceInterval(rows []model.Observation) int {
	if len(rows) < 2 {
		return 0
	}
	return (rows[1].Hour-rows[0].Hour)*60 + rows[1].Minute - rows[0].Minute
}

// SyntheticCalendar returns the 8760 hourly timestamps starting Jan 1 00:00
// of year. In leap years it follows real dates and ends on Dec 30.
func SyntheticCalendar(year int) []time.Time {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, epw.HoursPerYear)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * time.Hour)
	}
	return out
}

func checkAlignment(rows []model.Observation, interval int, calendar []time.Time) error {
	if interval != 60 {
		return exception.Newf(exception.KindDataAlignment, moduleName,
			"strict alignment needs hourly data, source interval is %d minutes", interval)
	}
	if len(rows) < len(calendar) {
		return exception.Newf(exception.KindDataAlignment, moduleName,
			"strict alignment needs %d rows, source has %d", len(calendar), len(rows))
	}
	for i, ts := range calendar {
		r := rows[i]
		if r.Year != ts.Year() || r.Month != int(ts.Month()) || r.Day != ts.Day() || r.Hour != ts.Hour() {
			return exception.DataAlignment(moduleName, fmt.Sprintf("row %d", i),
				fmt.Errorf("source timestamp %04d-%02d-%02d %02d:%02d, calendar expects %s",
					r.Year, r.Month, r.Day, r.Hour, r.Minute, ts.Format("2006-01-02 15:04")))
		}
	}
	return nil
}
