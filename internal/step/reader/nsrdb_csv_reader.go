// Package reader parses NSRDB CSV downloads into time series.
//
// A download starts with two metadata rows (column names, then one row of
// values) followed by the data header and the data rows. Files re-saved with
// a leading unnamed index column are accepted as well.
package reader

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
)

const moduleName = "reader"

// Metadata column names.
const (
	colSource        = "Source"
	colLocationID    = "Location ID"
	colLatitude      = "Latitude"
	colLongitude     = "Longitude"
	colLocalTimeZone = "Local Time Zone"
	colTimeZone      = "Time Zone"
	colElevation     = "Elevation"
)

// calendarColumns must be present in the data header.
var calendarColumns = []string{"Year", "Month", "Day", "Hour", "Minute"}

// measurementColumns maps data columns onto Observation fields. Absent
// columns leave NaN in the field.
var measurementColumns = map[string]func(*model.Observation) *float64{
	"Temperature":    func(o *model.Observation) *float64 { return &o.Temperature },
	"Dew Point":      func(o *model.Observation) *float64 { return &o.DewPoint },
	"Pressure":       func(o *model.Observation) *float64 { return &o.Pressure },
	"GHI":            func(o *model.Observation) *float64 { return &o.GHI },
	"DNI":            func(o *model.Observation) *float64 { return &o.DNI },
	"DHI":            func(o *model.Observation) *float64 { return &o.DHI },
	"Wind Direction": func(o *model.Observation) *float64 { return &o.WindDirection },
	"Wind Speed":     func(o *model.Observation) *float64 { return &o.WindSpeed },
	"Surface Albedo": func(o *model.Observation) *float64 { return &o.SurfaceAlbedo },
}

// ReadFile parses the CSV file at path.
func ReadFile(path string) (*model.TimeSeries, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, exception.IO(moduleName, fmt.Sprintf("failed to read '%s'", path), err)
	}
	series, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return series, nil
}

// Parse parses a CSV body. Malformed input is an UpstreamProtocol error.
func Parse(raw []byte) (*model.TimeSeries, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, exception.UpstreamProtocol(moduleName, "malformed CSV", err)
	}
	if len(records) < 3 {
		return nil, exception.Newf(exception.KindUpstreamProtocol, moduleName,
			"CSV has %d row(s), want 2 metadata rows and a data header", len(records))
	}
	if len(records[0]) > 0 && strings.TrimSpace(records[0][0]) == "" {
		records = dropFirstColumn(records)
	}

	site, err := parseMetadata(records[0], records[1])
	if err != nil {
		return nil, err
	}
	rows, err := parseRows(records[2], records[3:])
	if err != nil {
		return nil, err
	}
	return &model.TimeSeries{Site: site, Rows: rows}, nil
}

func dropFirstColumn(records [][]string) [][]string {
	out := make([][]string, len(records))
	for i, rec := range records {
		if len(rec) > 0 {
			out[i] = rec[1:]
		}
	}
	return out
}

func parseMetadata(header, values []string) (model.SiteMetadata, error) {
	meta := make(map[string]string, len(header))
	for i, name := range header {
		if i < len(values) {
			meta[strings.TrimSpace(name)] = strings.TrimSpace(values[i])
		}
	}

	site := model.SiteMetadata{Source: meta[colSource], LocationID: meta[colLocationID]}
	tz := colLocalTimeZone
	if _, ok := meta[tz]; !ok {
		tz = colTimeZone
	}
	numbers := []struct {
		name string
		dst  *float64
	}{
		{colLatitude, &site.Latitude},
		{colLongitude, &site.Longitude},
		{tz, &site.TimeZone},
		{colElevation, &site.Elevation},
	}
	for _, n := range numbers {
		v, ok := meta[n.name]
		if !ok || v == "" {
			return model.SiteMetadata{}, exception.Newf(exception.KindUpstreamProtocol, moduleName, "metadata column '%s' is missing", n.name)
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return model.SiteMetadata{}, exception.UpstreamProtocol(moduleName, fmt.Sprintf("metadata column '%s'", n.name), err)
		}
		*n.dst = f
	}
	return site, nil
}

func parseRows(header []string, data [][]string) ([]model.Observation, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(name)
		if name == "" || !hasValues(data, i) {
			continue
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, name := range calendarColumns {
		if _, ok := index[name]; !ok {
			return nil, exception.Newf(exception.KindUpstreamProtocol, moduleName, "data column '%s' is missing", name)
		}
	}

	rows := make([]model.Observation, 0, len(data))
	for n, rec := range data {
		if isBlank(rec) {
			continue
		}
		obs, err := parseRow(index, rec)
		if err != nil {
			return nil, exception.UpstreamProtocol(moduleName, fmt.Sprintf("data row %d", n+1), err)
		}
		rows = append(rows, obs)
	}
	return rows, nil
}

func parseRow(index map[string]int, rec []string) (model.Observation, error) {
	nan := math.NaN()
	obs := model.Observation{
		Temperature: nan, DewPoint: nan, Pressure: nan,
		GHI: nan, DNI: nan, DHI: nan,
		WindDirection: nan, WindSpeed: nan, SurfaceAlbedo: nan,
	}

	calendar := []*int{&obs.Year, &obs.Month, &obs.Day, &obs.Hour, &obs.Minute}
	for i, name := range calendarColumns {
		v, err := cell(rec, index[name])
		if err != nil {
			return obs, fmt.Errorf("%s: %w", name, err)
		}
		if math.IsNaN(v) {
			return obs, fmt.Errorf("%s is empty", name)
		}
		*calendar[i] = int(v)
	}

	for name, field := range measurementColumns {
		i, ok := index[name]
		if !ok {
			continue
		}
		v, err := cell(rec, i)
		if err != nil {
			return obs, fmt.Errorf("%s: %w", name, err)
		}
		*field(&obs) = v
	}
	return obs, nil
}

// cell parses one numeric cell; empty or absent cells are NaN.
func cell(rec []string, i int) (float64, error) {
	if i >= len(rec) {
		return math.NaN(), nil
	}
	s := strings.TrimSpace(rec[i])
	if s == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

func hasValues(data [][]string, i int) bool {
	for _, rec := range data {
		if i < len(rec) && strings.TrimSpace(rec[i]) != "" {
			return true
		}
	}
	return false
}

func isBlank(rec []string) bool {
	for _, v := range rec {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// ReadAll reads r fully and parses it.
func ReadAll(r io.Reader) (*model.TimeSeries, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, exception.UpstreamProtocol(moduleName, "truncated CSV body", err)
		}
		return nil, exception.IO(moduleName, "failed to read CSV body", err)
	}
	return Parse(raw)
}
