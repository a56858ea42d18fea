// Package writer persists transformed tables: the EPW file itself and an
// optional Parquet copy for analytics.
package writer

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/tigerroll/nsrdb2epw/internal/domain/model"
	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

const moduleName = "writer"

// HeaderParams are the inputs of the parameterized header blocks.
type HeaderParams struct {
	// Location is the display name used in LOCATION and in the file name.
	Location string
	State    string
	Country  string
	Site     model.SiteMetadata
}

// EPWLocation returns the LOCATION block values for p.
func (p HeaderParams) EPWLocation() epw.Location {
	return epw.Location{
		City:      p.Location,
		State:     p.State,
		Country:   p.Country,
		Source:    p.Site.Source,
		Latitude:  p.Site.Latitude,
		Longitude: p.Site.Longitude,
		TimeZone:  p.Site.TimeZone,
		Elevation: p.Site.Elevation,
	}
}

// FileName returns "{location}_{lat}_{lon}_{year}.epw".
func FileName(location string, lat, lon float64, year int) string {
	return location + "_" + epw.FormatCoordinate(lat) + "_" + epw.FormatCoordinate(lon) + "_" + strconv.Itoa(year) + ".epw"
}

// EPWWriter writes EPW files through a storage connection.
type EPWWriter struct {
	conn     storage.StorageConnection
	bucket   string
	recorder metrics.MetricRecorder
}

// NewEPWWriter creates a new EPWWriter.
func NewEPWWriter(conn storage.StorageConnection, bucket string, recorder metrics.MetricRecorder) *EPWWriter {
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &EPWWriter{conn: conn, bucket: bucket, recorder: recorder}
}

// Emit serializes the header built from p and table and stores the file.
// It returns the location of the written file. Any failure is an IOError;
// the storage adapter never leaves a partial file behind.
func (w *EPWWriter) Emit(ctx context.Context, p HeaderParams, table *epw.Table) (string, error) {
	if table == nil || table.Len() == 0 {
		return "", exception.Newf(exception.KindIO, moduleName, "refusing to write an empty table")
	}
	objectName := FileName(p.Location, p.Site.Latitude, p.Site.Longitude, table.Year())

	var buf bytes.Buffer
	if err := epw.Encode(&buf, &epw.File{Header: epw.NewHeader(p.EPWLocation()), Table: table}); err != nil {
		return "", exception.IO(moduleName, fmt.Sprintf("failed to encode '%s'", objectName), err)
	}
	size := int64(buf.Len())
	if err := w.conn.Upload(ctx, w.bucket, objectName, &buf, "text/plain"); err != nil {
		return "", exception.IO(moduleName, fmt.Sprintf("failed to write '%s'", objectName), err)
	}
	w.recorder.RecordFileWritten(ctx, "epw", size)

	location := w.conn.Location(w.bucket, objectName)
	logger.Infof("Successfully written %s", location)
	return location, nil
}
