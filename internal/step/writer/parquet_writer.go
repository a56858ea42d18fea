package writer

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/xitongsys/parquet-go/parquet"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	storage "github.com/tigerroll/nsrdb2epw/pkg/batch/adapter/storage"
	metrics "github.com/tigerroll/nsrdb2epw/pkg/batch/core/metrics"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/exception"
	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
	"github.com/tigerroll/nsrdb2epw/pkg/epw"
)

// EPWRow is the Parquet schema of an exported EPW data row. The site columns
// are repeated on every row so files can be concatenated.
type EPWRow struct {
	LocationID string  `parquet:"name=location_id, type=BYTE_ARRAY, convertedtype=UTF8"`
	Latitude   float64 `parquet:"name=latitude, type=DOUBLE"`
	Longitude  float64 `parquet:"name=longitude, type=DOUBLE"`

	Year                                  int32   `parquet:"name=year, type=INT32"`
	Month                                 int32   `parquet:"name=month, type=INT32"`
	Day                                   int32   `parquet:"name=day, type=INT32"`
	Hour                                  int32   `parquet:"name=hour, type=INT32"`
	Minute                                int32   `parquet:"name=minute, type=INT32"`
	DataSourceFlags                       float64 `parquet:"name=data_source_flags, type=DOUBLE"`
	DryBulbTemperature                    float64 `parquet:"name=dry_bulb_temperature, type=DOUBLE"`
	DewPointTemperature                   float64 `parquet:"name=dew_point_temperature, type=DOUBLE"`
	RelativeHumidity                      float64 `parquet:"name=relative_humidity, type=DOUBLE"`
	AtmosphericStationPressure            float64 `parquet:"name=atmospheric_station_pressure, type=DOUBLE"`
	ExtraterrestrialHorizontalRadiation   float64 `parquet:"name=extraterrestrial_horizontal_radiation, type=DOUBLE"`
	ExtraterrestrialDirectNormalRadiation float64 `parquet:"name=extraterrestrial_direct_normal_radiation, type=DOUBLE"`
	HorizontalInfraredRadiationIntensity  float64 `parquet:"name=horizontal_infrared_radiation_intensity, type=DOUBLE"`
	GlobalHorizontalRadiation             float64 `parquet:"name=global_horizontal_radiation, type=DOUBLE"`
	DirectNormalRadiation                 float64 `parquet:"name=direct_normal_radiation, type=DOUBLE"`
	DiffuseHorizontalRadiation            float64 `parquet:"name=diffuse_horizontal_radiation, type=DOUBLE"`
	GlobalHorizontalIlluminance           float64 `parquet:"name=global_horizontal_illuminance, type=DOUBLE"`
	DirectNormalIlluminance               float64 `parquet:"name=direct_normal_illuminance, type=DOUBLE"`
	DiffuseHorizontalIlluminance          float64 `parquet:"name=diffuse_horizontal_illuminance, type=DOUBLE"`
	ZenithLuminance                       float64 `parquet:"name=zenith_luminance, type=DOUBLE"`
	WindDirection                         float64 `parquet:"name=wind_direction, type=DOUBLE"`
	WindSpeed                             float64 `parquet:"name=wind_speed, type=DOUBLE"`
	TotalSkyCover                         float64 `parquet:"name=total_sky_cover, type=DOUBLE"`
	OpaqueSkyCover                        float64 `parquet:"name=opaque_sky_cover, type=DOUBLE"`
	Visibility                            float64 `parquet:"name=visibility, type=DOUBLE"`
	CeilingHeight                         float64 `parquet:"name=ceiling_height, type=DOUBLE"`
	PresentWeatherObservation             float64 `parquet:"name=present_weather_observation, type=DOUBLE"`
	PresentWeatherCodes                   float64 `parquet:"name=present_weather_codes, type=DOUBLE"`
	PrecipitableWater                     float64 `parquet:"name=precipitable_water, type=DOUBLE"`
	AerosolOpticalDepth                   float64 `parquet:"name=aerosol_optical_depth, type=DOUBLE"`
	SnowDepth                             float64 `parquet:"name=snow_depth, type=DOUBLE"`
	DaysSinceLastSnowfall                 float64 `parquet:"name=days_since_last_snowfall, type=DOUBLE"`
	Albedo                                float64 `parquet:"name=albedo, type=DOUBLE"`
	LiquidPrecipitationDepth              float64 `parquet:"name=liquid_precipitation_depth, type=DOUBLE"`
	LiquidPrecipitationQuantity           float64 `parquet:"name=liquid_precipitation_quantity, type=DOUBLE"`
}

// NewEPWRow converts one table record.
func NewEPWRow(site HeaderParams, r epw.Record) EPWRow {
	return EPWRow{
		LocationID: site.Site.LocationID,
		Latitude:   site.Site.Latitude,
		Longitude:  site.Site.Longitude,

		Year:                                  int32(r[epw.Year]),
		Month:                                 int32(r[epw.Month]),
		Day:                                   int32(r[epw.Day]),
		Hour:                                  int32(r[epw.Hour]),
		Minute:                                int32(r[epw.Minute]),
		DataSourceFlags:                       r[epw.DataSourceFlags],
		DryBulbTemperature:                    r[epw.DryBulbTemperature],
		DewPointTemperature:                   r[epw.DewPointTemperature],
		RelativeHumidity:                      r[epw.RelativeHumidity],
		AtmosphericStationPressure:            r[epw.AtmosphericStationPressure],
		ExtraterrestrialHorizontalRadiation:   r[epw.ExtraterrestrialHorizontalRadiation],
		ExtraterrestrialDirectNormalRadiation: r[epw.ExtraterrestrialDirectNormalRadiation],
		HorizontalInfraredRadiationIntensity:  r[epw.HorizontalInfraredRadiationIntensity],
		GlobalHorizontalRadiation:             r[epw.GlobalHorizontalRadiation],
		DirectNormalRadiation:                 r[epw.DirectNormalRadiation],
		DiffuseHorizontalRadiation:            r[epw.DiffuseHorizontalRadiation],
		GlobalHorizontalIlluminance:           r[epw.GlobalHorizontalIlluminance],
		DirectNormalIlluminance:               r[epw.DirectNormalIlluminance],
		DiffuseHorizontalIlluminance:          r[epw.DiffuseHorizontalIlluminance],
		ZenithLuminance:                       r[epw.ZenithLuminance],
		WindDirection:                         r[epw.WindDirection],
		WindSpeed:                             r[epw.WindSpeed],
		TotalSkyCover:                         r[epw.TotalSkyCover],
		OpaqueSkyCover:                        r[epw.OpaqueSkyCover],
		Visibility:                            r[epw.Visibility],
		CeilingHeight:                         r[epw.CeilingHeight],
		PresentWeatherObservation:             r[epw.PresentWeatherObservation],
		PresentWeatherCodes:                   r[epw.PresentWeatherCodes],
		PrecipitableWater:                     r[epw.PrecipitableWater],
		AerosolOpticalDepth:                   r[epw.AerosolOpticalDepth],
		SnowDepth:                             r[epw.SnowDepth],
		DaysSinceLastSnowfall:                 r[epw.DaysSinceLastSnowfall],
		Albedo:                                r[epw.Albedo],
		LiquidPrecipitationDepth:              r[epw.LiquidPrecipitationDepth],
		LiquidPrecipitationQuantity:           r[epw.LiquidPrecipitationQuantity],
	}
}

// ParquetWriterConfig holds the configuration for ParquetWriter.
type ParquetWriterConfig struct {
	// ObjectPrefix is the directory inside the bucket receiving Parquet files.
	ObjectPrefix string
	// CompressionType is SNAPPY, GZIP, ZSTD or NONE/UNCOMPRESSED.
	CompressionType string
}

// ParquetWriter exports EPW tables as Hive-partitioned Parquet files:
// {prefix}/year={year}/{epw file name}.parquet.
type ParquetWriter struct {
	config   ParquetWriterConfig
	codec    parquet.CompressionCodec
	conn     storage.StorageConnection
	bucket   string
	recorder metrics.MetricRecorder
}

// NewParquetWriter creates a new ParquetWriter.
func NewParquetWriter(cfg ParquetWriterConfig, conn storage.StorageConnection, bucket string, recorder metrics.MetricRecorder) (*ParquetWriter, error) {
	codec, err := getCompressionCodec(cfg.CompressionType)
	if err != nil {
		return nil, exception.Configuration(moduleName, fmt.Sprintf("invalid Parquet compression type '%s'", cfg.CompressionType), err)
	}
	if recorder == nil {
		recorder = metrics.NewNoOpMetricRecorder()
	}
	return &ParquetWriter{config: cfg, codec: codec, conn: conn, bucket: bucket, recorder: recorder}, nil
}

// ObjectName returns the storage name of the Parquet copy of a table.
func (w *ParquetWriter) ObjectName(p HeaderParams, year int) string {
	base := strings.TrimSuffix(FileName(p.Location, p.Site.Latitude, p.Site.Longitude, year), ".epw")
	return path.Join(w.config.ObjectPrefix, "year="+strconv.Itoa(year), base+".parquet")
}

// Write encodes table and uploads it. Write and finalize failures are
// aggregated; nothing is uploaded unless the file was finalized cleanly.
func (w *ParquetWriter) Write(ctx context.Context, p HeaderParams, table *epw.Table) (string, error) {
	objectName := w.ObjectName(p, table.Year())

	buf := new(bytes.Buffer)
	pw, err := pqwriter.NewParquetWriterFromWriter(buf, new(EPWRow), 1)
	if err != nil {
		return "", exception.IO(moduleName, fmt.Sprintf("failed to create Parquet writer for '%s'", objectName), err)
	}
	pw.CompressionType = w.codec

	var multiErr error
	for i, rec := range table.Rows {
		if err := pw.Write(NewEPWRow(p, rec)); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("row %d: %w", i, err))
			break
		}
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				multiErr = multierror.Append(multiErr, fmt.Errorf("parquet writer panicked during WriteStop: %v", r))
				logger.Errorf("ParquetWriter: recovered from panic during WriteStop of '%s': %v", objectName, r)
			}
		}()
		if err := pw.WriteStop(); err != nil {
			multiErr = multierror.Append(multiErr, fmt.Errorf("WriteStop: %w", err))
		}
	}()
	if multiErr != nil {
		return "", exception.IO(moduleName, fmt.Sprintf("failed to encode Parquet file '%s'", objectName), multiErr)
	}

	size := int64(buf.Len())
	if err := w.conn.Upload(ctx, w.bucket, objectName, buf, "application/octet-stream"); err != nil {
		return "", exception.IO(moduleName, fmt.Sprintf("failed to upload Parquet file '%s'", objectName), err)
	}
	w.recorder.RecordFileWritten(ctx, "parquet", size)

	location := w.conn.Location(w.bucket, objectName)
	logger.Debugf("ParquetWriter: uploaded %d bytes to %s", size, location)
	return location, nil
}

// getCompressionCodec returns the Parquet compression codec from a string.
func getCompressionCodec(compressionType string) (parquet.CompressionCodec, error) {
	switch strings.ToUpper(compressionType) {
	case "SNAPPY":
		return parquet.CompressionCodec_SNAPPY, nil
	case "GZIP":
		return parquet.CompressionCodec_GZIP, nil
	case "ZSTD":
		return parquet.CompressionCodec_ZSTD, nil
	case "NONE", "UNCOMPRESSED", "":
		return parquet.CompressionCodec_UNCOMPRESSED, nil
	default:
		return 0, fmt.Errorf("unsupported compression type: %s", compressionType)
	}
}
