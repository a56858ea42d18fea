package gorm

import (
	"strings"
	"time"

	gorm_logger "gorm.io/gorm/logger"

	"github.com/tigerroll/nsrdb2epw/pkg/batch/support/util/logger"
)

// NewGormLogger creates a gorm logger. Levels follow the application logger
// names; anything unknown is silent.
func NewGormLogger(level string) gorm_logger.Interface {
	var gormLevel gorm_logger.LogLevel
	switch strings.ToUpper(level) {
	case "ERROR":
		gormLevel = gorm_logger.Error
	case "WARN":
		gormLevel = gorm_logger.Warn
	case "INFO", "DEBUG", "TRACE":
		gormLevel = gorm_logger.Info
	default:
		gormLevel = gorm_logger.Silent
	}

	return gorm_logger.New(
		NewGormWriter(),
		gorm_logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
}

// GormWriter redirects GORM log output to the application logger.
type GormWriter struct{}

// NewGormWriter creates a new instance of GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm_logger.Writer. Statement traces go to DEBUG, the
// rest (slow queries, connection warnings) to WARN.
func (w *GormWriter) Printf(format string, args ...interface{}) {
	if strings.Contains(format, "[rows:") {
		logger.Debugf("[GORM] "+format, args...)
		return
	}
	logger.Warnf("[GORM] "+format, args...)
}
