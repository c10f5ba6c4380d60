package gorm

import (
	"fmt"
	"strings"
	"time"

	gormLogger "gorm.io/gorm/logger"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// NewGormLogger creates a gorm logger writing through the application logger. An empty level
// follows the application log level.
func NewGormLogger(level string) gormLogger.Interface {
	return gormLogger.New(NewGormWriter(), gormLogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormLevel(level),
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func gormLevel(level string) gormLogger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return gormLogger.Silent
	case "error":
		return gormLogger.Error
	case "warn":
		return gormLogger.Warn
	case "info":
		return gormLogger.Info
	}
	switch logger.GetLogLevel() {
	case logger.LevelDebug:
		return gormLogger.Info
	case logger.LevelInfo, logger.LevelWarn:
		return gormLogger.Warn
	case logger.LevelError:
		return gormLogger.Error
	default:
		return gormLogger.Silent
	}
}

// GormWriter redirects gorm output to the application logger. SQL traces go to DEBUG.
type GormWriter struct{}

// NewGormWriter creates a new GormWriter.
func NewGormWriter() *GormWriter {
	return &GormWriter{}
}

// Printf implements gorm's logger.Writer.
func (w *GormWriter) Printf(format string, v ...interface{}) {
	msg := strings.TrimSpace(fmt.Sprintf(format, v...))
	if isSQLTrace(msg) {
		logger.Debugf("[GORM] %s", msg)
		return
	}
	logger.Infof("[GORM] %s", msg)
}

func isSQLTrace(msg string) bool {
	if !strings.Contains(msg, "[") || !strings.Contains(msg, "]") {
		return false
	}
	for _, verb := range []string{"SELECT", "INSERT", "UPDATE", "DELETE"} {
		if strings.Contains(msg, verb) {
			return true
		}
	}
	return false
}
