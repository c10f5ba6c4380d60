// Package logging renders task events through the application logger.
package logging

import (
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// Sink logs the events whose verbosity does not exceed the configured one. Warnings and errors
// are always logged.
type Sink struct {
	verbosity event.Verbosity
}

var _ event.Sink = (*Sink)(nil)

// NewSink creates a logging sink.
func NewSink(verbosity event.Verbosity) *Sink {
	return &Sink{verbosity: verbosity}
}

// Emit implements event.Sink.
func (s *Sink) Emit(e event.Event) {
	if e.Verbosity > s.verbosity && e.Severity < event.SeverityWarn {
		return
	}
	logger.Logf(levelOf(e.Severity), "%s", e)
}

func levelOf(s event.Severity) logger.LogLevel {
	switch s {
	case event.SeverityDebug:
		return logger.LevelDebug
	case event.SeverityWarn:
		return logger.LevelWarn
	case event.SeverityError:
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}
