// Package event defines the structured progress events emitted by object tasks and the sink
// interface that renders them.
package event

import (
	"fmt"
	"strings"
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

// Verbosity is the minimum output verbosity at which an event is shown.
type Verbosity int

const (
	VerbosityMinimal Verbosity = iota
	VerbosityNormal
	VerbosityVerbose
)

func (v Verbosity) String() string {
	switch v {
	case VerbosityMinimal:
		return "minimal"
	case VerbosityNormal:
		return "normal"
	case VerbosityVerbose:
		return "verbose"
	default:
		return "unknown"
	}
}

// ParseVerbosity parses "minimal", "normal" or "verbose". Anything else yields VerbosityNormal.
func ParseVerbosity(s string) Verbosity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "minimal":
		return VerbosityMinimal
	case "verbose":
		return VerbosityVerbose
	default:
		return VerbosityNormal
	}
}

// Severity is the log severity of an event.
type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "DEBUG"
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SeverityOf maps a message importance onto a severity.
func SeverityOf(i model.Importance) Severity {
	switch i {
	case model.ImportanceLow:
		return SeverityDebug
	case model.ImportanceWarn:
		return SeverityWarn
	case model.ImportanceError:
		return SeverityError
	default:
		return SeverityInfo
	}
}

// Event is one bulk-operation status transition of an object task.
type Event struct {
	Time      time.Time
	Object    string
	Operation model.Operation
	Status    model.APIStatus
	Verbosity Verbosity
	Severity  Severity
	JobID     string
	BatchID   string
	Message   string
	Processed int
	Failed    int
}

// String renders the event as a single log line.
func (e Event) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: %s", e.Object, e.Operation, e.Status)
	if e.JobID != "" {
		fmt.Fprintf(&b, " job=%s", e.JobID)
	}
	if e.BatchID != "" {
		fmt.Fprintf(&b, " batch=%s", e.BatchID)
	}
	if e.Processed > 0 || e.Failed > 0 {
		fmt.Fprintf(&b, " processed=%d failed=%d", e.Processed, e.Failed)
	}
	if e.Message != "" {
		fmt.Fprintf(&b, " - %s", e.Message)
	}
	return b.String()
}

// Sink receives events synchronously, in emission order.
// A sink must tolerate repeated and skipped lifecycle stages.
type Sink interface {
	Emit(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event)

// Emit calls f(e).
func (f SinkFunc) Emit(e Event) { f(e) }

// MultiSink forwards every event to each sink in order.
type MultiSink []Sink

// Emit implements Sink.
func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements Sink.
func (NopSink) Emit(Event) {}
