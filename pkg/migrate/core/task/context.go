package task

import (
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/event"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
)

// DefaultBulkThreshold is the record count above which a side switches to the bulk path.
const DefaultBulkThreshold = 200

// Side is one end of a migration: a live store reached through Client, or a directory of record
// files reached through Files.
type Side struct {
	Name     string
	FileOnly bool
	Client   port.APIClient
	Files    port.RecordFileStore
}

// Settings are the run-wide execution settings shared by every task.
type Settings struct {
	// BulkThreshold is the largest record count still served by the single-request path.
	BulkThreshold   int
	BulkBatchSize   int
	SingleBatchSize int
	PollInterval    time.Duration
	// DeleteOldData is the default for tasks that do not set it themselves.
	DeleteOldData bool
}

// Registry resolves sibling tasks by object name.
type Registry interface {
	TaskByName(name string) (*Task, bool)
	Tasks() []*Task
}

// Context is the read-only environment of a task, populated once by the job that owns it.
type Context struct {
	Settings Settings
	Source   Side
	Target   Side
	Sink     event.Sink
	Siblings Registry
}

func (c *Context) bulkThreshold() int {
	if c.Settings.BulkThreshold <= 0 {
		return DefaultBulkThreshold
	}
	return c.Settings.BulkThreshold
}

func (c *Context) sink() event.Sink {
	if c.Sink == nil {
		return event.NopSink{}
	}
	return c.Sink
}

// FileName returns the record file identity of an object.
func FileName(object string) string {
	return object + ".csv"
}
