// Package port defines the boundaries between the migration core and its collaborators:
// the remote API client of a live side, and the record file storage of a file-only side.
package port

import (
	"context"
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

// QueryResult is the outcome of a query against a live side.
type QueryResult struct {
	Records []*model.Record
	// TotalSize is the number of matching records. For COUNT() queries it carries the count
	// while Records may be empty.
	TotalSize int
}

// RecordResult is the per-record outcome of a CRUD batch.
type RecordResult struct {
	ID      string
	Success bool
	Error   string
	// SourceIndex is the position of the record in the submitted slice.
	SourceIndex int
}

// CrudResult is a completed CRUD batch. Per-record failures do not make the batch fatal.
type CrudResult struct {
	JobID   string
	Records []RecordResult
}

// Failed returns the number of failed records.
func (r *CrudResult) Failed() int {
	n := 0
	for _, rr := range r.Records {
		if !rr.Success {
			n++
		}
	}
	return n
}

// StatusCallback receives the lifecycle transitions of a submitted batch.
// Stages may repeat or be skipped; the receiver must tolerate both.
type StatusCallback func(result model.APIResult)

// APIClient executes queries and CRUD batches against a live side.
type APIClient interface {
	// Query executes a composed query. useBulk selects the batch-oriented read path.
	Query(ctx context.Context, query string, useBulk bool) (*QueryResult, error)
	// SubmitCrudBatch submits records for the given operation and blocks until the batch reaches a
	// terminal state, polling at pollInterval. A nil result with a nil error means the batch ended in an
	// unrecoverable state; callers translate it into a fatal command execution error.
	SubmitCrudBatch(ctx context.Context, object string, records []*model.Record, op model.Operation, pollInterval time.Duration, useBulk bool, cb StatusCallback) (*CrudResult, error)
}

// RecordFileReader reads record files of a file-only side.
type RecordFileReader interface {
	// ReadHeader reads the header and reports whether at least one data row follows.
	// A missing file yields a nil header, false and a nil error.
	ReadHeader(ctx context.Context, file string) (header []string, hasRows bool, err error)
	// ReadRecords reads the whole file. A missing file yields no rows and a nil error.
	ReadRecords(ctx context.Context, file string) (header []string, rows []*model.Record, err error)
}

// RecordFileWriter writes record files.
type RecordFileWriter interface {
	WriteRecords(ctx context.Context, file string, header []string, rows []*model.Record) error
}

// RecordFileStore reads and writes record files.
type RecordFileStore interface {
	RecordFileReader
	RecordFileWriter
}

// IssueReporter persists the collected CSV issues.
type IssueReporter interface {
	Report(ctx context.Context, issues []model.CSVIssue) error
}
