// Package report exports the CSV issues collected during validation and repair.
package report

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/hashicorp/go-multierror"

	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/config"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const module = "report"

// New returns the file reporter selected by cfg.Format, writing to conn.
func New(conn storageAdapter.StorageExecutor, cfg config.ReportConfig) (port.IssueReporter, error) {
	name := cfg.FileName
	if name == "" {
		name = "CSVIssuesReport"
	}
	switch strings.ToLower(cfg.Format) {
	case "", "csv":
		return &CSVReporter{conn: conn, objectName: objectName(cfg.Directory, name+".csv")}, nil
	case "parquet":
		return &ParquetReporter{conn: conn, objectName: objectName(cfg.Directory, name+".parquet")}, nil
	}
	return nil, exception.NewMigrationErrorf(module, "unsupported report format '%s'", cfg.Format)
}

func objectName(dir, file string) string {
	dir = strings.Trim(dir, "/")
	if dir == "" {
		return file
	}
	return path.Join(dir, file)
}

// LogReporter writes every issue to the log at WARN level.
type LogReporter struct{}

// Report implements port.IssueReporter.
func (LogReporter) Report(ctx context.Context, issues []model.CSVIssue) error {
	for _, i := range issues {
		logger.Warnf("[%s] %s: field=%s value=%q parent=%s.%s parentValue=%q",
			i.ChildObject, i.Error, i.ChildField, i.ChildValue, i.ParentObject, i.ParentField, i.ParentValue)
	}
	if len(issues) > 0 {
		logger.Warnf("%d CSV issue(s) found.", len(issues))
	}
	return nil
}

// Multi fans issues out to several reporters. Every reporter runs; their errors are aggregated.
type Multi []port.IssueReporter

// Report implements port.IssueReporter.
func (m Multi) Report(ctx context.Context, issues []model.CSVIssue) error {
	var result error
	for _, r := range m {
		if err := r.Report(ctx, issues); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}

func uploadError(objectName string, err error) error {
	return exception.NewMigrationError(module, fmt.Sprintf("failed to upload issue report '%s'", objectName), err, exception.IsTemporary(err))
}
