package report

import (
	"bytes"
	"context"
	"encoding/csv"

	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// CSVReporter writes the issues as one CSV object. Nothing is written when there are no issues.
type CSVReporter struct {
	conn       storageAdapter.StorageExecutor
	objectName string
}

// Report implements port.IssueReporter.
func (r *CSVReporter) Report(ctx context.Context, issues []model.CSVIssue) error {
	if len(issues) == 0 {
		logger.Debugf("No CSV issues; skipping '%s'.", r.objectName)
		return nil
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(model.IssueReportHeader); err != nil {
		return exception.NewMigrationError(module, "failed to encode issue report", err, false)
	}
	for _, i := range issues {
		if err := w.Write(i.Row()); err != nil {
			return exception.NewMigrationError(module, "failed to encode issue report", err, false)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.NewMigrationError(module, "failed to encode issue report", err, false)
	}
	if err := r.conn.Upload(ctx, "", r.objectName, &buf, "text/csv"); err != nil {
		return uploadError(r.objectName, err)
	}
	logger.Infof("Wrote %d CSV issue(s) to '%s'.", len(issues), r.objectName)
	return nil
}
