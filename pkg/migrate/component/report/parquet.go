package report

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// issueRow is the Parquet schema of one CSV issue.
type issueRow struct {
	Date         int64  `parquet:"name=date,type=INT64,convertedtype=TIMESTAMP_MILLIS"`
	ChildObject  string `parquet:"name=child_sobject,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
	ChildField   string `parquet:"name=child_field,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
	ChildValue   string `parquet:"name=child_value,type=BYTE_ARRAY,convertedtype=UTF8"`
	ParentObject string `parquet:"name=parent_sobject,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
	ParentField  string `parquet:"name=parent_field,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
	ParentValue  string `parquet:"name=parent_value,type=BYTE_ARRAY,convertedtype=UTF8"`
	Error        string `parquet:"name=error,type=BYTE_ARRAY,convertedtype=UTF8,encoding=PLAIN_DICTIONARY"`
}

func toIssueRow(i model.CSVIssue) issueRow {
	return issueRow{
		Date:         i.Date.UnixMilli(),
		ChildObject:  i.ChildObject,
		ChildField:   i.ChildField,
		ChildValue:   i.ChildValue,
		ParentObject: i.ParentObject,
		ParentField:  i.ParentField,
		ParentValue:  i.ParentValue,
		Error:        i.Error,
	}
}

// ParquetReporter writes the issues as one SNAPPY-compressed Parquet object. Nothing is written
// when there are no issues.
type ParquetReporter struct {
	conn       storageAdapter.StorageExecutor
	objectName string
}

// Report implements port.IssueReporter.
func (r *ParquetReporter) Report(ctx context.Context, issues []model.CSVIssue) error {
	if len(issues) == 0 {
		logger.Debugf("No CSV issues; skipping '%s'.", r.objectName)
		return nil
	}

	buf := new(bytes.Buffer)
	pw, err := writer.NewParquetWriterFromWriter(buf, new(issueRow), 1)
	if err != nil {
		return exception.NewMigrationError(module, "failed to create Parquet writer", err, false)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, i := range issues {
		if err := pw.Write(toIssueRow(i)); err != nil {
			return exception.NewMigrationError(module, "failed to write issue to Parquet", err, false)
		}
	}
	if err := writeStop(pw); err != nil {
		return err
	}

	if err := r.conn.Upload(ctx, "", r.objectName, buf, "application/octet-stream"); err != nil {
		return uploadError(r.objectName, err)
	}
	logger.Infof("Wrote %d CSV issue(s) to '%s'.", len(issues), r.objectName)
	return nil
}

// writeStop flushes the footer. parquet-go may panic on malformed rows at this point.
func writeStop(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = exception.NewMigrationError(module, "Parquet writer panicked during WriteStop", fmt.Errorf("%v", rec), false)
		}
	}()
	if err := pw.WriteStop(); err != nil {
		return exception.NewMigrationError(module, "failed to stop Parquet writer", err, false)
	}
	return nil
}
