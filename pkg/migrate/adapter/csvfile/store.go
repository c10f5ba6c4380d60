// Package csvfile reads and writes record files as CSV objects on a storage connection.
package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	storageAdapter "github.com/tigerroll/surfin-migrate/pkg/migrate/adapter/storage"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const (
	module      = "csvfile"
	contentType = "text/csv"
	utf8BOM     = "\uFEFF"
)

// Store keeps record files under a directory of a storage connection.
type Store struct {
	conn      storageAdapter.StorageExecutor
	bucket    string
	directory string
}

var _ port.RecordFileStore = (*Store)(nil)

// NewStore creates a Store. An empty bucket uses the connection's default bucket.
func NewStore(conn storageAdapter.StorageExecutor, bucket, directory string) *Store {
	return &Store{conn: conn, bucket: bucket, directory: strings.Trim(directory, "/")}
}

func (s *Store) objectName(file string) string {
	if s.directory == "" {
		return file
	}
	return path.Join(s.directory, file)
}

// open returns a CSV reader over the file, or nil when the file does not exist.
func (s *Store) open(ctx context.Context, file string) (*csv.Reader, io.Closer, error) {
	rc, err := s.conn.Download(ctx, s.bucket, s.objectName(file))
	if err != nil {
		if errors.Is(err, storageAdapter.ErrObjectNotFound) {
			return nil, nil, nil
		}
		return nil, nil, exception.NewMigrationError(module, fmt.Sprintf("failed to open '%s'", file), err, exception.IsTemporary(err))
	}
	r := csv.NewReader(rc)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r, rc, nil
}

func readHeader(r *csv.Reader) ([]string, error) {
	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	return header, nil
}

// ReadHeader implements port.RecordFileReader. Only the header and the first data row are read.
func (s *Store) ReadHeader(ctx context.Context, file string) ([]string, bool, error) {
	r, closer, err := s.open(ctx, file)
	if err != nil || r == nil {
		return nil, false, err
	}
	defer closer.Close()

	header, err := readHeader(r)
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, exception.NewMigrationError(module, fmt.Sprintf("failed to parse header of '%s'", file), err, false)
	}
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return header, false, nil
		}
		return nil, false, exception.NewMigrationError(module, fmt.Sprintf("failed to parse first row of '%s'", file), err, false)
	}
	return header, true, nil
}

// ReadRecords implements port.RecordFileReader. Blank lines are skipped by the CSV reader.
func (s *Store) ReadRecords(ctx context.Context, file string) ([]string, []*model.Record, error) {
	r, closer, err := s.open(ctx, file)
	if err != nil || r == nil {
		return nil, nil, err
	}
	defer closer.Close()

	header, err := readHeader(r)
	if err == io.EOF {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, exception.NewMigrationError(module, fmt.Sprintf("failed to parse header of '%s'", file), err, false)
	}
	var rows []*model.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, exception.NewMigrationError(module, fmt.Sprintf("failed to parse '%s'", file), err, false)
		}
		rows = append(rows, model.NewRecordFromRow(header, row))
	}
	logger.Debugf("Read %d row(s) from '%s'.", len(rows), s.objectName(file))
	return header, rows, nil
}

// WriteRecords implements port.RecordFileWriter. Each row is written aligned with header.
func (s *Store) WriteRecords(ctx context.Context, file string, header []string, rows []*model.Record) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return exception.NewMigrationError(module, fmt.Sprintf("failed to encode header of '%s'", file), err, false)
	}
	for _, r := range rows {
		if err := w.Write(r.Values(header)); err != nil {
			return exception.NewMigrationError(module, fmt.Sprintf("failed to encode '%s'", file), err, false)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return exception.NewMigrationError(module, fmt.Sprintf("failed to encode '%s'", file), err, false)
	}
	if err := s.conn.Upload(ctx, s.bucket, s.objectName(file), &buf, contentType); err != nil {
		return exception.NewMigrationError(module, fmt.Sprintf("failed to upload '%s'", file), err, exception.IsTemporary(err))
	}
	logger.Debugf("Wrote %d row(s) to '%s'.", len(rows), s.objectName(file))
	return nil
}
