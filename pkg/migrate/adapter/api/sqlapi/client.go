// Package sqlapi implements port.APIClient over a relational store reached through gorm.
// Each object is a table of the same name whose columns are the object's fields, keyed by Id.
package sqlapi

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/query"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

const module = "sqlapi"

const defaultPollInterval = time.Second

// Client executes queries and CRUD batches against one live side.
type Client struct {
	db          *gorm.DB
	name        string
	pollTimeout time.Duration
	newID       func() string
}

var _ port.APIClient = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithPollTimeout bounds how long a bulk batch may run. Zero disables the bound.
func WithPollTimeout(d time.Duration) Option {
	return func(c *Client) { c.pollTimeout = d }
}

// WithIDGenerator replaces the generator of identifiers assigned to inserted records.
func WithIDGenerator(fn func() string) Option {
	return func(c *Client) { c.newID = fn }
}

// New creates a Client for the side called name.
func New(db *gorm.DB, name string, opts ...Option) *Client {
	c := &Client{
		db:    db.Session(&gorm.Session{SkipDefaultTransaction: true}),
		name:  name,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the side name.
func (c *Client) Name() string { return c.name }

// Query executes a composed query. A single COUNT(...) field yields TotalSize only. Relationship
// columns such as Account__r.Name are not physical columns and are left out of the select.
func (c *Client) Query(ctx context.Context, q string, useBulk bool) (*port.QueryResult, error) {
	parsed, err := query.Parse(q)
	if err != nil {
		return nil, err
	}
	tx := c.db.WithContext(ctx).Table(parsed.Object)
	if parsed.Where != "" {
		tx = tx.Where(parsed.Where)
	}

	if isCount(parsed.Fields) {
		var n int64
		if err := tx.Count(&n).Error; err != nil {
			return nil, exception.NewMigrationErrorf(module, "count on '%s' failed (side '%s')", parsed.Object, c.name, exception.IsTemporary(err), err)
		}
		logger.Debugf("[%s] COUNT %s = %d", c.name, parsed.Object, n)
		return &port.QueryResult{TotalSize: int(n)}, nil
	}

	columns := physicalColumns(parsed.Fields)
	tx = tx.Select(columns)
	if parsed.OrderBy != "" {
		tx = tx.Order(parsed.OrderBy)
	}
	if parsed.Limit > 0 {
		tx = tx.Limit(parsed.Limit)
	}
	if parsed.Offset > 0 {
		tx = tx.Offset(parsed.Offset)
	}

	rows, err := tx.Rows()
	if err != nil {
		return nil, exception.NewMigrationErrorf(module, "query on '%s' failed (side '%s')", parsed.Object, c.name, exception.IsTemporary(err), err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, exception.NewMigrationErrorf(module, "failed to read '%s' rows (side '%s')", parsed.Object, c.name, err)
	}
	mode := "single"
	if useBulk {
		mode = "bulk"
	}
	logger.Debugf("[%s] Read %d %s record(s) (%s).", c.name, len(records), parsed.Object, mode)
	return &port.QueryResult{Records: records, TotalSize: len(records)}, nil
}

func isCount(fields []string) bool {
	return len(fields) == 1 && strings.HasPrefix(strings.ToUpper(strings.TrimSpace(fields[0])), "COUNT(")
}

func physicalColumns(fields []string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if strings.Contains(f, ".") {
			continue
		}
		out = append(out, f)
	}
	return out
}

// scanRecords converts every row into a Record. NULL becomes "".
func scanRecords(rows *sql.Rows) ([]*model.Record, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []*model.Record
	values := make([]sql.NullString, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		row := make([]string, len(cols))
		for i, v := range values {
			row[i] = v.String
		}
		out = append(out, model.NewRecordFromRow(cols, row))
	}
	return out, rows.Err()
}
