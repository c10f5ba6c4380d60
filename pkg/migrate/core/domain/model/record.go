// Package model defines the data structures shared by every migration component:
// records, field descriptors, operations, CSV issues and bulk API results.
package model

// IDColumn is the primary identifier column of every migrated object.
const IDColumn = "Id"

// Record is one row of a migrated object: an ordered mapping of column name to value.
// Columns that no component knows about are carried through untouched, in their original order.
type Record struct {
	columns []string
	values  map[string]string
}

// NewRecord creates an empty Record.
func NewRecord() *Record {
	return &Record{values: make(map[string]string)}
}

// NewRecordFromPairs creates a Record from alternating column/value arguments.
// A trailing column without a value is ignored.
func NewRecordFromPairs(pairs ...string) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(pairs); i += 2 {
		r.Set(pairs[i], pairs[i+1])
	}
	return r
}

// NewRecordFromRow creates a Record from a header and a row of values aligned with it.
// Missing trailing values are stored as empty strings.
func NewRecordFromRow(header []string, row []string) *Record {
	r := NewRecord()
	for i, col := range header {
		v := ""
		if i < len(row) {
			v = row[i]
		}
		r.Set(col, v)
	}
	return r
}

// Get returns the value of a column, or "" when the column is absent.
func (r *Record) Get(column string) string {
	return r.values[column]
}

// Lookup returns the value of a column and whether the column is present.
func (r *Record) Lookup(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Has reports whether the column is present, even with an empty value.
func (r *Record) Has(column string) bool {
	_, ok := r.values[column]
	return ok
}

// Set stores a value, appending the column when it is new.
// It reports whether the record changed.
func (r *Record) Set(column, value string) bool {
	old, ok := r.values[column]
	if !ok {
		r.columns = append(r.columns, column)
		r.values[column] = value
		return true
	}
	if old == value {
		return false
	}
	r.values[column] = value
	return true
}

// SetIfAbsent stores a value only when the column is not present yet.
func (r *Record) SetIfAbsent(column, value string) bool {
	if r.Has(column) {
		return false
	}
	return r.Set(column, value)
}

// Delete removes a column.
func (r *Record) Delete(column string) {
	if _, ok := r.values[column]; !ok {
		return
	}
	delete(r.values, column)
	for i, c := range r.columns {
		if c == column {
			r.columns = append(r.columns[:i], r.columns[i+1:]...)
			break
		}
	}
}

// ID returns the primary identifier value.
func (r *Record) ID() string {
	return r.values[IDColumn]
}

// Columns returns the column names in insertion order.
func (r *Record) Columns() []string {
	out := make([]string, len(r.columns))
	copy(out, r.columns)
	return out
}

// Len returns the number of columns.
func (r *Record) Len() int {
	return len(r.columns)
}

// Clone returns a deep copy.
func (r *Record) Clone() *Record {
	c := &Record{
		columns: make([]string, len(r.columns)),
		values:  make(map[string]string, len(r.values)),
	}
	copy(c.columns, r.columns)
	for k, v := range r.values {
		c.values[k] = v
	}
	return c
}

// Project returns a new Record holding only the given columns that are present, in the given order.
func (r *Record) Project(columns []string) *Record {
	p := NewRecord()
	for _, col := range columns {
		if v, ok := r.values[col]; ok {
			p.Set(col, v)
		}
	}
	return p
}

// Values returns the values aligned with the given header; absent columns yield "".
func (r *Record) Values(header []string) []string {
	out := make([]string, len(header))
	for i, col := range header {
		out[i] = r.values[col]
	}
	return out
}

// ToMap converts the record into a map suitable for database drivers.
// Empty strings are stored as nil so that NULL is written instead of "".
func (r *Record) ToMap() map[string]interface{} {
	m := make(map[string]interface{}, len(r.values))
	for _, col := range r.columns {
		v := r.values[col]
		if v == "" {
			m[col] = nil
			continue
		}
		m[col] = v
	}
	return m
}
