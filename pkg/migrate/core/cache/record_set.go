package cache

import (
	"sync"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

// RecordSet is the in-memory content of one record file, keyed by row key.
// The row key is the record's identifier, or a synthetic identifier when the row has none.
// All access is synchronized; callers must not hold rows across calls that mutate them.
type RecordSet struct {
	mu     sync.RWMutex
	file   string
	header []string
	keys   []string
	rows   map[string]*model.Record
}

func newRecordSet(file string, header []string) *RecordSet {
	return &RecordSet{
		file:   file,
		header: append([]string(nil), header...),
		rows:   make(map[string]*model.Record),
	}
}

// File returns the file identity of the set.
func (s *RecordSet) File() string {
	return s.file
}

// Len returns the number of rows.
func (s *RecordSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// IsEmpty reports whether the set has no rows.
func (s *RecordSet) IsEmpty() bool {
	return s.Len() == 0
}

// Get returns the row stored under key.
func (s *RecordSet) Get(key string) (*model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rows[key]
	return r, ok
}

// First returns the first row in file order, or nil.
func (s *RecordSet) First() *model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.keys) == 0 {
		return nil
	}
	return s.rows[s.keys[0]]
}

// Keys returns the row keys in file order.
func (s *RecordSet) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.keys...)
}

// Records returns the rows in file order.
func (s *RecordSet) Records() []*model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Record, 0, len(s.keys))
	for _, k := range s.keys {
		out = append(out, s.rows[k])
	}
	return out
}

// Columns returns the original header followed by any column added to a row since loading.
func (s *RecordSet) Columns() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]struct{}, len(s.header))
	cols := make([]string, 0, len(s.header))
	for _, c := range s.header {
		if _, ok := seen[c]; !ok {
			seen[c] = struct{}{}
			cols = append(cols, c)
		}
	}
	for _, k := range s.keys {
		for _, c := range s.rows[k].Columns() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				cols = append(cols, c)
			}
		}
	}
	return cols
}

// HasColumnInAllRows reports whether every row carries the column. An empty set has no columns.
func (s *RecordSet) HasColumnInAllRows(column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.keys) == 0 {
		return false
	}
	for _, k := range s.keys {
		if !s.rows[k].Has(column) {
			return false
		}
	}
	return true
}

// HasColumnInAnyRow reports whether at least one row carries the column.
func (s *RecordSet) HasColumnInAnyRow(column string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if s.rows[k].Has(column) {
			return true
		}
	}
	return false
}

// Range calls fn for every row under a read lock until fn returns false.
// fn must not mutate the row.
func (s *RecordSet) Range(fn func(key string, rec *model.Record) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, k := range s.keys {
		if !fn(k, s.rows[k]) {
			return
		}
	}
}

// Update calls fn for every row under the write lock. fn reports whether it changed the row.
// Update returns the number of changed rows.
func (s *RecordSet) Update(fn func(key string, rec *model.Record) bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for _, k := range s.keys {
		if fn(k, s.rows[k]) {
			changed++
		}
	}
	return changed
}

func (s *RecordSet) add(key string, rec *model.Record) {
	s.keys = append(s.keys, key)
	s.rows[key] = rec
}
