package test

import (
	"context"
	"sort"
	"sync"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

type memoryFile struct {
	header []string
	rows   []*model.Record
}

// MemoryFileStore is an in-memory port.RecordFileStore. It counts reads per file so tests can
// assert the load-once contract of the record cache.
type MemoryFileStore struct {
	mu     sync.Mutex
	files  map[string]memoryFile
	reads  map[string]int
	writes map[string]int
	// ReadErr, when set, is returned by every read.
	ReadErr error
	// WriteErr, when set, is returned by every write.
	WriteErr error
}

// NewMemoryFileStore creates an empty store.
func NewMemoryFileStore() *MemoryFileStore {
	return &MemoryFileStore{
		files:  make(map[string]memoryFile),
		reads:  make(map[string]int),
		writes: make(map[string]int),
	}
}

// Put stores a file whose header is the column order of the first row, followed by
// columns first seen in later rows.
func (s *MemoryFileStore) Put(file string, rows ...*model.Record) {
	var header []string
	seen := make(map[string]struct{})
	for _, r := range rows {
		for _, c := range r.Columns() {
			if _, ok := seen[c]; !ok {
				seen[c] = struct{}{}
				header = append(header, c)
			}
		}
	}
	s.PutWithHeader(file, header, rows...)
}

// PutWithHeader stores a file with an explicit header.
func (s *MemoryFileStore) PutWithHeader(file string, header []string, rows ...*model.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[file] = memoryFile{header: append([]string(nil), header...), rows: rows}
}

// ReadHeader implements port.RecordFileReader.
func (s *MemoryFileStore) ReadHeader(_ context.Context, file string) ([]string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ReadErr != nil {
		return nil, false, s.ReadErr
	}
	f, ok := s.files[file]
	if !ok {
		return nil, false, nil
	}
	return append([]string(nil), f.header...), len(f.rows) > 0, nil
}

// ReadRecords implements port.RecordFileReader. Rows are cloned so callers never share
// records with the store.
func (s *MemoryFileStore) ReadRecords(_ context.Context, file string) ([]string, []*model.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads[file]++
	if s.ReadErr != nil {
		return nil, nil, s.ReadErr
	}
	f, ok := s.files[file]
	if !ok {
		return nil, nil, nil
	}
	rows := make([]*model.Record, 0, len(f.rows))
	for _, r := range f.rows {
		rows = append(rows, r.Clone())
	}
	return append([]string(nil), f.header...), rows, nil
}

// WriteRecords implements port.RecordFileWriter.
func (s *MemoryFileStore) WriteRecords(_ context.Context, file string, header []string, rows []*model.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes[file]++
	if s.WriteErr != nil {
		return s.WriteErr
	}
	cloned := make([]*model.Record, 0, len(rows))
	for _, r := range rows {
		cloned = append(cloned, r.Project(header))
	}
	s.files[file] = memoryFile{header: append([]string(nil), header...), rows: cloned}
	return nil
}

// Rows returns the stored rows of file.
func (s *MemoryFileStore) Rows(file string) []*model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[file].rows
}

// Header returns the stored header of file.
func (s *MemoryFileStore) Header(file string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.files[file].header
}

// Reads returns how many times file was read in full.
func (s *MemoryFileStore) Reads(file string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads[file]
}

// Writes returns how many times file was written.
func (s *MemoryFileStore) Writes(file string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes[file]
}

// Files returns the stored file identities, sorted.
func (s *MemoryFileStore) Files() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.files))
	for f := range s.files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
