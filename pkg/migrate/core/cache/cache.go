// Package cache holds the record files shared by all object tasks of one migration run.
//
// Each file is read from storage at most once per run. The first caller of Load performs
// the read; concurrent and later callers receive the same materialized RecordSet.
package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/port"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// SyntheticIDPrefix starts every synthetic identifier. Remote stores never issue identifiers
// containing '$', so synthetic values stay outside their id namespace.
const SyntheticIDPrefix = "$syn$"

type entry struct {
	once sync.Once
	set  *RecordSet
	err  error
}

// Cache maps file identities to loaded record sets and issues synthetic identifiers.
type Cache struct {
	reader port.RecordFileReader

	mu      sync.Mutex
	entries map[string]*entry

	dirtyMu sync.Mutex
	dirty   map[string]struct{}

	realMu  sync.RWMutex
	realIDs map[string]struct{}

	counter atomic.Uint64
}

// New creates an empty cache reading files through reader.
func New(reader port.RecordFileReader) *Cache {
	return &Cache{
		reader:  reader,
		entries: make(map[string]*entry),
		dirty:   make(map[string]struct{}),
		realIDs: make(map[string]struct{}),
	}
}

// Load returns the record set of file, reading it on first use.
// A missing file yields an empty set. A read error is remembered and returned to every caller.
func (c *Cache) Load(ctx context.Context, file string) (*RecordSet, error) {
	c.mu.Lock()
	e, ok := c.entries[file]
	if !ok {
		e = &entry{}
		c.entries[file] = e
	}
	c.mu.Unlock()

	e.once.Do(func() {
		e.set, e.err = c.read(ctx, file)
	})
	return e.set, e.err
}

// Peek returns the record set of file only if it has already been loaded successfully.
func (c *Cache) Peek(file string) (*RecordSet, bool) {
	c.mu.Lock()
	e, ok := c.entries[file]
	c.mu.Unlock()
	if !ok || e.set == nil {
		return nil, false
	}
	return e.set, true
}

func (c *Cache) read(ctx context.Context, file string) (*RecordSet, error) {
	header, rows, err := c.reader.ReadRecords(ctx, file)
	if err != nil {
		return nil, exception.NewMigrationError("cache", fmt.Sprintf("failed to load record file '%s'", file), err, exception.IsTemporary(err))
	}
	set := newRecordSet(file, header)

	// Real identifiers are registered before any synthetic key of this file is issued.
	c.realMu.Lock()
	for _, r := range rows {
		if id := r.ID(); id != "" {
			c.realIDs[id] = struct{}{}
		}
	}
	c.realMu.Unlock()

	for _, r := range rows {
		key := r.ID()
		if key != "" {
			if _, dup := set.rows[key]; dup {
				logger.Warnf("Duplicate identifier '%s' in '%s'; the row is kept under a synthetic key.", key, file)
				key = ""
			}
		}
		if key == "" {
			key = c.NextSyntheticID()
		}
		set.add(key, r)
	}
	logger.Debugf("Loaded %d record(s) from '%s'.", set.Len(), file)
	return set, nil
}

// NextSyntheticID returns a run-unique identifier that equals no real identifier seen so far.
func (c *Cache) NextSyntheticID() string {
	for {
		id := fmt.Sprintf("%s%012d", SyntheticIDPrefix, c.counter.Add(1))
		c.realMu.RLock()
		_, taken := c.realIDs[id]
		c.realMu.RUnlock()
		if !taken {
			return id
		}
	}
}

// IsSyntheticID reports whether id was shaped by NextSyntheticID.
func IsSyntheticID(id string) bool {
	return strings.HasPrefix(id, SyntheticIDPrefix)
}

// MarkDirty records that file must be written back at the end of the run.
func (c *Cache) MarkDirty(file string) {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	c.dirty[file] = struct{}{}
}

// IsDirty reports whether file has pending changes.
func (c *Cache) IsDirty(file string) bool {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	_, ok := c.dirty[file]
	return ok
}

// DirtyFiles returns the dirty file identities, sorted.
func (c *Cache) DirtyFiles() []string {
	c.dirtyMu.Lock()
	defer c.dirtyMu.Unlock()
	files := make([]string, 0, len(c.dirty))
	for f := range c.dirty {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// Flush writes every dirty file through w and clears the dirty set for files written successfully.
// Failures are aggregated; the remaining files are still attempted.
func (c *Cache) Flush(ctx context.Context, w port.RecordFileWriter) error {
	var result *multierror.Error
	for _, file := range c.DirtyFiles() {
		set, ok := c.Peek(file)
		if !ok {
			continue
		}
		if err := w.WriteRecords(ctx, file, set.Columns(), set.Records()); err != nil {
			result = multierror.Append(result, exception.NewMigrationError("cache", fmt.Sprintf("failed to write record file '%s'", file), err, false))
			continue
		}
		c.dirtyMu.Lock()
		delete(c.dirty, file)
		c.dirtyMu.Unlock()
		logger.Infof("Wrote repaired record file '%s'.", file)
	}
	return result.ErrorOrNil()
}
