package task

import (
	"context"
	"time"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/cache"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/logger"
)

// issueLog accumulates the issues of one repair pass.
type issueLog struct {
	now    time.Time
	issues []model.CSVIssue
}

func (l *issueLog) add(i model.CSVIssue) {
	i.Date = l.now
	l.issues = append(l.issues, i)
}

// parentIndex holds the lookups built from one parent file.
type parentIndex struct {
	// externalByID maps parent identifiers to their readable value.
	externalByID map[string]string
	// idByExternal maps readable values to parent identifiers. Duplicate values keep the last row.
	idByExternal map[string]string
}

// Repair fills in the missing identifier and reference columns of the object's source file.
// Already present columns are never overwritten, so repeating Repair on the same cache changes
// nothing. The error return is reserved for storage failures; data problems are issues.
func (t *Task) Repair(ctx context.Context, c *cache.Cache) ([]model.CSVIssue, error) {
	if !t.env.Source.FileOnly {
		return nil, nil
	}
	set, err := c.Load(ctx, t.FileName())
	if err != nil {
		return nil, err
	}
	if set.IsEmpty() {
		return nil, nil
	}

	log := &issueLog{now: time.Now()}
	if t.backfillIDs(c, set) {
		if err := t.propagateToChildren(ctx, c, set, log); err != nil {
			return log.issues, err
		}
	}
	for _, f := range t.referenceFields() {
		if set.HasColumnInAllRows(f.IDColumn()) && set.HasColumnInAllRows(f.ReadableColumn()) {
			continue
		}
		if err := t.repairReference(ctx, c, set, f, log); err != nil {
			return log.issues, err
		}
	}
	if len(log.issues) > 0 {
		logger.Warnf("[%s] Repair reported %d issue(s).", t.name, len(log.issues))
	}
	return log.issues, nil
}

// backfillIDs copies each row key into the identifier column when no row has one.
func (t *Task) backfillIDs(c *cache.Cache, set *cache.RecordSet) bool {
	if set.HasColumnInAnyRow(model.IDColumn) {
		return false
	}
	changed := set.Update(func(key string, r *model.Record) bool {
		return r.SetIfAbsent(model.IDColumn, key)
	})
	if changed > 0 {
		c.MarkDirty(set.File())
		logger.Debugf("[%s] Assigned identifiers to %d row(s).", t.name, changed)
	}
	return changed > 0
}

// repairReference resolves the missing form of one reference column on every row.
func (t *Task) repairReference(ctx context.Context, c *cache.Cache, set *cache.RecordSet, f model.FieldDescriptor, log *issueLog) error {
	idx, err := t.loadParentIndex(ctx, c, f)
	if err != nil {
		return err
	}
	idCol, readCol := f.IDColumn(), f.ReadableColumn()
	composite := isRecordTypeKey(f.ReferenceTo, f.ParentExternalID)

	var pending []model.CSVIssue
	changed := set.Update(func(_ string, r *model.Record) bool {
		hasID, hasRead := r.Has(idCol), r.Has(readCol)
		switch {
		case hasID && hasRead:
			return false

		case !hasID && !hasRead:
			syn := c.NextSyntheticID()
			r.Set(idCol, syn)
			r.Set(readCol, syn)
			return true

		case hasID:
			v := r.Get(idCol)
			if v == "" {
				return r.Set(readCol, "")
			}
			if ext, ok := idx.externalByID[v]; ok {
				return r.Set(readCol, ext)
			}
			pending = append(pending, model.CSVIssue{
				ChildObject:  t.name,
				ChildField:   idCol,
				ChildValue:   v,
				ParentObject: f.ReferenceTo,
				ParentField:  model.IDColumn,
				ParentValue:  v,
				Error:        model.IssueMissingParentRecord,
			})
			syn := c.NextSyntheticID()
			r.Set(idCol, syn)
			r.Set(readCol, syn)
			return true

		default:
			v := r.Get(readCol)
			if v == "" {
				return r.Set(idCol, "")
			}
			key := v
			if composite {
				key = compositeKey(v, t.name)
			}
			if id, ok := idx.idByExternal[key]; ok {
				return r.Set(idCol, id)
			}
			pending = append(pending, model.CSVIssue{
				ChildObject:  t.name,
				ChildField:   readCol,
				ChildValue:   v,
				ParentObject: f.ReferenceTo,
				ParentField:  f.ParentExternalID,
				ParentValue:  v,
				Error:        model.IssueMissingParentRecord,
			})
			return r.Set(idCol, c.NextSyntheticID())
		}
	})
	for _, i := range pending {
		log.add(i)
	}
	if changed > 0 {
		c.MarkDirty(set.File())
		logger.Debugf("[%s] Repaired '%s' on %d row(s).", t.name, f.Name, changed)
	}
	return nil
}

// loadParentIndex reads the parent file through the cache, whether or not the parent object is
// migrated in this run, and indexes it both ways. Rows without an identifier are keyed by their
// cache row key.
func (t *Task) loadParentIndex(ctx context.Context, c *cache.Cache, f model.FieldDescriptor) (*parentIndex, error) {
	parent, err := c.Load(ctx, FileName(f.ReferenceTo))
	if err != nil {
		return nil, err
	}
	idx := &parentIndex{
		externalByID: make(map[string]string),
		idByExternal: make(map[string]string),
	}
	composite := isRecordTypeKey(f.ReferenceTo, f.ParentExternalID)
	parent.Range(func(key string, r *model.Record) bool {
		id := r.ID()
		if id == "" {
			id = key
		}
		ext := r.Get(f.ParentExternalID)
		idx.externalByID[id] = ext
		if ext == "" {
			return true
		}
		if composite {
			ext = compositeKey(ext, r.Get(recordTypeOwnerField))
		}
		idx.idByExternal[ext] = id
		return true
	})
	return idx, nil
}

// propagateToChildren pushes freshly assigned identifiers into the reference columns of every child
// file whose readable values match this object's external-identifier values.
func (t *Task) propagateToChildren(ctx context.Context, c *cache.Cache, set *cache.RecordSet, log *issueLog) error {
	for _, ref := range t.ChildReferences() {
		child, err := c.Load(ctx, FileName(ref.ChildObject))
		if err != nil {
			return err
		}
		if child.IsEmpty() {
			continue
		}
		readCol := ref.ReadableColumn()
		if !child.HasColumnInAnyRow(readCol) {
			log.add(model.CSVIssue{
				ChildObject:  ref.ChildObject,
				ChildField:   readCol,
				ParentObject: t.name,
				ParentField:  ref.Field.ParentExternalID,
				Error:        model.IssueCannotUpdateChildLookup,
			})
			continue
		}

		composite := isRecordTypeKey(t.name, ref.Field.ParentExternalID)
		type target struct{ id, readable string }
		byExternal := make(map[string]target)
		set.Range(func(_ string, r *model.Record) bool {
			ext := r.Get(ref.Field.ParentExternalID)
			if ext == "" {
				return true
			}
			key := ext
			if composite {
				key = compositeKey(ext, r.Get(recordTypeOwnerField))
			}
			byExternal[key] = target{id: r.ID(), readable: ext}
			return true
		})

		changed := child.Update(func(_ string, r *model.Record) bool {
			v := r.Get(readCol)
			if v == "" {
				return false
			}
			key := v
			if composite {
				key = compositeKey(v, ref.ChildObject)
			}
			p, ok := byExternal[key]
			if !ok {
				return false
			}
			idChanged := r.Set(ref.IDColumn(), p.id)
			readChanged := r.Set(readCol, p.readable)
			return idChanged || readChanged
		})
		if changed > 0 {
			c.MarkDirty(child.File())
			logger.Debugf("[%s] Updated '%s' on %d row(s) of '%s'.", t.name, ref.IDColumn(), changed, ref.ChildObject)
		}
	}
	return nil
}
