// Package task implements the per-object migration unit: CSV validation and repair, query
// composition, record counting, deletion of old target records and the bulk write protocol.
package task

import (
	"strings"
	"sync"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/query"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
)

const module = "task"

const (
	recordTypeObject        = "RecordType"
	recordTypeExternalID    = "DeveloperName"
	recordTypeOwnerField    = "SobjectType"
	compositeKeySeparator   = ";"
	defaultExternalIDColumn = "Name"
)

// Definition describes one migrated object as configured.
type Definition struct {
	Name       string
	Operation  model.Operation
	ExternalID string
	// Query is the read template. When empty, every field of the object is selected.
	Query string
	// DeleteQuery is the template used to find old target records. Defaults to Query.
	DeleteQuery string
	// DeleteOldData overrides Settings.DeleteOldData when set.
	DeleteOldData *bool
	Fields        []model.FieldDescriptor
}

// Task is the migration unit of one object type.
type Task struct {
	name          string
	operation     model.Operation
	externalID    string
	fields        []model.FieldDescriptor
	readTemplate  *query.Query
	deleteTmpl    *query.Query
	deleteOldData bool
	env           *Context

	mu          sync.RWMutex
	sourceCount int
	targetCount int
	deleteState DeleteState
	targetIDs   map[string]string
}

// New creates a task from its definition. Query templates are parsed here so a bad template
// fails at construction instead of mid-run.
func New(def Definition, env *Context) (*Task, error) {
	if def.Name == "" {
		return nil, exception.NewMigrationErrorf(module, "object name is required")
	}
	if env == nil {
		env = &Context{}
	}
	t := &Task{
		name:          def.Name,
		operation:     def.Operation,
		externalID:    def.ExternalID,
		fields:        append([]model.FieldDescriptor(nil), def.Fields...),
		deleteOldData: env.Settings.DeleteOldData,
		env:           env,
		targetIDs:     make(map[string]string),
	}
	if t.externalID == "" {
		t.externalID = defaultExternalIDColumn
	}
	if def.DeleteOldData != nil {
		t.deleteOldData = *def.DeleteOldData
	}

	var err error
	if def.Query != "" {
		if t.readTemplate, err = query.Parse(def.Query); err != nil {
			return nil, err
		}
	} else {
		t.readTemplate = &query.Query{Fields: t.QueryFields(), Object: t.name}
	}
	t.deleteTmpl = t.readTemplate
	if def.DeleteQuery != "" {
		if t.deleteTmpl, err = query.Parse(def.DeleteQuery); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// Name returns the object name.
func (t *Task) Name() string { return t.name }

// Operation returns the write operation.
func (t *Task) Operation() model.Operation { return t.operation }

// ExternalID returns the external-identifier field of the object.
func (t *Task) ExternalID() string { return t.externalID }

// Fields returns the field descriptors.
func (t *Task) Fields() []model.FieldDescriptor {
	return append([]model.FieldDescriptor(nil), t.fields...)
}

// FileName returns the record file of the object.
func (t *Task) FileName() string { return FileName(t.name) }

// QueryFields returns every column read for the object: the identifier, the external identifier,
// then each field with both forms of every reference.
func (t *Task) QueryFields() []string {
	cols := newColumnList()
	cols.add(model.IDColumn)
	if !strings.Contains(t.externalID, ".") {
		cols.add(t.externalID)
	}
	for _, f := range t.fields {
		cols.add(f.IDColumn())
		if f.IsReference() {
			cols.add(f.ReadableColumn())
		}
	}
	return cols.list
}

// WriteFields returns the fields required by the write operation. When no field is marked for
// writing, every field is written.
func (t *Task) WriteFields() []model.FieldDescriptor {
	var out []model.FieldDescriptor
	for _, f := range t.fields {
		if f.Write {
			out = append(out, f)
		}
	}
	if len(out) == 0 {
		out = append(out, t.fields...)
	}
	return out
}

// WriteColumns returns the columns sent to the target. Inserts leave the identifier to the target.
func (t *Task) WriteColumns() []string {
	cols := newColumnList()
	if t.operation != model.OperationInsert {
		cols.add(model.IDColumn)
	}
	for _, f := range t.WriteFields() {
		cols.add(f.IDColumn())
	}
	return cols.list
}

func (t *Task) referenceFields() []model.FieldDescriptor {
	var out []model.FieldDescriptor
	for _, f := range t.fields {
		if f.IsReference() {
			out = append(out, f)
		}
	}
	return out
}

// ChildReferences returns the reference fields of sibling tasks that point at this object.
func (t *Task) ChildReferences() []model.ChildReference {
	if t.env.Siblings == nil {
		return nil
	}
	var out []model.ChildReference
	for _, sib := range t.env.Siblings.Tasks() {
		for _, f := range sib.fields {
			if f.ReferenceTo == t.name {
				out = append(out, model.ChildReference{ChildObject: sib.name, Field: f})
			}
		}
	}
	return out
}

func (t *Task) sibling(name string) (*Task, bool) {
	if t.env.Siblings == nil {
		return nil, false
	}
	return t.env.Siblings.TaskByName(name)
}

// SourceCount returns the record count found on the source.
func (t *Task) SourceCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sourceCount
}

// TargetCount returns the record count found on the target.
func (t *Task) TargetCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.targetCount
}

// SetCounts overrides the discovered record counts.
func (t *Task) SetCounts(source, target int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sourceCount, t.targetCount = source, target
}

// SourceStrategy returns the execution path for reads from the source.
func (t *Task) SourceStrategy() model.Strategy {
	return t.strategyFor(t.SourceCount())
}

// TargetStrategy returns the execution path for reads and writes against the target.
func (t *Task) TargetStrategy() model.Strategy {
	return t.strategyFor(t.TargetCount())
}

func (t *Task) strategyFor(count int) model.Strategy {
	if count > t.env.bulkThreshold() {
		return model.StrategyBulk
	}
	return model.StrategySingle
}

// TargetID returns the target identifier assigned to a source identifier by a completed write.
func (t *Task) TargetID(sourceID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.targetIDs[sourceID]
	return id, ok
}

func (t *Task) recordTargetID(sourceID, targetID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.targetIDs[sourceID] = targetID
}

// isRecordTypeKey reports whether lookups against object by externalID need the owner-qualified key.
func isRecordTypeKey(object, externalID string) bool {
	return object == recordTypeObject && externalID == recordTypeExternalID
}

func compositeKey(value, owner string) string {
	return value + compositeKeySeparator + owner
}

type columnList struct {
	seen map[string]struct{}
	list []string
}

func newColumnList() *columnList {
	return &columnList{seen: make(map[string]struct{})}
}

func (c *columnList) add(col string) {
	if col == "" {
		return
	}
	if _, ok := c.seen[col]; ok {
		return
	}
	c.seen[col] = struct{}{}
	c.list = append(c.list, col)
}
