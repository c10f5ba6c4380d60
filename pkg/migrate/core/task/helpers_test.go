package task_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/task"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/test"
)

type fixture struct {
	store  *test.MemoryFileStore
	target *test.MockAPIClient
	sink   *test.CapturingSink
	set    *task.Set
	env    *task.Context
}

// newFixture builds a file-only source and a live target.
func newFixture() *fixture {
	f := &fixture{
		store:  test.NewMemoryFileStore(),
		target: &test.MockAPIClient{},
		sink:   &test.CapturingSink{},
		set:    task.NewSet(),
	}
	f.env = &task.Context{
		Settings: task.Settings{BulkThreshold: 200},
		Source:   task.Side{Name: "csvfile", FileOnly: true, Files: f.store},
		Target:   task.Side{Name: "target", Client: f.target},
		Sink:     f.sink,
		Siblings: f.set,
	}
	return f
}

func (f *fixture) add(t *testing.T, def task.Definition) *task.Task {
	t.Helper()
	tk, err := task.New(def, f.env)
	require.NoError(t, err)
	f.set.Add(tk)
	return tk
}

func accountDef() task.Definition {
	return task.Definition{
		Name:       "Account",
		Operation:  model.OperationUpsert,
		ExternalID: "Name",
		Fields:     []model.FieldDescriptor{{Name: "Name", Write: true}},
	}
}

func contactDef() task.Definition {
	return task.Definition{
		Name:       "Contact",
		Operation:  model.OperationUpsert,
		ExternalID: "LastName",
		Fields: []model.FieldDescriptor{
			{Name: "LastName", Write: true},
			{Name: "Account__c", ReferenceTo: "Account", ParentExternalID: "Name", Write: true},
		},
	}
}

func snapshot(records []*model.Record) []map[string]string {
	out := make([]map[string]string, 0, len(records))
	for _, r := range records {
		m := make(map[string]string)
		for _, c := range r.Columns() {
			m[c] = r.Get(c)
		}
		out = append(out, m)
	}
	return out
}
