package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
)

func TestRecord_PreservesColumnOrder(t *testing.T) {
	r := model.NewRecordFromPairs("Id", "a1", "Name", "Acme", "Custom__x", "kept")

	assert.Equal(t, []string{"Id", "Name", "Custom__x"}, r.Columns())
	assert.Equal(t, "a1", r.ID())
	assert.Equal(t, "kept", r.Get("Custom__x"))

	assert.True(t, r.Set("Account__c", "p1"))
	assert.False(t, r.Set("Account__c", "p1"), "same value must not count as a change")
	assert.True(t, r.Set("Name", "Acme Ltd"))
	assert.Equal(t, []string{"Id", "Name", "Custom__x", "Account__c"}, r.Columns())
}

func TestRecord_HasDistinguishesEmptyFromAbsent(t *testing.T) {
	r := model.NewRecordFromRow([]string{"Id", "Name"}, []string{"a1"})

	assert.True(t, r.Has("Name"))
	assert.Equal(t, "", r.Get("Name"))
	assert.False(t, r.Has("Phone"))

	v, ok := r.Lookup("Phone")
	assert.False(t, ok)
	assert.Empty(t, v)

	assert.False(t, r.SetIfAbsent("Name", "x"))
	assert.True(t, r.SetIfAbsent("Phone", "123"))
}

func TestRecord_CloneProjectDelete(t *testing.T) {
	r := model.NewRecordFromPairs("Id", "a1", "Name", "Acme", "Phone", "")
	c := r.Clone()
	c.Set("Name", "Other")
	assert.Equal(t, "Acme", r.Get("Name"))

	p := r.Project([]string{"Name", "Missing", "Id"})
	assert.Equal(t, []string{"Name", "Id"}, p.Columns())

	r.Delete("Name")
	assert.Equal(t, []string{"Id", "Phone"}, r.Columns())
	assert.Equal(t, []string{"a1", "", ""}, r.Values([]string{"Id", "Name", "Phone"}))

	m := r.ToMap()
	assert.Equal(t, "a1", m["Id"])
	assert.Nil(t, m["Phone"])
}

func TestFieldDescriptor_ColumnForms(t *testing.T) {
	custom := model.FieldDescriptor{Name: "Account__c", ReferenceTo: "Account", ParentExternalID: "Name"}
	assert.True(t, custom.IsReference())
	assert.Equal(t, "Account__c", custom.IDColumn())
	assert.Equal(t, "Account__r", custom.RelationshipName())
	assert.Equal(t, "Account__r.Name", custom.ReadableColumn())

	standard := model.FieldDescriptor{Name: "AccountId", ReferenceTo: "Account", ParentExternalID: "Name"}
	assert.Equal(t, "Account.Name", standard.ReadableColumn())

	plain := model.FieldDescriptor{Name: "Phone"}
	assert.False(t, plain.IsReference())
	assert.Equal(t, "", plain.ReadableColumn())
}

func TestParseOperation(t *testing.T) {
	op, err := model.ParseOperation(" upsert ")
	assert.NoError(t, err)
	assert.Equal(t, model.OperationUpsert, op)
	assert.Equal(t, "Upsert", op.String())

	_, err = model.ParseOperation("merge")
	assert.Error(t, err)
}

func TestAPIStatus(t *testing.T) {
	assert.Equal(t, "CompletedWithWarnings", model.APIStatusCompletedWithWarnings.String())
	assert.True(t, model.APIStatusFailed.IsTerminal())
	assert.False(t, model.APIStatusInProgress.IsTerminal())
	assert.Equal(t, "Unknown", model.APIStatus(99).String())
}
