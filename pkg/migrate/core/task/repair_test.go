package task_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/cache"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/task"
)

func TestRepair_ResolvesReadableToID(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	f.store.Put("Contact.csv", model.NewRecordFromPairs("Account__r.Name", "Acme"))
	account := f.add(t, accountDef())
	contact := f.add(t, contactDef())
	c := cache.New(f.store)
	ctx := context.Background()

	issues, err := account.Repair(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, issues)
	issues, err = contact.Repair(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, issues)

	set, _ := c.Peek("Contact.csv")
	row := set.First()
	assert.Equal(t, "a1", row.Get("Account__c"))
	assert.Equal(t, "Acme", row.Get("Account__r.Name"))
	assert.True(t, cache.IsSyntheticID(row.ID()))
	assert.False(t, c.IsDirty("Account.csv"))
	assert.True(t, c.IsDirty("Contact.csv"))
}

func TestRepair_MissingParentGetsSyntheticIDAndOneIssue(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	f.store.Put("Contact.csv",
		model.NewRecordFromPairs("Id", "c1", "Account__r.Name", "Ghost"),
		model.NewRecordFromPairs("Id", "c2", "Account__r.Name", "Acme"),
	)
	f.add(t, accountDef())
	contact := f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := contact.Repair(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueMissingParentRecord, issues[0].Error)
	assert.Equal(t, "Contact", issues[0].ChildObject)
	assert.Equal(t, "Account__r.Name", issues[0].ChildField)
	assert.Equal(t, "Ghost", issues[0].ChildValue)
	assert.Equal(t, "Account", issues[0].ParentObject)

	set, _ := c.Peek("Contact.csv")
	ghost, _ := set.Get("c1")
	assert.True(t, cache.IsSyntheticID(ghost.Get("Account__c")))
	acme, _ := set.Get("c2")
	assert.Equal(t, "a1", acme.Get("Account__c"))
}

func TestRepair_IDFormResolvesReadableForm(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	f.store.Put("Contact.csv",
		model.NewRecordFromPairs("Id", "c1", "Account__c", "a1"),
		model.NewRecordFromPairs("Id", "c2", "Account__c", "zz"),
		model.NewRecordFromPairs("Id", "c3", "Account__c", ""),
	)
	contact := f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := contact.Repair(context.Background(), c)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, "zz", issues[0].ChildValue)
	assert.Equal(t, "Account__c", issues[0].ChildField)

	set, _ := c.Peek("Contact.csv")
	r1, _ := set.Get("c1")
	assert.Equal(t, "Acme", r1.Get("Account__r.Name"))
	r2, _ := set.Get("c2")
	assert.True(t, cache.IsSyntheticID(r2.Get("Account__c")))
	assert.True(t, r2.Has("Account__r.Name"))
	r3, _ := set.Get("c3")
	v, ok := r3.Lookup("Account__r.Name")
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestRepair_BothFormsAbsentIsSilent(t *testing.T) {
	f := newFixture()
	f.store.Put("Contact.csv", model.NewRecordFromPairs("Id", "c1", "LastName", "Doe"))
	contact := f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := contact.Repair(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, issues)

	set, _ := c.Peek("Contact.csv")
	row := set.First()
	assert.True(t, cache.IsSyntheticID(row.Get("Account__c")))
	assert.Equal(t, row.Get("Account__c"), row.Get("Account__r.Name"))
}

func TestRepair_IsIdempotentAndComplete(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv",
		model.NewRecordFromPairs("Name", "Acme"),
		model.NewRecordFromPairs("Name", "Globex"),
	)
	f.store.Put("Contact.csv",
		model.NewRecordFromPairs("LastName", "Doe", "Account__r.Name", "Acme"),
		model.NewRecordFromPairs("LastName", "Roe", "Account__r.Name", "Ghost"),
		model.NewRecordFromPairs("LastName", "Poe", "Account__r.Name", ""),
	)
	account := f.add(t, accountDef())
	contact := f.add(t, contactDef())
	c := cache.New(f.store)
	ctx := context.Background()

	_, err := account.Repair(ctx, c)
	require.NoError(t, err)
	first, err := contact.Repair(ctx, c)
	require.NoError(t, err)
	assert.Len(t, first, 1)

	accounts, _ := c.Peek("Account.csv")
	contacts, _ := c.Peek("Contact.csv")
	beforeAccounts := snapshot(accounts.Records())
	beforeContacts := snapshot(contacts.Records())

	for _, tk := range []*task.Task{account, contact} {
		again, err := tk.Repair(ctx, c)
		require.NoError(t, err)
		assert.Empty(t, again, tk.Name())
	}
	assert.Equal(t, beforeAccounts, snapshot(accounts.Records()))
	assert.Equal(t, beforeContacts, snapshot(contacts.Records()))

	for _, r := range contacts.Records() {
		assert.True(t, r.Has("Account__c"))
		assert.True(t, r.Has("Account__r.Name"))
	}
}

func TestRepair_BackfilledIDsPropagateToChildren(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Name", "Acme"))
	f.store.Put("Contact.csv", model.NewRecordFromPairs("Id", "c1", "Account__c", "old-a1", "Account__r.Name", "Acme"))
	account := f.add(t, accountDef())
	f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := account.Repair(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, issues)

	accounts, _ := c.Peek("Account.csv")
	newID := accounts.First().ID()
	require.True(t, cache.IsSyntheticID(newID))

	contacts, _ := c.Peek("Contact.csv")
	row := contacts.First()
	assert.Equal(t, newID, row.Get("Account__c"))
	assert.Equal(t, "Acme", row.Get("Account__r.Name"))
	assert.ElementsMatch(t, []string{"Account.csv", "Contact.csv"}, c.DirtyFiles())
}

func TestRepair_ChildWithoutReadableColumnReportsIssue(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Name", "Acme"))
	f.store.Put("Contact.csv", model.NewRecordFromPairs("Id", "c1", "Account__c", "old-a1"))
	account := f.add(t, accountDef())
	f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := account.Repair(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, issues, 1)
	assert.Equal(t, model.IssueCannotUpdateChildLookup, issues[0].Error)
	assert.Equal(t, "Contact", issues[0].ChildObject)
	assert.Equal(t, "Account__r.Name", issues[0].ChildField)
	assert.False(t, c.IsDirty("Contact.csv"))
}

func TestRepair_RecordTypeUsesOwnerQualifiedKey(t *testing.T) {
	f := newFixture()
	f.store.Put("RecordType.csv",
		model.NewRecordFromPairs("Id", "rt-contact", "DeveloperName", "Business", "SobjectType", "Contact"),
		model.NewRecordFromPairs("Id", "rt-account", "DeveloperName", "Business", "SobjectType", "Account"),
	)
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme", "RecordType.DeveloperName", "Business"))
	account := f.add(t, task.Definition{
		Name:      "Account",
		Operation: model.OperationUpsert,
		Fields: []model.FieldDescriptor{
			{Name: "Name", Write: true},
			{Name: "RecordTypeId", ReferenceTo: "RecordType", ParentExternalID: "DeveloperName", Write: true},
		},
	})
	c := cache.New(f.store)

	issues, err := account.Repair(context.Background(), c)
	require.NoError(t, err)
	assert.Empty(t, issues)

	set, _ := c.Peek("Account.csv")
	assert.Equal(t, "rt-account", set.First().Get("RecordTypeId"))
}

func TestRepair_SyntheticIDsNeverCollide(t *testing.T) {
	f := newFixture()
	f.store.Put("Account.csv", model.NewRecordFromPairs("Id", "a1", "Name", "Acme"))
	var rows []*model.Record
	for i := 0; i < 50; i++ {
		rows = append(rows, model.NewRecordFromPairs("LastName", "Doe", "Account__r.Name", "Ghost"))
	}
	f.store.Put("Contact.csv", rows...)
	contact := f.add(t, contactDef())
	c := cache.New(f.store)

	issues, err := contact.Repair(context.Background(), c)
	require.NoError(t, err)
	assert.Len(t, issues, 50)

	seen := map[string]struct{}{"a1": {}}
	set, _ := c.Peek("Contact.csv")
	for _, r := range set.Records() {
		for _, v := range []string{r.ID(), r.Get("Account__c")} {
			_, dup := seen[v]
			assert.False(t, dup, v)
			seen[v] = struct{}{}
		}
	}
}

func TestRepair_LiveSourceIsNoop(t *testing.T) {
	f := newFixture()
	f.env.Source = task.Side{Name: "source", Client: f.target}
	contact := f.add(t, contactDef())

	issues, err := contact.Repair(context.Background(), cache.New(f.store))
	require.NoError(t, err)
	assert.Empty(t, issues)
	assert.Equal(t, 0, f.store.Reads("Contact.csv"))
}
