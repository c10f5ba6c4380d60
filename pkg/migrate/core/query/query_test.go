package query_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/query"
)

func TestParse(t *testing.T) {
	q, err := query.Parse("select Id, Name, (SELECT Id FROM Contacts) from Account where Name LIKE 'from %' order by Name desc limit 10 offset 5")
	require.NoError(t, err)

	assert.Equal(t, []string{"Id", "Name", "(SELECT Id FROM Contacts)"}, q.Fields)
	assert.Equal(t, "Account", q.Object)
	assert.Equal(t, "Name LIKE 'from %'", q.Where)
	assert.Equal(t, "Name desc", q.OrderBy)
	assert.Equal(t, 10, q.Limit)
	assert.Equal(t, 5, q.Offset)
}

func TestParse_Errors(t *testing.T) {
	for _, s := range []string{
		"",
		"Id FROM Account",
		"SELECT Id",
		"SELECT FROM Account",
		"SELECT Id FROM",
		"SELECT Id FROM Account LIMIT ten",
	} {
		_, err := query.Parse(s)
		assert.Error(t, err, s)
	}
}

func TestCompose_RemoveLimitsIsPure(t *testing.T) {
	tmpl := query.MustParse("SELECT Id, Name FROM Account WHERE IsDeleted = false ORDER BY Name LIMIT 100 OFFSET 20")
	before := tmpl.Clone()

	got := query.Compose(tmpl, []string{"COUNT(Id)"}, true)

	assert.Equal(t, "SELECT COUNT(Id) FROM Account WHERE IsDeleted = false", got)
	assert.NotContains(t, got, "LIMIT")
	assert.NotContains(t, got, "OFFSET")
	assert.NotContains(t, got, "ORDER BY")
	assert.Equal(t, before, tmpl)
}

func TestCompose_KeepsClausesByDefault(t *testing.T) {
	tmpl := query.MustParse("SELECT Id FROM Account ORDER BY Name LIMIT 3")

	assert.Equal(t, "SELECT Id FROM Account ORDER BY Name LIMIT 3", query.Compose(tmpl, nil, false))
	assert.Equal(t, "SELECT Id, Name FROM Account ORDER BY Name LIMIT 3", query.Compose(tmpl, []string{"Id", "Name"}, false))
}

func TestCompose_FieldSliceIsNotShared(t *testing.T) {
	tmpl := query.MustParse("SELECT Id FROM Account")
	fields := []string{"Id", "Name"}
	query.Compose(tmpl, fields, false)
	fields[0] = "Mutated"

	assert.Equal(t, []string{"Id"}, tmpl.Fields)
}
