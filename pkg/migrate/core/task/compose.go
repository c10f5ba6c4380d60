package task

import (
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/domain/model"
	"github.com/tigerroll/surfin-migrate/pkg/migrate/core/query"
)

// ComposeQuery renders the read query. fields defaults to the template's fields followed by every
// other read column of the task, removeLimits strips LIMIT, OFFSET and ORDER BY, and tmpl replaces
// the read template when non-nil. The templates are never modified.
func (t *Task) ComposeQuery(fields []string, removeLimits bool, tmpl *query.Query) string {
	if tmpl == nil {
		tmpl = t.readTemplate
	}
	if len(fields) == 0 {
		fields = t.fieldsOf(tmpl)
	}
	return query.Compose(tmpl, fields, removeLimits)
}

// ReadFields returns the columns of the read query: the read template's own fields, then the
// columns of QueryFields it leaves out.
func (t *Task) ReadFields() []string {
	return t.fieldsOf(t.readTemplate)
}

func (t *Task) fieldsOf(tmpl *query.Query) []string {
	cols := newColumnList()
	for _, f := range tmpl.Fields {
		cols.add(f)
	}
	for _, f := range t.QueryFields() {
		cols.add(f)
	}
	return cols.list
}

// ComposeDeleteQuery renders the query selecting the identifiers of target records to delete.
func (t *Task) ComposeDeleteQuery() string {
	return t.ComposeQuery([]string{model.IDColumn}, true, t.deleteTmpl)
}

// ComposeCountQuery renders the COUNT query of the read template without pagination.
func (t *Task) ComposeCountQuery() string {
	return t.ComposeQuery([]string{"COUNT(" + model.IDColumn + ")"}, true, nil)
}
