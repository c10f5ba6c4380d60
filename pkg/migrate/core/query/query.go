// Package query parses record query templates and composes concrete query strings from them.
//
// Only the clause structure is understood: SELECT fields, FROM object and the optional WHERE,
// ORDER BY, LIMIT and OFFSET clauses. Clause bodies are kept as opaque text.
package query

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/tigerroll/surfin-migrate/pkg/migrate/support/util/exception"
)

const module = "query"

// Query is a parsed query template. A zero Limit or Offset means the clause is absent.
type Query struct {
	Fields  []string
	Object  string
	Where   string
	OrderBy string
	Limit   int
	Offset  int
}

var (
	selectRe  = regexp.MustCompile(`(?i)^\s*SELECT\b`)
	fromRe    = regexp.MustCompile(`(?i)\bFROM\b`)
	whereRe   = regexp.MustCompile(`(?i)\bWHERE\b`)
	orderByRe = regexp.MustCompile(`(?i)\bORDER\s+BY\b`)
	limitRe   = regexp.MustCompile(`(?i)\bLIMIT\b`)
	offsetRe  = regexp.MustCompile(`(?i)\bOFFSET\b`)
)

type clause struct {
	re         *regexp.Regexp
	start, end int
}

// Parse parses a query template.
func Parse(s string) (*Query, error) {
	masked := mask(s)
	loc := selectRe.FindStringIndex(masked)
	if loc == nil {
		return nil, exception.NewMigrationErrorf(module, "query must start with SELECT: '%s'", s)
	}
	pos := loc[1]

	clauses := []*clause{{re: fromRe}, {re: whereRe}, {re: orderByRe}, {re: limitRe}, {re: offsetRe}}
	for _, c := range clauses {
		c.start = -1
		if l := c.re.FindStringIndex(masked[pos:]); l != nil {
			c.start, c.end = pos+l[0], pos+l[1]
			pos = c.end
		}
	}
	from := clauses[0]
	if from.start < 0 {
		return nil, exception.NewMigrationErrorf(module, "query has no FROM clause: '%s'", s)
	}

	// body returns the text between the end of clause i and the start of the next present clause.
	body := func(i int) string {
		c := clauses[i]
		if c.start < 0 {
			return ""
		}
		end := len(s)
		for _, next := range clauses[i+1:] {
			if next.start >= 0 {
				end = next.start
				break
			}
		}
		return strings.TrimSpace(s[c.end:end])
	}

	q := &Query{
		Fields:  splitFields(s[loc[1]:from.start]),
		Where:   body(1),
		OrderBy: body(2),
	}
	if len(q.Fields) == 0 {
		return nil, exception.NewMigrationErrorf(module, "query selects no fields: '%s'", s)
	}
	object := strings.Fields(body(0))
	if len(object) == 0 {
		return nil, exception.NewMigrationErrorf(module, "query has no object after FROM: '%s'", s)
	}
	q.Object = object[0]

	var err error
	if q.Limit, err = parseCount(body(3), "LIMIT", s); err != nil {
		return nil, err
	}
	if q.Offset, err = parseCount(body(4), "OFFSET", s); err != nil {
		return nil, err
	}
	return q, nil
}

// MustParse is like Parse but panics on error. Intended for fixed templates.
func MustParse(s string) *Query {
	q, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return q
}

func parseCount(v, name, s string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, exception.NewMigrationErrorf(module, "invalid %s value '%s' in query '%s'", name, v, s)
	}
	return n, nil
}

// mask blanks out quoted literals and parenthesized groups so clause keywords inside them are not matched.
// The result has the same length as s.
func mask(s string) string {
	b := []byte(s)
	depth := 0
	inQuote := false
	for i := 0; i < len(b); i++ {
		switch {
		case inQuote:
			if b[i] == '\\' && i+1 < len(b) {
				b[i], b[i+1] = '_', '_'
				i++
				continue
			}
			if b[i] == '\'' {
				inQuote = false
			}
			b[i] = '_'
		case b[i] == '\'':
			inQuote = true
			b[i] = '_'
		case b[i] == '(':
			depth++
			b[i] = '_'
		case b[i] == ')':
			if depth > 0 {
				depth--
			}
			b[i] = '_'
		case depth > 0:
			b[i] = '_'
		}
	}
	return string(b)
}

func splitFields(list string) []string {
	masked := mask(list)
	var out []string
	start := 0
	for i := 0; i <= len(masked); i++ {
		if i == len(masked) || masked[i] == ',' {
			if f := strings.TrimSpace(list[start:i]); f != "" {
				out = append(out, f)
			}
			start = i + 1
		}
	}
	return out
}

// Clone returns a deep copy.
func (q *Query) Clone() *Query {
	c := *q
	c.Fields = append([]string(nil), q.Fields...)
	return &c
}

// String renders the query.
func (q *Query) String() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(q.Fields, ", "))
	b.WriteString(" FROM ")
	b.WriteString(q.Object)
	if q.Where != "" {
		b.WriteString(" WHERE ")
		b.WriteString(q.Where)
	}
	if q.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(q.OrderBy)
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	if q.Offset > 0 {
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(q.Offset))
	}
	return b.String()
}

// Compose renders a copy of tmpl projecting fields, or the template's own fields when fields is empty.
// With removeLimits the LIMIT, OFFSET and ORDER BY clauses are dropped. tmpl is never modified.
func Compose(tmpl *Query, fields []string, removeLimits bool) string {
	q := tmpl.Clone()
	if len(fields) > 0 {
		q.Fields = append([]string(nil), fields...)
	}
	if removeLimits {
		q.Limit = 0
		q.Offset = 0
		q.OrderBy = ""
	}
	return q.String()
}
