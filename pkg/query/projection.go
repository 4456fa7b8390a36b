// Package query builds parameterized PostgreSQL statements from a projection
// of logical field names onto table columns.
package query

import "strings"

// ProjectionMap maps logical field names to alias-qualified columns of one
// table. Columns render in the order they were projected.
type ProjectionMap struct {
	schema  string
	table   string
	alias   string
	fields  map[string]string
	ordered []string
}

func NewProjectionMap(schema, table, alias string) *ProjectionMap {
	return &ProjectionMap{
		schema: schema,
		table:  table,
		alias:  alias,
		fields: make(map[string]string),
	}
}

// Project maps field to column and appends the column to the select list.
func (p *ProjectionMap) Project(column, field string) *ProjectionMap {
	qualified := p.alias + "." + column
	p.fields[field] = qualified
	p.ordered = append(p.ordered, qualified)
	return p
}

// Table returns "schema.table alias".
func (p *ProjectionMap) Table() string {
	return p.schema + "." + p.table + " " + p.alias
}

// Column resolves field to its qualified column. Unknown names pass through
// unchanged so callers can reference raw expressions.
func (p *ProjectionMap) Column(field string) string {
	if col, ok := p.lookup(field); ok {
		return col
	}
	return field
}

func (p *ProjectionMap) lookup(field string) (string, bool) {
	col, ok := p.fields[field]
	return col, ok
}

func (p *ProjectionMap) Columns() string {
	return strings.Join(p.ordered, ", ")
}

// Returning lists the columns without the alias, for INSERT and UPDATE
// RETURNING clauses where the alias is not in scope.
func (p *ProjectionMap) Returning() string {
	bare := make([]string, len(p.ordered))
	for i, c := range p.ordered {
		bare[i] = strings.TrimPrefix(c, p.alias+".")
	}
	return strings.Join(bare, ", ")
}
