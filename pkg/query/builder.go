package query

import (
	"fmt"
	"reflect"
	"strings"
)

// SortField is one ORDER BY term on a view field name.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// ParseSortFields parses "name,-updatedAt" into sort fields; a leading
// "-" sorts descending. Empty input returns nil.
func ParseSortFields(s string) []SortField {
	var fields []SortField
	for part := range strings.SplitSeq(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, desc := strings.CutPrefix(part, "-")
		fields = append(fields, SortField{Field: name, Descending: desc})
	}
	return fields
}

// Builder accumulates WHERE conditions and numbers their parameters as
// they are added.
type Builder struct {
	projection  *ProjectionMap
	where       []string
	args        []any
	sort        []SortField
	defaultSort []SortField
}

// NewBuilder creates a Builder over projection.
func NewBuilder(projection *ProjectionMap, defaultSort ...SortField) *Builder {
	return &Builder{
		projection:  projection,
		defaultSort: defaultSort,
	}
}

func (b *Builder) param(v any) string {
	b.args = append(b.args, v)
	return fmt.Sprintf("$%d", len(b.args))
}

// WhereEquals adds field = value. Nil values are ignored.
func (b *Builder) WhereEquals(field string, value any) *Builder {
	if isNil(value) {
		return b
	}
	b.where = append(b.where, b.projection.Column(field)+" = "+b.param(deref(value)))
	return b
}

// WhereEqualsFold adds a case-insensitive equality. Nil or empty values
// are ignored.
func (b *Builder) WhereEqualsFold(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.where = append(b.where, fmt.Sprintf("lower(%s) = lower(%s)", b.projection.Column(field), b.param(*value)))
	return b
}

// WhereContains adds a case-insensitive substring match.
func (b *Builder) WhereContains(field string, value *string) *Builder {
	if value == nil || *value == "" {
		return b
	}
	b.where = append(b.where, b.projection.Column(field)+" ILIKE "+b.param("%"+*value+"%"))
	return b
}

// WhereSearch matches search against any of fields.
func (b *Builder) WhereSearch(search *string, fields ...string) *Builder {
	if search == nil || *search == "" || len(fields) == 0 {
		return b
	}

	p := b.param("%" + *search + "%")
	clauses := make([]string, len(fields))
	for i, f := range fields {
		clauses[i] = b.projection.Column(f) + " ILIKE " + p
	}
	b.where = append(b.where, "("+strings.Join(clauses, " OR ")+")")
	return b
}

// WhereIn adds field IN (...). Empty values are ignored.
func (b *Builder) WhereIn(field string, values []any) *Builder {
	if len(values) == 0 {
		return b
	}
	ps := make([]string, len(values))
	for i, v := range values {
		ps[i] = b.param(v)
	}
	b.where = append(b.where, fmt.Sprintf("%s IN (%s)", b.projection.Column(field), strings.Join(ps, ", ")))
	return b
}

// OrderByFields replaces the default sort. Fields outside the projection
// are dropped.
func (b *Builder) OrderByFields(fields []SortField) *Builder {
	b.sort = b.sort[:0]
	for _, f := range fields {
		if b.projection.Has(f.Field) {
			b.sort = append(b.sort, f)
		}
	}
	return b
}

// Build returns the full SELECT.
func (b *Builder) Build() (string, []any) {
	return b.selectSQL() + b.whereSQL() + b.orderSQL(), b.args
}

// BuildCount returns SELECT COUNT(*) over the current conditions.
func (b *Builder) BuildCount() (string, []any) {
	return "SELECT COUNT(*) FROM " + b.projection.From() + b.whereSQL(), b.args
}

// BuildPage returns the SELECT limited to one 1-based page.
func (b *Builder) BuildPage(page, pageSize int) (string, []any) {
	q := fmt.Sprintf("%s%s%s LIMIT %d OFFSET %d",
		b.selectSQL(), b.whereSQL(), b.orderSQL(), pageSize, (page-1)*pageSize)
	return q, b.args
}

// BuildSingle returns a SELECT of the row whose idField equals id. Other
// conditions are ignored.
func (b *Builder) BuildSingle(idField string, id any) (string, []any) {
	return fmt.Sprintf("%s WHERE %s = $1", b.selectSQL(), b.projection.Column(idField)), []any{id}
}

// BuildFirst returns the first row matching the current conditions.
func (b *Builder) BuildFirst() (string, []any) {
	return b.selectSQL() + b.whereSQL() + b.orderSQL() + " LIMIT 1", b.args
}

func (b *Builder) selectSQL() string {
	return "SELECT " + b.projection.Columns() + " FROM " + b.projection.From()
}

func (b *Builder) whereSQL() string {
	if len(b.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(b.where, " AND ")
}

func (b *Builder) orderSQL() string {
	fields := b.sort
	if len(fields) == 0 {
		fields = b.defaultSort
	}
	if len(fields) == 0 {
		return ""
	}

	parts := make([]string, len(fields))
	for i, f := range fields {
		dir := "ASC"
		if f.Descending {
			dir = "DESC"
		}
		parts[i] = b.projection.Column(f.Field) + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func deref(v any) any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		return rv.Elem().Interface()
	}
	return v
}
