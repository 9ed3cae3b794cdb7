// Package query describes which entities to find and compiles that
// description into SQL over the triples table.
package query

import (
	"maps"
	"slices"
)

// FieldQuery selects the fields to return and constrains the values fields
// must hold. Constraints are conjunctive; a field has at most one.
type FieldQuery struct {
	selected    map[string]struct{}
	constraints map[string]Constraint

	// Limit bounds the number of results; 0 uses the yard's default
	Limit int
	// Offset skips that many matching entities
	Offset int
}

// New returns an empty FieldQuery
func New() *FieldQuery {
	return &FieldQuery{
		selected:    make(map[string]struct{}),
		constraints: make(map[string]Constraint),
	}
}

// Select adds fields to the projection
func (q *FieldQuery) Select(fields ...string) *FieldQuery {
	for _, f := range fields {
		q.selected[f] = struct{}{}
	}
	return q
}

// Unselect removes fields from the projection
func (q *FieldQuery) Unselect(fields ...string) *FieldQuery {
	for _, f := range fields {
		delete(q.selected, f)
	}
	return q
}

// Selected returns the selected fields in lexical order
func (q *FieldQuery) Selected() []string {
	return slices.Sorted(maps.Keys(q.selected))
}

// Where sets the constraint of field, replacing any earlier one. A nil
// constraint removes it.
func (q *FieldQuery) Where(field string, c Constraint) *FieldQuery {
	if c == nil {
		delete(q.constraints, field)
		return q
	}
	q.constraints[field] = c
	return q
}

// Constraint returns the constraint of field
func (q *FieldQuery) Constraint(field string) (Constraint, bool) {
	c, ok := q.constraints[field]
	return c, ok
}

// ConstrainedFields returns the constrained fields in lexical order
func (q *FieldQuery) ConstrainedFields() []string {
	return slices.Sorted(maps.Keys(q.constraints))
}

// WithLimit sets Limit
func (q *FieldQuery) WithLimit(limit int) *FieldQuery {
	q.Limit = limit
	return q
}

// WithOffset sets Offset
func (q *FieldQuery) WithOffset(offset int) *FieldQuery {
	q.Offset = offset
	return q
}

// Clone returns a copy that shares no maps with q. Constraints are values and
// are shared.
func (q *FieldQuery) Clone() *FieldQuery {
	return &FieldQuery{
		selected:    maps.Clone(q.selected),
		constraints: maps.Clone(q.constraints),
		Limit:       q.Limit,
		Offset:      q.Offset,
	}
}
