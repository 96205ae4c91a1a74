package ast

import "strings"

// Update returns the update half of an upsert.
func (s *UpsertStatement) Update(returning bool) *UpdateStatement {
	return &UpdateStatement{
		Table:     s.Table,
		Values:    s.Values,
		Filters:   s.Filters,
		Limit:     s.Limit,
		Returning: returning,
	}
}

// Insert returns the insert half of an upsert. The row carries the
// assignments plus every column pinned by an equality filter
// (column = non-null value), so the inserted row matches the filters.
// Assignments win over filters for the same column.
func (s *UpsertStatement) Insert(returning bool) *InsertStatement {
	values := append([]Assignment(nil), s.Values...)
	for _, a := range EqualityAssignments(s.Filters) {
		if !assigns(values, a.Column) {
			values = append(values, a)
		}
	}
	return &InsertStatement{Table: s.Table, Values: values, Returning: returning}
}

// EqualityAssignments extracts column = value pairs from filters, descending
// into And nodes. Other predicates are ignored.
func EqualityAssignments(filters []Expr) []Assignment {
	var out []Assignment
	for _, f := range filters {
		switch x := f.(type) {
		case Compare:
			if x.Op != OpEq {
				continue
			}
			col, ok := x.Left.(Identifier)
			if !ok || strings.Contains(col.Name, ".") {
				continue
			}
			v, ok := x.Right.(Val)
			if !ok || v.Value.IsNull() {
				continue
			}
			if !assigns(out, col.Name) {
				out = append(out, Set(col.Name, v))
			}
		case And:
			for _, a := range EqualityAssignments(x.Conditions) {
				if !assigns(out, a.Column) {
					out = append(out, a)
				}
			}
		}
	}
	return out
}

func assigns(values []Assignment, column string) bool {
	for _, a := range values {
		if strings.EqualFold(a.Column, column) {
			return true
		}
	}
	return false
}
