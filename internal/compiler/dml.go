package compiler

import (
	"slices"
	"strconv"
	"strings"

	"relcore/internal/ast"
)

func (b *builder) selectQuery(s *ast.SelectQuery) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	b.write("SELECT ")
	if s.Distinct {
		b.write("DISTINCT ")
	}
	if len(s.Columns) == 0 {
		b.write("*")
	} else if err := b.exprList(s.Columns); err != nil {
		return err
	}
	b.write(" FROM ", b.ident(s.Table))

	for _, j := range s.Joins {
		b.write(" ")
		if err := b.join(j); err != nil {
			return err
		}
	}
	if err := b.where(s.Filters); err != nil {
		return err
	}
	if len(s.Sorts) > 0 {
		b.write(" ORDER BY ")
		for i, srt := range s.Sorts {
			if i > 0 {
				b.write(", ")
			}
			if err := b.sort(srt); err != nil {
				return err
			}
		}
	}
	switch {
	case s.Limit > 0:
		b.write(" LIMIT ", strconv.Itoa(s.Limit))
	case s.Offset > 0:
		// OFFSET is only valid after LIMIT; -1 means no limit.
		b.write(" LIMIT -1")
	}
	if s.Offset > 0 {
		b.write(" OFFSET ", strconv.Itoa(s.Offset))
	}
	return nil
}

// where writes " WHERE f1 AND f2 ..." or nothing for an empty filter list.
func (b *builder) where(filters []ast.Expr) error {
	if len(filters) == 0 {
		return nil
	}
	b.write(" WHERE ")
	for i, f := range filters {
		if i > 0 {
			b.write(" AND ")
		}
		if err := b.expr(f); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) returning(returning bool) error {
	if !returning {
		return nil
	}
	if !b.c.caps.Returning {
		return invalid("dialect %s has no RETURNING clause", b.c.dialect.Name())
	}
	b.write(" RETURNING *")
	return nil
}

func (b *builder) insert(s *ast.InsertStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	b.write("INSERT INTO ", b.ident(s.Table))
	if len(s.Values) == 0 {
		b.write(" DEFAULT VALUES")
		return b.returning(s.Returning)
	}

	cols := make([]string, len(s.Values))
	for i, a := range s.Values {
		cols[i] = a.Column
	}
	b.write(" (", b.identList(cols), ") VALUES (")
	for i, a := range s.Values {
		if i > 0 {
			b.write(", ")
		}
		if err := b.expr(a.Value); err != nil {
			return err
		}
	}
	b.write(")")
	return b.returning(s.Returning)
}

func (b *builder) assignments(values []ast.Assignment) error {
	for i, a := range values {
		if strings.TrimSpace(a.Column) == "" {
			return invalid("assignment without column")
		}
		if i > 0 {
			b.write(", ")
		}
		b.write(b.ident(a.Column), " = ")
		if err := b.expr(a.Value); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) limit(n int) error {
	if n <= 0 {
		return nil
	}
	if !b.c.caps.UpdateLimit {
		return invalid("dialect %s has no LIMIT on UPDATE or DELETE", b.c.dialect.Name())
	}
	b.write(" LIMIT ", strconv.Itoa(n))
	return nil
}

func (b *builder) update(s *ast.UpdateStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	if len(s.Values) == 0 {
		return invalid("update of %q sets no columns", s.Table)
	}
	b.write("UPDATE ", b.ident(s.Table), " SET ")
	if err := b.assignments(s.Values); err != nil {
		return err
	}
	if err := b.where(s.Filters); err != nil {
		return err
	}
	if err := b.returning(s.Returning); err != nil {
		return err
	}
	return b.limit(s.Limit)
}

func (b *builder) delete(s *ast.DeleteStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	b.write("DELETE FROM ", b.ident(s.Table))
	if err := b.where(s.Filters); err != nil {
		return err
	}
	if err := b.returning(s.Returning); err != nil {
		return err
	}
	return b.limit(s.Limit)
}

func (b *builder) upsertMulti(s *ast.UpsertMultiStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	if len(s.Rows) == 0 || len(s.Rows[0]) == 0 {
		return invalid("batch upsert into %q has no rows", s.Table)
	}

	cols := make([]string, len(s.Rows[0]))
	for i, a := range s.Rows[0] {
		cols[i] = a.Column
	}
	for i, row := range s.Rows[1:] {
		if !sameColumns(cols, row) {
			return invalid("batch upsert into %q: row %d assigns a different column set", s.Table, i+2)
		}
	}
	for _, cc := range s.ConflictColumns {
		if !slices.ContainsFunc(cols, func(c string) bool { return strings.EqualFold(c, cc) }) {
			return invalid("batch upsert into %q: conflict column %q is not assigned", s.Table, cc)
		}
	}

	if len(s.ConflictColumns) == 0 {
		b.write("INSERT OR REPLACE INTO ")
	} else {
		b.write("INSERT INTO ")
	}
	b.write(b.ident(s.Table), " (", b.identList(cols), ") VALUES ")
	for i, row := range s.Rows {
		if i > 0 {
			b.write(", ")
		}
		b.write("(")
		for j, col := range cols {
			if j > 0 {
				b.write(", ")
			}
			if err := b.expr(valueFor(row, col)); err != nil {
				return err
			}
		}
		b.write(")")
	}

	if len(s.ConflictColumns) == 0 {
		return nil
	}
	if !b.c.caps.UpsertClause {
		return invalid("dialect %s has no ON CONFLICT clause", b.c.dialect.Name())
	}
	b.write(" ON CONFLICT (", b.identList(s.ConflictColumns), ") DO ")
	var set []string
	for _, c := range cols {
		if !slices.ContainsFunc(s.ConflictColumns, func(cc string) bool { return strings.EqualFold(c, cc) }) {
			set = append(set, b.ident(c)+" = excluded."+b.ident(c))
		}
	}
	if len(set) == 0 {
		b.write("NOTHING")
		return nil
	}
	b.write("UPDATE SET ", strings.Join(set, ", "))
	return nil
}

// sameColumns reports whether row assigns exactly cols, in any order.
func sameColumns(cols []string, row []ast.Assignment) bool {
	if len(row) != len(cols) {
		return false
	}
	for _, c := range cols {
		if valueFor(row, c) == nil {
			return false
		}
	}
	return true
}

func valueFor(row []ast.Assignment, col string) ast.Expr {
	for _, a := range row {
		if a.Column == col {
			return a.Value
		}
	}
	return nil
}
