package compiler

import (
	"relcore/internal/ast"
)

func (b *builder) expr(e ast.Expr) error {
	switch x := e.(type) {
	case ast.Identifier:
		b.write(b.ident(x.Name))
	case ast.Literal:
		b.write(x.SQL)
	case ast.Val:
		b.param(x.Value)
	case ast.Compare:
		return b.compare(x)
	case ast.In:
		return b.in(x)
	case ast.InList:
		return b.inList(x)
	case ast.And:
		return b.conjunction("AND", "1", x.Conditions)
	case ast.Or:
		return b.conjunction("OR", "0", x.Conditions)
	case ast.Sort:
		return b.sort(x)
	case ast.Join:
		return b.join(x)
	case ast.Coalesce:
		if len(x.Exprs) == 0 {
			return invalid("COALESCE needs at least one expression")
		}
		b.write("COALESCE(")
		if err := b.exprList(x.Exprs); err != nil {
			return err
		}
		b.write(")")
	case *ast.SelectQuery:
		if x == nil {
			return invalid("nil sub-select")
		}
		b.write("(")
		if err := b.selectQuery(x); err != nil {
			return err
		}
		b.write(")")
	case nil:
		return invalid("nil expression")
	default:
		return invalid("unsupported expression %T", e)
	}
	return nil
}

func (b *builder) exprList(list []ast.Expr) error {
	for i, e := range list {
		if i > 0 {
			b.write(", ")
		}
		if err := b.expr(e); err != nil {
			return err
		}
	}
	return nil
}

func isNullValue(e ast.Expr) bool {
	v, ok := e.(ast.Val)
	return ok && v.Value.IsNull()
}

func (b *builder) compare(x ast.Compare) error {
	if isNullValue(x.Right) {
		var op string
		switch x.Op {
		case ast.OpEq:
			op = " IS NULL)"
		case ast.OpNotEq:
			op = " IS NOT NULL)"
		default:
			return invalid("invalid comparison: %s against NULL", x.Op)
		}
		b.write("(")
		if err := b.expr(x.Left); err != nil {
			return err
		}
		b.write(op)
		return nil
	}

	switch x.Op {
	case ast.OpEq, ast.OpNotEq, ast.OpGt, ast.OpGte, ast.OpLt, ast.OpLte:
	default:
		return invalid("unknown comparison operator %q", x.Op)
	}
	b.write("(")
	if err := b.expr(x.Left); err != nil {
		return err
	}
	b.write(" ", string(x.Op), " ")
	if err := b.expr(x.Right); err != nil {
		return err
	}
	b.write(")")
	return nil
}

func (b *builder) in(x ast.In) error {
	if x.Query == nil {
		return invalid("IN without sub-select")
	}
	b.write("(")
	if err := b.expr(x.Left); err != nil {
		return err
	}
	b.write(notPrefix(x.Not), "IN (")
	if err := b.selectQuery(x.Query); err != nil {
		return err
	}
	b.write("))")
	return nil
}

func (b *builder) inList(x ast.InList) error {
	b.write("(")
	if err := b.expr(x.Left); err != nil {
		return err
	}
	b.write(notPrefix(x.Not), "IN (")
	if err := b.exprList(x.Values); err != nil {
		return err
	}
	b.write("))")
	return nil
}

func notPrefix(not bool) string {
	if not {
		return " NOT "
	}
	return " "
}

// conjunction renders conditions joined by op. An empty list renders the
// identity element so the surrounding predicate stays valid.
func (b *builder) conjunction(op, identity string, conds []ast.Expr) error {
	if len(conds) == 0 {
		b.write("(", identity, ")")
		return nil
	}
	b.write("(")
	for i, c := range conds {
		if i > 0 {
			b.write(" ", op, " ")
		}
		if err := b.expr(c); err != nil {
			return err
		}
	}
	b.write(")")
	return nil
}

func (b *builder) sort(x ast.Sort) error {
	if err := b.expr(x.Expr); err != nil {
		return err
	}
	switch x.Direction {
	case ast.Desc:
		b.write(" DESC")
	case ast.Asc, "":
		b.write(" ASC")
	default:
		return invalid("unknown sort direction %q", x.Direction)
	}
	return nil
}

func (b *builder) join(x ast.Join) error {
	if err := requireTable(x.Table); err != nil {
		return err
	}
	if x.Left {
		b.write("LEFT JOIN ")
	} else {
		b.write("INNER JOIN ")
	}
	b.write(b.ident(x.Table))
	if x.On != nil {
		b.write(" ON ")
		return b.expr(x.On)
	}
	return nil
}
