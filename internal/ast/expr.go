// Package ast models SQL expressions and statements as plain data.
//
// Expressions and statements are closed sets: every node type lives in this
// package and the compiler handles each one with an exhaustive type switch.
// Nodes own their data, so callers build a fresh snapshot per call.
package ast

import "relcore/internal/value"

// Expr is any expression node.
type Expr interface {
	expr()
}

// Identifier names a column or table. A dotted name ("t.c") is quoted per part,
// "*" and "t.*" render unquoted.
type Identifier struct {
	Name string
}

// Literal is raw SQL text rendered verbatim.
type Literal struct {
	SQL string
}

// Val is a value leaf. It renders as a bound parameter, or inline for Now/NowPlus.
type Val struct {
	Value value.Value
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpEq    CompareOp = "="
	OpNotEq CompareOp = "!="
	OpGt    CompareOp = ">"
	OpGte   CompareOp = ">="
	OpLt    CompareOp = "<"
	OpLte   CompareOp = "<="
)

// Compare is a binary comparison.
type Compare struct {
	Op    CompareOp
	Left  Expr
	Right Expr
}

// In tests membership in the result of a sub-select.
type In struct {
	Left  Expr
	Query *SelectQuery
	Not   bool
}

// InList tests membership in an explicit list of expressions.
type InList struct {
	Left   Expr
	Values []Expr
	Not    bool
}

// And joins conditions with AND.
type And struct {
	Conditions []Expr
}

// Or joins conditions with OR.
type Or struct {
	Conditions []Expr
}

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort orders by an expression.
type Sort struct {
	Expr      Expr
	Direction Direction
}

// Join adds a joined table. Left selects LEFT JOIN, otherwise INNER JOIN.
type Join struct {
	Table string
	On    Expr
	Left  bool
}

// Coalesce returns the first non-null expression.
type Coalesce struct {
	Exprs []Expr
}

func (Identifier) expr()   {}
func (Literal) expr()      {}
func (Val) expr()          {}
func (Compare) expr()      {}
func (In) expr()           {}
func (InList) expr()       {}
func (And) expr()          {}
func (Or) expr()           {}
func (Sort) expr()         {}
func (Join) expr()         {}
func (Coalesce) expr()     {}
func (*SelectQuery) expr() {}

// Col returns an identifier expression.
func Col(name string) Identifier { return Identifier{Name: name} }

// Lit returns a raw SQL expression.
func Lit(sql string) Literal { return Literal{SQL: sql} }

// V returns a value leaf.
func V(v value.Value) Val { return Val{Value: v} }

func Eq(left, right Expr) Compare    { return Compare{Op: OpEq, Left: left, Right: right} }
func NotEq(left, right Expr) Compare { return Compare{Op: OpNotEq, Left: left, Right: right} }
func Gt(left, right Expr) Compare    { return Compare{Op: OpGt, Left: left, Right: right} }
func Gte(left, right Expr) Compare   { return Compare{Op: OpGte, Left: left, Right: right} }
func Lt(left, right Expr) Compare    { return Compare{Op: OpLt, Left: left, Right: right} }
func Lte(left, right Expr) Compare   { return Compare{Op: OpLte, Left: left, Right: right} }

// Where is shorthand for column = value.
func Where(column string, v value.Value) Compare {
	return Eq(Col(column), V(v))
}

// AllOf returns an And node.
func AllOf(conds ...Expr) And { return And{Conditions: conds} }

// AnyOf returns an Or node.
func AnyOf(conds ...Expr) Or { return Or{Conditions: conds} }

// Values wraps plain values into expressions, for InList.
func Values(vals ...value.Value) []Expr {
	out := make([]Expr, len(vals))
	for i, v := range vals {
		out[i] = V(v)
	}
	return out
}
