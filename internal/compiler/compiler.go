// Package compiler turns ast statements into SQL text and bound parameters.
//
// Compilation is two passes. The tree walk writes a marker byte wherever a
// value leaf appears and collects the values in order. The parameter pass then
// walks the markers and the values in lockstep: deferred values (Now, NowPlus)
// are inlined as engine expressions, every other value becomes a placeholder
// and is kept as a parameter. Positional numbering therefore only counts
// values that are actually bound.
package compiler

import (
	"fmt"
	"strings"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/dialect"
	"relcore/internal/value"
)

// marker stands in for a value leaf between the two passes. It cannot appear
// in quoted identifiers or string literals produced by the generator.
const marker = '\x00'

// Query is a compiled statement.
type Query struct {
	SQL    string
	Params []value.Value
}

// Compiler compiles statements for one dialect.
type Compiler struct {
	dialect     dialect.Dialect
	gen         dialect.Generator
	caps        dialect.Capabilities
	placeholder dialect.Placeholder
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithPlaceholder overrides the dialect's default placeholder strategy.
func WithPlaceholder(p dialect.Placeholder) Option {
	return func(c *Compiler) {
		if p != nil {
			c.placeholder = p
		}
	}
}

// New creates a compiler for d.
func New(d dialect.Dialect, opts ...Option) *Compiler {
	c := &Compiler{
		dialect:     d,
		gen:         d.Generator(),
		caps:        d.Capabilities(),
		placeholder: d.Placeholder(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Dialect returns the dialect the compiler renders for.
func (c *Compiler) Dialect() dialect.Dialect { return c.dialect }

// Compile renders stmt.
func (c *Compiler) Compile(stmt ast.Statement) (Query, error) {
	b := c.newBuilder()
	var err error
	switch s := stmt.(type) {
	case *ast.SelectQuery:
		err = b.selectQuery(s)
	case *ast.InsertStatement:
		err = b.insert(s)
	case *ast.UpdateStatement:
		err = b.update(s)
	case *ast.DeleteStatement:
		err = b.delete(s)
	case *ast.UpsertMultiStatement:
		err = b.upsertMulti(s)
	case *ast.UpsertStatement:
		return Query{}, core.Errorf(core.KindInvalidQuery, "upsert on %q is executed as update then insert and has no single statement form", s.Table)
	case *ast.CreateTableStatement:
		err = b.createTable(s)
	case *ast.DropTableStatement:
		err = b.dropTable(s)
	case *ast.CreateIndexStatement:
		err = b.createIndex(s)
	case *ast.DropIndexStatement:
		err = b.dropIndex(s)
	case *ast.AlterTableStatement:
		if len(s.Operations) != 1 {
			return Query{}, core.Errorf(core.KindInvalidQuery, "alter table %q: compile operations one at a time", s.Table)
		}
		err = b.alter(s.Table, s.Operations[0])
	case nil:
		err = core.Errorf(core.KindInvalidQuery, "nil statement")
	default:
		err = core.Errorf(core.KindInvalidQuery, "unsupported statement %T", stmt)
	}
	if err != nil {
		return Query{}, err
	}
	return c.finish(b)
}

// CompileAlter renders a single ALTER TABLE operation. ModifyColumn has no
// direct form on engines without ALTER COLUMN.
func (c *Compiler) CompileAlter(table string, op ast.AlterOperation) (Query, error) {
	b := c.newBuilder()
	if err := b.alter(table, op); err != nil {
		return Query{}, err
	}
	return c.finish(b)
}

// CompileExpr renders a standalone expression, e.g. for a filter fragment.
func (c *Compiler) CompileExpr(e ast.Expr) (Query, error) {
	b := c.newBuilder()
	if err := b.expr(e); err != nil {
		return Query{}, err
	}
	return c.finish(b)
}

// QuoteIdentifier quotes name for the compiler's dialect.
func (c *Compiler) QuoteIdentifier(name string) string { return c.gen.QuoteIdentifier(name) }

// finish is the parameter transform pass.
func (c *Compiler) finish(b *builder) (Query, error) {
	text := b.sb.String()
	if n := strings.Count(text, string(marker)); n != len(b.params) {
		return Query{}, core.Errorf(core.KindInvalidQuery, "compiled %d placeholders for %d values", n, len(b.params))
	}

	var out strings.Builder
	out.Grow(len(text) + len(b.params)*2)
	var params []value.Value
	next := 0
	for i := 0; i < len(text); i++ {
		if text[i] != marker {
			out.WriteByte(text[i])
			continue
		}
		v := b.params[next]
		next++
		switch v.Kind() {
		case value.KindNow:
			out.WriteString(c.gen.Now())
		case value.KindNowPlus:
			out.WriteString(c.gen.NowPlus(v.Interval()))
		default:
			params = append(params, v)
			out.WriteString(c.placeholder(len(params)))
		}
	}
	return Query{SQL: out.String(), Params: params}, nil
}

type builder struct {
	c      *Compiler
	sb     strings.Builder
	params []value.Value
}

func (c *Compiler) newBuilder() *builder {
	return &builder{c: c}
}

func (b *builder) write(parts ...string) {
	for _, p := range parts {
		b.sb.WriteString(p)
	}
}

func (b *builder) ident(name string) string {
	return b.c.gen.QuoteIdentifier(name)
}

func (b *builder) param(v value.Value) {
	b.sb.WriteByte(marker)
	b.params = append(b.params, v)
}

func (b *builder) identList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = b.ident(n)
	}
	return strings.Join(quoted, ", ")
}

func requireTable(table string) error {
	if strings.TrimSpace(table) == "" {
		return core.Errorf(core.KindInvalidQuery, "statement has no table")
	}
	return nil
}

func invalid(format string, args ...any) error {
	return core.NewError(core.KindInvalidQuery, "compile", fmt.Errorf(format, args...))
}
