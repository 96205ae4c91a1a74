// Package sqlite implements the SQLite dialect.
package sqlite

import (
	"strings"

	"relcore/internal/dialect"
	"relcore/internal/value"
)

func init() {
	dialect.RegisterDialect(dialect.SQLite, func() dialect.Dialect { return NewSQLiteDialect() })
}

// Dialect is the SQLite dialect. SQLite has RETURNING and ON CONFLICT, but no
// UPDATE ... LIMIT (unless compiled with it), no ALTER COLUMN, and savepoints
// are not exposed through this layer.
type Dialect struct {
	generator *Generator
}

func NewSQLiteDialect() *Dialect {
	return &Dialect{generator: NewSQLiteGenerator()}
}

func (d *Dialect) Name() dialect.Type { return dialect.SQLite }

func (d *Dialect) Generator() dialect.Generator { return d.generator }

func (d *Dialect) Capabilities() dialect.Capabilities {
	return dialect.Capabilities{
		Returning:    true,
		UpsertClause: true,
	}
}

func (d *Dialect) Placeholder() dialect.Placeholder { return dialect.Question }

// Generator renders SQLite fragments.
type Generator struct{}

func NewSQLiteGenerator() *Generator {
	return &Generator{}
}

// QuoteIdentifier wraps name in double quotes.
func (g *Generator) QuoteIdentifier(name string) string {
	return dialect.QuoteIdentifierWith(name, '"')
}

func (g *Generator) QuoteString(value string) string {
	return dialect.QuoteStringLiteral(value)
}

func (g *Generator) Now() string {
	return "datetime('now')"
}

// NowPlus renders datetime('now', '+1 days', ...). A zero interval is Now.
func (g *Generator) NowPlus(iv value.Interval) string {
	mods := iv.Modifiers()
	if len(mods) == 0 {
		return g.Now()
	}
	var sb strings.Builder
	sb.WriteString("datetime('now'")
	for _, m := range mods {
		sb.WriteString(", ")
		sb.WriteString(g.QuoteString(m))
	}
	sb.WriteString(")")
	return sb.String()
}
