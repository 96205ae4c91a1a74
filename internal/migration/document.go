package migration

import (
	"relcore/internal/ast"
	"relcore/internal/core"
)

// Document is a declarative migration read from a file: an ordered list of
// DDL statements plus descriptive metadata.
type Document struct {
	Name        string
	Description string
	// Dialect is nil when the document does not pin one.
	Dialect    *core.Dialect
	Statements []ast.Statement
}

// Tables returns the tables the document touches, in first-seen order.
func (d *Document) Tables() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(name string) {
		if name != "" && !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, s := range d.Statements {
		switch s := s.(type) {
		case *ast.CreateTableStatement:
			add(s.Table)
		case *ast.DropTableStatement:
			add(s.Table)
		case *ast.CreateIndexStatement:
			add(s.Table)
		case *ast.AlterTableStatement:
			add(s.Table)
		}
	}
	return out
}
