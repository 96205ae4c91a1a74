package toml

import (
	"fmt"
	"strings"

	"relcore/internal/ast"
	"relcore/internal/core"
)

// tomlOperation maps [[steps.operations]] of an alter_table step.
type tomlOperation struct {
	Op string `toml:"op"`

	// add_column
	Column *tomlColumn `toml:"column"`

	// drop_column, modify_column
	Name string `toml:"name"`

	// rename_column, rename_table
	From string `toml:"from"`
	To   string `toml:"to"`

	// modify_column
	Type        string `toml:"type"`
	Nullable    bool   `toml:"nullable"`
	Default     any    `toml:"default"`
	DefaultExpr string `toml:"default_expr"`
}

func (c *converter) convertCreateIndex(s *tomlStep) (*ast.CreateIndexStatement, error) {
	if err := requireName("name", s.Name); err != nil {
		return nil, err
	}
	if err := requireName("table", s.Table); err != nil {
		return nil, err
	}

	var cols []string
	if err := c.md.PrimitiveDecode(s.Columns, &cols); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("index %s has no columns", s.Name)
	}
	return &ast.CreateIndexStatement{
		Name:        s.Name,
		Table:       s.Table,
		Columns:     cols,
		Unique:      s.Unique,
		IfNotExists: s.IfNotExists,
	}, nil
}

func convertDropIndex(s *tomlStep) (*ast.DropIndexStatement, error) {
	if err := requireName("name", s.Name); err != nil {
		return nil, err
	}
	return &ast.DropIndexStatement{Name: s.Name, IfExists: s.IfExists}, nil
}

func convertAlterTable(s *tomlStep) (*ast.AlterTableStatement, error) {
	if err := requireName("table", s.Table); err != nil {
		return nil, err
	}
	if len(s.Operations) == 0 {
		return nil, fmt.Errorf("alter_table %q has no operations", s.Table)
	}

	stmt := &ast.AlterTableStatement{Table: s.Table}
	for i := range s.Operations {
		op, err := convertOperation(&s.Operations[i])
		if err != nil {
			return nil, fmt.Errorf("operation %d: %w", i+1, err)
		}
		stmt.Operations = append(stmt.Operations, op)
	}
	return stmt, nil
}

func convertOperation(to *tomlOperation) (ast.AlterOperation, error) {
	switch strings.ToLower(strings.TrimSpace(to.Op)) {
	case "add_column":
		if to.Column == nil {
			return nil, fmt.Errorf("add_column requires a column table")
		}
		col, fk, err := convertColumn(to.Column)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", to.Column.Name, err)
		}
		if fk != nil {
			return nil, fmt.Errorf("column %q: references cannot be added to an existing table", to.Column.Name)
		}
		return ast.AddColumn{Column: col}, nil

	case "drop_column":
		if err := requireName("name", to.Name); err != nil {
			return nil, err
		}
		return ast.DropColumn{Name: to.Name}, nil

	case "rename_column":
		if err := requireName("from", to.From); err != nil {
			return nil, err
		}
		if err := requireName("to", to.To); err != nil {
			return nil, err
		}
		return ast.RenameColumn{From: to.From, To: to.To}, nil

	case "modify_column":
		if err := requireName("name", to.Name); err != nil {
			return nil, err
		}
		if err := core.ValidateTypeName(to.Type); err != nil {
			return nil, err
		}
		def, err := convertDefault(to.Default, to.DefaultExpr)
		if err != nil {
			return nil, err
		}
		return ast.ModifyColumn{Name: to.Name, Type: to.Type, Nullable: to.Nullable, Default: def}, nil

	case "rename_table":
		if err := requireName("to", to.To); err != nil {
			return nil, err
		}
		return ast.RenameTable{To: to.To}, nil

	case "":
		return nil, fmt.Errorf("missing op")
	default:
		return nil, fmt.Errorf("unknown op %q", to.Op)
	}
}
