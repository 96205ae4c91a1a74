package toml

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/value"
)

// tomlColumn maps [[steps.columns]] and the column of an add_column operation.
type tomlColumn struct {
	Name          string `toml:"name"`
	Type          string `toml:"type"`
	PrimaryKey    bool   `toml:"primary_key"`
	AutoIncrement bool   `toml:"auto_increment"`
	Nullable      bool   `toml:"nullable"`
	Unique        bool   `toml:"unique"`
	Check         string `toml:"check"`

	// Default accepts string, bool, number or datetime from TOML.
	Default any `toml:"default"`
	// DefaultExpr is a constant SQL expression such as CURRENT_TIMESTAMP,
	// used verbatim.
	DefaultExpr string `toml:"default_expr"`

	// References is an inline foreign key in "table.column" form.
	References string `toml:"references"`
	OnDelete   string `toml:"on_delete"`
	OnUpdate   string `toml:"on_update"`
}

// tomlForeignKey maps [[steps.foreign_keys]].
type tomlForeignKey struct {
	Name              string   `toml:"name"`
	Columns           []string `toml:"columns"`
	ReferencedTable   string   `toml:"referenced_table"`
	ReferencedColumns []string `toml:"referenced_columns"`
	OnDelete          string   `toml:"on_delete"`
	OnUpdate          string   `toml:"on_update"`
}

func (c *converter) convertCreateTable(s *tomlStep) (*ast.CreateTableStatement, error) {
	if err := requireName("table", s.Table); err != nil {
		return nil, err
	}

	var cols []tomlColumn
	if err := c.md.PrimitiveDecode(s.Columns, &cols); err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}

	stmt := &ast.CreateTableStatement{
		Table:       s.Table,
		IfNotExists: s.IfNotExists,
		PrimaryKey:  s.PrimaryKey,
		Uniques:     s.Uniques,
		Checks:      s.Checks,
	}
	for i := range cols {
		col, fk, err := convertColumn(&cols[i])
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", cols[i].Name, err)
		}
		stmt.Columns = append(stmt.Columns, col)
		if fk != nil {
			stmt.ForeignKeys = append(stmt.ForeignKeys, *fk)
		}
	}
	for i := range s.ForeignKeys {
		fk, err := convertForeignKey(&s.ForeignKeys[i])
		if err != nil {
			return nil, err
		}
		stmt.ForeignKeys = append(stmt.ForeignKeys, fk)
	}

	if err := stmt.Validate(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func convertDropTable(s *tomlStep) (*ast.DropTableStatement, error) {
	if err := requireName("table", s.Table); err != nil {
		return nil, err
	}
	behavior, err := parseBehavior(s.Behavior)
	if err != nil {
		return nil, err
	}
	return &ast.DropTableStatement{Table: s.Table, IfExists: s.IfExists, Behavior: behavior}, nil
}

func parseBehavior(raw string) (ast.DropBehavior, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "default":
		return ast.DropDefault, nil
	case "cascade":
		return ast.DropCascade, nil
	case "restrict":
		return ast.DropRestrict, nil
	default:
		return ast.DropDefault, fmt.Errorf("unknown drop behavior %q (want cascade or restrict)", raw)
	}
}

// convertColumn converts a column definition. An inline reference yields a
// single-column foreign key next to the column.
func convertColumn(tc *tomlColumn) (ast.ColumnDef, *ast.ForeignKeyDef, error) {
	if err := requireName("column name", tc.Name); err != nil {
		return ast.ColumnDef{}, nil, err
	}
	if err := core.ValidateTypeName(tc.Type); err != nil {
		return ast.ColumnDef{}, nil, err
	}

	def, err := convertDefault(tc.Default, tc.DefaultExpr)
	if err != nil {
		return ast.ColumnDef{}, nil, err
	}
	col := ast.ColumnDef{
		Name:          tc.Name,
		Type:          tc.Type,
		Nullable:      tc.Nullable,
		PrimaryKey:    tc.PrimaryKey,
		AutoIncrement: tc.AutoIncrement,
		Unique:        tc.Unique,
		Default:       def,
		Check:         tc.Check,
	}

	if tc.References == "" {
		if tc.OnDelete != "" || tc.OnUpdate != "" {
			return ast.ColumnDef{}, nil, errors.New("on_delete/on_update require references")
		}
		return col, nil, nil
	}
	table, column, ok := parseReferences(tc.References)
	if !ok {
		return ast.ColumnDef{}, nil, fmt.Errorf("invalid references %q: expected format \"table.column\"", tc.References)
	}
	onDelete, err := parseAction(tc.OnDelete)
	if err != nil {
		return ast.ColumnDef{}, nil, err
	}
	onUpdate, err := parseAction(tc.OnUpdate)
	if err != nil {
		return ast.ColumnDef{}, nil, err
	}
	return col, &ast.ForeignKeyDef{
		Columns:    []string{tc.Name},
		RefTable:   table,
		RefColumns: []string{column},
		OnDelete:   onDelete,
		OnUpdate:   onUpdate,
	}, nil
}

func convertForeignKey(tf *tomlForeignKey) (ast.ForeignKeyDef, error) {
	if len(tf.Columns) == 0 {
		return ast.ForeignKeyDef{}, fmt.Errorf("foreign key %q has no columns", tf.Name)
	}
	if err := requireName("referenced_table", tf.ReferencedTable); err != nil {
		return ast.ForeignKeyDef{}, fmt.Errorf("foreign key %q: %w", tf.Name, err)
	}
	onDelete, err := parseAction(tf.OnDelete)
	if err != nil {
		return ast.ForeignKeyDef{}, err
	}
	onUpdate, err := parseAction(tf.OnUpdate)
	if err != nil {
		return ast.ForeignKeyDef{}, err
	}
	return ast.ForeignKeyDef{
		Name:       tf.Name,
		Columns:    tf.Columns,
		RefTable:   tf.ReferencedTable,
		RefColumns: tf.ReferencedColumns,
		OnDelete:   onDelete,
		OnUpdate:   onUpdate,
	}, nil
}

// convertDefault normalizes a TOML default. default and default_expr are
// mutually exclusive.
func convertDefault(raw any, expr string) (ast.Expr, error) {
	if expr != "" {
		if raw != nil {
			return nil, errors.New("default and default_expr are mutually exclusive")
		}
		return ast.Lit(expr), nil
	}

	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return ast.V(value.String(v)), nil
	case bool:
		return ast.V(value.Bool(v)), nil
	case int64:
		return ast.V(value.Int64(v)), nil
	case float64:
		return ast.V(value.Real64(v)), nil
	case time.Time:
		return ast.V(value.DateTime(v)), nil
	default:
		return nil, fmt.Errorf("unsupported default of type %T", raw)
	}
}

func parseAction(raw string) (core.ReferentialAction, error) {
	action := core.NormalizeReferentialAction(raw)
	switch action {
	case core.RefActionNone, core.RefActionCascade, core.RefActionRestrict,
		core.RefActionSetNull, core.RefActionSetDefault:
		return action, nil
	default:
		return "", fmt.Errorf("unknown referential action %q", raw)
	}
}

// parseReferences splits "table.column". Both parts must be non-empty.
func parseReferences(ref string) (table, column string, ok bool) {
	i := strings.LastIndex(ref, ".")
	if i <= 0 || i == len(ref)-1 {
		return "", "", false
	}
	return strings.TrimSpace(ref[:i]), strings.TrimSpace(ref[i+1:]), true
}
