package compiler

import (
	"strconv"
	"strings"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/value"
)

func (b *builder) createTable(s *ast.CreateTableStatement) error {
	if err := s.Validate(); err != nil {
		return err
	}

	b.write("CREATE TABLE ")
	if s.IfNotExists {
		b.write("IF NOT EXISTS ")
	}
	b.write(b.ident(s.Table), " (")

	// A single-column table-level key on an auto-increment column has to be
	// declared inline for the engine to accept AUTOINCREMENT.
	tablePK := s.PrimaryKey
	inlinePK := ""
	if len(tablePK) == 1 {
		for _, col := range s.Columns {
			if col.AutoIncrement && strings.EqualFold(col.Name, tablePK[0]) {
				inlinePK = col.Name
				tablePK = nil
			}
		}
	}

	var defs []string
	for _, col := range s.Columns {
		if col.Name == inlinePK {
			col.PrimaryKey = true
		}
		def, err := b.c.ColumnDefinition(col, false)
		if err != nil {
			return err
		}
		defs = append(defs, def)
	}
	if len(tablePK) > 0 {
		defs = append(defs, "PRIMARY KEY ("+b.identList(tablePK)+")")
	}
	for _, u := range s.Uniques {
		defs = append(defs, "UNIQUE ("+b.identList(u)+")")
	}
	for _, chk := range s.Checks {
		defs = append(defs, "CHECK ("+chk+")")
	}
	for _, fk := range s.ForeignKeys {
		defs = append(defs, b.foreignKey(fk))
	}
	b.write(strings.Join(defs, ", "), ")")
	return nil
}

func (b *builder) foreignKey(fk ast.ForeignKeyDef) string {
	var sb strings.Builder
	if fk.Name != "" {
		sb.WriteString("CONSTRAINT " + b.ident(fk.Name) + " ")
	}
	sb.WriteString("FOREIGN KEY (" + b.identList(fk.Columns) + ") REFERENCES " + b.ident(fk.RefTable))
	sb.WriteString(" (" + b.identList(fk.RefColumns) + ")")
	if a := core.NormalizeReferentialAction(string(fk.OnUpdate)); a != core.RefActionNone {
		sb.WriteString(" ON UPDATE " + string(a))
	}
	if a := core.NormalizeReferentialAction(string(fk.OnDelete)); a != core.RefActionNone {
		sb.WriteString(" ON DELETE " + string(a))
	}
	return sb.String()
}

// ColumnDefinition renders a column definition. When constantDefault is set,
// only defaults the engine accepts in ALTER TABLE ADD COLUMN are allowed.
func (c *Compiler) ColumnDefinition(col ast.ColumnDef, constantDefault bool) (string, error) {
	if strings.TrimSpace(col.Name) == "" {
		return "", core.Errorf(core.KindInvalidSchema, "column name is empty")
	}
	if col.AutoIncrement && !col.PrimaryKey {
		return "", core.Errorf(core.KindInvalidSchema, "column %q: auto increment requires a primary key column", col.Name)
	}

	parts := []string{c.gen.QuoteIdentifier(col.Name)}
	if t := strings.TrimSpace(col.Type); t != "" {
		parts = append(parts, t)
	}
	if col.PrimaryKey {
		parts = append(parts, "PRIMARY KEY")
		if col.AutoIncrement {
			parts = append(parts, "AUTOINCREMENT")
		}
	}
	if !col.Nullable {
		parts = append(parts, "NOT NULL")
	}
	if col.Unique {
		parts = append(parts, "UNIQUE")
	}
	if col.Default != nil {
		def, err := c.DefaultLiteral(col.Default, constantDefault)
		if err != nil {
			return "", core.NewError(core.KindInvalidSchema, "column "+strconv.Quote(col.Name), err)
		}
		parts = append(parts, "DEFAULT "+def)
	}
	if col.Check != "" {
		parts = append(parts, "CHECK ("+col.Check+")")
	}
	return strings.Join(parts, " "), nil
}

// DefaultLiteral renders a default expression inline. Defaults accept a Val or
// a Literal. Now renders as CURRENT_TIMESTAMP unless constantOnly is set;
// NowPlus has no default form.
func (c *Compiler) DefaultLiteral(e ast.Expr, constantOnly bool) (string, error) {
	switch d := e.(type) {
	case ast.Literal:
		return d.SQL, nil
	case ast.Val:
		switch d.Value.Kind() {
		case value.KindNow:
			if constantOnly {
				return "", core.Errorf(core.KindInvalidSchema, "unsupported default value: %s is not constant", d.Value)
			}
			return "CURRENT_TIMESTAMP", nil
		case value.KindNowPlus:
			return "", core.Errorf(core.KindInvalidSchema, "unsupported default value: %s", d.Value)
		}
		return c.Literal(d.Value)
	default:
		return "", core.Errorf(core.KindInvalidSchema, "unsupported default expression %T", e)
	}
}

// Literal renders a non-deferred value as an inline SQL literal.
func (c *Compiler) Literal(v value.Value) (string, error) {
	if v.IsNull() {
		return "NULL", nil
	}
	switch v.Kind() {
	case value.KindBool, value.KindInt8, value.KindInt16, value.KindInt32, value.KindInt64:
		n, _ := v.AsInt64()
		return strconv.FormatInt(n, 10), nil
	case value.KindUInt8, value.KindUInt16, value.KindUInt32, value.KindUInt64:
		n, ok := v.AsInt64()
		if !ok {
			return "", core.Errorf(core.KindUnsupportedType, "u64 too large: %s", v)
		}
		return strconv.FormatInt(n, 10), nil
	case value.KindReal32, value.KindReal64:
		return v.String(), nil
	case value.KindString, value.KindDateTime, value.KindDecimal, value.KindUUID:
		return c.gen.QuoteString(v.String()), nil
	default:
		return "", core.Errorf(core.KindUnsupportedType, "no literal form for %s", v.Kind())
	}
}

func (b *builder) dropTable(s *ast.DropTableStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	b.write("DROP TABLE ")
	if s.IfExists {
		b.write("IF EXISTS ")
	}
	b.write(b.ident(s.Table))
	return nil
}

func (b *builder) createIndex(s *ast.CreateIndexStatement) error {
	if err := requireTable(s.Table); err != nil {
		return err
	}
	if strings.TrimSpace(s.Name) == "" {
		return core.Errorf(core.KindInvalidSchema, "index on %q has no name", s.Table)
	}
	if len(s.Columns) == 0 {
		return core.Errorf(core.KindInvalidSchema, "index %q has no columns", s.Name)
	}
	b.write("CREATE ")
	if s.Unique {
		b.write("UNIQUE ")
	}
	b.write("INDEX ")
	if s.IfNotExists {
		b.write("IF NOT EXISTS ")
	}
	b.write(b.ident(s.Name), " ON ", b.ident(s.Table), " (", b.identList(s.Columns), ")")
	return nil
}

func (b *builder) dropIndex(s *ast.DropIndexStatement) error {
	if strings.TrimSpace(s.Name) == "" {
		return invalid("drop index without name")
	}
	b.write("DROP INDEX ")
	if s.IfExists {
		b.write("IF EXISTS ")
	}
	b.write(b.ident(s.Name))
	return nil
}

func (b *builder) alter(table string, op ast.AlterOperation) error {
	if err := requireTable(table); err != nil {
		return err
	}
	b.write("ALTER TABLE ", b.ident(table), " ")
	switch o := op.(type) {
	case ast.AddColumn:
		if o.Column.PrimaryKey || o.Column.Unique {
			return core.Errorf(core.KindInvalidSchema, "cannot add PRIMARY KEY or UNIQUE column %q to %q", o.Column.Name, table)
		}
		def, err := b.c.ColumnDefinition(o.Column, true)
		if err != nil {
			return err
		}
		b.write("ADD COLUMN ", def)
	case ast.DropColumn:
		b.write("DROP COLUMN ", b.ident(o.Name))
	case ast.RenameColumn:
		b.write("RENAME COLUMN ", b.ident(o.From), " TO ", b.ident(o.To))
	case ast.RenameTable:
		b.write("RENAME TO ", b.ident(o.To))
	case ast.ModifyColumn:
		if !b.c.caps.AlterColumn {
			return invalid("dialect %s cannot alter column %q in place", b.c.dialect.Name(), o.Name)
		}
		def, err := b.c.ColumnDefinition(ast.ColumnDef{Name: o.Name, Type: o.Type, Nullable: o.Nullable, Default: o.Default}, true)
		if err != nil {
			return err
		}
		b.write("ALTER COLUMN ", def)
	case nil:
		return invalid("nil alter operation")
	default:
		return invalid("unsupported alter operation %T", op)
	}
	return nil
}
