package migration

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/introspect"
	sqliteintrospect "relcore/internal/introspect/sqlite"
	"relcore/internal/sqltext"
)

// Constraint keywords that only survive a column change through a rebuild.
var rebuildKeywords = []string{"PRIMARY", "UNIQUE", "CHECK", "REFERENCES", "COLLATE", "GENERATED", "AS"}

func (r *runner) alter(table string, op ast.AlterOperation) error {
	switch o := op.(type) {
	case ast.ModifyColumn:
		return r.modifyColumn(table, o)
	case ast.AddColumn:
		return r.compileAlter(table, op, core.RiskInfo)
	case ast.RenameColumn, ast.RenameTable:
		return r.compileAlter(table, op, core.RiskWarning)
	case ast.DropColumn:
		return r.compileAlter(table, op, core.RiskCritical)
	default:
		return r.compileAlter(table, op, core.RiskInfo)
	}
}

func (r *runner) compileAlter(table string, op ast.AlterOperation, risk core.OperationRisk) error {
	query, err := r.m.compiler.CompileAlter(table, op)
	if err != nil {
		return err
	}
	return r.exec(query.SQL, risk)
}

// columnChange is everything known about a ModifyColumn before it runs.
type columnChange struct {
	table     string
	createSQL string
	info      *core.TableInfo
	column    core.ColumnInfo
	clause    sqltext.ColumnClause
	aux       []sqliteintrospect.CatalogObject
	op        ast.ModifyColumn
}

func (r *runner) modifyColumn(table string, op ast.ModifyColumn) error {
	ch, err := r.loadChange(table, op)
	if err != nil {
		return err
	}
	reason, err := r.rebuildReason(ch)
	if err != nil {
		return err
	}
	if reason == "" {
		return r.retypeInPlace(ch)
	}
	return r.rebuild(ch, reason)
}

func (r *runner) loadChange(table string, op ast.ModifyColumn) (*columnChange, error) {
	name, createSQL, err := sqliteintrospect.TableSQL(r.ctx, r.q, table)
	if err != nil {
		return nil, err
	}
	info, err := r.m.in.GetTableInfo(r.ctx, r.q, name)
	if err != nil {
		return nil, err
	}
	col, ok := info.FindColumn(op.Name)
	if !ok {
		return nil, core.Errorf(core.KindInvalidQuery, "table %q has no column %q", name, op.Name)
	}
	clause, ok := sqltext.FindColumnClause(createSQL, col.Name)
	if !ok {
		return nil, core.Errorf(core.KindInvalidSchema, "cannot locate the definition of %q in %q", col.Name, name)
	}
	aux, err := sqliteintrospect.AuxiliaryObjects(r.ctx, r.q, name)
	if err != nil {
		return nil, err
	}
	return &columnChange{
		table:     name,
		createSQL: createSQL,
		info:      info,
		column:    col,
		clause:    clause,
		aux:       aux,
		op:        op,
	}, nil
}

// rebuildReason returns why the column cannot be changed with a temporary
// column round trip, or "" when it can.
func (r *runner) rebuildReason(ch *columnChange) (string, error) {
	col := ch.column.Name
	if ch.column.PrimaryKey {
		return "column is part of the primary key", nil
	}
	for _, idx := range ch.info.Indexes {
		if idx.Covers(col) {
			return fmt.Sprintf("column is covered by index %q", idx.Name), nil
		}
	}
	for _, fk := range ch.info.ForeignKeys {
		if fk.Involves(col) {
			return fmt.Sprintf("column is part of foreign key %q", fk.Name), nil
		}
	}
	for _, kw := range rebuildKeywords {
		if ch.clause.HasSequence(kw) {
			return fmt.Sprintf("column definition has a %s clause", kw), nil
		}
	}
	for _, clause := range sqltext.Clauses(ch.createSQL) {
		if sqltext.IsTableConstraint(clause) {
			if sqltext.MentionsIdentifier(clause, col) {
				return "a table constraint references the column", nil
			}
			continue
		}
		cc, ok := sqltext.ParseColumnClause(clause)
		if ok && cc.IsGenerated() && !strings.EqualFold(cc.Name, col) && sqltext.MentionsIdentifier(strings.Join(cc.Tokens, " "), col) {
			return fmt.Sprintf("generated column %q depends on the column", cc.Name), nil
		}
	}
	for _, o := range ch.aux {
		if o.Type != "index" && sqltext.MentionsIdentifier(o.SQL, col) {
			return fmt.Sprintf("%s %q references the column", o.Type, o.Name), nil
		}
	}
	if !ch.op.Nullable && ch.op.Default == nil {
		return "NOT NULL without a default cannot be added in place", nil
	}
	if _, err := r.m.compiler.ColumnDefinition(r.newDefinition(ch), true); err != nil {
		if core.KindOf(err) != core.KindInvalidSchema {
			return "", err
		}
		return "default is not a constant", nil
	}
	return "", nil
}

func (r *runner) newDefinition(ch *columnChange) ast.ColumnDef {
	return ast.ColumnDef{
		Name:     ch.column.Name,
		Type:     ch.op.Type,
		Nullable: ch.op.Nullable,
		Default:  ch.op.Default,
	}
}

// retypeInPlace moves the data through a temporary column: add the temporary
// column, copy with a cast, drop the old column, add it back with the new
// definition, copy back, drop the temporary column.
func (r *runner) retypeInPlace(ch *columnChange) error {
	col := ch.column.Name
	tmp := tempName(col)
	quote := r.m.compiler.QuoteIdentifier

	steps := []func() error{
		func() error {
			return r.compileAlter(ch.table, ast.AddColumn{Column: ast.ColumnDef{Name: tmp, Type: ch.op.Type, Nullable: true}}, core.RiskInfo)
		},
		func() error {
			return r.copyColumn(ch.table, tmp, castExpr(quote(col), ch.op.Type))
		},
		func() error { return r.compileAlter(ch.table, ast.DropColumn{Name: col}, core.RiskWarning) },
		func() error { return r.compileAlter(ch.table, ast.AddColumn{Column: r.newDefinition(ch)}, core.RiskInfo) },
		func() error { return r.copyColumn(ch.table, col, quote(tmp)) },
		func() error { return r.compileAlter(ch.table, ast.DropColumn{Name: tmp}, core.RiskInfo) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}

func (r *runner) copyColumn(table, column, from string) error {
	query, err := r.m.compiler.Compile(&ast.UpdateStatement{
		Table:  table,
		Values: []ast.Assignment{ast.Set(column, ast.Lit(from))},
	})
	if err != nil {
		return err
	}
	return r.exec(query.SQL, core.RiskWarning)
}

// rebuild recreates the table under a temporary name with the rewritten
// column, copies every row, swaps the tables and replays indexes, triggers
// and views.
func (r *runner) rebuild(ch *columnChange, reason string) error {
	if r.inTx && r.fkEnforced {
		tables, err := introspect.Snapshot(r.ctx, r.m.in, r.q)
		if err != nil {
			return err
		}
		if deps := introspect.Dependents(tables, ch.table); len(deps) > 0 {
			return core.Errorf(core.KindInvalidQuery,
				"cannot rebuild %q inside a transaction while foreign keys are enforced: referenced by %s",
				ch.table, strings.Join(deps, ", "))
		}
	}

	quote := r.m.compiler.QuoteIdentifier
	var def *string
	if ch.op.Default != nil {
		lit, err := r.m.compiler.DefaultLiteral(ch.op.Default, false)
		if err != nil {
			return err
		}
		def = &lit
	}
	clause := ch.clause.Rewrite(quote(ch.clause.Name), ch.op.Type, ch.op.Nullable, def)
	createSQL, err := sqltext.ReplaceColumnClause(ch.createSQL, ch.clause.Name, clause)
	if err != nil {
		return core.NewError(core.KindInvalidSchema, "rebuild", err)
	}
	tmp := tempName(ch.table)
	createSQL, err = sqltext.RenameTable(createSQL, quote(tmp))
	if err != nil {
		return core.NewError(core.KindInvalidSchema, "rebuild", err)
	}

	generated, err := sqliteintrospect.GeneratedColumns(r.ctx, r.q, ch.table)
	if err != nil {
		return err
	}
	var cols, selects []string
	for _, c := range ch.info.OrderedColumns() {
		if containsFold(generated, c.Name) {
			continue
		}
		cols = append(cols, quote(c.Name))
		if strings.EqualFold(c.Name, ch.column.Name) {
			selects = append(selects, castExpr(quote(c.Name), ch.op.Type))
		} else {
			selects = append(selects, quote(c.Name))
		}
	}

	r.plan.AddNote(fmt.Sprintf("rebuilding %q to modify column %q: %s", ch.table, ch.column.Name, reason))

	if err := r.exec(createSQL, core.RiskInfo); err != nil {
		return err
	}
	copySQL := fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
		quote(tmp), strings.Join(cols, ", "), strings.Join(selects, ", "), quote(ch.table))
	if err := r.exec(copySQL, core.RiskWarning); err != nil {
		return err
	}
	// Renaming onto a name that views still reference fails, so views go
	// before the swap and come back with the rest.
	for _, o := range ch.aux {
		if o.Type == "view" {
			if err := r.exec("DROP VIEW "+quote(o.Name), core.RiskWarning); err != nil {
				return err
			}
		}
	}
	if err := r.compileAndExec(&ast.DropTableStatement{Table: ch.table}, core.RiskCritical); err != nil {
		return err
	}
	if err := r.compileAlter(tmp, ast.RenameTable{To: ch.table}, core.RiskWarning); err != nil {
		return err
	}
	for _, o := range ch.aux {
		if o.IsAutoIndex() || strings.TrimSpace(o.SQL) == "" {
			continue
		}
		if err := r.exec(o.SQL, core.RiskInfo); err != nil {
			return err
		}
	}
	r.rebuilt = true
	return nil
}

func castExpr(quotedColumn, typ string) string {
	if typ = strings.TrimSpace(typ); typ == "" {
		return quotedColumn
	}
	return "CAST(" + quotedColumn + " AS " + typ + ")"
}

func tempName(base string) string {
	return "__tmp_" + base + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
