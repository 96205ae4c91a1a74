package db

import (
	"context"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/introspect"
	"relcore/internal/metrics"
	"relcore/internal/migration"
)

// TableExists reports whether table exists, matched case-insensitively.
func (e *executor) TableExists(ctx context.Context, table string) (bool, error) {
	if err := e.usable(); err != nil {
		return false, err
	}
	return e.in.TableExists(ctx, e.conn, table)
}

// ListTables returns the user tables, sorted by name.
func (e *executor) ListTables(ctx context.Context) ([]string, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	return e.in.ListTables(ctx, e.conn)
}

// GetTableInfo introspects table. Unknown tables are an InvalidQuery error.
func (e *executor) GetTableInfo(ctx context.Context, table string) (*core.TableInfo, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	return e.in.GetTableInfo(ctx, e.conn, table)
}

// GetTableColumns returns the columns of table in declaration order.
func (e *executor) GetTableColumns(ctx context.Context, table string) ([]core.ColumnInfo, error) {
	info, err := e.GetTableInfo(ctx, table)
	if err != nil {
		return nil, err
	}
	return info.OrderedColumns(), nil
}

// ColumnExists reports whether table has column.
func (e *executor) ColumnExists(ctx context.Context, table, column string) (bool, error) {
	if err := e.usable(); err != nil {
		return false, err
	}
	return introspect.ColumnExists(ctx, e.in, e.conn, table, column)
}

// CreateTable creates a table.
func (e *executor) CreateTable(ctx context.Context, s *ast.CreateTableStatement) (*migration.Migration, error) {
	return e.Migrate(ctx, false, s)
}

// DropTable drops a table with the statement's drop behavior.
func (e *executor) DropTable(ctx context.Context, s *ast.DropTableStatement) (*migration.Migration, error) {
	return e.Migrate(ctx, false, s)
}

// CreateIndex creates an index.
func (e *executor) CreateIndex(ctx context.Context, s *ast.CreateIndexStatement) (*migration.Migration, error) {
	return e.Migrate(ctx, false, s)
}

// DropIndex drops an index.
func (e *executor) DropIndex(ctx context.Context, s *ast.DropIndexStatement) (*migration.Migration, error) {
	return e.Migrate(ctx, false, s)
}

// AlterTable applies the statement's operations in order.
func (e *executor) AlterTable(ctx context.Context, s *ast.AlterTableStatement) (*migration.Migration, error) {
	return e.Migrate(ctx, false, s)
}

// CascadeTargets returns the tables a cascading drop of table would remove,
// in drop order.
func (e *executor) CascadeTargets(ctx context.Context, table string) ([]string, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	return e.migrator.CascadeTargets(ctx, e.conn, table)
}

// Migrate applies DDL statements as one unit and returns the executed plan.
// A dry run returns the exact plan without persisting anything; it is not
// available inside a transaction.
func (e *executor) Migrate(ctx context.Context, dryRun bool, stmts ...ast.Statement) (*migration.Migration, error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	plan, err := e.migrator.Apply(ctx, e.conn, migration.Options{InTransaction: e.inTx, DryRun: dryRun}, stmts...)
	if plan != nil && !dryRun {
		for _, op := range plan.Plan() {
			if op.Kind != core.OperationNote {
				metrics.SampleMigration(string(op.Kind))
			}
		}
	}
	return plan, err
}
