package migration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"relcore/internal/ast"
	"relcore/internal/compiler"
	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/introspect"
	sqliteintrospect "relcore/internal/introspect/sqlite"
)

// Options controls how statements are applied.
type Options struct {
	// InTransaction runs the steps directly on a connection that already has
	// an open transaction. No BEGIN/COMMIT is issued and connection pragmas
	// are left alone.
	InTransaction bool
	// DryRun runs every step inside a transaction that is always rolled back,
	// so the returned plan is exact but nothing is persisted.
	DryRun bool
}

// Migrator applies DDL statements.
type Migrator struct {
	compiler *compiler.Compiler
	in       introspect.Introspecter
	logger   *slog.Logger
}

// New creates a Migrator compiling with c. A nil logger discards logs.
func New(c *compiler.Compiler, logger *slog.Logger) *Migrator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Migrator{
		compiler: c,
		in:       sqliteintrospect.New(),
		logger:   logger,
	}
}

// Apply runs stmts, in order, as one unit and returns the operations it ran.
// On failure the transaction is rolled back and the plan up to the failing
// step is returned with the error. q must be a single connection (*sql.Conn or
// the connection of an open transaction), never a pool.
func (m *Migrator) Apply(ctx context.Context, q engine.Querier, opts Options, stmts ...ast.Statement) (_ *Migration, err error) {
	if opts.DryRun && opts.InTransaction {
		return nil, core.Errorf(core.KindInvalidQuery, "dry run is not available inside a transaction")
	}

	r := &runner{ctx: ctx, q: q, m: m, plan: &Migration{}, inTx: opts.InTransaction}

	enforced, err := sqliteintrospect.ForeignKeysEnabled(ctx, q)
	if err != nil {
		return r.plan, err
	}
	r.fkEnforced = enforced

	// The engine ignores foreign_keys inside a transaction, so table rebuilds
	// need enforcement switched off before BEGIN.
	if enforced && !opts.InTransaction && needsRebuildWindow(stmts) {
		if err := r.pragma("PRAGMA foreign_keys = OFF"); err != nil {
			return r.plan, err
		}
		r.fkSuspended = true
		defer func() {
			if rerr := r.pragma("PRAGMA foreign_keys = ON"); rerr != nil {
				m.logger.Error("restoring foreign key enforcement failed", slog.Any("error", rerr))
				err = errors.Join(err, rerr)
			}
		}()
	}

	steps := func() error {
		for _, stmt := range stmts {
			if err := r.statement(stmt); err != nil {
				return err
			}
		}
		if r.rebuilt && r.fkEnforced {
			return r.foreignKeyCheck()
		}
		return nil
	}

	if opts.InTransaction {
		err = steps()
	} else {
		err = InTransaction(ctx, q, m.logger, opts.DryRun, steps)
	}
	return r.plan, err
}

// needsRebuildWindow reports whether any statement may rebuild a table.
func needsRebuildWindow(stmts []ast.Statement) bool {
	for _, stmt := range stmts {
		alter, ok := stmt.(*ast.AlterTableStatement)
		if !ok {
			continue
		}
		for _, op := range alter.Operations {
			if _, ok := op.(ast.ModifyColumn); ok {
				return true
			}
		}
	}
	return false
}

// InTransaction runs fn between BEGIN and COMMIT on q. When fn fails, or when
// rollbackOnly is set, the transaction is rolled back instead. A failed
// rollback is logged and never masks the error from fn.
func InTransaction(ctx context.Context, q engine.Querier, logger *slog.Logger, rollbackOnly bool, fn func() error) error {
	if _, err := q.ExecContext(ctx, "BEGIN"); err != nil {
		return core.NewError(core.KindTransaction, "begin", err)
	}

	if err := fn(); err != nil {
		if _, rbErr := q.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			logger.Warn("rollback failed", slog.Any("error", rbErr), slog.Any("cause", err))
		}
		return err
	}

	if rollbackOnly {
		if _, err := q.ExecContext(ctx, "ROLLBACK"); err != nil {
			return core.NewError(core.KindTransaction, "rollback", err)
		}
		return nil
	}
	if _, err := q.ExecContext(ctx, "COMMIT"); err != nil {
		if _, rbErr := q.ExecContext(context.WithoutCancel(ctx), "ROLLBACK"); rbErr != nil {
			logger.Warn("rollback after failed commit failed", slog.Any("error", rbErr))
		}
		return core.NewError(core.KindTransaction, "commit", err)
	}
	return nil
}

// runner carries the state of one Apply call.
type runner struct {
	ctx  context.Context
	q    engine.Querier
	m    *Migrator
	plan *Migration

	inTx bool
	// fkEnforced is the foreign_keys setting before Apply started.
	fkEnforced  bool
	fkSuspended bool
	rebuilt     bool
}

func (r *runner) exec(sql string, risk core.OperationRisk) error {
	r.plan.AddStatement(sql, risk)
	r.m.logger.Debug("migration step", slog.String("sql", sql))
	if _, err := r.q.ExecContext(r.ctx, sql); err != nil {
		return core.QueryError(sql, err)
	}
	return nil
}

func (r *runner) pragma(sql string) error {
	r.plan.AddPragma(sql)
	r.m.logger.Debug("migration pragma", slog.String("sql", sql))
	if _, err := r.q.ExecContext(context.WithoutCancel(r.ctx), sql); err != nil {
		return core.QueryError(sql, err)
	}
	return nil
}

func (r *runner) compileAndExec(stmt ast.Statement, risk core.OperationRisk) error {
	query, err := r.m.compiler.Compile(stmt)
	if err != nil {
		return err
	}
	return r.exec(query.SQL, risk)
}

func (r *runner) statement(stmt ast.Statement) error {
	switch s := stmt.(type) {
	case *ast.CreateTableStatement, *ast.CreateIndexStatement:
		return r.compileAndExec(s, core.RiskInfo)
	case *ast.DropIndexStatement:
		return r.compileAndExec(s, core.RiskWarning)
	case *ast.DropTableStatement:
		return r.dropTable(s)
	case *ast.AlterTableStatement:
		for _, op := range s.Operations {
			if err := r.alter(s.Table, op); err != nil {
				return fmt.Errorf("alter table %q: %w", s.Table, err)
			}
		}
		return nil
	case nil:
		return core.Errorf(core.KindInvalidQuery, "nil statement")
	default:
		return core.Errorf(core.KindInvalidQuery, "migration does not apply %T statements", stmt)
	}
}

func (r *runner) foreignKeyCheck() error {
	const check = "PRAGMA foreign_key_check"
	r.plan.AddCheck(check)
	violations, err := sqliteintrospect.ForeignKeyCheck(r.ctx, r.q)
	if err != nil {
		return err
	}
	if len(violations) > 0 {
		v := violations[0]
		return core.NewError(core.KindForeignKeyViolation, "rebuild",
			fmt.Errorf("%d violation(s), first: row %d of %q references missing row in %q", len(violations), v.RowID, v.Table, v.Parent))
	}
	return nil
}
