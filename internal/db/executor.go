package db

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"relcore/internal/ast"
	"relcore/internal/compiler"
	"relcore/internal/core"
	"relcore/internal/introspect"
	"relcore/internal/metrics"
	"relcore/internal/migration"
	"relcore/internal/sqltext"
	"relcore/internal/value"
)

// rowID is the engine's implicit row identifier, used to pin the exact rows
// a limited UPDATE or DELETE touches.
const rowID = "rowid"

// executor runs statements on one connection. It backs both Database and
// Transaction, which differ only in the connection and in the guard checked
// before every call.
type executor struct {
	conn     *sql.Conn
	compiler *compiler.Compiler
	migrator *migration.Migrator
	in       introspect.Introspecter
	logger   *slog.Logger
	inTx     bool
	guard    func() error
}

func (e *executor) usable() error {
	if e.guard != nil {
		return e.guard()
	}
	return nil
}

func (e *executor) query(ctx context.Context, op string, q compiler.Query, keep int) (rows []Row, err error) {
	if err := e.usable(); err != nil {
		return nil, err
	}
	args, err := value.ToEngineAll(q.Params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() { metrics.SampleStatement(op, time.Since(start), err) }()
	e.logger.DebugContext(ctx, "query", slog.String("op", op), slog.String("sql", q.SQL), slog.Int("params", len(args)))

	rs, err := e.conn.QueryContext(ctx, q.SQL, args...)
	if err != nil {
		return nil, core.QueryError(q.SQL, err)
	}
	return collectRows(rs, q.SQL, keep)
}

func (e *executor) exec(ctx context.Context, op string, q compiler.Query) (affected int64, err error) {
	if err := e.usable(); err != nil {
		return 0, err
	}
	args, err := value.ToEngineAll(q.Params)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	defer func() { metrics.SampleStatement(op, time.Since(start), err) }()
	e.logger.DebugContext(ctx, "exec", slog.String("op", op), slog.String("sql", q.SQL), slog.Int("params", len(args)))

	res, err := e.conn.ExecContext(ctx, q.SQL, args...)
	if err != nil {
		return 0, core.QueryError(q.SQL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, core.QueryError(q.SQL, err)
	}
	return n, nil
}

func (e *executor) compile(stmt ast.Statement) (compiler.Query, error) {
	return e.compiler.Compile(stmt)
}

func rawSQL(sql string) compiler.Query { return compiler.Query{SQL: sql} }

func rawQuery(sql string, params []value.Value) (compiler.Query, error) {
	n, ok := sqltext.ParameterCount(sql)
	if !ok {
		return compiler.Query{}, core.Errorf(core.KindInvalidQuery, "malformed parameter in %q", sql)
	}
	if n != len(params) {
		return compiler.Query{}, core.Errorf(core.KindInvalidQuery, "statement takes %d parameters, got %d values", n, len(params))
	}
	return compiler.Query{SQL: sql, Params: params}, nil
}

// QueryRaw runs a raw query without parameters.
func (e *executor) QueryRaw(ctx context.Context, sql string) ([]Row, error) {
	return e.QueryRawParams(ctx, sql, nil)
}

// QueryRawParams runs a raw query. The number of values must match the
// parameters the statement declares.
func (e *executor) QueryRawParams(ctx context.Context, sql string, params []value.Value) ([]Row, error) {
	q, err := rawQuery(sql, params)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, "query_raw", q, 0)
}

// ExecRaw runs a raw statement without parameters and returns the number of
// affected rows.
func (e *executor) ExecRaw(ctx context.Context, sql string) (int64, error) {
	return e.ExecRawParams(ctx, sql, nil)
}

// ExecRawParams runs a raw statement and returns the number of affected rows.
func (e *executor) ExecRawParams(ctx context.Context, sql string, params []value.Value) (int64, error) {
	q, err := rawQuery(sql, params)
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, "exec_raw", q)
}

// Query runs a select.
func (e *executor) Query(ctx context.Context, s *ast.SelectQuery) ([]Row, error) {
	q, err := e.compile(s)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, "query", q, 0)
}

// QueryFirst runs s with LIMIT 1 and returns the row, or nil when nothing
// matched.
func (e *executor) QueryFirst(ctx context.Context, s *ast.SelectQuery) (*Row, error) {
	first := *s
	first.Limit = 1
	q, err := e.compile(&first)
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, "query_first", q, 1)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// ExecInsert inserts one row and returns it as stored, defaults included.
// An insert without values inserts DEFAULT VALUES.
func (e *executor) ExecInsert(ctx context.Context, s *ast.InsertStatement) (Row, error) {
	ins := *s
	ins.Returning = true
	q, err := e.compile(&ins)
	if err != nil {
		return Row{}, err
	}
	rows, err := e.query(ctx, "insert", q, 1)
	if err != nil {
		return Row{}, err
	}
	if len(rows) == 0 {
		return Row{}, core.QueryError(q.SQL, errors.New("insert returned no row"))
	}
	return rows[0], nil
}

// ExecUpdate updates the matching rows and returns them as updated. With a
// limit on an engine without UPDATE ... LIMIT, the target row ids are
// selected first and only those rows are updated.
func (e *executor) ExecUpdate(ctx context.Context, s *ast.UpdateStatement) ([]Row, error) {
	upd := *s
	upd.Returning = true
	if upd.Limit > 0 && !e.compiler.Dialect().Capabilities().UpdateLimit {
		ids, err := e.rowIDs(ctx, upd.Table, upd.Filters, upd.Limit)
		if err != nil || len(ids) == 0 {
			return nil, err
		}
		upd.Filters = []ast.Expr{ast.InList{Left: ast.Lit(rowID), Values: ids}}
		upd.Limit = 0
	}
	q, err := e.compile(&upd)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, "update", q, 0)
}

// ExecUpdateFirst updates at most one row and returns it, or nil when nothing
// matched.
func (e *executor) ExecUpdateFirst(ctx context.Context, s *ast.UpdateStatement) (*Row, error) {
	upd := *s
	upd.Limit = 1
	rows, err := e.ExecUpdate(ctx, &upd)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// ExecDelete deletes the matching rows and returns them as they were before
// the delete. Limits follow the same row id protocol as ExecUpdate.
func (e *executor) ExecDelete(ctx context.Context, s *ast.DeleteStatement) ([]Row, error) {
	del := *s
	del.Returning = true
	if del.Limit > 0 && !e.compiler.Dialect().Capabilities().UpdateLimit {
		ids, err := e.rowIDs(ctx, del.Table, del.Filters, del.Limit)
		if err != nil || len(ids) == 0 {
			return nil, err
		}
		del.Filters = []ast.Expr{ast.InList{Left: ast.Lit(rowID), Values: ids}}
		del.Limit = 0
	}
	q, err := e.compile(&del)
	if err != nil {
		return nil, err
	}
	return e.query(ctx, "delete", q, 0)
}

// ExecDeleteFirst deletes at most one row and returns it, or nil when nothing
// matched.
func (e *executor) ExecDeleteFirst(ctx context.Context, s *ast.DeleteStatement) (*Row, error) {
	del := *s
	del.Limit = 1
	rows, err := e.ExecDelete(ctx, &del)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// rowIDs selects the row ids of at most limit rows matching filters.
func (e *executor) rowIDs(ctx context.Context, table string, filters []ast.Expr, limit int) ([]ast.Expr, error) {
	q, err := e.compile(&ast.SelectQuery{
		Table:   table,
		Columns: []ast.Expr{ast.Lit(rowID)},
		Filters: filters,
		Limit:   limit,
	})
	if err != nil {
		return nil, err
	}
	rows, err := e.query(ctx, "select_rowid", q, 0)
	if err != nil {
		return nil, err
	}
	ids := make([]ast.Expr, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, ast.V(r.Values[0]))
	}
	return ids, nil
}

// ExecUpsert updates the matching rows, or inserts one row when nothing
// matched. The inserted row carries the assignments plus the values pinned
// by equality filters.
func (e *executor) ExecUpsert(ctx context.Context, s *ast.UpsertStatement) ([]Row, error) {
	rows, err := e.ExecUpdate(ctx, s.Update(true))
	if err != nil {
		return nil, err
	}
	if len(rows) > 0 {
		return rows, nil
	}
	row, err := e.ExecInsert(ctx, s.Insert(true))
	if err != nil {
		return nil, err
	}
	return []Row{row}, nil
}

// ExecUpsertFirst upserts a single row. It looks up an existing row first
// so the change can be logged with its before and after state.
func (e *executor) ExecUpsertFirst(ctx context.Context, s *ast.UpsertStatement) (Row, error) {
	before, err := e.QueryFirst(ctx, &ast.SelectQuery{Table: s.Table, Filters: s.Filters})
	if err != nil {
		return Row{}, err
	}
	if before == nil {
		row, err := e.ExecInsert(ctx, s.Insert(true))
		if err != nil {
			return Row{}, err
		}
		e.logger.DebugContext(ctx, "upsert inserted row", slog.String("table", s.Table), slog.Any("after", row.Map()))
		return row, nil
	}

	upd := s.Update(true)
	upd.Limit = 1
	after, err := e.ExecUpdateFirst(ctx, upd)
	if err != nil {
		return Row{}, err
	}
	if after == nil {
		// The row found by the lookup stopped matching before the update.
		return Row{}, core.Errorf(core.KindQuery, "upsert into %q: matched row disappeared before update", s.Table)
	}
	e.logger.DebugContext(ctx, "upsert updated row", slog.String("table", s.Table),
		slog.Any("before", before.Map()), slog.Any("after", after.Map()))
	return *after, nil
}

// ExecUpsertMulti upserts a batch of rows with a single statement and returns
// the number of affected rows.
func (e *executor) ExecUpsertMulti(ctx context.Context, s *ast.UpsertMultiStatement) (int64, error) {
	q, err := e.compile(s)
	if err != nil {
		return 0, err
	}
	return e.exec(ctx, "upsert_multi", q)
}
