package db

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"relcore/internal/ast"
	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/metrics"
	"relcore/internal/value"
)

func openTestDB(t *testing.T, ddl ...string) *Database {
	t.Helper()
	ctx := context.Background()
	d, err := Open(ctx, Options{Options: engine.DefaultOptions(filepath.Join(t.TempDir(), "db.sqlite"))})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	for _, stmt := range ddl {
		_, err := d.ExecRaw(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return d
}

func count(t *testing.T, q interface {
	QueryRaw(context.Context, string) ([]Row, error)
}, table string) int64 {
	t.Helper()
	rows, err := q.QueryRaw(context.Background(), `SELECT COUNT(*) AS n FROM "`+table+`"`)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	n, ok := rows[0].Values[0].AsInt64()
	require.True(t, ok)
	return n
}

func TestRoundTripWidening(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE vals (
		i8 INTEGER, u32 INTEGER, b INTEGER, r32 REAL,
		s TEXT, dt TEXT, dec TEXT, id TEXT, n INTEGER
	)`)
	ctx := context.Background()

	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	uid := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	row, err := d.ExecInsert(ctx, &ast.InsertStatement{Table: "vals", Values: []ast.Assignment{
		ast.Set("i8", ast.V(value.Int8(-5))),
		ast.Set("u32", ast.V(value.UInt32(7))),
		ast.Set("b", ast.V(value.Bool(true))),
		ast.Set("r32", ast.V(value.Real32(1.5))),
		ast.Set("s", ast.V(value.String("hello"))),
		ast.Set("dt", ast.V(value.DateTime(ts))),
		ast.Set("dec", ast.V(value.Decimal(decimal.RequireFromString("12.5")))),
		ast.Set("id", ast.V(value.UUID(uid))),
		ast.Set("n", ast.V(value.Int64Ptr(nil))),
	}})
	require.NoError(t, err)

	want := map[string]value.Value{
		"i8":  value.Int64(-5),
		"u32": value.Int64(7),
		"b":   value.Int64(1),
		"r32": value.Real64(1.5),
		"s":   value.String("hello"),
		"dt":  value.String("2024-01-02 03:04:05"),
		"dec": value.String("12.5"),
		"id":  value.String(uid.String()),
	}
	for col, v := range want {
		got, ok := row.Get(col)
		require.True(t, ok, col)
		assert.True(t, v.Equal(got), "%s: want %v, got %v", col, v, got)
	}
	n, ok := row.Get("n")
	require.True(t, ok)
	assert.True(t, n.IsNull())
	assert.Equal(t, 9, row.Len())

	// Decimal and UUID come back as text and parse to the values written.
	decText, _ := row.Get("dec")
	s, ok := decText.AsString()
	require.True(t, ok)
	dec, err := decimal.NewFromString(s)
	require.NoError(t, err)
	wantDec, ok := value.Decimal(decimal.RequireFromString("12.5")).AsDecimal()
	require.True(t, ok)
	assert.True(t, wantDec.Equal(dec))

	idText, _ := row.Get("id")
	s, ok = idText.AsString()
	require.True(t, ok)
	wantID, ok := value.UUID(uid).AsUUID()
	require.True(t, ok)
	assert.Equal(t, wantID, uuid.MustParse(s))
}

func TestU64RangeGuard(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE nums (n INTEGER)`)
	ctx := context.Background()

	_, err := d.ExecInsert(ctx, &ast.InsertStatement{Table: "nums", Values: []ast.Assignment{
		ast.Set("n", ast.V(value.UInt64(math.MaxUint64))),
	}})
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
	assert.Contains(t, err.Error(), "u64 too large")
	assert.Zero(t, count(t, d, "nums"))

	row, err := d.ExecInsert(ctx, &ast.InsertStatement{Table: "nums", Values: []ast.Assignment{
		ast.Set("n", ast.V(value.UInt64(math.MaxInt64))),
	}})
	require.NoError(t, err)
	got, _ := row.Get("n")
	assert.True(t, value.Int64(math.MaxInt64).Equal(got))
}

func TestBlobIsUnsupported(t *testing.T) {
	d := openTestDB(t)
	_, err := d.QueryRaw(context.Background(), `SELECT x'00ff' AS b`)
	assert.ErrorIs(t, err, core.ErrUnsupportedType)
}

func TestInsertDefaultValuesAndNow(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL DEFAULT 'tick',
		at TEXT
	)`)
	ctx := context.Background()

	row, err := d.ExecInsert(ctx, &ast.InsertStatement{Table: "events"})
	require.NoError(t, err)
	kind, _ := row.Get("kind")
	assert.True(t, value.String("tick").Equal(kind))
	id, _ := row.Get("id")
	assert.True(t, value.Int64(1).Equal(id))

	row, err = d.ExecInsert(ctx, &ast.InsertStatement{Table: "events", Values: []ast.Assignment{
		ast.Set("at", ast.V(value.NowPlus(value.Interval{Days: 1}))),
	}})
	require.NoError(t, err)
	at, _ := row.Get("at")
	s, ok := at.AsString()
	require.True(t, ok)
	assert.Regexp(t, regexp.MustCompile(`^\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}$`), s)
}

func TestQueryAndQueryFirst(t *testing.T) {
	d := openTestDB(t,
		`CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, age INTEGER)`,
		`INSERT INTO people (name, age) VALUES ('ann', 30), ('bob', 25), ('cid', 41)`,
	)
	ctx := context.Background()

	rows, err := d.Query(ctx, &ast.SelectQuery{
		Table:   "people",
		Columns: []ast.Expr{ast.Col("name")},
		Filters: []ast.Expr{ast.Gt(ast.Col("age"), ast.V(value.Int32(26)))},
		Sorts:   []ast.Sort{{Expr: ast.Col("age"), Direction: ast.Desc}},
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"name"}, rows[0].Columns)
	assert.True(t, value.String("cid").Equal(rows[0].Values[0]))

	first, err := d.QueryFirst(ctx, &ast.SelectQuery{Table: "people", Sorts: []ast.Sort{{Expr: ast.Col("id")}}})
	require.NoError(t, err)
	require.NotNil(t, first)
	name, _ := first.Get("NAME")
	assert.True(t, value.String("ann").Equal(name))

	none, err := d.QueryFirst(ctx, &ast.SelectQuery{Table: "people", Filters: []ast.Expr{ast.Where("name", value.String("zed"))}})
	require.NoError(t, err)
	assert.Nil(t, none)

	// The connection is idle again after QueryFirst stopped early.
	n, err := d.ExecRaw(ctx, `UPDATE people SET age = age + 1`)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestRawCalls(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE kv (k TEXT PRIMARY KEY, v TEXT)`)
	ctx := context.Background()

	n, err := d.ExecRawParams(ctx, `INSERT INTO kv (k, v) VALUES (?, ?)`, []value.Value{value.String("a"), value.String("1")})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	rows, err := d.QueryRawParams(ctx, `SELECT v FROM kv WHERE k = ?1 OR v = ?1`, []value.Value{value.String("a")})
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = d.QueryRawParams(ctx, `SELECT v FROM kv WHERE k = ?`, nil)
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
	_, err = d.ExecRawParams(ctx, `DELETE FROM kv`, []value.Value{value.Int64(1)})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestQueryErrorKeepsSQL(t *testing.T) {
	d := openTestDB(t)
	_, err := d.QueryRaw(context.Background(), `SELEC 1`)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrQuery)

	var e *core.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, `SELEC 1`, e.SQL)
}

// jobStates reads every row of jobs as id -> state.
func jobStates(t *testing.T, d *Database) map[int64]string {
	t.Helper()
	rows, err := d.QueryRaw(context.Background(), `SELECT id, state FROM jobs`)
	require.NoError(t, err)
	out := make(map[int64]string, len(rows))
	for _, r := range rows {
		out[testRowID(t, r)], _ = r.Values[1].AsString()
	}
	return out
}

func testRowID(t *testing.T, r Row) int64 {
	t.Helper()
	v, ok := r.Get("id")
	require.True(t, ok)
	id, ok := v.AsInt64()
	require.True(t, ok)
	return id
}

func TestLimitedUpdate(t *testing.T) {
	d := openTestDB(t,
		`CREATE TABLE jobs (id INTEGER PRIMARY KEY, state TEXT)`,
		`INSERT INTO jobs (state) VALUES ('new'), ('new'), ('new'), ('new'), ('done')`,
	)
	ctx := context.Background()
	before := jobStates(t, d)

	rows, err := d.ExecUpdate(ctx, &ast.UpdateStatement{
		Table:   "jobs",
		Values:  []ast.Assignment{ast.Set("state", ast.V(value.String("running")))},
		Filters: []ast.Expr{ast.Where("state", value.String("new"))},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	changed := make(map[int64]bool)
	for _, r := range rows {
		s, _ := r.Get("state")
		assert.True(t, value.String("running").Equal(s))
		id := testRowID(t, r)
		assert.Equal(t, "new", before[id], "only matching rows are updated")
		changed[id] = true
	}
	require.Len(t, changed, 2)

	after := jobStates(t, d)
	require.Len(t, after, len(before))
	for id, state := range before {
		if changed[id] {
			assert.Equal(t, "running", after[id])
			continue
		}
		assert.Equal(t, state, after[id], "row %d is outside the limit", id)
	}

	running, err := d.Query(ctx, &ast.SelectQuery{Table: "jobs", Filters: []ast.Expr{ast.Where("state", value.String("running"))}})
	require.NoError(t, err)
	assert.Len(t, running, 2)

	rows, err = d.ExecUpdate(ctx, &ast.UpdateStatement{
		Table:   "jobs",
		Values:  []ast.Assignment{ast.Set("state", ast.V(value.String("x")))},
		Filters: []ast.Expr{ast.Where("state", value.String("missing"))},
		Limit:   3,
	})
	require.NoError(t, err)
	assert.Empty(t, rows)

	all, err := d.ExecUpdate(ctx, &ast.UpdateStatement{
		Table:  "jobs",
		Values: []ast.Assignment{ast.Set("state", ast.V(value.String("reset")))},
	})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	one, err := d.ExecUpdateFirst(ctx, &ast.UpdateStatement{
		Table:  "jobs",
		Values: []ast.Assignment{ast.Set("state", ast.V(value.String("first")))},
	})
	require.NoError(t, err)
	require.NotNil(t, one)
}

func TestLimitedDelete(t *testing.T) {
	d := openTestDB(t,
		`CREATE TABLE jobs (id INTEGER PRIMARY KEY, state TEXT)`,
		`INSERT INTO jobs (state) VALUES ('a'), ('a'), ('a'), ('b')`,
	)
	ctx := context.Background()
	before := jobStates(t, d)

	rows, err := d.ExecDelete(ctx, &ast.DeleteStatement{
		Table:   "jobs",
		Filters: []ast.Expr{ast.Where("state", value.String("a"))},
		Limit:   2,
	})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	want := make(map[int64]string, len(before))
	for id, state := range before {
		want[id] = state
	}
	for _, r := range rows {
		s, _ := r.Get("state")
		assert.True(t, value.String("a").Equal(s))
		id := testRowID(t, r)
		require.Contains(t, want, id)
		delete(want, id)
	}
	assert.Equal(t, want, jobStates(t, d), "rows outside the limit are untouched")

	row, err := d.ExecDeleteFirst(ctx, &ast.DeleteStatement{Table: "jobs", Filters: []ast.Expr{ast.Where("state", value.String("b"))}})
	require.NoError(t, err)
	require.NotNil(t, row)

	row, err = d.ExecDeleteFirst(ctx, &ast.DeleteStatement{Table: "jobs", Filters: []ast.Expr{ast.Where("state", value.String("b"))}})
	require.NoError(t, err)
	assert.Nil(t, row)

	rows, err = d.ExecDelete(ctx, &ast.DeleteStatement{Table: "jobs"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Zero(t, count(t, d, "jobs"))
}

func TestUpsert(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE settings (name TEXT PRIMARY KEY, val TEXT)`)
	ctx := context.Background()

	upsert := &ast.UpsertStatement{
		Table:   "settings",
		Values:  []ast.Assignment{ast.Set("val", ast.V(value.String("on")))},
		Filters: []ast.Expr{ast.Where("name", value.String("feature"))},
	}
	rows, err := d.ExecUpsert(ctx, upsert)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	name, _ := rows[0].Get("name")
	assert.True(t, value.String("feature").Equal(name), "insert carries the equality filter value")
	assert.Equal(t, int64(1), count(t, d, "settings"))

	upsert.Values = []ast.Assignment{ast.Set("val", ast.V(value.String("off")))}
	rows, err = d.ExecUpsert(ctx, upsert)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	val, _ := rows[0].Get("val")
	assert.True(t, value.String("off").Equal(val))
	assert.Equal(t, int64(1), count(t, d, "settings"))
}

func TestUpsertFirst(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE counters (name TEXT PRIMARY KEY, n INTEGER NOT NULL DEFAULT 0)`)
	ctx := context.Background()

	upsert := &ast.UpsertStatement{
		Table:   "counters",
		Values:  []ast.Assignment{ast.Set("n", ast.V(value.Int64(1)))},
		Filters: []ast.Expr{ast.Where("name", value.String("hits"))},
	}
	row, err := d.ExecUpsertFirst(ctx, upsert)
	require.NoError(t, err)
	n, _ := row.Get("n")
	assert.True(t, value.Int64(1).Equal(n))

	upsert.Values = []ast.Assignment{ast.Set("n", ast.Lit(`"n" + 1`))}
	row, err = d.ExecUpsertFirst(ctx, upsert)
	require.NoError(t, err)
	n, _ = row.Get("n")
	assert.True(t, value.Int64(2).Equal(n))
	assert.Equal(t, int64(1), count(t, d, "counters"))
}

func TestUpsertMulti(t *testing.T) {
	d := openTestDB(t,
		`CREATE TABLE prices (sku TEXT PRIMARY KEY, price INTEGER)`,
		`INSERT INTO prices VALUES ('a', 1)`,
	)
	ctx := context.Background()

	n, err := d.ExecUpsertMulti(ctx, &ast.UpsertMultiStatement{
		Table: "prices",
		Rows: [][]ast.Assignment{
			{ast.Set("sku", ast.V(value.String("a"))), ast.Set("price", ast.V(value.Int64(10)))},
			{ast.Set("sku", ast.V(value.String("b"))), ast.Set("price", ast.V(value.Int64(20)))},
		},
		ConflictColumns: []string{"sku"},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Equal(t, int64(2), count(t, d, "prices"))

	rows, err := d.QueryRawParams(ctx, `SELECT price FROM prices WHERE sku = ?`, []value.Value{value.String("a")})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, value.Int64(10).Equal(rows[0].Values[0]))

	_, err = d.ExecUpsertMulti(ctx, &ast.UpsertMultiStatement{
		Table: "prices",
		Rows: [][]ast.Assignment{
			{ast.Set("sku", ast.V(value.String("c")))},
			{ast.Set("price", ast.V(value.Int64(1)))},
		},
	})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)
}

func TestTransactionNesting(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE t (id INTEGER)`)
	ctx := context.Background()

	tx, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	assert.Equal(t, TxActive, tx.State())

	_, err = tx.BeginTransaction(ctx)
	assert.ErrorIs(t, err, core.ErrAlreadyInTransaction)
	assert.ErrorIs(t, err, core.ErrTransaction)

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, TxCommitted, tx.State())

	_, err = tx.QueryRaw(ctx, `SELECT 1`)
	assert.ErrorIs(t, err, core.ErrTransactionDone)
	assert.ErrorIs(t, err, core.ErrTransaction)
	assert.ErrorIs(t, tx.Commit(ctx), core.ErrTransactionDone)
	assert.ErrorIs(t, tx.Rollback(ctx), core.ErrTransactionDone)
	_, err = tx.BeginTransaction(ctx)
	assert.ErrorIs(t, err, core.ErrAlreadyInTransaction)
}

func TestSavepoint(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	tx, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback(ctx) }()

	for _, name := range []string{"", "   ", "a;b", `a"b`, "a'b", "a\x00b", "a\nb"} {
		err := tx.Savepoint(ctx, name)
		assert.ErrorIs(t, err, core.ErrInvalidQuery, "%q", name)
	}

	err = tx.Savepoint(ctx, "sp1")
	assert.ErrorIs(t, err, core.ErrSavepointUnsupported)
	assert.Contains(t, err.Error(), "savepoints unsupported")
}

func TestTransactionIsolation(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE t (id INTEGER)`)
	ctx := context.Background()

	tx, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	_, err = tx.ExecRaw(ctx, `INSERT INTO t VALUES (1)`)
	require.NoError(t, err)

	assert.Equal(t, int64(1), count(t, tx, "t"))
	assert.Zero(t, count(t, d, "t"), "uncommitted rows are invisible to the primary connection")

	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(1), count(t, d, "t"))

	tx, err = d.BeginTransaction(ctx)
	require.NoError(t, err)
	_, err = tx.ExecRaw(ctx, `INSERT INTO t VALUES (2)`)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, TxRolledBack, tx.State())
	assert.Equal(t, int64(1), count(t, d, "t"))
}

func TestMemoryDatabaseTransaction(t *testing.T) {
	ctx := context.Background()
	d, err := Open(ctx, Options{Options: engine.DefaultOptions(engine.MemoryPath)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.ExecRaw(ctx, `CREATE TABLE t (id INTEGER)`)
	require.NoError(t, err)
	_, err = d.ExecRaw(ctx, `INSERT INTO t VALUES (1)`)
	require.NoError(t, err)

	tx, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	exists, err := tx.TableExists(ctx, "t")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, int64(1), count(t, tx, "t"))

	_, err = tx.ExecRaw(ctx, `INSERT INTO t VALUES (2)`)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, int64(2), count(t, d, "t"))
}

func TestConcurrentReadTransactions(t *testing.T) {
	d := openTestDB(t,
		`CREATE TABLE t (id INTEGER)`,
		`INSERT INTO t VALUES (1), (2), (3)`,
	)
	ctx := context.Background()

	txs := make([]*Transaction, 4)
	for i := range txs {
		tx, err := d.BeginTransaction(ctx)
		require.NoError(t, err)
		txs[i] = tx
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, tx := range txs {
		g.Go(func() error {
			rows, err := tx.QueryRaw(gctx, `SELECT COUNT(*) FROM t`)
			if err != nil {
				return err
			}
			if n, _ := rows[0].Values[0].AsInt64(); n != 3 {
				return errors.New("unexpected row count")
			}
			return tx.Rollback(gctx)
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(3), count(t, d, "t"))
}

func TestWithTransaction(t *testing.T) {
	d := openTestDB(t, `CREATE TABLE t (id INTEGER)`)
	ctx := context.Background()

	boom := errors.New("boom")
	err := d.WithTransaction(ctx, func(tx *Transaction) error {
		if _, err := tx.ExecRaw(ctx, `INSERT INTO t VALUES (1)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, count(t, d, "t"))

	err = d.WithTransaction(ctx, func(tx *Transaction) error {
		_, err := tx.ExecRaw(ctx, `INSERT INTO t VALUES (1)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count(t, d, "t"))
}

func TestSchemaAndDDL(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	_, err := d.CreateTable(ctx, &ast.CreateTableStatement{
		Table:   "departments",
		Columns: []ast.ColumnDef{{Name: "id", Type: "INTEGER", PrimaryKey: true}, {Name: "name", Type: "TEXT", Unique: true}},
	})
	require.NoError(t, err)
	_, err = d.CreateTable(ctx, &ast.CreateTableStatement{
		Table: "employees",
		Columns: []ast.ColumnDef{
			{Name: "id", Type: "INTEGER", PrimaryKey: true},
			{Name: "dept_id", Type: "INTEGER", Nullable: true},
		},
		ForeignKeys: []ast.ForeignKeyDef{{
			Columns: []string{"dept_id"}, RefTable: "departments", RefColumns: []string{"id"},
			OnDelete: core.RefActionCascade,
		}},
	})
	require.NoError(t, err)
	_, err = d.CreateIndex(ctx, &ast.CreateIndexStatement{Name: "idx_emp_dept", Table: "employees", Columns: []string{"dept_id"}})
	require.NoError(t, err)

	tables, err := d.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"departments", "employees"}, tables)

	exists, err := d.TableExists(ctx, "EMPLOYEES")
	require.NoError(t, err)
	assert.True(t, exists)

	cols, err := d.GetTableColumns(ctx, "employees")
	require.NoError(t, err)
	require.Len(t, cols, 2)
	assert.Equal(t, "id", cols[0].Name)
	assert.Equal(t, "dept_id", cols[1].Name)

	ok, err := d.ColumnExists(ctx, "employees", "dept_id")
	require.NoError(t, err)
	assert.True(t, ok)

	info, err := d.GetTableInfo(ctx, "employees")
	require.NoError(t, err)
	require.Len(t, info.ForeignKeys, 1)
	assert.Contains(t, info.Indexes, "idx_emp_dept")

	_, err = d.GetTableInfo(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	targets, err := d.CascadeTargets(ctx, "departments")
	require.NoError(t, err)
	assert.Equal(t, []string{"employees", "departments"}, targets)

	_, err = d.DropTable(ctx, &ast.DropTableStatement{Table: "departments", Behavior: ast.DropRestrict})
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	_, err = d.AlterTable(ctx, &ast.AlterTableStatement{Table: "departments", Operations: []ast.AlterOperation{
		ast.AddColumn{Column: ast.ColumnDef{Name: "budget", Type: "INTEGER", Nullable: true}},
	}})
	require.NoError(t, err)

	_, err = d.DropIndex(ctx, &ast.DropIndexStatement{Name: "idx_emp_dept"})
	require.NoError(t, err)

	plan, err := d.DropTable(ctx, &ast.DropTableStatement{Table: "departments", Behavior: ast.DropCascade})
	require.NoError(t, err)
	assert.Equal(t, core.RiskCritical, plan.HighestRisk())
	tables, err = d.ListTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, tables)
}

func TestDDLInTransaction(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	tx, err := d.BeginTransaction(ctx)
	require.NoError(t, err)
	_, err = tx.CreateTable(ctx, &ast.CreateTableStatement{Table: "scratch", Columns: []ast.ColumnDef{{Name: "id", Type: "INTEGER"}}})
	require.NoError(t, err)

	exists, err := tx.TableExists(ctx, "scratch")
	require.NoError(t, err)
	assert.True(t, exists)

	_, err = tx.Migrate(ctx, true, &ast.DropTableStatement{Table: "scratch"})
	assert.ErrorIs(t, err, core.ErrInvalidQuery, "dry run needs its own transaction")

	require.NoError(t, tx.Rollback(ctx))
	exists, err = d.TableExists(ctx, "scratch")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStatementMetrics(t *testing.T) {
	d := openTestDB(t)
	ok := metrics.StatementCounter().WithLabelValues("ok", "query_raw")
	failed := metrics.StatementCounter().WithLabelValues("error", "query_raw")
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	_, err := d.QueryRaw(context.Background(), `SELECT 1`)
	require.NoError(t, err)
	_, err = d.QueryRaw(context.Background(), `SELECT * FROM nowhere`)
	require.Error(t, err)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(ok))
	assert.Equal(t, failedBefore+1, testutil.ToFloat64(failed))
}

func TestOpenErrors(t *testing.T) {
	ctx := context.Background()
	_, err := Open(ctx, Options{})
	assert.ErrorIs(t, err, core.ErrConnection)

	_, err = Open(ctx, Options{Options: engine.DefaultOptions(filepath.Join(t.TempDir(), "x.db")), Dialect: "oracle"})
	assert.ErrorIs(t, err, core.ErrConnection)
}
