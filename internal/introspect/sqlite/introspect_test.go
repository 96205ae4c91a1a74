package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcore/internal/core"
	"relcore/internal/engine"
	"relcore/internal/introspect"
)

func openDB(t *testing.T, ddl ...string) *sql.DB {
	t.Helper()
	ctx := context.Background()
	db, err := engine.Open(ctx, engine.DefaultOptions(filepath.Join(t.TempDir(), "introspect.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	for _, stmt := range ddl {
		_, err := db.ExecContext(ctx, stmt)
		require.NoError(t, err, stmt)
	}
	return db
}

func TestRegistered(t *testing.T) {
	in, err := introspect.NewIntrospecter(core.DialectSQLite)
	require.NoError(t, err)
	assert.NotNil(t, in)
}

func TestEmployeesDepartments(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE departments(id INTEGER PRIMARY KEY, name TEXT NOT NULL UNIQUE)`,
		`CREATE TABLE employees(id INTEGER PRIMARY KEY, dept_id INTEGER, FOREIGN KEY(dept_id) REFERENCES departments(id) ON DELETE CASCADE)`,
	)
	ctx := context.Background()
	in := New()

	info, err := in.GetTableInfo(ctx, db, "employees")
	require.NoError(t, err)
	require.Len(t, info.ForeignKeys, 1)
	for _, fk := range info.ForeignKeys {
		assert.Equal(t, "dept_id", fk.Column)
		assert.Equal(t, "departments", fk.ReferencedTable)
		assert.Equal(t, "id", fk.ReferencedColumn)
		assert.Equal(t, core.RefActionCascade, fk.OnDelete)
		assert.Equal(t, core.RefActionNone, fk.OnUpdate)
	}

	want := map[string]core.ColumnInfo{
		"id":      {Name: "id", DataType: "INTEGER", Nullable: true, PrimaryKey: true, Ordinal: 0},
		"dept_id": {Name: "dept_id", DataType: "INTEGER", Nullable: true, Ordinal: 1},
	}
	if diff := cmp.Diff(want, info.Columns); diff != "" {
		t.Errorf("columns mismatch (-want +got):\n%s", diff)
	}

	tables, err := in.ListTables(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"departments", "employees"}, tables)

	snap, err := introspect.Snapshot(ctx, in, db)
	require.NoError(t, err)
	assert.Equal(t, []string{"employees"}, introspect.Dependents(snap, "departments"))
	assert.Empty(t, introspect.Dependents(snap, "employees"))
}

func TestColumns(t *testing.T) {
	db := openDB(t, "CREATE TABLE items (\n"+
		"  `id` integer primary key autoincrement,\n"+
		"  name VARCHAR(20) NOT NULL DEFAULT 'x',\n"+
		"  price REAL DEFAULT 0.5\n"+
		")")
	ctx := context.Background()

	info, err := New().GetTableInfo(ctx, db, "ITEMS")
	require.NoError(t, err)
	assert.Equal(t, "items", info.Name)

	id := info.Columns["id"]
	assert.True(t, id.PrimaryKey)
	assert.True(t, id.AutoIncrement)

	name := info.Columns["name"]
	assert.False(t, name.Nullable)
	assert.Equal(t, "VARCHAR(20)", name.DataType)
	require.NotNil(t, name.Default)
	assert.Equal(t, "'x'", *name.Default)
	assert.False(t, name.AutoIncrement)

	assert.Equal(t, []string{"id", "name", "price"}, columnNames(info.OrderedColumns()))

	exists, err := introspect.ColumnExists(ctx, New(), db, "items", "PRICE")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = introspect.ColumnExists(ctx, New(), db, "items", "missing")
	require.NoError(t, err)
	assert.False(t, exists)
}

func columnNames(cols []core.ColumnInfo) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = c.Name
	}
	return out
}

func TestIndexes(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE users (id INTEGER, email TEXT UNIQUE, name TEXT, age INTEGER, PRIMARY KEY (id, name))`,
		`CREATE UNIQUE INDEX idx_users_name_age ON users (name, age)`,
		`create index idx_users_age on users (age)`,
	)

	info, err := New().GetTableInfo(context.Background(), db, "users")
	require.NoError(t, err)

	assert.Equal(t, core.IndexInfo{Name: "idx_users_name_age", Unique: true, Columns: []string{"name", "age"}}, info.Indexes["idx_users_name_age"])
	assert.Equal(t, core.IndexInfo{Name: "idx_users_age", Columns: []string{"age"}}, info.Indexes["idx_users_age"])

	var autos int
	for name, idx := range info.Indexes {
		if name == "idx_users_name_age" || name == "idx_users_age" {
			continue
		}
		autos++
		assert.True(t, idx.Primary, name)
		assert.True(t, idx.Unique, name)
	}
	assert.Equal(t, 2, autos)
}

func TestUnknownTable(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()

	_, err := New().GetTableInfo(ctx, db, "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrInvalidQuery)

	exists, err := New().TableExists(ctx, db, "nope")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAuxiliaryObjects(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE orders (id INTEGER PRIMARY KEY, total REAL, code TEXT UNIQUE)`,
		`CREATE TABLE audit (msg TEXT)`,
		`CREATE INDEX idx_orders_total ON orders (total)`,
		`CREATE TRIGGER trg_orders AFTER INSERT ON orders BEGIN INSERT INTO audit VALUES ('x'); END`,
		`CREATE VIEW big_orders AS SELECT * FROM "orders" WHERE total > 100`,
		`CREATE VIEW audit_view AS SELECT * FROM audit`,
	)

	objs, err := AuxiliaryObjects(context.Background(), db, "orders")
	require.NoError(t, err)

	var names []string
	autos := 0
	for _, o := range objs {
		if o.IsAutoIndex() {
			autos++
			continue
		}
		names = append(names, o.Name)
	}
	assert.Equal(t, []string{"idx_orders_total", "trg_orders", "big_orders"}, names)
	assert.Equal(t, 1, autos)
}

func TestGeneratedColumnsAndPragmas(t *testing.T) {
	db := openDB(t, `CREATE TABLE g (a INTEGER, b INTEGER GENERATED ALWAYS AS (a * 2) STORED, c INTEGER AS (a + 1))`)
	ctx := context.Background()

	cols, err := GeneratedColumns(ctx, db, "g")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, cols)

	on, err := ForeignKeysEnabled(ctx, db)
	require.NoError(t, err)
	assert.True(t, on)

	violations, err := ForeignKeyCheck(ctx, db)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestCommentedDefinition(t *testing.T) {
	db := openDB(t,
		`CREATE TABLE parents (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE others (id INTEGER PRIMARY KEY)`,
		commentedChild,
	)

	info, err := New().GetTableInfo(context.Background(), db, "child")
	require.NoError(t, err)
	assert.True(t, info.Columns["id"].AutoIncrement)
	assert.Len(t, info.ForeignKeys, 2)
	assert.Equal(t, []string{"id", "p", "q"}, columnNames(info.OrderedColumns()))
}
